package flagparse

import (
	"fmt"

	"github.com/paulschiretz/pgl-verify/pkg/util"
)

// Command defines the command to execute.
type Command int

const (
	None = iota
	Index
	Compare
	Validate
	Export
	Version
)

var commandToString = map[Command]string{
	None:     "none",
	Index:    "index",
	Compare:  "compare",
	Validate: "validate",
	Export:   "export",
	Version:  "version",
}

var stringToCommand map[string]Command

func init() {
	stringToCommand = util.InvertMap(commandToString)
}

func (c Command) String() string {
	if str, ok := commandToString[c]; ok {
		return str
	}
	return fmt.Sprintf("unknown_command(%d)", c)
}

func ParseCommand(s string) (Command, error) {
	if command, ok := stringToCommand[s]; ok {
		return command, nil
	}
	return None, fmt.Errorf("invalid command: %q. Must be 'index', 'compare', 'validate', 'export', or 'version'", s)
}

package checksum

import (
	"fmt"
	"hash/crc32"
	"io"
	"os"

	"github.com/paulschiretz/pgl-verify/pkg/pool"
)

// DefaultBufferSizeKB is the read buffer size used when the caller does not
// configure one.
const DefaultBufferSizeKB = 64

// Summer computes CRC-32 (IEEE) fingerprints over streamed file content.
// Buffers are drawn from a fixed-size pool and reused across calls, so total
// memory stays O(buffer size) regardless of file sizes. The fingerprint is an
// integrity check, not a cryptographic one.
type Summer struct {
	bufPool *pool.FixedBufferPool
}

// NewSummer creates a Summer with the given read buffer size in kilobytes.
// Values <= 0 fall back to DefaultBufferSizeKB.
func NewSummer(bufferSizeKB int) *Summer {
	if bufferSizeKB <= 0 {
		bufferSizeKB = DefaultBufferSizeKB
	}
	return &Summer{
		bufPool: pool.NewFixedBuffer(int64(bufferSizeKB) * 1024),
	}
}

// Sum streams r to completion and returns the fingerprint as an 8-digit
// uppercase hex string. A read failure returns an error and never a partial
// fingerprint.
func (s *Summer) Sum(r io.Reader) (string, error) {
	h := crc32.NewIEEE()

	bufPtr := s.bufPool.Get()
	defer s.bufPool.Put(bufPtr)
	buf := *bufPtr

	for {
		n, err := r.Read(buf)
		if n > 0 {
			h.Write(buf[:n]) // hash.Hash writes never fail.
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("read failed while checksumming: %w", err)
		}
	}

	return fmt.Sprintf("%08X", h.Sum32()), nil
}

// File opens path and fingerprints its full content.
func (s *Summer) File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s for checksumming: %w", path, err)
	}
	defer f.Close()

	sum, err := s.Sum(f)
	if err != nil {
		return "", fmt.Errorf("failed to checksum %s: %w", path, err)
	}
	return sum, nil
}

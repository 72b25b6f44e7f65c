package pool

import "testing"

func TestFixedBufferPool(t *testing.T) {
	t.Run("Get returns buffer of fixed size", func(t *testing.T) {
		fp := NewFixedBuffer(1024)

		buf := fp.Get()
		if buf == nil {
			t.Fatal("expected non-nil buffer")
		}
		if len(*buf) != 1024 || cap(*buf) != 1024 {
			t.Errorf("expected len/cap 1024, got len=%d cap=%d", len(*buf), cap(*buf))
		}
		fp.Put(buf)
	})

	t.Run("Put restores full length after sub-slicing", func(t *testing.T) {
		fp := NewFixedBuffer(64)

		buf := fp.Get()
		*buf = (*buf)[:10]
		fp.Put(buf)

		got := fp.Get()
		if len(*got) != 64 {
			t.Errorf("expected recycled buffer to be reset to 64 bytes, got %d", len(*got))
		}
	})

	t.Run("Put rejects foreign buffers", func(t *testing.T) {
		fp := NewFixedBuffer(32)

		foreign := make([]byte, 16)
		fp.Put(&foreign) // Must not panic or poison the pool.
		fp.Put(nil)

		got := fp.Get()
		if cap(*got) != 32 {
			t.Errorf("expected buffer of cap 32 from pool, got %d", cap(*got))
		}
	})

	t.Run("Size reports the configured size", func(t *testing.T) {
		fp := NewFixedBuffer(4096)
		if fp.Size() != 4096 {
			t.Errorf("expected size 4096, got %d", fp.Size())
		}
	})
}

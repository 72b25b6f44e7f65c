package pool

import "sync"

// FixedBufferPool recycles byte slices of a single fixed size. The checksum
// engine reuses one buffer per in-flight read loop instead of allocating a
// fresh slice per file.
type FixedBufferPool struct {
	size int64
	pool sync.Pool
}

// NewFixedBuffer creates a pool handing out buffers of exactly 'size' bytes.
func NewFixedBuffer(size int64) *FixedBufferPool {
	return &FixedBufferPool{
		size: size,
		pool: sync.Pool{
			New: func() any {
				b := make([]byte, int(size))
				return &b
			},
		},
	}
}

// Get retrieves a pointer to a byte slice of the pool's fixed size.
func (fp *FixedBufferPool) Get() *[]byte {
	return fp.pool.Get().(*[]byte)
}

// Put returns the buffer to the pool. Buffers of the wrong capacity are
// dropped so a caller cannot poison the pool.
func (fp *FixedBufferPool) Put(b *[]byte) {
	if b == nil || int64(cap(*b)) != fp.size {
		return
	}
	*b = (*b)[:fp.size]
	fp.pool.Put(b)
}

// Size returns the fixed buffer size in bytes.
func (fp *FixedBufferPool) Size() int64 {
	return fp.size
}

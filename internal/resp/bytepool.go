package resp

import "sync"

// BytePool recycles byte slices used to hold serialized reply frames,
// the same role it plays in the teacher repo's response path: avoid an
// allocation per reply on a hot connection.
type BytePool struct {
	pool sync.Pool
}

// NewBytePool returns a ready-to-use pool seeded with 1KiB buffers.
func NewBytePool() *BytePool {
	return &BytePool{
		pool: sync.Pool{
			New: func() any {
				buf := make([]byte, 0, 1024)
				return &buf
			},
		},
	}
}

// Get returns a buffer with at least the requested capacity and zero
// length.
func (bp *BytePool) Get(size int) []byte {
	bufp := bp.pool.Get().(*[]byte)
	buf := *bufp
	if cap(buf) < size {
		return make([]byte, 0, size)
	}
	return buf[:0]
}

// Put returns buf to the pool. Very large buffers are not pooled, so a
// single oversize reply can't permanently inflate the pool's footprint.
func (bp *BytePool) Put(buf []byte) {
	if cap(buf) > 64*1024 {
		return
	}
	buf = buf[:0]
	bp.pool.Put(&buf)
}

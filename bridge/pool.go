package bridge

import "sync"

// bufferPool manages reusable byte slices to reduce GC pressure. Neither
// native backend nor Core currently draws its read/write buffers from it.
//
// Buffers are selected from fixed size classes; requests larger than the
// biggest class fall back to a direct allocation rather than pooling huge
// buffers indefinitely.
type bufferPool struct {
	pools []*sync.Pool
	sizes []int
}

// newBufferPool creates a buffer pool with fixed size classes for
// read/write scratch space.
//
// Size classes:
//   - 4KB: small reads (metadata, directory entries)
//   - 64KB: medium reads (typical file operations)
//   - 128KB: default read/write size
//   - 1MB: large sequential reads
func newBufferPool() *bufferPool {
	sizes := []int{4 * 1024, 64 * 1024, 128 * 1024, 1024 * 1024}
	pools := make([]*sync.Pool, len(sizes))
	for i, size := range sizes {
		size := size
		pools[i] = &sync.Pool{New: func() interface{} {
			buf := make([]byte, size)
			return &buf
		}}
	}
	return &bufferPool{pools: pools, sizes: sizes}
}

// Get retrieves a buffer of at least the requested size. The returned
// buffer must be returned via Put when no longer needed.
func (p *bufferPool) Get(size int) []byte {
	for i, poolSize := range p.sizes {
		if size <= poolSize {
			bufPtr := p.pools[i].Get().(*[]byte)
			return (*bufPtr)[:size]
		}
	}
	return make([]byte, size)
}

// Put returns a buffer to the pool for reuse.
func (p *bufferPool) Put(buf []byte) {
	capacity := cap(buf)
	for i, size := range p.sizes {
		if capacity == size {
			fullBuf := buf[:capacity]
			p.pools[i].Put(&fullBuf)
			return
		}
	}
}

// globalBufferPool is the shared buffer pool for all I/O operations.
var globalBufferPool = newBufferPool()

// GetBuffer retrieves a buffer from the global pool.
func GetBuffer(size int) []byte { return globalBufferPool.Get(size) }

// PutBuffer returns a buffer to the global pool.
func PutBuffer(buf []byte) { globalBufferPool.Put(buf) }

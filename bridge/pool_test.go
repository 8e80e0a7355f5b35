package bridge

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBufferPool_SizeClasses(t *testing.T) {
	pool := newBufferPool()

	tests := []struct {
		requestSize int
		expectedCap int
	}{
		{1024, 4 * 1024},
		{4 * 1024, 4 * 1024},
		{32 * 1024, 64 * 1024},
		{100 * 1024, 128 * 1024},
		{512 * 1024, 1024 * 1024},
	}

	for _, tt := range tests {
		buf := pool.Get(tt.requestSize)
		assert.Len(t, buf, tt.requestSize)
		assert.Equal(t, tt.expectedCap, cap(buf))
		pool.Put(buf)
	}
}

func TestBufferPool_OversizedRequest_NotPooled(t *testing.T) {
	pool := newBufferPool()
	buf := pool.Get(2 * 1024 * 1024)
	assert.Len(t, buf, 2*1024*1024)
	pool.Put(buf) // must not panic even though this buffer matches no size class
}

func TestGetPutBuffer_GlobalPool(t *testing.T) {
	buf := GetBuffer(64 * 1024)
	assert.Len(t, buf, 64*1024)
	PutBuffer(buf)
}

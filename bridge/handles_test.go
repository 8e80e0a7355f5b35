package bridge

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleTracker_AddGetRelease(t *testing.T) {
	ht := NewHandleTracker()
	f := &fakeFile{name: "/a/b"}

	fh := ht.Add(f, 0, "/a/b")
	assert.Equal(t, f, ht.Get(fh))
	assert.Equal(t, "/a/b", ht.Path(fh))
	assert.Equal(t, 1, ht.Count())

	errno := ht.Release(fh)
	assert.Zero(t, errno)
	assert.True(t, f.closed)
	assert.Equal(t, 0, ht.Count())
	assert.Nil(t, ht.Get(fh))
}

func TestHandleTracker_Release_UnknownHandleReturnsEBADF(t *testing.T) {
	ht := NewHandleTracker()
	errno := ht.Release(999)
	assert.NotZero(t, errno)
}

func TestHandleTracker_Release_PropagatesCloseError(t *testing.T) {
	ht := NewHandleTracker()
	f := &fakeFile{closeErr: errors.New("close failed")}
	fh := ht.Add(f, 0, "/x")

	errno := ht.Release(fh)
	assert.NotZero(t, errno)
}

func TestHandleTracker_CloseAll(t *testing.T) {
	ht := NewHandleTracker()
	f1 := &fakeFile{name: "/a"}
	f2 := &fakeFile{name: "/b"}
	ht.Add(f1, 0, "/a")
	ht.Add(f2, 0, "/b")

	ht.CloseAll()

	assert.True(t, f1.closed)
	assert.True(t, f2.closed)
	assert.Equal(t, 0, ht.Count())
}

func TestHandleTracker_NextHandle_Unique(t *testing.T) {
	ht := NewHandleTracker()
	fh1 := ht.Add(&fakeFile{}, 0, "/a")
	fh2 := ht.Add(&fakeFile{}, 0, "/b")
	require.NotEqual(t, fh1, fh2)
}

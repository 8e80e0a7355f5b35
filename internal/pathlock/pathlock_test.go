package pathlock

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPath_AncestorsAndParent(t *testing.T) {
	p := NewPath("/a/b/c")
	ancestors := p.Ancestors()
	require.Len(t, ancestors, 3)
	assert.Equal(t, "/", ancestors[0].String())
	assert.Equal(t, "/a", ancestors[1].String())
	assert.Equal(t, "/a/b", ancestors[2].String())

	parent, ok := p.Parent()
	require.True(t, ok)
	assert.Equal(t, "/a/b", parent.String())

	_, ok = NewPath("/").Parent()
	assert.False(t, ok, "root has no parent")
	assert.True(t, NewPath("/").IsRoot())
}

func TestPath_Less_Lexicographic(t *testing.T) {
	tests := []struct {
		a, b string
		less bool
	}{
		{"/a", "/b", true},
		{"/a/z", "/b", true},
		{"/a/b", "/a/c", true},
		{"/a", "/a/b", true},
		{"/b", "/a", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.less, NewPath(tt.a).Less(NewPath(tt.b)), "%s < %s", tt.a, tt.b)
	}
}

func TestManager_LockPathForReading_AllowsConcurrentReaders(t *testing.T) {
	m := New()

	s1 := m.LockPathForReading(NewPath("/a/b"))
	defer s1.Release()

	done := make(chan struct{})
	go func() {
		s2 := m.LockPathForReading(NewPath("/a/b"))
		s2.Release()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("second reader blocked behind first reader")
	}
}

func TestManager_LockPathForWriting_ExcludesReaders(t *testing.T) {
	m := New()

	s1 := m.LockPathForWriting(NewPath("/a/b"))

	acquired := make(chan struct{})
	go func() {
		s2 := m.LockPathForReading(NewPath("/a/b"))
		close(acquired)
		s2.Release()
	}()

	select {
	case <-acquired:
		t.Fatal("reader acquired lock while writer held it")
	case <-time.After(50 * time.Millisecond):
	}

	s1.Release()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("reader never acquired lock after writer released")
	}
}

func TestManager_AncestorContainment_BlocksDescendantWriteUnderAncestorWrite(t *testing.T) {
	m := New()

	parent := m.LockPathForWriting(NewPath("/a"))

	acquired := make(chan struct{})
	go func() {
		child := m.LockPathForWriting(NewPath("/a/b"))
		close(acquired)
		child.Release()
	}()

	select {
	case <-acquired:
		t.Fatal("child write lock acquired while ancestor write-locked")
	case <-time.After(50 * time.Millisecond):
	}

	parent.Release()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("child write lock never granted after ancestor released")
	}
}

func TestManager_LockRename_RejectsAncestorDescendantPair(t *testing.T) {
	m := New()
	_, err := m.LockRename(NewPath("/a"), NewPath("/a/b"))
	assert.ErrorIs(t, err, ErrRenameIntoDescendant)

	_, err = m.LockRename(NewPath("/a/b"), NewPath("/a"))
	assert.ErrorIs(t, err, ErrRenameIntoDescendant)
}

// TestManager_LockRename_DeadlockFree exercises two goroutines racing
// opposite rename directions (A->B and B->A) repeatedly; under the
// lexicographic total-ordering rule, neither should ever deadlock.
func TestManager_LockRename_DeadlockFree(t *testing.T) {
	m := New()
	a, b := NewPath("/x/a"), NewPath("/y/b")

	var wg sync.WaitGroup
	const iterations = 200
	for i := 0; i < iterations; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			s, err := m.LockRename(a, b)
			if err == nil {
				s.Release()
			}
		}()
		go func() {
			defer wg.Done()
			s, err := m.LockRename(b, a)
			if err == nil {
				s.Release()
			}
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("deadlock detected: rename pairs never completed")
	}
}

// TestManager_LockRename_SurvivesConcurrentAncestorWriter exercises renames
// racing against a direct writer on their shared ancestor ("/"), the way
// Create/Mkdir/Unlink/Rmdir take a write-lock on a rename's ancestor while
// a rename is in flight. LockRename must take each shared ancestor's
// read-lock exactly once per call rather than climbing both paths'
// ancestor chains independently, or this goroutine would recursively
// RLock the same ancestor twice and deadlock against the writer.
func TestManager_LockRename_SurvivesConcurrentAncestorWriter(t *testing.T) {
	m := New()
	a, b := NewPath("/x/a"), NewPath("/y/b")

	var wg sync.WaitGroup
	const iterations = 200
	for i := 0; i < iterations; i++ {
		wg.Add(3)
		go func() {
			defer wg.Done()
			s, err := m.LockRename(a, b)
			if err == nil {
				s.Release()
			}
		}()
		go func() {
			defer wg.Done()
			s, err := m.LockRename(b, a)
			if err == nil {
				s.Release()
			}
		}()
		go func() {
			defer wg.Done()
			s := m.LockPathForWriting(NewPath("/"))
			s.Release()
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("deadlock: rename never completed with a concurrent writer on a shared ancestor")
	}
}

func TestManager_MapReclamation_EmptyAfterAllReleased(t *testing.T) {
	m := New()

	var scopes []*PathScope
	for _, p := range []string{"/a", "/a/b", "/a/b/c"} {
		scopes = append(scopes, m.LockPathForReading(NewPath(p)))
	}

	stats := m.Stats()
	assert.Greater(t, stats.PathEntries, 0)

	for i := len(scopes) - 1; i >= 0; i-- {
		scopes[i].Release()
	}

	stats = m.Stats()
	assert.Equal(t, 0, stats.PathEntries, "lock table should fully reclaim once every scope releases")
}

func TestManager_DataLocks_IndependentOfPathLocks(t *testing.T) {
	m := New()

	pathScope := m.LockPathForReading(NewPath("/a"))
	defer pathScope.Release()

	dataScope := pathScope.LockDataForWriting()
	dataScope.Release()
}

// TestManager_Fairness_WriterNotStarved exercises the property that once a
// writer is waiting on a held read lock, a reader arriving afterward must
// not cut ahead of it — sync.RWMutex's writer preference guarantees this.
func TestManager_Fairness_WriterNotStarved(t *testing.T) {
	m := New()
	p := NewPath("/a/b")

	first := m.LockPathForReading(p)

	var mu sync.Mutex
	var order []string

	writerWaiting := make(chan struct{})
	writerDone := make(chan struct{})
	go func() {
		close(writerWaiting)
		s := m.LockPathForWriting(p)
		mu.Lock()
		order = append(order, "writer")
		mu.Unlock()
		s.Release()
		close(writerDone)
	}()

	<-writerWaiting
	time.Sleep(20 * time.Millisecond) // let the writer register as a waiter

	lateReaderDone := make(chan struct{})
	go func() {
		s := m.LockPathForReading(p)
		mu.Lock()
		order = append(order, "reader")
		mu.Unlock()
		s.Release()
		close(lateReaderDone)
	}()

	time.Sleep(20 * time.Millisecond)
	first.Release()

	<-writerDone
	<-lateReaderDone

	require.Len(t, order, 2)
	assert.Equal(t, "writer", order[0], "writer waiting before a late reader arrived must not be starved by it")
}

package bridge

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatsCollector_Snapshot(t *testing.T) {
	sc := newStatsCollector()
	sc.recordOperation()
	sc.recordOperation()
	sc.recordRead(100)
	sc.recordWrite(50)
	sc.recordError()

	snap := sc.snapshot()
	assert.Equal(t, uint64(2), snap.Operations)
	assert.Equal(t, uint64(100), snap.BytesRead)
	assert.Equal(t, uint64(50), snap.BytesWritten)
	assert.Equal(t, uint64(1), snap.Errors)
}

func TestCore_Stats_IncludesOpenFiles(t *testing.T) {
	core := NewCore(nil, Options{})
	core.Handles.Add(&fakeFile{}, 0, "/a")

	stats := core.Stats()
	assert.Equal(t, 1, stats.OpenFiles)
}

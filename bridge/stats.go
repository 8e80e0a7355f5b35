package bridge

import "sync/atomic"

// Stats is a snapshot of filesystem activity, returned by Core.Stats.
type Stats struct {
	Mountpoint   string
	Operations   uint64
	BytesRead    uint64
	BytesWritten uint64
	Errors       uint64
	OpenFiles    int
}

// statsCollector accumulates the counters behind Stats.
type statsCollector struct {
	operations   atomic.Uint64
	bytesRead    atomic.Uint64
	bytesWritten atomic.Uint64
	errors       atomic.Uint64
}

func newStatsCollector() *statsCollector { return &statsCollector{} }

func (s *statsCollector) recordOperation() { s.operations.Add(1) }
func (s *statsCollector) recordRead(n int) { s.bytesRead.Add(uint64(n)) }
func (s *statsCollector) recordWrite(n int) { s.bytesWritten.Add(uint64(n)) }
func (s *statsCollector) recordError()     { s.errors.Add(1) }

func (s *statsCollector) snapshot() Stats {
	return Stats{
		Operations:   s.operations.Load(),
		BytesRead:    s.bytesRead.Load(),
		BytesWritten: s.bytesWritten.Load(),
		Errors:       s.errors.Load(),
	}
}

package server

import "go.uber.org/atomic"

// Stats tracks performance counters with lock-free atomics, replacing
// the teacher's ServerStats+sync.RWMutex pair (stats.go) — there is no
// derived state here that needs a consistent multi-field snapshot, so a
// mutex would only add contention on the hot path.
type Stats struct {
	TotalOps     atomic.Uint64
	GetOps       atomic.Uint64
	SetOps       atomic.Uint64
	DelOps       atomic.Uint64
	BytesRead    atomic.Uint64
	BytesWritten atomic.Uint64
	Connections  atomic.Uint64
	ExpiredKeys  atomic.Uint64
}

// StatsSnapshot is a point-in-time copy of Stats, safe to read after
// the fact without racing further increments.
type StatsSnapshot struct {
	TotalOps     uint64
	GetOps       uint64
	SetOps       uint64
	DelOps       uint64
	BytesRead    uint64
	BytesWritten uint64
	Connections  uint64
	ExpiredKeys  uint64
}

// Snapshot returns a copy of the current counters.
func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		TotalOps:     s.TotalOps.Load(),
		GetOps:       s.GetOps.Load(),
		SetOps:       s.SetOps.Load(),
		DelOps:       s.DelOps.Load(),
		BytesRead:    s.BytesRead.Load(),
		BytesWritten: s.BytesWritten.Load(),
		Connections:  s.Connections.Load(),
		ExpiredKeys:  s.ExpiredKeys.Load(),
	}
}

func (s *Stats) recordCommand(name string) {
	s.TotalOps.Inc()
	switch name {
	case "GET":
		s.GetOps.Inc()
	case "SET":
		s.SetOps.Inc()
	case "DEL":
		s.DelOps.Inc()
	}
}

package backup

import (
	"sync/atomic"
	"time"
)

// RunStats counts what happened during a run. It is safe for concurrent use.
type RunStats struct {
	files       atomic.Int64
	succeeded   atomic.Int64
	failed      atomic.Int64
	interrupted atomic.Int64
	attempts    atomic.Int64
	retries     atomic.Int64
	bytes       atomic.Int64

	startTime time.Time
	endTime   atomic.Int64
}

// StatsSnapshot is a point-in-time copy of RunStats
type StatsSnapshot struct {
	Files       int64         `json:"files" yaml:"files"`
	Succeeded   int64         `json:"succeeded" yaml:"succeeded"`
	Failed      int64         `json:"failed" yaml:"failed"`
	Interrupted int64         `json:"interrupted" yaml:"interrupted"`
	Attempts    int64         `json:"attempts" yaml:"attempts"`
	Retries     int64         `json:"retries" yaml:"retries"`
	Bytes       int64         `json:"bytes" yaml:"bytes"`
	Duration    time.Duration `json:"duration" yaml:"duration"`
}

// NewRunStats starts the run clock
func NewRunStats() *RunStats {
	return &RunStats{startTime: time.Now()}
}

func (s *RunStats) recordAttempt(attempt int) {
	s.attempts.Add(1)
	if attempt > 1 {
		s.retries.Add(1)
	}
}

func (s *RunStats) recordOutcome(o *UploadOutcome) {
	s.files.Add(1)
	switch {
	case o.Succeeded():
		s.succeeded.Add(1)
		s.bytes.Add(o.Result.Size)
	case o.Interrupted:
		s.failed.Add(1)
		s.interrupted.Add(1)
	default:
		s.failed.Add(1)
	}
}

func (s *RunStats) finish() {
	s.endTime.Store(time.Now().UnixNano())
}

// Snapshot returns the current counters
func (s *RunStats) Snapshot() StatsSnapshot {
	end := time.Now()
	if ns := s.endTime.Load(); ns != 0 {
		end = time.Unix(0, ns)
	}
	return StatsSnapshot{
		Files:       s.files.Load(),
		Succeeded:   s.succeeded.Load(),
		Failed:      s.failed.Load(),
		Interrupted: s.interrupted.Load(),
		Attempts:    s.attempts.Load(),
		Retries:     s.retries.Load(),
		Bytes:       s.bytes.Load(),
		Duration:    end.Sub(s.startTime),
	}
}

// SuccessRate returns the fraction of files archived, or 1 for an empty run
func (s StatsSnapshot) SuccessRate() float64 {
	if s.Files == 0 {
		return 1
	}
	return float64(s.Succeeded) / float64(s.Files)
}

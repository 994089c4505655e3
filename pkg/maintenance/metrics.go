package maintenance

import (
	"sync/atomic"
	"time"
)

// Metrics counts the runs of one job.
type Metrics struct {
	Runs      atomic.Int64
	Failures  atomic.Int64
	Skipped   atomic.Int64
	Rejected  atomic.Int64
	TotalTime atomic.Int64 // nanoseconds
	LastRun   atomic.Int64 // unix nanoseconds of the last completed run
}

func (m *Metrics) recordRun(started time.Time, duration time.Duration, err error) {
	m.Runs.Add(1)
	if err != nil {
		m.Failures.Add(1)
	}
	m.TotalTime.Add(duration.Nanoseconds())
	m.LastRun.Store(started.Add(duration).UnixNano())
}

// JobStats is a point in time copy of a job's Metrics.
type JobStats struct {
	Name            string        `json:"name" yaml:"name"`
	Runs            int64         `json:"runs" yaml:"runs"`
	Failures        int64         `json:"failures" yaml:"failures"`
	Skipped         int64         `json:"skipped" yaml:"skipped"`
	Rejected        int64         `json:"rejected" yaml:"rejected"`
	AverageDuration time.Duration `json:"averageDuration" yaml:"averageDuration"`
	LastRun         *time.Time    `json:"lastRun,omitempty" yaml:"lastRun,omitempty"`
}

// Snapshot returns the current values.
func (m *Metrics) Snapshot(name string) JobStats {
	s := JobStats{
		Name:     name,
		Runs:     m.Runs.Load(),
		Failures: m.Failures.Load(),
		Skipped:  m.Skipped.Load(),
		Rejected: m.Rejected.Load(),
	}
	if s.Runs > 0 {
		s.AverageDuration = time.Duration(m.TotalTime.Load() / s.Runs)
	}
	if last := m.LastRun.Load(); last != 0 {
		t := time.Unix(0, last).UTC()
		s.LastRun = &t
	}
	return s
}

// Package maintenance runs periodic jobs that keep the node inventory and the
// applications deployed on it in sync.
package maintenance

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Job is a periodic maintenance task.
type Job interface {
	Name() string
	Interval() time.Duration
	// Maintain runs one pass of the job.
	Maintain(ctx context.Context) error
}

// JobControl tracks which jobs are disabled.
type JobControl struct {
	mu       sync.RWMutex
	disabled map[string]bool
}

// NewJobControl returns a JobControl with the named jobs disabled.
func NewJobControl(disabled ...string) *JobControl {
	c := &JobControl{disabled: make(map[string]bool, len(disabled))}
	for _, name := range disabled {
		c.disabled[name] = true
	}
	return c
}

func (c *JobControl) IsActive(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.disabled[name]
}

func (c *JobControl) SetActive(name string, active bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if active {
		delete(c.disabled, name)
	} else {
		c.disabled[name] = true
	}
}

// Disabled returns the names of the disabled jobs, sorted.
func (c *JobControl) Disabled() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.disabled))
	for name := range c.disabled {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

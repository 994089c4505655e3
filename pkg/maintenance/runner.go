package maintenance

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rzbill/provision/pkg/log"
)

// Runner runs maintenance jobs on their intervals.
type Runner struct {
	mu      sync.Mutex
	jobs    map[string]Job
	entries map[string]cron.EntryID
	running map[string]bool
	metrics map[string]*Metrics
	control *JobControl
	cron    *cron.Cron
	ctx     context.Context
	cancel  context.CancelFunc
	logger  log.Logger
}

// NewRunner creates a runner. A nil control means all jobs are active.
func NewRunner(control *JobControl, logger log.Logger) *Runner {
	if control == nil {
		control = NewJobControl()
	}
	if logger == nil {
		logger = log.GetDefaultLogger()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{
		jobs:    make(map[string]Job),
		entries: make(map[string]cron.EntryID),
		running: make(map[string]bool),
		metrics: make(map[string]*Metrics),
		control: control,
		cron:    cron.New(),
		ctx:     ctx,
		cancel:  cancel,
		logger:  logger.WithComponent("maintenance"),
	}
}

// Add schedules job every job.Interval().
func (r *Runner) Add(job Job) error {
	if job.Interval() <= 0 {
		return fmt.Errorf("job %s: interval must be greater than 0", job.Name())
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.jobs[job.Name()]; exists {
		return fmt.Errorf("job %s is already scheduled", job.Name())
	}

	name := job.Name()
	id, err := r.cron.AddFunc("@every "+job.Interval().String(), func() {
		if err := r.run(r.ctx, name); err != nil && !errors.Is(err, errJobBusy) && !errors.Is(err, errJobDisabled) {
			r.logger.Debug("Scheduled job run failed", log.Str(log.JobKey, name), log.Err(err))
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule job %s: %w", name, err)
	}
	r.jobs[name] = job
	r.entries[name] = id
	r.metrics[name] = &Metrics{}
	return nil
}

// Remove unschedules the named job. A run in progress is not interrupted.
func (r *Runner) Remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.entries[name]; ok {
		r.cron.Remove(id)
	}
	delete(r.entries, name)
	delete(r.jobs, name)
	delete(r.metrics, name)
}

// Jobs returns the names of the scheduled jobs, sorted.
func (r *Runner) Jobs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.jobs))
	for name := range r.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Stats returns the run counters of every scheduled job, sorted by name.
func (r *Runner) Stats() []JobStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	stats := make([]JobStats, 0, len(r.metrics))
	for name, m := range r.metrics {
		stats = append(stats, m.Snapshot(name))
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Name < stats[j].Name })
	return stats
}

func (r *Runner) Start() {
	r.cron.Start()
	r.logger.Info("Maintenance runner started", log.Int("jobs", len(r.Jobs())))
}

// Stop cancels running jobs and waits for them to return.
func (r *Runner) Stop() {
	r.cancel()
	<-r.cron.Stop().Done()
	r.logger.Info("Maintenance runner stopped")
}

// RunOnce runs the named job now. Disabled jobs are skipped without error.
func (r *Runner) RunOnce(ctx context.Context, name string) error {
	err := r.run(ctx, name)
	if errors.Is(err, errJobDisabled) {
		return nil
	}
	return err
}

var (
	errJobBusy     = errors.New("job is already running")
	errJobDisabled = errors.New("job is disabled")
)

func (r *Runner) run(ctx context.Context, name string) (err error) {
	r.mu.Lock()
	job, ok := r.jobs[name]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("unknown job %s", name)
	}
	metrics := r.metrics[name]
	if r.running[name] {
		r.mu.Unlock()
		metrics.Rejected.Add(1)
		return errJobBusy
	}
	if !r.control.IsActive(name) {
		r.mu.Unlock()
		metrics.Skipped.Add(1)
		r.logger.Debug("Skipping disabled job", log.Str(log.JobKey, name))
		return errJobDisabled
	}
	r.running[name] = true
	r.mu.Unlock()

	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("job %s panicked: %v", name, rec)
		}
		r.mu.Lock()
		delete(r.running, name)
		r.mu.Unlock()
		metrics.recordRun(start, time.Since(start), err)

		if err != nil {
			r.logger.Error("Maintenance job failed", log.Str(log.JobKey, name), log.Duration("duration", time.Since(start)), log.Err(err))
			return
		}
		r.logger.Debug("Maintenance job completed", log.Str(log.JobKey, name), log.Duration("duration", time.Since(start)))
	}()

	return job.Maintain(ctx)
}

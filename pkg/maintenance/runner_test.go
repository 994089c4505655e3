package maintenance

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rzbill/provision/pkg/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingJob struct {
	name     string
	interval time.Duration
	runs     atomic.Int32
	fn       func(ctx context.Context) error
}

func (j *countingJob) Name() string            { return j.name }
func (j *countingJob) Interval() time.Duration { return j.interval }
func (j *countingJob) Maintain(ctx context.Context) error {
	j.runs.Add(1)
	if j.fn != nil {
		return j.fn(ctx)
	}
	return nil
}

func TestRunOnce(t *testing.T) {
	logger := log.NewTestLogger()
	r := NewRunner(nil, logger)
	job := &countingJob{name: "job", interval: time.Hour}
	require.NoError(t, r.Add(job))

	require.NoError(t, r.RunOnce(context.Background(), "job"))
	assert.Equal(t, int32(1), job.runs.Load())
	assert.True(t, logger.ContainsMessage("Maintenance job completed"))

	assert.Error(t, r.RunOnce(context.Background(), "missing"))
	assert.Error(t, r.Add(job), "duplicate names are rejected")
	assert.Error(t, r.Add(&countingJob{name: "zero"}), "intervals must be positive")
	assert.Equal(t, []string{"job"}, r.Jobs())
}

func TestRunnerSkipsDisabledJobs(t *testing.T) {
	control := NewJobControl("job")
	r := NewRunner(control, log.NewTestLogger())
	job := &countingJob{name: "job", interval: time.Hour}
	require.NoError(t, r.Add(job))

	require.NoError(t, r.RunOnce(context.Background(), "job"))
	assert.Equal(t, int32(0), job.runs.Load())
	assert.Equal(t, []string{"job"}, control.Disabled())

	control.SetActive("job", true)
	require.NoError(t, r.RunOnce(context.Background(), "job"))
	assert.Equal(t, int32(1), job.runs.Load())
	assert.Empty(t, control.Disabled())
}

func TestRunnerRecoversPanics(t *testing.T) {
	logger := log.NewTestLogger()
	r := NewRunner(nil, logger)
	job := &countingJob{name: "job", interval: time.Hour, fn: func(context.Context) error { panic("boom") }}
	require.NoError(t, r.Add(job))

	err := r.RunOnce(context.Background(), "job")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panicked")
	assert.Len(t, logger.EntriesAt(log.ErrorLevel), 1)

	job.fn = func(context.Context) error { return errors.New("failed") }
	assert.EqualError(t, r.RunOnce(context.Background(), "job"), "failed")
}

func TestRunnerRejectsConcurrentRuns(t *testing.T) {
	r := NewRunner(nil, log.NewTestLogger())
	started, release := make(chan struct{}), make(chan struct{})
	job := &countingJob{name: "job", interval: time.Hour, fn: func(context.Context) error {
		close(started)
		<-release
		return nil
	}}
	require.NoError(t, r.Add(job))

	done := make(chan error, 1)
	go func() { done <- r.RunOnce(context.Background(), "job") }()
	<-started

	assert.ErrorIs(t, r.RunOnce(context.Background(), "job"), errJobBusy)
	close(release)
	require.NoError(t, <-done)
}

func TestRunnerSchedulesJobs(t *testing.T) {
	r := NewRunner(nil, log.NewTestLogger())
	job := &countingJob{name: "job", interval: time.Second}
	require.NoError(t, r.Add(job))

	r.Start()
	assert.Eventually(t, func() bool { return job.runs.Load() > 0 }, 3*time.Second, 50*time.Millisecond)
	r.Stop()

	r.Remove("job")
	assert.Empty(t, r.Jobs())
}

func TestRunnerStats(t *testing.T) {
	control := NewJobControl()
	r := NewRunner(control, log.NewTestLogger())
	fail := true
	require.NoError(t, r.Add(&countingJob{name: "b", interval: time.Hour, fn: func(context.Context) error {
		if fail {
			return errors.New("boom")
		}
		return nil
	}}))
	require.NoError(t, r.Add(&countingJob{name: "a", interval: time.Hour}))

	assert.Error(t, r.RunOnce(context.Background(), "b"))
	fail = false
	require.NoError(t, r.RunOnce(context.Background(), "b"))
	control.SetActive("a", false)
	require.NoError(t, r.RunOnce(context.Background(), "a"))

	stats := r.Stats()
	require.Len(t, stats, 2)
	assert.Equal(t, "a", stats[0].Name)
	assert.Equal(t, int64(0), stats[0].Runs)
	assert.Equal(t, int64(1), stats[0].Skipped)
	assert.Nil(t, stats[0].LastRun)

	assert.Equal(t, int64(2), stats[1].Runs)
	assert.Equal(t, int64(1), stats[1].Failures)
	assert.NotNil(t, stats[1].LastRun)

	r.Remove("b")
	assert.Len(t, r.Stats(), 1)
}

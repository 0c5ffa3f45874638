// Package jobs runs named background jobs on a cron schedule or on demand.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/adhocore/gronx"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

var (
	ErrInvalidSchedule = errors.New("invalid cron expression")
	ErrUnknownJob      = errors.New("unknown job")
	ErrJobRunning      = errors.New("job is already running")
	ErrDuplicateJob    = errors.New("job already registered")
)

// Job does one unit of background work and returns its result record.
type Job func(ctx context.Context) (any, error)

type entry struct {
	job      Job
	schedule string
}

// Runner never runs two instances of the same job at once; a scheduled tick
// that lands while the job is still running is skipped.
type Runner struct {
	cron *cron.Cron
	log  logrus.FieldLogger

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	jobs    map[string]*entry
	running map[string]bool
}

func NewRunner(log logrus.FieldLogger) *Runner {
	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{
		cron:    cron.New(),
		log:     log,
		ctx:     ctx,
		cancel:  cancel,
		jobs:    make(map[string]*entry),
		running: make(map[string]bool),
	}
}

// Register makes job available to RunOnDemand without a schedule.
func (r *Runner) Register(name string, job Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jobs[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateJob, name)
	}
	r.jobs[name] = &entry{job: job}
	return nil
}

// RunOnSchedule registers job under name and runs it on every tick of expr.
func (r *Runner) RunOnSchedule(name, expr string, job Job) error {
	if !gronx.New().IsValid(expr) {
		return fmt.Errorf("%w: %q", ErrInvalidSchedule, expr)
	}
	if err := r.Register(name, job); err != nil {
		return err
	}
	if _, err := r.cron.AddFunc(expr, func() {
		if _, err := r.run(r.ctx, name, "schedule"); err != nil && !errors.Is(err, ErrJobRunning) {
			r.log.WithError(err).WithField("job", name).Error("scheduled job failed")
		}
	}); err != nil {
		r.mu.Lock()
		delete(r.jobs, name)
		r.mu.Unlock()
		return fmt.Errorf("%w: %v", ErrInvalidSchedule, err)
	}
	r.mu.Lock()
	r.jobs[name].schedule = expr
	r.mu.Unlock()

	r.log.WithFields(logrus.Fields{"job": name, "cron": expr}).Info("job scheduled")
	return nil
}

// RunOnDemand runs the named job now and returns its result.
func (r *Runner) RunOnDemand(ctx context.Context, name string) (any, error) {
	return r.run(ctx, name, "manual")
}

// NextRun reports when a scheduled job fires next.
func (r *Runner) NextRun(name string, after time.Time) (time.Time, error) {
	r.mu.Lock()
	e, ok := r.jobs[name]
	r.mu.Unlock()
	if !ok {
		return time.Time{}, fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	if e.schedule == "" {
		return time.Time{}, fmt.Errorf("job %s has no schedule", name)
	}
	return gronx.NextTickAfter(e.schedule, after, false)
}

func (r *Runner) Start() {
	r.cron.Start()
}

// Stop halts the scheduler and waits for running scheduled jobs to finish.
func (r *Runner) Stop() {
	done := r.cron.Stop()
	<-done.Done()
	r.cancel()
}

func (r *Runner) run(ctx context.Context, name, trigger string) (any, error) {
	r.mu.Lock()
	e, ok := r.jobs[name]
	if !ok {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	if r.running[name] {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrJobRunning, name)
	}
	r.running[name] = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		delete(r.running, name)
		r.mu.Unlock()
	}()

	log := r.log.WithFields(logrus.Fields{"job": name, "trigger": trigger})
	start := time.Now()
	log.Info("job started")
	result, err := e.job(WithTrigger(ctx, trigger))
	log = log.WithField("duration", time.Since(start).String())
	if err != nil {
		log.WithError(err).Warn("job finished with error")
		return result, err
	}
	log.Info("job finished")
	return result, nil
}

type triggerKey struct{}

// WithTrigger records what started a job run ("schedule" or "manual").
func WithTrigger(ctx context.Context, trigger string) context.Context {
	return context.WithValue(ctx, triggerKey{}, trigger)
}

func Trigger(ctx context.Context) string {
	if t, ok := ctx.Value(triggerKey{}).(string); ok {
		return t
	}
	return "manual"
}

package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRunner() *Runner {
	log, _ := test.NewNullLogger()
	return NewRunner(log)
}

func TestRunOnDemandReturnsResult(t *testing.T) {
	r := newRunner()
	require.NoError(t, r.Register("echo", func(ctx context.Context) (any, error) {
		return Trigger(ctx), nil
	}))

	res, err := r.RunOnDemand(context.Background(), "echo")
	require.NoError(t, err)
	assert.Equal(t, "manual", res)

	_, err = r.RunOnDemand(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrUnknownJob)

	assert.ErrorIs(t, r.Register("echo", nil), ErrDuplicateJob)
}

func TestRunOnScheduleValidatesExpression(t *testing.T) {
	r := newRunner()
	job := func(context.Context) (any, error) { return nil, nil }

	assert.ErrorIs(t, r.RunOnSchedule("bad", "every tuesday", job), ErrInvalidSchedule)
	_, err := r.RunOnDemand(context.Background(), "bad")
	assert.ErrorIs(t, err, ErrUnknownJob, "a rejected schedule registers nothing")

	require.NoError(t, r.RunOnSchedule("nightly", "0 3 * * *", job))
	from := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	next, err := r.NextRun("nightly", from)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 1, 2, 3, 0, 0, 0, time.UTC), next)
}

func TestOverlappingRunsAreRejected(t *testing.T) {
	r := newRunner()
	release := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, r.Register("slow", func(ctx context.Context) (any, error) {
		close(started)
		<-release
		return "done", nil
	}))

	errc := make(chan error, 1)
	go func() {
		_, err := r.RunOnDemand(context.Background(), "slow")
		errc <- err
	}()
	<-started

	_, err := r.RunOnDemand(context.Background(), "slow")
	assert.ErrorIs(t, err, ErrJobRunning)

	close(release)
	require.NoError(t, <-errc)
}

func TestJobErrorIsReturned(t *testing.T) {
	r := newRunner()
	boom := errors.New("boom")
	require.NoError(t, r.Register("fail", func(context.Context) (any, error) { return "partial", boom }))

	res, err := r.RunOnDemand(context.Background(), "fail")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "partial", res)
}

func TestStartStop(t *testing.T) {
	r := newRunner()
	require.NoError(t, r.RunOnSchedule("tick", "* * * * *", func(context.Context) (any, error) { return nil, nil }))
	r.Start()
	r.Stop()
}

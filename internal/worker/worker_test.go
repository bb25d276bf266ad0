package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkingPool_RunsJobsAndSurvivesPanics(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	pool := NewWorkingPool("test", 2, 4)

	var wg sync.WaitGroup
	wg.Add(1)
	go pool.Start(ctx, &wg)

	var ran atomic.Int32
	done := make(chan struct{}, 3)
	jobs := []NamedJob{
		{Name: "ok", Run: func(context.Context) error { ran.Add(1); done <- struct{}{}; return nil }},
		{Name: "boom", Run: func(context.Context) error { done <- struct{}{}; panic("boom") }},
		{Name: "err", Run: func(context.Context) error { ran.Add(1); done <- struct{}{}; return errors.New("failed") }},
	}
	for _, j := range jobs {
		require.NoError(t, pool.SubmitJob(ctx, j))
	}
	for range jobs {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("job did not run")
		}
	}

	cancel()
	wg.Wait()
	assert.Equal(t, int32(2), ran.Load())
	assert.ErrorIs(t, pool.SubmitJob(context.Background(), jobs[0]), ErrPoolStopped)
}

func TestJobScheduler_SubmitsOnInterval(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool := NewWorkingPool("sched", 1, 4)
	var wg sync.WaitGroup
	wg.Add(1)
	go pool.Start(ctx, &wg)

	var runs atomic.Int32
	s := NewJobScheduler("tick", 20*time.Millisecond, pool)
	s.FirstRun = time.Millisecond
	s.AddJob(NamedJob{Name: "count", Run: func(context.Context) error { runs.Add(1); return nil }})
	go s.Run(ctx)

	assert.Eventually(t, func() bool { return runs.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	wg.Wait()
}

func TestUntilNextMidnight(t *testing.T) {
	now := time.Date(2026, 10, 14, 22, 30, 0, 0, time.UTC)
	assert.Equal(t, 90*time.Minute, UntilNextMidnight(now))

	endOfMonth := time.Date(2026, 10, 31, 23, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Hour, UntilNextMidnight(endOfMonth))

	hanoi := time.FixedZone("ICT", 7*60*60)
	localMorning := time.Date(2026, 10, 15, 5, 0, 0, 0, hanoi)
	assert.Equal(t, 2*time.Hour, UntilNextMidnight(localMorning), "22:00 UTC is two hours from UTC midnight")
}

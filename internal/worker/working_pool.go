package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

type WorkingPool struct {
	Name       string
	NumWorkers int
	jobChan    chan NamedJob
	done       chan struct{}
}

func NewWorkingPool(name string, numWorkers int, queueSize int) *WorkingPool {
	if numWorkers < 1 {
		numWorkers = 1
	}
	return &WorkingPool{
		Name:       name,
		NumWorkers: numWorkers,
		jobChan:    make(chan NamedJob, queueSize),
		done:       make(chan struct{}),
	}
}

// SubmitJob queues job, giving up when ctx ends or the pool has stopped.
func (p *WorkingPool) SubmitJob(ctx context.Context, job NamedJob) error {
	select {
	case <-p.done:
		return ErrPoolStopped
	default:
	}

	select {
	case p.jobChan <- job:
		return nil
	case <-p.done:
		return ErrPoolStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Start runs the workers until ctx is cancelled, then waits for the jobs in
// flight to return.
func (p *WorkingPool) Start(ctx context.Context, managerWg *sync.WaitGroup) {
	defer managerWg.Done()

	var workerWg sync.WaitGroup
	for i := range p.NumWorkers {
		workerWg.Add(1)
		go p.worker(ctx, &workerWg, i+1)
	}

	<-ctx.Done()
	slog.Info("working pool shutdown signaled", "pool", p.Name)
	close(p.done)

	workerWg.Wait()
	slog.Info("working pool stopped", "pool", p.Name)
}

func (p *WorkingPool) worker(ctx context.Context, wg *sync.WaitGroup, id int) {
	defer wg.Done()

	for {
		select {
		case job := <-p.jobChan:
			_ = p.safeExecution(ctx, job, id)
		case <-ctx.Done():
			return
		}
	}
}

func (p *WorkingPool) safeExecution(ctx context.Context, job NamedJob, workerID int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic recovered in job", "pool", p.Name, "worker", workerID, "job", job.Name, "panic", r)
			err = fmt.Errorf("job %s panicked: %v", job.Name, r)
		}
	}()

	slog.Debug("job picked up", "pool", p.Name, "worker", workerID, "job", job.Name)
	if err = job.Run(ctx); err != nil {
		slog.Error("job failed", "pool", p.Name, "worker", workerID, "job", job.Name, "error", err)
	}
	return err
}

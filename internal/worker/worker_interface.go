package worker

import (
	"context"
	"errors"
)

type Job func(ctx context.Context) error

// NamedJob is a Job with a name for logs.
type NamedJob struct {
	Name string
	Run  Job
}

var ErrPoolStopped = errors.New("working pool stopped")

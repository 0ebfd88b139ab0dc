package executor

import (
	"context"
	"errors"
	"fmt"

	"github.com/caasmo/farmgate/queue"
)

// ErrNoHandler is returned for a job type nobody registered. The job is
// then failed like any other.
var ErrNoHandler = errors.New("no handler registered for job type")

// JobExecutor runs a claimed job.
type JobExecutor interface {
	Execute(ctx context.Context, job queue.Job) error
}

// JobHandler processes one type of job, e.g. the verification email.
type JobHandler interface {
	Handle(ctx context.Context, job queue.Job) error
}

// HandlerFunc adapts a function to JobHandler.
type HandlerFunc func(ctx context.Context, job queue.Job) error

func (f HandlerFunc) Handle(ctx context.Context, job queue.Job) error {
	return f(ctx, job)
}

// DefaultExecutor dispatches jobs to the handler of their type. The
// registry is read only once the scheduler runs.
type DefaultExecutor struct {
	registry map[string]JobHandler
}

func NewExecutor(handlers map[string]JobHandler) *DefaultExecutor {
	registry := make(map[string]JobHandler, len(handlers))
	for jobType, h := range handlers {
		registry[jobType] = h
	}
	return &DefaultExecutor{registry: registry}
}

// Register adds or replaces the handler of a job type. It must be called
// before the scheduler starts.
func (e *DefaultExecutor) Register(jobType string, handler JobHandler) {
	e.registry[jobType] = handler
}

func (e *DefaultExecutor) Execute(ctx context.Context, job queue.Job) error {
	handler, ok := e.registry[job.JobType]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoHandler, job.JobType)
	}
	return handler.Handle(ctx, job)
}

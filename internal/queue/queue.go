package queue

import (
	"context"
	"errors"
	"runtime"
)

// ErrQueueShutdown is returned by Process once the queue context is done
var ErrQueueShutdown = errors.New("queue has been shutdown")

// HandlerFunc processes one job
type HandlerFunc func(ctx context.Context, data interface{}) (interface{}, error)

// Queue is a worker queue with a fixed amount of workers
type Queue struct {
	workers int
	queue   chan job
	handler HandlerFunc
	ctx     context.Context
}

type job struct {
	data    interface{}
	result  chan jobResult
	context context.Context
}

type jobResult struct {
	result interface{}
	err    error
}

// New creates a new Queue with the specified amount of workers
func New(ctx context.Context, workers int, handler HandlerFunc) *Queue {
	return &Queue{
		workers: workers,
		queue:   make(chan job),
		handler: handler,
		ctx:     ctx,
	}
}

// Run starts the workers and blocks until ctx is done
func (q *Queue) Run() {
	for i := 0; i < q.workers; i++ {
		go q.worker()
	}

	<-q.ctx.Done()
}

func (q *Queue) worker() {
	// Each worker keeps its own OS thread for the engine calls it makes.
	// The thread is never unlocked, so it exits with the goroutine.
	runtime.LockOSThread()

	for {
		select {
		case j := <-q.queue:
			// end early if the job was cancelled while waiting
			if err := j.context.Err(); err != nil {
				j.result <- jobResult{err: err}
				continue
			}

			result, err := q.handler(j.context, j.data)
			j.result <- jobResult{result: result, err: err}

		case <-q.ctx.Done():
			return
		}
	}
}

// Process adds a job to the queue and waits for its result. It returns
// early with the context error if ctx is done first; the job itself then
// still runs to completion on its worker.
func (q *Queue) Process(ctx context.Context, data interface{}) (interface{}, error) {
	if q.ctx.Err() != nil {
		return nil, ErrQueueShutdown
	}

	// buffered so a worker never blocks on an abandoned job
	resultChan := make(chan jobResult, 1)

	select {
	case q.queue <- job{data: data, result: resultChan, context: ctx}:
	case <-q.ctx.Done():
		return nil, ErrQueueShutdown
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case result := <-resultChan:
		if result.err != nil {
			return nil, result.err
		}
		return result.result, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

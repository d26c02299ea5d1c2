package worker

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned by Submit after Close.
var ErrClosed = errors.New("worker closed")

type job struct {
	ctx context.Context
	req Request
	out chan Response
}

// Worker runs requests one at a time on a background goroutine, keeping
// long jobs off the caller's goroutine.
type Worker struct {
	handler *Handler
	jobs    chan job

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// NewWorker starts a worker with room for queue pending requests.
func NewWorker(h *Handler, queue int) *Worker {
	if queue < 0 {
		queue = 0
	}
	w := &Worker{
		handler: h,
		jobs:    make(chan job, queue),
		done:    make(chan struct{}),
	}
	go w.loop()
	return w
}

func (w *Worker) loop() {
	defer close(w.done)
	for j := range w.jobs {
		if err := j.ctx.Err(); err != nil {
			j.out <- Response{ID: j.req.ID, Error: err.Error()}
			continue
		}
		j.out <- w.handler.Handle(j.ctx, j.req)
	}
}

// Submit queues req. The returned channel receives exactly one response.
// Submit blocks while the queue is full, until ctx is done.
func (w *Worker) Submit(ctx context.Context, req Request) (<-chan Response, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return nil, ErrClosed
	}

	out := make(chan Response, 1)
	select {
	case w.jobs <- job{ctx: ctx, req: req, out: out}:
		return out, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Do submits req and waits for its response.
func (w *Worker) Do(ctx context.Context, req Request) (Response, error) {
	out, err := w.Submit(ctx, req)
	if err != nil {
		return Response{}, err
	}
	select {
	case resp := <-out:
		return resp, nil
	case <-ctx.Done():
		return Response{}, ctx.Err()
	}
}

// Close stops accepting requests and waits for queued ones to finish.
func (w *Worker) Close() {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.jobs)
	}
	w.mu.Unlock()
	<-w.done
}

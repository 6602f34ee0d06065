package core

import (
	"context"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

const defaultMaxInFlight = 32

// Runtime is shared by all endpoints of a process. It owns background tasks
// and bounds the number of concurrent RPC fetches across chains.
type Runtime struct {
	ctx    context.Context
	cancel context.CancelFunc
	group  errgroup.Group
	sem    *semaphore.Weighted
}

// NewRuntime returns a runtime whose tasks are cancelled when parent is done.
// maxInFlight <= 0 selects the default limit.
func NewRuntime(parent context.Context, maxInFlight int64) *Runtime {
	if maxInFlight <= 0 {
		maxInFlight = defaultMaxInFlight
	}
	ctx, cancel := context.WithCancel(parent)
	return &Runtime{
		ctx:    ctx,
		cancel: cancel,
		sem:    semaphore.NewWeighted(maxInFlight),
	}
}

// Context is the root context of background tasks.
func (rt *Runtime) Context() context.Context {
	return rt.ctx
}

// Spawn runs fn as a background task. fn must return when its context is done.
func (rt *Runtime) Spawn(fn func(ctx context.Context) error) {
	rt.group.Go(func() error {
		return fn(rt.ctx)
	})
}

// Do runs fn once an in-flight slot is free.
func (rt *Runtime) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := rt.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer rt.sem.Release(1)
	return fn(ctx)
}

// Close cancels all background tasks and waits for them.
func (rt *Runtime) Close() error {
	rt.cancel()
	return rt.group.Wait()
}

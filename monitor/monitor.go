package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"

	errorsmod "cosmossdk.io/errors"

	"github.com/hyperledger-labs/yui-wasm-relayer/core"
	coreerrors "github.com/hyperledger-labs/yui-wasm-relayer/core/errors"
	"github.com/hyperledger-labs/yui-wasm-relayer/internal/telemetry"
	"github.com/hyperledger-labs/yui-wasm-relayer/log"
)

// Subscription is a source of event batches for one chain.
type Subscription interface {
	// Next blocks until the next batch is available or ctx is done.
	Next(ctx context.Context) (*core.EventBatch, error)
	// Close releases the underlying transport. It is called exactly once.
	Close() error
}

// ErrSubscriptionClosed is returned by Next once the transport is gone for good.
// The monitor stops after publishing it regardless of the error policy.
var ErrSubscriptionClosed = coreerrors.ErrSubscriptionClosed

type ErrorPolicy int

const (
	// ContinueOnError publishes transport errors and keeps listening
	ContinueOnError ErrorPolicy = iota
	// StopOnError publishes the first transport error and stops
	StopOnError
)

type Command int

const (
	CmdShutdown Command = iota
)

type options struct {
	policy     ErrorPolicy
	bufferSize int
}

type Option func(*options)

func WithErrorPolicy(policy ErrorPolicy) Option {
	return func(o *options) {
		o.policy = policy
	}
}

// WithBufferSize sets the capacity of the output channel.
func WithBufferSize(n int) Option {
	return func(o *options) {
		if n >= 0 {
			o.bufferSize = n
		}
	}
}

// Handle controls a running monitor task.
type Handle struct {
	chainID string
	cmds    chan Command
	cancel  context.CancelFunc
	done    chan struct{}
}

var _ core.EventMonitor = (*Handle)(nil)

type next struct {
	batch *core.EventBatch
	err   error
}

type task struct {
	chainID string
	sub     Subscription
	opts    options
	cmds    <-chan Command
	out     chan<- *core.EventBatchOrError
	logger  *log.RelayLogger
}

// Start runs a monitor task on rt. The returned channel is closed once the task
// has stopped and the subscription has been closed.
func Start(rt *core.Runtime, chainID string, sub Subscription, opts ...Option) (*Handle, <-chan *core.EventBatchOrError) {
	o := options{policy: ContinueOnError, bufferSize: 16}
	for _, opt := range opts {
		opt(&o)
	}

	ctx, cancel := context.WithCancel(rt.Context())
	out := make(chan *core.EventBatchOrError, o.bufferSize)
	h := &Handle{
		chainID: chainID,
		cmds:    make(chan Command, 1),
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	t := &task{
		chainID: chainID,
		sub:     sub,
		opts:    o,
		cmds:    h.cmds,
		out:     out,
		logger:  log.GetLogger().WithChainID(chainID).WithModule("monitor"),
	}

	rt.Spawn(func(context.Context) error {
		defer close(h.done)
		defer close(out)
		t.run(ctx, cancel)
		return nil
	})
	return h, out
}

// Shutdown asks the task to stop and waits for it. If ctx expires first the
// task context is cancelled and Shutdown still waits for the task to exit.
func (h *Handle) Shutdown(ctx context.Context) error {
	select {
	case h.cmds <- CmdShutdown:
	default:
		// a shutdown is already pending
	}
	select {
	case <-h.done:
		return nil
	case <-ctx.Done():
		h.cancel()
		<-h.done
		return errorsmod.Wrapf(coreerrors.ErrMonitor, "monitor of %s aborted: %v", h.chainID, ctx.Err())
	}
}

func (h *Handle) Done() <-chan struct{} {
	return h.done
}

func (t *task) run(ctx context.Context, cancel context.CancelFunc) {
	var wg sync.WaitGroup
	defer func() {
		cancel()
		wg.Wait()
		if err := t.sub.Close(); err != nil {
			t.logger.Error("failed to close subscription", err)
		}
	}()

	nexts := make(chan next)
	wg.Add(1)
	go func() {
		defer wg.Done()
		t.pump(ctx, nexts)
	}()

	for {
		select {
		case <-t.cmds:
			t.logger.Debug("shutdown requested")
			return
		default:
		}

		select {
		case <-t.cmds:
			t.logger.Debug("shutdown requested")
			return
		case <-ctx.Done():
			return
		case n := <-nexts:
			if n.err != nil {
				err := fmt.Errorf("chain %s: %w: %w", t.chainID, coreerrors.ErrMonitor, n.err)
				t.logger.Error("subscription failed", err)
				if !t.publish(ctx, &core.EventBatchOrError{Error: err}) {
					return
				}
				if t.opts.policy == StopOnError || errors.Is(n.err, ErrSubscriptionClosed) {
					return
				}
				continue
			}
			if !t.publish(ctx, &core.EventBatchOrError{Batch: n.batch}) {
				return
			}
			telemetry.RecordMonitorBatch(ctx, t.chainID, n.batch.Height.RevisionHeight)
		}
	}
}

// pump forwards results of Next until ctx is done.
func (t *task) pump(ctx context.Context, nexts chan<- next) {
	for {
		batch, err := t.sub.Next(ctx)
		if ctx.Err() != nil {
			return
		}
		if err == nil && batch == nil {
			continue
		}
		select {
		case nexts <- next{batch: batch, err: err}:
		case <-ctx.Done():
			return
		}
		if errors.Is(err, ErrSubscriptionClosed) {
			return
		}
	}
}

// publish returns false when the task must stop instead.
func (t *task) publish(ctx context.Context, item *core.EventBatchOrError) bool {
	select {
	case <-t.cmds:
		return false
	default:
	}
	select {
	case t.out <- item:
		return true
	case <-t.cmds:
		return false
	case <-ctx.Done():
		return false
	}
}

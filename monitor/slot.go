package monitor

import (
	"context"
	"sync/atomic"
)

// Slot holds the running monitor of an endpoint.
type Slot struct {
	current atomic.Pointer[Handle]
}

// Replace installs h and shuts down the monitor it replaces, if any.
func (s *Slot) Replace(ctx context.Context, h *Handle) error {
	if old := s.current.Swap(h); old != nil {
		return old.Shutdown(ctx)
	}
	return nil
}

// Shutdown stops the current monitor, if any, and empties the slot.
func (s *Slot) Shutdown(ctx context.Context) error {
	if h := s.current.Swap(nil); h != nil {
		return h.Shutdown(ctx)
	}
	return nil
}

func (s *Slot) Current() *Handle {
	return s.current.Load()
}

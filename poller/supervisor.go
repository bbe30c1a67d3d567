// Supervisor keeps a registry of running pollers keyed by order id, so a
// confirmation can cancel exactly its order's poller and shutdown can cancel
// them all and wait. Poller failures are observed and logged here instead of
// vanishing with a detached goroutine.

package poller

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/ADX777/Timelock-newbot/store"
)

type Supervisor struct {
	deps   Deps
	logger *zap.Logger

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
	wg      sync.WaitGroup
}

func NewSupervisor(deps Deps) *Supervisor {
	logger := deps.Logger.Named("supervisor")
	if deps.Flagged == nil {
		deps.Flagged = &sync.Map{}
	}
	return &Supervisor{
		deps:    deps,
		logger:  logger,
		cancels: make(map[string]context.CancelFunc),
	}
}

// Watch starts a poller for a pending order. Starting a second poller for
// the same order is a no-op.
func (s *Supervisor) Watch(ctx context.Context, o store.Order) {
	s.mu.Lock()
	if _, running := s.cancels[o.ID]; running {
		s.mu.Unlock()
		return
	}
	pollCtx, cancel := context.WithCancel(ctx)
	s.cancels[o.ID] = cancel
	s.wg.Add(1)
	s.mu.Unlock()

	p := New(o, s.deps)
	go func() {
		defer s.wg.Done()
		defer s.remove(o.ID)

		err := p.Run(pollCtx)
		switch {
		case err == nil:
			s.logger.Info("poller confirmed payment", zap.String("order_id", o.ID))
		case errors.Is(err, context.Canceled):
			s.logger.Debug("poller canceled", zap.String("order_id", o.ID))
		default:
			s.logger.Error("poller failed", zap.String("order_id", o.ID), zap.Error(err))
		}
	}()
}

// Stop cancels the poller of one order, if it is still running.
func (s *Supervisor) Stop(orderID string) {
	s.mu.Lock()
	cancel, ok := s.cancels[orderID]
	s.mu.Unlock()
	if ok {
		cancel()
	}
}

// Shutdown cancels every poller and waits for them to exit.
func (s *Supervisor) Shutdown() {
	s.mu.Lock()
	for _, cancel := range s.cancels {
		cancel()
	}
	s.mu.Unlock()
	s.wg.Wait()
}

// Running reports the number of live pollers.
func (s *Supervisor) Running() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cancels)
}

func (s *Supervisor) remove(orderID string) {
	s.mu.Lock()
	if cancel, ok := s.cancels[orderID]; ok {
		cancel()
		delete(s.cancels, orderID)
	}
	s.mu.Unlock()
}

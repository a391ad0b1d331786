package streams

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

type State int32

const (
	NotStarted State = iota
	Starting
	Started
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not_started"
	case Starting:
		return "starting"
	case Started:
		return "started"
	}
	return "unknown"
}

// Status is what EnsureStarted reports to its caller.
type Status string

const (
	StatusStarted        Status = "started"
	StatusAlreadyStarted Status = "already_started"
)

// Worker is a long running stream loop.
type Worker struct {
	Name string
	Run  func(ctx context.Context) error
}

// Supervisor starts the stream workers at most once per process. Workers run on the
// supervisor's base context and stop when it is cancelled.
type Supervisor struct {
	ctx     context.Context
	workers []Worker
	state   atomic.Int32
	wg      sync.WaitGroup
	logger  *zap.Logger
}

func New(ctx context.Context, workers ...Worker) *Supervisor {
	return &Supervisor{
		ctx:     ctx,
		workers: workers,
		logger:  zap.L(),
	}
}

// EnsureStarted launches the workers on the first call. Every concurrent or later call
// returns StatusAlreadyStarted without side effects.
func (s *Supervisor) EnsureStarted() Status {
	if !s.state.CompareAndSwap(int32(NotStarted), int32(Starting)) {
		s.logger.Info("streams already running")
		return StatusAlreadyStarted
	}

	for _, w := range s.workers {
		s.wg.Add(1)
		go s.run(w)
	}
	s.state.Store(int32(Started))
	s.logger.Info("streams started", zap.Int("workers", len(s.workers)))
	return StatusStarted
}

func (s *Supervisor) run(w Worker) {
	defer s.wg.Done()
	if err := w.Run(s.ctx); err != nil {
		s.logger.Error("stream worker exited", zap.String("worker", w.Name), zap.Error(err))
		return
	}
	s.logger.Info("stream worker stopped", zap.String("worker", w.Name))
}

func (s *Supervisor) State() State {
	return State(s.state.Load())
}

// Wait blocks until every started worker has returned.
func (s *Supervisor) Wait() {
	s.wg.Wait()
}

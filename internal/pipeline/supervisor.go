package pipeline

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"
)

// Handle tracks one background pipeline execution.
type Handle struct {
	runID uuid.UUID
	done  chan struct{}
	err   error
}

// Done returns a channel closed when the pipeline reaches a terminal
// state.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Err returns the terminal error, valid only after Done is closed.
func (h *Handle) Err() error {
	return h.err
}

// Wait blocks until the pipeline terminates and returns its error.
func (h *Handle) Wait() error {
	<-h.done
	return h.err
}

// Supervisor runs pipelines detached from the requests that created them
// and records their terminal outcomes. At most one pipeline runs per run
// identity.
type Supervisor struct {
	mu       sync.Mutex
	inflight map[uuid.UUID]*Handle
}

// NewSupervisor creates an empty supervisor.
func NewSupervisor() *Supervisor {
	return &Supervisor{inflight: make(map[uuid.UUID]*Handle)}
}

// Submit starts task in the background and returns a handle to it. The
// task receives a background context: once submitted, a pipeline runs to
// a terminal state regardless of the submitting request's lifetime.
func (s *Supervisor) Submit(runID uuid.UUID, task func(ctx context.Context) error) (*Handle, error) {
	s.mu.Lock()
	if _, running := s.inflight[runID]; running {
		s.mu.Unlock()
		return nil, fmt.Errorf("run %s is already being processed", runID)
	}
	h := &Handle{runID: runID, done: make(chan struct{})}
	s.inflight[runID] = h
	s.mu.Unlock()

	go func() {
		defer func() {
			if r := recover(); r != nil {
				h.err = fmt.Errorf("pipeline panic: %v", r)
				log.Printf("[Supervisor] Run %s panicked: %v", runID, r)
			}

			s.mu.Lock()
			delete(s.inflight, runID)
			s.mu.Unlock()
			close(h.done)
		}()

		h.err = task(context.Background())
		if h.err != nil {
			log.Printf("[Supervisor] Run %s finished with error: %v", runID, h.err)
		}
	}()

	return h, nil
}

// Running reports whether a pipeline is currently in flight for the run.
func (s *Supervisor) Running(runID uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.inflight[runID]
	return ok
}

// InFlight returns the number of pipelines currently executing.
func (s *Supervisor) InFlight() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inflight)
}

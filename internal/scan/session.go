package scan

import (
	"sync"

	"github.com/mplacona/ThreadScout/internal/model"
)

// State is a session's lifecycle phase.
type State string

const (
	StatePending   State = "pending"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateCancelled State = "cancelled"
	StateFailed    State = "failed"
)

// eventBuffer bounds how far the pipeline can run ahead of the stream
// consumer before emits block.
const eventBuffer = 64

// Session is one running scan. The pipeline goroutine is the sole writer of
// events and state; Cancel may be called from any goroutine and only trips
// a flag that the pipeline polls between candidates.
type Session struct {
	id     string
	events chan model.ScanEvent

	mu    sync.Mutex
	state State

	cancelOnce sync.Once
	cancelled  chan struct{}
}

func newSession(id string) *Session {
	return &Session{
		id:        id,
		events:    make(chan model.ScanEvent, eventBuffer),
		state:     StatePending,
		cancelled: make(chan struct{}),
	}
}

func (s *Session) ID() string { return s.id }

// Events is the ordered outward stream. It is closed after the terminal
// event; consumers should read until close.
func (s *Session) Events() <-chan model.ScanEvent { return s.events }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Cancel requests cooperative cancellation. Safe to call repeatedly; an
// in-flight upstream call is allowed to finish before the flag is honored.
func (s *Session) Cancel() {
	s.cancelOnce.Do(func() { close(s.cancelled) })
}

func (s *Session) isCancelled() bool {
	select {
	case <-s.cancelled:
		return true
	default:
		return false
	}
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

func (s *Session) emit(event model.ScanEvent) {
	s.events <- event
}

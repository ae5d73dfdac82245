// Package scan runs scan sessions: discover candidate threads, analyze them
// sequentially through the scoring service, validate the drafts, stream
// progress events, and persist one session record at termination.
package scan

import (
	"errors"
	"fmt"
	"sync"

	"github.com/mplacona/ThreadScout/internal/model"
)

var ErrDuplicateSession = errors.New("session is already running")

// Handle is the per-session surface the registry holds: the event stream,
// the lifecycle state, and the cooperative cancel trigger.
type Handle interface {
	ID() string
	State() State
	Events() <-chan model.ScanEvent
	Cancel()
}

// Registry tracks running sessions by id. Sessions register on start and
// deregister on terminal transition; it is the only state shared across
// concurrent scans.
type Registry interface {
	Register(id string, h Handle) error
	Find(id string) (Handle, bool)
	// Cancel requests cancellation of a running session. Returns false when
	// no session with that id is running; callers treat that as a no-op.
	Cancel(id string) bool
	Deregister(id string)
}

type memoryRegistry struct {
	mu       sync.Mutex
	sessions map[string]Handle
}

func NewRegistry() Registry {
	return &memoryRegistry{sessions: make(map[string]Handle)}
}

func (r *memoryRegistry) Register(id string, h Handle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.sessions[id]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateSession, id)
	}
	r.sessions[id] = h
	return nil
}

func (r *memoryRegistry) Find(id string) (Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.sessions[id]
	return h, ok
}

func (r *memoryRegistry) Cancel(id string) bool {
	r.mu.Lock()
	h, ok := r.sessions[id]
	r.mu.Unlock()
	if !ok {
		return false
	}
	h.Cancel()
	return true
}

func (r *memoryRegistry) Deregister(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

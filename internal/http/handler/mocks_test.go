package handler_test

import (
	"context"
	"sync"

	"github.com/mplacona/ThreadScout/internal/model"
	"github.com/mplacona/ThreadScout/internal/scan"
)

type mockStarter struct {
	startFn func(ctx context.Context, req model.ScanRequest) (scan.Handle, error)
}

func (m *mockStarter) Start(ctx context.Context, req model.ScanRequest) (scan.Handle, error) {
	if m.startFn != nil {
		return m.startFn(ctx, req)
	}
	return nil, nil
}

// fakeSession implements scan.Handle with a caller-controlled event channel.
type fakeSession struct {
	id     string
	state  scan.State
	events chan model.ScanEvent

	mu        sync.Mutex
	cancelled bool
}

func newFakeSession(id string, state scan.State) *fakeSession {
	return &fakeSession{id: id, state: state, events: make(chan model.ScanEvent, 16)}
}

func (f *fakeSession) ID() string                     { return f.id }
func (f *fakeSession) State() scan.State              { return f.state }
func (f *fakeSession) Events() <-chan model.ScanEvent { return f.events }

func (f *fakeSession) Cancel() {
	f.mu.Lock()
	f.cancelled = true
	f.mu.Unlock()
}

func (f *fakeSession) wasCancelled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cancelled
}

type mockSessionStore struct {
	writeFn func(ctx context.Context, key string, record *model.SessionRecord) error
	readFn  func(ctx context.Context, key string) (*model.SessionRecord, error)
	listFn  func(ctx context.Context, prefix string) ([]string, error)
}

func (m *mockSessionStore) Write(ctx context.Context, key string, record *model.SessionRecord) error {
	if m.writeFn != nil {
		return m.writeFn(ctx, key, record)
	}
	return nil
}

func (m *mockSessionStore) Read(ctx context.Context, key string) (*model.SessionRecord, error) {
	if m.readFn != nil {
		return m.readFn(ctx, key)
	}
	return nil, nil
}

func (m *mockSessionStore) List(ctx context.Context, prefix string) ([]string, error) {
	if m.listFn != nil {
		return m.listFn(ctx, prefix)
	}
	return nil, nil
}

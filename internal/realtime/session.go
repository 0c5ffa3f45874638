// Package realtime keeps a client's live thread subscription and renders the
// snapshots it delivers.
package realtime

import (
	"context"
	"sync"

	"github.com/vedran77/hive/internal/addressing"
	"github.com/vedran77/hive/internal/store"
)

// StartFunc opens a subscription on thread.
type StartFunc func(ctx context.Context, thread addressing.Thread) (store.Unsubscribe, error)

// Session holds at most one active thread subscription. Switch stops the old
// subscription, waiting for its callback to return, before starting the new
// one, so a client never receives snapshots of two threads interleaved.
type Session struct {
	ctx   context.Context
	start StartFunc

	mu      sync.Mutex
	current *addressing.Thread
	stop    store.Unsubscribe
	closed  bool
}

// NewSession binds subscriptions to ctx; they end when ctx does.
func NewSession(ctx context.Context, start StartFunc) *Session {
	return &Session{ctx: ctx, start: start}
}

func (s *Session) Switch(thread addressing.Thread) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return context.Canceled
	}

	s.release()
	stop, err := s.start(s.ctx, thread)
	if err != nil {
		return err
	}
	s.current = &thread
	s.stop = stop
	return nil
}

// Leave stops the active subscription, if any.
func (s *Session) Leave() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.release()
}

// Close stops the active subscription and refuses further switches.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.release()
	s.closed = true
}

// Current returns the open thread.
func (s *Session) Current() (addressing.Thread, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return addressing.Thread{}, false
	}
	return *s.current, true
}

// release must be called with mu held.
func (s *Session) release() {
	if s.stop != nil {
		s.stop()
	}
	s.stop = nil
	s.current = nil
}

// Package store keeps server-side session records.
package store

import (
	"context"
	"sync"
	"time"

	session "smartgate/internal/session"
	"smartgate/pkg/platform/sentinel"
	"smartgate/pkg/requestcontext"
)

// InMemorySessionStore drops expired sessions lazily on lookup.
type InMemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*session.Session
}

func NewInMemory() *InMemorySessionStore {
	return &InMemorySessionStore{sessions: make(map[string]*session.Session)}
}

func (s *InMemorySessionStore) Save(_ context.Context, sess *session.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *sess
	s.sessions[sess.ID] = &c
	return nil
}

func (s *InMemorySessionStore) Find(ctx context.Context, sessionID string) (*session.Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if sess.Expired(requestcontext.Now(ctx)) {
		_ = s.Delete(ctx, sessionID)
		return nil, sentinel.ErrNotFound
	}
	c := *sess
	return &c, nil
}

func (s *InMemorySessionStore) Touch(_ context.Context, sessionID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return sentinel.ErrNotFound
	}
	sess.LastSeenAt = at
	return nil
}

func (s *InMemorySessionStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

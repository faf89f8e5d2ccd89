package broker

import (
	"context"
	"fmt"
	"sync"
)

type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]SessionRecord
	closed   bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]SessionRecord)}
}

func (s *MemoryStore) Create(_ context.Context, rec SessionRecord) error {
	if err := validateSessionID(rec.SessionID); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("memory store is closed")
	}
	if _, ok := s.sessions[rec.SessionID]; ok {
		return fmt.Errorf("%w: %s", ErrSessionExists, rec.SessionID)
	}
	s.sessions[rec.SessionID] = copyRecord(rec)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, sessionID string) (SessionRecord, error) {
	if err := validateSessionID(sessionID); err != nil {
		return SessionRecord{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return SessionRecord{}, fmt.Errorf("memory store is closed")
	}
	rec, ok := s.sessions[sessionID]
	if !ok {
		return SessionRecord{}, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	return copyRecord(rec), nil
}

func (s *MemoryStore) Save(_ context.Context, rec SessionRecord) error {
	if err := validateSessionID(rec.SessionID); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("memory store is closed")
	}
	if _, ok := s.sessions[rec.SessionID]; !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, rec.SessionID)
	}
	s.sessions[rec.SessionID] = copyRecord(rec)
	return nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

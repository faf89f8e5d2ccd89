package history

import (
	"context"
	"fmt"
	"sync"
)

type MemoryStore struct {
	mu     sync.Mutex
	rows   map[int64][]Row
	closed bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: make(map[int64][]Row)}
}

func (s *MemoryStore) Append(_ context.Context, row Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("memory history store is closed")
	}
	s.rows[row.ProductID] = append(s.rows[row.ProductID], row)
	return nil
}

func (s *MemoryStore) QueryByProduct(_ context.Context, productID int64) ([]Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, fmt.Errorf("memory history store is closed")
	}
	rows := s.rows[productID]
	out := make([]Row, len(rows))
	copy(out, rows)
	return out, nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

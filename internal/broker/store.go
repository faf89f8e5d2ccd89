// Package broker owns negotiation sessions: it persists engine state between
// turns, serializes writers per session, and emits lifecycle events.
package broker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"haggle.local/haggle-gateway/internal/negotiate"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExists   = errors.New("session already exists")
)

// SessionRecord is one persisted negotiation session. Snapshot carries the
// full engine state; ProductID and Status are denormalized for queries.
type SessionRecord struct {
	SessionID string             `json:"session_id"`
	ProductID int64              `json:"product_id"`
	Status    negotiate.Status   `json:"status"`
	Snapshot  negotiate.Snapshot `json:"snapshot"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

type Store interface {
	Create(context.Context, SessionRecord) error
	Get(context.Context, string) (SessionRecord, error)
	Save(context.Context, SessionRecord) error
	Close() error
}

func validateSessionID(sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return fmt.Errorf("session_id is required")
	}
	return nil
}

func copyRecord(rec SessionRecord) SessionRecord {
	out := rec
	out.Snapshot.Turns = make([]negotiate.Turn, len(rec.Snapshot.Turns))
	copy(out.Snapshot.Turns, rec.Snapshot.Turns)
	if rec.Snapshot.FinalPrice != nil {
		v := *rec.Snapshot.FinalPrice
		out.Snapshot.FinalPrice = &v
	}
	return out
}

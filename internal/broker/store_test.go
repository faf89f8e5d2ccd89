package broker

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"haggle.local/haggle-gateway/internal/negotiate"
)

func testRecord(sessionID string) SessionRecord {
	now := time.Now().UTC()
	offer := 950.0
	return SessionRecord{
		SessionID: sessionID,
		ProductID: 42,
		Status:    negotiate.StatusOngoing,
		Snapshot: negotiate.Snapshot{
			Bounds: negotiate.ProductBounds{
				ProductID: 42,
				Name:      "Tap repair",
				ListPrice: 1000,
				MinPrice:  700,
				Currency:  "INR",
			},
			BoundsSet:    true,
			Status:       negotiate.StatusOngoing,
			Floor:        700,
			CurrentOffer: 950,
			Rounds:       1,
			Turns: []negotiate.Turn{
				{UserMessage: "800", BotMessage: "How about 950.00 INR?", BotOffer: &offer},
			},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestMemoryStoreCreateGetSave(t *testing.T) {
	store := NewMemoryStore()
	defer func() { _ = store.Close() }()

	rec := testRecord("session_1")
	if err := store.Create(context.Background(), rec); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.Create(context.Background(), rec); !errors.Is(err, ErrSessionExists) {
		t.Fatalf("expected ErrSessionExists, got %v", err)
	}

	loaded, err := store.Get(context.Background(), "session_1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if loaded.Snapshot.CurrentOffer != 950 {
		t.Fatalf("unexpected offer: %f", loaded.Snapshot.CurrentOffer)
	}

	loaded.Snapshot.Turns[0].UserMessage = "mutated"
	again, err := store.Get(context.Background(), "session_1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if again.Snapshot.Turns[0].UserMessage == "mutated" {
		t.Fatal("get must return a copy of the turns")
	}

	loaded.Status = negotiate.StatusAccepted
	if err := store.Save(context.Background(), loaded); err != nil {
		t.Fatalf("save: %v", err)
	}
	saved, err := store.Get(context.Background(), "session_1")
	if err != nil {
		t.Fatalf("get after save: %v", err)
	}
	if saved.Status != negotiate.StatusAccepted {
		t.Fatalf("expected accepted, got %s", saved.Status)
	}

	if _, err := store.Get(context.Background(), "missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if err := store.Save(context.Background(), testRecord("missing")); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound on save, got %v", err)
	}
}

func TestGormStoreSQLiteRoundTrip(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "sessions.db")
	store, err := NewGormStore("sqlite", dbPath)
	if err != nil {
		t.Fatalf("new gorm store: %v", err)
	}

	rec := testRecord("session_1")
	if err := store.Create(context.Background(), rec); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.Create(context.Background(), rec); !errors.Is(err, ErrSessionExists) {
		t.Fatalf("expected ErrSessionExists, got %v", err)
	}

	loaded, err := store.Get(context.Background(), "session_1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if loaded.Snapshot.Bounds.Name != "Tap repair" {
		t.Fatalf("snapshot did not round-trip: %+v", loaded.Snapshot.Bounds)
	}
	if len(loaded.Snapshot.Turns) != 1 || loaded.Snapshot.Turns[0].BotOffer == nil {
		t.Fatalf("turns did not round-trip: %+v", loaded.Snapshot.Turns)
	}

	loaded.Status = negotiate.StatusHandoff
	loaded.Snapshot.Status = negotiate.StatusHandoff
	if err := store.Save(context.Background(), loaded); err != nil {
		t.Fatalf("save: %v", err)
	}

	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := NewGormStore("sqlite", dbPath)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = reopened.Close() }()

	after, err := reopened.Get(context.Background(), "session_1")
	if err != nil {
		t.Fatalf("get after reopen: %v", err)
	}
	if after.Status != negotiate.StatusHandoff {
		t.Fatalf("expected handoff after reopen, got %s", after.Status)
	}

	if _, err := reopened.Get(context.Background(), "missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

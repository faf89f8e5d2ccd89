// Package events defines the lifecycle event envelope emitted by the
// negotiation broker and consumed by subscribers.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"haggle.local/haggle-gateway/internal/ids"
)

type Type string

const (
	TypeSessionStarted   Type = "session.started"
	TypeCounterOffered   Type = "offer.countered"
	TypeDealAccepted     Type = "deal.accepted"
	TypeDealRejected     Type = "deal.rejected"
	TypeHandoffRequested Type = "handoff.requested"
)

type Envelope struct {
	EventID    string          `json:"event_id"`
	OccurredAt time.Time       `json:"occurred_at"`
	Type       Type            `json:"type"`
	SessionID  string          `json:"session_id"`
	ProductID  int64           `json:"product_id"`
	Round      int             `json:"round"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

func (e Envelope) DecodePayload(v any) error {
	return json.Unmarshal(e.Payload, v)
}

// New stamps an envelope with a fresh event id and the current time.
func New(t Type, sessionID string, productID int64, round int, payload any) (Envelope, error) {
	env := Envelope{
		EventID:    ids.New(),
		OccurredAt: time.Now().UTC(),
		Type:       t,
		SessionID:  sessionID,
		ProductID:  productID,
		Round:      round,
	}
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return Envelope{}, fmt.Errorf("marshal payload: %w", err)
		}
		env.Payload = encoded
	}
	return env, nil
}

type SessionStartedPayload struct {
	ProductName string  `json:"product_name"`
	ListPrice   float64 `json:"list_price"`
	Strategy    string  `json:"strategy,omitempty"`
}

type CounterOfferedPayload struct {
	UserOffer *float64 `json:"user_offer,omitempty"`
	BotOffer  float64  `json:"bot_offer"`
	Strategy  string   `json:"strategy,omitempty"`
}

type DealAcceptedPayload struct {
	FinalPrice float64 `json:"final_price"`
}

type DealRejectedPayload struct {
	UserOffer float64 `json:"user_offer"`
}

type HandoffRequestedPayload struct {
	Strikes   int      `json:"strikes"`
	LastOffer *float64 `json:"last_offer,omitempty"`
}

package history

import (
	"context"
	"time"

	"haggle.local/haggle-gateway/internal/negotiate"
)

// Row is one persisted negotiation turn, shared across sessions of the same
// product and consumed by the acceptance model for refitting. Rows are only
// ever appended.
type Row struct {
	RowID       string    `json:"row_id"`
	SessionID   string    `json:"session_id"`
	ProductID   int64     `json:"product_id"`
	UserOffer   *float64  `json:"user_offer,omitempty"`
	BotOffer    *float64  `json:"bot_offer,omitempty"`
	Accepted    *bool     `json:"accepted,omitempty"`
	UserMessage string    `json:"user_message"`
	BotMessage  string    `json:"bot_message"`
	Status      string    `json:"status"`
	FinalPrice  *float64  `json:"final_price,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type Store interface {
	Append(context.Context, Row) error
	QueryByProduct(context.Context, int64) ([]Row, error)
	Close() error
}

// OutcomeSource adapts a Store for the acceptance model. Only rows carrying
// both a bot offer and a terminal accepted flag are usable as labels.
type OutcomeSource struct {
	store Store
}

func NewOutcomeSource(store Store) *OutcomeSource {
	return &OutcomeSource{store: store}
}

func (s *OutcomeSource) Outcomes(ctx context.Context, productID int64) ([]negotiate.Outcome, error) {
	rows, err := s.store.QueryByProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	outcomes := make([]negotiate.Outcome, 0, len(rows))
	for _, row := range rows {
		if row.BotOffer == nil || row.Accepted == nil {
			continue
		}
		outcomes = append(outcomes, negotiate.Outcome{Price: *row.BotOffer, Accepted: *row.Accepted})
	}
	return outcomes, nil
}

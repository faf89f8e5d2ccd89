package negotiate

import "fmt"

// Snapshot is the full serializable state of an engine, used for dumping a
// session and for rehydrating one from the session store.
type Snapshot struct {
	Bounds          ProductBounds `json:"bounds"`
	BoundsSet       bool          `json:"bounds_set"`
	Strategy        string        `json:"strategy,omitempty"`
	Status          Status        `json:"status"`
	FinalPrice      *float64      `json:"final_price,omitempty"`
	Floor           float64       `json:"floor"`
	CurrentOffer    float64       `json:"current_offer"`
	Rounds          int           `json:"rounds"`
	LowOfferStrikes int           `json:"low_offer_strikes"`
	Turns           []Turn        `json:"turns"`
}

func (e *Engine) Snapshot() Snapshot {
	turns := make([]Turn, len(e.turns))
	copy(turns, e.turns)
	var finalPrice *float64
	if e.finalPrice != nil {
		v := *e.finalPrice
		finalPrice = &v
	}
	return Snapshot{
		Bounds:          e.bounds,
		BoundsSet:       e.boundsSet,
		Strategy:        e.strategy,
		Status:          e.status,
		FinalPrice:      finalPrice,
		Floor:           e.floor,
		CurrentOffer:    e.currentOffer,
		Rounds:          e.rounds,
		LowOfferStrikes: e.guard.Strikes(),
		Turns:           turns,
	}
}

// Restore rebuilds an engine from a snapshot. Options supply the
// collaborators that are not part of persisted state.
func Restore(snap Snapshot, opts ...Option) (*Engine, error) {
	e := &Engine{status: snap.Status}
	for _, opt := range opts {
		opt(e)
	}
	if e.policy == nil {
		e.policy = NewOfferPolicy(nil)
	}

	if snap.BoundsSet {
		if err := snap.Bounds.Validate(); err != nil {
			return nil, err
		}
		e.bounds = snap.Bounds
		e.boundsSet = true
		e.baseMin = snap.Bounds.MinPrice
	} else if e.classify == nil {
		return nil, fmt.Errorf("%w: bounds are required without a classifier", ErrInvalidBounds)
	}

	if e.status == "" {
		e.status = StatusOngoing
	}
	e.strategy = snap.Strategy
	e.floor = snap.Floor
	e.currentOffer = snap.CurrentOffer
	e.rounds = snap.Rounds
	e.guard = AbuseGuard{strikes: snap.LowOfferStrikes}
	if snap.FinalPrice != nil {
		v := *snap.FinalPrice
		e.finalPrice = &v
	}
	e.turns = make([]Turn, len(snap.Turns))
	copy(e.turns, snap.Turns)
	return e, nil
}

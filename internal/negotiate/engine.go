package negotiate

import (
	"context"
	"fmt"
	"math"
	"math/rand"
)

type Status string

const (
	StatusOngoing  Status = "ongoing"
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
	StatusHandoff  Status = "handoff"
)

const (
	// Offers below this fraction of the floor end the negotiation outright.
	hardRejectFraction = 0.7
	// Past this many counter-offers the bot starts closing the conversation
	// down, without terminating it.
	softRoundCap = 10
)

// Turn is one exchange in the conversation. Turns are append-only; the only
// permitted mutation is the closing remark rewrite of the newest turn's bot
// message at the soft round cap.
type Turn struct {
	UserMessage string   `json:"user_message"`
	UserOffer   *float64 `json:"user_offer,omitempty"`
	BotMessage  string   `json:"bot_message"`
	BotOffer    *float64 `json:"bot_offer,omitempty"`
	Accepted    *bool    `json:"accepted,omitempty"`
	Strategy    string   `json:"strategy,omitempty"`
}

// StepResult is what one call to Step hands back to the caller.
type StepResult struct {
	Reply      string
	Status     Status
	FinalPrice *float64
	History    []Turn
	// Appended is false when the session was already terminal and the call
	// changed nothing.
	Appended bool
}

// PriceExtractor parses free text into an optional numeric offer.
type PriceExtractor func(message string) (float64, bool)

// ClassifiedBounds is the classifier's anchor for a session that started
// without explicit product bounds.
type ClassifiedBounds struct {
	Bounds    ProductBounds
	Strategy  string
	SeedOffer float64
}

// Classifier maps a message to a service-type/complexity price anchor.
type Classifier func(message string) ClassifiedBounds

// OutcomeSource feeds historical price outcomes to the acceptance model.
type OutcomeSource interface {
	Outcomes(ctx context.Context, productID int64) ([]Outcome, error)
}

// Engine is the negotiation state machine for a single session. It is not
// safe for concurrent use; callers serialize Step calls per session.
type Engine struct {
	bounds    ProductBounds
	boundsSet bool
	strategy  string

	baseMin      float64
	floor        float64
	currentOffer float64

	status     Status
	finalPrice *float64
	rounds     int
	guard      AbuseGuard
	turns      []Turn

	policy   *OfferPolicy
	extract  PriceExtractor
	classify Classifier
	outcomes OutcomeSource
}

type Option func(*Engine)

// WithRand injects the per-session random source used for exploration.
func WithRand(rng *rand.Rand) Option {
	return func(e *Engine) {
		e.policy = NewOfferPolicy(rng)
	}
}

func WithExtractor(fn PriceExtractor) Option {
	return func(e *Engine) {
		e.extract = fn
	}
}

func WithClassifier(fn Classifier) Option {
	return func(e *Engine) {
		e.classify = fn
	}
}

func WithOutcomes(src OutcomeSource) Option {
	return func(e *Engine) {
		e.outcomes = src
	}
}

// New creates an engine. Zero-value bounds defer to the classifier on the
// first turn; anything else must validate.
func New(bounds ProductBounds, opts ...Option) (*Engine, error) {
	e := &Engine{status: StatusOngoing}
	for _, opt := range opts {
		opt(e)
	}
	if e.policy == nil {
		e.policy = NewOfferPolicy(nil)
	}

	if bounds.isZero() {
		if e.classify == nil {
			return nil, fmt.Errorf("%w: bounds are required without a classifier", ErrInvalidBounds)
		}
		return e, nil
	}

	if err := bounds.Validate(); err != nil {
		return nil, err
	}
	e.setBounds(bounds, "", bounds.ListPrice)
	return e, nil
}

func (e *Engine) setBounds(bounds ProductBounds, strategy string, openingOffer float64) {
	e.bounds = bounds
	e.boundsSet = true
	e.strategy = strategy
	e.baseMin = bounds.MinPrice
	e.floor = bounds.MinPrice
	e.currentOffer = clamp(openingOffer, bounds.MinPrice, bounds.ListPrice)
}

// Step advances the negotiation by one turn. Terminal sessions are returned
// unchanged.
func (e *Engine) Step(ctx context.Context, message string, budgetHint *float64) StepResult {
	if e.status != StatusOngoing {
		return e.result(fmt.Sprintf("Negotiation already %s.", e.status), false)
	}

	if !e.boundsSet {
		classified := e.classify(message)
		e.setBounds(classified.Bounds, classified.Strategy, classified.SeedOffer)
	}

	userOffer := e.userOffer(message, budgetHint)

	if userOffer == nil {
		counter := e.chooseCounter(ctx, nil)
		reply := fmt.Sprintf("For %s, I can offer %.2f %s. What's your offer?", e.bounds.Name, counter, e.bounds.Currency)
		e.appendTurn(Turn{UserMessage: message, BotMessage: reply, BotOffer: &counter})
		e.currentOffer = counter
		e.rounds++
		return e.result(reply, true)
	}

	e.floor = EffectiveFloor(message, e.baseMin, e.bounds.ListPrice)
	if e.currentOffer < e.floor {
		// Counters issued under a lowered scope floor may sit below the
		// restored one; lift the standing offer back into the corridor.
		e.currentOffer = e.floor
	}

	if e.guard.Observe(userOffer, e.floor) {
		reply := fmt.Sprintf("It seems your budget is below the minimum I can do for %s. I can connect you directly with the provider to discuss a custom scope.", e.bounds.Name)
		e.appendTurn(Turn{UserMessage: message, UserOffer: userOffer, BotMessage: reply})
		e.status = StatusHandoff
		return e.result(reply, true)
	}

	if *userOffer < hardRejectFraction*e.floor {
		reply := fmt.Sprintf("That's too low for %s. Minimum acceptable is %.2f %s.", e.bounds.Name, e.floor, e.bounds.Currency)
		rejected := false
		e.appendTurn(Turn{UserMessage: message, UserOffer: userOffer, BotMessage: reply, Accepted: &rejected})
		e.status = StatusRejected
		return e.result(reply, true)
	}

	if *userOffer >= math.Max(e.floor, e.currentOffer) {
		final := round2(math.Max(e.floor, *userOffer))
		reply := fmt.Sprintf("Deal accepted at %.2f %s for %s.", final, e.bounds.Currency, e.bounds.Name)
		accepted := true
		standing := e.currentOffer
		e.appendTurn(Turn{UserMessage: message, UserOffer: userOffer, BotMessage: reply, BotOffer: &standing, Accepted: &accepted})
		e.status = StatusAccepted
		e.finalPrice = &final
		return e.result(reply, true)
	}

	counter := e.chooseCounter(ctx, userOffer)
	scopeSuffix := ""
	if e.floor < e.baseMin {
		scopeSuffix = " (basic scope)"
	}
	reply := fmt.Sprintf("How about %.2f %s for %s%s?", counter, e.bounds.Currency, e.bounds.Name, scopeSuffix)
	e.appendTurn(Turn{UserMessage: message, UserOffer: userOffer, BotMessage: reply, BotOffer: &counter})
	e.currentOffer = counter
	e.rounds++

	if e.rounds >= softRoundCap {
		reply = fmt.Sprintf("Let's wrap up: best I can do is %.2f %s%s.", counter, e.bounds.Currency, scopeSuffix)
		e.turns[len(e.turns)-1].BotMessage = reply
	}
	return e.result(reply, true)
}

func (e *Engine) userOffer(message string, budgetHint *float64) *float64 {
	if e.extract != nil {
		if value, ok := e.extract(message); ok {
			return &value
		}
	}
	if budgetHint != nil {
		value := *budgetHint
		return &value
	}
	return nil
}

func (e *Engine) chooseCounter(ctx context.Context, userOffer *float64) float64 {
	var rows []Outcome
	if e.outcomes != nil {
		// Fit failures degrade silently to the cold-start curve.
		if fetched, err := e.outcomes.Outcomes(ctx, e.bounds.ProductID); err == nil {
			rows = fetched
		}
	}
	model := FitAcceptance(rows, e.bounds.MinPrice, e.bounds.ListPrice)
	return e.policy.ChooseCounter(e.floor, e.bounds.ListPrice, e.currentOffer, userOffer, model)
}

func (e *Engine) appendTurn(turn Turn) {
	turn.Strategy = e.strategy
	e.turns = append(e.turns, turn)
}

func (e *Engine) result(reply string, appended bool) StepResult {
	history := make([]Turn, len(e.turns))
	copy(history, e.turns)
	return StepResult{
		Reply:      reply,
		Status:     e.status,
		FinalPrice: e.finalPrice,
		History:    history,
		Appended:   appended,
	}
}

// Status returns the session status.
func (e *Engine) Status() Status {
	return e.status
}

// Bounds returns the session's product bounds; ok is false while they are
// still pending classification.
func (e *Engine) Bounds() (ProductBounds, bool) {
	return e.bounds, e.boundsSet
}

// CurrentOffer is the seller's last stated price.
func (e *Engine) CurrentOffer() float64 {
	return e.currentOffer
}

// LastTurn returns the most recent turn, if any.
func (e *Engine) LastTurn() (Turn, bool) {
	if len(e.turns) == 0 {
		return Turn{}, false
	}
	return e.turns[len(e.turns)-1], true
}

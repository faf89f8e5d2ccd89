package broker

import (
	"context"
	"fmt"
	"hash/fnv"
	"log"
	"math/rand"
	"sync"
	"time"

	"haggle.local/haggle-gateway/internal/dispatch"
	"haggle.local/haggle-gateway/internal/events"
	"haggle.local/haggle-gateway/internal/history"
	"haggle.local/haggle-gateway/internal/ids"
	"haggle.local/haggle-gateway/internal/negotiate"
	"haggle.local/haggle-gateway/internal/pricing"
)

// Service is the negotiation broker. It rehydrates an engine per turn from the
// session store, serializes writers per session, and fans results out to the
// history writer and event subscribers without ever failing a turn on them.
type Service struct {
	logger     *log.Logger
	store      Store
	history    *history.Writer
	dispatcher *dispatch.Dispatcher
	outcomes   negotiate.OutcomeSource

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

type ServiceOption func(*Service)

func WithHistory(writer *history.Writer) ServiceOption {
	return func(s *Service) {
		s.history = writer
	}
}

func WithDispatcher(dispatcher *dispatch.Dispatcher) ServiceOption {
	return func(s *Service) {
		s.dispatcher = dispatcher
	}
}

// WithOutcomes feeds past deal outcomes into the acceptance model fit.
func WithOutcomes(src negotiate.OutcomeSource) ServiceOption {
	return func(s *Service) {
		s.outcomes = src
	}
}

func NewService(logger *log.Logger, store Store, opts ...ServiceOption) *Service {
	svc := &Service{
		logger: logger,
		store:  store,
		locks:  make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

type StartParams struct {
	SessionID string
	Product   *negotiate.ProductBounds
}

type StartResult struct {
	SessionID string
	Status    negotiate.Status
	// CurrentOffer is nil until bounds exist, i.e. for sessions that start
	// without a product and classify on the first message.
	CurrentOffer *float64
}

// Start registers a new session. A missing session id gets a generated one; a
// missing product defers pricing to the classifier on the first message.
func (s *Service) Start(ctx context.Context, params StartParams) (StartResult, error) {
	sessionID := params.SessionID
	if sessionID == "" {
		sessionID = ids.New()
	} else if err := validateSessionID(sessionID); err != nil {
		return StartResult{}, err
	}

	bounds := negotiate.ProductBounds{}
	if params.Product != nil {
		bounds = *params.Product
	}
	engine, err := negotiate.New(bounds, s.engineOptions(sessionID)...)
	if err != nil {
		return StartResult{}, err
	}

	now := time.Now().UTC()
	snap := engine.Snapshot()
	rec := SessionRecord{
		SessionID: sessionID,
		ProductID: snap.Bounds.ProductID,
		Status:    snap.Status,
		Snapshot:  snap,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Create(ctx, rec); err != nil {
		return StartResult{}, err
	}
	s.logger.Printf("session started session_id=%s product_id=%d bounds_set=%t", sessionID, rec.ProductID, snap.BoundsSet)

	payload := events.SessionStartedPayload{}
	if snap.BoundsSet {
		payload.ProductName = snap.Bounds.Name
		payload.ListPrice = snap.Bounds.ListPrice
		payload.Strategy = snap.Strategy
	}
	s.dispatchEvent(ctx, events.TypeSessionStarted, rec, payload)

	result := StartResult{SessionID: sessionID, Status: snap.Status}
	if snap.BoundsSet {
		offer := snap.CurrentOffer
		result.CurrentOffer = &offer
	}
	return result, nil
}

// Step runs one negotiation turn. Turns on the same session are serialized;
// different sessions proceed independently.
func (s *Service) Step(ctx context.Context, sessionID, message string, budgetHint *float64) (negotiate.StepResult, error) {
	if err := validateSessionID(sessionID); err != nil {
		return negotiate.StepResult{}, err
	}

	lock := s.lockFor(sessionID)
	lock.Lock()
	defer lock.Unlock()

	rec, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return negotiate.StepResult{}, err
	}

	engine, err := negotiate.Restore(rec.Snapshot, s.engineOptions(sessionID)...)
	if err != nil {
		return negotiate.StepResult{}, fmt.Errorf("restore session %s: %w", sessionID, err)
	}

	result := engine.Step(ctx, message, budgetHint)
	if !result.Appended {
		return result, nil
	}

	now := time.Now().UTC()
	snap := engine.Snapshot()
	rec.Snapshot = snap
	rec.Status = snap.Status
	rec.ProductID = snap.Bounds.ProductID
	rec.UpdatedAt = now
	if err := s.store.Save(ctx, rec); err != nil {
		s.logger.Printf("session save failed session_id=%s err=%v", sessionID, err)
	}

	s.recordHistory(rec, snap, now)
	s.dispatchTurnEvent(ctx, rec, snap)
	return result, nil
}

// Get returns the persisted session, including the full engine snapshot.
func (s *Service) Get(ctx context.Context, sessionID string) (SessionRecord, error) {
	if err := validateSessionID(sessionID); err != nil {
		return SessionRecord{}, err
	}
	return s.store.Get(ctx, sessionID)
}

func (s *Service) lockFor(sessionID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	if lock, ok := s.locks[sessionID]; ok {
		return lock
	}
	lock := &sync.Mutex{}
	s.locks[sessionID] = lock
	return lock
}

func (s *Service) engineOptions(sessionID string) []negotiate.Option {
	opts := []negotiate.Option{
		negotiate.WithExtractor(pricing.ExtractPrice),
		negotiate.WithClassifier(classifyBounds),
		negotiate.WithRand(rand.New(rand.NewSource(seedFor(sessionID)))),
	}
	if s.outcomes != nil {
		opts = append(opts, negotiate.WithOutcomes(s.outcomes))
	}
	return opts
}

// seedFor mixes the session id with the clock so restored engines do not
// replay the same exploration draws every turn.
func seedFor(sessionID string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(sessionID))
	return int64(h.Sum64()) ^ time.Now().UnixNano()
}

// classifyBounds adapts the keyword classifier into the engine's anchor for
// sessions that started without explicit product bounds.
func classifyBounds(message string) negotiate.ClassifiedBounds {
	anchor := pricing.Classify(message)
	strategy, seed := pricing.SuggestStrategy(message, anchor)
	return negotiate.ClassifiedBounds{
		Bounds: negotiate.ProductBounds{
			Name:      fmt.Sprintf("%s service (%s)", anchor.ServiceType, anchor.Complexity),
			ListPrice: anchor.BasePrice,
			MinPrice:  anchor.MinPrice,
			Currency:  "INR",
		},
		Strategy:  string(strategy),
		SeedOffer: seed,
	}
}

func (s *Service) recordHistory(rec SessionRecord, snap negotiate.Snapshot, now time.Time) {
	if s.history == nil || len(snap.Turns) == 0 {
		return
	}
	turn := snap.Turns[len(snap.Turns)-1]
	s.history.Append(history.Row{
		RowID:       ids.New(),
		SessionID:   rec.SessionID,
		ProductID:   rec.ProductID,
		UserOffer:   turn.UserOffer,
		BotOffer:    turn.BotOffer,
		Accepted:    turn.Accepted,
		UserMessage: turn.UserMessage,
		BotMessage:  turn.BotMessage,
		Status:      string(snap.Status),
		FinalPrice:  snap.FinalPrice,
		CreatedAt:   now,
	})
}

func (s *Service) dispatchTurnEvent(ctx context.Context, rec SessionRecord, snap negotiate.Snapshot) {
	if len(snap.Turns) == 0 {
		return
	}
	turn := snap.Turns[len(snap.Turns)-1]

	switch snap.Status {
	case negotiate.StatusAccepted:
		if snap.FinalPrice != nil {
			s.dispatchEvent(ctx, events.TypeDealAccepted, rec, events.DealAcceptedPayload{FinalPrice: *snap.FinalPrice})
		}
	case negotiate.StatusRejected:
		payload := events.DealRejectedPayload{}
		if turn.UserOffer != nil {
			payload.UserOffer = *turn.UserOffer
		}
		s.dispatchEvent(ctx, events.TypeDealRejected, rec, payload)
	case negotiate.StatusHandoff:
		s.dispatchEvent(ctx, events.TypeHandoffRequested, rec, events.HandoffRequestedPayload{
			Strikes:   snap.LowOfferStrikes,
			LastOffer: turn.UserOffer,
		})
	default:
		var botOffer float64
		if turn.BotOffer != nil {
			botOffer = *turn.BotOffer
		}
		s.dispatchEvent(ctx, events.TypeCounterOffered, rec, events.CounterOfferedPayload{
			UserOffer: turn.UserOffer,
			BotOffer:  botOffer,
			Strategy:  turn.Strategy,
		})
	}
}

func (s *Service) dispatchEvent(ctx context.Context, eventType events.Type, rec SessionRecord, payload any) {
	if s.dispatcher == nil {
		return
	}
	event, err := events.New(eventType, rec.SessionID, rec.ProductID, rec.Snapshot.Rounds, payload)
	if err != nil {
		s.logger.Printf("event build failed session_id=%s type=%s err=%v", rec.SessionID, eventType, err)
		return
	}
	s.dispatcher.Dispatch(ctx, event)
}

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/enigmatch/enigmatch/internal/clock"
	"github.com/enigmatch/enigmatch/internal/events"
	"github.com/enigmatch/enigmatch/internal/ledger"
	"github.com/enigmatch/enigmatch/internal/metrics"
	"github.com/enigmatch/enigmatch/internal/model"
	"github.com/enigmatch/enigmatch/internal/reputation"
	"github.com/enigmatch/enigmatch/internal/storage"
)

//go:generate mockgen -destination=mocks/mock_publisher.go -package=mocks github.com/enigmatch/enigmatch/internal/service MatchEventPublisher

// MatchEventPublisher announces newly created matches. Implementations must
// not block the caller.
type MatchEventPublisher interface {
	PublishMatchCreated(event events.MatchCreated)
}

// errSwipeRaced signals that a swipe for the pair appeared after the
// existence check, which the per-user locks should prevent. The whole
// operation is rolled back and reported as retryable.
var errSwipeRaced = errors.New("concurrent swipe on pair")

// SwipeDeps are the collaborators of SwipeService.
type SwipeDeps struct {
	Store      storage.Store
	Ledger     *ledger.Ledger
	Reputation *reputation.Reputation
	Publisher  MatchEventPublisher
	Metrics    metrics.Recorder
	Logger     *slog.Logger
	Clock      clock.Clock
	Timeout    time.Duration
}

// SwipeService records swipes and detects matches atomically.
type SwipeService struct {
	store      storage.Store
	ledger     *ledger.Ledger
	reputation *reputation.Reputation
	publisher  MatchEventPublisher
	metrics    metrics.Recorder
	logger     *slog.Logger
	clock      clock.Clock
	timeout    time.Duration
}

// NewSwipeService creates a new SwipeService.
func NewSwipeService(deps SwipeDeps) *SwipeService {
	if deps.Metrics == nil {
		deps.Metrics = metrics.NewNoop()
	}
	if deps.Publisher == nil {
		deps.Publisher = events.Noop{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Clock == nil {
		deps.Clock = clock.System{}
	}
	return &SwipeService{
		store:      deps.Store,
		ledger:     deps.Ledger,
		reputation: deps.Reputation,
		publisher:  deps.Publisher,
		metrics:    deps.Metrics,
		logger:     deps.Logger.With("component", "swipe.service"),
		clock:      deps.Clock,
		timeout:    deps.Timeout,
	}
}

// SubmitSwipeInput defines input for submitting a swipe.
type SubmitSwipeInput struct {
	SwiperID string
	SwipedID string
	Liked    bool
}

// SwipeResult is the outcome of a submitted swipe.
type SwipeResult struct {
	Swipe            *model.Swipe
	IsMatch          bool
	Match            *model.Match
	MatchedUser      *model.User
	CreditsRemaining int
	// Duplicate is set when the swipe already existed and was returned
	// unchanged.
	Duplicate bool

	matchCreated bool
}

// Submit records a swipe from SwiperID on SwipedID.
//
// All steps run in one transaction: lock both users, return an existing
// swipe unchanged, spend a credit for likes, insert the swipe, adjust the
// target's reputation and create the match when the like is reciprocated.
// Any failure leaves no trace. Side effects (metrics, logs, events) happen
// only after commit.
func (s *SwipeService) Submit(ctx context.Context, input SubmitSwipeInput) (*SwipeResult, error) {
	if input.SwiperID == "" || input.SwipedID == "" {
		return nil, invalid(ErrInvalidSwipe, "swiper_id and swiped_id are required")
	}
	if input.SwiperID == input.SwipedID {
		return nil, invalid(ErrInvalidSwipe, "cannot swipe on yourself")
	}

	start := time.Now()
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	var result *SwipeResult
	err := s.store.WithTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		result, err = s.submit(ctx, tx, input)
		return err
	})
	err = normalize("submit swipe", err)
	if err != nil {
		s.recordFailure(input, err)
		return nil, err
	}

	s.afterCommit(input, result, time.Since(start))
	return result, nil
}

func (s *SwipeService) submit(ctx context.Context, tx storage.Tx, input SubmitSwipeInput) (*SwipeResult, error) {
	users, err := tx.LockUsers(ctx, input.SwiperID, input.SwipedID)
	if err != nil {
		return nil, err
	}
	swiper, target := users[input.SwiperID], users[input.SwipedID]
	now := s.clock.Now()

	existing, err := tx.GetSwipe(ctx, input.SwiperID, input.SwipedID)
	switch {
	case err == nil:
		return s.replay(ctx, tx, swiper, target, existing)
	case !errors.Is(err, storage.ErrSwipeNotFound):
		return nil, fmt.Errorf("get swipe: %w", err)
	}

	result := &SwipeResult{}
	if input.Liked {
		balance, err := s.ledger.Spend(ctx, tx, swiper)
		if err != nil {
			return nil, err
		}
		result.CreditsRemaining = balance
	} else {
		balance, err := s.peekCredits(ctx, tx, swiper)
		if err != nil {
			return nil, err
		}
		result.CreditsRemaining = balance
	}

	swipe, created, err := tx.InsertSwipe(ctx, &model.Swipe{
		ID:        newID(),
		SwiperID:  input.SwiperID,
		SwipedID:  input.SwipedID,
		Liked:     input.Liked,
		CreatedAt: now,
	})
	if err != nil {
		return nil, fmt.Errorf("insert swipe: %w", err)
	}
	if !created {
		return nil, storage.Unavailable("insert swipe", errSwipeRaced)
	}
	result.Swipe = swipe

	if input.Liked {
		_, err = s.reputation.OnLiked(ctx, tx, target)
	} else {
		_, err = s.reputation.OnDisliked(ctx, tx, target)
	}
	if err != nil {
		return nil, fmt.Errorf("update reputation: %w", err)
	}

	if !input.Liked {
		return result, nil
	}

	reverse, err := tx.GetSwipe(ctx, input.SwipedID, input.SwiperID)
	if errors.Is(err, storage.ErrSwipeNotFound) || (err == nil && !reverse.Liked) {
		return result, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get reciprocal swipe: %w", err)
	}

	match, created, err := tx.InsertMatch(ctx, &model.Match{
		ID:        newID(),
		User1ID:   input.SwiperID,
		User2ID:   input.SwipedID,
		CreatedAt: now,
	})
	if err != nil {
		return nil, fmt.Errorf("insert match: %w", err)
	}

	result.IsMatch = true
	result.Match = match
	result.MatchedUser = target
	result.matchCreated = created
	return result, nil
}

// replay answers a repeated swipe with the stored one. Nothing is charged
// and no score changes.
func (s *SwipeService) replay(ctx context.Context, tx storage.Tx, swiper, target *model.User, existing *model.Swipe) (*SwipeResult, error) {
	balance, err := s.peekCredits(ctx, tx, swiper)
	if err != nil {
		return nil, err
	}
	result := &SwipeResult{
		Swipe:            existing,
		CreditsRemaining: balance,
		Duplicate:        true,
	}

	match, err := tx.GetMatchByPair(ctx, model.NewPairKey(swiper.ID, target.ID))
	switch {
	case err == nil:
		result.IsMatch = true
		result.Match = match
		result.MatchedUser = target
	case !errors.Is(err, storage.ErrMatchNotFound):
		return nil, fmt.Errorf("get match: %w", err)
	}
	return result, nil
}

// peekCredits applies a due reset to the locked swiper without spending.
func (s *SwipeService) peekCredits(ctx context.Context, tx storage.Tx, u *model.User) (int, error) {
	balance, changed := s.ledger.Peek(u)
	if changed {
		if err := tx.SaveLedger(ctx, u); err != nil {
			return 0, fmt.Errorf("save credit reset: %w", err)
		}
	}
	return balance, nil
}

func (s *SwipeService) recordFailure(input SubmitSwipeInput, err error) {
	switch {
	case errors.Is(err, ErrInsufficientCredits):
		s.metrics.IncCreditRejected()
		s.logger.Info("swipe_rejected",
			"swiper_id", input.SwiperID,
			"swiped_id", input.SwipedID,
			"reason", "insufficient_credits",
		)
	case errors.Is(err, ErrUnavailable):
		s.metrics.IncStorageUnavailable()
		s.logger.Warn("swipe_failed",
			"swiper_id", input.SwiperID,
			"swiped_id", input.SwipedID,
			"error", err,
		)
	}
}

func (s *SwipeService) afterCommit(input SubmitSwipeInput, result *SwipeResult, elapsed time.Duration) {
	s.metrics.ObserveSwipeDuration(elapsed)

	if result.Duplicate {
		s.metrics.IncSwipeDuplicate()
		s.logger.Debug("swipe_replayed",
			"swipe_id", result.Swipe.ID,
			"swiper_id", input.SwiperID,
			"swiped_id", input.SwipedID,
		)
		return
	}

	s.metrics.IncSwipeRecorded(input.Liked)
	s.logger.Info("swipe_recorded",
		"swipe_id", result.Swipe.ID,
		"swiper_id", input.SwiperID,
		"swiped_id", input.SwipedID,
		"liked", input.Liked,
		"credits_remaining", result.CreditsRemaining,
		"is_match", result.IsMatch,
		"duration_ms", float64(elapsed.Microseconds())/1000,
	)

	if !result.matchCreated {
		return
	}

	m := result.Match
	s.metrics.IncMatchCreated()
	s.logger.Info("match_created",
		"match_id", m.ID,
		"user1_id", m.User1ID,
		"user2_id", m.User2ID,
	)
	s.publisher.PublishMatchCreated(events.NewMatchCreated(m.ID, m.User1ID, m.User2ID, m.CreatedAt))
}

package service

import (
	"context"
	"time"

	"github.com/enigmatch/enigmatch/internal/model"
	"github.com/enigmatch/enigmatch/internal/storage"
)

// MatchService reads matches from a member's point of view.
type MatchService struct {
	store   storage.Reader
	timeout time.Duration
}

// NewMatchService creates a new MatchService.
func NewMatchService(store storage.Reader, timeout time.Duration) *MatchService {
	return &MatchService{store: store, timeout: timeout}
}

// List returns userID's matches with the counterpart profile, newest first.
func (s *MatchService) List(ctx context.Context, userID string) ([]*model.MatchWithUser, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	if _, err := s.store.GetUser(ctx, userID); err != nil {
		return nil, normalize("get user", err)
	}

	matches, err := s.store.ListMatches(ctx, userID)
	if err != nil {
		return nil, normalize("list matches", err)
	}
	if matches == nil {
		matches = []*model.MatchWithUser{}
	}
	return matches, nil
}

// Get returns a match as seen by viewerID. A viewer outside the match gets
// ErrMatchNotFound so match ids cannot be probed.
func (s *MatchService) Get(ctx context.Context, matchID, viewerID string) (*model.MatchWithUser, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	match, err := s.store.GetMatch(ctx, matchID)
	if err != nil {
		return nil, normalize("get match", err)
	}
	if !match.Involves(viewerID) {
		return nil, ErrMatchNotFound
	}

	counterpart, err := s.store.GetUser(ctx, match.Counterpart(viewerID))
	if err != nil {
		return nil, normalize("get counterpart", err)
	}

	return &model.MatchWithUser{Match: match, User: counterpart}, nil
}

package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/enigmatch/enigmatch/internal/clock"
	"github.com/enigmatch/enigmatch/internal/model"
	"github.com/enigmatch/enigmatch/internal/storage"
)

const maxMessageLength = 2000

// MessageService stores chat messages between matched users.
type MessageService struct {
	store       storage.Store
	suggestions SuggestionProvider
	clock       clock.Clock
	logger      *slog.Logger
	timeout     time.Duration
}

// NewMessageService creates a new MessageService. A nil provider selects the
// bundled template catalogue.
func NewMessageService(store storage.Store, provider SuggestionProvider, clk clock.Clock, logger *slog.Logger, timeout time.Duration) *MessageService {
	if provider == nil {
		provider = TemplateSuggestions{}
	}
	if clk == nil {
		clk = clock.System{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &MessageService{
		store:       store,
		suggestions: provider,
		clock:       clk,
		logger:      logger.With("component", "message.service"),
		timeout:     timeout,
	}
}

// SendMessageInput defines input for sending a message. ReceiverID is
// optional; when set it must be the sender's counterpart.
type SendMessageInput struct {
	MatchID    string
	SenderID   string
	ReceiverID string
	Content    string
}

// Send stores a message from one match member to the other.
func (s *MessageService) Send(ctx context.Context, input SendMessageInput) (*model.Message, error) {
	content := strings.TrimSpace(input.Content)
	if input.MatchID == "" || input.SenderID == "" {
		return nil, invalid(ErrInvalidMessage, "match_id and sender_id are required")
	}
	if content == "" || len(content) > maxMessageLength {
		return nil, invalid(ErrInvalidMessage, "content must be 1-%d characters", maxMessageLength)
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	match, err := s.store.GetMatch(ctx, input.MatchID)
	if err != nil {
		return nil, normalize("get match", err)
	}
	if !match.Involves(input.SenderID) {
		return nil, ErrNotMatchMember
	}
	receiver := match.Counterpart(input.SenderID)
	if input.ReceiverID != "" && input.ReceiverID != receiver {
		return nil, ErrNotMatchMember
	}

	msg := &model.Message{
		ID:         newID(),
		MatchID:    match.ID,
		SenderID:   input.SenderID,
		ReceiverID: receiver,
		Content:    content,
		CreatedAt:  s.clock.Now(),
	}
	if err := s.store.CreateMessage(ctx, msg); err != nil {
		return nil, normalize("create message", err)
	}

	s.logger.Debug("message_sent", "message_id", msg.ID, "match_id", msg.MatchID)
	return msg, nil
}

// List returns the messages of a match, oldest first.
func (s *MessageService) List(ctx context.Context, matchID string) ([]*model.Message, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	if _, err := s.store.GetMatch(ctx, matchID); err != nil {
		return nil, normalize("get match", err)
	}
	msgs, err := s.store.ListMessages(ctx, matchID)
	if err != nil {
		return nil, normalize("list messages", err)
	}
	if msgs == nil {
		msgs = []*model.Message{}
	}
	return msgs, nil
}

// UnreadCount returns the number of unread messages addressed to userID.
func (s *MessageService) UnreadCount(ctx context.Context, userID string) (int, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	if _, err := s.store.GetUser(ctx, userID); err != nil {
		return 0, normalize("get user", err)
	}
	count, err := s.store.CountUnread(ctx, userID)
	if err != nil {
		return 0, normalize("count unread", err)
	}
	return count, nil
}

// MarkRead marks the messages of matchID addressed to readerID as read.
func (s *MessageService) MarkRead(ctx context.Context, matchID, readerID string) (int, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	match, err := s.store.GetMatch(ctx, matchID)
	if err != nil {
		return 0, normalize("get match", err)
	}
	if !match.Involves(readerID) {
		return 0, ErrNotMatchMember
	}
	changed, err := s.store.MarkRead(ctx, matchID, readerID)
	if err != nil {
		return 0, normalize("mark read", err)
	}
	return changed, nil
}

// Suggestions returns opening lines for recipientName.
func (s *MessageService) Suggestions(ctx context.Context, recipientName, intent string) ([]string, error) {
	name := strings.TrimSpace(recipientName)
	if name == "" || strings.TrimSpace(intent) == "" {
		return nil, invalid(ErrInvalidMessage, "recipient_name and relationship_intent are required")
	}
	return s.suggestions.Suggest(ctx, name, intent)
}

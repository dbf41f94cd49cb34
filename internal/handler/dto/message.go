package dto

import (
	"time"

	"github.com/enigmatch/enigmatch/internal/model"
)

// SendMessageRequest represents the request body for sending a message.
type SendMessageRequest struct {
	MatchID    string `json:"match_id"`
	SenderID   string `json:"sender_id"`
	ReceiverID string `json:"receiver_id,omitempty"`
	Content    string `json:"content"`
}

// MessageResponse represents a chat message.
type MessageResponse struct {
	ID         string    `json:"id"`
	MatchID    string    `json:"match_id"`
	SenderID   string    `json:"sender_id"`
	ReceiverID string    `json:"receiver_id"`
	Content    string    `json:"content"`
	Read       bool      `json:"read"`
	CreatedAt  time.Time `json:"created_at"`
}

// UnreadResponse reports the number of unread messages.
type UnreadResponse struct {
	Count int `json:"count"`
}

// MarkReadResponse reports how many messages were marked read.
type MarkReadResponse struct {
	Updated int `json:"updated"`
}

// SuggestionsRequest asks for opening lines.
type SuggestionsRequest struct {
	RecipientName      string `json:"recipient_name"`
	RelationshipIntent string `json:"relationship_intent"`
}

// SuggestionsResponse carries opening lines.
type SuggestionsResponse struct {
	Suggestions []string `json:"suggestions"`
}

// ToMessageResponse converts a Message model.
func ToMessageResponse(m *model.Message) MessageResponse {
	return MessageResponse{
		ID:         m.ID,
		MatchID:    m.MatchID,
		SenderID:   m.SenderID,
		ReceiverID: m.ReceiverID,
		Content:    m.Content,
		Read:       m.Read,
		CreatedAt:  m.CreatedAt,
	}
}

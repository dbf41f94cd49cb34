package events

import "fmt"

const maxIDLength = 64

// Validate checks a decoded match.created payload.
func Validate(event MatchCreated) error {
	if event.Type != TypeMatchCreated {
		return fmt.Errorf("unsupported event type %q", event.Type)
	}
	if event.MatchID == "" {
		return fmt.Errorf("match_id is required")
	}
	if event.User1ID == "" || event.User2ID == "" {
		return fmt.Errorf("user ids are required")
	}
	if event.User1ID == event.User2ID {
		return fmt.Errorf("user ids must differ")
	}
	if len(event.MatchID) > maxIDLength || len(event.User1ID) > maxIDLength || len(event.User2ID) > maxIDLength {
		return fmt.Errorf("id too long")
	}
	if event.CreatedAt <= 0 {
		return fmt.Errorf("created_at must be set")
	}
	return nil
}

package model

import "time"

// Match records mutual positive preference between two users.
// User1ID is the user whose swipe completed the pair.
type Match struct {
	ID        string    `json:"id"`
	User1ID   string    `json:"user1_id"`
	User2ID   string    `json:"user2_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Pair returns the normalized unordered key of the match.
func (m *Match) Pair() PairKey {
	return NewPairKey(m.User1ID, m.User2ID)
}

// Involves reports whether userID is one of the two members.
func (m *Match) Involves(userID string) bool {
	return m.User1ID == userID || m.User2ID == userID
}

// Counterpart returns the member that is not userID.
func (m *Match) Counterpart(userID string) string {
	if m.User1ID == userID {
		return m.User2ID
	}
	return m.User1ID
}

// MatchWithUser pairs a match with the counterpart's profile as seen by a viewer.
type MatchWithUser struct {
	Match *Match `json:"match"`
	User  *User  `json:"user"`
}

// PairKey is an unordered user pair with Low <= High, so both directions of
// a reciprocal swipe map to the same key.
type PairKey struct {
	Low  string
	High string
}

// NewPairKey normalizes two user IDs into a PairKey.
func NewPairKey(a, b string) PairKey {
	if b < a {
		a, b = b, a
	}
	return PairKey{Low: a, High: b}
}

// String renders the key as "low:high".
func (p PairKey) String() string {
	return p.Low + ":" + p.High
}

package model

import "time"

// Swipe is an immutable one-directional preference from Swiper to Swiped.
// At most one Swipe exists per ordered (SwiperID, SwipedID) pair.
type Swipe struct {
	ID        string    `json:"id"`
	SwiperID  string    `json:"swiper_id"`
	SwipedID  string    `json:"swiped_id"`
	Liked     bool      `json:"liked"`
	CreatedAt time.Time `json:"created_at"`
}

// Key returns the ordered pair key of the swipe.
func (s *Swipe) Key() SwipeKey {
	return SwipeKey{SwiperID: s.SwiperID, SwipedID: s.SwipedID}
}

// SwipeKey identifies a swipe by its ordered pair.
type SwipeKey struct {
	SwiperID string
	SwipedID string
}

// Reverse returns the key of the reciprocal swipe.
func (k SwipeKey) Reverse() SwipeKey {
	return SwipeKey{SwiperID: k.SwipedID, SwipedID: k.SwiperID}
}

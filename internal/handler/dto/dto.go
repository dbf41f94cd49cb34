// Package dto provides Data Transfer Objects for API requests and responses.
package dto

// ErrorResponse represents an API error.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
	// CreditsRemaining is only set on insufficient credit rejections.
	CreditsRemaining *int `json:"credits_remaining,omitempty"`
}

// ListResponse wraps a collection.
type ListResponse[T any] struct {
	Data []T `json:"data"`
}

// NewListResponse converts items with fn.
func NewListResponse[M any, T any](items []M, fn func(M) T) *ListResponse[T] {
	data := make([]T, len(items))
	for i, item := range items {
		data[i] = fn(item)
	}
	return &ListResponse[T]{Data: data}
}

package types

import "errors"

var (
	ErrNotFound     = errors.New("requested item not found")
	ErrInvalidInput = errors.New("invalid input")
)

// Response is the error body written by api.ErrorResponse.
type Response struct {
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

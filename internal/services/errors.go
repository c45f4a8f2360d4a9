package services

import (
	"errors"
	"fmt"
)

var (
	ErrRateLimited      = errors.New("rate_limited")
	ErrLessonNotFound   = errors.New("lesson not found")
	ErrAIUnconfigured   = errors.New("gemini api key not configured")
	ErrEmptyCompletion  = errors.New("no content in gemini response")
	ErrCircuitOpen      = errors.New("gemini circuit breaker open")
	ErrSessionNotFound  = errors.New("quiz session not found")
	ErrSessionCompleted = errors.New("quiz session already completed")
	ErrInvalidAnswer    = errors.New("invalid answer")
)

// UpstreamError is a non-2xx reply from a third-party API.
type UpstreamError struct {
	Service string
	Status  int
	Body    string
	Message string
}

func (e *UpstreamError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s api: %d: %s", e.Service, e.Status, e.Message)
	}
	return fmt.Sprintf("%s api: %d", e.Service, e.Status)
}

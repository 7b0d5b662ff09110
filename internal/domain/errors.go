package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionNotFound is returned when a survey id references no live session.
	ErrSessionNotFound = errors.New("survey session not found")
	// ErrQuestionSetNotFound indicates the question content could not be loaded.
	ErrQuestionSetNotFound = errors.New("question set not found")
	// ErrAudioNotFound is returned when a requested audio file is absent.
	ErrAudioNotFound = errors.New("audio file not found")
)

// ValidationError reports a missing or malformed client-supplied field.
// It is always a client-input problem and maps to a 400 at the boundary.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Validationf builds a ValidationError with a formatted message.
func Validationf(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// UpstreamError reports a failed call to the speech provider, carrying the
// provider's status and body when a response was received. Status is zero for
// transport failures (connection refused, timeout).
type UpstreamError struct {
	Status int
	Body   string
	Err    error
}

func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("speech provider: %v", e.Err)
	}
	return fmt.Sprintf("speech provider returned %d: %s", e.Status, e.Body)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

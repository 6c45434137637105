package model

import (
	"errors"
	"fmt"
)

// Sentinel errors for the provider and model taxonomy. Wrapped errors carry
// context; callers classify with errors.Is.
var (
	ErrUserNotFound      = errors.New("user not found")
	ErrPrivateAccount    = errors.New("account is private or suspended")
	ErrProviderRateLimit = errors.New("provider rate limited")

	ErrModelUnavailable = errors.New("model unavailable")
	ErrModelTimeout     = errors.New("model timed out")
)

// EmptyCorpusError indicates the user has zero eligible content items.
// Fatal with no retry: no content can ever appear by waiting.
type EmptyCorpusError struct {
	Username string
}

func (e *EmptyCorpusError) Error() string {
	return fmt.Sprintf("no public posts or comments found for user %q", e.Username)
}

// StageError tags a fatal failure with the pipeline stage that produced it.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether the error is transient and worth another
// bounded-backoff attempt.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrProviderRateLimit) ||
		errors.Is(err, ErrModelUnavailable) ||
		errors.Is(err, ErrModelTimeout)
}

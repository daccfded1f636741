package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrExtraction marks an unreadable or corrupt document. Per-document,
	// never fatal to a batch.
	ErrExtraction = errors.New("document extraction failed")

	// ErrInferenceUnavailable marks a failed or timed-out AI call. It is
	// absorbed into fallback classification, not surfaced as a hard error.
	ErrInferenceUnavailable = errors.New("inference service unavailable")

	// ErrInvalidRule marks a malformed workflow rule, rejected at creation.
	ErrInvalidRule = errors.New("invalid workflow rule")

	// ErrInvalidCategory marks a category outside the configured set.
	ErrInvalidCategory = errors.New("invalid category")

	// ErrPersistence marks a failed job-state save. The task transition it
	// followed is still recorded in memory first.
	ErrPersistence = errors.New("persistence failure")

	ErrJobNotFound  = errors.New("job not found")
	ErrRuleNotFound = errors.New("rule not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrTemporary    = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

package service

import (
	"errors"
	"fmt"

	"tripcart/internal/pricing"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrRateLimited     = errors.New("too many searches, try again later")
	ErrPaymentFailed   = errors.New("payment failed")
	// ErrCollaborator is the pricing client's sentinel, re-exported for callers
	// of the service.
	ErrCollaborator = pricing.ErrCollaborator
)

// collaboratorError makes sure err matches ErrCollaborator without wrapping
// it twice.
func collaboratorError(err error) error {
	if errors.Is(err, ErrCollaborator) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrCollaborator, err)
}

package domain

import (
	"errors"
	"fmt"
)

// Error categories. Every error returned by the engine wraps exactly one of them,
// so callers can branch with errors.Is on the category or on the specific error.
var (
	ErrValidation          = errors.New("validation error")
	ErrState               = errors.New("state error")
	ErrAuthorization       = errors.New("authorization error")
	ErrNotFound            = errors.New("not found")
	ErrConcurrencyConflict = errors.New("concurrency conflict")
	ErrSystem              = errors.New("system error")
)

var (
	ErrAuctionNotFound  = fmt.Errorf("%w: auction not found", ErrNotFound)
	ErrProxyBidNotFound = fmt.Errorf("%w: proxy bid not found", ErrNotFound)

	ErrAuctionNotActive     = fmt.Errorf("%w: auction is not active", ErrState)
	ErrAuctionEnded         = fmt.Errorf("%w: auction has already ended", ErrState)
	ErrAuctionNotEnded      = fmt.Errorf("%w: auction end time has not been reached", ErrState)
	ErrIllegalTransition    = fmt.Errorf("%w: illegal auction status transition", ErrState)
	ErrNoPendingSettlement  = fmt.Errorf("%w: auction has no pending settlement", ErrState)
	ErrSellerCannotBid      = fmt.Errorf("%w: seller cannot bid on own auction", ErrAuthorization)
	ErrInvalidAmount        = fmt.Errorf("%w: amount must be greater than zero", ErrValidation)
	ErrBidAmountTooLow      = fmt.Errorf("%w: bid amount is below the required minimum", ErrValidation)
	ErrPriceNotIncreasing   = fmt.Errorf("%w: new price must exceed current price", ErrValidation)
	ErrProxyMaxTooLow       = fmt.Errorf("%w: proxy maximum must exceed current price", ErrValidation)
	ErrInvalidIncrement     = fmt.Errorf("%w: increment must be greater than zero", ErrValidation)
	ErrInvalidAuctionWindow = fmt.Errorf("%w: auction end time must be after start time", ErrValidation)
	ErrVersionConflict      = fmt.Errorf("%w: auction was modified concurrently", ErrConcurrencyConflict)
)

// Kind returns the category an error belongs to, nil when it carries none.
func Kind(err error) error {
	for _, kind := range []error{
		ErrValidation, ErrState, ErrAuthorization, ErrNotFound, ErrConcurrencyConflict, ErrSystem,
	} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

// Code is a stable machine readable name for the category of err.
func Code(err error) string {
	switch Kind(err) {
	case ErrValidation:
		return "validation_error"
	case ErrState:
		return "state_error"
	case ErrAuthorization:
		return "authorization_error"
	case ErrNotFound:
		return "not_found"
	case ErrConcurrencyConflict:
		return "concurrency_conflict"
	default:
		return "system_error"
	}
}

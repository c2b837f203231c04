package shared

import (
	"errors"
	"fmt"
)

// Kind classifies a domain error. Callers branch on the kind, never on the message.
type Kind string

const (
	KindNotFound        Kind = "not_found"
	KindForbidden       Kind = "forbidden"
	KindInvalidState    Kind = "invalid_state"
	KindInvalidArgument Kind = "invalid_argument"
	KindTimeout         Kind = "timeout"
	KindConflict        Kind = "conflict"
)

// Error is the typed error returned by the auction core
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error of the same kind. A target without a message
// matches every error of its kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Message == "" || t.Message == e.Message
}

func newError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Kind sentinels
var (
	ErrNotFound        = &Error{Kind: KindNotFound}
	ErrForbidden       = &Error{Kind: KindForbidden}
	ErrInvalidState    = &Error{Kind: KindInvalidState}
	ErrInvalidArgument = &Error{Kind: KindInvalidArgument}
	ErrTimeout         = &Error{Kind: KindTimeout}
	ErrConflict        = &Error{Kind: KindConflict}
)

// Domain-specific errors
var (
	// Lookup errors
	ErrAuctionNotFound  = newError(KindNotFound, "auction not found")
	ErrBidNotFound      = newError(KindNotFound, "bid not found")
	ErrCategoryNotFound = newError(KindNotFound, "category not found")

	// Lifecycle errors
	ErrAuctionNotStarted   = newError(KindInvalidState, "auction not started")
	ErrAuctionEnded        = newError(KindInvalidState, "auction ended")
	ErrAuctionAlreadyEnded = newError(KindInvalidState, "auction already ended")

	// Actor errors
	ErrOwnerCannotBid  = newError(KindForbidden, "owner cannot bid on own auction")
	ErrNotAuctionOwner = newError(KindForbidden, "only the auction owner can approve a bid")

	// Bid errors
	ErrBidAmountInvalid = newError(KindInvalidArgument, "bid amount must be greater than 0")
	ErrBidTooLow        = newError(KindInvalidArgument, "bid amount must be higher than current highest bid")
	ErrAmountPrecision  = newError(KindInvalidArgument, "amounts may have at most 2 decimal places")

	// Auction creation errors
	ErrTitleRequired       = newError(KindInvalidArgument, "title is required")
	ErrDescriptionRequired = newError(KindInvalidArgument, "description is required")
	ErrImageRequired       = newError(KindInvalidArgument, "image is required")
	ErrCategoryRequired    = newError(KindInvalidArgument, "category is required")
	ErrOwnerRequired       = newError(KindInvalidArgument, "owner is required")
	ErrInvalidStartingBid  = newError(KindInvalidArgument, "starting bid must be greater than 0")
	ErrInvalidReservePrice = newError(KindInvalidArgument, "reserve price must be greater than or equal to starting bid")
	ErrInvalidStartTime    = newError(KindInvalidArgument, "start time must be in the future")
	ErrInvalidEndTime      = newError(KindInvalidArgument, "end time must be after start time")
	ErrAuctionTooShort     = newError(KindInvalidArgument, "auction must last at least 30 minutes")
	ErrInvalidStatusFilter = newError(KindInvalidArgument, "invalid status filter")

	// Transaction errors
	ErrOperationTimeout = newError(KindTimeout, "operation timed out, retry the request")
	ErrTooManyConflicts = newError(KindConflict, "concurrent update conflict, retry the request")

	// Settlement errors
	ErrNotSettled = newError(KindNotFound, "auction has not been settled")
)

// BidTooLow reports the current highest value a new bid has to beat.
func BidTooLow(currentHighest fmt.Stringer) error {
	return &Error{
		Kind:    KindInvalidArgument,
		Message: fmt.Sprintf("bid amount must be higher than current highest bid of $%s", currentHighest),
		Err:     ErrBidTooLow,
	}
}

// KindOf returns the kind of a domain error, or "" for anything else.
func KindOf(err error) Kind {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Kind
	}
	return ""
}

// IsRetryable reports whether the caller may retry the request unchanged.
func IsRetryable(err error) bool {
	kind := KindOf(err)
	return kind == KindTimeout || kind == KindConflict
}

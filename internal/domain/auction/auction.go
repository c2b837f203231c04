package auction

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MinDuration is the shortest auction a seller may list
const MinDuration = 30 * time.Minute

// Status represents the lifecycle status of an auction
type Status string

const (
	StatusScheduled Status = "SCHEDULED"
	StatusLive      Status = "LIVE"
	StatusEnded     Status = "ENDED"
)

// rank orders statuses along the only allowed direction of travel
func (s Status) rank() int {
	switch s {
	case StatusScheduled:
		return 0
	case StatusLive:
		return 1
	case StatusEnded:
		return 2
	}
	return -1
}

// Valid returns true for the three lifecycle statuses
func (s Status) Valid() bool {
	return s.rank() >= 0
}

// Before returns true if s comes strictly earlier in the lifecycle than other
func (s Status) Before(other Status) bool {
	return s.rank() < other.rank()
}

// ParseStatus parses a status filter, case-insensitively
func ParseStatus(raw string) (Status, bool) {
	for _, s := range []Status{StatusScheduled, StatusLive, StatusEnded} {
		if strings.EqualFold(strings.TrimSpace(raw), string(s)) {
			return s, true
		}
	}
	return "", false
}

// Auction represents a listing sold to the highest approved bidder
type Auction struct {
	ID           uuid.UUID        `json:"id"`
	Title        string           `json:"title"`
	Description  string           `json:"description"`
	ImageURL     string           `json:"image"`
	CategoryID   uuid.UUID        `json:"category_id"`
	OwnerID      uuid.UUID        `json:"owner_id"`
	StartingBid  decimal.Decimal  `json:"starting_bid"`
	ReservePrice *decimal.Decimal `json:"reserve_price,omitempty"`
	StartTime    time.Time        `json:"start_time"`
	EndTime      time.Time        `json:"end_time"`
	Status       Status           `json:"status"`
	WinningBidID *uuid.UUID       `json:"winning_bid_id,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// Resolve derives the lifecycle status of an auction at the given instant.
// The stored status wins when it is further along, so an auction ended by
// settlement stays ended and no status ever moves backwards.
func Resolve(a *Auction, now time.Time) Status {
	derived := StatusScheduled
	switch {
	case !now.Before(a.EndTime):
		derived = StatusEnded
	case !now.Before(a.StartTime):
		derived = StatusLive
	}

	if derived.Before(a.Status) {
		return a.Status
	}
	return derived
}

// IsOwner returns true if the user listed this auction
func (a *Auction) IsOwner(userID uuid.UUID) bool {
	return a.OwnerID == userID
}

// IsSettled returns true once a bid has been approved
func (a *Auction) IsSettled() bool {
	return a.WinningBidID != nil
}

// BelowReserve returns true if the amount does not reach the advisory reserve price
func (a *Auction) BelowReserve(amount decimal.Decimal) bool {
	return a.ReservePrice != nil && amount.LessThan(*a.ReservePrice)
}

// Settle ends the auction in favour of the given bid
func (a *Auction) Settle(bidID uuid.UUID, now time.Time) {
	a.Status = StatusEnded
	a.WinningBidID = &bidID
	a.UpdatedAt = now
}

// Detail is the read model returned to pollers
type Detail struct {
	Auction
	CurrentHighestBid *decimal.Decimal `json:"current_highest_bid"`
	BidCount          int              `json:"bid_count"`
}

// Transition records a status change made by the resolver or the sweep
type Transition struct {
	AuctionID uuid.UUID `json:"auction_id"`
	From      Status    `json:"from"`
	To        Status    `json:"to"`
}

// Filter narrows an auction listing
type Filter struct {
	Status     *Status
	CategoryID *uuid.UUID
	Search     string
	Page       int
	Limit      int
}

// Offset returns the number of rows skipped before the requested page
func (f Filter) Offset() int {
	return (f.Page - 1) * f.Limit
}

// Page is one page of an auction listing
type Page struct {
	Auctions   []*Auction `json:"auctions"`
	TotalCount int        `json:"total_count"`
	Page       int        `json:"page"`
	Limit      int        `json:"limit"`
}

// Matches applies the filter to a single auction using resolved, not stored, status
func (f Filter) Matches(a *Auction, now time.Time) bool {
	if f.Status != nil && Resolve(a, now) != *f.Status {
		return false
	}
	if f.CategoryID != nil && a.CategoryID != *f.CategoryID {
		return false
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(a.Title), needle) &&
			!strings.Contains(strings.ToLower(a.Description), needle) {
			return false
		}
	}
	return true
}

package bid

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status represents the status of a bid
type Status string

const (
	StatusActive  Status = "ACTIVE"
	StatusOutbid  Status = "OUTBID"
	StatusWinning Status = "WINNING"
	StatusWon     Status = "WON"
)

// Bid represents a bid on an auction
type Bid struct {
	ID        uuid.UUID       `json:"id"`
	AuctionID uuid.UUID       `json:"auction_id"`
	BidderID  uuid.UUID       `json:"bidder_id"`
	Amount    decimal.Decimal `json:"amount"`
	Status    Status          `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// New creates a bid that takes the lead on its auction
func New(auctionID, bidderID uuid.UUID, amount decimal.Decimal, now time.Time) *Bid {
	return &Bid{
		ID:        uuid.New(),
		AuctionID: auctionID,
		BidderID:  bidderID,
		Amount:    amount,
		Status:    StatusWinning,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsStanding returns true if the bid still counts towards the current highest
func (b *Bid) IsStanding() bool {
	return b.Status == StatusActive || b.Status == StatusWinning
}

// IsLeading returns true if the bid holds the single leading position
func (b *Bid) IsLeading() bool {
	return b.Status == StatusWinning || b.Status == StatusWon
}

// Outbid marks the bid as superseded
func (b *Bid) Outbid(now time.Time) {
	b.Status = StatusOutbid
	b.UpdatedAt = now
}

// Win marks the bid as the approved winner
func (b *Bid) Win(now time.Time) {
	b.Status = StatusWon
	b.UpdatedAt = now
}

// Highest returns the standing bid with the largest amount, earliest first on ties
func Highest(bids []*Bid) *Bid {
	var highest *Bid
	for _, b := range bids {
		if !b.IsStanding() {
			continue
		}
		if highest == nil ||
			b.Amount.GreaterThan(highest.Amount) ||
			(b.Amount.Equal(highest.Amount) && b.CreatedAt.Before(highest.CreatedAt)) {
			highest = b
		}
	}
	return highest
}

// CurrentHighest returns the value a new bid has to exceed
func CurrentHighest(startingBid decimal.Decimal, standing *Bid) decimal.Decimal {
	if standing != nil && standing.Amount.GreaterThan(startingBid) {
		return standing.Amount
	}
	return startingBid
}

// Placement describes an admitted bid together with the leader it displaced
type Placement struct {
	Bid             *Bid            `json:"bid"`
	PreviousLeader  *uuid.UUID      `json:"previous_leader,omitempty"`
	PreviousHighest decimal.Decimal `json:"previous_highest"`
}

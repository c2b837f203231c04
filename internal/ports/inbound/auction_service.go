package inbound

import (
	"context"
	"time"

	"marketplace-auction-service/internal/domain/auction"
	"marketplace-auction-service/internal/domain/bid"
	"marketplace-auction-service/internal/domain/order"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AuctionService defines the interface for auction operations
type AuctionService interface {
	// CreateAuction creates a new auction
	CreateAuction(ctx context.Context, req CreateAuctionRequest) (*auction.Auction, error)

	// GetAuction retrieves an auction with its current highest bid and bid count
	GetAuction(ctx context.Context, auctionID uuid.UUID) (*auction.Detail, error)

	// ListAuctions retrieves a page of auctions
	ListAuctions(ctx context.Context, req ListAuctionsRequest) (*auction.Page, error)

	// SweepStatuses advances every lagging auction status and returns how many moved
	SweepStatuses(ctx context.Context) (int, error)
}

// BidService defines the interface for bid operations
type BidService interface {
	// PlaceBid places a new bid on an auction
	PlaceBid(ctx context.Context, req PlaceBidRequest) (*bid.Bid, error)

	// ListBids retrieves bids for an auction, highest first
	ListBids(ctx context.Context, auctionID uuid.UUID) ([]*bid.Bid, error)
}

// SettlementService defines the interface for settling auctions
type SettlementService interface {
	// ApproveBid ends the auction in favour of a bid and creates the order
	ApproveBid(ctx context.Context, req ApproveBidRequest) (*order.Settlement, error)

	// GetSettlement retrieves the order created for a settled auction
	GetSettlement(ctx context.Context, auctionID uuid.UUID) (*order.Settlement, error)
}

// request to create an auction
type CreateAuctionRequest struct {
	Title        string           `json:"title"`
	Description  string           `json:"description"`
	ImageURL     string           `json:"image"`
	CategoryID   uuid.UUID        `json:"category_id"`
	OwnerID      uuid.UUID        `json:"owner_id"`
	StartingBid  decimal.Decimal  `json:"starting_bid"`
	ReservePrice *decimal.Decimal `json:"reserve_price,omitempty"`
	StartTime    time.Time        `json:"start_time"`
	EndTime      time.Time        `json:"end_time"`
}

// request to list auctions
type ListAuctionsRequest struct {
	Status     *auction.Status `json:"status,omitempty"`
	CategoryID *uuid.UUID      `json:"category_id,omitempty"`
	Search     string          `json:"search,omitempty"`
	Page       int             `json:"page"`
	Limit      int             `json:"limit"`
}

// request to place a bid
type PlaceBidRequest struct {
	AuctionID uuid.UUID       `json:"auction_id"`
	BidderID  uuid.UUID       `json:"bidder_id"`
	Amount    decimal.Decimal `json:"amount"`
}

// request to approve a bid
type ApproveBidRequest struct {
	AuctionID  uuid.UUID `json:"auction_id"`
	BidID      uuid.UUID `json:"bid_id"`
	ApproverID uuid.UUID `json:"approver_id"`
}

package outbound

import (
	"context"
	"time"

	"marketplace-auction-service/internal/domain/auction"
	"marketplace-auction-service/internal/domain/bid"
	"marketplace-auction-service/internal/domain/order"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AuctionRepository defines the interface for auction data operations outside
// the auction-scoped transaction
type AuctionRepository interface {
	// Create creates a new auction
	Create(ctx context.Context, auction *auction.Auction) error

	// GetByID retrieves an auction by ID
	GetByID(ctx context.Context, id uuid.UUID) (*auction.Auction, error)

	// List retrieves one page of auctions ordered by start time, plus the total
	// number of matches. Status filters are evaluated as of now.
	List(ctx context.Context, filter auction.Filter, now time.Time) ([]*auction.Auction, int, error)

	// AdvanceStatus moves an auction from one status to the next only if it is
	// still in the expected status. Returns false when another writer got there first.
	AdvanceStatus(ctx context.Context, id uuid.UUID, from, to auction.Status, now time.Time) (bool, error)

	// SweepStatuses advances every auction whose stored status lags behind the clock
	SweepStatuses(ctx context.Context, now time.Time) ([]auction.Transition, error)
}

// BidRepository defines the interface for bid reads
type BidRepository interface {
	// GetByAuctionID retrieves all bids for an auction, highest amount first
	GetByAuctionID(ctx context.Context, auctionID uuid.UUID) ([]*bid.Bid, error)

	// Summary returns the highest standing amount (nil without bids) and the bid count
	Summary(ctx context.Context, auctionID uuid.UUID) (*decimal.Decimal, int, error)
}

// CategoryRepository answers category existence checks against the catalog
type CategoryRepository interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

// OrderRepository reads settlement records
type OrderRepository interface {
	// GetSettlement returns the order, order line and snapshot written when the auction was settled
	GetSettlement(ctx context.Context, auctionID uuid.UUID) (*order.Settlement, error)
}

// AuctionTx is the view of the store inside a transaction that holds the
// auction row (and therefore its bid set) exclusively.
type AuctionTx interface {
	// HighestStandingBid returns the highest ACTIVE or WINNING bid, or nil
	HighestStandingBid(ctx context.Context, auctionID uuid.UUID) (*bid.Bid, error)

	// GetBid retrieves a bid by ID
	GetBid(ctx context.Context, id uuid.UUID) (*bid.Bid, error)

	// OutbidStanding marks the current WINNING bid and the bidder's own
	// ACTIVE or WINNING bids as OUTBID
	OutbidStanding(ctx context.Context, auctionID, bidderID uuid.UUID, now time.Time) (int64, error)

	// InsertBid stores a new bid
	InsertBid(ctx context.Context, bid *bid.Bid) error

	// SettleBids marks the winning bid WON and every other bid on the auction OUTBID
	SettleBids(ctx context.Context, auctionID, winningBidID uuid.UUID, now time.Time) (int64, error)

	// UpdateAuction persists status, winning bid and update time
	UpdateAuction(ctx context.Context, auction *auction.Auction) error

	// InsertSettlement stores the sold-item snapshot, order and order line
	InsertSettlement(ctx context.Context, settlement *order.Settlement) error
}

// TxManager runs work inside a transaction scoped to one auction
type TxManager interface {
	// WithinAuction locks the auction row, hands the locked record to fn and
	// commits only if fn returns nil. Returns shared.ErrAuctionNotFound when
	// the auction does not exist.
	WithinAuction(ctx context.Context, auctionID uuid.UUID, fn func(ctx context.Context, tx AuctionTx, locked *auction.Auction) error) error
}

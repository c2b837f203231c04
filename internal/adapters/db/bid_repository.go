package db

import (
	"context"
	"fmt"

	"marketplace-auction-service/internal/domain/bid"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var bidColumns = []string{"id", "auction_id", "bidder_id", "amount", "status", "created_at", "updated_at"}

var standingStatuses = []string{string(bid.StatusActive), string(bid.StatusWinning)}

// BidRepository implements the bid repository interface
type BidRepository struct {
	conn *Connection
}

// NewBidRepository creates a new bid repository
func NewBidRepository(conn *Connection) *BidRepository {
	return &BidRepository{conn: conn}
}

// GetByAuctionID retrieves all bids for an auction, highest amount first
func (r *BidRepository) GetByAuctionID(ctx context.Context, auctionID uuid.UUID) ([]*bid.Bid, error) {
	query, args, err := r.conn.Builder().
		Select(bidColumns...).
		From("bids").
		Where(squirrel.Eq{"auction_id": auctionID}).
		OrderBy("amount DESC", "created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build bid query: %w", err)
	}

	rows, err := r.conn.GetDB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get bids: %w", err)
	}
	defer rows.Close()

	bids := make([]*bid.Bid, 0)
	for rows.Next() {
		b, err := scanBid(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bid: %w", err)
		}
		bids = append(bids, b)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bids: %w", err)
	}

	return bids, nil
}

// Summary returns the highest non-superseded amount and the number of bids
func (r *BidRepository) Summary(ctx context.Context, auctionID uuid.UUID) (*decimal.Decimal, int, error) {
	query, args, err := summaryQuery(r.conn.Builder(), auctionID).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build bid summary: %w", err)
	}

	var highest decimal.NullDecimal
	var count int
	if err := r.conn.GetDB().QueryRowContext(ctx, query, args...).Scan(&highest, &count); err != nil {
		return nil, 0, fmt.Errorf("failed to summarise bids: %w", err)
	}

	if !highest.Valid {
		return nil, count, nil
	}
	return &highest.Decimal, count, nil
}

// a WON bid is settled, not superseded, so it still counts as the highest
func summaryQuery(builder squirrel.StatementBuilderType, auctionID uuid.UUID) squirrel.SelectBuilder {
	return builder.
		Select("MAX(amount) FILTER (WHERE status IN ('ACTIVE', 'WINNING', 'WON'))", "COUNT(*)").
		From("bids").
		Where(squirrel.Eq{"auction_id": auctionID})
}

func scanBid(row rowScanner) (*bid.Bid, error) {
	var b bid.Bid
	err := row.Scan(
		&b.ID,
		&b.AuctionID,
		&b.BidderID,
		&b.Amount,
		&b.Status,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

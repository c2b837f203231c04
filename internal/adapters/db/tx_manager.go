package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"marketplace-auction-service/internal/domain/auction"
	"marketplace-auction-service/internal/domain/bid"
	"marketplace-auction-service/internal/domain/order"
	"marketplace-auction-service/internal/domain/shared"
	"marketplace-auction-service/internal/ports/outbound"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/rs/zerolog"
)

// PostgreSQL error codes that roll back a transaction worth retrying
const (
	codeSerializationFailure pq.ErrorCode = "40001"
	codeDeadlockDetected     pq.ErrorCode = "40P01"
	codeUniqueViolation      pq.ErrorCode = "23505"
	codeForeignKeyViolation  pq.ErrorCode = "23503"
)

// TxManager runs auction-scoped transactions. The auction row is locked with
// SELECT ... FOR UPDATE, which serializes every mutation of the auction and
// its bids across service instances.
type TxManager struct {
	conn       *Connection
	maxRetries int
	logger     zerolog.Logger
}

type TxManagerParams struct {
	Conn       *Connection
	MaxRetries int
	Logger     zerolog.Logger
}

// NewTxManager creates a new transaction manager
func NewTxManager(params TxManagerParams) *TxManager {
	maxRetries := params.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 1
	}
	return &TxManager{
		conn:       params.Conn,
		maxRetries: maxRetries,
		logger:     params.Logger.With().Str("component", "tx_manager").Logger(),
	}
}

// WithinAuction locks the auction and runs fn, committing only on success.
// Serialization failures, deadlocks and leader index violations are retried.
func (m *TxManager) WithinAuction(ctx context.Context, auctionID uuid.UUID, fn func(ctx context.Context, tx outbound.AuctionTx, locked *auction.Auction) error) error {
	return m.retryConflicts(ctx, auctionID, func() error {
		return m.conn.ExecuteTransaction(ctx, func(sqlTx *sql.Tx) error {
			tx := &auctionTx{tx: sqlTx, builder: m.conn.Builder()}

			locked, err := tx.lockAuction(ctx, auctionID)
			if err != nil {
				return err
			}

			return fn(ctx, tx, locked)
		})
	})
}

// retryConflicts runs attempt until it succeeds, fails for a non-retryable
// reason, or uses up maxRetries. Exhaustion surfaces as a Conflict.
func (m *TxManager) retryConflicts(ctx context.Context, auctionID uuid.UUID, attempt func() error) error {
	var lastErr error

	for n := 1; n <= m.maxRetries; n++ {
		err := attempt()
		if err == nil {
			return nil
		}
		if !isRetryable(err) {
			return err
		}

		lastErr = err
		m.logger.Warn().Err(err).
			Str("auction_id", auctionID.String()).
			Int("attempt", n).
			Msg("Auction transaction conflicted, retrying")

		if ctx.Err() != nil {
			return fmt.Errorf("%w: %v", ctx.Err(), err)
		}
	}

	return &shared.Error{
		Kind:    shared.KindConflict,
		Message: shared.ErrTooManyConflicts.Message,
		Err:     lastErr,
	}
}

func isRetryable(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	switch pqErr.Code {
	case codeSerializationFailure, codeDeadlockDetected, codeUniqueViolation:
		return true
	}
	return false
}

func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == codeForeignKeyViolation
}

// auctionTx implements outbound.AuctionTx on a *sql.Tx
type auctionTx struct {
	tx      *sql.Tx
	builder squirrel.StatementBuilderType
}

func (t *auctionTx) lockAuction(ctx context.Context, auctionID uuid.UUID) (*auction.Auction, error) {
	query, args, err := t.builder.
		Select(auctionColumns...).
		From("auctions").
		Where(squirrel.Eq{"id": auctionID}).
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build auction lock: %w", err)
	}

	a, err := scanAuction(t.tx.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, shared.ErrAuctionNotFound
		}
		return nil, fmt.Errorf("failed to lock auction: %w", err)
	}
	return a, nil
}

func (t *auctionTx) HighestStandingBid(ctx context.Context, auctionID uuid.UUID) (*bid.Bid, error) {
	query, args, err := t.builder.
		Select(bidColumns...).
		From("bids").
		Where(squirrel.Eq{"auction_id": auctionID, "status": standingStatuses}).
		OrderBy("amount DESC", "created_at ASC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build highest bid query: %w", err)
	}

	b, err := scanBid(t.tx.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get highest bid: %w", err)
	}
	return b, nil
}

func (t *auctionTx) GetBid(ctx context.Context, id uuid.UUID) (*bid.Bid, error) {
	query, args, err := t.builder.
		Select(bidColumns...).
		From("bids").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build bid query: %w", err)
	}

	b, err := scanBid(t.tx.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, shared.ErrBidNotFound
		}
		return nil, fmt.Errorf("failed to get bid: %w", err)
	}
	return b, nil
}

func (t *auctionTx) OutbidStanding(ctx context.Context, auctionID, bidderID uuid.UUID, now time.Time) (int64, error) {
	query, args, err := outbidStandingQuery(t.builder, auctionID, bidderID, now).ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build outbid update: %w", err)
	}

	return t.exec(ctx, "failed to outbid standing bids", query, args)
}

// outbidStandingQuery demotes the current leader and every standing bid of the bidder
func outbidStandingQuery(builder squirrel.StatementBuilderType, auctionID, bidderID uuid.UUID, now time.Time) squirrel.UpdateBuilder {
	return builder.
		Update("bids").
		Set("status", bid.StatusOutbid).
		Set("updated_at", now).
		Where(squirrel.Eq{"auction_id": auctionID}).
		Where(squirrel.Or{
			squirrel.Eq{"status": bid.StatusWinning},
			squirrel.And{
				squirrel.Eq{"bidder_id": bidderID},
				squirrel.Eq{"status": standingStatuses},
			},
		})
}

func (t *auctionTx) InsertBid(ctx context.Context, b *bid.Bid) error {
	query, args, err := t.builder.
		Insert("bids").
		Columns(bidColumns...).
		Values(b.ID, b.AuctionID, b.BidderID, b.Amount, b.Status, b.CreatedAt, b.UpdatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build bid insert: %w", err)
	}

	_, err = t.exec(ctx, "failed to insert bid", query, args)
	return err
}

func (t *auctionTx) SettleBids(ctx context.Context, auctionID, winningBidID uuid.UUID, now time.Time) (int64, error) {
	demote, promote := settleBidsStatements(t.builder, auctionID, winningBidID, now)

	query, args, err := demote.ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build bid demotion: %w", err)
	}
	demoted, err := t.exec(ctx, "failed to outbid losing bids", query, args)
	if err != nil {
		return 0, err
	}

	query, args, err = promote.ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build winning bid update: %w", err)
	}
	won, err := t.exec(ctx, "failed to mark winning bid", query, args)
	if err != nil {
		return 0, err
	}
	if won == 0 {
		return 0, shared.ErrBidNotFound
	}

	return demoted + won, nil
}

// settleBidsStatements returns the demotion and the promotion, in the order
// they must run so the leader index never sees two leading bids
func settleBidsStatements(builder squirrel.StatementBuilderType, auctionID, winningBidID uuid.UUID, now time.Time) (demote, promote squirrel.UpdateBuilder) {
	demote = builder.
		Update("bids").
		Set("status", bid.StatusOutbid).
		Set("updated_at", now).
		Where(squirrel.Eq{"auction_id": auctionID}).
		Where(squirrel.NotEq{"id": winningBidID}).
		Where(squirrel.NotEq{"status": bid.StatusOutbid})

	promote = builder.
		Update("bids").
		Set("status", bid.StatusWon).
		Set("updated_at", now).
		Where(squirrel.Eq{"id": winningBidID}).
		Where(squirrel.Eq{"auction_id": auctionID})
	return demote, promote
}

func (t *auctionTx) UpdateAuction(ctx context.Context, a *auction.Auction) error {
	query, args, err := t.builder.
		Update("auctions").
		Set("status", a.Status).
		Set("winning_bid_id", nullUUID(a.WinningBidID)).
		Set("updated_at", a.UpdatedAt).
		Where(squirrel.Eq{"id": a.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build auction update: %w", err)
	}

	updated, err := t.exec(ctx, "failed to update auction", query, args)
	if err != nil {
		return err
	}
	if updated == 0 {
		return shared.ErrAuctionNotFound
	}
	return nil
}

func (t *auctionTx) InsertSettlement(ctx context.Context, settlement *order.Settlement) error {
	s := settlement.SoldItem
	soldItem, args, err := t.builder.
		Insert("sold_items").
		Columns("id", "auction_id", "seller_id", "title", "description", "image_url", "category_id", "price", "available", "created_at").
		Values(s.ID, s.AuctionID, s.SellerID, s.Title, s.Description, s.ImageURL, s.CategoryID, s.Price, s.Available, s.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build sold item insert: %w", err)
	}
	if _, err := t.exec(ctx, "failed to insert sold item", soldItem, args); err != nil {
		return err
	}

	o := settlement.Order
	orderInsert, args, err := t.builder.
		Insert("orders").
		Columns("id", "buyer_id", "auction_id", "total_amount", "status", "created_at").
		Values(o.ID, o.BuyerID, o.AuctionID, o.TotalAmount, o.Status, o.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build order insert: %w", err)
	}
	if _, err := t.exec(ctx, "failed to insert order", orderInsert, args); err != nil {
		return err
	}

	item := settlement.Item
	itemInsert, args, err := t.builder.
		Insert("order_items").
		Columns("id", "order_id", "sold_item_id", "quantity", "price").
		Values(item.ID, item.OrderID, item.SoldItemID, item.Quantity, item.Price).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build order item insert: %w", err)
	}
	_, err = t.exec(ctx, "failed to insert order item", itemInsert, args)
	return err
}

func (t *auctionTx) exec(ctx context.Context, failure, query string, args []interface{}) (int64, error) {
	result, err := t.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", failure, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected, nil
}

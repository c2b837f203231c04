package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"marketplace-auction-service/internal/domain/auction"
	"marketplace-auction-service/internal/domain/shared"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var auctionColumns = []string{
	"id", "title", "description", "image_url", "category_id", "owner_id",
	"starting_bid", "reserve_price", "start_time", "end_time", "status",
	"winning_bid_id", "created_at", "updated_at",
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// AuctionRepository implements the auction repository interface
type AuctionRepository struct {
	conn *Connection
}

// NewAuctionRepository creates a new auction repository
func NewAuctionRepository(conn *Connection) *AuctionRepository {
	return &AuctionRepository{conn: conn}
}

// Create creates a new auction
func (r *AuctionRepository) Create(ctx context.Context, a *auction.Auction) error {
	query, args, err := r.conn.Builder().
		Insert("auctions").
		Columns(auctionColumns...).
		Values(
			a.ID,
			a.Title,
			a.Description,
			a.ImageURL,
			a.CategoryID,
			a.OwnerID,
			a.StartingBid,
			nullDecimal(a.ReservePrice),
			a.StartTime,
			a.EndTime,
			a.Status,
			nullUUID(a.WinningBidID),
			a.CreatedAt,
			a.UpdatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build auction insert: %w", err)
	}

	if _, err := r.conn.GetDB().ExecContext(ctx, query, args...); err != nil {
		if isForeignKeyViolation(err) {
			return shared.ErrCategoryNotFound
		}
		return fmt.Errorf("failed to create auction: %w", err)
	}

	return nil
}

// GetByID retrieves an auction by ID
func (r *AuctionRepository) GetByID(ctx context.Context, id uuid.UUID) (*auction.Auction, error) {
	query, args, err := r.conn.Builder().
		Select(auctionColumns...).
		From("auctions").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build auction query: %w", err)
	}

	a, err := scanAuction(r.conn.GetDB().QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, shared.ErrAuctionNotFound
		}
		return nil, fmt.Errorf("failed to get auction: %w", err)
	}

	return a, nil
}

// List retrieves one page of auctions ordered by start time, plus the total count
func (r *AuctionRepository) List(ctx context.Context, filter auction.Filter, now time.Time) ([]*auction.Auction, int, error) {
	where := filterConditions(filter, now)

	countQuery, countArgs, err := r.conn.Builder().
		Select("COUNT(*)").
		From("auctions").
		Where(where).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build auction count: %w", err)
	}

	var total int
	if err := r.conn.GetDB().QueryRowContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count auctions: %w", err)
	}

	query, args, err := r.conn.Builder().
		Select(auctionColumns...).
		From("auctions").
		Where(where).
		OrderBy("start_time ASC", "id ASC").
		Limit(uint64(filter.Limit)).
		Offset(uint64(filter.Offset())).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build auction list: %w", err)
	}

	rows, err := r.conn.GetDB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list auctions: %w", err)
	}
	defer rows.Close()

	auctions := make([]*auction.Auction, 0, filter.Limit)
	for rows.Next() {
		a, err := scanAuction(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan auction: %w", err)
		}
		auctions = append(auctions, a)
	}

	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating auctions: %w", err)
	}

	return auctions, total, nil
}

// filterConditions mirrors auction.Resolve in SQL so a lagging stored status
// never leaks into a filtered listing
func filterConditions(filter auction.Filter, now time.Time) squirrel.And {
	where := squirrel.And{}

	if filter.Status != nil {
		switch *filter.Status {
		case auction.StatusScheduled:
			where = append(where,
				squirrel.Eq{"status": auction.StatusScheduled},
				squirrel.Gt{"start_time": now},
			)
		case auction.StatusLive:
			where = append(where,
				squirrel.NotEq{"status": auction.StatusEnded},
				squirrel.Gt{"end_time": now},
				squirrel.Or{squirrel.LtOrEq{"start_time": now}, squirrel.Eq{"status": auction.StatusLive}},
			)
		case auction.StatusEnded:
			where = append(where, squirrel.Or{
				squirrel.Eq{"status": auction.StatusEnded},
				squirrel.LtOrEq{"end_time": now},
			})
		}
	}

	if filter.CategoryID != nil {
		where = append(where, squirrel.Eq{"category_id": *filter.CategoryID})
	}

	if filter.Search != "" {
		pattern := "%" + likeEscaper.Replace(filter.Search) + "%"
		where = append(where, squirrel.Or{
			squirrel.ILike{"title": pattern},
			squirrel.ILike{"description": pattern},
		})
	}

	return where
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// AdvanceStatus moves an auction forward only if it is still in the expected status
func (r *AuctionRepository) AdvanceStatus(ctx context.Context, id uuid.UUID, from, to auction.Status, now time.Time) (bool, error) {
	if !from.Before(to) {
		return false, nil
	}

	query, args, err := r.conn.Builder().
		Update("auctions").
		Set("status", to).
		Set("updated_at", now).
		Where(squirrel.Eq{"id": id, "status": from}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build status update: %w", err)
	}

	result, err := r.conn.GetDB().ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to advance auction status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}

// SweepStatuses advances every auction whose stored status lags behind the
// clock. Each row moves through its own conditional update.
func (r *AuctionRepository) SweepStatuses(ctx context.Context, now time.Time) ([]auction.Transition, error) {
	query, args, err := r.conn.Builder().
		Select(auctionColumns...).
		From("auctions").
		Where(squirrel.NotEq{"status": auction.StatusEnded}).
		Where(squirrel.Or{
			squirrel.LtOrEq{"end_time": now},
			squirrel.And{squirrel.Eq{"status": auction.StatusScheduled}, squirrel.LtOrEq{"start_time": now}},
		}).
		OrderBy("start_time ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build sweep query: %w", err)
	}

	rows, err := r.conn.GetDB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to find lagging auctions: %w", err)
	}

	var candidates []*auction.Auction
	for rows.Next() {
		a, err := scanAuction(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan auction: %w", err)
		}
		candidates = append(candidates, a)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating auctions: %w", err)
	}

	transitions := make([]auction.Transition, 0, len(candidates))
	for _, a := range candidates {
		to := auction.Resolve(a, now)
		advanced, err := r.AdvanceStatus(ctx, a.ID, a.Status, to, now)
		if err != nil {
			return transitions, err
		}
		if advanced {
			transitions = append(transitions, auction.Transition{AuctionID: a.ID, From: a.Status, To: to})
		}
	}

	return transitions, nil
}

func scanAuction(row rowScanner) (*auction.Auction, error) {
	var a auction.Auction
	var reserve decimal.NullDecimal
	var winning uuid.NullUUID

	err := row.Scan(
		&a.ID,
		&a.Title,
		&a.Description,
		&a.ImageURL,
		&a.CategoryID,
		&a.OwnerID,
		&a.StartingBid,
		&reserve,
		&a.StartTime,
		&a.EndTime,
		&a.Status,
		&winning,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if reserve.Valid {
		a.ReservePrice = &reserve.Decimal
	}
	if winning.Valid {
		a.WinningBidID = &winning.UUID
	}
	a.StartTime = a.StartTime.UTC()
	a.EndTime = a.EndTime.UTC()

	return &a, nil
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}

func nullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}

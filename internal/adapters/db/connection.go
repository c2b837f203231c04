package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"marketplace-auction-service/internal/config"
	"marketplace-auction-service/internal/domain/shared"

	"github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"
)

// Connection represents a database connection
type Connection struct {
	db      *sql.DB
	builder squirrel.StatementBuilderType
}

// NewConnection creates a new database connection
func NewConnection(ctx context.Context, cfg *config.Config) (*Connection, error) {
	db, err := sql.Open("postgres", cfg.Database.GetConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Connection{
		db:      db,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}, nil
}

// GetDB returns the underlying sql.DB instance
func (client *Connection) GetDB() *sql.DB {
	return client.db
}

// Builder returns a statement builder using PostgreSQL placeholders
func (client *Connection) Builder() squirrel.StatementBuilderType {
	return client.builder
}

// Close closes the database connection
func (client *Connection) Close() error {
	return client.db.Close()
}

// BeginTransaction starts a new database transaction
func (client *Connection) BeginTransaction(ctx context.Context) (*sql.Tx, error) {
	tx, err := client.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return tx, nil
}

// ExecuteTransaction executes a function within a transaction. When ctx is
// done the driver aborts the statement; infrastructure errors then wrap ctx.Err().
func (client *Connection) ExecuteTransaction(ctx context.Context, fn func(*sql.Tx) error) (err error) {
	defer func() {
		if err != nil && ctx.Err() != nil && shared.KindOf(err) == "" {
			err = fmt.Errorf("%w: %v", ctx.Err(), err)
		}
	}()

	tx, err := client.BeginTransaction(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
			return fmt.Errorf("tx failed: %w, rollback failed: %v", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

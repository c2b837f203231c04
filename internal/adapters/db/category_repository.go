package db

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
)

// CategoryRepository answers existence checks against the categories table
type CategoryRepository struct {
	conn *Connection
}

// NewCategoryRepository creates a new category repository
func NewCategoryRepository(conn *Connection) *CategoryRepository {
	return &CategoryRepository{conn: conn}
}

// Exists returns true if the category is known
func (r *CategoryRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	sub, args, err := r.conn.Builder().
		Select("1").
		From("categories").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build category query: %w", err)
	}

	var exists bool
	if err := r.conn.GetDB().QueryRowContext(ctx, "SELECT EXISTS ("+sub+")", args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check category: %w", err)
	}

	return exists, nil
}

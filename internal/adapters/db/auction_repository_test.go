package db

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"marketplace-auction-service/internal/domain/auction"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildFilter(t *testing.T, filter auction.Filter, now time.Time) (string, []interface{}) {
	t.Helper()
	query, args, err := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar).
		Select("id").
		From("auctions").
		Where(filterConditions(filter, now)).
		ToSql()
	require.NoError(t, err)
	return query, args
}

func TestFilterConditions_StatusUsesResolvedSemantics(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		status   auction.Status
		contains []string
	}{
		{auction.StatusScheduled, []string{"status = $1", "start_time > $2"}},
		{auction.StatusLive, []string{"status <> $1", "end_time > $2", "start_time <= $3 OR status = $4"}},
		{auction.StatusEnded, []string{"status = $1 OR end_time <= $2"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			status := tt.status
			query, args := buildFilter(t, auction.Filter{Status: &status}, now)
			for _, fragment := range tt.contains {
				assert.Contains(t, query, fragment)
			}
			assert.Contains(t, args, now)
		})
	}
}

func TestFilterConditions_CategoryAndSearch(t *testing.T) {
	category := uuid.New()
	query, args := buildFilter(t, auction.Filter{CategoryID: &category, Search: "50%_off"}, time.Now())

	assert.Contains(t, query, "category_id = $1")
	assert.Contains(t, query, "title ILIKE $2 OR description ILIKE $3")
	require.Len(t, args, 3)
	assert.Equal(t, `%50\%\_off%`, args[1])
}

func TestFilterConditions_Empty(t *testing.T) {
	query, args := buildFilter(t, auction.Filter{}, time.Now())
	assert.Contains(t, query, "(1=1)")
	assert.Empty(t, args)
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"serialization failure", &pq.Error{Code: "40001"}, true},
		{"deadlock", fmt.Errorf("failed to insert bid: %w", &pq.Error{Code: "40P01"}), true},
		{"leader index violation", &pq.Error{Code: "23505"}, true},
		{"check violation", &pq.Error{Code: "23514"}, false},
		{"plain error", errors.New("connection reset"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isRetryable(tt.err))
		})
	}
}

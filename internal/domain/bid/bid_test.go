package bid

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/peterldowns/testy/check"
	"github.com/shopspring/decimal"
)

func TestNew(t *testing.T) {
	now := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	b := New(uuid.New(), uuid.New(), decimal.NewFromInt(25), now)

	check.NotEqual(t, uuid.Nil, b.ID)
	check.Equal(t, StatusWinning, b.Status)
	check.True(t, b.IsStanding())
	check.True(t, b.IsLeading())
	check.Equal(t, now, b.CreatedAt)
}

func TestStatusTransitions(t *testing.T) {
	now := time.Now()
	b := New(uuid.New(), uuid.New(), decimal.NewFromInt(25), now)

	b.Outbid(now)
	check.Equal(t, StatusOutbid, b.Status)
	check.False(t, b.IsStanding())
	check.False(t, b.IsLeading())

	b.Win(now)
	check.Equal(t, StatusWon, b.Status)
	check.False(t, b.IsStanding())
	check.True(t, b.IsLeading())
}

func TestHighest(t *testing.T) {
	now := time.Now()
	auctionID := uuid.New()
	mk := func(amount string, status Status, at time.Time) *Bid {
		b := New(auctionID, uuid.New(), decimal.RequireFromString(amount), at)
		b.Status = status
		return b
	}

	check.Nil(t, Highest(nil))

	earlier := mk("30", StatusActive, now)
	later := mk("30", StatusWinning, now.Add(time.Second))
	bids := []*Bid{
		mk("20", StatusActive, now),
		mk("99", StatusOutbid, now),
		later,
		earlier,
	}

	check.Equal(t, earlier.ID, Highest(bids).ID)

	onlyOutbid := []*Bid{mk("50", StatusOutbid, now)}
	check.Nil(t, Highest(onlyOutbid))
}

func TestCurrentHighest(t *testing.T) {
	starting := decimal.NewFromInt(10)
	standing := New(uuid.New(), uuid.New(), decimal.NewFromInt(15), time.Now())

	check.True(t, CurrentHighest(starting, nil).Equal(starting))
	check.True(t, CurrentHighest(starting, standing).Equal(decimal.NewFromInt(15)))

	low := New(uuid.New(), uuid.New(), decimal.NewFromInt(5), time.Now())
	check.True(t, CurrentHighest(starting, low).Equal(starting))
}

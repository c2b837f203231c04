package order

import (
	"testing"
	"time"

	"marketplace-auction-service/internal/domain/auction"
	"marketplace-auction-service/internal/domain/bid"

	"github.com/google/uuid"
	"github.com/peterldowns/testy/check"
	"github.com/shopspring/decimal"
)

func TestNewSettlement(t *testing.T) {
	now := time.Date(2026, 4, 1, 10, 30, 0, 0, time.UTC)
	a := &auction.Auction{
		ID:          uuid.New(),
		Title:       "Oak Desk",
		Description: "Solid oak writing desk",
		ImageURL:    "images/desk.jpg",
		CategoryID:  uuid.New(),
		OwnerID:     uuid.New(),
		StartingBid: decimal.NewFromInt(100),
		Status:      auction.StatusLive,
	}
	winning := bid.New(a.ID, uuid.New(), decimal.RequireFromString("150.25"), now)

	s := NewSettlement(a, winning, now)

	check.Equal(t, a.ID, s.SoldItem.AuctionID)
	check.Equal(t, a.OwnerID, s.SoldItem.SellerID)
	check.Equal(t, "Oak Desk", s.SoldItem.Title)
	check.Equal(t, "images/desk.jpg", s.SoldItem.ImageURL)
	check.False(t, s.SoldItem.Available)
	check.True(t, s.SoldItem.Price.Equal(winning.Amount))

	check.Equal(t, winning.BidderID, s.Order.BuyerID)
	check.Equal(t, a.ID, s.Order.AuctionID)
	check.Equal(t, StatusCompleted, s.Order.Status)
	check.True(t, s.Order.TotalAmount.Equal(winning.Amount))

	check.Equal(t, s.Order.ID, s.Item.OrderID)
	check.Equal(t, s.SoldItem.ID, s.Item.SoldItemID)
	check.Equal(t, 1, s.Item.Quantity)
	check.True(t, s.Item.Price.Equal(winning.Amount))
}

func TestNewSettlement_SnapshotIsIndependent(t *testing.T) {
	now := time.Now()
	a := &auction.Auction{ID: uuid.New(), Title: "Lamp", OwnerID: uuid.New()}
	winning := bid.New(a.ID, uuid.New(), decimal.NewFromInt(40), now)

	s := NewSettlement(a, winning, now)
	a.Title = "Renamed"

	check.Equal(t, "Lamp", s.SoldItem.Title)
}

package order

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"marketplace-auction-service/internal/domain/auction"
	"marketplace-auction-service/internal/domain/bid"
)

// Status represents the status of an order
type Status string

const (
	StatusCompleted Status = "COMPLETED"
)

// Order records the purchase created when an auction is settled
type Order struct {
	ID          uuid.UUID       `json:"id"`
	BuyerID     uuid.UUID       `json:"buyer_id"`
	AuctionID   uuid.UUID       `json:"auction_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Status      Status          `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Item links an order to the sold-item snapshot
type Item struct {
	ID         uuid.UUID       `json:"id"`
	OrderID    uuid.UUID       `json:"order_id"`
	SoldItemID uuid.UUID       `json:"sold_item_id"`
	Quantity   int             `json:"quantity"`
	Price      decimal.Decimal `json:"price"`
}

// SoldItem is an immutable copy of the auctioned item taken at settlement,
// so order history does not depend on the live auction record.
type SoldItem struct {
	ID          uuid.UUID       `json:"id"`
	AuctionID   uuid.UUID       `json:"auction_id"`
	SellerID    uuid.UUID       `json:"seller_id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	ImageURL    string          `json:"image"`
	CategoryID  uuid.UUID       `json:"category_id"`
	Price       decimal.Decimal `json:"price"`
	Available   bool            `json:"available"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Settlement is everything written when a bid is approved
type Settlement struct {
	Auction    *auction.Auction `json:"auction"`
	WinningBid *bid.Bid         `json:"winning_bid"`
	Order      *Order           `json:"order"`
	Item       *Item            `json:"order_item"`
	SoldItem   *SoldItem        `json:"sold_item"`
}

// NewSettlement builds the snapshot, order and order line for an approved bid
func NewSettlement(a *auction.Auction, winning *bid.Bid, now time.Time) *Settlement {
	soldItem := &SoldItem{
		ID:          uuid.New(),
		AuctionID:   a.ID,
		SellerID:    a.OwnerID,
		Title:       a.Title,
		Description: a.Description,
		ImageURL:    a.ImageURL,
		CategoryID:  a.CategoryID,
		Price:       winning.Amount,
		Available:   false,
		CreatedAt:   now,
	}

	o := &Order{
		ID:          uuid.New(),
		BuyerID:     winning.BidderID,
		AuctionID:   a.ID,
		TotalAmount: winning.Amount,
		Status:      StatusCompleted,
		CreatedAt:   now,
	}

	return &Settlement{
		Auction:    a,
		WinningBid: winning,
		Order:      o,
		Item: &Item{
			ID:         uuid.New(),
			OrderID:    o.ID,
			SoldItemID: soldItem.ID,
			Quantity:   1,
			Price:      winning.Amount,
		},
		SoldItem: soldItem,
	}
}

package rest

import (
	"time"

	"github.com/shopspring/decimal"
)

// createAuctionRequest is the body of POST /api/auctions. Presence of the
// listing fields is checked by the auction service so callers get one
// message per missing field.
type createAuctionRequest struct {
	Title        string           `json:"title" validate:"max=255"`
	Description  string           `json:"description" validate:"max=5000"`
	Image        string           `json:"image" validate:"max=2048"`
	CategoryID   string           `json:"category_id" validate:"omitempty,uuid"`
	StartingBid  decimal.Decimal  `json:"starting_bid"`
	ReservePrice *decimal.Decimal `json:"reserve_price,omitempty"`
	StartTime    time.Time        `json:"start_time" validate:"required"`
	EndTime      time.Time        `json:"end_time" validate:"required"`
}

// placeBidRequest is the body of POST /api/auctions/{auctionId}/bids
type placeBidRequest struct {
	Amount *decimal.Decimal `json:"amount" validate:"required"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

type sweepResponse struct {
	Updated int `json:"updated"`
}

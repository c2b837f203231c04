package outbound

import (
	"context"

	"github.com/google/uuid"
)

// EventType represents the type of event being published
type EventType string

const (
	EventTypeAuctionCreated EventType = "auction.created"
	EventTypeAuctionStarted EventType = "auction.started"
	EventTypeAuctionEnded   EventType = "auction.ended"
	EventTypeAuctionSettled EventType = "auction.settled"
	EventTypeBidPlaced      EventType = "bid.placed"
)

// Event represents a domain event published after a commit
type Event struct {
	ID        uuid.UUID              `json:"id"`
	Type      EventType              `json:"type"`
	AuctionID uuid.UUID              `json:"auction_id"`
	Data      map[string]interface{} `json:"data"`
	Timestamp int64                  `json:"timestamp"`
}

// EventPublisher delivers domain events to downstream consumers. Delivery is
// best effort: a failed publish never undoes a committed change.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

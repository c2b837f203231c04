package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"marketplace-auction-service/internal/adapters/memory"
	"marketplace-auction-service/internal/domain/auction"
	"marketplace-auction-service/internal/domain/bid"
	"marketplace-auction-service/internal/ports/inbound"
	"marketplace-auction-service/internal/ports/outbound"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []outbound.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, event outbound.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Types() []outbound.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]outbound.EventType, 0, len(p.events))
	for _, e := range p.events {
		types = append(types, e.Type)
	}
	return types
}

type harness struct {
	clock       *testClock
	store       *memory.Store
	publisher   *recordingPublisher
	auctions    *AuctionService
	bids        *BidService
	settlements *SettlementService
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{
		clock:     &testClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)},
		store:     memory.NewStore(memory.StoreParams{Logger: zerolog.Nop()}),
		publisher: &recordingPublisher{},
	}

	resolver := NewStatusResolver(StatusResolverParams{
		AuctionRepo: h.store,
		Publisher:   h.publisher,
		Logger:      zerolog.Nop(),
	})
	h.auctions = NewAuctionService(AuctionServiceParams{
		AuctionRepo:      h.store,
		BidRepo:          h.store,
		CategoryRepo:     h.store,
		Resolver:         resolver,
		Publisher:        h.publisher,
		Clock:            h.clock,
		OperationTimeout: time.Second,
		Logger:           zerolog.Nop(),
	})
	h.bids = NewBidService(BidServiceParams{
		TxManager:        h.store,
		AuctionRepo:      h.store,
		BidRepo:          h.store,
		Resolver:         resolver,
		Publisher:        h.publisher,
		Clock:            h.clock,
		OperationTimeout: time.Second,
		Logger:           zerolog.Nop(),
	})
	h.settlements = NewSettlementService(SettlementServiceParams{
		TxManager:        h.store,
		AuctionRepo:      h.store,
		BidRepo:          h.store,
		OrderRepo:        h.store,
		Publisher:        h.publisher,
		Clock:            h.clock,
		OperationTimeout: time.Second,
		Logger:           zerolog.Nop(),
	})
	return h
}

// validCreateRequest starts an hour from the harness clock and runs for two hours
func (h *harness) validCreateRequest(owner uuid.UUID) inbound.CreateAuctionRequest {
	start := h.clock.Now().Add(time.Hour)
	return inbound.CreateAuctionRequest{
		Title:       "Vintage Camera",
		Description: "A 1970s rangefinder in working order",
		ImageURL:    "images/camera.jpg",
		CategoryID:  memory.CategoryElectronics,
		OwnerID:     owner,
		StartingBid: decimal.NewFromInt(10),
		StartTime:   start,
		EndTime:     start.Add(2 * time.Hour),
	}
}

func (h *harness) createAuction(t *testing.T, owner uuid.UUID) *auction.Auction {
	t.Helper()
	created, err := h.auctions.CreateAuction(context.Background(), h.validCreateRequest(owner))
	require.NoError(t, err)
	return created
}

// liveAuction creates an auction and moves the clock just past its start
func (h *harness) liveAuction(t *testing.T, owner uuid.UUID) *auction.Auction {
	t.Helper()
	created := h.createAuction(t, owner)
	h.clock.Advance(created.StartTime.Sub(h.clock.Now()) + time.Minute)
	return created
}

func (h *harness) placeBid(t *testing.T, auctionID, bidder uuid.UUID, amount string) *bid.Bid {
	t.Helper()
	placed, err := h.bids.PlaceBid(context.Background(), inbound.PlaceBidRequest{
		AuctionID: auctionID,
		BidderID:  bidder,
		Amount:    decimal.RequireFromString(amount),
	})
	require.NoError(t, err)
	return placed
}

func (h *harness) bidStatuses(t *testing.T, auctionID uuid.UUID) map[uuid.UUID]bid.Status {
	t.Helper()
	bids, err := h.store.GetByAuctionID(context.Background(), auctionID)
	require.NoError(t, err)

	statuses := make(map[uuid.UUID]bid.Status, len(bids))
	for _, b := range bids {
		statuses[b.ID] = b.Status
	}
	return statuses
}

func countStatus(statuses map[uuid.UUID]bid.Status, want bid.Status) int {
	n := 0
	for _, s := range statuses {
		if s == want {
			n++
		}
	}
	return n
}

package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"marketplace-auction-service/internal/domain/auction"
	"marketplace-auction-service/internal/domain/bid"
	"marketplace-auction-service/internal/domain/order"
	"marketplace-auction-service/internal/domain/shared"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Demo categories seeded into every new store
var (
	CategoryElectronics = uuid.MustParse("7f7c2a4e-3b1d-4c55-9a8e-1f0d6c2b9a01")
	CategoryFurniture   = uuid.MustParse("7f7c2a4e-3b1d-4c55-9a8e-1f0d6c2b9a02")
	CategoryCollectible = uuid.MustParse("7f7c2a4e-3b1d-4c55-9a8e-1f0d6c2b9a03")
)

// Store is an in-process implementation of every outbound store port.
// Mutations of one auction are serialized by a per-auction lock, the same
// unit of exclusion the PostgreSQL adapter gets from SELECT ... FOR UPDATE.
type Store struct {
	mu            sync.RWMutex
	auctions      map[uuid.UUID]*auction.Auction
	bids          map[uuid.UUID]*bid.Bid
	bidsByAuction map[uuid.UUID][]uuid.UUID
	categories    map[uuid.UUID]string
	settlements   map[uuid.UUID]*order.Settlement

	locksMu sync.Mutex
	locks   map[uuid.UUID]chan struct{}

	logger zerolog.Logger
}

type StoreParams struct {
	Logger zerolog.Logger
}

// NewStore creates an empty store seeded with the demo categories
func NewStore(params StoreParams) *Store {
	s := &Store{
		auctions:      make(map[uuid.UUID]*auction.Auction),
		bids:          make(map[uuid.UUID]*bid.Bid),
		bidsByAuction: make(map[uuid.UUID][]uuid.UUID),
		categories:    make(map[uuid.UUID]string),
		settlements:   make(map[uuid.UUID]*order.Settlement),
		locks:         make(map[uuid.UUID]chan struct{}),
		logger:        params.Logger.With().Str("component", "memory_store").Logger(),
	}

	s.AddCategory(CategoryElectronics, "Electronics")
	s.AddCategory(CategoryFurniture, "Furniture")
	s.AddCategory(CategoryCollectible, "Collectibles")

	return s
}

// AddCategory registers a category id with the catalog stand-in
func (s *Store) AddCategory(id uuid.UUID, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories[id] = name
}

// lock acquires the per-auction lock, giving up when ctx is done
func (s *Store) lock(ctx context.Context, auctionID uuid.UUID) (func(), error) {
	s.locksMu.Lock()
	ch, ok := s.locks[auctionID]
	if !ok {
		ch = make(chan struct{}, 1)
		s.locks[auctionID] = ch
	}
	s.locksMu.Unlock()

	select {
	case ch <- struct{}{}:
		return func() { <-ch }, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("failed to lock auction %s: %w", auctionID, ctx.Err())
	}
}

// Create creates a new auction
func (s *Store) Create(ctx context.Context, a *auction.Auction) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.categories[a.CategoryID]; !ok {
		return shared.ErrCategoryNotFound
	}
	if _, ok := s.auctions[a.ID]; ok {
		return fmt.Errorf("auction %s already exists", a.ID)
	}
	s.auctions[a.ID] = cloneAuction(a)
	return nil
}

// GetByID retrieves an auction by ID
func (s *Store) GetByID(ctx context.Context, id uuid.UUID) (*auction.Auction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.auctions[id]
	if !ok {
		return nil, shared.ErrAuctionNotFound
	}
	return cloneAuction(a), nil
}

// List retrieves one page of auctions ordered by start time
func (s *Store) List(ctx context.Context, filter auction.Filter, now time.Time) ([]*auction.Auction, int, error) {
	s.mu.RLock()
	matches := make([]*auction.Auction, 0)
	for _, a := range s.auctions {
		if filter.Matches(a, now) {
			matches = append(matches, cloneAuction(a))
		}
	}
	s.mu.RUnlock()

	sort.Slice(matches, func(i, j int) bool {
		if !matches[i].StartTime.Equal(matches[j].StartTime) {
			return matches[i].StartTime.Before(matches[j].StartTime)
		}
		return matches[i].ID.String() < matches[j].ID.String()
	})

	total := len(matches)
	start := filter.Offset()
	if start >= total {
		return []*auction.Auction{}, total, nil
	}
	end := start + filter.Limit
	if end > total {
		end = total
	}
	return matches[start:end], total, nil
}

// AdvanceStatus moves an auction forward only if it is still in the expected status
func (s *Store) AdvanceStatus(ctx context.Context, id uuid.UUID, from, to auction.Status, now time.Time) (bool, error) {
	release, err := s.lock(ctx, id)
	if err != nil {
		return false, err
	}
	defer release()

	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.auctions[id]
	if !ok {
		return false, shared.ErrAuctionNotFound
	}
	if a.Status != from || !from.Before(to) {
		return false, nil
	}
	a.Status = to
	a.UpdatedAt = now
	return true, nil
}

// SweepStatuses advances every auction whose stored status lags behind the clock
func (s *Store) SweepStatuses(ctx context.Context, now time.Time) ([]auction.Transition, error) {
	s.mu.RLock()
	candidates := make([]uuid.UUID, 0)
	for id, a := range s.auctions {
		if a.Status != auction.StatusEnded && a.Status.Before(auction.Resolve(a, now)) {
			candidates = append(candidates, id)
		}
	}
	s.mu.RUnlock()

	transitions := make([]auction.Transition, 0, len(candidates))
	for _, id := range candidates {
		t, err := s.sweepOne(ctx, id, now)
		if err != nil {
			return transitions, err
		}
		if t != nil {
			transitions = append(transitions, *t)
		}
	}
	return transitions, nil
}

func (s *Store) sweepOne(ctx context.Context, id uuid.UUID, now time.Time) (*auction.Transition, error) {
	release, err := s.lock(ctx, id)
	if err != nil {
		return nil, err
	}
	defer release()

	s.mu.Lock()
	defer s.mu.Unlock()

	a := s.auctions[id]
	resolved := auction.Resolve(a, now)
	// re-check under the lock, a settlement may have ended it meanwhile
	if a.Status == auction.StatusEnded || !a.Status.Before(resolved) {
		return nil, nil
	}

	t := &auction.Transition{AuctionID: id, From: a.Status, To: resolved}
	a.Status = resolved
	a.UpdatedAt = now
	return t, nil
}

// GetByAuctionID retrieves all bids for an auction, highest amount first
func (s *Store) GetByAuctionID(ctx context.Context, auctionID uuid.UUID) ([]*bid.Bid, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bids := make([]*bid.Bid, 0, len(s.bidsByAuction[auctionID]))
	for _, id := range s.bidsByAuction[auctionID] {
		bids = append(bids, cloneBid(s.bids[id]))
	}
	sortBids(bids)
	return bids, nil
}

// Summary returns the highest amount not yet outbid and the number of bids
func (s *Store) Summary(ctx context.Context, auctionID uuid.UUID) (*decimal.Decimal, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.bidsByAuction[auctionID]
	var highest *decimal.Decimal
	for _, id := range ids {
		b := s.bids[id]
		if b.Status == bid.StatusOutbid {
			continue
		}
		if highest == nil || b.Amount.GreaterThan(*highest) {
			amount := b.Amount
			highest = &amount
		}
	}
	return highest, len(ids), nil
}

// Exists answers category existence checks
func (s *Store) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.categories[id]
	return ok, nil
}

// GetSettlement returns the records written when the auction was settled
func (s *Store) GetSettlement(ctx context.Context, auctionID uuid.UUID) (*order.Settlement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	settlement, ok := s.settlements[auctionID]
	if !ok {
		return nil, shared.ErrNotSettled
	}

	o := *settlement.Order
	item := *settlement.Item
	soldItem := *settlement.SoldItem
	return &order.Settlement{Order: &o, Item: &item, SoldItem: &soldItem}, nil
}

// sortBids orders bids by amount descending, then by placement time
func sortBids(bids []*bid.Bid) {
	sort.SliceStable(bids, func(i, j int) bool {
		if !bids[i].Amount.Equal(bids[j].Amount) {
			return bids[i].Amount.GreaterThan(bids[j].Amount)
		}
		return bids[i].CreatedAt.Before(bids[j].CreatedAt)
	})
}

func cloneAuction(a *auction.Auction) *auction.Auction {
	c := *a
	if a.ReservePrice != nil {
		reserve := *a.ReservePrice
		c.ReservePrice = &reserve
	}
	if a.WinningBidID != nil {
		winning := *a.WinningBidID
		c.WinningBidID = &winning
	}
	return &c
}

func cloneBid(b *bid.Bid) *bid.Bid {
	c := *b
	return &c
}

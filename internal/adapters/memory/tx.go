package memory

import (
	"context"
	"fmt"
	"time"

	"marketplace-auction-service/internal/domain/auction"
	"marketplace-auction-service/internal/domain/bid"
	"marketplace-auction-service/internal/domain/order"
	"marketplace-auction-service/internal/domain/shared"
	"marketplace-auction-service/internal/ports/outbound"

	"github.com/google/uuid"
)

var (
	_ outbound.AuctionRepository  = (*Store)(nil)
	_ outbound.BidRepository      = (*Store)(nil)
	_ outbound.CategoryRepository = (*Store)(nil)
	_ outbound.OrderRepository    = (*Store)(nil)
	_ outbound.TxManager          = (*Store)(nil)
)

var errLeaderTaken = &shared.Error{Kind: shared.KindConflict, Message: "auction already has a leading bid"}

// auctionTx stages every write against private copies. Nothing reaches the
// store until commit, so a failed closure leaves no trace.
type auctionTx struct {
	store    *Store
	auction  *auction.Auction
	bids     map[uuid.UUID]*bid.Bid
	inserted []uuid.UUID
	settled  *order.Settlement
	touched  bool
}

// WithinAuction runs fn while holding the auction's lock and commits the
// staged writes only if fn succeeds
func (s *Store) WithinAuction(ctx context.Context, auctionID uuid.UUID, fn func(ctx context.Context, tx outbound.AuctionTx, locked *auction.Auction) error) error {
	release, err := s.lock(ctx, auctionID)
	if err != nil {
		return err
	}
	defer release()

	tx, err := s.begin(auctionID)
	if err != nil {
		return err
	}

	if err := fn(ctx, tx, cloneAuction(tx.auction)); err != nil {
		return err
	}

	return s.commit(ctx, tx)
}

func (s *Store) begin(auctionID uuid.UUID) (*auctionTx, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.auctions[auctionID]
	if !ok {
		return nil, shared.ErrAuctionNotFound
	}

	tx := &auctionTx{
		store:   s,
		auction: cloneAuction(a),
		bids:    make(map[uuid.UUID]*bid.Bid, len(s.bidsByAuction[auctionID])),
	}
	for _, id := range s.bidsByAuction[auctionID] {
		tx.bids[id] = cloneBid(s.bids[id])
	}
	return tx, nil
}

func (s *Store) commit(ctx context.Context, tx *auctionTx) error {
	// a deadline hit before commit rolls everything back
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	leaders := 0
	for _, b := range tx.bids {
		if b.IsLeading() {
			leaders++
		}
	}
	if leaders > 1 {
		return errLeaderTaken
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if tx.settled != nil {
		if _, exists := s.settlements[tx.auction.ID]; exists {
			return &shared.Error{Kind: shared.KindConflict, Message: "auction already settled", Err: shared.ErrAuctionAlreadyEnded}
		}
	}

	if tx.touched {
		s.auctions[tx.auction.ID] = cloneAuction(tx.auction)
	}
	for id, b := range tx.bids {
		s.bids[id] = cloneBid(b)
	}
	s.bidsByAuction[tx.auction.ID] = append(s.bidsByAuction[tx.auction.ID], tx.inserted...)
	if tx.settled != nil {
		s.settlements[tx.auction.ID] = tx.settled
	}

	s.logger.Debug().
		Str("auction_id", tx.auction.ID.String()).
		Int("inserted_bids", len(tx.inserted)).
		Bool("settled", tx.settled != nil).
		Msg("Transaction committed")

	return nil
}

func (tx *auctionTx) HighestStandingBid(ctx context.Context, auctionID uuid.UUID) (*bid.Bid, error) {
	if err := tx.scoped(auctionID); err != nil {
		return nil, err
	}

	bids := make([]*bid.Bid, 0, len(tx.bids))
	for _, b := range tx.bids {
		bids = append(bids, b)
	}
	highest := bid.Highest(bids)
	if highest == nil {
		return nil, nil
	}
	return cloneBid(highest), nil
}

func (tx *auctionTx) GetBid(ctx context.Context, id uuid.UUID) (*bid.Bid, error) {
	if b, ok := tx.bids[id]; ok {
		return cloneBid(b), nil
	}

	tx.store.mu.RLock()
	defer tx.store.mu.RUnlock()

	b, ok := tx.store.bids[id]
	if !ok {
		return nil, shared.ErrBidNotFound
	}
	return cloneBid(b), nil
}

func (tx *auctionTx) OutbidStanding(ctx context.Context, auctionID, bidderID uuid.UUID, now time.Time) (int64, error) {
	if err := tx.scoped(auctionID); err != nil {
		return 0, err
	}

	var changed int64
	for _, b := range tx.bids {
		if b.Status == bid.StatusWinning || (b.BidderID == bidderID && b.IsStanding()) {
			b.Outbid(now)
			changed++
		}
	}
	return changed, nil
}

func (tx *auctionTx) InsertBid(ctx context.Context, b *bid.Bid) error {
	if err := tx.scoped(b.AuctionID); err != nil {
		return err
	}
	if _, exists := tx.bids[b.ID]; exists {
		return fmt.Errorf("bid %s already exists", b.ID)
	}

	tx.bids[b.ID] = cloneBid(b)
	tx.inserted = append(tx.inserted, b.ID)
	return nil
}

func (tx *auctionTx) SettleBids(ctx context.Context, auctionID, winningBidID uuid.UUID, now time.Time) (int64, error) {
	if err := tx.scoped(auctionID); err != nil {
		return 0, err
	}
	if _, ok := tx.bids[winningBidID]; !ok {
		return 0, shared.ErrBidNotFound
	}

	var changed int64
	for id, b := range tx.bids {
		switch {
		case id == winningBidID:
			b.Win(now)
			changed++
		case b.Status != bid.StatusOutbid:
			b.Outbid(now)
			changed++
		}
	}
	return changed, nil
}

func (tx *auctionTx) UpdateAuction(ctx context.Context, a *auction.Auction) error {
	if err := tx.scoped(a.ID); err != nil {
		return err
	}
	if a.Status.Before(tx.auction.Status) {
		return fmt.Errorf("auction %s cannot move from %s back to %s", a.ID, tx.auction.Status, a.Status)
	}

	tx.auction = cloneAuction(a)
	tx.touched = true
	return nil
}

func (tx *auctionTx) InsertSettlement(ctx context.Context, settlement *order.Settlement) error {
	if err := tx.scoped(settlement.Order.AuctionID); err != nil {
		return err
	}
	if tx.settled != nil {
		return fmt.Errorf("auction %s already has a settlement in this transaction", tx.auction.ID)
	}

	o := *settlement.Order
	item := *settlement.Item
	soldItem := *settlement.SoldItem
	tx.settled = &order.Settlement{Order: &o, Item: &item, SoldItem: &soldItem}
	return nil
}

// scoped rejects access to any auction other than the locked one
func (tx *auctionTx) scoped(auctionID uuid.UUID) error {
	if auctionID != tx.auction.ID {
		return fmt.Errorf("transaction holds auction %s, not %s", tx.auction.ID, auctionID)
	}
	return nil
}

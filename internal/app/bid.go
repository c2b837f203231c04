package app

import (
	"context"
	"time"

	"marketplace-auction-service/internal/domain/auction"
	"marketplace-auction-service/internal/domain/bid"
	"marketplace-auction-service/internal/domain/shared"
	"marketplace-auction-service/internal/ports/inbound"
	"marketplace-auction-service/internal/ports/outbound"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// BidService implements the bid use cases
type BidService struct {
	txManager   outbound.TxManager
	auctionRepo outbound.AuctionRepository
	bidRepo     outbound.BidRepository
	resolver    *StatusResolver
	events      eventSink
	clock       shared.Clock
	timeout     time.Duration
	logger      zerolog.Logger
}

type BidServiceParams struct {
	TxManager        outbound.TxManager
	AuctionRepo      outbound.AuctionRepository
	BidRepo          outbound.BidRepository
	Resolver         *StatusResolver
	Publisher        outbound.EventPublisher
	Clock            shared.Clock
	OperationTimeout time.Duration
	Logger           zerolog.Logger
}

// NewBidService creates a new bid service
func NewBidService(params BidServiceParams) *BidService {
	logger := params.Logger.With().Str("component", "bid_service").Logger()
	return &BidService{
		txManager:   params.TxManager,
		auctionRepo: params.AuctionRepo,
		bidRepo:     params.BidRepo,
		resolver:    params.Resolver,
		events:      eventSink{publisher: params.Publisher, logger: logger},
		clock:       clockOrSystem(params.Clock),
		timeout:     params.OperationTimeout,
		logger:      logger,
	}
}

// PlaceBid places a new bid on an auction. Validation and the write happen in
// one transaction holding the auction row, so the highest bid a request is
// checked against is the latest committed one.
func (service *BidService) PlaceBid(ctx context.Context, req inbound.PlaceBidRequest) (*bid.Bid, error) {
	service.logger.Info().
		Str("auction_id", req.AuctionID.String()).
		Str("bidder_id", req.BidderID.String()).
		Stringer("amount", req.Amount).
		Msg("Attempting to place bid")

	if !req.Amount.IsPositive() {
		service.logger.Warn().Stringer("amount", req.Amount).Msg("Invalid bid amount (must be > 0)")
		return nil, shared.ErrBidAmountInvalid
	}
	if !hasMoneyScale(req.Amount) {
		service.logger.Warn().Stringer("amount", req.Amount).Msg("Invalid bid amount precision")
		return nil, shared.ErrAmountPrecision
	}

	var now time.Time
	var placement *bid.Placement
	var advanced *auction.Transition

	err := runBounded(ctx, service.timeout, func(ctx context.Context) error {
		return service.txManager.WithinAuction(ctx, req.AuctionID, func(ctx context.Context, tx outbound.AuctionTx, locked *auction.Auction) error {
			// the closure may run again after a conflict
			placement, advanced = nil, nil
			// taken after the lock, since waiting for it may cross endTime
			now = service.clock.Now()

			switch auction.Resolve(locked, now) {
			case auction.StatusScheduled:
				return shared.ErrAuctionNotStarted
			case auction.StatusEnded:
				return shared.ErrAuctionEnded
			}

			if locked.IsOwner(req.BidderID) {
				return shared.ErrOwnerCannotBid
			}

			standing, err := tx.HighestStandingBid(ctx, locked.ID)
			if err != nil {
				return err
			}

			currentHighest := bid.CurrentHighest(locked.StartingBid, standing)
			if !req.Amount.GreaterThan(currentHighest) {
				return shared.BidTooLow(currentHighest)
			}

			if _, err := tx.OutbidStanding(ctx, locked.ID, req.BidderID, now); err != nil {
				return err
			}

			newBid := bid.New(locked.ID, req.BidderID, req.Amount, now)
			if err := tx.InsertBid(ctx, newBid); err != nil {
				return err
			}

			if locked.Status == auction.StatusScheduled {
				locked.Status = auction.StatusLive
				locked.UpdatedAt = now
				if err := tx.UpdateAuction(ctx, locked); err != nil {
					return err
				}
				advanced = &auction.Transition{AuctionID: locked.ID, From: auction.StatusScheduled, To: auction.StatusLive}
			}

			placement = &bid.Placement{Bid: newBid, PreviousHighest: currentHighest}
			if standing != nil {
				placement.PreviousLeader = &standing.BidderID
			}
			return nil
		})
	})
	if err != nil {
		service.logRejection(req, err)
		return nil, err
	}

	if advanced != nil {
		service.events.transition(ctx, *advanced, now)
	}

	data := map[string]interface{}{
		"bid_id":           placement.Bid.ID,
		"bidder_id":        placement.Bid.BidderID,
		"amount":           placement.Bid.Amount,
		"previous_highest": placement.PreviousHighest,
	}
	if placement.PreviousLeader != nil {
		data["previous_leader"] = *placement.PreviousLeader
	}
	service.events.publish(ctx, outbound.EventTypeBidPlaced, req.AuctionID, data, now)

	service.logger.Info().
		Str("bid_id", placement.Bid.ID.String()).
		Str("auction_id", req.AuctionID.String()).
		Str("bidder_id", req.BidderID.String()).
		Stringer("amount", placement.Bid.Amount).
		Stringer("previous_highest", placement.PreviousHighest).
		Msg("Bid placed successfully")

	return placement.Bid, nil
}

func (service *BidService) logRejection(req inbound.PlaceBidRequest, err error) {
	event := service.logger.Warn()
	if shared.KindOf(err) == "" || shared.IsRetryable(err) {
		event = service.logger.Error()
	}
	event.Err(err).
		Str("auction_id", req.AuctionID.String()).
		Str("bidder_id", req.BidderID.String()).
		Stringer("amount", req.Amount).
		Msg("Bid rejected")
}

// ListBids retrieves bids for an auction, highest amount first
func (service *BidService) ListBids(ctx context.Context, auctionID uuid.UUID) ([]*bid.Bid, error) {
	a, err := service.auctionRepo.GetByID(ctx, auctionID)
	if err != nil {
		service.logger.Error().Err(err).Str("auction_id", auctionID.String()).Msg("Failed to retrieve auction")
		return nil, err
	}
	service.resolver.Ensure(ctx, a, service.clock.Now())

	bids, err := service.bidRepo.GetByAuctionID(ctx, auctionID)
	if err != nil {
		service.logger.Error().Err(err).Str("auction_id", auctionID.String()).Msg("Failed to list bids")
		return nil, err
	}

	return bids, nil
}

package app

import (
	"context"
	"time"

	"marketplace-auction-service/internal/domain/auction"
	"marketplace-auction-service/internal/domain/order"
	"marketplace-auction-service/internal/domain/shared"
	"marketplace-auction-service/internal/ports/inbound"
	"marketplace-auction-service/internal/ports/outbound"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// SettlementService turns an approved bid into a completed order
type SettlementService struct {
	txManager   outbound.TxManager
	auctionRepo outbound.AuctionRepository
	bidRepo     outbound.BidRepository
	orderRepo   outbound.OrderRepository
	events      eventSink
	clock       shared.Clock
	timeout     time.Duration
	logger      zerolog.Logger
}

type SettlementServiceParams struct {
	TxManager        outbound.TxManager
	AuctionRepo      outbound.AuctionRepository
	BidRepo          outbound.BidRepository
	OrderRepo        outbound.OrderRepository
	Publisher        outbound.EventPublisher
	Clock            shared.Clock
	OperationTimeout time.Duration
	Logger           zerolog.Logger
}

// NewSettlementService creates a new settlement service
func NewSettlementService(params SettlementServiceParams) *SettlementService {
	logger := params.Logger.With().Str("component", "settlement_service").Logger()
	return &SettlementService{
		txManager:   params.TxManager,
		auctionRepo: params.AuctionRepo,
		bidRepo:     params.BidRepo,
		orderRepo:   params.OrderRepo,
		events:      eventSink{publisher: params.Publisher, logger: logger},
		clock:       clockOrSystem(params.Clock),
		timeout:     params.OperationTimeout,
		logger:      logger,
	}
}

// ApproveBid ends the auction in favour of the chosen bid. Every write happens
// in one transaction: either the auction is ended with its order and snapshot,
// or nothing changed.
func (service *SettlementService) ApproveBid(ctx context.Context, req inbound.ApproveBidRequest) (*order.Settlement, error) {
	service.logger.Info().
		Str("auction_id", req.AuctionID.String()).
		Str("bid_id", req.BidID.String()).
		Str("approver_id", req.ApproverID.String()).
		Msg("Attempting to approve bid")

	var now time.Time
	var settlement *order.Settlement

	err := runBounded(ctx, service.timeout, func(ctx context.Context) error {
		return service.txManager.WithinAuction(ctx, req.AuctionID, func(ctx context.Context, tx outbound.AuctionTx, locked *auction.Auction) error {
			settlement = nil
			now = service.clock.Now()

			chosen, err := tx.GetBid(ctx, req.BidID)
			if err != nil {
				return err
			}
			if chosen.AuctionID != locked.ID {
				return shared.ErrBidNotFound
			}

			if !locked.IsOwner(req.ApproverID) {
				return shared.ErrNotAuctionOwner
			}

			if auction.Resolve(locked, now) == auction.StatusEnded {
				return shared.ErrAuctionAlreadyEnded
			}

			// reserve price is advisory at this layer
			if locked.BelowReserve(chosen.Amount) {
				service.logger.Warn().
					Str("auction_id", locked.ID.String()).
					Stringer("amount", chosen.Amount).
					Stringer("reserve_price", locked.ReservePrice).
					Msg("Approving bid below reserve price")
			}

			locked.Settle(chosen.ID, now)
			if err := tx.UpdateAuction(ctx, locked); err != nil {
				return err
			}

			if _, err := tx.SettleBids(ctx, locked.ID, chosen.ID, now); err != nil {
				return err
			}
			chosen.Win(now)

			settlement = order.NewSettlement(locked, chosen, now)
			return tx.InsertSettlement(ctx, settlement)
		})
	})
	if err != nil {
		event := service.logger.Warn()
		if shared.KindOf(err) == "" || shared.IsRetryable(err) {
			event = service.logger.Error()
		}
		event.Err(err).
			Str("auction_id", req.AuctionID.String()).
			Str("bid_id", req.BidID.String()).
			Msg("Bid approval rejected")
		return nil, err
	}

	service.events.publish(ctx, outbound.EventTypeAuctionSettled, req.AuctionID, map[string]interface{}{
		"bid_id":       settlement.WinningBid.ID,
		"buyer_id":     settlement.Order.BuyerID,
		"order_id":     settlement.Order.ID,
		"total_amount": settlement.Order.TotalAmount,
	}, now)

	service.logger.Info().
		Str("auction_id", req.AuctionID.String()).
		Str("bid_id", settlement.WinningBid.ID.String()).
		Str("order_id", settlement.Order.ID.String()).
		Str("buyer_id", settlement.Order.BuyerID.String()).
		Stringer("total_amount", settlement.Order.TotalAmount).
		Msg("Auction settled successfully")

	return settlement, nil
}

// GetSettlement retrieves the order created for a settled auction
func (service *SettlementService) GetSettlement(ctx context.Context, auctionID uuid.UUID) (*order.Settlement, error) {
	a, err := service.auctionRepo.GetByID(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	if !a.IsSettled() {
		return nil, shared.ErrNotSettled
	}

	settlement, err := service.orderRepo.GetSettlement(ctx, auctionID)
	if err != nil {
		service.logger.Error().Err(err).Str("auction_id", auctionID.String()).Msg("Failed to retrieve settlement")
		return nil, err
	}
	settlement.Auction = a

	bids, err := service.bidRepo.GetByAuctionID(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	for _, b := range bids {
		if b.ID == *a.WinningBidID {
			settlement.WinningBid = b
			break
		}
	}

	return settlement, nil
}

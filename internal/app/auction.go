package app

import (
	"context"
	"strings"
	"time"

	"marketplace-auction-service/internal/domain/auction"
	"marketplace-auction-service/internal/domain/shared"
	"marketplace-auction-service/internal/ports/inbound"
	"marketplace-auction-service/internal/ports/outbound"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Listing page bounds
const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// AuctionService implements the auction use cases
type AuctionService struct {
	auctionRepo  outbound.AuctionRepository
	bidRepo      outbound.BidRepository
	categoryRepo outbound.CategoryRepository
	resolver     *StatusResolver
	events       eventSink
	clock        shared.Clock
	timeout      time.Duration
	logger       zerolog.Logger
}

type AuctionServiceParams struct {
	AuctionRepo      outbound.AuctionRepository
	BidRepo          outbound.BidRepository
	CategoryRepo     outbound.CategoryRepository
	Resolver         *StatusResolver
	Publisher        outbound.EventPublisher
	Clock            shared.Clock
	OperationTimeout time.Duration
	Logger           zerolog.Logger
}

// NewAuctionService creates a new auction service
func NewAuctionService(params AuctionServiceParams) *AuctionService {
	logger := params.Logger.With().Str("component", "auction_service").Logger()
	return &AuctionService{
		auctionRepo:  params.AuctionRepo,
		bidRepo:      params.BidRepo,
		categoryRepo: params.CategoryRepo,
		resolver:     params.Resolver,
		events:       eventSink{publisher: params.Publisher, logger: logger},
		clock:        clockOrSystem(params.Clock),
		timeout:      params.OperationTimeout,
		logger:       logger,
	}
}

// CreateAuction creates a new auction
func (service *AuctionService) CreateAuction(ctx context.Context, req inbound.CreateAuctionRequest) (*auction.Auction, error) {
	service.logger.Info().
		Str("owner_id", req.OwnerID.String()).
		Str("category_id", req.CategoryID.String()).
		Time("start_time", req.StartTime).
		Time("end_time", req.EndTime).
		Stringer("starting_bid", req.StartingBid).
		Msg("Attempting to create auction")

	now := service.clock.Now()

	if err := validateCreateRequest(req, now); err != nil {
		service.logger.Warn().Err(err).Str("owner_id", req.OwnerID.String()).Msg("Invalid auction request")
		return nil, err
	}

	created := &auction.Auction{
		ID:           uuid.New(),
		Title:        strings.TrimSpace(req.Title),
		Description:  strings.TrimSpace(req.Description),
		ImageURL:     strings.TrimSpace(req.ImageURL),
		CategoryID:   req.CategoryID,
		OwnerID:      req.OwnerID,
		StartingBid:  req.StartingBid,
		ReservePrice: req.ReservePrice,
		StartTime:    req.StartTime.UTC(),
		EndTime:      req.EndTime.UTC(),
		Status:       auction.StatusScheduled,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err := runBounded(ctx, service.timeout, func(ctx context.Context) error {
		exists, err := service.categoryRepo.Exists(ctx, req.CategoryID)
		if err != nil {
			return err
		}
		if !exists {
			return shared.ErrCategoryNotFound
		}
		return service.auctionRepo.Create(ctx, created)
	})
	if err != nil {
		service.logger.Error().Err(err).Str("auction_id", created.ID.String()).Msg("Failed to create auction")
		return nil, err
	}

	service.events.publish(ctx, outbound.EventTypeAuctionCreated, created.ID, map[string]interface{}{
		"owner_id":     created.OwnerID,
		"starting_bid": created.StartingBid,
		"start_time":   created.StartTime,
		"end_time":     created.EndTime,
	}, now)

	service.logger.Info().
		Str("auction_id", created.ID.String()).
		Msg("Auction created successfully")

	return created, nil
}

func validateCreateRequest(req inbound.CreateAuctionRequest, now time.Time) error {
	switch {
	case strings.TrimSpace(req.Title) == "":
		return shared.ErrTitleRequired
	case strings.TrimSpace(req.Description) == "":
		return shared.ErrDescriptionRequired
	case strings.TrimSpace(req.ImageURL) == "":
		return shared.ErrImageRequired
	case req.CategoryID == uuid.Nil:
		return shared.ErrCategoryRequired
	case req.OwnerID == uuid.Nil:
		return shared.ErrOwnerRequired
	}

	if !req.StartingBid.IsPositive() {
		return shared.ErrInvalidStartingBid
	}
	if !hasMoneyScale(req.StartingBid) {
		return shared.ErrAmountPrecision
	}
	if req.ReservePrice != nil {
		if req.ReservePrice.LessThan(req.StartingBid) {
			return shared.ErrInvalidReservePrice
		}
		if !hasMoneyScale(*req.ReservePrice) {
			return shared.ErrAmountPrecision
		}
	}

	if !req.StartTime.Before(req.EndTime) {
		return shared.ErrInvalidEndTime
	}
	if req.EndTime.Sub(req.StartTime) < auction.MinDuration {
		return shared.ErrAuctionTooShort
	}
	if !req.StartTime.After(now) {
		return shared.ErrInvalidStartTime
	}

	return nil
}

// GetAuction retrieves an auction with its current highest bid and bid count
func (service *AuctionService) GetAuction(ctx context.Context, auctionID uuid.UUID) (*auction.Detail, error) {
	service.logger.Debug().Str("auction_id", auctionID.String()).Msg("Retrieving auction")

	a, err := service.auctionRepo.GetByID(ctx, auctionID)
	if err != nil {
		service.logger.Error().Err(err).Str("auction_id", auctionID.String()).Msg("Failed to retrieve auction")
		return nil, err
	}

	service.resolver.Ensure(ctx, a, service.clock.Now())

	highest, count, err := service.bidRepo.Summary(ctx, auctionID)
	if err != nil {
		service.logger.Error().Err(err).Str("auction_id", auctionID.String()).Msg("Failed to summarise bids")
		return nil, err
	}

	service.logger.Debug().
		Str("auction_id", a.ID.String()).
		Str("auction_status", string(a.Status)).
		Int("bid_count", count).
		Msg("Auction retrieved successfully")

	return &auction.Detail{
		Auction:           *a,
		CurrentHighestBid: highest,
		BidCount:          count,
	}, nil
}

// ListAuctions retrieves a page of auctions ordered by start time
func (service *AuctionService) ListAuctions(ctx context.Context, req inbound.ListAuctionsRequest) (*auction.Page, error) {
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.Limit <= 0 {
		req.Limit = DefaultPageSize
	}
	if req.Limit > MaxPageSize {
		req.Limit = MaxPageSize
	}
	if req.Status != nil && !req.Status.Valid() {
		return nil, shared.ErrInvalidStatusFilter
	}

	filter := auction.Filter{
		Status:     req.Status,
		CategoryID: req.CategoryID,
		Search:     strings.TrimSpace(req.Search),
		Page:       req.Page,
		Limit:      req.Limit,
	}

	now := service.clock.Now()
	auctions, total, err := service.auctionRepo.List(ctx, filter, now)
	if err != nil {
		service.logger.Error().Err(err).Msg("Failed to list auctions")
		return nil, err
	}

	for _, a := range auctions {
		service.resolver.Ensure(ctx, a, now)
	}

	return &auction.Page{
		Auctions:   auctions,
		TotalCount: total,
		Page:       filter.Page,
		Limit:      filter.Limit,
	}, nil
}

// SweepStatuses advances every auction whose stored status lags behind the clock.
// Auctions already ended by settlement are never touched.
func (service *AuctionService) SweepStatuses(ctx context.Context) (int, error) {
	now := service.clock.Now()

	var transitions []auction.Transition
	err := runBounded(ctx, service.timeout, func(ctx context.Context) error {
		var err error
		transitions, err = service.auctionRepo.SweepStatuses(ctx, now)
		return err
	})
	if err != nil {
		service.logger.Error().Err(err).Msg("Failed to sweep auction statuses")
		return 0, err
	}

	for _, t := range transitions {
		service.events.transition(ctx, t, now)
	}

	if len(transitions) > 0 {
		service.logger.Info().Int("count", len(transitions)).Msg("Auction statuses swept")
	}

	return len(transitions), nil
}

package app

import (
	"context"
	"time"

	"marketplace-auction-service/internal/domain/auction"
	"marketplace-auction-service/internal/ports/outbound"

	"github.com/rs/zerolog"
)

// StatusResolver keeps stored auction statuses in step with the clock. It is
// called on every read path; write paths resolve inside their transaction.
type StatusResolver struct {
	auctionRepo outbound.AuctionRepository
	events      eventSink
	logger      zerolog.Logger
}

type StatusResolverParams struct {
	AuctionRepo outbound.AuctionRepository
	Publisher   outbound.EventPublisher
	Logger      zerolog.Logger
}

// NewStatusResolver creates a new status resolver
func NewStatusResolver(params StatusResolverParams) *StatusResolver {
	logger := params.Logger.With().Str("component", "status_resolver").Logger()
	return &StatusResolver{
		auctionRepo: params.AuctionRepo,
		events:      eventSink{publisher: params.Publisher, logger: logger},
		logger:      logger,
	}
}

// Ensure brings the auction's stored status up to date and updates the record
// in place. Persisting is best effort: a read never fails because the lazy
// write did, the caller still sees the resolved status.
func (resolver *StatusResolver) Ensure(ctx context.Context, a *auction.Auction, now time.Time) {
	resolved := auction.Resolve(a, now)
	if !a.Status.Before(resolved) {
		return
	}

	from := a.Status
	advanced, err := resolver.auctionRepo.AdvanceStatus(ctx, a.ID, from, resolved, now)
	if err != nil {
		resolver.logger.Warn().Err(err).
			Str("auction_id", a.ID.String()).
			Str("from", string(from)).
			Str("to", string(resolved)).
			Msg("Failed to persist resolved auction status")
		a.Status = resolved
		return
	}

	if !advanced {
		// another writer moved the row first; its value is at least as far along
		current, err := resolver.auctionRepo.GetByID(ctx, a.ID)
		if err != nil {
			a.Status = resolved
			return
		}
		*a = *current
		if a.Status.Before(resolved) {
			a.Status = resolved
		}
		return
	}

	a.Status = resolved
	a.UpdatedAt = now

	resolver.logger.Debug().
		Str("auction_id", a.ID.String()).
		Str("from", string(from)).
		Str("to", string(resolved)).
		Msg("Auction status advanced")

	resolver.events.transition(ctx, auction.Transition{AuctionID: a.ID, From: from, To: resolved}, now)
}

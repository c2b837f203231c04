package app

import (
	"context"
	"errors"
	"time"

	"marketplace-auction-service/internal/domain/auction"
	"marketplace-auction-service/internal/domain/shared"
	"marketplace-auction-service/internal/ports/outbound"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// DefaultOperationTimeout bounds every engine operation when no timeout is configured
const DefaultOperationTimeout = 30 * time.Second

// moneyScale is the number of decimal places stored for amounts
const moneyScale = 2

// runBounded runs fn under the operation deadline. A deadline hit inside the
// store surfaces as a retryable timeout; the store has rolled back by then.
func runBounded(ctx context.Context, timeout time.Duration, fn func(ctx context.Context) error) error {
	if timeout <= 0 {
		timeout = DefaultOperationTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := fn(ctx)
	if err != nil && errors.Is(err, context.DeadlineExceeded) {
		return &shared.Error{
			Kind:    shared.KindTimeout,
			Message: shared.ErrOperationTimeout.Message,
			Err:     err,
		}
	}
	return err
}

// hasMoneyScale returns true if the amount needs no more than two decimal places
func hasMoneyScale(amount decimal.Decimal) bool {
	return amount.Equal(amount.Truncate(moneyScale))
}

func clockOrSystem(clock shared.Clock) shared.Clock {
	if clock == nil {
		return shared.SystemClock{}
	}
	return clock
}

// eventSink publishes domain events after commit. Failures are logged, never returned.
type eventSink struct {
	publisher outbound.EventPublisher
	logger    zerolog.Logger
}

func (sink eventSink) publish(ctx context.Context, eventType outbound.EventType, auctionID uuid.UUID, data map[string]interface{}, now time.Time) {
	if sink.publisher == nil {
		return
	}

	event := outbound.Event{
		ID:        uuid.New(),
		Type:      eventType,
		AuctionID: auctionID,
		Data:      data,
		Timestamp: now.Unix(),
	}

	// the request context is cancelled as soon as the response is written
	if err := sink.publisher.Publish(context.WithoutCancel(ctx), event); err != nil {
		sink.logger.Error().Err(err).
			Str("event_type", string(eventType)).
			Str("auction_id", auctionID.String()).
			Msg("Failed to publish event")
	}
}

func (sink eventSink) transition(ctx context.Context, t auction.Transition, now time.Time) {
	eventType := outbound.EventTypeAuctionStarted
	if t.To == auction.StatusEnded {
		eventType = outbound.EventTypeAuctionEnded
	}
	sink.publish(ctx, eventType, t.AuctionID, map[string]interface{}{
		"from": t.From,
		"to":   t.To,
	}, now)
}

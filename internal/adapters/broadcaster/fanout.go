package broadcaster

import (
	"context"
	"errors"
	"time"

	"marketplace-auction-service/internal/ports/outbound"

	"github.com/alitto/pond"
	"github.com/rs/zerolog"
)

// ErrQueueFull is returned when the fan-out pool cannot take another event
var ErrQueueFull = errors.New("event queue is full")

// deliveryTimeout bounds a single delivery to one target
const deliveryTimeout = 5 * time.Second

// FanoutPublisher hands each event to every target on a bounded worker pool,
// so a slow broker never holds up the request that produced the event
type FanoutPublisher struct {
	targets []outbound.EventPublisher
	pool    *pond.WorkerPool
	logger  zerolog.Logger
}

type FanoutPublisherParams struct {
	Targets     []outbound.EventPublisher
	MaxWorkers  int
	MaxCapacity int
	Logger      zerolog.Logger
}

func NewFanoutPublisher(params FanoutPublisherParams) *FanoutPublisher {
	return &FanoutPublisher{
		targets: params.Targets,
		pool: pond.New(
			params.MaxWorkers,
			params.MaxCapacity,
			pond.Strategy(pond.Balanced()),
		),
		logger: params.Logger.With().Str("component", "fanout_publisher").Logger(),
	}
}

// Publish queues the event for every target. It only fails when the queue is full.
func (f *FanoutPublisher) Publish(ctx context.Context, event outbound.Event) error {
	ctx = context.WithoutCancel(ctx)

	for _, target := range f.targets {
		target := target
		submitted := f.pool.TrySubmit(func() {
			deliverCtx, cancel := context.WithTimeout(ctx, deliveryTimeout)
			defer cancel()

			if err := target.Publish(deliverCtx, event); err != nil {
				f.logger.Error().Err(err).
					Str("event_id", event.ID.String()).
					Str("event_type", string(event.Type)).
					Str("auction_id", event.AuctionID.String()).
					Msg("Event delivery failed")
			}
		})
		if !submitted {
			f.logger.Warn().
				Str("event_type", string(event.Type)).
				Str("auction_id", event.AuctionID.String()).
				Msg("Event queue full, dropping event")
			return ErrQueueFull
		}
	}

	return nil
}

// Close waits for queued deliveries to finish
func (f *FanoutPublisher) Close() {
	f.pool.StopAndWait()
}

package broadcaster

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"marketplace-auction-service/internal/ports/outbound"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisPublisher publishes domain events on a per-auction Redis pub/sub channel
type RedisPublisher struct {
	client *redis.Client
	logger zerolog.Logger
}

type RedisPublisherParams struct {
	RedisClient *redis.Client
	Logger      zerolog.Logger
}

func NewRedisPublisher(params RedisPublisherParams) *RedisPublisher {
	return &RedisPublisher{
		client: params.RedisClient,
		logger: params.Logger.With().Str("component", "redis_publisher").Logger(),
	}
}

// ChannelName returns the pub/sub channel carrying an auction's events
func ChannelName(auctionID uuid.UUID) string {
	return fmt.Sprintf("auction:%s", auctionID.String())
}

// Publish publishes an event to all subscribers of an auction via Redis
func (r *RedisPublisher) Publish(ctx context.Context, event outbound.Event) error {
	channelName := ChannelName(event.AuctionID)

	if event.Timestamp == 0 {
		event.Timestamp = time.Now().Unix()
	}

	eventJSON, err := json.Marshal(event)
	if err != nil {
		r.logger.Error().Err(err).Msg("Failed to marshal event")
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	result := r.client.Publish(ctx, channelName, eventJSON)
	if err := result.Err(); err != nil {
		r.logger.Error().Err(err).Str("channel_name", channelName).Msg("Failed to publish to Redis")
		return fmt.Errorf("failed to publish to Redis: %w", err)
	}

	r.logger.Debug().
		Str("event_type", string(event.Type)).
		Str("auction_id", event.AuctionID.String()).
		Int64("subscriber_count", result.Val()).
		Msg("Published event to auction channel")

	return nil
}

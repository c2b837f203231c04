package broadcaster

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"marketplace-auction-service/internal/ports/outbound"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog"
)

// SubjectPrefix is the subject namespace of every auction event
const SubjectPrefix = "auction.events"

// JetStreamPublisher appends domain events to a persistent JetStream stream
// for audit and archival consumers
type JetStreamPublisher struct {
	js     jetstream.JetStream
	stream string
	logger zerolog.Logger
}

type JetStreamPublisherParams struct {
	Conn   *nats.Conn
	Stream string
	Logger zerolog.Logger
}

// NewJetStreamPublisher creates the publisher and makes sure the stream exists
func NewJetStreamPublisher(ctx context.Context, params JetStreamPublisherParams) (*JetStreamPublisher, error) {
	js, err := jetstream.New(params.Conn)
	if err != nil {
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:        params.Stream,
		Description: "Auction lifecycle and bid events",
		Subjects:    []string{SubjectPrefix + ".>"},
		Storage:     jetstream.FileStorage,
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      7 * 24 * time.Hour,
		Replicas:    1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create/update stream: %w", err)
	}

	logger := params.Logger.With().Str("component", "jetstream_publisher").Logger()
	logger.Info().Str("stream", params.Stream).Msg("JetStream stream ready")

	return &JetStreamPublisher{
		js:     js,
		stream: params.Stream,
		logger: logger,
	}, nil
}

// Subject returns the subject an event is published on, e.g. auction.events.bid.placed
func Subject(eventType outbound.EventType) string {
	return SubjectPrefix + "." + string(eventType)
}

// Publish waits for the server to acknowledge the event
func (p *JetStreamPublisher) Publish(ctx context.Context, event outbound.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	// the event id doubles as the dedup key, so a retried publish is stored once
	ack, err := p.js.Publish(ctx, Subject(event.Type), data, jetstream.WithMsgID(event.ID.String()))
	if err != nil {
		return fmt.Errorf("failed to publish to JetStream: %w", err)
	}

	p.logger.Debug().
		Str("event_type", string(event.Type)).
		Str("auction_id", event.AuctionID.String()).
		Uint64("seq", ack.Sequence).
		Msg("Published event to stream")

	return nil
}

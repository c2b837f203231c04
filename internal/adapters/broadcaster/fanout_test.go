package broadcaster

import (
	"context"
	"errors"
	"testing"

	"marketplace-auction-service/internal/ports/outbound"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, event outbound.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func TestFanoutPublisher_DeliversToEveryTarget(t *testing.T) {
	event := outbound.Event{
		ID:        uuid.New(),
		Type:      outbound.EventTypeBidPlaced,
		AuctionID: uuid.New(),
		Timestamp: 1700000000,
	}

	healthy := new(mockPublisher)
	healthy.On("Publish", mock.Anything, event).Return(nil).Once()

	broken := new(mockPublisher)
	broken.On("Publish", mock.Anything, event).Return(errors.New("broker down")).Once()

	fanout := NewFanoutPublisher(FanoutPublisherParams{
		Targets:     []outbound.EventPublisher{healthy, broken},
		MaxWorkers:  2,
		MaxCapacity: 10,
		Logger:      zerolog.Nop(),
	})

	assert.NoError(t, fanout.Publish(context.Background(), event))
	fanout.Close()

	healthy.AssertExpectations(t)
	broken.AssertExpectations(t)
}

func TestFanoutPublisher_OutlivesRequestContext(t *testing.T) {
	event := outbound.Event{ID: uuid.New(), Type: outbound.EventTypeAuctionSettled, AuctionID: uuid.New()}

	target := new(mockPublisher)
	target.On("Publish", mock.MatchedBy(func(ctx context.Context) bool {
		return ctx.Err() == nil
	}), event).Return(nil).Once()

	fanout := NewFanoutPublisher(FanoutPublisherParams{
		Targets:     []outbound.EventPublisher{target},
		MaxWorkers:  1,
		MaxCapacity: 10,
		Logger:      zerolog.Nop(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	assert.NoError(t, fanout.Publish(ctx, event))
	cancel()
	fanout.Close()

	target.AssertExpectations(t)
}

func TestSubjectAndChannelNames(t *testing.T) {
	auctionID := uuid.MustParse("1b4e28ba-2fa1-11d2-883f-0016d3cca427")

	assert.Equal(t, "auction.events.bid.placed", Subject(outbound.EventTypeBidPlaced))
	assert.Equal(t, "auction.events.auction.ended", Subject(outbound.EventTypeAuctionEnded))
	assert.Equal(t, "auction:1b4e28ba-2fa1-11d2-883f-0016d3cca427", ChannelName(auctionID))
}

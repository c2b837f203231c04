package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"marketplace-auction-service/internal/domain/auction"
	"marketplace-auction-service/internal/domain/bid"
	"marketplace-auction-service/internal/domain/order"
	"marketplace-auction-service/internal/domain/shared"
	"marketplace-auction-service/internal/ports/inbound"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockAuctionService struct {
	mock.Mock
}

func (m *mockAuctionService) CreateAuction(ctx context.Context, req inbound.CreateAuctionRequest) (*auction.Auction, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auction.Auction), args.Error(1)
}

func (m *mockAuctionService) GetAuction(ctx context.Context, auctionID uuid.UUID) (*auction.Detail, error) {
	args := m.Called(ctx, auctionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auction.Detail), args.Error(1)
}

func (m *mockAuctionService) ListAuctions(ctx context.Context, req inbound.ListAuctionsRequest) (*auction.Page, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auction.Page), args.Error(1)
}

func (m *mockAuctionService) SweepStatuses(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

type mockBidService struct {
	mock.Mock
}

func (m *mockBidService) PlaceBid(ctx context.Context, req inbound.PlaceBidRequest) (*bid.Bid, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*bid.Bid), args.Error(1)
}

func (m *mockBidService) ListBids(ctx context.Context, auctionID uuid.UUID) ([]*bid.Bid, error) {
	args := m.Called(ctx, auctionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*bid.Bid), args.Error(1)
}

type mockSettlementService struct {
	mock.Mock
}

func (m *mockSettlementService) ApproveBid(ctx context.Context, req inbound.ApproveBidRequest) (*order.Settlement, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Settlement), args.Error(1)
}

func (m *mockSettlementService) GetSettlement(ctx context.Context, auctionID uuid.UUID) (*order.Settlement, error) {
	args := m.Called(ctx, auctionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Settlement), args.Error(1)
}

type fixture struct {
	auctions    *mockAuctionService
	bids        *mockBidService
	settlements *mockSettlementService
	router      http.Handler
}

func newFixture() *fixture {
	f := &fixture{
		auctions:    new(mockAuctionService),
		bids:        new(mockBidService),
		settlements: new(mockSettlementService),
	}
	f.router = NewHandler(HandlerParams{
		AuctionService:    f.auctions,
		BidService:        f.bids,
		SettlementService: f.settlements,
		Logger:            zerolog.Nop(),
	}).Routes()
	return f
}

func (f *fixture) do(method, path string, userID *uuid.UUID, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if userID != nil {
		req.Header.Set(UserIDHeader, userID.String())
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Error
}

func TestHandler_RequiresIdentity(t *testing.T) {
	f := newFixture()

	rec := f.do(http.MethodGet, "/api/auctions", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, codeUnauthorized, decodeError(t, rec).Code)

	req := httptest.NewRequest(http.MethodGet, "/api/auctions", nil)
	req.Header.Set(UserIDHeader, "not-a-uuid")
	rec = httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	f.auctions.AssertNotCalled(t, "ListAuctions", mock.Anything, mock.Anything)
}

func TestHandler_HealthIsPublic(t *testing.T) {
	f := newFixture()
	rec := f.do(http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandler_CreateAuction(t *testing.T) {
	f := newFixture()
	owner := uuid.New()
	category := uuid.New()
	start := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	created := &auction.Auction{ID: uuid.New(), OwnerID: owner, Status: auction.StatusScheduled}
	f.auctions.On("CreateAuction", mock.Anything, mock.MatchedBy(func(req inbound.CreateAuctionRequest) bool {
		return req.OwnerID == owner &&
			req.CategoryID == category &&
			req.Title == "Camera" &&
			req.StartingBid.Equal(decimal.RequireFromString("10.50")) &&
			req.ReservePrice == nil &&
			req.StartTime.Equal(start)
	})).Return(created, nil).Once()

	body := `{"title":"Camera","description":"Film camera","image":"img/1","category_id":"` + category.String() +
		`","starting_bid":"10.50","start_time":"2026-05-01T10:00:00Z","end_time":"2026-05-01T11:00:00Z"}`
	rec := f.do(http.MethodPost, "/api/auctions", &owner, body)

	assert.Equal(t, http.StatusCreated, rec.Code)
	var got auction.Auction
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, created.ID, got.ID)
	f.auctions.AssertExpectations(t)
}

func TestHandler_CreateAuctionRejectsMalformedBody(t *testing.T) {
	f := newFixture()
	owner := uuid.New()

	tests := []struct {
		name string
		body string
		want string
	}{
		{"not json", `{`, "request body is not valid JSON"},
		{"missing times", `{"title":"Camera"}`, "'start_time': this field is required"},
		{"bad category", `{"category_id":"nope","start_time":"2026-05-01T10:00:00Z","end_time":"2026-05-01T11:00:00Z"}`, "'category_id': should be a valid uuid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(http.MethodPost, "/api/auctions", &owner, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			errBody := decodeError(t, rec)
			assert.Equal(t, string(shared.KindInvalidArgument), errBody.Code)
			assert.Contains(t, errBody.Message, tt.want)
		})
	}

	f.auctions.AssertNotCalled(t, "CreateAuction", mock.Anything, mock.Anything)
}

func TestHandler_PlaceBidMapsDomainErrors(t *testing.T) {
	auctionID := uuid.New()
	bidder := uuid.New()

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantMsg    string
	}{
		{"not found", shared.ErrAuctionNotFound, http.StatusNotFound, "not_found", "auction not found"},
		{"not started", shared.ErrAuctionNotStarted, http.StatusConflict, "invalid_state", "auction not started"},
		{"ended", shared.ErrAuctionEnded, http.StatusConflict, "invalid_state", "auction ended"},
		{"owner", shared.ErrOwnerCannotBid, http.StatusForbidden, "forbidden", "owner cannot bid on own auction"},
		{"too low", shared.BidTooLow(decimal.RequireFromString("15")), http.StatusBadRequest, "invalid_argument", "bid amount must be higher than current highest bid of $15"},
		{"timeout", shared.ErrOperationTimeout, http.StatusServiceUnavailable, "timeout", shared.ErrOperationTimeout.Message},
		{"conflict", shared.ErrTooManyConflicts, http.StatusConflict, "conflict", shared.ErrTooManyConflicts.Message},
		{"infrastructure", errors.New("connection refused"), http.StatusInternalServerError, "internal", "internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.bids.On("PlaceBid", mock.Anything, inbound.PlaceBidRequest{
				AuctionID: auctionID,
				BidderID:  bidder,
				Amount:    decimal.RequireFromString("12"),
			}).Return(nil, tt.err).Once()

			rec := f.do(http.MethodPost, "/api/auctions/"+auctionID.String()+"/bids", &bidder, `{"amount":12}`)

			assert.Equal(t, tt.wantStatus, rec.Code)
			errBody := decodeError(t, rec)
			assert.Equal(t, tt.wantCode, errBody.Code)
			assert.Equal(t, tt.wantMsg, errBody.Message)
			f.bids.AssertExpectations(t)
		})
	}
}

func TestHandler_PlaceBidRetryableSetsRetryAfter(t *testing.T) {
	f := newFixture()
	auctionID := uuid.New()
	bidder := uuid.New()
	f.bids.On("PlaceBid", mock.Anything, mock.Anything).Return(nil, shared.ErrTooManyConflicts).Once()

	rec := f.do(http.MethodPost, "/api/auctions/"+auctionID.String()+"/bids", &bidder, `{"amount":"20"}`)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
}

func TestHandler_PlaceBid(t *testing.T) {
	f := newFixture()
	auctionID := uuid.New()
	bidder := uuid.New()
	placed := bid.New(auctionID, bidder, decimal.RequireFromString("20"), time.Now())

	f.bids.On("PlaceBid", mock.Anything, mock.MatchedBy(func(req inbound.PlaceBidRequest) bool {
		return req.AuctionID == auctionID && req.BidderID == bidder && req.Amount.Equal(decimal.RequireFromString("20"))
	})).Return(placed, nil).Once()

	rec := f.do(http.MethodPost, "/api/auctions/"+auctionID.String()+"/bids", &bidder, `{"amount":"20"}`)

	assert.Equal(t, http.StatusCreated, rec.Code)
	var got bid.Bid
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, placed.ID, got.ID)
	assert.Equal(t, bid.StatusWinning, got.Status)
}

func TestHandler_PlaceBidRequiresAmount(t *testing.T) {
	f := newFixture()
	bidder := uuid.New()

	rec := f.do(http.MethodPost, "/api/auctions/"+uuid.NewString()+"/bids", &bidder, `{}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeError(t, rec).Message, "'amount': this field is required")
	f.bids.AssertNotCalled(t, "PlaceBid", mock.Anything, mock.Anything)
}

func TestHandler_InvalidPathID(t *testing.T) {
	f := newFixture()
	user := uuid.New()

	rec := f.do(http.MethodGet, "/api/auctions/not-a-uuid", &user, "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "auctionId must be a valid uuid", decodeError(t, rec).Message)
}

func TestHandler_ListAuctionsParsesQuery(t *testing.T) {
	f := newFixture()
	user := uuid.New()
	category := uuid.New()
	live := auction.StatusLive

	f.auctions.On("ListAuctions", mock.Anything, inbound.ListAuctionsRequest{
		Status:     &live,
		CategoryID: &category,
		Search:     "camera",
		Page:       2,
		Limit:      5,
	}).Return(&auction.Page{Auctions: []*auction.Auction{}, TotalCount: 7, Page: 2, Limit: 5}, nil).Once()

	rec := f.do(http.MethodGet, "/api/auctions?status=live&category_id="+category.String()+"&search=camera&page=2&limit=5", &user, "")

	assert.Equal(t, http.StatusOK, rec.Code)
	var page auction.Page
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, 7, page.TotalCount)
	f.auctions.AssertExpectations(t)
}

func TestHandler_ListAuctionsRejectsBadQuery(t *testing.T) {
	f := newFixture()
	user := uuid.New()

	for _, query := range []string{"status=closed", "category_id=x", "page=0", "limit=abc"} {
		rec := f.do(http.MethodGet, "/api/auctions?"+query, &user, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, query)
	}
	f.auctions.AssertNotCalled(t, "ListAuctions", mock.Anything, mock.Anything)
}

func TestHandler_ApproveBid(t *testing.T) {
	f := newFixture()
	owner := uuid.New()
	auctionID := uuid.New()
	bidID := uuid.New()

	settlement := &order.Settlement{Order: &order.Order{ID: uuid.New(), Status: order.StatusCompleted}}
	f.settlements.On("ApproveBid", mock.Anything, inbound.ApproveBidRequest{
		AuctionID:  auctionID,
		BidID:      bidID,
		ApproverID: owner,
	}).Return(settlement, nil).Once()

	rec := f.do(http.MethodPost, "/api/auctions/"+auctionID.String()+"/bids/"+bidID.String()+"/approve", &owner, "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), settlement.Order.ID.String())
	f.settlements.AssertExpectations(t)
}

func TestHandler_ApproveBidForbidden(t *testing.T) {
	f := newFixture()
	stranger := uuid.New()
	f.settlements.On("ApproveBid", mock.Anything, mock.Anything).Return(nil, shared.ErrNotAuctionOwner).Once()

	rec := f.do(http.MethodPost, "/api/auctions/"+uuid.NewString()+"/bids/"+uuid.NewString()+"/approve", &stranger, "")

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "only the auction owner can approve a bid", decodeError(t, rec).Message)
}

func TestHandler_SweepStatuses(t *testing.T) {
	f := newFixture()
	user := uuid.New()
	f.auctions.On("SweepStatuses", mock.Anything).Return(3, nil).Once()

	rec := f.do(http.MethodPost, "/api/auctions/sweep", &user, "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"updated":3}`, rec.Body.String())
}

func TestHandler_GetSettlementNotSettled(t *testing.T) {
	f := newFixture()
	user := uuid.New()
	auctionID := uuid.New()
	f.settlements.On("GetSettlement", mock.Anything, auctionID).Return(nil, shared.ErrNotSettled).Once()

	rec := f.do(http.MethodGet, "/api/auctions/"+auctionID.String()+"/settlement", &user, "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "auction has not been settled", decodeError(t, rec).Message)
}

package rest

import (
	"encoding/json"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"marketplace-auction-service/internal/domain/auction"
	"marketplace-auction-service/internal/domain/shared"
	"marketplace-auction-service/internal/ports/inbound"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

// Handler exposes the auction services over HTTP
type Handler struct {
	auctionService    inbound.AuctionService
	bidService        inbound.BidService
	settlementService inbound.SettlementService
	validate          *validator.Validate
	logger            zerolog.Logger
}

type HandlerParams struct {
	AuctionService    inbound.AuctionService
	BidService        inbound.BidService
	SettlementService inbound.SettlementService
	Logger            zerolog.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(params HandlerParams) *Handler {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Handler{
		auctionService:    params.AuctionService,
		bidService:        params.BidService,
		settlementService: params.SettlementService,
		validate:          validate,
		logger:            params.Logger.With().Str("component", "rest_handler").Logger(),
	}
}

// Routes configures all HTTP routes
func (h *Handler) Routes() *mux.Router {
	router := mux.NewRouter()
	router.Use(loggingMiddleware(h.logger))

	router.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()
	api.Use(identityMiddleware)

	api.HandleFunc("/auctions", h.CreateAuction).Methods(http.MethodPost)
	api.HandleFunc("/auctions", h.ListAuctions).Methods(http.MethodGet)
	api.HandleFunc("/auctions/sweep", h.SweepStatuses).Methods(http.MethodPost)
	api.HandleFunc("/auctions/{auctionId}", h.GetAuction).Methods(http.MethodGet)
	api.HandleFunc("/auctions/{auctionId}/bids", h.ListBids).Methods(http.MethodGet)
	api.HandleFunc("/auctions/{auctionId}/bids", h.PlaceBid).Methods(http.MethodPost)
	api.HandleFunc("/auctions/{auctionId}/bids/{bidId}/approve", h.ApproveBid).Methods(http.MethodPost)
	api.HandleFunc("/auctions/{auctionId}/settlement", h.GetSettlement).Methods(http.MethodGet)

	return router
}

// HealthCheck returns service health status
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "marketplace-auction",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// CreateAuction lists a new auction owned by the caller
func (h *Handler) CreateAuction(w http.ResponseWriter, r *http.Request) {
	ownerID, _ := UserIDFrom(r.Context())

	var body createAuctionRequest
	if err := h.decode(r, &body); err != nil {
		h.respondError(w, r, err)
		return
	}

	var categoryID uuid.UUID
	if body.CategoryID != "" {
		parsed, err := uuid.Parse(body.CategoryID)
		if err != nil {
			h.respondError(w, r, invalidArgument("category_id must be a valid uuid"))
			return
		}
		categoryID = parsed
	}

	created, err := h.auctionService.CreateAuction(r.Context(), inbound.CreateAuctionRequest{
		Title:        body.Title,
		Description:  body.Description,
		ImageURL:     body.Image,
		CategoryID:   categoryID,
		OwnerID:      ownerID,
		StartingBid:  body.StartingBid,
		ReservePrice: body.ReservePrice,
		StartTime:    body.StartTime,
		EndTime:      body.EndTime,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, created)
}

// ListAuctions returns one page of auctions
func (h *Handler) ListAuctions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	req := inbound.ListAuctionsRequest{Search: query.Get("search")}

	if raw := query.Get("status"); raw != "" {
		status, ok := auction.ParseStatus(raw)
		if !ok {
			h.respondError(w, r, shared.ErrInvalidStatusFilter)
			return
		}
		req.Status = &status
	}

	if raw := query.Get("category_id"); raw != "" {
		categoryID, err := uuid.Parse(raw)
		if err != nil {
			h.respondError(w, r, invalidArgument("category_id must be a valid uuid"))
			return
		}
		req.CategoryID = &categoryID
	}

	var err error
	if req.Page, err = intParam(query.Get("page")); err != nil {
		h.respondError(w, r, invalidArgument("page must be a positive integer"))
		return
	}
	if req.Limit, err = intParam(query.Get("limit")); err != nil {
		h.respondError(w, r, invalidArgument("limit must be a positive integer"))
		return
	}

	page, err := h.auctionService.ListAuctions(r.Context(), req)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, page)
}

// GetAuction returns an auction with its current highest bid and bid count
func (h *Handler) GetAuction(w http.ResponseWriter, r *http.Request) {
	auctionID, err := pathID(r, "auctionId")
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	detail, err := h.auctionService.GetAuction(r.Context(), auctionID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, detail)
}

// ListBids returns the bids on an auction, highest first
func (h *Handler) ListBids(w http.ResponseWriter, r *http.Request) {
	auctionID, err := pathID(r, "auctionId")
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	bids, err := h.bidService.ListBids(r.Context(), auctionID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"bids": bids})
}

// PlaceBid places a bid on behalf of the caller
func (h *Handler) PlaceBid(w http.ResponseWriter, r *http.Request) {
	bidderID, _ := UserIDFrom(r.Context())

	auctionID, err := pathID(r, "auctionId")
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	var body placeBidRequest
	if err := h.decode(r, &body); err != nil {
		h.respondError(w, r, err)
		return
	}

	placed, err := h.bidService.PlaceBid(r.Context(), inbound.PlaceBidRequest{
		AuctionID: auctionID,
		BidderID:  bidderID,
		Amount:    *body.Amount,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, placed)
}

// ApproveBid settles the auction in favour of a bid. Only the owner may call it.
func (h *Handler) ApproveBid(w http.ResponseWriter, r *http.Request) {
	approverID, _ := UserIDFrom(r.Context())

	auctionID, err := pathID(r, "auctionId")
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	bidID, err := pathID(r, "bidId")
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	settlement, err := h.settlementService.ApproveBid(r.Context(), inbound.ApproveBidRequest{
		AuctionID:  auctionID,
		BidID:      bidID,
		ApproverID: approverID,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, settlement)
}

// GetSettlement returns the order created for a settled auction
func (h *Handler) GetSettlement(w http.ResponseWriter, r *http.Request) {
	auctionID, err := pathID(r, "auctionId")
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	settlement, err := h.settlementService.GetSettlement(r.Context(), auctionID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, settlement)
}

// SweepStatuses advances every lagging auction status
func (h *Handler) SweepStatuses(w http.ResponseWriter, r *http.Request) {
	updated, err := h.auctionService.SweepStatuses(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, sweepResponse{Updated: updated})
}

func (h *Handler) decode(r *http.Request, dst interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return invalidArgument("request body is not valid JSON")
	}
	if err := h.validate.Struct(dst); err != nil {
		return validationError(err)
	}
	return nil
}

func pathID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	if err != nil {
		return uuid.Nil, invalidArgument(name + " must be a valid uuid")
	}
	return id, nil
}

// intParam parses an optional positive integer query parameter; 0 means unset
func intParam(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 1 {
		return 0, strconv.ErrSyntax
	}
	return value, nil
}

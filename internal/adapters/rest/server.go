package rest

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"marketplace-auction-service/internal/config"
	"marketplace-auction-service/internal/ports/inbound"

	"github.com/rs/zerolog"
)

type Server struct {
	handler    *Handler
	httpServer *http.Server
	config     *config.Config
	logger     zerolog.Logger
}

type ServerParams struct {
	Config            *config.Config
	AuctionService    inbound.AuctionService
	BidService        inbound.BidService
	SettlementService inbound.SettlementService
	Logger            zerolog.Logger
}

func NewServer(params ServerParams) *Server {
	handler := NewHandler(HandlerParams{
		AuctionService:    params.AuctionService,
		BidService:        params.BidService,
		SettlementService: params.SettlementService,
		Logger:            params.Logger,
	})

	httpServer := &http.Server{
		Addr:         params.Config.ListenAddress(),
		Handler:      handler.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		handler:    handler,
		httpServer: httpServer,
		config:     params.Config,
		logger:     params.Logger.With().Str("component", "http_server").Logger(),
	}
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.httpServer.Addr).Msg("Starting HTTP server")

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	return nil
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info().Msg("Stopping HTTP server...")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}

	s.logger.Info().Msg("HTTP server stopped")
	return nil
}

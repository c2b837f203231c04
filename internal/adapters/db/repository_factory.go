package db

import (
	"marketplace-auction-service/internal/ports/outbound"

	"github.com/rs/zerolog"
)

var (
	_ outbound.AuctionRepository  = (*AuctionRepository)(nil)
	_ outbound.BidRepository      = (*BidRepository)(nil)
	_ outbound.CategoryRepository = (*CategoryRepository)(nil)
	_ outbound.OrderRepository    = (*OrderRepository)(nil)
	_ outbound.TxManager          = (*TxManager)(nil)
	_ outbound.AuctionTx          = (*auctionTx)(nil)
)

// Repositories groups every store port for dependency injection
type Repositories struct {
	AuctionRepository  outbound.AuctionRepository
	BidRepository      outbound.BidRepository
	CategoryRepository outbound.CategoryRepository
	OrderRepository    outbound.OrderRepository
	TxManager          outbound.TxManager
}

// RepositoryFactory creates and manages all database repositories
type RepositoryFactory struct {
	conn       *Connection
	maxRetries int
	logger     zerolog.Logger
}

// NewRepositoryFactory creates a new repository factory
func NewRepositoryFactory(conn *Connection, maxRetries int, logger zerolog.Logger) *RepositoryFactory {
	return &RepositoryFactory{conn: conn, maxRetries: maxRetries, logger: logger}
}

// GetAuctionRepository returns the auction repository
func (f *RepositoryFactory) GetAuctionRepository() outbound.AuctionRepository {
	return NewAuctionRepository(f.conn)
}

// GetBidRepository returns the bid repository
func (f *RepositoryFactory) GetBidRepository() outbound.BidRepository {
	return NewBidRepository(f.conn)
}

// GetCategoryRepository returns the category repository
func (f *RepositoryFactory) GetCategoryRepository() outbound.CategoryRepository {
	return NewCategoryRepository(f.conn)
}

// GetOrderRepository returns the order repository
func (f *RepositoryFactory) GetOrderRepository() outbound.OrderRepository {
	return NewOrderRepository(f.conn)
}

// GetTxManager returns the auction-scoped transaction manager
func (f *RepositoryFactory) GetTxManager() outbound.TxManager {
	return NewTxManager(TxManagerParams{
		Conn:       f.conn,
		MaxRetries: f.maxRetries,
		Logger:     f.logger,
	})
}

// GetAllRepositories returns all repositories in a struct for easy dependency injection
func (f *RepositoryFactory) GetAllRepositories() Repositories {
	return Repositories{
		AuctionRepository:  f.GetAuctionRepository(),
		BidRepository:      f.GetBidRepository(),
		CategoryRepository: f.GetCategoryRepository(),
		OrderRepository:    f.GetOrderRepository(),
		TxManager:          f.GetTxManager(),
	}
}

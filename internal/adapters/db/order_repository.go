package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"marketplace-auction-service/internal/domain/order"
	"marketplace-auction-service/internal/domain/shared"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
)

// OrderRepository reads the records written at settlement
type OrderRepository struct {
	conn *Connection
}

// NewOrderRepository creates a new order repository
func NewOrderRepository(conn *Connection) *OrderRepository {
	return &OrderRepository{conn: conn}
}

// GetSettlement returns the order, order line and sold-item snapshot of an auction
func (r *OrderRepository) GetSettlement(ctx context.Context, auctionID uuid.UUID) (*order.Settlement, error) {
	query, args, err := r.conn.Builder().
		Select(
			"o.id", "o.buyer_id", "o.auction_id", "o.total_amount", "o.status", "o.created_at",
			"oi.id", "oi.order_id", "oi.sold_item_id", "oi.quantity", "oi.price",
			"s.id", "s.auction_id", "s.seller_id", "s.title", "s.description", "s.image_url",
			"s.category_id", "s.price", "s.available", "s.created_at",
		).
		From("orders o").
		Join("order_items oi ON oi.order_id = o.id").
		Join("sold_items s ON s.id = oi.sold_item_id").
		Where(squirrel.Eq{"o.auction_id": auctionID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build settlement query: %w", err)
	}

	var o order.Order
	var item order.Item
	var soldItem order.SoldItem

	err = r.conn.GetDB().QueryRowContext(ctx, query, args...).Scan(
		&o.ID, &o.BuyerID, &o.AuctionID, &o.TotalAmount, &o.Status, &o.CreatedAt,
		&item.ID, &item.OrderID, &item.SoldItemID, &item.Quantity, &item.Price,
		&soldItem.ID, &soldItem.AuctionID, &soldItem.SellerID, &soldItem.Title, &soldItem.Description, &soldItem.ImageURL,
		&soldItem.CategoryID, &soldItem.Price, &soldItem.Available, &soldItem.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, shared.ErrNotSettled
		}
		return nil, fmt.Errorf("failed to get settlement: %w", err)
	}

	return &order.Settlement{Order: &o, Item: &item, SoldItem: &soldItem}, nil
}

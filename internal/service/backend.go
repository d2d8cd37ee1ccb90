package service

import (
	"context"

	"github.com/fjod/go_storefront/domain"
)

// Catalog resolves product snapshots. A missing product is reported as a
// rejected response (404), not as a nil snapshot.
type Catalog interface {
	GetProductByID(ctx context.Context, id int64) (*domain.ProductSnapshot, error)
}

type CartBackend interface {
	GetCartByUser(ctx context.Context, userID string) ([]domain.CartEntry, error)
	AddToCart(ctx context.Context, userID string, productID int64, quantity int) error
	UpdateQuantity(ctx context.Context, userID string, productID int64, quantity int) error
	RemoveFromCart(ctx context.Context, userID string, productID int64) error
	ClearCart(ctx context.Context, userID string) error
}

type OrderBackend interface {
	CreateOrder(ctx context.Context, req domain.CreateOrderRequest) (*domain.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID string, status domain.OrderStatus) (*domain.Order, error)
}

// CartClearer is the single cart call checkout needs.
type CartClearer interface {
	ClearCart(ctx context.Context, userID string) error
}

package service

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/fjod/go_storefront/domain"
	"github.com/fjod/go_storefront/internal/client"
	"github.com/shopspring/decimal"
)

var errBackendDown = fmt.Errorf("%w: dial tcp 127.0.0.1:8080: connection refused", client.ErrTransport)

func rejected(status int) error {
	return &client.StatusError{Method: http.MethodGet, Path: "/test", StatusCode: status}
}

func product(id int64, price string) *domain.ProductSnapshot {
	return &domain.ProductSnapshot{
		ID:       id,
		Name:     fmt.Sprintf("product-%d", id),
		Price:    decimal.RequireFromString(price),
		Currency: domain.DefaultCurrency,
		Stock:    10,
	}
}

func discontinued(id int64, price string) *domain.ProductSnapshot {
	p := product(id, price)
	p.Discontinued = true
	return p
}

// MockCatalog implements Catalog for testing
type MockCatalog struct {
	mu       sync.Mutex
	Products map[int64]*domain.ProductSnapshot // ids not present answer 404
	Errs     map[int64]error
	Err      error
	Lookups  []int64
}

func (m *MockCatalog) GetProductByID(_ context.Context, id int64) (*domain.ProductSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Lookups = append(m.Lookups, id)
	if m.Err != nil {
		return nil, m.Err
	}
	if err, ok := m.Errs[id]; ok {
		return nil, err
	}
	p, ok := m.Products[id]
	if !ok {
		return nil, rejected(http.StatusNotFound)
	}
	cp := *p
	return &cp, nil
}

type updateCall struct {
	UserID    string
	ProductID int64
	Quantity  int
}

type removeCall struct {
	UserID    string
	ProductID int64
}

// MockCartBackend implements CartBackend for testing
type MockCartBackend struct {
	mu      sync.Mutex
	Entries []domain.CartEntry
	GetErr  error

	AddErr    error
	UpdateErr error
	RemoveErr error
	ClearErr  error

	Added   []updateCall
	Updated []updateCall
	Removed []removeCall
	Cleared []string
}

func (m *MockCartBackend) GetCartByUser(_ context.Context, _ string) ([]domain.CartEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	return append([]domain.CartEntry(nil), m.Entries...), nil
}

func (m *MockCartBackend) AddToCart(_ context.Context, userID string, productID int64, quantity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Added = append(m.Added, updateCall{UserID: userID, ProductID: productID, Quantity: quantity})
	return m.AddErr
}

func (m *MockCartBackend) UpdateQuantity(_ context.Context, userID string, productID int64, quantity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Updated = append(m.Updated, updateCall{UserID: userID, ProductID: productID, Quantity: quantity})
	if m.UpdateErr != nil {
		return m.UpdateErr
	}
	for i := range m.Entries {
		if m.Entries[i].ProductID == productID {
			m.Entries[i].Quantity = quantity
		}
	}
	return nil
}

func (m *MockCartBackend) RemoveFromCart(_ context.Context, userID string, productID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Removed = append(m.Removed, removeCall{UserID: userID, ProductID: productID})
	return m.RemoveErr
}

func (m *MockCartBackend) ClearCart(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Cleared = append(m.Cleared, userID)
	return m.ClearErr
}

func (m *MockCartBackend) removedIDs() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]int64, 0, len(m.Removed))
	for _, r := range m.Removed {
		ids = append(ids, r.ProductID)
	}
	return ids
}

// MockOrderBackend implements OrderBackend for testing
type MockOrderBackend struct {
	mu        sync.Mutex
	Order     *domain.Order
	CreateErr error
	UpdateErr error

	Created  []domain.CreateOrderRequest
	Statuses []domain.OrderStatus
}

func (m *MockOrderBackend) CreateOrder(_ context.Context, req domain.CreateOrderRequest) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Created = append(m.Created, req)
	if m.CreateErr != nil {
		return nil, m.CreateErr
	}
	if m.Order != nil {
		cp := *m.Order
		return &cp, nil
	}
	return &domain.Order{
		ID:     "order-1",
		UserID: req.UserID,
		Status: req.Status,
		Total:  req.Total,
		Items:  req.Items,
	}, nil
}

func (m *MockOrderBackend) UpdateOrderStatus(_ context.Context, orderID string, status domain.OrderStatus) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Statuses = append(m.Statuses, status)
	if m.UpdateErr != nil {
		return nil, m.UpdateErr
	}
	return &domain.Order{ID: orderID, Status: status}, nil
}

// MockPayment implements PaymentStep without delay. When Release is set, Pay
// signals Started and waits for Release.
type MockPayment struct {
	Err     error
	Started chan struct{}
	Release chan struct{}
	Calls   int
}

func (m *MockPayment) Pay(_ context.Context, _ domain.Order) error {
	m.Calls++
	if m.Release != nil {
		close(m.Started)
		<-m.Release
	}
	return m.Err
}

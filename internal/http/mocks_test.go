package http

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/fjod/go_storefront/domain"
	"github.com/fjod/go_storefront/internal/client"
	"github.com/fjod/go_storefront/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

var (
	errConnection = fmt.Errorf("load cart: %w: %w", service.ErrConnection, client.ErrTransport)
	errNotFound   = &client.StatusError{Method: http.MethodGet, Path: "/x", StatusCode: http.StatusNotFound}
	errConflict   = &client.StatusError{Method: http.MethodPut, Path: "/x", StatusCode: http.StatusConflict}
)

func testLines() []domain.CartLine {
	return []domain.CartLine{
		{Product: domain.ProductSnapshot{ID: 1, Name: "Mug", Price: decimal.RequireFromString("100"), Currency: "USD"}, Quantity: 2},
		{Product: domain.ProductSnapshot{ID: 2, Name: "Tea", Price: decimal.RequireFromString("50"), Currency: "USD"}, Quantity: 1},
	}
}

type CartServiceMock struct {
	mu        sync.Mutex
	lines     []domain.CartLine
	loadErr   error
	mutateErr error
	updated   []domain.CartLine

	calls []string
}

func (m *CartServiceMock) record(call string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)
}

func (m *CartServiceMock) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func (m *CartServiceMock) LoadCart(_ context.Context, userID string) ([]domain.CartLine, error) {
	m.record("load:" + userID)
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return m.lines, nil
}

func (m *CartServiceMock) AddToCart(_ context.Context, userID string, productID int64, quantity int) error {
	m.record(fmt.Sprintf("add:%s:%d:%d", userID, productID, quantity))
	return m.mutateErr
}

func (m *CartServiceMock) UpdateQuantity(_ context.Context, userID string, productID int64, quantity int) ([]domain.CartLine, error) {
	m.record(fmt.Sprintf("update:%s:%d:%d", userID, productID, quantity))
	if m.mutateErr != nil {
		return nil, m.mutateErr
	}
	if quantity <= 0 {
		return nil, nil
	}
	return m.updated, nil
}

func (m *CartServiceMock) Remove(_ context.Context, userID string, productID int64) error {
	m.record(fmt.Sprintf("remove:%s:%d", userID, productID))
	return m.mutateErr
}

func (m *CartServiceMock) Clear(_ context.Context, userID string) error {
	m.record("clear:" + userID)
	return m.mutateErr
}

type CheckoutServiceMock struct {
	state       domain.CheckoutState
	err         error
	delay       time.Duration
	gotLines    []domain.CartLine
	gotDeadline bool
	resets      int
}

func (m *CheckoutServiceMock) Checkout(ctx context.Context, _ string, lines []domain.CartLine) (domain.CheckoutState, error) {
	m.gotLines = lines
	_, m.gotDeadline = ctx.Deadline()
	time.Sleep(m.delay)
	return m.state, m.err
}

func (m *CheckoutServiceMock) State(_ context.Context, _ string) (domain.CheckoutState, error) {
	return m.state, m.err
}

func (m *CheckoutServiceMock) Reset(_ context.Context, _ string) (domain.CheckoutState, error) {
	m.resets++
	if m.err != nil {
		return domain.CheckoutState{}, m.err
	}
	return domain.IdleCheckoutState(), nil
}

type CatalogMock struct {
	products []domain.ProductSnapshot
	err      error
	query    string
}

func (m *CatalogMock) GetProductByID(_ context.Context, id int64) (*domain.ProductSnapshot, error) {
	if m.err != nil {
		return nil, m.err
	}
	for _, p := range m.products {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, errNotFound
}

func (m *CatalogMock) ListProducts(_ context.Context) ([]domain.ProductSnapshot, error) {
	return m.products, m.err
}

func (m *CatalogMock) SearchProducts(_ context.Context, query string) ([]domain.ProductSnapshot, error) {
	m.query = query
	return m.products, m.err
}

type OrderHistoryMock struct {
	orders []domain.Order
	err    error
}

func (m OrderHistoryMock) ListOrdersByUser(_ context.Context, _ string) ([]domain.Order, error) {
	return m.orders, m.err
}

// --- helpers ---

func withUser(r *http.Request) *http.Request {
	ctx := context.WithValue(r.Context(), userIDKey, "u1")
	return r.WithContext(ctx)
}

func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

package service

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/fjod/go_storefront/domain"
	"github.com/fjod/go_storefront/internal/metrics"
	"github.com/fjod/go_storefront/internal/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type failingStore struct {
	session.Store
	putErr error
}

func (f failingStore) Put(context.Context, string, domain.CheckoutState) error {
	return f.putErr
}

func checkoutLines() []domain.CartLine {
	return []domain.CartLine{
		{Product: *product(11, "100"), Quantity: 2},
		{Product: *product(12, "50"), Quantity: 1},
	}
}

// newTestCheckoutService creates a fully wired CheckoutService for testing
func newTestCheckoutService(orders *MockOrderBackend, cart *MockCartBackend, pay *MockPayment, opts ...CheckoutOption) (*CheckoutService, *session.MemoryStore) {
	store := session.NewMemoryStore(time.Minute)
	opts = append([]CheckoutOption{WithPayment(pay)}, opts...)
	return NewCheckoutService(orders, cart, store, opts...), store
}

func TestCheckout_BuildsOrderFromLines(t *testing.T) {
	orders := &MockOrderBackend{}
	svc, _ := newTestCheckoutService(orders, &MockCartBackend{}, &MockPayment{})

	_, err := svc.Checkout(context.Background(), "u1", checkoutLines())
	require.NoError(t, err)

	require.Len(t, orders.Created, 1)
	req := orders.Created[0]
	assert.Equal(t, "u1", req.UserID)
	assert.Equal(t, domain.OrderStatusPending, req.Status)
	assert.True(t, decimal.NewFromInt(250).Equal(req.Total), "total %s", req.Total)
	require.Len(t, req.Items, 2)
	assert.Equal(t, int64(11), req.Items[0].ProductID)
	assert.Equal(t, 2, req.Items[0].Quantity)
	assert.True(t, decimal.NewFromInt(100).Equal(req.Items[0].Price))
	assert.Equal(t, int64(12), req.Items[1].ProductID)
	assert.Equal(t, 1, req.Items[1].Quantity)
	assert.True(t, decimal.NewFromInt(50).Equal(req.Items[1].Price))
}

func TestCheckout_Success(t *testing.T) {
	orders := &MockOrderBackend{}
	cart := &MockCartBackend{}
	pay := &MockPayment{}
	reg := prometheus.NewRegistry()
	m := metrics.New("test", reg)
	svc, store := newTestCheckoutService(orders, cart, pay, WithCheckoutMetrics(m))

	state, err := svc.Checkout(context.Background(), "u1", checkoutLines())
	require.NoError(t, err)

	assert.Equal(t, domain.CheckoutStepSuccess, state.Step)
	require.NotNil(t, state.Order)
	assert.Equal(t, "order-1", state.Order.ID)
	assert.Equal(t, domain.OrderStatusCompleted, state.Order.Status)
	assert.NotNil(t, state.Lines)
	assert.Empty(t, state.Lines)
	assert.Empty(t, state.Error)
	assert.NotEmpty(t, state.RunID)

	assert.Equal(t, 1, pay.Calls)
	assert.Equal(t, []domain.OrderStatus{domain.OrderStatusCompleted}, orders.Statuses)
	assert.Equal(t, []string{"u1"}, cart.Cleared)

	stored, err := store.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, state.RunID, stored.RunID)
	assert.Equal(t, domain.CheckoutStepSuccess, stored.Step)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.Checkouts.WithLabelValues("success")))
}

func TestCheckout_CreateOrderFails(t *testing.T) {
	for name, createErr := range map[string]error{
		"rejected":  rejected(http.StatusBadRequest),
		"transport": errBackendDown,
	} {
		t.Run(name, func(t *testing.T) {
			orders := &MockOrderBackend{CreateErr: createErr}
			cart := &MockCartBackend{}
			pay := &MockPayment{}
			svc, store := newTestCheckoutService(orders, cart, pay)

			state, err := svc.Checkout(context.Background(), "u1", checkoutLines())
			require.NoError(t, err)

			assert.Equal(t, domain.CheckoutStepFailed, state.Step)
			assert.Equal(t, "order creation failed", state.Error)
			assert.Nil(t, state.Order)
			assert.Len(t, orders.Created, 1)
			assert.Empty(t, orders.Statuses)
			assert.Empty(t, cart.Cleared)
			assert.Equal(t, 0, pay.Calls)

			stored, err := store.Get(context.Background(), "u1")
			require.NoError(t, err)
			assert.Equal(t, domain.CheckoutStepFailed, stored.Step)
		})
	}
}

func TestCheckout_FinalizeFailureStillSucceeds(t *testing.T) {
	orders := &MockOrderBackend{UpdateErr: rejected(http.StatusInternalServerError)}
	cart := &MockCartBackend{}
	core, logs := observer.New(zap.WarnLevel)
	reg := prometheus.NewRegistry()
	m := metrics.New("test", reg)
	svc, _ := newTestCheckoutService(orders, cart, &MockPayment{},
		WithCheckoutLogger(zap.New(core)), WithCheckoutMetrics(m))

	state, err := svc.Checkout(context.Background(), "u1", checkoutLines())
	require.NoError(t, err)

	assert.Equal(t, domain.CheckoutStepSuccess, state.Step)
	require.NotNil(t, state.Order)
	assert.Equal(t, domain.OrderStatusCompleted, state.Order.Status)
	assert.Equal(t, []string{"u1"}, cart.Cleared)
	assert.Equal(t, 1, logs.FilterMessage("failed to finalize order status, continuing").Len())
	assert.Equal(t, float64(1), testutil.ToFloat64(m.PartialCommits.WithLabelValues("finalize_order")))
}

func TestCheckout_ClearCartFailureStillSucceeds(t *testing.T) {
	orders := &MockOrderBackend{}
	cart := &MockCartBackend{ClearErr: errBackendDown}
	core, logs := observer.New(zap.WarnLevel)
	svc, _ := newTestCheckoutService(orders, cart, &MockPayment{}, WithCheckoutLogger(zap.New(core)))

	state, err := svc.Checkout(context.Background(), "u1", checkoutLines())
	require.NoError(t, err)

	assert.Equal(t, domain.CheckoutStepSuccess, state.Step)
	assert.NotNil(t, state.Lines)
	assert.Empty(t, state.Lines)
	assert.Equal(t, 1, logs.FilterMessage("failed to clear cart after checkout").Len())
}

func TestCheckout_OrderStatusForcedOnReturnedView(t *testing.T) {
	orders := &MockOrderBackend{Order: &domain.Order{
		ID:     "o-77",
		UserID: "u1",
		Status: domain.OrderStatusPending,
		Total:  decimal.NewFromInt(250),
		Items:  []domain.OrderItem{},
	}}
	svc, _ := newTestCheckoutService(orders, &MockCartBackend{}, &MockPayment{})

	state, err := svc.Checkout(context.Background(), "u1", checkoutLines())
	require.NoError(t, err)
	assert.Equal(t, "o-77", state.Order.ID)
	assert.Equal(t, domain.OrderStatusCompleted, state.Order.Status)
}

func TestCheckout_EmptyCart(t *testing.T) {
	orders := &MockOrderBackend{}
	svc, _ := newTestCheckoutService(orders, &MockCartBackend{}, &MockPayment{})

	state, err := svc.Checkout(context.Background(), "u1", nil)
	require.NoError(t, err)

	assert.Equal(t, domain.CheckoutStepFailed, state.Step)
	assert.Equal(t, "cart is empty", state.Error)
	assert.Empty(t, orders.Created)
}

func TestCheckout_PaymentFailure(t *testing.T) {
	orders := &MockOrderBackend{}
	cart := &MockCartBackend{}
	svc, _ := newTestCheckoutService(orders, cart, &MockPayment{Err: errors.New("card declined")})

	state, err := svc.Checkout(context.Background(), "u1", checkoutLines())
	require.NoError(t, err)

	assert.Equal(t, domain.CheckoutStepFailed, state.Step)
	assert.Equal(t, "payment failed", state.Error)
	assert.Nil(t, state.Order)
	assert.Empty(t, orders.Statuses)
	assert.Empty(t, cart.Cleared)
}

func TestCheckout_StoreUnavailable(t *testing.T) {
	orders := &MockOrderBackend{}
	store := failingStore{Store: session.NewMemoryStore(time.Minute), putErr: errors.New("redis set failed")}
	svc := NewCheckoutService(orders, &MockCartBackend{}, store, WithPayment(&MockPayment{}))

	_, err := svc.Checkout(context.Background(), "u1", checkoutLines())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "start checkout")
	assert.Empty(t, orders.Created)
}

func TestCheckout_IgnoresCallerCancellation(t *testing.T) {
	orders := &MockOrderBackend{}
	svc, _ := newTestCheckoutService(orders, &MockCartBackend{}, &MockPayment{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	state, err := svc.Checkout(ctx, "u1", checkoutLines())
	require.NoError(t, err)
	assert.Equal(t, domain.CheckoutStepSuccess, state.Step)
}

func TestCheckout_ProgressIsVisible(t *testing.T) {
	pay := &MockPayment{Started: make(chan struct{}), Release: make(chan struct{})}
	svc, _ := newTestCheckoutService(&MockOrderBackend{}, &MockCartBackend{}, pay)

	done := make(chan domain.CheckoutState)
	go func() {
		state, _ := svc.Checkout(context.Background(), "u1", checkoutLines())
		done <- state
	}()

	<-pay.Started
	mid, err := svc.State(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, domain.CheckoutStepSimulatingPayment, mid.Step)
	require.NotNil(t, mid.Order)
	assert.Equal(t, domain.OrderStatusPending, mid.Order.Status)
	assert.Len(t, mid.Lines, 2)

	close(pay.Release)
	final := <-done
	assert.Equal(t, domain.CheckoutStepSuccess, final.Step)

	stored, err := svc.State(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, domain.CheckoutStepSuccess, stored.Step)
}

func TestReset_DiscardsInFlightResult(t *testing.T) {
	orders := &MockOrderBackend{}
	cart := &MockCartBackend{}
	pay := &MockPayment{Started: make(chan struct{}), Release: make(chan struct{})}
	svc, _ := newTestCheckoutService(orders, cart, pay)

	done := make(chan domain.CheckoutState)
	go func() {
		state, _ := svc.Checkout(context.Background(), "u1", checkoutLines())
		done <- state
	}()

	<-pay.Started
	idle, err := svc.Reset(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, domain.CheckoutStepIdle, idle.Step)

	close(pay.Release)
	final := <-done

	// remote calls still ran to completion
	assert.Equal(t, domain.CheckoutStepSuccess, final.Step)
	assert.Len(t, orders.Statuses, 1)
	assert.Len(t, cart.Cleared, 1)

	stored, err := svc.State(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, domain.CheckoutStepIdle, stored.Step)
	assert.Nil(t, stored.Order)
}

func TestReset_AfterTerminalState(t *testing.T) {
	for name, orders := range map[string]*MockOrderBackend{
		"success": {},
		"failed":  {CreateErr: errBackendDown},
	} {
		t.Run(name, func(t *testing.T) {
			svc, _ := newTestCheckoutService(orders, &MockCartBackend{}, &MockPayment{})

			state, err := svc.Checkout(context.Background(), "u1", checkoutLines())
			require.NoError(t, err)
			require.True(t, state.Step.IsTerminal())

			reset, err := svc.Reset(context.Background(), "u1")
			require.NoError(t, err)
			assert.Equal(t, domain.CheckoutStepIdle, reset.Step)
			assert.Nil(t, reset.Order)
			assert.NotNil(t, reset.Lines)
			assert.Empty(t, reset.Lines)
			assert.Empty(t, reset.Error)

			current, err := svc.State(context.Background(), "u1")
			require.NoError(t, err)
			assert.Equal(t, reset, current)
		})
	}
}

func TestCheckout_RerunStartsFresh(t *testing.T) {
	orders := &MockOrderBackend{CreateErr: errBackendDown}
	svc, _ := newTestCheckoutService(orders, &MockCartBackend{}, &MockPayment{})

	first, err := svc.Checkout(context.Background(), "u1", checkoutLines())
	require.NoError(t, err)
	require.Equal(t, domain.CheckoutStepFailed, first.Step)

	orders.CreateErr = nil
	second, err := svc.Checkout(context.Background(), "u1", checkoutLines())
	require.NoError(t, err)

	assert.Equal(t, domain.CheckoutStepSuccess, second.Step)
	assert.NotEqual(t, first.RunID, second.RunID)
	assert.Len(t, orders.Created, 2)
}

func TestState_IdleWhenUnknown(t *testing.T) {
	svc, _ := newTestCheckoutService(&MockOrderBackend{}, &MockCartBackend{}, &MockPayment{})

	state, err := svc.State(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Equal(t, domain.IdleCheckoutState(), state)
}

func TestBuildOrderRequest_Empty(t *testing.T) {
	_, err := BuildOrderRequest("u1", nil)
	assert.Error(t, err)
}

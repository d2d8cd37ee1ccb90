package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_storefront/domain"
	"github.com/fjod/go_storefront/internal/metrics"
	"github.com/fjod/go_storefront/internal/session"
	"github.com/fjod/go_storefront/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	msgCartEmpty           = "cart is empty"
	msgOrderCreationFailed = "order creation failed"
	msgPaymentFailed       = "payment failed"
)

// CheckoutService runs the create → pay → finalize → clear sequence and keeps
// the latest state of each user's checkout in a session.Store.
type CheckoutService struct {
	orders  OrderBackend
	cart    CartClearer
	payment PaymentStep
	store   session.Store
	log     *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

type CheckoutOption func(*CheckoutService)

func WithCheckoutLogger(l *zap.Logger) CheckoutOption {
	return func(s *CheckoutService) {
		s.log = logger.OrNop(l)
	}
}

func WithCheckoutMetrics(m *metrics.Metrics) CheckoutOption {
	return func(s *CheckoutService) {
		s.metrics = m
	}
}

// WithPayment replaces the default fixed-delay payment step.
func WithPayment(p PaymentStep) CheckoutOption {
	return func(s *CheckoutService) {
		if p != nil {
			s.payment = p
		}
	}
}

func NewCheckoutService(orders OrderBackend, cart CartClearer, store session.Store, opts ...CheckoutOption) *CheckoutService {
	s := &CheckoutService{
		orders:  orders,
		cart:    cart,
		payment: FixedDelayPayment{Delay: DefaultPaymentDelay},
		store:   store,
		log:     zap.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Checkout turns lines into a completed order and returns the terminal state.
// Lines are used as given and never re-fetched.
//
// Only order creation (or a failing payment step) can fail the checkout.
// Finalize and clear failures are logged and the checkout still succeeds.
// The returned error is non-nil only when the run could not be recorded at
// all, in which case no remote call was made.
//
// Cancelling ctx does not stop a started checkout.
func (s *CheckoutService) Checkout(ctx context.Context, userID string, lines []domain.CartLine) (domain.CheckoutState, error) {
	ctx = context.WithoutCancel(ctx)
	if lines == nil {
		lines = []domain.CartLine{}
	}

	run := &checkoutRun{
		svc:    s,
		userID: userID,
		state: domain.CheckoutState{
			RunID: uuid.NewString(),
			Step:  domain.CheckoutStepIdle,
			Lines: lines,
		},
	}
	run.log = logger.WithTrace(ctx, s.log).With(
		zap.String("user_id", userID),
		zap.String("run_id", run.state.RunID))

	if err := run.start(ctx); err != nil {
		return domain.CheckoutState{}, err
	}

	if len(lines) == 0 {
		return run.fail(ctx, msgCartEmpty), nil
	}

	order, err := s.createOrder(ctx, userID, lines)
	if err != nil {
		run.log.Warn("order creation failed", zap.Error(err))
		return run.fail(ctx, msgOrderCreationFailed), nil
	}
	run.state.Order = order
	run.log = run.log.With(zap.String("order_id", order.ID))

	if err := run.advance(ctx, domain.CheckoutStepSimulatingPayment); err != nil {
		return run.state, nil
	}
	if err := s.payment.Pay(ctx, *order); err != nil {
		run.log.Warn("payment failed, order left pending", zap.Error(err))
		run.state.Order = nil
		return run.fail(ctx, msgPaymentFailed), nil
	}

	if err := run.advance(ctx, domain.CheckoutStepFinalizingOrder); err != nil {
		return run.state, nil
	}
	s.finalizeOrder(ctx, run.log, order.ID)

	if err := run.advance(ctx, domain.CheckoutStepClearingCart); err != nil {
		return run.state, nil
	}
	s.clearCart(ctx, run.log, userID)

	completed := *order
	completed.Status = domain.OrderStatusCompleted
	run.state.Order = &completed
	run.state.Lines = []domain.CartLine{}
	if err := run.advance(ctx, domain.CheckoutStepSuccess); err != nil {
		return run.state, nil
	}
	s.metrics.CheckoutFinished("success")
	run.log.Info("checkout completed", zap.String("total", completed.Total.String()))
	return run.state, nil
}

func (s *CheckoutService) createOrder(ctx context.Context, userID string, lines []domain.CartLine) (*domain.Order, error) {
	req, err := BuildOrderRequest(userID, lines)
	if err != nil {
		return nil, err
	}
	order, err := s.orders.CreateOrder(ctx, req)
	if err != nil {
		return nil, boundary("create order", err)
	}
	return order, nil
}

// finalizeOrder marks the order completed. A failure leaves the order pending
// on the backend while the checkout still reports success.
func (s *CheckoutService) finalizeOrder(ctx context.Context, log *zap.Logger, orderID string) {
	if _, err := s.orders.UpdateOrderStatus(ctx, orderID, domain.OrderStatusCompleted); err != nil {
		s.metrics.PartialCommit("finalize_order")
		log.Warn("failed to finalize order status, continuing", zap.Error(boundary("update order status", err)))
	}
}

func (s *CheckoutService) clearCart(ctx context.Context, log *zap.Logger, userID string) {
	if err := s.cart.ClearCart(ctx, userID); err != nil {
		s.metrics.PartialCommit("clear_cart")
		log.Warn("failed to clear cart after checkout", zap.Error(boundary("clear cart", err)))
	}
}

// State returns the user's latest checkout state, IDLE when there is none.
func (s *CheckoutService) State(ctx context.Context, userID string) (domain.CheckoutState, error) {
	state, err := s.store.Get(ctx, userID)
	if errors.Is(err, session.ErrNotFound) {
		return domain.IdleCheckoutState(), nil
	}
	if err != nil {
		return domain.CheckoutState{}, fmt.Errorf("get checkout state: %w", err)
	}
	return state, nil
}

// Reset returns the user's checkout to IDLE. A checkout still running keeps
// making its remote calls but its result is no longer recorded.
func (s *CheckoutService) Reset(ctx context.Context, userID string) (domain.CheckoutState, error) {
	if err := s.store.Delete(ctx, userID); err != nil {
		return domain.CheckoutState{}, fmt.Errorf("reset checkout state: %w", err)
	}
	return domain.IdleCheckoutState(), nil
}

// BuildOrderRequest prices every line at its current snapshot price.
func BuildOrderRequest(userID string, lines []domain.CartLine) (domain.CreateOrderRequest, error) {
	if len(lines) == 0 {
		return domain.CreateOrderRequest{}, errors.New(msgCartEmpty)
	}
	items := make([]domain.OrderItem, 0, len(lines))
	for _, l := range lines {
		items = append(items, domain.OrderItem{
			ProductID: l.Product.ID,
			Quantity:  l.Quantity,
			Price:     l.Product.Price,
		})
	}
	return domain.CreateOrderRequest{
		UserID: userID,
		Status: domain.OrderStatusPending,
		Total:  ComputeTotal(lines),
		Items:  items,
	}, nil
}

// checkoutRun tracks one Checkout call. Once the stored run is reset or
// superseded, discarded is set and no further state is written.
type checkoutRun struct {
	svc       *CheckoutService
	userID    string
	log       *zap.Logger
	state     domain.CheckoutState
	discarded bool
}

func (r *checkoutRun) start(ctx context.Context) error {
	if !domain.CanTransitionTo(r.state.Step, domain.CheckoutStepCreatingOrder) {
		return IllegalTransitionError
	}
	r.state.Step = domain.CheckoutStepCreatingOrder
	r.state.UpdatedAt = r.svc.now()
	if err := r.svc.store.Put(ctx, r.userID, r.state); err != nil {
		return fmt.Errorf("start checkout: %w", err)
	}
	r.log.Info("checkout started", zap.Int("lines", len(r.state.Lines)))
	return nil
}

// advance moves to the next step and records it. Storage errors are logged;
// the in-memory state stays authoritative for the caller.
func (r *checkoutRun) advance(ctx context.Context, to domain.CheckoutStep) error {
	if !domain.CanTransitionTo(r.state.Step, to) {
		r.log.Error("illegal checkout transition",
			zap.Stringer("from", r.state.Step), zap.Stringer("to", to))
		return IllegalTransitionError
	}
	r.state.Step = to
	r.state.UpdatedAt = r.svc.now()
	r.save(ctx)
	return nil
}

func (r *checkoutRun) save(ctx context.Context) {
	if r.discarded {
		return
	}
	ok, err := r.svc.store.Replace(ctx, r.userID, r.state)
	if err != nil {
		r.log.Warn("failed to store checkout state", zap.Stringer("step", r.state.Step), zap.Error(err))
		return
	}
	if !ok {
		r.discarded = true
		r.log.Info("checkout was reset, result will not be recorded", zap.Stringer("step", r.state.Step))
	}
}

func (r *checkoutRun) fail(ctx context.Context, msg string) domain.CheckoutState {
	r.state.Order = nil
	r.state.Error = msg
	if err := r.advance(ctx, domain.CheckoutStepFailed); err != nil {
		return r.state
	}
	r.svc.metrics.CheckoutFinished("failed")
	r.log.Info("checkout failed", zap.String("reason", msg))
	return r.state
}

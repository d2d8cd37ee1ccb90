package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fjod/go_storefront/domain"
	"go.uber.org/zap"
)

type CheckoutService interface {
	Checkout(ctx context.Context, userID string, lines []domain.CartLine) (domain.CheckoutState, error)
	State(ctx context.Context, userID string) (domain.CheckoutState, error)
	Reset(ctx context.Context, userID string) (domain.CheckoutState, error)
}

type CheckoutHandler struct {
	cart     CartService
	checkout CheckoutService
	timeout  time.Duration
}

func NewCheckoutHandler(cart CartService, checkout CheckoutService, timeout time.Duration) *CheckoutHandler {
	return &CheckoutHandler{
		cart:     cart,
		checkout: checkout,
		timeout:  timeout,
	}
}

// POST /api/v1/checkout
//
// Reconciles the cart, then runs the checkout on the resulting lines. The
// response is the terminal state; FAILED is a normal outcome, not an error.
func (h *CheckoutHandler) InitiateCheckout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	lines, err := h.cart.LoadCart(ctx, userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	// runs detached from ctx; the state is reported even if the client left
	state, err := h.checkout.Checkout(r.Context(), userID, lines)
	if err != nil {
		zap.L().Error("checkout could not start", zap.String("user_id", userID), zap.Error(err))
		respondError(w, http.StatusServiceUnavailable, "checkout_unavailable", "checkout state store unavailable")
		return
	}

	respondJSON(w, http.StatusOK, state)
}

// GET /api/v1/checkout
func (h *CheckoutHandler) GetCheckout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	state, err := h.checkout.State(ctx, userID)
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "checkout_unavailable", "checkout state store unavailable")
		return
	}

	respondJSON(w, http.StatusOK, state)
}

// DELETE /api/v1/checkout
func (h *CheckoutHandler) ResetCheckout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	state, err := h.checkout.Reset(ctx, userID)
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "checkout_unavailable", "checkout state store unavailable")
		return
	}

	respondJSON(w, http.StatusOK, state)
}

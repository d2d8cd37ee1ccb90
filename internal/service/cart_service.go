package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/fjod/go_storefront/domain"
	"github.com/fjod/go_storefront/internal/client"
	"github.com/fjod/go_storefront/internal/metrics"
	"github.com/fjod/go_storefront/pkg/logger"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const defaultLookupConcurrency = 8

// CartService produces the purchasable view of a user's cart. It keeps no
// state between calls; the backend is the source of truth.
type CartService struct {
	cart        CartBackend
	catalog     Catalog
	log         *zap.Logger
	metrics     *metrics.Metrics
	lookupLimit int
	sfg         singleflight.Group // keyed by product id, shared across users
}

type CartOption func(*CartService)

func WithCartLogger(l *zap.Logger) CartOption {
	return func(s *CartService) {
		s.log = logger.OrNop(l)
	}
}

func WithCartMetrics(m *metrics.Metrics) CartOption {
	return func(s *CartService) {
		s.metrics = m
	}
}

// WithLookupConcurrency bounds parallel catalog lookups within one LoadCart.
func WithLookupConcurrency(n int) CartOption {
	return func(s *CartService) {
		if n > 0 {
			s.lookupLimit = n
		}
	}
}

func NewCartService(cart CartBackend, catalog Catalog, opts ...CartOption) *CartService {
	s := &CartService{
		cart:        cart,
		catalog:     catalog,
		log:         zap.NewNop(),
		lookupLimit: defaultLookupConcurrency,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LoadCart fetches the user's cart and drops lines whose product is missing
// or discontinued, deleting each dropped line remotely on a best-effort basis.
//
// A rejected cart listing yields an empty cart; only transport failures are
// reported, as ErrConnection. Surviving lines keep backend order.
func (s *CartService) LoadCart(ctx context.Context, userID string) ([]domain.CartLine, error) {
	log := logger.WithTrace(ctx, s.log).With(zap.String("user_id", userID))

	entries, err := s.cart.GetCartByUser(ctx, userID)
	if err != nil {
		if client.IsRejected(err) {
			log.Info("cart listing rejected, showing empty cart", zap.Error(err))
			return []domain.CartLine{}, nil
		}
		return nil, boundary("load cart", err)
	}

	for _, e := range entries {
		if e.Quantity <= 0 {
			return nil, fmt.Errorf("load cart: product %d has quantity %d: %w", e.ProductID, e.Quantity, ErrInvalidQuantity)
		}
	}

	products, err := s.resolveProducts(ctx, entries)
	if err != nil {
		return nil, boundary("load cart", err)
	}

	lines := make([]domain.CartLine, 0, len(entries))
	for i, e := range entries {
		p := products[i]
		if p == nil || !p.Purchasable() {
			s.dropLine(ctx, log, userID, e.ProductID)
			continue
		}
		lines = append(lines, domain.CartLine{Product: *p, Quantity: e.Quantity})
	}
	return lines, nil
}

// resolveProducts looks up every entry's product; a nil slot means the
// catalog rejected the lookup and the product counts as missing.
func (s *CartService) resolveProducts(ctx context.Context, entries []domain.CartEntry) ([]*domain.ProductSnapshot, error) {
	products := make([]*domain.ProductSnapshot, len(entries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.lookupLimit)
	for i, e := range entries {
		i, e := i, e
		g.Go(func() error {
			p, err := s.lookupProduct(gctx, e.ProductID)
			if err != nil {
				if client.IsRejected(err) {
					return nil
				}
				return fmt.Errorf("resolve product %d: %w", e.ProductID, err)
			}
			products[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return products, nil
}

// lookupProduct shares one catalog call between concurrent callers asking for
// the same product. The shared call runs without any caller's cancellation so
// one user's abandoned request never fails another user's lookup; each caller
// still stops waiting when its own ctx is done.
func (s *CartService) lookupProduct(ctx context.Context, id int64) (*domain.ProductSnapshot, error) {
	shared := context.WithoutCancel(ctx)
	ch := s.sfg.DoChan(strconv.FormatInt(id, 10), func() (interface{}, error) {
		return s.catalog.GetProductByID(shared, id)
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: lookup product %d: %w", client.ErrTransport, id, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*domain.ProductSnapshot), nil
	}
}

// dropLine removes an unpurchasable line remotely. Failures are logged only.
func (s *CartService) dropLine(ctx context.Context, log *zap.Logger, userID string, productID int64) {
	s.metrics.LineDropped()
	err := s.cart.RemoveFromCart(context.WithoutCancel(ctx), userID, productID)
	if err != nil {
		s.metrics.LineDeleteFailed()
		log.Warn("failed to delete unavailable cart line",
			zap.Int64("product_id", productID), zap.Error(err))
		return
	}
	log.Info("dropped unavailable cart line", zap.Int64("product_id", productID))
}

// AddToCart adds quantity units of a product; the backend decides how it
// merges with an existing line.
func (s *CartService) AddToCart(ctx context.Context, userID string, productID int64, quantity int) error {
	if quantity <= 0 {
		return fmt.Errorf("add to cart: quantity %d: %w", quantity, ErrInvalidQuantity)
	}
	return boundary("add to cart", s.cart.AddToCart(ctx, userID, productID, quantity))
}

// UpdateQuantity sets a line's quantity and returns the reloaded cart.
// A quantity <= 0 removes the line instead and returns nil lines, exactly
// like Remove; no update with a non-positive quantity is ever sent.
func (s *CartService) UpdateQuantity(ctx context.Context, userID string, productID int64, quantity int) ([]domain.CartLine, error) {
	if quantity <= 0 {
		return nil, s.Remove(ctx, userID, productID)
	}

	if err := s.cart.UpdateQuantity(ctx, userID, productID, quantity); err != nil {
		logger.WithTrace(ctx, s.log).Warn("update quantity failed",
			zap.String("user_id", userID), zap.Int64("product_id", productID), zap.Error(err))
		return nil, boundary("update quantity", err)
	}
	return s.LoadCart(ctx, userID)
}

func (s *CartService) Remove(ctx context.Context, userID string, productID int64) error {
	return boundary("remove from cart", s.cart.RemoveFromCart(ctx, userID, productID))
}

func (s *CartService) Clear(ctx context.Context, userID string) error {
	return boundary("clear cart", s.cart.ClearCart(ctx, userID))
}

// ComputeTotal sums price × quantity over lines in decimal arithmetic.
func ComputeTotal(lines []domain.CartLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

// IsConnectionError reports whether err came from an unreachable backend.
func IsConnectionError(err error) bool {
	return errors.Is(err, ErrConnection)
}

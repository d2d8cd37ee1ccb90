// Package backend serves the REST contract the storefront consumes, on top
// of the repositories in internal/repository. It is meant for local runs and
// end-to-end tests, not as the production system of record.
package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fjod/go_storefront/domain"
	storehttp "github.com/fjod/go_storefront/internal/http"
	"github.com/fjod/go_storefront/internal/metrics"
	"github.com/fjod/go_storefront/internal/repository"
	"github.com/fjod/go_storefront/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const maxRequestBody = 1 << 20

type CatalogRepository interface {
	ListProducts(ctx context.Context) ([]domain.ProductSnapshot, error)
	SearchProducts(ctx context.Context, query string) ([]domain.ProductSnapshot, error)
	GetProduct(ctx context.Context, id int64) (*domain.ProductSnapshot, error)
}

type CartRepository interface {
	GetCart(ctx context.Context, userID string) ([]domain.CartEntry, error)
	AddItem(ctx context.Context, userID string, productID int64, quantity int) error
	UpdateItemQuantity(ctx context.Context, userID string, productID int64, quantity int) error
	RemoveItem(ctx context.Context, userID string, productID int64) error
	DeleteCart(ctx context.Context, userID string) error
}

type OrderRepository interface {
	CreateOrder(ctx context.Context, req domain.CreateOrderRequest) (*domain.Order, error)
	UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) (*domain.Order, error)
	ListOrdersByUserID(ctx context.Context, userID string) ([]domain.Order, error)
}

type Config struct {
	Catalog CatalogRepository
	Carts   CartRepository
	Orders  OrderRepository

	Logger         *zap.Logger
	Metrics        *metrics.Metrics
	Gatherer       prometheus.Gatherer
	RequestTimeout time.Duration
}

type Server struct {
	catalog CatalogRepository
	carts   CartRepository
	orders  OrderRepository
	log     *zap.Logger
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type addItemRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type updateItemRequest struct {
	Quantity int `json:"quantity"`
}

// NewRouter builds the backend API.
func NewRouter(cfg Config) chi.Router {
	s := &Server{
		catalog: cfg.Catalog,
		carts:   cfg.Carts,
		orders:  cfg.Orders,
		log:     logger.OrNop(cfg.Logger),
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(storehttp.RequestIDMiddleware)
	r.Use(storehttp.RequestLogger(s.log, cfg.Metrics))
	if cfg.RequestTimeout > 0 {
		r.Use(middleware.Timeout(cfg.RequestTimeout))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if cfg.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(cfg.Gatherer))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Get("/", s.listProducts)
			r.Get("/{id}", s.getProduct)
		})
		r.Route("/users/{userId}/cart", func(r chi.Router) {
			r.Get("/", s.getCart)
			r.Post("/", s.addItem)
			r.Delete("/", s.clearCart)
			r.Put("/{productId}", s.updateItem)
			r.Delete("/{productId}", s.removeItem)
		})
		r.Route("/orders", func(r chi.Router) {
			r.Post("/", s.createOrder)
			r.Get("/", s.listOrders)
			r.Patch("/{orderId}", s.updateOrderStatus)
		})
	})

	return r
}

func (s *Server) listProducts(w http.ResponseWriter, r *http.Request) {
	var (
		products []domain.ProductSnapshot
		err      error
	)
	if q := strings.TrimSpace(r.URL.Query().Get("q")); q != "" {
		products, err = s.catalog.SearchProducts(r.Context(), q)
	} else {
		products, err = s.catalog.ListProducts(r.Context())
	}
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, products)
}

func (s *Server) getProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := int64Param(w, r, "id")
	if !ok {
		return
	}
	p, err := s.catalog.GetProduct(r.Context(), id)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

// getCart answers an empty list for a user who never had a cart.
func (s *Server) getCart(w http.ResponseWriter, r *http.Request) {
	entries, err := s.carts.GetCart(r.Context(), chi.URLParam(r, "userId"))
	if errors.Is(err, repository.ErrCartNotFound) {
		entries = []domain.CartEntry{}
	} else if err != nil {
		s.handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, entries)
}

func (s *Server) addItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.ProductID <= 0 || req.Quantity <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_request", "product_id and quantity must be positive")
		return
	}
	if _, err := s.catalog.GetProduct(r.Context(), req.ProductID); err != nil {
		s.handleError(w, r, err)
		return
	}

	if err := s.carts.AddItem(r.Context(), chi.URLParam(r, "userId"), req.ProductID, req.Quantity); err != nil {
		s.handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) updateItem(w http.ResponseWriter, r *http.Request) {
	productID, ok := int64Param(w, r, "productId")
	if !ok {
		return
	}
	var req updateItemRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Quantity <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_request", "quantity must be positive")
		return
	}

	if err := s.carts.UpdateItemQuantity(r.Context(), chi.URLParam(r, "userId"), productID, req.Quantity); err != nil {
		s.handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) removeItem(w http.ResponseWriter, r *http.Request) {
	productID, ok := int64Param(w, r, "productId")
	if !ok {
		return
	}
	if err := s.carts.RemoveItem(r.Context(), chi.URLParam(r, "userId"), productID); err != nil {
		s.handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// clearCart succeeds for a user without a cart.
func (s *Server) clearCart(w http.ResponseWriter, r *http.Request) {
	err := s.carts.DeleteCart(r.Context(), chi.URLParam(r, "userId"))
	if err != nil && !errors.Is(err, repository.ErrCartNotFound) {
		s.handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) createOrder(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateOrderRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := validateOrder(req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if req.Status == "" {
		req.Status = domain.OrderStatusPending
	}

	order, err := s.orders.CreateOrder(r.Context(), req)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, order)
}

func (s *Server) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateOrderStatusRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Status == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "status is required")
		return
	}

	order, err := s.orders.UpdateStatus(r.Context(), chi.URLParam(r, "orderId"), req.Status)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}

func (s *Server) listOrders(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
	if userID == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "user_id is required")
		return
	}
	orders, err := s.orders.ListOrdersByUserID(r.Context(), userID)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, orders)
}

func validateOrder(req domain.CreateOrderRequest) error {
	if strings.TrimSpace(req.UserID) == "" {
		return errors.New("user_id is required")
	}
	if len(req.Items) == 0 {
		return errors.New("order must have at least one item")
	}
	for _, it := range req.Items {
		if it.ProductID <= 0 || it.Quantity <= 0 {
			return errors.New("items need a positive product_id and quantity")
		}
		if it.Price.IsNegative() {
			return errors.New("item price must not be negative")
		}
	}
	if req.Total.IsNegative() {
		return errors.New("total must not be negative")
	}
	return nil
}

func int64Param(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid "+name)
		return 0, false
	}
	return id, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return false
	}
	return true
}

func (s *Server) handleError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, repository.ErrProductNotFound),
		errors.Is(err, repository.ErrCartNotFound),
		errors.Is(err, repository.ErrItemNotFound),
		errors.Is(err, repository.ErrOrderNotFound):
		respondError(w, http.StatusNotFound, "not_found", err.Error())
	default:
		logger.WithTrace(r.Context(), s.log).Error("repository call failed",
			zap.String("path", r.URL.Path), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		zap.L().Warn("failed to encode response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}

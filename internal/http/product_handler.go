package http

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fjod/go_storefront/domain"
	"github.com/fjod/go_storefront/internal/client"
	"github.com/go-chi/chi/v5"
)

type Catalog interface {
	GetProductByID(ctx context.Context, id int64) (*domain.ProductSnapshot, error)
	ListProducts(ctx context.Context) ([]domain.ProductSnapshot, error)
	SearchProducts(ctx context.Context, query string) ([]domain.ProductSnapshot, error)
}

type ProductHandler struct {
	catalog Catalog
	timeout time.Duration
}

func NewProductHandler(catalog Catalog, timeout time.Duration) *ProductHandler {
	return &ProductHandler{
		catalog: catalog,
		timeout: timeout,
	}
}

type ProductsResponse struct {
	Products []domain.ProductSnapshot `json:"products"`
}

// GET /api/v1/products[?q=]
//
// A rejected catalog read is shown as an empty list.
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var (
		products []domain.ProductSnapshot
		err      error
	)
	if q := strings.TrimSpace(r.URL.Query().Get("q")); q != "" {
		products, err = h.catalog.SearchProducts(ctx, q)
	} else {
		products, err = h.catalog.ListProducts(ctx)
	}
	if err != nil && !client.IsRejected(err) {
		handleServiceError(w, err)
		return
	}
	if products == nil {
		products = []domain.ProductSnapshot{}
	}

	respondJSON(w, http.StatusOK, &ProductsResponse{Products: products})
}

// GET /api/v1/products/{id}
func (h *ProductHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "id must be a positive integer")
		return
	}

	p, err := h.catalog.GetProductByID(ctx, id)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, p)
}

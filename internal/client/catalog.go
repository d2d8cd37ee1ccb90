package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/fjod/go_storefront/domain"
)

// GetProductByID returns a *StatusError with 404 when the product does not exist.
func (c *Client) GetProductByID(ctx context.Context, id int64) (*domain.ProductSnapshot, error) {
	var p domain.ProductSnapshot
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/v1/products/%d", id), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) ListProducts(ctx context.Context) ([]domain.ProductSnapshot, error) {
	products := []domain.ProductSnapshot{}
	if err := c.do(ctx, http.MethodGet, "/api/v1/products", nil, &products); err != nil {
		return nil, err
	}
	return products, nil
}

func (c *Client) SearchProducts(ctx context.Context, query string) ([]domain.ProductSnapshot, error) {
	products := []domain.ProductSnapshot{}
	path := "/api/v1/products?q=" + url.QueryEscape(query)
	if err := c.do(ctx, http.MethodGet, path, nil, &products); err != nil {
		return nil, err
	}
	return products, nil
}

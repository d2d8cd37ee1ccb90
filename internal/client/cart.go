package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/fjod/go_storefront/domain"
)

type addToCartRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type updateQuantityRequest struct {
	Quantity int `json:"quantity"`
}

func cartPath(userID string) string {
	return "/api/v1/users/" + url.PathEscape(userID) + "/cart"
}

func cartItemPath(userID string, productID int64) string {
	return fmt.Sprintf("%s/%d", cartPath(userID), productID)
}

func (c *Client) GetCartByUser(ctx context.Context, userID string) ([]domain.CartEntry, error) {
	entries := []domain.CartEntry{}
	if err := c.do(ctx, http.MethodGet, cartPath(userID), nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (c *Client) AddToCart(ctx context.Context, userID string, productID int64, quantity int) error {
	return c.do(ctx, http.MethodPost, cartPath(userID), addToCartRequest{
		ProductID: productID,
		Quantity:  quantity,
	}, nil)
}

func (c *Client) UpdateQuantity(ctx context.Context, userID string, productID int64, quantity int) error {
	return c.do(ctx, http.MethodPut, cartItemPath(userID, productID), updateQuantityRequest{
		Quantity: quantity,
	}, nil)
}

func (c *Client) RemoveFromCart(ctx context.Context, userID string, productID int64) error {
	return c.do(ctx, http.MethodDelete, cartItemPath(userID, productID), nil, nil)
}

func (c *Client) ClearCart(ctx context.Context, userID string) error {
	return c.do(ctx, http.MethodDelete, cartPath(userID), nil, nil)
}

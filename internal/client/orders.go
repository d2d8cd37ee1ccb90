package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/fjod/go_storefront/domain"
)

func (c *Client) CreateOrder(ctx context.Context, req domain.CreateOrderRequest) (*domain.Order, error) {
	var order domain.Order
	if err := c.do(ctx, http.MethodPost, "/api/v1/orders", req, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (c *Client) UpdateOrderStatus(ctx context.Context, orderID string, status domain.OrderStatus) (*domain.Order, error) {
	var order domain.Order
	path := "/api/v1/orders/" + url.PathEscape(orderID)
	if err := c.do(ctx, http.MethodPatch, path, domain.UpdateOrderStatusRequest{Status: status}, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (c *Client) ListOrdersByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	orders := []domain.Order{}
	path := "/api/v1/orders?user_id=" + url.QueryEscape(userID)
	if err := c.do(ctx, http.MethodGet, path, nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

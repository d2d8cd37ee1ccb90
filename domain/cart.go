package domain

import "github.com/shopspring/decimal"

// CartEntry is a raw cart row as stored by the backend, before it has been
// resolved against the catalog.
type CartEntry struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// CartLine is a reconciled cart row. Quantity is always >= 1.
type CartLine struct {
	Product  ProductSnapshot `json:"product"`
	Quantity int             `json:"quantity"`
}

func (l CartLine) Subtotal() decimal.Decimal {
	return l.Product.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

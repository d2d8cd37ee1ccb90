package domain

import (
	"bytes"
	"encoding/json"
	"errors"

	"github.com/shopspring/decimal"
)

const DefaultCurrency = "USD"

var (
	ErrNullProduct      = errors.New("product is null")
	ErrMissingProductID = errors.New("product has no id")
)

var jsonNull = []byte("null")

// ProductSnapshot is the catalog record as fetched from the backend.
// It is never mutated after decoding; a newer fetch produces a new snapshot.
//
// Defaults applied at decode time when a field is absent:
// currency "USD", stock 0, discontinued false, category "".
type ProductSnapshot struct {
	ID           int64           `json:"id"`
	Name         string          `json:"name"`
	Price        decimal.Decimal `json:"price"`
	Currency     string          `json:"currency"`
	Stock        int             `json:"stock"`
	Discontinued bool            `json:"discontinued"`
	Category     string          `json:"category"`
}

// UnmarshalJSON rejects null and a missing or zero id, so a malformed reply
// never becomes a zero-priced purchasable product.
func (p *ProductSnapshot) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), jsonNull) {
		return ErrNullProduct
	}
	var wire struct {
		ID           int64           `json:"id"`
		Name         string          `json:"name"`
		Price        decimal.Decimal `json:"price"`
		Currency     *string         `json:"currency"`
		Stock        *int            `json:"stock"`
		Discontinued *bool           `json:"discontinued"`
		Category     *string         `json:"category"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	if wire.ID == 0 {
		return ErrMissingProductID
	}

	*p = ProductSnapshot{
		ID:       wire.ID,
		Name:     wire.Name,
		Price:    wire.Price,
		Currency: DefaultCurrency,
	}
	if wire.Currency != nil && *wire.Currency != "" {
		p.Currency = *wire.Currency
	}
	if wire.Stock != nil {
		p.Stock = *wire.Stock
	}
	if wire.Discontinued != nil {
		p.Discontinued = *wire.Discontinued
	}
	if wire.Category != nil {
		p.Category = *wire.Category
	}
	return nil
}

// Purchasable reports whether a cart line referencing p may be kept.
func (p ProductSnapshot) Purchasable() bool {
	return !p.Discontinued
}

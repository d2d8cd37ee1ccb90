package domain

import "github.com/shopspring/decimal"

// Money is shopspring/decimal everywhere. The backend speaks JSON numbers for
// money, not quoted strings; the switch is process-wide and set once here,
// before any goroutine marshals a decimal.
func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

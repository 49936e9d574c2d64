package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// BaseCurrency is the currency all stored rates are denominated in:
// Rate is base-currency units per 1 unit of the foreign currency.
const BaseCurrency = "GTQ"

type Currency struct {
	Code      string
	Name      string
	Rate      decimal.Decimal
	Active    bool
	UpdatedAt time.Time
}

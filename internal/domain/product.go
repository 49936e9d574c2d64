package domain

import (
	"github.com/google/uuid"
)

// Product is a catalog item referenced by PURCHASE movements. Catalog
// management is owned elsewhere; the ledger only reads id, price and
// availability.
type Product struct {
	ID          uuid.UUID
	Name        string
	Description string
	Price       int64
	Available   bool
}

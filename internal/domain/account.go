package domain

import (
	"time"

	"github.com/google/uuid"
)

type AccountClass string

const (
	AccountClassSavings  AccountClass = "SAVINGS"
	AccountClassChecking AccountClass = "CHECKING"
)

func (c AccountClass) IsValid() bool {
	switch c {
	case AccountClassSavings, AccountClassChecking:
		return true
	default:
		return false
	}
}

// Account balances are int64 centavos of the base currency. Balance must
// satisfy balance == initial + total_in - total_out over committed,
// non-reversed movements; Version guards every balance write.
type Account struct {
	ID        uuid.UUID
	OwnerID   uuid.UUID
	Number    string
	Class     AccountClass
	Balance   int64
	TotalIn   int64
	TotalOut  int64
	Version   int64
	Active    bool
	CreatedAt time.Time
}

package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type MovementKind string

const (
	MovementKindTransfer     MovementKind = "TRANSFER"
	MovementKindPurchase     MovementKind = "PURCHASE"
	MovementKindDeposit      MovementKind = "DEPOSIT"
	MovementKindCredit       MovementKind = "CREDIT"
	MovementKindCancellation MovementKind = "CANCELLATION"
)

func (k MovementKind) IsValid() bool {
	switch k {
	case MovementKindTransfer, MovementKindPurchase, MovementKindDeposit,
		MovementKindCredit, MovementKindCancellation:
		return true
	default:
		return false
	}
}

// Movement is an immutable journal record of one completed monetary event.
// The only permitted mutation is the Reversed flag, which transitions
// false -> true exactly once. A CANCELLATION movement is never reversible.
type Movement struct {
	ID                 uuid.UUID
	SourceAccountID    *uuid.UUID
	DestAccountID      *uuid.UUID
	Amount             int64
	Kind               MovementKind
	ProductID          *uuid.UUID
	OccurredAt         time.Time
	Reversed           bool
	OriginalMovementID *uuid.UUID
	Description        string
	ConvertedAmount    *int64
	ExchangeRate       *decimal.Decimal
}

// MovementFilter narrows journal reads. Results are always newest-first.
type MovementFilter struct {
	AccountID *uuid.UUID
	Kind      *MovementKind
	From      *time.Time
	To        *time.Time
	Reversed  *bool
	Limit     int
	Offset    int
}

// MovementDetail is the read-side projection of a movement enriched with
// the counterpart account numbers and holder names for display.
type MovementDetail struct {
	Movement
	SourceNumber *string
	SourceHolder *string
	DestNumber   *string
	DestHolder   *string
	ProductName  *string
}

package domain

import (
	"time"

	"github.com/google/uuid"
)

// Favorite remembers another user's account under an alias. Unique per
// (owner, account) pair; an owner may not favorite their own account.
type Favorite struct {
	ID            uuid.UUID
	OwnerID       uuid.UUID
	AccountID     uuid.UUID
	AccountNumber string
	Alias         string
	CreatedAt     time.Time
}

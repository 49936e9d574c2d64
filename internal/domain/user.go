package domain

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleAdmin  Role = "ADMIN"
	RoleClient Role = "CLIENT"
)

func (r Role) IsValid() bool {
	return r == RoleAdmin || r == RoleClient
}

type User struct {
	ID           uuid.UUID
	Email        string
	Name         string
	PasswordHash string
	Role         Role
	Active       bool
	CreatedAt    time.Time
}

// Principal is the authenticated caller as seen by the core services.
type Principal struct {
	ID   uuid.UUID
	Name string
	Role Role
}

func (p Principal) IsAdmin() bool { return p.Role == RoleAdmin }

package repository

import (
	"errors"

	"github.com/lib/pq"
)

type scanner interface {
	Scan(dest ...any) error
}

// isUniqueViolation reports whether err is a Postgres unique_violation,
// used to turn duplicate account-number candidates into a retry.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// uniqueViolationConstraint returns the name of the violated unique
// constraint, or "" when err is not a unique_violation. Callers that map
// different constraints to different sentinels need the name, not just the
// code.
func uniqueViolationConstraint(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return pqErr.Constraint
	}
	return ""
}

// isCheckViolation reports whether err tripped a CHECK constraint, the
// storage-level backstop for the balance >= 0 invariant.
func isCheckViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23514"
}

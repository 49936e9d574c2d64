package handler

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/bancagt/backoffice/internal/domain"
)

type rateCatalog interface {
	ListCurrencies(ctx context.Context, filter string) ([]domain.Currency, error)
}

type HealthHandler struct {
	db    *sql.DB
	rates rateCatalog
}

func NewHealthHandler(db *sql.DB, rates rateCatalog) *HealthHandler {
	return &HealthHandler{db: db, rates: rates}
}

func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	RespondJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"version":   "1.0.0",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// Readiness reports the database and the rate catalog. An empty catalog is
// flagged but does not fail readiness: the ledger paths stay usable, only
// conversions would be refused.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	dbStatus := "ok"
	httpStatus := http.StatusOK

	if err := h.db.PingContext(r.Context()); err != nil {
		slog.Warn("readiness check failed: database unreachable", "error", err)
		dbStatus = "down"
		httpStatus = http.StatusServiceUnavailable
	}

	ratesStatus := "ok"
	if currencies, err := h.rates.ListCurrencies(r.Context(), ""); err != nil {
		slog.Warn("readiness check failed: rate catalog unreadable", "error", err)
		ratesStatus = "down"
		httpStatus = http.StatusServiceUnavailable
	} else if len(currencies) == 0 {
		ratesStatus = "empty"
	}

	overallStatus := "ok"
	if httpStatus != http.StatusOK {
		overallStatus = "down"
	}

	RespondJSON(w, httpStatus, map[string]any{
		"status":    overallStatus,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks": map[string]string{
			"database": dbStatus,
			"rates":    ratesStatus,
		},
	})
}

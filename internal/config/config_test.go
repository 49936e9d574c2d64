package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// The caps and the reversal window are contractual defaults; a change here
// must be deliberate.
func TestDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/backoffice_test")
	t.Setenv("JWT_SECRET", "test-secret")

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, int64(200000), cfg.TransferTxCap, "per-transaction cap must be Q2,000")
	require.Equal(t, int64(1000000), cfg.TransferDailyCap, "daily cap must be Q10,000")
	require.Equal(t, 60*time.Minute, cfg.ReversalWindow())
	require.Equal(t, 24*time.Hour, cfg.RateRefreshInterval())
}

func TestOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/backoffice_test")
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("TRANSFER_TX_CAP", "50000")
	t.Setenv("REVERSAL_WINDOW_MIN", "1")

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, int64(50000), cfg.TransferTxCap)
	require.Equal(t, time.Minute, cfg.ReversalWindow())
}

package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"os"

	"github.com/bancagt/backoffice/internal/logging"
)

// A local stand-in for the exchange rate provider, for development without
// an API key. Serves the same shape the real endpoint returns: foreign
// units per one quetzal.
func main() {
	logging.Init("mock-rates", "info", os.Getenv("APP_ENV"))

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(map[string]string{"status": "ok"}); err != nil {
			slog.Error("failed to write health response", "error", err)
		}
	})
	mux.HandleFunc("GET /{key}/latest/{base}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		payload := map[string]any{
			"result":    "success",
			"base_code": r.PathValue("base"),
			"conversion_rates": map[string]float64{
				"USD": 0.1282,
				"EUR": 0.1176,
				"MXN": 2.2222,
				"GBP": 0.0990,
			},
		}
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			slog.Error("failed to write rates response", "error", err)
		}
	})

	slog.Info("mock rate provider started", "addr", ":8081")
	if err := http.ListenAndServe(":8081", mux); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

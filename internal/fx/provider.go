package fx

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bancagt/backoffice/internal/domain"
	"github.com/bancagt/backoffice/internal/logging"
)

// ExchangeRateClient pulls the latest quotes for the base currency from the
// exchangerate-api v6 endpoint. The upstream publishes foreign units per
// one quetzal, so each quote is inverted before storage.
type ExchangeRateClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewExchangeRateClient(baseURL, apiKey string) *ExchangeRateClient {
	return &ExchangeRateClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type ratesResponse struct {
	Result          string             `json:"result"`
	ConversionRates map[string]float64 `json:"conversion_rates"`
}

func (c *ExchangeRateClient) FetchRates(ctx context.Context) (map[string]decimal.Decimal, error) {
	log := logging.FromContext(ctx)

	url := fmt.Sprintf("%s/%s/latest/%s", c.baseURL, c.apiKey, domain.BaseCurrency)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("FetchRates: build request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("FetchRates: send: %w", err)
	}
	defer resp.Body.Close()

	log.Info("rate provider response received",
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("FetchRates: unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var payload ratesResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("FetchRates: decode: %w", err)
	}
	if payload.Result != "success" {
		return nil, fmt.Errorf("FetchRates: provider result %q", payload.Result)
	}

	rates := make(map[string]decimal.Decimal, len(payload.ConversionRates))
	for code, perBase := range payload.ConversionRates {
		if perBase <= 0 {
			continue
		}
		// perBase is foreign units per quetzal; stored rates are quetzales
		// per foreign unit.
		rates[code] = decimal.NewFromInt(1).DivRound(decimal.NewFromFloat(perBase), 6)
	}
	return rates, nil
}

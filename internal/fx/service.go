package fx

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bancagt/backoffice/internal/domain"
	"github.com/bancagt/backoffice/internal/logging"
)

type currencyRepo interface {
	GetByCode(ctx context.Context, code string) (*domain.Currency, error)
	ListActive(ctx context.Context, filter string) ([]domain.Currency, error)
	Upsert(ctx context.Context, c *domain.Currency) error
	UpdateRate(ctx context.Context, code string, rate decimal.Decimal, updatedAt time.Time) error
	Count(ctx context.Context) (int, error)
}

// RateProvider fetches official rates from an external source, keyed by
// currency code, each expressed as quetzales per one foreign unit.
type RateProvider interface {
	FetchRates(ctx context.Context) (map[string]decimal.Decimal, error)
}

type Conversion struct {
	SourceAmount decimal.Decimal
	DestAmount   decimal.Decimal
	FromRate     decimal.Decimal
	ToRate       decimal.Decimal
}

// Service converts amounts between the base currency and foreign
// currencies. Every stored rate means "quetzales per one unit of the
// foreign currency"; a cross conversion pivots through the base.
type Service struct {
	currencies currencyRepo
	provider   RateProvider
	now        func() time.Time
}

func NewService(currencies currencyRepo, provider RateProvider) *Service {
	return &Service{currencies: currencies, provider: provider, now: time.Now}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// rateFor resolves a currency's base rate. The base currency itself always
// converts at 1 and needs no stored row.
func (s *Service) rateFor(ctx context.Context, code string) (decimal.Decimal, error) {
	if code == domain.BaseCurrency {
		return decimal.NewFromInt(1), nil
	}
	c, err := s.currencies.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return decimal.Zero, fmt.Errorf("rateFor: %s: %w", code, domain.ErrInvalidCurrency)
		}
		return decimal.Zero, fmt.Errorf("rateFor: %w", err)
	}
	if !c.Active {
		return decimal.Zero, fmt.Errorf("rateFor: %s inactive: %w", code, domain.ErrInvalidCurrency)
	}
	return c.Rate, nil
}

// Convert turns an amount of one currency into another: into base with the
// source rate, out of base with the destination rate. Display math only;
// account balances always stay in the base currency.
func (s *Service) Convert(ctx context.Context, amount decimal.Decimal, from, to string) (*Conversion, error) {
	if amount.IsNegative() {
		return nil, fmt.Errorf("Convert: %w", domain.ErrInvalidAmount)
	}

	fromRate, err := s.rateFor(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("Convert: %w", err)
	}
	toRate, err := s.rateFor(ctx, to)
	if err != nil {
		return nil, fmt.Errorf("Convert: %w", err)
	}

	dest := amount
	if from != to {
		dest = amount.Mul(fromRate).DivRound(toRate, 6)
	}

	return &Conversion{
		SourceAmount: amount,
		DestAmount:   dest,
		FromRate:     fromRate,
		ToRate:       toRate,
	}, nil
}

// FromBase expresses a base-currency centavo amount in a foreign currency,
// for balance display.
func (s *Service) FromBase(ctx context.Context, centavos int64, to string) (decimal.Decimal, error) {
	quetzales := decimal.New(centavos, -2)
	conv, err := s.Convert(ctx, quetzales, domain.BaseCurrency, to)
	if err != nil {
		return decimal.Zero, fmt.Errorf("FromBase: %w", err)
	}
	return conv.DestAmount, nil
}

// ToBase converts a foreign amount into base-currency centavos, rounded to
// the nearest centavo.
func (s *Service) ToBase(ctx context.Context, amount decimal.Decimal, from string) (int64, error) {
	conv, err := s.Convert(ctx, amount, from, domain.BaseCurrency)
	if err != nil {
		return 0, fmt.Errorf("ToBase: %w", err)
	}
	return conv.DestAmount.Mul(decimal.NewFromInt(100)).Round(0).IntPart(), nil
}

func (s *Service) ListCurrencies(ctx context.Context, filter string) ([]domain.Currency, error) {
	currencies, err := s.currencies.ListActive(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("ListCurrencies: %w", err)
	}
	return currencies, nil
}

// OverrideRate lets an admin set a rate by hand, ahead of the next
// scheduled refresh.
func (s *Service) OverrideRate(ctx context.Context, code string, rate decimal.Decimal, caller domain.Principal) error {
	if !caller.IsAdmin() {
		return fmt.Errorf("OverrideRate: %w", domain.ErrForbidden)
	}
	if !rate.IsPositive() {
		return fmt.Errorf("OverrideRate: %w", domain.ErrInvalidAmount)
	}
	if code == domain.BaseCurrency {
		return fmt.Errorf("OverrideRate: base currency is fixed: %w", domain.ErrInvalidCurrency)
	}
	if err := s.currencies.UpdateRate(ctx, code, rate, s.now().UTC()); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("OverrideRate: %s: %w", code, domain.ErrInvalidCurrency)
		}
		return fmt.Errorf("OverrideRate: %w", err)
	}

	logging.FromContext(ctx).Info("exchange rate overridden",
		"code", code, "rate", rate.String(), "admin_id", caller.ID)
	return nil
}

// RestoreOfficialRates discards manual overrides by pulling fresh official
// rates immediately.
func (s *Service) RestoreOfficialRates(ctx context.Context, caller domain.Principal) error {
	if !caller.IsAdmin() {
		return fmt.Errorf("RestoreOfficialRates: %w", domain.ErrForbidden)
	}
	if err := s.Refresh(ctx); err != nil {
		return fmt.Errorf("RestoreOfficialRates: %w", err)
	}
	return nil
}

// Refresh pulls official rates and upserts every known code. On provider
// failure the stored rates stay as they are; conversion keeps serving the
// last good values.
func (s *Service) Refresh(ctx context.Context) error {
	log := logging.FromContext(ctx)

	rates, err := s.provider.FetchRates(ctx)
	if err != nil {
		log.Warn("rate refresh failed, keeping stored rates", "error", err)
		return fmt.Errorf("Refresh: %w", domain.ErrRateProviderFailure)
	}

	now := s.now().UTC()
	var updated int
	for code, rate := range rates {
		if code == domain.BaseCurrency || !rate.IsPositive() {
			continue
		}
		if err := s.currencies.UpdateRate(ctx, code, rate, now); err != nil {
			// Codes we do not track are skipped, not created.
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return fmt.Errorf("Refresh: %s: %w", code, err)
		}
		updated++
	}

	log.Info("exchange rates refreshed", "updated", updated)
	return nil
}

// SeedDefaults installs the initial currency set on an empty table so the
// service can convert before the first provider refresh.
func (s *Service) SeedDefaults(ctx context.Context) error {
	n, err := s.currencies.Count(ctx)
	if err != nil {
		return fmt.Errorf("SeedDefaults: %w", err)
	}
	if n > 0 {
		return nil
	}

	defaults := []domain.Currency{
		{Code: "USD", Name: "US Dollar", Rate: decimal.NewFromFloat(7.8)},
		{Code: "EUR", Name: "Euro", Rate: decimal.NewFromFloat(8.5)},
		{Code: "MXN", Name: "Mexican Peso", Rate: decimal.NewFromFloat(0.45)},
		{Code: "GBP", Name: "British Pound", Rate: decimal.NewFromFloat(10.1)},
	}
	now := s.now().UTC()
	for _, c := range defaults {
		c.Active = true
		c.UpdatedAt = now
		if err := s.currencies.Upsert(ctx, &c); err != nil {
			return fmt.Errorf("SeedDefaults: %s: %w", c.Code, err)
		}
	}

	logging.FromContext(ctx).Info("seeded default currencies", "count", len(defaults))
	return nil
}

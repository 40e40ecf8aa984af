package rates

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/aulaplatform/aulaledger/internal/apperrors"
	"github.com/aulaplatform/aulaledger/internal/models"
	"github.com/aulaplatform/aulaledger/internal/repository"
)

// Default rates are exact inverses of each other, so a round-trip
// conversion returns the original amount up to the currency rounding
// rule and nobody mints value by converting back and forth.
var (
	defaultAulaToCripto = decimal.New(1, -1) // 0.1
	defaultCriptoToAula = decimal.NewFromInt(10)
)

type Provider struct {
	rateRepo repository.RateRepo
}

func NewProvider(rateRepo repository.RateRepo) *Provider {
	return &Provider{rateRepo: rateRepo}
}

// ActiveRate returns the most recent active rate row for the ordered
// pair. When no rate is configured it falls back to the documented
// defaults instead of failing the caller.
func (p *Provider) ActiveRate(ctx context.Context, from, to models.Currency) (models.ConversionRate, error) {
	if !from.Valid() || !to.Valid() || from == to {
		return models.ConversionRate{}, apperrors.ErrSameCurrency
	}

	rate, err := p.rateRepo.GetActive(ctx, from, to)

	switch {
	case err == nil:
		return rate, nil
	case errors.Is(err, apperrors.ErrRateUnavailable):
		return defaultRate(from, to), nil
	default:
		return rate, fmt.Errorf("can't get active rate. Err: %w", err)
	}
}

// SetRate makes a new active rate row for the ordered pair. The row is
// versioned: previous rows are left in place and simply superseded.
func (p *Provider) SetRate(ctx context.Context, from, to models.Currency, rate decimal.Decimal) (models.ConversionRate, error) {
	if !from.Valid() || !to.Valid() || from == to {
		return models.ConversionRate{}, apperrors.ErrSameCurrency
	}
	if rate.LessThanOrEqual(decimal.Zero) {
		return models.ConversionRate{}, apperrors.ErrInvalidAmount
	}

	created, err := p.rateRepo.Create(ctx, models.ConversionRate{
		FromCurrency: from,
		ToCurrency:   to,
		Rate:         rate,
		IsActive:     true,
	})
	if err != nil {
		return created, fmt.Errorf("can't create rate. Err: %w", err)
	}

	return created, nil
}

func defaultRate(from, to models.Currency) models.ConversionRate {
	rate := defaultCriptoToAula
	if from == models.CurrencyAulaCoins {
		rate = defaultAulaToCripto
	}

	return models.ConversionRate{
		FromCurrency: from,
		ToCurrency:   to,
		Rate:         rate,
		IsActive:     true,
	}
}

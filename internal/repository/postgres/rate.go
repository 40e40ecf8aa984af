package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/aulaplatform/aulaledger/internal/apperrors"
	"github.com/aulaplatform/aulaledger/internal/models"
)

type RateRepo struct {
	DB DBTX
}

const rateColumns = `id, from_currency, to_currency, rate, is_active, effective_from`

const createRate = `-- name: CreateRate
INSERT INTO conversion_rates (id, from_currency, to_currency, rate, is_active, effective_from)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + rateColumns + `
`

func (r *RateRepo) Create(ctx context.Context, rate models.ConversionRate) (models.ConversionRate, error) {
	if rate.ID == uuid.Nil {
		rate.ID = uuid.New()
	}
	if rate.EffectiveFrom.IsZero() {
		rate.EffectiveFrom = time.Now()
	}

	rows, _ := r.DB.Query(ctx, createRate, rate.ID, rate.FromCurrency, rate.ToCurrency, rate.Rate, rate.IsActive, rate.EffectiveFrom)
	rate, err := pgx.CollectOneRow(rows, rowToRate)
	if err != nil {
		return rate, fmt.Errorf("db error: %w", err)
	}

	return rate, nil
}

// The newest active row wins; superseded rows stay for audit
const getActiveRate = `-- name: GetActiveRate
SELECT ` + rateColumns + ` FROM conversion_rates
WHERE from_currency = $1 AND to_currency = $2 AND is_active
ORDER BY effective_from DESC
LIMIT 1
`

func (r *RateRepo) GetActive(ctx context.Context, from, to models.Currency) (models.ConversionRate, error) {
	rows, _ := r.DB.Query(ctx, getActiveRate, from, to)
	rate, err := pgx.CollectOneRow(rows, rowToRate)

	switch {
	case err == nil:
		return rate, nil
	case errors.Is(err, pgx.ErrNoRows):
		return rate, apperrors.ErrRateUnavailable
	default:
		return rate, fmt.Errorf("db error: %w", err)
	}
}

func rowToRate(row pgx.CollectableRow) (models.ConversionRate, error) {
	var rate models.ConversionRate
	err := row.Scan(&rate.ID, &rate.FromCurrency, &rate.ToCurrency, &rate.Rate, &rate.IsActive, &rate.EffectiveFrom)
	return rate, err
}

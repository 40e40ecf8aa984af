package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/aulaplatform/aulaledger/internal/apperrors"
	"github.com/aulaplatform/aulaledger/internal/models"
)

type PaymentRepo struct {
	DB DBTX
}

const paymentColumns = `id, listing_id, buyer_id, seller_id,
	amount_aula_coins, amount_cripto_aula, fee_amount, fee_currency,
	status, created_at, updated_at`

const createPayment = `-- name: CreatePayment
INSERT INTO marketplace_payments (id, listing_id, buyer_id, seller_id, amount_aula_coins, amount_cripto_aula, fee_amount, fee_currency, status)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING ` + paymentColumns + `
`

func (r *PaymentRepo) Create(ctx context.Context, p models.MarketplacePayment) (models.MarketplacePayment, error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Status == "" {
		p.Status = models.PaymentPending
	}

	rows, _ := r.DB.Query(ctx, createPayment,
		p.ID, p.ListingID, p.BuyerID, p.SellerID,
		p.AmountAulaCoins, p.AmountCriptoAula, p.FeeAmount, p.FeeCurrency, p.Status,
	)
	p, err := pgx.CollectOneRow(rows, rowToPayment)
	if err != nil {
		return p, fmt.Errorf("db error: %w", err)
	}

	return p, nil
}

const getPayment = `-- name: GetPayment
SELECT ` + paymentColumns + ` FROM marketplace_payments
WHERE id = $1
`

func (r *PaymentRepo) Get(ctx context.Context, id uuid.UUID) (models.MarketplacePayment, error) {
	rows, _ := r.DB.Query(ctx, getPayment, id)
	p, err := pgx.CollectOneRow(rows, rowToPayment)

	switch {
	case err == nil:
		return p, nil
	case errors.Is(err, pgx.ErrNoRows):
		return p, apperrors.ErrPaymentNotFound
	default:
		return p, fmt.Errorf("db error: %w", err)
	}
}

const setPaymentStatus = `-- name: SetPaymentStatus
UPDATE marketplace_payments
SET status = $2, updated_at = now()
WHERE id = $1
RETURNING ` + paymentColumns + `
`

func (r *PaymentRepo) SetStatus(ctx context.Context, id uuid.UUID, status models.PaymentStatus) (models.MarketplacePayment, error) {
	rows, _ := r.DB.Query(ctx, setPaymentStatus, id, status)
	p, err := pgx.CollectOneRow(rows, rowToPayment)

	switch {
	case err == nil:
		return p, nil
	case errors.Is(err, pgx.ErrNoRows):
		return p, apperrors.ErrPaymentNotFound
	default:
		return p, fmt.Errorf("db error: %w", err)
	}
}

func rowToPayment(row pgx.CollectableRow) (models.MarketplacePayment, error) {
	var p models.MarketplacePayment
	err := row.Scan(
		&p.ID, &p.ListingID, &p.BuyerID, &p.SellerID,
		&p.AmountAulaCoins, &p.AmountCriptoAula, &p.FeeAmount, &p.FeeCurrency,
		&p.Status, &p.CreatedAt, &p.UpdatedAt,
	)
	return p, err
}

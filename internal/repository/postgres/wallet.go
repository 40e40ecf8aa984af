package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/aulaplatform/aulaledger/internal/apperrors"
	"github.com/aulaplatform/aulaledger/internal/models"
)

type WalletRepo struct {
	DB DBTX
}

const walletColumns = `student_id,
	balance_aula_coins, balance_cripto_aula,
	total_earned_aula_coins, total_earned_cripto_aula,
	total_spent_aula_coins, total_spent_cripto_aula,
	wallet_level, version, created_at, updated_at`

const createWallet = `-- name: CreateWallet
INSERT INTO wallets (student_id)
VALUES ($1)
RETURNING ` + walletColumns + `
`

// GetOrCreate returns the student's wallet, creating it lazily on the
// first access. Losing a concurrent insert race is reported as
// ErrConcurrencyConflict: the failed insert aborts the surrounding
// database transaction, so no recovery read can happen here and the
// caller must retry in a fresh one.
func (r *WalletRepo) GetOrCreate(ctx context.Context, studentID string) (models.Wallet, error) {
	w, err := r.Get(ctx, studentID)
	if !errors.Is(err, apperrors.ErrWalletNotFound) {
		return w, err
	}

	rows, _ := r.DB.Query(ctx, createWallet, studentID)
	w, err = pgx.CollectOneRow(rows, rowToWallet)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return w, apperrors.ErrConcurrencyConflict
		}
		return w, fmt.Errorf("db error: %w", err)
	}

	return w, nil
}

const getWallet = `-- name: GetWallet
SELECT ` + walletColumns + ` FROM wallets
WHERE student_id = $1
`

func (r *WalletRepo) Get(ctx context.Context, studentID string) (models.Wallet, error) {
	rows, _ := r.DB.Query(ctx, getWallet, studentID)
	w, err := pgx.CollectOneRow(rows, rowToWallet)

	switch {
	case err == nil:
		return w, nil
	case errors.Is(err, pgx.ErrNoRows):
		return w, apperrors.ErrWalletNotFound
	default:
		return w, fmt.Errorf("db error: %w", err)
	}
}

// Conditional update keyed on the version column. A concurrent writer
// bumps the version, the WHERE stops matching and no row is returned:
// that is the lost-update signal, never a silent overwrite.
const updateWalletChecked = `-- name: UpdateWalletChecked
UPDATE wallets
SET balance_aula_coins = $2,
	balance_cripto_aula = $3,
	total_earned_aula_coins = $4,
	total_earned_cripto_aula = $5,
	total_spent_aula_coins = $6,
	total_spent_cripto_aula = $7,
	wallet_level = $8,
	version = version + 1,
	updated_at = now()
WHERE student_id = $1 AND version = $9
RETURNING ` + walletColumns + `
`

func (r *WalletRepo) UpdateChecked(ctx context.Context, wallet models.Wallet) (models.Wallet, error) {
	rows, _ := r.DB.Query(ctx, updateWalletChecked,
		wallet.StudentID,
		wallet.BalanceAulaCoins,
		wallet.BalanceCriptoAula,
		wallet.TotalEarnedAulaCoins,
		wallet.TotalEarnedCriptoAula,
		wallet.TotalSpentAulaCoins,
		wallet.TotalSpentCriptoAula,
		wallet.Level,
		wallet.Version,
	)
	w, err := pgx.CollectOneRow(rows, rowToWallet)

	switch {
	case err == nil:
		return w, nil
	case errors.Is(err, pgx.ErrNoRows):
		return w, apperrors.ErrConcurrencyConflict
	default:
		return w, fmt.Errorf("db error: %w", err)
	}
}

func rowToWallet(row pgx.CollectableRow) (models.Wallet, error) {
	var w models.Wallet
	err := row.Scan(
		&w.StudentID,
		&w.BalanceAulaCoins, &w.BalanceCriptoAula,
		&w.TotalEarnedAulaCoins, &w.TotalEarnedCriptoAula,
		&w.TotalSpentAulaCoins, &w.TotalSpentCriptoAula,
		&w.Level, &w.Version, &w.CreatedAt, &w.UpdatedAt,
	)
	return w, err
}

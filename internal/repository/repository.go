package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/aulaplatform/aulaledger/internal/models"
)

// Wallet repository interface
type WalletRepo interface {
	// Get wallet for student, creating a zero-balance bronze wallet if
	// none exists yet. Idempotent.
	GetOrCreate(ctx context.Context, studentID string) (models.Wallet, error)

	// Get wallet only
	// If wallet not found must return apperrors.ErrWalletNotFound
	Get(ctx context.Context, studentID string) (models.Wallet, error)

	// Commit the wallet conditionally: the stored row must still carry
	// wallet.Version, otherwise apperrors.ErrConcurrencyConflict is
	// returned and nothing is written. On success the returned wallet
	// carries the incremented version.
	UpdateChecked(ctx context.Context, wallet models.Wallet) (models.Wallet, error)
}

// TransactionFilter narrows transaction listing. Zero values mean "any".
type TransactionFilter struct {
	Type     models.TransactionType
	Currency models.Currency
	Limit    int
}

// Append-only transaction log interface
type TransactionRepo interface {
	// Append assigns id, seq and created_at. Records are never updated
	// or deleted afterward.
	Append(ctx context.Context, t models.Transaction) (models.Transaction, error)

	// List transactions most-recent-first
	List(ctx context.Context, studentID string, filter TransactionFilter) ([]models.Transaction, error)
}

// Conversion rate repository interface
type RateRepo interface {
	Create(ctx context.Context, rate models.ConversionRate) (models.ConversionRate, error)

	// GetActive returns the most recent active rate for the ordered pair
	// If no rate configured must return apperrors.ErrRateUnavailable
	GetActive(ctx context.Context, from, to models.Currency) (models.ConversionRate, error)
}

// Marketplace payment repository interface
type PaymentRepo interface {
	Create(ctx context.Context, p models.MarketplacePayment) (models.MarketplacePayment, error)

	// If payment not found must return apperrors.ErrPaymentNotFound
	Get(ctx context.Context, id uuid.UUID) (models.MarketplacePayment, error)

	SetStatus(ctx context.Context, id uuid.UUID, status models.PaymentStatus) (models.MarketplacePayment, error)
}

type Storage interface {
	Wallet() WalletRepo
	Transaction() TransactionRepo
	Rate() RateRepo
	Payment() PaymentRepo

	// InTx runs fn against a storage bound to one database transaction.
	// Commit on nil error, rollback otherwise.
	InTx(ctx context.Context, fn func(Storage) error) error
}

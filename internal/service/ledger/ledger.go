package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/aulaplatform/aulaledger/internal/apperrors"
	"github.com/aulaplatform/aulaledger/internal/models"
	"github.com/aulaplatform/aulaledger/internal/repository"
)

// Attempts for the optimistic read-mutate-write cycle before giving up
// with apperrors.ErrConcurrencyConflict
const maxUpdateAttempts = 5

type rateProvider interface {
	// Must always resolve a rate for a valid ordered pair, falling back
	// to defaults when none is configured
	ActiveRate(ctx context.Context, from, to models.Currency) (models.ConversionRate, error)
}

type LedgerService struct {
	storage repository.Storage
	rates   rateProvider
}

func NewService(storage repository.Storage, rates rateProvider) *LedgerService {
	return &LedgerService{
		storage: storage,
		rates:   rates,
	}
}

// Entry describes one earn or spend request
type Entry struct {
	StudentID   string
	Currency    models.Currency
	Amount      decimal.Decimal
	Type        models.TransactionType
	Description string
	ReferenceID string
}

// GetOrCreateWallet returns the student's wallet, creating it on first
// access. Losing the insert race to a concurrent creator just means
// the wallet exists now, so the conflict is retried.
func (s *LedgerService) GetOrCreateWallet(ctx context.Context, studentID string) (models.Wallet, error) {
	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		wallet, err := s.storage.Wallet().GetOrCreate(ctx, studentID)
		switch {
		case err == nil:
			return wallet, nil
		case errors.Is(err, apperrors.ErrConcurrencyConflict):
			continue
		default:
			return wallet, fmt.Errorf("can't get or create wallet. Err: %w", err)
		}
	}

	return models.Wallet{}, apperrors.ErrConcurrencyConflict
}

// Earn credits the wallet and records one transaction. AulaCoins amounts
// are floored to whole coins, CriptoAula amounts truncated to 2 decimal
// places before crediting.
func (s *LedgerService) Earn(ctx context.Context, e Entry) (models.Wallet, error) {
	if err := validateEntry(e); err != nil {
		return models.Wallet{}, err
	}
	if !e.Type.IsEarn() {
		return models.Wallet{}, apperrors.ErrInvalidType
	}

	return s.mutateWallet(ctx, e.StudentID, func(w *models.Wallet) (models.Transaction, error) {
		credited := w.Credit(e.Currency, e.Amount)
		if credited.IsZero() {
			// e.g. earning 0.4 AulaCoins floors to nothing
			return models.Transaction{}, apperrors.ErrInvalidAmount
		}

		return models.Transaction{
			Type:        e.Type,
			Currency:    e.Currency,
			Amount:      credited,
			Description: e.Description,
			ReferenceID: e.ReferenceID,
		}, nil
	})
}

// Spend debits the wallet and records one transaction with a negative
// amount. AulaCoins spends must name a whole number of coins; a
// fractional request is rejected rather than silently floored. The
// sufficiency check happens against the balance read in the same
// atomic cycle that commits the debit, so a concurrent spend can never
// drive the balance below zero.
func (s *LedgerService) Spend(ctx context.Context, e Entry) (models.Wallet, error) {
	if err := validateEntry(e); err != nil {
		return models.Wallet{}, err
	}
	if !e.Type.IsSpend() {
		return models.Wallet{}, apperrors.ErrInvalidType
	}
	if e.Currency == models.CurrencyAulaCoins && !e.Amount.Equal(e.Amount.Floor()) {
		return models.Wallet{}, apperrors.ErrInvalidAmount
	}

	return s.mutateWallet(ctx, e.StudentID, func(w *models.Wallet) (models.Transaction, error) {
		debited, ok := w.Debit(e.Currency, e.Amount)
		if !ok {
			return models.Transaction{}, apperrors.ErrInsufficientBalance
		}
		if debited.IsZero() {
			return models.Transaction{}, apperrors.ErrInvalidAmount
		}

		return models.Transaction{
			Type:        e.Type,
			Currency:    e.Currency,
			Amount:      debited.Neg(),
			Description: e.Description,
			ReferenceID: e.ReferenceID,
		}, nil
	})
}

// Convert moves value between the two currencies at the active rate.
// Source debit and destination credit commit in one atomic wallet
// update, and the single recorded transaction describes the credited
// leg with the source amount and rate snapshotted in metadata.
func (s *LedgerService) Convert(ctx context.Context, studentID string, from models.Currency, amount decimal.Decimal) (models.Wallet, error) {
	if !from.Valid() {
		return models.Wallet{}, apperrors.ErrInvalidCurrency
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return models.Wallet{}, apperrors.ErrInvalidAmount
	}

	to := from.Other()
	rate, err := s.rates.ActiveRate(ctx, from, to)
	if err != nil {
		return models.Wallet{}, fmt.Errorf("can't resolve conversion rate. Err: %w", err)
	}

	return s.mutateWallet(ctx, studentID, func(w *models.Wallet) (models.Transaction, error) {
		debited, ok := w.Debit(from, amount)
		if !ok {
			return models.Transaction{}, apperrors.ErrInsufficientBalance
		}
		if debited.IsZero() {
			return models.Transaction{}, apperrors.ErrInvalidAmount
		}

		credited := w.Credit(to, debited.Mul(rate.Rate))

		metadata, err := json.Marshal(models.ConversionMetadata{
			OriginalAmount: debited,
			FromCurrency:   from,
			Rate:           rate.Rate,
		})
		if err != nil {
			return models.Transaction{}, fmt.Errorf("can't encode conversion metadata. Err: %w", err)
		}

		return models.Transaction{
			Type:     models.ConversionTypeTo(to),
			Currency: to,
			Amount:   credited,
			Metadata: metadata,
		}, nil
	})
}

// Transactions returns the student's ledger entries most-recent-first
func (s *LedgerService) Transactions(ctx context.Context, studentID string, filter repository.TransactionFilter) ([]models.Transaction, error) {
	transactions, err := s.storage.Transaction().List(ctx, studentID, filter)
	if err != nil {
		return nil, fmt.Errorf("can't list transactions. Err: %w", err)
	}

	return transactions, nil
}

// mutateWallet runs the bounded optimistic read-mutate-write cycle.
// Each attempt reads the wallet, applies the pure mutation, commits it
// with a version check and appends the resulting transaction, all
// inside one database transaction. A version conflict rolls everything
// back and retries; any other error aborts as-is, so a failed mutation
// never leaves partial state behind.
func (s *LedgerService) mutateWallet(ctx context.Context, studentID string, mutate func(w *models.Wallet) (models.Transaction, error)) (models.Wallet, error) {
	var committed models.Wallet

	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		err := s.storage.InTx(ctx, func(store repository.Storage) error {
			wallet, err := store.Wallet().GetOrCreate(ctx, studentID)
			if err != nil {
				return err
			}

			entry, err := mutate(&wallet)
			if err != nil {
				return err
			}

			wallet, err = store.Wallet().UpdateChecked(ctx, wallet)
			if err != nil {
				return err
			}

			entry.StudentID = studentID
			entry.BalanceAfter = wallet.Balance(entry.Currency)

			if _, err := store.Transaction().Append(ctx, entry); err != nil {
				return err
			}

			committed = wallet
			return nil
		})

		switch {
		case err == nil:
			return committed, nil
		case errors.Is(err, apperrors.ErrConcurrencyConflict):
			continue
		default:
			return models.Wallet{}, err
		}
	}

	return models.Wallet{}, apperrors.ErrConcurrencyConflict
}

func validateEntry(e Entry) error {
	if !e.Currency.Valid() {
		return apperrors.ErrInvalidCurrency
	}
	if !e.Type.Valid() {
		return apperrors.ErrInvalidType
	}
	if e.Amount.LessThanOrEqual(decimal.Zero) {
		return apperrors.ErrInvalidAmount
	}
	return nil
}

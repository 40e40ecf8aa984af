package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/aulaplatform/aulaledger/internal/apperrors"
	"github.com/aulaplatform/aulaledger/internal/cache"
	"github.com/aulaplatform/aulaledger/internal/handlers/render"
	"github.com/aulaplatform/aulaledger/internal/logger"
	"github.com/aulaplatform/aulaledger/internal/models"
	"github.com/aulaplatform/aulaledger/internal/service/ledger"
)

type entryRequest struct {
	Currency    string          `json:"currency" validate:"required,currency"`
	Amount      decimal.Decimal `json:"amount" validate:"required"`
	Type        string          `json:"type" validate:"required,transactiontype"`
	Description string          `json:"description" validate:"max=500"`
	ReferenceID string          `json:"reference_id" validate:"max=100"`
}

func (req entryRequest) toEntry(studentID string) ledger.Entry {
	return ledger.Entry{
		StudentID:   studentID,
		Currency:    models.Currency(req.Currency),
		Amount:      req.Amount,
		Type:        models.TransactionType(req.Type),
		Description: req.Description,
		ReferenceID: req.ReferenceID,
	}
}

func handleEarn(ledgerService ledgerService, walletCache *cache.WalletCache, l logger.Logger) http.Handler {
	return handleEntry(ledgerService.Earn, walletCache, l)
}

func handleSpend(ledgerService ledgerService, walletCache *cache.WalletCache, l logger.Logger) http.Handler {
	return handleEntry(ledgerService.Spend, walletCache, l)
}

// handleEntry serves both earn and spend: the two requests share their
// shape and error mapping, only the applied ledger operation differs
func handleEntry(apply func(ctx context.Context, e ledger.Entry) (models.Wallet, error), walletCache *cache.WalletCache, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		studentID := r.PathValue("studentID")

		req, err := render.BindAndValidate[entryRequest](w, r)
		if err != nil {
			return
		}

		wallet, err := apply(r.Context(), req.toEntry(studentID))

		switch {
		case err == nil:
			if err := walletCache.Invalidate(r.Context(), studentID); err != nil {
				l.Warn("Failed to invalidate wallet cache", "student_id", studentID, "error", err)
			}
			render.JSON(w, toWalletResponse(wallet))
		case errors.Is(err, apperrors.ErrInvalidAmount),
			errors.Is(err, apperrors.ErrInvalidCurrency),
			errors.Is(err, apperrors.ErrInvalidType):
			render.ServiceError(w, err.Error(), http.StatusUnprocessableEntity)
		case errors.Is(err, apperrors.ErrInsufficientBalance):
			render.ServiceError(w, "Insufficient balance", http.StatusPaymentRequired)
		case errors.Is(err, apperrors.ErrConcurrencyConflict):
			render.ServiceError(w, "Wallet busy, try again", http.StatusConflict)
		default:
			l.Error("Failed to apply ledger entry", "student_id", studentID, "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

func handleConvert(ledgerService ledgerService, walletCache *cache.WalletCache, l logger.Logger) http.Handler {
	type request struct {
		FromCurrency string          `json:"from_currency" validate:"required,currency"`
		Amount       decimal.Decimal `json:"amount" validate:"required"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		studentID := r.PathValue("studentID")

		req, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		wallet, err := ledgerService.Convert(r.Context(), studentID, models.Currency(req.FromCurrency), req.Amount)

		switch {
		case err == nil:
			if err := walletCache.Invalidate(r.Context(), studentID); err != nil {
				l.Warn("Failed to invalidate wallet cache", "student_id", studentID, "error", err)
			}
			render.JSON(w, toWalletResponse(wallet))
		case errors.Is(err, apperrors.ErrInvalidAmount),
			errors.Is(err, apperrors.ErrInvalidCurrency),
			errors.Is(err, apperrors.ErrSameCurrency):
			render.ServiceError(w, err.Error(), http.StatusUnprocessableEntity)
		case errors.Is(err, apperrors.ErrInsufficientBalance):
			render.ServiceError(w, "Insufficient balance", http.StatusPaymentRequired)
		case errors.Is(err, apperrors.ErrConcurrencyConflict):
			render.ServiceError(w, "Wallet busy, try again", http.StatusConflict)
		default:
			l.Error("Failed to convert", "student_id", studentID, "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

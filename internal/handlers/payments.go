package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/aulaplatform/aulaledger/internal/apperrors"
	"github.com/aulaplatform/aulaledger/internal/cache"
	"github.com/aulaplatform/aulaledger/internal/handlers/render"
	"github.com/aulaplatform/aulaledger/internal/logger"
	"github.com/aulaplatform/aulaledger/internal/models"
	"github.com/aulaplatform/aulaledger/internal/service/settlement"
)

type paymentResponse struct {
	ID               string    `json:"id"`
	ListingID        string    `json:"listing_id"`
	BuyerID          string    `json:"buyer_id"`
	SellerID         string    `json:"seller_id"`
	AmountAulaCoins  int64     `json:"amount_aula_coins"`
	AmountCriptoAula float64   `json:"amount_cripto_aula"`
	FeeAmount        float64   `json:"fee_amount"`
	FeeCurrency      string    `json:"fee_currency"`
	Status           string    `json:"status"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func toPaymentResponse(p models.MarketplacePayment) paymentResponse {
	cripto, _ := p.AmountCriptoAula.Float64()
	fee, _ := p.FeeAmount.Float64()

	return paymentResponse{
		ID:               p.ID.String(),
		ListingID:        p.ListingID,
		BuyerID:          p.BuyerID,
		SellerID:         p.SellerID,
		AmountAulaCoins:  p.AmountAulaCoins.IntPart(),
		AmountCriptoAula: cripto,
		FeeAmount:        fee,
		FeeCurrency:      string(p.FeeCurrency),
		Status:           string(p.Status),
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
}

func handleSettle(settlementService settlementService, walletCache *cache.WalletCache, l logger.Logger) http.Handler {
	type request struct {
		ListingID        string          `json:"listing_id" validate:"required,max=100"`
		BuyerID          string          `json:"buyer_id" validate:"required,max=100"`
		SellerID         string          `json:"seller_id" validate:"required,max=100"`
		AmountAulaCoins  decimal.Decimal `json:"amount_aula_coins"`
		AmountCriptoAula decimal.Decimal `json:"amount_cripto_aula"`
		FeeAmount        decimal.Decimal `json:"fee_amount"`
		FeeCurrency      string          `json:"fee_currency" validate:"omitempty,currency"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		feeCurrency := models.Currency(req.FeeCurrency)
		if req.FeeCurrency == "" {
			feeCurrency = models.CurrencyAulaCoins
		}

		payment, err := settlementService.Settle(r.Context(), settlement.SettleRequest{
			ListingID:        req.ListingID,
			BuyerID:          req.BuyerID,
			SellerID:         req.SellerID,
			AmountAulaCoins:  req.AmountAulaCoins,
			AmountCriptoAula: req.AmountCriptoAula,
			FeeAmount:        req.FeeAmount,
			FeeCurrency:      feeCurrency,
		})

		// Both participants may have moved regardless of outcome
		invalidateParticipants(r.Context(), walletCache, l, req.BuyerID, req.SellerID)

		switch {
		case err == nil:
			render.JSON(w, toPaymentResponse(payment))
		case errors.Is(err, apperrors.ErrInvalidAmount),
			errors.Is(err, apperrors.ErrInvalidCurrency):
			render.ServiceError(w, err.Error(), http.StatusUnprocessableEntity)
		case errors.Is(err, apperrors.ErrInsufficientBalance):
			render.ServiceError(w, "Insufficient buyer balance", http.StatusPaymentRequired)
		case errors.Is(err, apperrors.ErrSettlementFailed):
			render.ServiceError(w, "Settlement failed", http.StatusConflict)
		default:
			l.Error("Failed to settle payment", "listing_id", req.ListingID, "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

func handleRefund(settlementService settlementService, walletCache *cache.WalletCache, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paymentID, err := uuid.Parse(r.PathValue("paymentID"))
		if err != nil {
			render.ServiceError(w, "Invalid payment id", http.StatusBadRequest)
			return
		}

		payment, err := settlementService.Refund(r.Context(), paymentID)

		if payment.BuyerID != "" {
			invalidateParticipants(r.Context(), walletCache, l, payment.BuyerID, payment.SellerID)
		}

		switch {
		case err == nil:
			render.JSON(w, toPaymentResponse(payment))
		case errors.Is(err, apperrors.ErrPaymentNotFound):
			render.ServiceError(w, "Payment not found", http.StatusNotFound)
		case errors.Is(err, apperrors.ErrPaymentNotRefundable):
			render.ServiceError(w, "Payment is not refundable", http.StatusConflict)
		case errors.Is(err, apperrors.ErrInsufficientBalance):
			render.ServiceError(w, "Insufficient seller balance for refund", http.StatusPaymentRequired)
		case errors.Is(err, apperrors.ErrSettlementFailed):
			render.ServiceError(w, "Refund failed", http.StatusConflict)
		default:
			l.Error("Failed to refund payment", "payment_id", paymentID, "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

func invalidateParticipants(ctx context.Context, walletCache *cache.WalletCache, l logger.Logger, studentIDs ...string) {
	for _, studentID := range studentIDs {
		if err := walletCache.Invalidate(ctx, studentID); err != nil {
			l.Warn("Failed to invalidate wallet cache", "student_id", studentID, "error", err)
		}
	}
}

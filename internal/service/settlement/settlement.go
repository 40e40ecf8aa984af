package settlement

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/aulaplatform/aulaledger/internal/apperrors"
	"github.com/aulaplatform/aulaledger/internal/logger"
	"github.com/aulaplatform/aulaledger/internal/models"
	"github.com/aulaplatform/aulaledger/internal/repository"
	"github.com/aulaplatform/aulaledger/internal/service/ledger"
)

type ledgerService interface {
	Earn(ctx context.Context, e ledger.Entry) (models.Wallet, error)
	Spend(ctx context.Context, e ledger.Entry) (models.Wallet, error)
}

type SettlementService struct {
	storage repository.Storage
	ledger  ledgerService
	logger  logger.Logger
}

func NewService(storage repository.Storage, ledgerService ledgerService, l logger.Logger) *SettlementService {
	if l == nil {
		l = logger.NewNoOpLogger()
	}

	return &SettlementService{
		storage: storage,
		ledger:  ledgerService,
		logger:  l,
	}
}

// SettleRequest is what the marketplace collaborator supplies: listing,
// participants and the price split per currency. Either amount may be
// zero, at least one must be positive.
type SettleRequest struct {
	ListingID        string
	BuyerID          string
	SellerID         string
	AmountAulaCoins  decimal.Decimal
	AmountCriptoAula decimal.Decimal
	FeeAmount        decimal.Decimal
	FeeCurrency      models.Currency
}

// leg is one wallet mutation of a settlement together with the inverse
// mutation that undoes it
type leg struct {
	run        func(ctx context.Context) error
	compensate func(ctx context.Context) error
}

// Settle applies a marketplace trade to both wallets as one logical
// unit. Legs run in a fixed order (buyer debits first, then seller
// credits, then the fee debit) so two opposing trades can't interleave
// into a deadlock. If any leg fails, every applied leg is compensated
// before the error is returned: callers never observe a partially
// settled trade.
func (s *SettlementService) Settle(ctx context.Context, req SettleRequest) (models.MarketplacePayment, error) {
	var payment models.MarketplacePayment

	if err := validateRequest(req); err != nil {
		return payment, err
	}

	// A zero fee may come without a currency; the stored row still
	// needs a valid one
	if !req.FeeCurrency.Valid() {
		req.FeeCurrency = models.CurrencyAulaCoins
	}

	payment, err := s.storage.Payment().Create(ctx, models.MarketplacePayment{
		ListingID:        req.ListingID,
		BuyerID:          req.BuyerID,
		SellerID:         req.SellerID,
		AmountAulaCoins:  models.CurrencyAulaCoins.Quantize(req.AmountAulaCoins),
		AmountCriptoAula: models.CurrencyCriptoAula.Quantize(req.AmountCriptoAula),
		FeeAmount:        req.FeeCurrency.Quantize(req.FeeAmount),
		FeeCurrency:      req.FeeCurrency,
		Status:           models.PaymentPending,
	})
	if err != nil {
		return payment, fmt.Errorf("can't create payment. Err: %w", err)
	}

	if err := s.runLegs(ctx, s.settleLegs(payment)); err != nil {
		failed, ferr := s.storage.Payment().SetStatus(ctx, payment.ID, models.PaymentFailed)
		if ferr != nil {
			s.logger.Error("Failed to mark payment failed", "payment_id", payment.ID, "error", ferr)
		} else {
			payment = failed
		}
		return payment, fmt.Errorf("%w: %w", apperrors.ErrSettlementFailed, err)
	}

	payment, err = s.storage.Payment().SetStatus(ctx, payment.ID, models.PaymentCompleted)
	if err != nil {
		return payment, fmt.Errorf("can't mark payment completed. Err: %w", err)
	}

	return payment, nil
}

// Refund reverses a completed payment with explicit compensating
// entries: the buyer is credited back, the seller debited. Only
// completed payments are refundable.
func (s *SettlementService) Refund(ctx context.Context, paymentID uuid.UUID) (models.MarketplacePayment, error) {
	payment, err := s.storage.Payment().Get(ctx, paymentID)
	if err != nil {
		return payment, err
	}
	if payment.Status != models.PaymentCompleted {
		return payment, apperrors.ErrPaymentNotRefundable
	}

	// Reverse of the settle order: the fee comes back first, then the
	// seller gives up the proceeds, then the buyer is made whole
	legs := s.settleLegs(payment)
	refundLegs := make([]leg, 0, len(legs))
	for i := len(legs) - 1; i >= 0; i-- {
		l := legs[i]
		refundLegs = append(refundLegs, leg{run: l.compensate, compensate: l.run})
	}

	if err := s.runLegs(ctx, refundLegs); err != nil {
		return payment, fmt.Errorf("%w: %w", apperrors.ErrSettlementFailed, err)
	}

	payment, err = s.storage.Payment().SetStatus(ctx, payment.ID, models.PaymentRefunded)
	if err != nil {
		return payment, fmt.Errorf("can't mark payment refunded. Err: %w", err)
	}

	return payment, nil
}

// settleLegs builds the ordered mutation list for a payment. All buyer
// debits go first: an insufficient buyer balance is the common failure
// and discovering it before any credit means there is nothing to
// compensate.
func (s *SettlementService) settleLegs(payment models.MarketplacePayment) []leg {
	ref := payment.ID.String()
	compensationRef := "compensation:" + ref
	legs := make([]leg, 0, 5)

	currencies := []models.Currency{models.CurrencyAulaCoins, models.CurrencyCriptoAula}

	for _, currency := range currencies {
		amount := payment.Amount(currency)
		if !amount.IsPositive() {
			continue
		}

		buyerID, c := payment.BuyerID, currency

		legs = append(legs, leg{
			run: func(ctx context.Context) error {
				_, err := s.ledger.Spend(ctx, ledger.Entry{
					StudentID:   buyerID,
					Currency:    c,
					Amount:      amount,
					Type:        models.TransactionSpendPurchase,
					Description: "marketplace purchase",
					ReferenceID: ref,
				})
				return err
			},
			compensate: func(ctx context.Context) error {
				_, err := s.ledger.Earn(ctx, ledger.Entry{
					StudentID:   buyerID,
					Currency:    c,
					Amount:      amount,
					Type:        models.TransactionEarnBonus,
					Description: "marketplace purchase reversal",
					ReferenceID: compensationRef,
				})
				return err
			},
		})
	}

	for _, currency := range currencies {
		amount := payment.Amount(currency)
		if !amount.IsPositive() {
			continue
		}

		sellerID, c := payment.SellerID, currency

		legs = append(legs, leg{
			run: func(ctx context.Context) error {
				_, err := s.ledger.Earn(ctx, ledger.Entry{
					StudentID:   sellerID,
					Currency:    c,
					Amount:      amount,
					Type:        models.TransactionEarnMarketplaceSale,
					Description: "marketplace sale",
					ReferenceID: ref,
				})
				return err
			},
			compensate: func(ctx context.Context) error {
				_, err := s.ledger.Spend(ctx, ledger.Entry{
					StudentID:   sellerID,
					Currency:    c,
					Amount:      amount,
					Type:        models.TransactionSpendReward,
					Description: "marketplace sale reversal",
					ReferenceID: compensationRef,
				})
				return err
			},
		})
	}

	if payment.FeeAmount.IsPositive() {
		sellerID, feeCurrency, fee := payment.SellerID, payment.FeeCurrency, payment.FeeAmount

		legs = append(legs, leg{
			run: func(ctx context.Context) error {
				_, err := s.ledger.Spend(ctx, ledger.Entry{
					StudentID:   sellerID,
					Currency:    feeCurrency,
					Amount:      fee,
					Type:        models.TransactionSpendListingFee,
					Description: "marketplace listing fee",
					ReferenceID: ref,
				})
				return err
			},
			compensate: func(ctx context.Context) error {
				_, err := s.ledger.Earn(ctx, ledger.Entry{
					StudentID:   sellerID,
					Currency:    feeCurrency,
					Amount:      fee,
					Type:        models.TransactionEarnBonus,
					Description: "marketplace listing fee reversal",
					ReferenceID: compensationRef,
				})
				return err
			},
		})
	}

	return legs
}

// runLegs executes legs in order; on failure every already applied leg
// is compensated in reverse order before returning
func (s *SettlementService) runLegs(ctx context.Context, legs []leg) error {
	for i, l := range legs {
		err := l.run(ctx)
		if err == nil {
			continue
		}

		for j := i - 1; j >= 0; j-- {
			if cerr := legs[j].compensate(ctx); cerr != nil {
				// A wallet changed and could not be restored; this
				// needs an operator, not a retry
				s.logger.Error("Failed to compensate settlement leg", "leg", j, "error", cerr)
				return errors.Join(err, fmt.Errorf("compensation failed: %w", cerr))
			}
		}

		return err
	}

	return nil
}

func validateRequest(req SettleRequest) error {
	if req.BuyerID == "" || req.SellerID == "" || req.BuyerID == req.SellerID {
		return fmt.Errorf("%w: buyer and seller must be two different students", apperrors.ErrSettlementFailed)
	}
	if req.AmountAulaCoins.IsNegative() || req.AmountCriptoAula.IsNegative() || req.FeeAmount.IsNegative() {
		return apperrors.ErrInvalidAmount
	}
	if !req.AmountAulaCoins.IsPositive() && !req.AmountCriptoAula.IsPositive() {
		return apperrors.ErrInvalidAmount
	}
	if req.FeeAmount.IsPositive() && !req.FeeCurrency.Valid() {
		return apperrors.ErrInvalidCurrency
	}
	return nil
}

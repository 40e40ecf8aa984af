package settlement

import (
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/aulaplatform/aulaledger/internal/apperrors"
	"github.com/aulaplatform/aulaledger/internal/models"
	"github.com/aulaplatform/aulaledger/internal/repository"
	"github.com/aulaplatform/aulaledger/internal/repository/postgres"
	"github.com/aulaplatform/aulaledger/internal/service/ledger"
	"github.com/aulaplatform/aulaledger/internal/service/rates"
	"github.com/aulaplatform/aulaledger/internal/testutil"
)

func TestSettlement(t *testing.T) {
	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	inTx := func(t *testing.T, fn func(s *SettlementService, l *ledger.LedgerService, storage repository.Storage)) {
		testutil.InTx(pg.Pool, t, func(tx pgx.Tx) {
			storage := postgres.NewStorage(tx)
			l := ledger.NewService(storage, rates.NewProvider(storage.Rate()))
			fn(NewService(storage, l, nil), l, storage)
		})
	}

	fund := func(t *testing.T, l *ledger.LedgerService, studentID string, currency models.Currency, amount string) {
		t.Helper()

		_, err := l.Earn(t.Context(), ledger.Entry{
			StudentID: studentID,
			Currency:  currency,
			Amount:    decimal.RequireFromString(amount),
			Type:      models.TransactionEarnActivity,
		})
		require.NoError(t, err)
	}

	req := SettleRequest{
		ListingID:       "listing-1",
		BuyerID:         "buyer-1",
		SellerID:        "seller-1",
		AmountAulaCoins: decimal.NewFromInt(100),
		FeeAmount:       decimal.NewFromInt(10),
		FeeCurrency:     models.CurrencyAulaCoins,
	}

	t.Run("Settle", func(t *testing.T) {
		t.Run("moves funds and completes the payment", func(t *testing.T) {
			inTx(t, func(s *SettlementService, l *ledger.LedgerService, storage repository.Storage) {
				fund(t, l, "buyer-1", models.CurrencyAulaCoins, "150")

				payment, err := s.Settle(t.Context(), req)

				require.NoError(t, err)
				require.Equal(t, models.PaymentCompleted, payment.Status)

				buyer, err := storage.Wallet().Get(t.Context(), "buyer-1")
				require.NoError(t, err)
				require.True(t, buyer.BalanceAulaCoins.Equal(decimal.NewFromInt(50)))

				seller, err := storage.Wallet().Get(t.Context(), "seller-1")
				require.NoError(t, err)
				require.True(t, seller.BalanceAulaCoins.Equal(decimal.NewFromInt(90)), "seller should get the price minus the listing fee")

				sellerTxs, err := storage.Transaction().List(t.Context(), "seller-1", repository.TransactionFilter{})
				require.NoError(t, err)
				require.Len(t, sellerTxs, 2)
				require.Equal(t, models.TransactionSpendListingFee, sellerTxs[0].Type)
				require.Equal(t, models.TransactionEarnMarketplaceSale, sellerTxs[1].Type)
				require.Equal(t, payment.ID.String(), sellerTxs[0].ReferenceID, "settlement entries should reference the payment")

				buyerTxs, err := storage.Transaction().List(t.Context(), "buyer-1", repository.TransactionFilter{
					Type: models.TransactionSpendPurchase,
				})
				require.NoError(t, err)
				require.Len(t, buyerTxs, 1)
				require.True(t, buyerTxs[0].Amount.Equal(decimal.NewFromInt(-100)))
			})
		})

		t.Run("dual currency price", func(t *testing.T) {
			inTx(t, func(s *SettlementService, l *ledger.LedgerService, storage repository.Storage) {
				fund(t, l, "buyer-1", models.CurrencyAulaCoins, "100")
				fund(t, l, "buyer-1", models.CurrencyCriptoAula, "5.00")

				dual := req
				dual.AmountCriptoAula = decimal.RequireFromString("2.50")
				dual.FeeAmount = decimal.Zero

				payment, err := s.Settle(t.Context(), dual)

				require.NoError(t, err)
				require.Equal(t, models.PaymentCompleted, payment.Status)

				seller, err := storage.Wallet().Get(t.Context(), "seller-1")
				require.NoError(t, err)
				require.True(t, seller.BalanceAulaCoins.Equal(decimal.NewFromInt(100)))
				require.True(t, seller.BalanceCriptoAula.Equal(decimal.RequireFromString("2.50")))
			})
		})

		t.Run("zero fee without a currency defaults it", func(t *testing.T) {
			inTx(t, func(s *SettlementService, l *ledger.LedgerService, storage repository.Storage) {
				fund(t, l, "buyer-1", models.CurrencyAulaCoins, "100")

				feeless := req
				feeless.FeeAmount = decimal.Zero
				feeless.FeeCurrency = ""

				payment, err := s.Settle(t.Context(), feeless)

				require.NoError(t, err, "a fee-free request should settle without a fee currency")
				require.Equal(t, models.PaymentCompleted, payment.Status)
				require.Equal(t, models.CurrencyAulaCoins, payment.FeeCurrency)

				seller, err := storage.Wallet().Get(t.Context(), "seller-1")
				require.NoError(t, err)
				require.True(t, seller.BalanceAulaCoins.Equal(decimal.NewFromInt(100)), "no fee should be debited")
			})
		})

		t.Run("insufficient buyer balance fails the payment and leaves wallets untouched", func(t *testing.T) {
			inTx(t, func(s *SettlementService, l *ledger.LedgerService, storage repository.Storage) {
				fund(t, l, "buyer-1", models.CurrencyAulaCoins, "50")
				fund(t, l, "seller-1", models.CurrencyAulaCoins, "30")

				buyerBefore, err := storage.Wallet().Get(t.Context(), "buyer-1")
				require.NoError(t, err)
				sellerBefore, err := storage.Wallet().Get(t.Context(), "seller-1")
				require.NoError(t, err)

				payment, err := s.Settle(t.Context(), req)

				require.ErrorIs(t, err, apperrors.ErrSettlementFailed)
				require.ErrorIs(t, err, apperrors.ErrInsufficientBalance)
				require.Equal(t, models.PaymentFailed, payment.Status)

				buyerAfter, err := storage.Wallet().Get(t.Context(), "buyer-1")
				require.NoError(t, err)
				require.Equal(t, buyerBefore, buyerAfter, "failed settlement should not touch the buyer wallet")

				sellerAfter, err := storage.Wallet().Get(t.Context(), "seller-1")
				require.NoError(t, err)
				require.Equal(t, sellerBefore, sellerAfter, "failed settlement should not touch the seller wallet")
			})
		})

		t.Run("partial failure is compensated", func(t *testing.T) {
			inTx(t, func(s *SettlementService, l *ledger.LedgerService, storage repository.Storage) {
				// Enough aula for the first buyer debit, no cripto for
				// the second one
				fund(t, l, "buyer-1", models.CurrencyAulaCoins, "100")

				dual := req
				dual.AmountCriptoAula = decimal.RequireFromString("2.50")

				payment, err := s.Settle(t.Context(), dual)

				require.ErrorIs(t, err, apperrors.ErrSettlementFailed)
				require.Equal(t, models.PaymentFailed, payment.Status)

				buyer, err := storage.Wallet().Get(t.Context(), "buyer-1")
				require.NoError(t, err)
				require.True(t, buyer.BalanceAulaCoins.Equal(decimal.NewFromInt(100)), "applied buyer debit should be credited back")

				compensations, err := storage.Transaction().List(t.Context(), "buyer-1", repository.TransactionFilter{
					Type: models.TransactionEarnBonus,
				})
				require.NoError(t, err)
				require.Len(t, compensations, 1)
				require.Equal(t, "compensation:"+payment.ID.String(), compensations[0].ReferenceID)
			})
		})

		t.Run("validation", func(t *testing.T) {
			inTx(t, func(s *SettlementService, l *ledger.LedgerService, storage repository.Storage) {
				selfTrade := req
				selfTrade.SellerID = selfTrade.BuyerID
				_, err := s.Settle(t.Context(), selfTrade)
				require.ErrorIs(t, err, apperrors.ErrSettlementFailed)

				empty := req
				empty.AmountAulaCoins = decimal.Zero
				_, err = s.Settle(t.Context(), empty)
				require.ErrorIs(t, err, apperrors.ErrInvalidAmount)

				negative := req
				negative.AmountCriptoAula = decimal.NewFromInt(-1)
				_, err = s.Settle(t.Context(), negative)
				require.ErrorIs(t, err, apperrors.ErrInvalidAmount)
			})
		})
	})

	t.Run("Refund", func(t *testing.T) {
		t.Run("reverses a completed payment", func(t *testing.T) {
			inTx(t, func(s *SettlementService, l *ledger.LedgerService, storage repository.Storage) {
				fund(t, l, "buyer-1", models.CurrencyAulaCoins, "100")

				payment, err := s.Settle(t.Context(), req)
				require.NoError(t, err)

				refunded, err := s.Refund(t.Context(), payment.ID)

				require.NoError(t, err)
				require.Equal(t, models.PaymentRefunded, refunded.Status)

				buyer, err := storage.Wallet().Get(t.Context(), "buyer-1")
				require.NoError(t, err)
				require.True(t, buyer.BalanceAulaCoins.Equal(decimal.NewFromInt(100)), "buyer should be made whole")

				seller, err := storage.Wallet().Get(t.Context(), "seller-1")
				require.NoError(t, err)
				require.True(t, seller.BalanceAulaCoins.IsZero(), "seller should give the proceeds back")
			})
		})

		t.Run("failed payment is not refundable", func(t *testing.T) {
			inTx(t, func(s *SettlementService, l *ledger.LedgerService, storage repository.Storage) {
				// Buyer has no funds, so the settlement fails upfront
				failed, err := s.Settle(t.Context(), req)
				require.ErrorIs(t, err, apperrors.ErrSettlementFailed)

				_, err = s.Refund(t.Context(), failed.ID)

				require.ErrorIs(t, err, apperrors.ErrPaymentNotRefundable)
			})
		})

		t.Run("unknown payment", func(t *testing.T) {
			inTx(t, func(s *SettlementService, l *ledger.LedgerService, storage repository.Storage) {
				_, err := s.Refund(t.Context(), uuid.New())

				require.ErrorIs(t, err, apperrors.ErrPaymentNotFound)
			})
		})

		t.Run("double refund", func(t *testing.T) {
			inTx(t, func(s *SettlementService, l *ledger.LedgerService, storage repository.Storage) {
				fund(t, l, "buyer-1", models.CurrencyAulaCoins, "100")

				payment, err := s.Settle(t.Context(), req)
				require.NoError(t, err)

				_, err = s.Refund(t.Context(), payment.ID)
				require.NoError(t, err)

				_, err = s.Refund(t.Context(), payment.ID)

				require.ErrorIs(t, err, apperrors.ErrPaymentNotRefundable, "a payment refunds at most once")
			})
		})
	})
}

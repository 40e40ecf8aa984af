package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/aulaplatform/aulaledger/internal/cache"
	"github.com/aulaplatform/aulaledger/internal/handlers/middleware"
	"github.com/aulaplatform/aulaledger/internal/logger"
	"github.com/aulaplatform/aulaledger/internal/models"
	"github.com/aulaplatform/aulaledger/internal/repository"
	"github.com/aulaplatform/aulaledger/internal/service/ledger"
	"github.com/aulaplatform/aulaledger/internal/service/settlement"
	"github.com/aulaplatform/aulaledger/internal/service/stats"
)

// chain applies middlewares in the given order: m1(m2(...(h)))
func chain(h http.Handler, mds ...func(next http.Handler) http.Handler) http.Handler {
	for i := len(mds) - 1; i >= 0; i-- {
		h = mds[i](h)
	}
	return h
}

func NewRouter(
	ledgerService ledgerService,
	settlementService settlementService,
	statsService statsService,
	seeder walletSeeder,
	walletCache *cache.WalletCache,
	logger logger.Logger,
) http.Handler {
	api := http.NewServeMux()

	api.Handle("GET /students/{studentID}/wallet", handleGetWallet(ledgerService, walletCache, logger))
	api.Handle("POST /students/{studentID}/wallet/seed", handleSeedWallet(seeder, walletCache, logger))
	api.Handle("POST /students/{studentID}/earn", handleEarn(ledgerService, walletCache, logger))
	api.Handle("POST /students/{studentID}/spend", handleSpend(ledgerService, walletCache, logger))
	api.Handle("POST /students/{studentID}/convert", handleConvert(ledgerService, walletCache, logger))
	api.Handle("GET /students/{studentID}/transactions", handleListTransactions(ledgerService, logger))
	api.Handle("GET /students/{studentID}/statistics", handleStatistics(statsService, logger))

	api.Handle("POST /payments/settle", handleSettle(settlementService, walletCache, logger))
	api.Handle("POST /payments/{paymentID}/refund", handleRefund(settlementService, walletCache, logger))

	root := http.NewServeMux()
	root.Handle("/api/", http.StripPrefix("/api", api))

	handler := chain(root,
		middleware.LoggerMiddleware(logger),
	)

	return handler
}

type ledgerService interface {
	// Get wallet for student, create lazily with zero balances if needed
	GetOrCreateWallet(ctx context.Context, studentID string) (models.Wallet, error)

	// Credit wallet. Must return apperrors.ErrInvalidAmount on non-positive amounts
	Earn(ctx context.Context, e ledger.Entry) (models.Wallet, error)

	// Debit wallet. Must return apperrors.ErrInsufficientBalance when amount exceeds balance
	Spend(ctx context.Context, e ledger.Entry) (models.Wallet, error)

	// Convert between the two currencies at the active rate
	Convert(ctx context.Context, studentID string, from models.Currency, amount decimal.Decimal) (models.Wallet, error)

	// List ledger entries most-recent-first
	Transactions(ctx context.Context, studentID string, filter repository.TransactionFilter) ([]models.Transaction, error)
}

type settlementService interface {
	// Settle buyer/seller trade all-or-nothing
	Settle(ctx context.Context, req settlement.SettleRequest) (models.MarketplacePayment, error)

	// Refund a completed payment with compensating entries
	// Must return apperrors.ErrPaymentNotRefundable unless payment completed
	Refund(ctx context.Context, paymentID uuid.UUID) (models.MarketplacePayment, error)
}

type statsService interface {
	ComputeStatistics(ctx context.Context, studentID string) (stats.Statistics, error)
}

type walletSeeder interface {
	SeedWallet(ctx context.Context, studentID string) (models.Wallet, error)
}

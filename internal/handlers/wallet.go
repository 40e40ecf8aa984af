package handlers

import (
	"net/http"
	"time"

	"github.com/aulaplatform/aulaledger/internal/cache"
	"github.com/aulaplatform/aulaledger/internal/handlers/render"
	"github.com/aulaplatform/aulaledger/internal/logger"
	"github.com/aulaplatform/aulaledger/internal/models"
)

type walletResponse struct {
	StudentID             string    `json:"student_id"`
	BalanceAulaCoins      int64     `json:"balance_aula_coins"`
	BalanceCriptoAula     float64   `json:"balance_cripto_aula"`
	TotalEarnedAulaCoins  int64     `json:"total_earned_aula_coins"`
	TotalEarnedCriptoAula float64   `json:"total_earned_cripto_aula"`
	TotalSpentAulaCoins   int64     `json:"total_spent_aula_coins"`
	TotalSpentCriptoAula  float64   `json:"total_spent_cripto_aula"`
	WalletLevel           string    `json:"wallet_level"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}

func toWalletResponse(w models.Wallet) walletResponse {
	criptoBalance, _ := w.BalanceCriptoAula.Float64()
	criptoEarned, _ := w.TotalEarnedCriptoAula.Float64()
	criptoSpent, _ := w.TotalSpentCriptoAula.Float64()

	return walletResponse{
		StudentID:             w.StudentID,
		BalanceAulaCoins:      w.BalanceAulaCoins.IntPart(),
		BalanceCriptoAula:     criptoBalance,
		TotalEarnedAulaCoins:  w.TotalEarnedAulaCoins.IntPart(),
		TotalEarnedCriptoAula: criptoEarned,
		TotalSpentAulaCoins:   w.TotalSpentAulaCoins.IntPart(),
		TotalSpentCriptoAula:  criptoSpent,
		WalletLevel:           string(w.Level),
		CreatedAt:             w.CreatedAt,
		UpdatedAt:             w.UpdatedAt,
	}
}

func handleGetWallet(ledgerService ledgerService, walletCache *cache.WalletCache, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		studentID := r.PathValue("studentID")

		if wallet, ok := walletCache.Get(r.Context(), studentID); ok {
			render.JSON(w, toWalletResponse(wallet))
			return
		}

		wallet, err := ledgerService.GetOrCreateWallet(r.Context(), studentID)
		if err != nil {
			l.Error("Failed to get wallet", "student_id", studentID, "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		if err := walletCache.Set(r.Context(), wallet); err != nil {
			l.Warn("Failed to cache wallet", "student_id", studentID, "error", err)
		}

		render.JSON(w, toWalletResponse(wallet))
	})
}

func handleSeedWallet(seeder walletSeeder, walletCache *cache.WalletCache, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		studentID := r.PathValue("studentID")

		wallet, err := seeder.SeedWallet(r.Context(), studentID)
		if err != nil {
			l.Error("Failed to seed wallet", "student_id", studentID, "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		if err := walletCache.Invalidate(r.Context(), studentID); err != nil {
			l.Warn("Failed to invalidate wallet cache", "student_id", studentID, "error", err)
		}

		render.JSON(w, toWalletResponse(wallet))
	})
}

package handlers

import (
	"net/http"

	"github.com/aulaplatform/aulaledger/internal/handlers/render"
	"github.com/aulaplatform/aulaledger/internal/logger"
)

func handleStatistics(statsService statsService, l logger.Logger) http.Handler {
	type response struct {
		TotalTransactions int    `json:"total_transactions"`
		EarnCount         int    `json:"earn_count"`
		SpendCount        int    `json:"spend_count"`
		ConversionCount   int    `json:"conversion_count"`
		PreferredCurrency string `json:"preferred_currency"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		studentID := r.PathValue("studentID")

		stats, err := statsService.ComputeStatistics(r.Context(), studentID)
		if err != nil {
			l.Error("Failed to compute statistics", "student_id", studentID, "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		render.JSON(w, response{
			TotalTransactions: stats.TotalTransactions,
			EarnCount:         stats.EarnCount,
			SpendCount:        stats.SpendCount,
			ConversionCount:   stats.ConversionCount,
			PreferredCurrency: stats.PreferredCurrency,
		})
	})
}

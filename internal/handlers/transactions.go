package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/aulaplatform/aulaledger/internal/handlers/render"
	"github.com/aulaplatform/aulaledger/internal/logger"
	"github.com/aulaplatform/aulaledger/internal/models"
	"github.com/aulaplatform/aulaledger/internal/repository"
)

func handleListTransactions(ledgerService ledgerService, l logger.Logger) http.Handler {
	type transaction struct {
		ID           string          `json:"id"`
		Type         string          `json:"type"`
		Currency     string          `json:"currency"`
		Amount       float64         `json:"amount"`
		BalanceAfter float64         `json:"balance_after"`
		Description  string          `json:"description,omitempty"`
		ReferenceID  string          `json:"reference_id,omitempty"`
		Metadata     json.RawMessage `json:"metadata,omitempty"`
		CreatedAt    time.Time       `json:"created_at"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		studentID := r.PathValue("studentID")

		filter := repository.TransactionFilter{
			Type:     models.TransactionType(r.URL.Query().Get("type")),
			Currency: models.Currency(r.URL.Query().Get("currency")),
		}
		if limit := r.URL.Query().Get("limit"); limit != "" {
			n, err := strconv.Atoi(limit)
			if err != nil || n <= 0 {
				render.ServiceError(w, "Invalid limit", http.StatusBadRequest)
				return
			}
			filter.Limit = n
		}

		tr, err := ledgerService.Transactions(r.Context(), studentID, filter)
		if err != nil {
			l.Error("Failed to list transactions", "student_id", studentID, "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		transactions := make([]transaction, 0, len(tr))
		for _, t := range tr {
			amount, _ := t.Amount.Float64()
			balanceAfter, _ := t.BalanceAfter.Float64()
			transactions = append(transactions, transaction{
				ID:           t.ID.String(),
				Type:         string(t.Type),
				Currency:     string(t.Currency),
				Amount:       amount,
				BalanceAfter: balanceAfter,
				Description:  t.Description,
				ReferenceID:  t.ReferenceID,
				Metadata:     t.Metadata,
				CreatedAt:    t.CreatedAt,
			})
		}
		render.JSON(w, transactions)
	})
}

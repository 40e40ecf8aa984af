package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/aulaplatform/aulaledger/internal/models"
	"github.com/aulaplatform/aulaledger/internal/repository"
)

const defaultListLimit = 50

type TransactionRepo struct {
	DB DBTX
}

const transactionColumns = `id, seq, student_id, transaction_type, currency,
	amount, balance_after, description, reference_id, metadata, created_at`

const appendTransaction = `-- name: AppendTransaction
INSERT INTO transactions (id, student_id, transaction_type, currency, amount, balance_after, description, reference_id, metadata)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING ` + transactionColumns + `
`

func (r *TransactionRepo) Append(ctx context.Context, t models.Transaction) (models.Transaction, error) {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}

	rows, _ := r.DB.Query(ctx, appendTransaction,
		t.ID, t.StudentID, t.Type, t.Currency,
		t.Amount, t.BalanceAfter, t.Description, t.ReferenceID, t.Metadata,
	)
	t, err := pgx.CollectOneRow(rows, rowToTransaction)
	if err != nil {
		return t, fmt.Errorf("db error: %w", err)
	}

	return t, nil
}

// List most-recent-first. Empty filter values match everything; seq
// gives a strict append order regardless of timestamp granularity.
const listTransactions = `-- name: ListTransactions
SELECT ` + transactionColumns + ` FROM transactions
WHERE student_id = $1
	AND ($2 = '' OR transaction_type = $2)
	AND ($3 = '' OR currency = $3)
ORDER BY seq DESC
LIMIT $4
`

func (r *TransactionRepo) List(ctx context.Context, studentID string, filter repository.TransactionFilter) ([]models.Transaction, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	rows, _ := r.DB.Query(ctx, listTransactions, studentID, string(filter.Type), string(filter.Currency), limit)
	transactions, err := pgx.CollectRows(rows, rowToTransaction)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return transactions, nil
}

func rowToTransaction(row pgx.CollectableRow) (models.Transaction, error) {
	var t models.Transaction
	err := row.Scan(
		&t.ID, &t.Seq, &t.StudentID, &t.Type, &t.Currency,
		&t.Amount, &t.BalanceAfter, &t.Description, &t.ReferenceID, &t.Metadata, &t.CreatedAt,
	)
	return t, err
}

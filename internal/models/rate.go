package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ConversionRate is one versioned rate row for an ordered currency pair.
// Rows are never mutated; a new active row supersedes the previous one
// and older rows stay for audit.
type ConversionRate struct {
	ID            uuid.UUID
	FromCurrency  Currency
	ToCurrency    Currency
	Rate          decimal.Decimal
	IsActive      bool
	EffectiveFrom time.Time
}

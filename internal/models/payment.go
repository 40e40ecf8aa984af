package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentStatus tracks a marketplace payment through settlement
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
)

// MarketplacePayment ties a trade to the ledger mutations it triggered.
// Either currency amount may be zero; at least one must be positive.
type MarketplacePayment struct {
	ID        uuid.UUID
	ListingID string
	BuyerID   string
	SellerID  string

	AmountAulaCoins  decimal.Decimal
	AmountCriptoAula decimal.Decimal

	FeeAmount   decimal.Decimal
	FeeCurrency Currency

	Status    PaymentStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Amount returns the payment amount in the given currency
func (p *MarketplacePayment) Amount(c Currency) decimal.Decimal {
	if c == CurrencyAulaCoins {
		return p.AmountAulaCoins
	}
	return p.AmountCriptoAula
}

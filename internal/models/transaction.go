package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType is the closed set of ledger entry kinds
type TransactionType string

const (
	TransactionEarnActivity        TransactionType = "earn_activity"
	TransactionEarnQuiz            TransactionType = "earn_quiz"
	TransactionEarnMarketplaceSale TransactionType = "earn_marketplace_sale"
	TransactionEarnBonus           TransactionType = "earn_bonus"
	TransactionEarnStreak          TransactionType = "earn_streak"
	TransactionEarnReferral        TransactionType = "earn_referral"
	TransactionSpendListingFee     TransactionType = "spend_listing_fee"
	TransactionSpendPurchase       TransactionType = "spend_purchase"
	TransactionSpendPremium        TransactionType = "spend_premium"
	TransactionSpendReward         TransactionType = "spend_reward"
	TransactionConversionToCripto  TransactionType = "conversion_to_cripto"
	TransactionConversionToAula    TransactionType = "conversion_to_aula"
)

var transactionTypes = map[TransactionType]struct{}{
	TransactionEarnActivity:        {},
	TransactionEarnQuiz:            {},
	TransactionEarnMarketplaceSale: {},
	TransactionEarnBonus:           {},
	TransactionEarnStreak:          {},
	TransactionEarnReferral:        {},
	TransactionSpendListingFee:     {},
	TransactionSpendPurchase:       {},
	TransactionSpendPremium:        {},
	TransactionSpendReward:         {},
	TransactionConversionToCripto:  {},
	TransactionConversionToAula:    {},
}

func (t TransactionType) Valid() bool {
	_, ok := transactionTypes[t]
	return ok
}

func (t TransactionType) IsEarn() bool {
	return strings.HasPrefix(string(t), "earn_")
}

func (t TransactionType) IsSpend() bool {
	return strings.HasPrefix(string(t), "spend_")
}

func (t TransactionType) IsConversion() bool {
	return strings.HasPrefix(string(t), "conversion_")
}

// ConversionTypeTo returns the conversion transaction type named for
// the credited currency
func ConversionTypeTo(c Currency) TransactionType {
	if c == CurrencyCriptoAula {
		return TransactionConversionToCripto
	}
	return TransactionConversionToAula
}

// Transaction is one immutable ledger entry. Amount is signed: positive
// for credits, negative for debits. BalanceAfter snapshots the wallet
// balance in the entry currency right after the commit.
type Transaction struct {
	ID           uuid.UUID
	Seq          int64
	StudentID    string
	Type         TransactionType
	Currency     Currency
	Amount       decimal.Decimal
	BalanceAfter decimal.Decimal
	Description  string
	ReferenceID  string
	Metadata     []byte
	CreatedAt    time.Time
}

// ConversionMetadata is stored on conversion transactions so a later
// rate change never alters what a past conversion meant.
type ConversionMetadata struct {
	OriginalAmount decimal.Decimal `json:"original_amount"`
	FromCurrency   Currency        `json:"from_currency"`
	Rate           decimal.Decimal `json:"rate"`
}

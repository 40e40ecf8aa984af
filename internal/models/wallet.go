package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// WalletLevel is the tier label derived from lifetime earnings
type WalletLevel string

const (
	WalletLevelBronze   WalletLevel = "bronze"
	WalletLevelSilver   WalletLevel = "silver"
	WalletLevelGold     WalletLevel = "gold"
	WalletLevelPlatinum WalletLevel = "platinum"
)

var (
	scoreSilver   = decimal.NewFromInt(2000)
	scoreGold     = decimal.NewFromInt(5000)
	scorePlatinum = decimal.NewFromInt(10000)
	scoreWeight   = decimal.NewFromInt(10)
)

type Wallet struct {
	StudentID string

	BalanceAulaCoins  decimal.Decimal
	BalanceCriptoAula decimal.Decimal

	TotalEarnedAulaCoins  decimal.Decimal
	TotalEarnedCriptoAula decimal.Decimal
	TotalSpentAulaCoins   decimal.Decimal
	TotalSpentCriptoAula  decimal.Decimal

	Level WalletLevel

	// Version is the optimistic concurrency token. Incremented by the
	// store on every committed update; a conditional update with a stale
	// version fails instead of overwriting a concurrent write.
	Version int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (w *Wallet) Balance(c Currency) decimal.Decimal {
	if c == CurrencyAulaCoins {
		return w.BalanceAulaCoins
	}
	return w.BalanceCriptoAula
}

func (w *Wallet) TotalEarned(c Currency) decimal.Decimal {
	if c == CurrencyAulaCoins {
		return w.TotalEarnedAulaCoins
	}
	return w.TotalEarnedCriptoAula
}

func (w *Wallet) TotalSpent(c Currency) decimal.Decimal {
	if c == CurrencyAulaCoins {
		return w.TotalSpentAulaCoins
	}
	return w.TotalSpentCriptoAula
}

// Credit adds a quantized positive amount to the balance and lifetime
// earnings of the given currency and recomputes the wallet level.
// Returns the amount actually credited.
func (w *Wallet) Credit(c Currency, amount decimal.Decimal) decimal.Decimal {
	amount = c.Quantize(amount)

	switch c {
	case CurrencyAulaCoins:
		w.BalanceAulaCoins = w.BalanceAulaCoins.Add(amount)
		w.TotalEarnedAulaCoins = w.TotalEarnedAulaCoins.Add(amount)
	default:
		w.BalanceCriptoAula = w.BalanceCriptoAula.Add(amount)
		w.TotalEarnedCriptoAula = w.TotalEarnedCriptoAula.Add(amount)
	}

	w.Level = LevelForScore(w.EarnScore())
	return amount
}

// Debit subtracts a quantized positive amount from the balance and adds
// it to lifetime spending. Reports false without touching the wallet
// when the balance is insufficient.
func (w *Wallet) Debit(c Currency, amount decimal.Decimal) (decimal.Decimal, bool) {
	amount = c.Quantize(amount)

	if amount.GreaterThan(w.Balance(c)) {
		return amount, false
	}

	switch c {
	case CurrencyAulaCoins:
		w.BalanceAulaCoins = w.BalanceAulaCoins.Sub(amount)
		w.TotalSpentAulaCoins = w.TotalSpentAulaCoins.Add(amount)
	default:
		w.BalanceCriptoAula = w.BalanceCriptoAula.Sub(amount)
		w.TotalSpentCriptoAula = w.TotalSpentCriptoAula.Add(amount)
	}

	return amount, true
}

// EarnScore is the lifetime earnings score used for wallet levels:
// earned AulaCoins plus earned CriptoAula weighted by 10.
func (w *Wallet) EarnScore() decimal.Decimal {
	return w.TotalEarnedAulaCoins.Add(w.TotalEarnedCriptoAula.Mul(scoreWeight))
}

func LevelForScore(score decimal.Decimal) WalletLevel {
	switch {
	case score.LessThan(scoreSilver):
		return WalletLevelBronze
	case score.LessThan(scoreGold):
		return WalletLevelSilver
	case score.LessThan(scorePlatinum):
		return WalletLevelGold
	default:
		return WalletLevelPlatinum
	}
}

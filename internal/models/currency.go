package models

import (
	"github.com/shopspring/decimal"
)

// Currency is one of the two platform currencies.
// AulaCoins is integral, CriptoAula keeps two decimal places.
type Currency string

const (
	CurrencyAulaCoins  Currency = "aula_coins"
	CurrencyCriptoAula Currency = "cripto_aula"
)

func (c Currency) Valid() bool {
	return c == CurrencyAulaCoins || c == CurrencyCriptoAula
}

// Other returns the counterpart currency
func (c Currency) Other() Currency {
	if c == CurrencyAulaCoins {
		return CurrencyCriptoAula
	}
	return CurrencyAulaCoins
}

// Quantize applies the currency rounding rule: AulaCoins amounts are
// floored to whole coins, CriptoAula amounts are truncated to 2 decimal
// places. Truncation (not rounding) so a credit never exceeds the value
// implied by the rate.
func (c Currency) Quantize(d decimal.Decimal) decimal.Decimal {
	if c == CurrencyAulaCoins {
		return d.Floor()
	}
	return d.Truncate(2)
}

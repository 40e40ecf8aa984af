package apperrors

import (
	"errors"
)

var (
	ErrWalletNotFound  = errors.New("wallet not found")
	ErrInvalidAmount   = errors.New("amount must be positive")
	ErrInvalidCurrency = errors.New("unknown currency")
	ErrInvalidType     = errors.New("unknown transaction type")

	ErrInsufficientBalance = errors.New("insufficient balance")

	// Optimistic wallet update lost the race on every allowed attempt
	ErrConcurrencyConflict = errors.New("wallet was modified concurrently")

	ErrSameCurrency    = errors.New("conversion requires two different currencies")
	ErrRateUnavailable = errors.New("no active conversion rate for pair")

	ErrPaymentNotFound      = errors.New("payment not found")
	ErrPaymentNotRefundable = errors.New("payment is not in a refundable state")
	ErrSettlementFailed     = errors.New("marketplace settlement failed")
)

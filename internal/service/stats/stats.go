package stats

import (
	"context"
	"fmt"

	"github.com/aulaplatform/aulaledger/internal/models"
	"github.com/aulaplatform/aulaledger/internal/repository"
)

// Statistics are derived from a bounded window of the most recent
// transactions, so even a very old wallet stays cheap to summarize
const statisticsWindow = 1000

const (
	PreferredAulaCoins  = "aula_coins"
	PreferredCriptoAula = "cripto_aula"
	PreferredEqual      = "equal"
)

type Statistics struct {
	TotalTransactions int
	EarnCount         int
	SpendCount        int
	ConversionCount   int
	PreferredCurrency string
}

type StatsService struct {
	transactionRepo repository.TransactionRepo
}

func NewService(transactionRepo repository.TransactionRepo) *StatsService {
	return &StatsService{transactionRepo: transactionRepo}
}

// ComputeStatistics folds the recent transaction window into summary
// counters. Purely derived, no side effects; a student with no history
// gets zeroed counters, never an error.
func (s *StatsService) ComputeStatistics(ctx context.Context, studentID string) (Statistics, error) {
	stats := Statistics{PreferredCurrency: PreferredEqual}

	transactions, err := s.transactionRepo.List(ctx, studentID, repository.TransactionFilter{Limit: statisticsWindow})
	if err != nil {
		return stats, fmt.Errorf("can't load transactions for statistics. Err: %w", err)
	}

	var aula, cripto int
	for _, t := range transactions {
		stats.TotalTransactions++

		switch {
		case t.Type.IsEarn():
			stats.EarnCount++
		case t.Type.IsSpend():
			stats.SpendCount++
		case t.Type.IsConversion():
			stats.ConversionCount++
		}

		if t.Currency == models.CurrencyAulaCoins {
			aula++
		} else {
			cripto++
		}
	}

	switch {
	case aula > cripto:
		stats.PreferredCurrency = PreferredAulaCoins
	case cripto > aula:
		stats.PreferredCurrency = PreferredCriptoAula
	}

	return stats, nil
}

package progress

import (
	"context"
	"errors"
	"fmt"

	"github.com/aulaplatform/aulaledger/internal/logger"
	"github.com/aulaplatform/aulaledger/internal/models"
	"github.com/aulaplatform/aulaledger/internal/service/ledger"
)

type progressGetter interface {
	GetStudentProgress(ctx context.Context, studentID string) (StudentProgress, error)
}

type ledgerService interface {
	GetOrCreateWallet(ctx context.Context, studentID string) (models.Wallet, error)
	Earn(ctx context.Context, e ledger.Entry) (models.Wallet, error)
}

// Seeder reconciles a fresh wallet with the coarse AulaCoins figure the
// user-progress collaborator reports. Strictly one-way: the ledger
// never writes the figure back, and a wallet with any earning history
// is left alone.
type Seeder struct {
	client progressGetter
	ledger ledgerService
	logger logger.Logger
}

func NewSeeder(client progressGetter, ledgerService ledgerService, l logger.Logger) *Seeder {
	if l == nil {
		l = logger.NewNoOpLogger()
	}

	return &Seeder{
		client: client,
		ledger: ledgerService,
		logger: l,
	}
}

// SeedWallet is called at session start. It credits the reported
// AulaCoins once as an earn_bonus; subsequent calls are no-ops.
func (s *Seeder) SeedWallet(ctx context.Context, studentID string) (models.Wallet, error) {
	wallet, err := s.ledger.GetOrCreateWallet(ctx, studentID)
	if err != nil {
		return wallet, err
	}

	if !wallet.EarnScore().IsZero() {
		return wallet, nil
	}

	p, err := s.client.GetStudentProgress(ctx, studentID)

	var perr *ProgressError
	switch {
	case err == nil:
	case errors.As(err, &perr) && perr.Code == CodeNoProgress:
		return wallet, nil
	default:
		return wallet, fmt.Errorf("can't get student progress. Err: %w", err)
	}

	if !p.AulaCoins.IsPositive() {
		return wallet, nil
	}

	wallet, err = s.ledger.Earn(ctx, ledger.Entry{
		StudentID:   studentID,
		Currency:    models.CurrencyAulaCoins,
		Amount:      p.AulaCoins,
		Type:        models.TransactionEarnBonus,
		Description: "initial progress reconciliation",
		ReferenceID: "progress-seed:" + studentID,
	})
	if err != nil {
		return wallet, fmt.Errorf("can't seed wallet from progress. Err: %w", err)
	}

	s.logger.Info("Wallet seeded from progress", "student_id", studentID, "aula_coins", p.AulaCoins)
	return wallet, nil
}

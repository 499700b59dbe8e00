package service

import (
	"context"

	"github.com/ayo6706/ledger-engine/internal/observability"
	"github.com/ayo6706/ledger-engine/internal/repository"
	"go.uber.org/zap"
)

// ReconciliationService cross-checks every account balance against the sum
// of its ledger entries. Any divergence means an invariant was broken
// somewhere and gets surfaced loudly; the check never mutates anything.
type ReconciliationService struct {
	store repository.Store
}

func NewReconciliationService(store repository.Store) *ReconciliationService {
	return &ReconciliationService{store: store}
}

// Run returns every account whose balance diverged from its transaction sum.
func (s *ReconciliationService) Run(ctx context.Context) ([]repository.BalanceDrift, error) {
	drifts, err := s.store.FindBalanceDrift(ctx)
	if err != nil {
		return nil, err
	}
	for _, d := range drifts {
		observability.IncrementBalanceDrift(d.Currency)
		zap.L().Error("balance drift detected",
			zap.String("account_id", d.AccountID.String()),
			zap.String("currency", d.Currency),
			zap.Int64("balance_micros", d.BalanceMicros),
			zap.Int64("tx_sum_micros", d.TxSumMicros))
	}
	return drifts, nil
}

package service

import (
	"context"

	"github.com/ayo6706/ledger-engine/internal/domain"
	"github.com/ayo6706/ledger-engine/internal/models"
	"github.com/ayo6706/ledger-engine/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Recorder appends immutable ledger entries. Amounts are signed: money
// leaving an account is negative, money arriving is positive. Nothing here
// ever updates an amount; corrections are new opposite entries.
type Recorder struct {
	store repository.Store
}

func NewRecorder(store repository.Store) *Recorder {
	return &Recorder{store: store}
}

// Record appends a completed ledger entry and returns it.
func (r *Recorder) Record(ctx context.Context, accountID uuid.UUID, txType string, amountMicros int64, currency string, feeMicros int64, metadata map[string]string) (*models.Transaction, error) {
	tx := &models.Transaction{
		ID:           uuid.New(),
		AccountID:    accountID,
		Type:         txType,
		AmountMicros: amountMicros,
		Currency:     currency,
		FeeMicros:    feeMicros,
		Status:       domain.TxStatusCompleted,
		Metadata:     metadata,
	}
	if err := r.store.CreateTransaction(ctx, tx); err != nil {
		return nil, err
	}
	return tx, nil
}

// LinkPair cross-references the two legs of a transfer or exchange so either
// entry can be traced to its counterpart.
func (r *Recorder) LinkPair(ctx context.Context, a, b uuid.UUID) error {
	return r.store.LinkTransactions(ctx, a, b)
}

// Reverse marks the original entry failed and appends a refund entry for the
// exact opposite amount, linked back to the original. Debit entries carry
// their fee inside AmountMicros (FeeMicros is informational), so negating
// the amount restores everything the original removed.
func (r *Recorder) Reverse(ctx context.Context, original *models.Transaction, reason string) (*models.Transaction, error) {
	if err := r.store.UpdateTransactionStatus(ctx, original.ID, domain.TxStatusFailed); err != nil {
		return nil, err
	}
	refund := &models.Transaction{
		ID:           uuid.New(),
		AccountID:    original.AccountID,
		Type:         domain.TxTypeRefund,
		AmountMicros: -original.AmountMicros,
		Currency:     original.Currency,
		Status:       domain.TxStatusCompleted,
		Metadata:     map[string]string{"reason": reason},
	}
	if err := r.store.CreateTransaction(ctx, refund); err != nil {
		return nil, err
	}
	if err := r.store.LinkTransactions(ctx, original.ID, refund.ID); err != nil {
		return nil, err
	}
	zap.L().Info("transaction reversed",
		zap.String("original_tx_id", original.ID.String()),
		zap.String("refund_tx_id", refund.ID.String()),
		zap.String("reason", reason))
	return refund, nil
}

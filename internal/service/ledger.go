package service

import (
	"context"
	"strings"

	"github.com/ayo6706/ledger-engine/internal/domain"
	"github.com/ayo6706/ledger-engine/internal/models"
	"github.com/ayo6706/ledger-engine/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LedgerService owns account lifecycle and is the single choke point for
// balance mutation. Every money movement in the system funnels through
// Credit or Debit here.
type LedgerService struct {
	store repository.Store
}

func NewLedgerService(store repository.Store) *LedgerService {
	return &LedgerService{store: store}
}

// OpenAccount creates a new account for the owner in the given currency,
// starting at zero. The owner's first account becomes their main account.
func (s *LedgerService) OpenAccount(ctx context.Context, ownerID uuid.UUID, currency string) (*models.Account, error) {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		return nil, domain.E(domain.KindValidation, "currency is required")
	}
	if ownerID == uuid.Nil {
		return nil, domain.E(domain.KindValidation, "owner id is required")
	}

	existing, err := s.store.ListAccountsByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	account := &models.Account{
		ID:       uuid.New(),
		OwnerID:  ownerID,
		Currency: currency,
		IsMain:   len(existing) == 0,
		Status:   domain.AccountStatusActive,
	}
	if err := s.store.CreateAccount(ctx, account); err != nil {
		return nil, err
	}
	zap.L().Info("account opened",
		zap.String("account_id", account.ID.String()),
		zap.String("owner_id", ownerID.String()),
		zap.String("currency", currency),
		zap.Bool("is_main", account.IsMain))
	return account, nil
}

func (s *LedgerService) GetAccount(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	return s.store.GetAccount(ctx, id)
}

func (s *LedgerService) ListAccounts(ctx context.Context, ownerID uuid.UUID) ([]models.Account, error) {
	return s.store.ListAccountsByOwner(ctx, ownerID)
}

// Credit adds amountMicros to the account and returns the new balance.
func (s *LedgerService) Credit(ctx context.Context, accountID uuid.UUID, amountMicros int64) (int64, error) {
	if amountMicros <= 0 {
		return 0, domain.E(domain.KindValidation, "credit amount must be positive")
	}
	return s.store.ApplyBalanceDelta(ctx, accountID, amountMicros)
}

// Debit subtracts amountMicros from the account and returns the new balance.
// A debit that would take the balance below zero fails with
// insufficient_funds and leaves the account untouched.
func (s *LedgerService) Debit(ctx context.Context, accountID uuid.UUID, amountMicros int64) (int64, error) {
	if amountMicros <= 0 {
		return 0, domain.E(domain.KindValidation, "debit amount must be positive")
	}
	return s.store.ApplyBalanceDelta(ctx, accountID, -amountMicros)
}

// Statement lists the account's ledger entries newest first.
func (s *LedgerService) Statement(ctx context.Context, accountID uuid.UUID, txType, status string, limit, offset int) ([]models.Transaction, error) {
	if _, err := s.store.GetAccount(ctx, accountID); err != nil {
		return nil, err
	}
	return s.store.ListTransactions(ctx, repository.TransactionFilter{
		AccountID: accountID,
		Type:      txType,
		Status:    status,
		Limit:     limit,
		Offset:    offset,
	})
}

// Freeze blocks all balance mutation on the account until unfrozen.
func (s *LedgerService) Freeze(ctx context.Context, accountID uuid.UUID) error {
	account, err := s.store.GetAccount(ctx, accountID)
	if err != nil {
		return err
	}
	if account.Status == domain.AccountStatusClosed {
		return domain.E(domain.KindValidation, "account %s is closed", accountID)
	}
	if err := s.store.UpdateAccountStatus(ctx, accountID, domain.AccountStatusFrozen); err != nil {
		return err
	}
	zap.L().Warn("account frozen", zap.String("account_id", accountID.String()))
	return nil
}

// Unfreeze restores a frozen account to active.
func (s *LedgerService) Unfreeze(ctx context.Context, accountID uuid.UUID) error {
	account, err := s.store.GetAccount(ctx, accountID)
	if err != nil {
		return err
	}
	if account.Status != domain.AccountStatusFrozen {
		return domain.E(domain.KindValidation, "account %s is not frozen", accountID)
	}
	return s.store.UpdateAccountStatus(ctx, accountID, domain.AccountStatusActive)
}

// Close retires the account. Only empty accounts can close; history stays.
func (s *LedgerService) Close(ctx context.Context, accountID uuid.UUID) error {
	account, err := s.store.GetAccount(ctx, accountID)
	if err != nil {
		return err
	}
	if account.Status == domain.AccountStatusClosed {
		return nil
	}
	if account.BalanceMicros != 0 {
		return domain.E(domain.KindValidation, "account %s still holds %d micros", accountID, account.BalanceMicros)
	}
	if err := s.store.UpdateAccountStatus(ctx, accountID, domain.AccountStatusClosed); err != nil {
		return err
	}
	zap.L().Info("account closed", zap.String("account_id", accountID.String()))
	return nil
}

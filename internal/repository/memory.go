package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ayo6706/ledger-engine/internal/domain"
	"github.com/ayo6706/ledger-engine/internal/models"
	"github.com/google/uuid"
)

// MemoryStore implements Store entirely in process. It backs the test suite
// and local development. A single mutex covers every mutation, which makes
// all balance updates trivially linearizable.
type MemoryStore struct {
	mu        sync.Mutex
	accounts  map[uuid.UUID]*models.Account
	txns      map[uuid.UUID]*models.Transaction
	txOrder   []uuid.UUID
	transfers map[uuid.UUID]*models.TransferRequest
	fundings  map[uuid.UUID]*models.FundingRequest
	payouts   map[uuid.UUID]*models.PayoutRequest
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts:  make(map[uuid.UUID]*models.Account),
		txns:      make(map[uuid.UUID]*models.Transaction),
		transfers: make(map[uuid.UUID]*models.TransferRequest),
		fundings:  make(map[uuid.UUID]*models.FundingRequest),
		payouts:   make(map[uuid.UUID]*models.PayoutRequest),
	}
}

func (s *MemoryStore) CreateAccount(ctx context.Context, account *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.accounts {
		if existing.OwnerID == account.OwnerID && existing.Currency == account.Currency {
			return domain.E(domain.KindConflict, "account already exists for owner %s in %s", account.OwnerID, account.Currency)
		}
		if account.IsMain && existing.OwnerID == account.OwnerID && existing.IsMain {
			return domain.E(domain.KindConflict, "owner %s already has a main account", account.OwnerID)
		}
	}

	now := time.Now()
	account.CreatedAt = now
	account.UpdatedAt = now
	clone := *account
	s.accounts[account.ID] = &clone
	return nil
}

func (s *MemoryStore) GetAccount(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.accounts[id]
	if !ok {
		return nil, domain.E(domain.KindNotFound, "account %s not found", id)
	}
	clone := *account
	return &clone, nil
}

func (s *MemoryStore) GetAccountByOwnerCurrency(ctx context.Context, ownerID uuid.UUID, currency string) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, account := range s.accounts {
		if account.OwnerID == ownerID && account.Currency == currency {
			clone := *account
			return &clone, nil
		}
	}
	return nil, domain.E(domain.KindNotFound, "no %s account for owner %s", currency, ownerID)
}

func (s *MemoryStore) ListAccountsByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Account
	for _, account := range s.accounts {
		if account.OwnerID == ownerID {
			out = append(out, *account)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) ApplyBalanceDelta(ctx context.Context, accountID uuid.UUID, deltaMicros int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[accountID]
	if !ok {
		return 0, domain.E(domain.KindNotFound, "account %s not found", accountID)
	}
	if account.Status != domain.AccountStatusActive {
		return 0, domain.E(domain.KindValidation, "account %s is %s", accountID, account.Status)
	}
	candidate := account.BalanceMicros + deltaMicros
	if candidate < 0 {
		return 0, domain.E(domain.KindInsufficientFunds, "balance %d short of %d on account %s", account.BalanceMicros, -deltaMicros, accountID)
	}
	account.BalanceMicros = candidate
	account.UpdatedAt = time.Now()
	return candidate, nil
}

func (s *MemoryStore) UpdateAccountStatus(ctx context.Context, accountID uuid.UUID, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.accounts[accountID]
	if !ok {
		return domain.E(domain.KindNotFound, "account %s not found", accountID)
	}
	account.Status = status
	account.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) CreateTransaction(ctx context.Context, tx *models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx.CreatedAt = time.Now()
	clone := *tx
	s.txns[tx.ID] = &clone
	s.txOrder = append(s.txOrder, tx.ID)
	return nil
}

func (s *MemoryStore) GetTransaction(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.txns[id]
	if !ok {
		return nil, domain.E(domain.KindNotFound, "transaction %s not found", id)
	}
	clone := *tx
	return &clone, nil
}

func (s *MemoryStore) LinkTransactions(ctx context.Context, a, b uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	txA, okA := s.txns[a]
	txB, okB := s.txns[b]
	if !okA || !okB {
		return domain.E(domain.KindNotFound, "transaction pair %s/%s not found", a, b)
	}
	aID, bID := a, b
	txA.RelatedTxID = &bID
	txB.RelatedTxID = &aID
	return nil
}

func (s *MemoryStore) UpdateTransactionStatus(ctx context.Context, id uuid.UUID, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.txns[id]
	if !ok {
		return domain.E(domain.KindNotFound, "transaction %s not found", id)
	}
	tx.Status = status
	return nil
}

func (s *MemoryStore) ListTransactions(ctx context.Context, filter TransactionFilter) ([]models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	var matched []models.Transaction
	// Newest first, mirroring the SQL ordering.
	for i := len(s.txOrder) - 1; i >= 0; i-- {
		tx := s.txns[s.txOrder[i]]
		if tx.AccountID != filter.AccountID {
			continue
		}
		if filter.Type != "" && tx.Type != filter.Type {
			continue
		}
		if filter.Status != "" && tx.Status != filter.Status {
			continue
		}
		matched = append(matched, *tx)
	}
	if filter.Offset >= len(matched) {
		return nil, nil
	}
	matched = matched[filter.Offset:]
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (s *MemoryStore) CreateTransferRequest(ctx context.Context, req *models.TransferRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	req.CreatedAt = now
	req.UpdatedAt = now
	clone := *req
	s.transfers[req.ID] = &clone
	return nil
}

func (s *MemoryStore) GetTransferRequest(ctx context.Context, id uuid.UUID) (*models.TransferRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.transfers[id]
	if !ok {
		return nil, domain.E(domain.KindNotFound, "transfer request %s not found", id)
	}
	clone := *req
	return &clone, nil
}

func (s *MemoryStore) CreateFundingRequest(ctx context.Context, req *models.FundingRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	req.CreatedAt = now
	req.UpdatedAt = now
	clone := *req
	s.fundings[req.ID] = &clone
	return nil
}

func (s *MemoryStore) GetFundingRequest(ctx context.Context, id uuid.UUID) (*models.FundingRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.fundings[id]
	if !ok {
		return nil, domain.E(domain.KindNotFound, "funding request %s not found", id)
	}
	clone := *req
	return &clone, nil
}

func (s *MemoryStore) TransitionFundingStatus(ctx context.Context, id uuid.UUID, from, to string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.fundings[id]
	if !ok {
		return false, domain.E(domain.KindNotFound, "funding request %s not found", id)
	}
	if req.Status != from {
		return false, nil
	}
	req.Status = to
	req.UpdatedAt = time.Now()
	return true, nil
}

func (s *MemoryStore) SetFundingCreditTx(ctx context.Context, id uuid.UUID, txID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.fundings[id]
	if !ok {
		return domain.E(domain.KindNotFound, "funding request %s not found", id)
	}
	req.CreditTxID = &txID
	req.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) CreatePayoutRequest(ctx context.Context, req *models.PayoutRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	req.CreatedAt = now
	req.UpdatedAt = now
	clone := *req
	s.payouts[req.ID] = &clone
	return nil
}

func (s *MemoryStore) GetPayoutRequest(ctx context.Context, id uuid.UUID) (*models.PayoutRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.payouts[id]
	if !ok {
		return nil, domain.E(domain.KindNotFound, "payout request %s not found", id)
	}
	clone := *req
	return &clone, nil
}

func (s *MemoryStore) TransitionPayoutStatus(ctx context.Context, id uuid.UUID, from, to string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.payouts[id]
	if !ok {
		return false, domain.E(domain.KindNotFound, "payout request %s not found", id)
	}
	if req.Status != from {
		return false, nil
	}
	req.Status = to
	req.UpdatedAt = time.Now()
	return true, nil
}

func (s *MemoryStore) SetPayoutGatewayRef(ctx context.Context, id uuid.UUID, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.payouts[id]
	if !ok {
		return domain.E(domain.KindNotFound, "payout request %s not found", id)
	}
	req.GatewayRef = &ref
	req.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) ClaimPendingPayouts(ctx context.Context, limit int) ([]models.PayoutRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var pending []*models.PayoutRequest
	for _, req := range s.payouts {
		if req.Status == domain.RequestStatusPending {
			pending = append(pending, req)
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].CreatedAt.Before(pending[j].CreatedAt) })
	if len(pending) > limit {
		pending = pending[:limit]
	}

	out := make([]models.PayoutRequest, 0, len(pending))
	for _, req := range pending {
		req.Status = domain.RequestStatusProcessing
		req.UpdatedAt = time.Now()
		out = append(out, *req)
	}
	return out, nil
}

func (s *MemoryStore) FindBalanceDrift(ctx context.Context) ([]BalanceDrift, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sums := make(map[uuid.UUID]int64)
	for _, tx := range s.txns {
		sums[tx.AccountID] += tx.AmountMicros
	}

	var out []BalanceDrift
	for id, account := range s.accounts {
		if account.BalanceMicros != sums[id] {
			out = append(out, BalanceDrift{
				AccountID:     id,
				Currency:      account.Currency,
				BalanceMicros: account.BalanceMicros,
				TxSumMicros:   sums[id],
			})
		}
	}
	return out, nil
}

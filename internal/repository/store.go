package repository

import (
	"context"

	"github.com/ayo6706/ledger-engine/internal/models"
	"github.com/google/uuid"
)

// TransactionFilter is a typed filter for transaction listings.
type TransactionFilter struct {
	AccountID uuid.UUID
	Type      string // optional
	Status    string // optional
	Limit     int
	Offset    int
}

// BalanceDrift reports an account whose transaction sum diverged from its
// balance. Detected by reconciliation, never expected in practice.
type BalanceDrift struct {
	AccountID     uuid.UUID
	Currency      string
	BalanceMicros int64
	TxSumMicros   int64
}

// Store is the explicit persistence contract injected into every service.
// No component reaches a shared global client.
//
// ApplyBalanceDelta is the only balance write path and must be atomic with
// respect to concurrent mutations on the same account: the implementation
// either performs a conditional single-statement update (Postgres) or holds
// a lock across the read-modify-write (memory). The Transition* methods are
// compare-and-set status moves; they return false without error when the
// current status does not match, which is how callers detect duplicate
// settlement events.
type Store interface {
	// Accounts
	CreateAccount(ctx context.Context, account *models.Account) error
	GetAccount(ctx context.Context, id uuid.UUID) (*models.Account, error)
	GetAccountByOwnerCurrency(ctx context.Context, ownerID uuid.UUID, currency string) (*models.Account, error)
	ListAccountsByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Account, error)
	ApplyBalanceDelta(ctx context.Context, accountID uuid.UUID, deltaMicros int64) (newBalanceMicros int64, err error)
	UpdateAccountStatus(ctx context.Context, accountID uuid.UUID, status string) error

	// Transactions (append-only)
	CreateTransaction(ctx context.Context, tx *models.Transaction) error
	GetTransaction(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
	LinkTransactions(ctx context.Context, a, b uuid.UUID) error
	UpdateTransactionStatus(ctx context.Context, id uuid.UUID, status string) error
	ListTransactions(ctx context.Context, filter TransactionFilter) ([]models.Transaction, error)

	// Transfer requests
	CreateTransferRequest(ctx context.Context, req *models.TransferRequest) error
	GetTransferRequest(ctx context.Context, id uuid.UUID) (*models.TransferRequest, error)

	// Funding requests
	CreateFundingRequest(ctx context.Context, req *models.FundingRequest) error
	GetFundingRequest(ctx context.Context, id uuid.UUID) (*models.FundingRequest, error)
	TransitionFundingStatus(ctx context.Context, id uuid.UUID, from, to string) (bool, error)
	SetFundingCreditTx(ctx context.Context, id uuid.UUID, txID uuid.UUID) error

	// Payout requests
	CreatePayoutRequest(ctx context.Context, req *models.PayoutRequest) error
	GetPayoutRequest(ctx context.Context, id uuid.UUID) (*models.PayoutRequest, error)
	TransitionPayoutStatus(ctx context.Context, id uuid.UUID, from, to string) (bool, error)
	SetPayoutGatewayRef(ctx context.Context, id uuid.UUID, ref string) error
	ClaimPendingPayouts(ctx context.Context, limit int) ([]models.PayoutRequest, error)

	// Reconciliation
	FindBalanceDrift(ctx context.Context) ([]BalanceDrift, error)
}

package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ayo6706/ledger-engine/internal/domain"
	"github.com/ayo6706/ledger-engine/internal/models"
	"github.com/ayo6706/ledger-engine/internal/repository"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitiateFundingMovesNoMoney(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := uuid.New()

	account := env.fundedAccount(t, owner, "USD", 0)

	funding, err := env.funding.Initiate(ctx, owner, account.ID, domain.MethodWire, 100*micros)
	require.NoError(t, err)
	assert.Equal(t, domain.RequestStatusPending, funding.Status)
	assert.True(t, strings.HasPrefix(funding.Reference, "WIRE-"))

	assert.Equal(t, int64(0), env.balance(t, account.ID))
}

func TestFundingReferencePerMethod(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := uuid.New()
	account := env.fundedAccount(t, owner, "USD", 0)

	crypto, err := env.funding.Initiate(ctx, owner, account.ID, domain.MethodCrypto, 10*micros)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(crypto.Reference, "0x"))

	momo, err := env.funding.Initiate(ctx, owner, account.ID, domain.MethodMobileMoney, 10*micros)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(momo.Reference, "*737*"))

	_, err = env.funding.Initiate(ctx, owner, account.ID, "carrier-pigeon", 10*micros)
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))
}

func TestCompleteFundingCreditsSettledAmount(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := uuid.New()
	account := env.fundedAccount(t, owner, "USD", 0)

	funding, err := env.funding.Initiate(ctx, owner, account.ID, domain.MethodWire, 100*micros)
	require.NoError(t, err)

	// The rail settled less than requested; the ledger credits what arrived.
	settled, err := env.funding.Complete(ctx, funding.ID, 95*micros)
	require.NoError(t, err)
	assert.Equal(t, domain.RequestStatusCompleted, settled.Status)
	require.NotNil(t, settled.CreditTxID)

	assert.Equal(t, int64(95*micros), env.balance(t, account.ID))
	assert.Equal(t, env.balance(t, account.ID), env.txSum(t, account.ID))
}

func TestCompleteFundingIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := uuid.New()
	account := env.fundedAccount(t, owner, "USD", 0)

	funding, err := env.funding.Initiate(ctx, owner, account.ID, domain.MethodWire, 100*micros)
	require.NoError(t, err)

	_, err = env.funding.Complete(ctx, funding.ID, 100*micros)
	require.NoError(t, err)

	// Redelivered settlement event is a no-op success.
	again, err := env.funding.Complete(ctx, funding.ID, 100*micros)
	require.NoError(t, err)
	assert.Equal(t, domain.RequestStatusCompleted, again.Status)

	assert.Equal(t, int64(100*micros), env.balance(t, account.ID), "credited exactly once")
}

// flakyTxStore fails a configurable number of transaction inserts so the
// ledger-entry failure path can be driven deterministically.
type flakyTxStore struct {
	*repository.MemoryStore
	failures int
}

func (s *flakyTxStore) CreateTransaction(ctx context.Context, tx *models.Transaction) error {
	if s.failures > 0 {
		s.failures--
		return errors.New("storage unavailable")
	}
	return s.MemoryStore.CreateTransaction(ctx, tx)
}

func TestCompleteFundingCompensatesFailedRecord(t *testing.T) {
	ctx := context.Background()
	store := &flakyTxStore{MemoryStore: repository.NewMemoryStore()}
	ledger := NewLedgerService(store)
	funding := NewFundingService(store, ledger, NewRecorder(store))

	owner := uuid.New()
	account, err := ledger.OpenAccount(ctx, owner, "USD")
	require.NoError(t, err)

	request, err := funding.Initiate(ctx, owner, account.ID, domain.MethodWire, 100*micros)
	require.NoError(t, err)

	store.failures = 1
	_, err = funding.Complete(ctx, request.ID, 100*micros)
	require.Error(t, err)

	// The credit was undone and the request went back to pending.
	got, err := funding.Get(ctx, request.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RequestStatusPending, got.Status)
	after, err := ledger.GetAccount(ctx, account.ID)
	require.NoError(t, err)
	assert.Zero(t, after.BalanceMicros)

	// The retried settlement succeeds and credits exactly once.
	settled, err := funding.Complete(ctx, request.ID, 100*micros)
	require.NoError(t, err)
	assert.Equal(t, domain.RequestStatusCompleted, settled.Status)
	after, err = ledger.GetAccount(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(100*micros), after.BalanceMicros)

	txns, err := store.ListTransactions(ctx, repository.TransactionFilter{AccountID: account.ID, Limit: 10})
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, domain.TxTypeDeposit, txns[0].Type)
}

func TestCancelFunding(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := uuid.New()
	account := env.fundedAccount(t, owner, "USD", 0)

	funding, err := env.funding.Initiate(ctx, owner, account.ID, domain.MethodWire, 100*micros)
	require.NoError(t, err)

	require.NoError(t, env.funding.Cancel(ctx, owner, funding.ID))

	// A settlement arriving after cancellation is rejected, not credited.
	_, err = env.funding.Complete(ctx, funding.ID, 100*micros)
	assert.Equal(t, domain.KindConflict, domain.KindOf(err))
	assert.Equal(t, int64(0), env.balance(t, account.ID))

	// Cancelling twice fails cleanly.
	err = env.funding.Cancel(ctx, owner, funding.ID)
	assert.Equal(t, domain.KindConflict, domain.KindOf(err))
}

func TestFailFunding(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := uuid.New()
	account := env.fundedAccount(t, owner, "USD", 0)

	funding, err := env.funding.Initiate(ctx, owner, account.ID, domain.MethodCrypto, 50*micros)
	require.NoError(t, err)

	require.NoError(t, env.funding.Fail(ctx, funding.ID, "deposit never confirmed"))

	got, err := env.funding.Get(ctx, funding.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RequestStatusFailed, got.Status)
	assert.Equal(t, int64(0), env.balance(t, account.ID))
}

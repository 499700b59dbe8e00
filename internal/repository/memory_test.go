package repository

import (
	"context"
	"testing"
	"time"

	"github.com/ayo6706/ledger-engine/internal/domain"
	"github.com/ayo6706/ledger-engine/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAccount(t *testing.T, store *MemoryStore, ownerID uuid.UUID, currency string, isMain bool) *models.Account {
	t.Helper()
	account := &models.Account{
		ID:       uuid.New(),
		OwnerID:  ownerID,
		Currency: currency,
		IsMain:   isMain,
		Status:   domain.AccountStatusActive,
	}
	require.NoError(t, store.CreateAccount(context.Background(), account))
	return account
}

func TestCreateAccountUniqueness(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	owner := uuid.New()

	newAccount(t, store, owner, "USD", true)

	err := store.CreateAccount(ctx, &models.Account{
		ID: uuid.New(), OwnerID: owner, Currency: "USD", Status: domain.AccountStatusActive,
	})
	assert.Equal(t, domain.KindConflict, domain.KindOf(err), "one account per owner per currency")

	err = store.CreateAccount(ctx, &models.Account{
		ID: uuid.New(), OwnerID: owner, Currency: "EUR", IsMain: true, Status: domain.AccountStatusActive,
	})
	assert.Equal(t, domain.KindConflict, domain.KindOf(err), "one main account per owner")

	// A different owner can hold the same currency.
	err = store.CreateAccount(ctx, &models.Account{
		ID: uuid.New(), OwnerID: uuid.New(), Currency: "USD", IsMain: true, Status: domain.AccountStatusActive,
	})
	assert.NoError(t, err)
}

func TestApplyBalanceDelta(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	account := newAccount(t, store, uuid.New(), "USD", true)

	balance, err := store.ApplyBalanceDelta(ctx, account.ID, 5_000_000)
	require.NoError(t, err)
	assert.Equal(t, int64(5_000_000), balance)

	_, err = store.ApplyBalanceDelta(ctx, account.ID, -6_000_000)
	assert.Equal(t, domain.KindInsufficientFunds, domain.KindOf(err))

	// The failed debit left the balance untouched.
	got, err := store.GetAccount(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(5_000_000), got.BalanceMicros)

	require.NoError(t, store.UpdateAccountStatus(ctx, account.ID, domain.AccountStatusFrozen))
	_, err = store.ApplyBalanceDelta(ctx, account.ID, 1)
	assert.Equal(t, domain.KindValidation, domain.KindOf(err), "frozen accounts refuse all deltas")

	_, err = store.ApplyBalanceDelta(ctx, uuid.New(), 1)
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
}

func TestGetAccountReturnsCopy(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	account := newAccount(t, store, uuid.New(), "USD", true)

	got, err := store.GetAccount(ctx, account.ID)
	require.NoError(t, err)
	got.BalanceMicros = 999

	again, err := store.GetAccount(ctx, account.ID)
	require.NoError(t, err)
	assert.Zero(t, again.BalanceMicros, "callers cannot mutate stored state")
}

func TestTransitionStatusIsCompareAndSet(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	account := newAccount(t, store, uuid.New(), "USD", true)

	funding := &models.FundingRequest{
		ID:        uuid.New(),
		AccountID: account.ID,
		Method:    domain.MethodWire,
		Currency:  "USD",
		Status:    domain.RequestStatusPending,
	}
	require.NoError(t, store.CreateFundingRequest(ctx, funding))

	ok, err := store.TransitionFundingStatus(ctx, funding.ID, domain.RequestStatusPending, domain.RequestStatusProcessing)
	require.NoError(t, err)
	assert.True(t, ok)

	// Second attempt from the same origin state loses the race.
	ok, err = store.TransitionFundingStatus(ctx, funding.ID, domain.RequestStatusPending, domain.RequestStatusProcessing)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := store.GetFundingRequest(ctx, funding.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RequestStatusProcessing, got.Status)

	_, err = store.TransitionFundingStatus(ctx, uuid.New(), domain.RequestStatusPending, domain.RequestStatusFailed)
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
}

func TestClaimPendingPayouts(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	account := newAccount(t, store, uuid.New(), "USD", true)

	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		req := &models.PayoutRequest{
			ID:        uuid.New(),
			AccountID: account.ID,
			Method:    domain.MethodBank,
			Currency:  "USD",
			Status:    domain.RequestStatusPending,
		}
		require.NoError(t, store.CreatePayoutRequest(ctx, req))
		ids = append(ids, req.ID)
		time.Sleep(time.Millisecond)
	}

	claimed, err := store.ClaimPendingPayouts(ctx, 2)
	require.NoError(t, err)
	require.Len(t, claimed, 2)
	assert.Equal(t, ids[0], claimed[0].ID, "oldest first")
	assert.Equal(t, ids[1], claimed[1].ID)
	for _, req := range claimed {
		assert.Equal(t, domain.RequestStatusProcessing, req.Status)
	}

	// The claim flipped the status, so only the third remains.
	claimed, err = store.ClaimPendingPayouts(ctx, 10)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, ids[2], claimed[0].ID)

	claimed, err = store.ClaimPendingPayouts(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, claimed)
}

func TestListTransactionsFilterAndPaging(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	account := newAccount(t, store, uuid.New(), "USD", true)

	types := []string{domain.TxTypeDeposit, domain.TxTypeWithdrawal, domain.TxTypeDeposit}
	for i, txType := range types {
		require.NoError(t, store.CreateTransaction(ctx, &models.Transaction{
			ID:           uuid.New(),
			AccountID:    account.ID,
			Type:         txType,
			AmountMicros: int64(i+1) * 1_000_000,
			Currency:     "USD",
			Status:       domain.TxStatusCompleted,
		}))
	}

	all, err := store.ListTransactions(ctx, TransactionFilter{AccountID: account.ID, Limit: 10})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, int64(3_000_000), all[0].AmountMicros, "newest first")

	deposits, err := store.ListTransactions(ctx, TransactionFilter{AccountID: account.ID, Type: domain.TxTypeDeposit, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, deposits, 2)

	paged, err := store.ListTransactions(ctx, TransactionFilter{AccountID: account.ID, Limit: 1, Offset: 2})
	require.NoError(t, err)
	require.Len(t, paged, 1)
	assert.Equal(t, int64(1_000_000), paged[0].AmountMicros)

	past, err := store.ListTransactions(ctx, TransactionFilter{AccountID: account.ID, Offset: 50, Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, past)
}

func TestLinkTransactions(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	account := newAccount(t, store, uuid.New(), "USD", true)

	a := &models.Transaction{ID: uuid.New(), AccountID: account.ID, Type: domain.TxTypeTransferOut, AmountMicros: -1_000_000, Currency: "USD", Status: domain.TxStatusCompleted}
	b := &models.Transaction{ID: uuid.New(), AccountID: account.ID, Type: domain.TxTypeTransferIn, AmountMicros: 1_000_000, Currency: "USD", Status: domain.TxStatusCompleted}
	require.NoError(t, store.CreateTransaction(ctx, a))
	require.NoError(t, store.CreateTransaction(ctx, b))

	require.NoError(t, store.LinkTransactions(ctx, a.ID, b.ID))

	gotA, err := store.GetTransaction(ctx, a.ID)
	require.NoError(t, err)
	gotB, err := store.GetTransaction(ctx, b.ID)
	require.NoError(t, err)
	require.NotNil(t, gotA.RelatedTxID)
	require.NotNil(t, gotB.RelatedTxID)
	assert.Equal(t, b.ID, *gotA.RelatedTxID)
	assert.Equal(t, a.ID, *gotB.RelatedTxID)

	err = store.LinkTransactions(ctx, a.ID, uuid.New())
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
}

func TestFindBalanceDrift(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	account := newAccount(t, store, uuid.New(), "USD", true)

	_, err := store.ApplyBalanceDelta(ctx, account.ID, 10_000_000)
	require.NoError(t, err)
	require.NoError(t, store.CreateTransaction(ctx, &models.Transaction{
		ID:           uuid.New(),
		AccountID:    account.ID,
		Type:         domain.TxTypeDeposit,
		AmountMicros: 10_000_000,
		Currency:     "USD",
		Status:       domain.TxStatusCompleted,
	}))

	drifts, err := store.FindBalanceDrift(ctx)
	require.NoError(t, err)
	assert.Empty(t, drifts)

	// A balance change with no matching entry is exactly what drift means.
	_, err = store.ApplyBalanceDelta(ctx, account.ID, 250_000)
	require.NoError(t, err)

	drifts, err = store.FindBalanceDrift(ctx)
	require.NoError(t, err)
	require.Len(t, drifts, 1)
	assert.Equal(t, account.ID, drifts[0].AccountID)
	assert.Equal(t, "USD", drifts[0].Currency)
	assert.Equal(t, int64(10_250_000), drifts[0].BalanceMicros)
	assert.Equal(t, int64(10_000_000), drifts[0].TxSumMicros)
}

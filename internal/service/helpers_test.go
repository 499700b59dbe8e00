package service

import (
	"context"
	"testing"

	"github.com/ayo6706/ledger-engine/internal/cache"
	"github.com/ayo6706/ledger-engine/internal/domain"
	"github.com/ayo6706/ledger-engine/internal/fees"
	"github.com/ayo6706/ledger-engine/internal/gateway"
	"github.com/ayo6706/ledger-engine/internal/models"
	"github.com/ayo6706/ledger-engine/internal/repository"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

const micros = int64(1_000_000)

// testEnv wires every service against the in-memory store so the whole money
// movement stack can be exercised without Postgres or Redis.
type testEnv struct {
	store      *repository.MemoryStore
	ledger     *LedgerService
	recorder   *Recorder
	transfer   *TransferService
	quotes     *QuoteService
	quoteStore *cache.MemoryQuoteStore
	funding    *FundingService
	payouts    *PayoutService
	gateway    *gateway.MockGateway
	resolver   *gateway.MockResolver
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := repository.NewMemoryStore()
	calc, err := fees.NewCalculator(fees.DefaultConfig())
	require.NoError(t, err)

	ledger := NewLedgerService(store)
	recorder := NewRecorder(store)
	resolver := gateway.NewMockResolver()
	gw := gateway.NewMockGateway()
	quoteStore := cache.NewMemoryQuoteStore()

	return &testEnv{
		store:      store,
		ledger:     ledger,
		recorder:   recorder,
		transfer:   NewTransferService(store, ledger, recorder, calc, resolver),
		quotes:     NewQuoteService(store, ledger, recorder, NewStaticRateSource(), calc, quoteStore),
		quoteStore: quoteStore,
		funding:    NewFundingService(store, ledger, recorder),
		payouts:    NewPayoutService(store, ledger, recorder, gw),
		gateway:    gw,
		resolver:   resolver,
	}
}

// fundedAccount opens an account and seeds it with balanceMicros through the
// normal deposit path so the ledger stays consistent.
func (e *testEnv) fundedAccount(t *testing.T, ownerID uuid.UUID, currency string, balanceMicros int64) *models.Account {
	t.Helper()
	ctx := context.Background()

	account, err := e.ledger.OpenAccount(ctx, ownerID, currency)
	require.NoError(t, err)

	if balanceMicros > 0 {
		_, err = e.ledger.Credit(ctx, account.ID, balanceMicros)
		require.NoError(t, err)
		_, err = e.recorder.Record(ctx, account.ID, domain.TxTypeDeposit, balanceMicros, currency, 0, nil)
		require.NoError(t, err)
	}

	account, err = e.ledger.GetAccount(ctx, account.ID)
	require.NoError(t, err)
	return account
}

// txSum adds up every ledger entry on the account.
func (e *testEnv) txSum(t *testing.T, accountID uuid.UUID) int64 {
	t.Helper()
	txns, err := e.store.ListTransactions(context.Background(), repository.TransactionFilter{AccountID: accountID, Limit: 1000})
	require.NoError(t, err)
	var sum int64
	for _, tx := range txns {
		sum += tx.AmountMicros
	}
	return sum
}

func (e *testEnv) balance(t *testing.T, accountID uuid.UUID) int64 {
	t.Helper()
	account, err := e.ledger.GetAccount(context.Background(), accountID)
	require.NoError(t, err)
	return account.BalanceMicros
}

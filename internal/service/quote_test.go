package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ayo6706/ledger-engine/internal/domain"
	"github.com/ayo6706/ledger-engine/internal/repository"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateQuoteOneSidedOnly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := uuid.New()

	_, err := env.quotes.CreateQuote(ctx, owner, "USD", "USD", 10*micros, 0)
	assert.Equal(t, domain.KindValidation, domain.KindOf(err), "same asset")

	_, err = env.quotes.CreateQuote(ctx, owner, "USD", "EUR", 10*micros, 10*micros)
	assert.Equal(t, domain.KindValidation, domain.KindOf(err), "both sides fixed")

	_, err = env.quotes.CreateQuote(ctx, owner, "USD", "XYZ", 10*micros, 0)
	assert.True(t, errors.Is(err, domain.ErrProviderUnavailable), "unknown asset")

	quote, err := env.quotes.CreateQuote(ctx, owner, "USD", "EUR", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultQuoteBaseMicros, quote.FromAmountMicros, "indicative quote uses the canonical base")
	assert.Positive(t, quote.ToAmountMicros)
	assert.Positive(t, quote.FeeMicros)
}

func TestExecuteQuoteSettlesLinkedPair(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := uuid.New()

	from := env.fundedAccount(t, owner, "USD", 200*micros)

	quote, err := env.quotes.CreateQuote(ctx, owner, "USD", "EUR", 100*micros, 0)
	require.NoError(t, err)

	transfer, err := env.quotes.ExecuteQuote(ctx, owner, quote.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.MethodExchange, transfer.Method)

	// Source lost quoted amount plus fee, target gained the quoted amount.
	assert.Equal(t, 200*micros-quote.FromAmountMicros-quote.FeeMicros, env.balance(t, from.ID))
	eur, err := env.store.GetAccountByOwnerCurrency(ctx, owner, "EUR")
	require.NoError(t, err)
	assert.Equal(t, quote.ToAmountMicros, eur.BalanceMicros)

	// Both legs are linked exchange entries.
	debitTx, err := env.store.GetTransaction(ctx, *transfer.DebitTxID)
	require.NoError(t, err)
	creditTx, err := env.store.GetTransaction(ctx, *transfer.CreditTxID)
	require.NoError(t, err)
	assert.Equal(t, domain.TxTypeExchangeOut, debitTx.Type)
	assert.Equal(t, domain.TxTypeExchangeIn, creditTx.Type)
	assert.Equal(t, creditTx.ID, *debitTx.RelatedTxID)

	assert.Equal(t, env.balance(t, from.ID), env.txSum(t, from.ID))
	assert.Equal(t, env.balance(t, eur.ID), env.txSum(t, eur.ID))
}

func TestExecuteExpiredQuote(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := uuid.New()

	from := env.fundedAccount(t, owner, "USD", 200*micros)

	quote, err := env.quotes.CreateQuote(ctx, owner, "USD", "EUR", 100*micros, 0)
	require.NoError(t, err)

	// Advance both the service clock and the cache clock past expiry.
	later := func() time.Time { return quote.ExpiresAt.Add(time.Second) }
	env.quotes.SetClock(later)
	env.quoteStore.SetClock(later)

	_, err = env.quotes.ExecuteQuote(ctx, owner, quote.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrQuoteExpired))

	// No money moved and no ledger entries beyond the seed deposit exist.
	assert.Equal(t, int64(200*micros), env.balance(t, from.ID))
	txns, err := env.store.ListTransactions(ctx, repository.TransactionFilter{AccountID: from.ID, Limit: 100})
	require.NoError(t, err)
	assert.Len(t, txns, 1)
}

func TestQuoteInvisibleToOtherOwners(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := uuid.New()

	quote, err := env.quotes.CreateQuote(ctx, owner, "USD", "EUR", 100*micros, 0)
	require.NoError(t, err)

	_, err = env.quotes.GetQuote(ctx, uuid.New(), quote.ID)
	assert.True(t, errors.Is(err, domain.ErrQuoteExpired), "foreign quotes look expired, not forbidden")
}

func TestExecuteQuoteInsufficientFunds(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := uuid.New()

	from := env.fundedAccount(t, owner, "USD", 50*micros)

	quote, err := env.quotes.CreateQuote(ctx, owner, "USD", "EUR", 100*micros, 0)
	require.NoError(t, err)

	_, err = env.quotes.ExecuteQuote(ctx, owner, quote.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInsufficientFunds))
	assert.Equal(t, int64(50*micros), env.balance(t, from.ID))
}

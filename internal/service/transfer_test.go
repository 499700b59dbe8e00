package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/ayo6706/ledger-engine/internal/domain"
	"github.com/ayo6706/ledger-engine/internal/repository"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestP2PTransferSettlesLinkedPair(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := uuid.New()

	from := env.fundedAccount(t, owner, "USD", 100*micros)
	dest := env.fundedAccount(t, uuid.New(), "USD", 0)

	env.resolver.Register("friend@example.com", dest.OwnerID)
	transfer, err := env.transfer.P2PTransfer(ctx, owner, from.ID, "friend@example.com", 40*micros)
	require.NoError(t, err)

	assert.Equal(t, domain.RequestStatusCompleted, transfer.Status)
	assert.Equal(t, int64(60*micros), env.balance(t, from.ID))
	assert.Equal(t, int64(40*micros), env.balance(t, dest.ID))

	// Both legs exist, are linked, and carry opposite signs.
	require.NotNil(t, transfer.DebitTxID)
	require.NotNil(t, transfer.CreditTxID)
	debitTx, err := env.store.GetTransaction(ctx, *transfer.DebitTxID)
	require.NoError(t, err)
	creditTx, err := env.store.GetTransaction(ctx, *transfer.CreditTxID)
	require.NoError(t, err)
	assert.Equal(t, int64(-40*micros), debitTx.AmountMicros)
	assert.Equal(t, int64(40*micros), creditTx.AmountMicros)
	require.NotNil(t, debitTx.RelatedTxID)
	require.NotNil(t, creditTx.RelatedTxID)
	assert.Equal(t, creditTx.ID, *debitTx.RelatedTxID)
	assert.Equal(t, debitTx.ID, *creditTx.RelatedTxID)

	// Balance always equals the sum of ledger entries.
	assert.Equal(t, env.balance(t, from.ID), env.txSum(t, from.ID))
	assert.Equal(t, env.balance(t, dest.ID), env.txSum(t, dest.ID))
}

// Transfers carry no fee, so sending an amount and sending it straight back
// must leave both ledgers exactly where they started. Internal and p2p moves
// share the same debit/credit saga; p2p drives it here because each owner
// holds one account per currency.
func TestTransferRoundTripRestoresBalances(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := uuid.New()
	bob := uuid.New()

	aliceUSD := env.fundedAccount(t, alice, "USD", 100*micros)
	bobUSD := env.fundedAccount(t, bob, "USD", 0)
	env.resolver.Register("bob@example.com", bob)
	env.resolver.Register("alice@example.com", alice)

	_, err := env.transfer.P2PTransfer(ctx, alice, aliceUSD.ID, "bob@example.com", 40*micros)
	require.NoError(t, err)
	_, err = env.transfer.P2PTransfer(ctx, bob, bobUSD.ID, "alice@example.com", 40*micros)
	require.NoError(t, err)

	// Both balances are exactly where they started and match their ledgers.
	assert.Equal(t, int64(100*micros), env.balance(t, aliceUSD.ID))
	assert.Equal(t, int64(0), env.balance(t, bobUSD.ID))
	assert.Equal(t, env.balance(t, aliceUSD.ID), env.txSum(t, aliceUSD.ID))
	assert.Equal(t, env.balance(t, bobUSD.ID), env.txSum(t, bobUSD.ID))

	// Each account carries one leg of each move.
	legs, err := env.ledger.Statement(ctx, bobUSD.ID, "", "", 10, 0)
	require.NoError(t, err)
	require.Len(t, legs, 2)
	assert.Equal(t, domain.TxTypeTransferOut, legs[0].Type, "newest first")
	assert.Equal(t, domain.TxTypeTransferIn, legs[1].Type)
}

func TestTransferCompensatesFailedCredit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := uuid.New()
	recipient := uuid.New()

	from := env.fundedAccount(t, owner, "USD", 100*micros)
	to := env.fundedAccount(t, recipient, "USD", 0)
	env.resolver.Register("frozen@example.com", recipient)
	require.NoError(t, env.ledger.Freeze(ctx, to.ID))

	_, err := env.transfer.P2PTransfer(ctx, owner, from.ID, "frozen@example.com", 40*micros)
	require.Error(t, err)
	assert.Equal(t, domain.KindValidation, domain.KindOf(err), "frozen destination refuses the credit")

	// The debit was compensated: balance restored and matched by the ledger.
	assert.Equal(t, int64(100*micros), env.balance(t, from.ID))
	assert.Equal(t, env.balance(t, from.ID), env.txSum(t, from.ID))
	assert.Equal(t, int64(0), env.balance(t, to.ID))

	// The failed debit leg and its refund survive as a linked pair.
	outs, err := env.store.ListTransactions(ctx, repository.TransactionFilter{AccountID: from.ID, Type: domain.TxTypeTransferOut, Limit: 10})
	require.NoError(t, err)
	require.Len(t, outs, 1)
	assert.Equal(t, domain.TxStatusFailed, outs[0].Status)
	require.NotNil(t, outs[0].RelatedTxID)
	refund, err := env.store.GetTransaction(ctx, *outs[0].RelatedTxID)
	require.NoError(t, err)
	assert.Equal(t, domain.TxTypeRefund, refund.Type)
	assert.Equal(t, int64(40*micros), refund.AmountMicros)
}

func TestInternalTransferValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := uuid.New()

	usd := env.fundedAccount(t, owner, "USD", 50*micros)
	eur := env.fundedAccount(t, owner, "EUR", 0)

	_, err := env.transfer.InternalTransfer(ctx, owner, usd.ID, usd.ID, 10*micros)
	assert.Equal(t, domain.KindValidation, domain.KindOf(err), "same-account transfer")

	_, err = env.transfer.InternalTransfer(ctx, owner, usd.ID, eur.ID, 10*micros)
	assert.Equal(t, domain.KindValidation, domain.KindOf(err), "cross-currency transfer needs a quote")

	_, err = env.transfer.InternalTransfer(ctx, owner, usd.ID, eur.ID, 0)
	assert.Error(t, err)

	// Someone else's account looks like a missing account.
	stranger := env.fundedAccount(t, uuid.New(), "USD", 10*micros)
	_, err = env.transfer.InternalTransfer(ctx, owner, usd.ID, stranger.ID, 10*micros)
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))

	// Nothing moved anywhere.
	assert.Equal(t, int64(50*micros), env.balance(t, usd.ID))
	assert.Equal(t, int64(0), env.balance(t, eur.ID))
}

func TestP2PTransferUnknownRecipientHasNoSideEffects(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := uuid.New()

	from := env.fundedAccount(t, owner, "USD", 100*micros)

	_, err := env.transfer.P2PTransfer(ctx, owner, from.ID, "nobody@example.com", 10*micros)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	assert.Equal(t, int64(100*micros), env.balance(t, from.ID))
	assert.Equal(t, env.balance(t, from.ID), env.txSum(t, from.ID))
}

func TestP2PTransferOpensRecipientAccount(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	sender := uuid.New()
	recipient := uuid.New()

	from := env.fundedAccount(t, sender, "USD", 100*micros)
	env.resolver.Register("+2348012345678", recipient)

	transfer, err := env.transfer.P2PTransfer(ctx, sender, from.ID, "+2348012345678", 25*micros)
	require.NoError(t, err)

	account, err := env.store.GetAccountByOwnerCurrency(ctx, recipient, "USD")
	require.NoError(t, err)
	assert.Equal(t, int64(25*micros), account.BalanceMicros)
	assert.True(t, account.IsMain, "first account for the recipient becomes main")
	assert.Equal(t, account.ID, transfer.ToAccountID)
}

func TestInsufficientFundsLeavesNoTrace(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := uuid.New()

	from := env.fundedAccount(t, owner, "USD", 5*micros)

	_, err := env.transfer.BankTransfer(ctx, owner, from.ID, 100*micros, map[string]string{
		"iban":    "DE89370400440532013000",
		"country": "DE",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInsufficientFunds))

	assert.Equal(t, int64(5*micros), env.balance(t, from.ID))
	assert.Equal(t, env.balance(t, from.ID), env.txSum(t, from.ID))

	// No payout request was created either.
	claimed, err := env.store.ClaimPendingPayouts(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, claimed)
}

func TestBankTransferQueuesPayout(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := uuid.New()

	from := env.fundedAccount(t, owner, "USD", 500*micros)

	payout, err := env.transfer.BankTransfer(ctx, owner, from.ID, 100*micros, map[string]string{
		"iban":    "DE89370400440532013000",
		"country": "DE",
	})
	require.NoError(t, err)

	// Eurozone tier: 1.00 minimum + 0.1% of 100.
	wantFee := 1*micros + 100_000
	assert.Equal(t, int64(wantFee), payout.FeeMicros)
	assert.Equal(t, 1, payout.ETADays)
	assert.Equal(t, domain.RequestStatusPending, payout.Status)

	// Amount plus fee left the account at creation time.
	assert.Equal(t, 500*micros-100*micros-int64(wantFee), env.balance(t, from.ID))
	assert.Equal(t, env.balance(t, from.ID), env.txSum(t, from.ID))
}

func TestMobileMoneyTransferRejectsOutOfRangeBeforeDebit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := uuid.New()

	from := env.fundedAccount(t, owner, "USD", 5000*micros)

	_, err := env.transfer.MobileMoneyTransfer(ctx, owner, from.ID, 2000*micros, map[string]string{
		"phone":    "+254700000000",
		"provider": "mpesa",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrLimitExceeded))
	assert.Equal(t, int64(5000*micros), env.balance(t, from.ID))

	_, err = env.transfer.MobileMoneyTransfer(ctx, owner, from.ID, 100*micros, map[string]string{
		"phone":    "+254700000000",
		"provider": "unknown-wallet",
	})
	assert.True(t, errors.Is(err, domain.ErrProviderUnavailable))
	assert.Equal(t, int64(5000*micros), env.balance(t, from.ID))
}

func TestConcurrentDebitsNeverOverdraw(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := uuid.New()

	from := env.fundedAccount(t, owner, "USD", 100*micros)

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := env.ledger.Debit(ctx, from.ID, 30*micros); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, succeeded, "only three 30-unit debits fit into 100")
	assert.Equal(t, int64(10*micros), env.balance(t, from.ID))
}

func TestFrozenAccountBlocksMutation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := uuid.New()

	from := env.fundedAccount(t, owner, "USD", 100*micros)
	require.NoError(t, env.ledger.Freeze(ctx, from.ID))

	_, err := env.ledger.Debit(ctx, from.ID, 10*micros)
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))
	_, err = env.ledger.Credit(ctx, from.ID, 10*micros)
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))

	require.NoError(t, env.ledger.Unfreeze(ctx, from.ID))
	_, err = env.ledger.Debit(ctx, from.ID, 10*micros)
	assert.NoError(t, err)
}

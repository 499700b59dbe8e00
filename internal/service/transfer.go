package service

import (
	"context"

	"github.com/ayo6706/ledger-engine/internal/domain"
	"github.com/ayo6706/ledger-engine/internal/fees"
	"github.com/ayo6706/ledger-engine/internal/gateway"
	"github.com/ayo6706/ledger-engine/internal/models"
	"github.com/ayo6706/ledger-engine/internal/observability"
	"github.com/ayo6706/ledger-engine/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TransferService orchestrates money movement between accounts and out to
// external rails. Internal and p2p moves settle immediately as a
// debit/credit pair; bank, mobile money and crypto moves debit up front and
// hand a payout request to the worker.
//
// There is no cross-entity database transaction here. Each step is
// individually atomic and every partial failure is compensated explicitly,
// so an interrupted flow converges back to a consistent ledger.
type TransferService struct {
	store    repository.Store
	ledger   *LedgerService
	recorder *Recorder
	fees     *fees.Calculator
	resolver gateway.RecipientResolver
}

func NewTransferService(store repository.Store, ledger *LedgerService, recorder *Recorder, calc *fees.Calculator, resolver gateway.RecipientResolver) *TransferService {
	return &TransferService{
		store:    store,
		ledger:   ledger,
		recorder: recorder,
		fees:     calc,
		resolver: resolver,
	}
}

// InternalTransfer moves money between two accounts of the same owner in the
// same currency. No fee is charged.
func (s *TransferService) InternalTransfer(ctx context.Context, ownerID, fromAccountID, toAccountID uuid.UUID, amountMicros int64) (*models.TransferRequest, error) {
	if fromAccountID == toAccountID {
		return nil, domain.E(domain.KindValidation, "cannot transfer to the same account")
	}
	from, err := s.ownedAccount(ctx, ownerID, fromAccountID)
	if err != nil {
		return nil, err
	}
	to, err := s.ownedAccount(ctx, ownerID, toAccountID)
	if err != nil {
		return nil, err
	}
	if from.Currency != to.Currency {
		return nil, domain.E(domain.KindValidation, "currency mismatch: %s vs %s, use an exchange quote instead", from.Currency, to.Currency)
	}
	return s.settlePair(ctx, ownerID, from, to, domain.MethodInternal, amountMicros)
}

// P2PTransfer moves money to another owner resolved from a user-facing
// identifier. If the recipient has no account in the sender's currency, one
// is opened for them. No fee is charged.
func (s *TransferService) P2PTransfer(ctx context.Context, ownerID, fromAccountID uuid.UUID, recipientIdentifier string, amountMicros int64) (*models.TransferRequest, error) {
	from, err := s.ownedAccount(ctx, ownerID, fromAccountID)
	if err != nil {
		return nil, err
	}
	recipientID, err := s.resolver.Resolve(ctx, recipientIdentifier)
	if err != nil {
		return nil, err
	}
	if recipientID == ownerID {
		return nil, domain.E(domain.KindValidation, "cannot send to yourself")
	}

	to, err := s.store.GetAccountByOwnerCurrency(ctx, recipientID, from.Currency)
	if err != nil {
		if domain.KindOf(err) != domain.KindNotFound {
			return nil, err
		}
		to, err = s.ledger.OpenAccount(ctx, recipientID, from.Currency)
		if err != nil {
			return nil, err
		}
	}
	return s.settlePair(ctx, ownerID, from, to, domain.MethodP2P, amountMicros)
}

// BankTransfer debits amount plus the corridor fee and queues a bank payout.
// destination carries at least "iban" and "country".
func (s *TransferService) BankTransfer(ctx context.Context, ownerID, fromAccountID uuid.UUID, amountMicros int64, destination map[string]string) (*models.PayoutRequest, error) {
	from, err := s.ownedAccount(ctx, ownerID, fromAccountID)
	if err != nil {
		return nil, err
	}
	if destination["iban"] == "" {
		return nil, domain.E(domain.KindValidation, "destination iban is required")
	}
	fee, etaDays, err := s.fees.BankFee(destination["country"], domain.NewMoney(amountMicros, from.Currency))
	if err != nil {
		return nil, err
	}
	return s.queuePayout(ctx, from, domain.MethodBank, amountMicros, fee.Amount, etaDays, destination)
}

// MobileMoneyTransfer debits amount plus the provider fee and queues a
// mobile money payout. Provider limits are checked before any mutation.
// destination carries at least "phone" and "provider".
func (s *TransferService) MobileMoneyTransfer(ctx context.Context, ownerID, fromAccountID uuid.UUID, amountMicros int64, destination map[string]string) (*models.PayoutRequest, error) {
	from, err := s.ownedAccount(ctx, ownerID, fromAccountID)
	if err != nil {
		return nil, err
	}
	if destination["phone"] == "" {
		return nil, domain.E(domain.KindValidation, "destination phone is required")
	}
	fee, err := s.fees.MobileMoneyFee(destination["provider"], domain.NewMoney(amountMicros, from.Currency))
	if err != nil {
		return nil, err
	}
	return s.queuePayout(ctx, from, domain.MethodMobileMoney, amountMicros, fee.Amount, 0, destination)
}

// CryptoTransfer debits amount plus the flat network fee and queues an
// on-chain payout. destination carries at least "address" and "network".
func (s *TransferService) CryptoTransfer(ctx context.Context, ownerID, fromAccountID uuid.UUID, amountMicros int64, destination map[string]string) (*models.PayoutRequest, error) {
	from, err := s.ownedAccount(ctx, ownerID, fromAccountID)
	if err != nil {
		return nil, err
	}
	if destination["address"] == "" {
		return nil, domain.E(domain.KindValidation, "destination address is required")
	}
	fee, err := s.fees.CryptoNetworkFee(destination["network"], from.Currency)
	if err != nil {
		return nil, err
	}
	return s.queuePayout(ctx, from, domain.MethodCrypto, amountMicros, fee.Amount, 0, destination)
}

func (s *TransferService) GetTransfer(ctx context.Context, id uuid.UUID) (*models.TransferRequest, error) {
	return s.store.GetTransferRequest(ctx, id)
}

// settlePair performs the immediate debit/credit saga shared by internal and
// p2p transfers. If the credit fails after the debit succeeded, the debit is
// compensated before the error is returned.
func (s *TransferService) settlePair(ctx context.Context, ownerID uuid.UUID, from, to *models.Account, method string, amountMicros int64) (*models.TransferRequest, error) {
	if amountMicros <= 0 {
		return nil, domain.E(domain.KindValidation, "amount must be positive")
	}

	if _, err := s.ledger.Debit(ctx, from.ID, amountMicros); err != nil {
		return nil, err
	}
	debitTx, err := s.recorder.Record(ctx, from.ID, domain.TxTypeTransferOut, -amountMicros, from.Currency, 0, map[string]string{"method": method})
	if err != nil {
		s.compensateBalance(ctx, from.ID, amountMicros, "record debit failed")
		return nil, err
	}

	if _, err := s.ledger.Credit(ctx, to.ID, amountMicros); err != nil {
		s.compensateDebit(ctx, from.ID, debitTx, "credit leg failed")
		return nil, err
	}
	creditTx, err := s.recorder.Record(ctx, to.ID, domain.TxTypeTransferIn, amountMicros, to.Currency, 0, map[string]string{"method": method})
	if err != nil {
		s.compensateBalance(ctx, to.ID, -amountMicros, "record credit failed")
		s.compensateDebit(ctx, from.ID, debitTx, "record credit failed")
		return nil, err
	}
	if err := s.recorder.LinkPair(ctx, debitTx.ID, creditTx.ID); err != nil {
		zap.L().Error("link transfer pair failed",
			zap.String("debit_tx_id", debitTx.ID.String()),
			zap.String("credit_tx_id", creditTx.ID.String()),
			zap.Error(err))
	}

	req := &models.TransferRequest{
		ID:            uuid.New(),
		OwnerID:       ownerID,
		FromAccountID: from.ID,
		ToAccountID:   to.ID,
		Method:        method,
		AmountMicros:  amountMicros,
		Currency:      from.Currency,
		Status:        domain.RequestStatusCompleted,
		DebitTxID:     &debitTx.ID,
		CreditTxID:    &creditTx.ID,
	}
	if err := s.store.CreateTransferRequest(ctx, req); err != nil {
		return nil, err
	}
	observability.IncrementTransfer(method, "completed")
	zap.L().Info("transfer settled",
		zap.String("transfer_id", req.ID.String()),
		zap.String("method", method),
		zap.Int64("amount_micros", amountMicros),
		zap.String("currency", req.Currency))
	return req, nil
}

// queuePayout debits amount+fee, records the withdrawal entry and creates a
// pending payout request for the worker. A failure after the debit is
// compensated in reverse order.
func (s *TransferService) queuePayout(ctx context.Context, from *models.Account, method string, amountMicros, feeMicros int64, etaDays int, destination map[string]string) (*models.PayoutRequest, error) {
	if amountMicros <= 0 {
		return nil, domain.E(domain.KindValidation, "amount must be positive")
	}
	total := amountMicros + feeMicros

	if _, err := s.ledger.Debit(ctx, from.ID, total); err != nil {
		return nil, err
	}
	debitTx, err := s.recorder.Record(ctx, from.ID, domain.TxTypeWithdrawal, -total, from.Currency, feeMicros, map[string]string{"method": method})
	if err != nil {
		s.compensateBalance(ctx, from.ID, total, "record withdrawal failed")
		return nil, err
	}

	req := &models.PayoutRequest{
		ID:           uuid.New(),
		AccountID:    from.ID,
		Method:       method,
		AmountMicros: amountMicros,
		Currency:     from.Currency,
		FeeMicros:    feeMicros,
		Status:       domain.RequestStatusPending,
		Destination:  destination,
		DebitTxID:    &debitTx.ID,
		ETADays:      etaDays,
	}
	if err := s.store.CreatePayoutRequest(ctx, req); err != nil {
		s.compensateDebit(ctx, from.ID, debitTx, "create payout request failed")
		return nil, err
	}
	observability.IncrementPayoutEvent(method, "queued")
	zap.L().Info("payout queued",
		zap.String("payout_id", req.ID.String()),
		zap.String("method", method),
		zap.Int64("amount_micros", amountMicros),
		zap.Int64("fee_micros", feeMicros),
		zap.String("currency", req.Currency))
	return req, nil
}

// compensateDebit restores the balance a debit entry removed and records the
// reversal. Compensation failures are logged, not returned: the original
// failure is the caller's error, and reconciliation catches the remainder.
func (s *TransferService) compensateDebit(ctx context.Context, accountID uuid.UUID, debitTx *models.Transaction, reason string) {
	if _, err := s.ledger.Credit(ctx, accountID, -debitTx.AmountMicros); err != nil {
		zap.L().Error("compensating credit failed",
			zap.String("account_id", accountID.String()),
			zap.String("debit_tx_id", debitTx.ID.String()),
			zap.Error(err))
		return
	}
	if _, err := s.recorder.Reverse(ctx, debitTx, reason); err != nil {
		zap.L().Error("recording reversal failed",
			zap.String("debit_tx_id", debitTx.ID.String()),
			zap.Error(err))
		return
	}
	observability.IncrementRefund(reason)
}

// compensateBalance undoes a raw balance change that has no surviving ledger
// entry to reverse.
func (s *TransferService) compensateBalance(ctx context.Context, accountID uuid.UUID, deltaMicros int64, reason string) {
	if _, err := s.store.ApplyBalanceDelta(ctx, accountID, deltaMicros); err != nil {
		zap.L().Error("balance compensation failed",
			zap.String("account_id", accountID.String()),
			zap.Int64("delta_micros", deltaMicros),
			zap.String("reason", reason),
			zap.Error(err))
	}
}

func (s *TransferService) ownedAccount(ctx context.Context, ownerID, accountID uuid.UUID) (*models.Account, error) {
	account, err := s.store.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account.OwnerID != ownerID {
		// Hide other owners' account IDs.
		return nil, domain.E(domain.KindNotFound, "account %s not found", accountID)
	}
	return account, nil
}

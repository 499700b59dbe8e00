package service

import (
	"context"
	"time"

	"github.com/ayo6706/ledger-engine/internal/cache"
	"github.com/ayo6706/ledger-engine/internal/domain"
	"github.com/ayo6706/ledger-engine/internal/fees"
	"github.com/ayo6706/ledger-engine/internal/models"
	"github.com/ayo6706/ledger-engine/internal/observability"
	"github.com/ayo6706/ledger-engine/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// QuoteTTL is how long a price commitment holds before it must be requoted.
const QuoteTTL = 30 * time.Second

// QuoteService issues time-boxed exchange quotes and executes them as a
// linked pair of ledger entries. Quotes live only in the quote cache; an
// unexecuted quote leaves no trace.
type QuoteService struct {
	store    repository.Store
	ledger   *LedgerService
	recorder *Recorder
	rates    RateSource
	fees     *fees.Calculator
	quotes   cache.QuoteStore
	now      func() time.Time
}

func NewQuoteService(store repository.Store, ledger *LedgerService, recorder *Recorder, rates RateSource, calc *fees.Calculator, quotes cache.QuoteStore) *QuoteService {
	return &QuoteService{
		store:    store,
		ledger:   ledger,
		recorder: recorder,
		rates:    rates,
		fees:     calc,
		quotes:   quotes,
		now:      time.Now,
	}
}

// SetClock overrides the service clock; tests use it to force expiry.
func (s *QuoteService) SetClock(now func() time.Time) {
	s.now = now
}

// CreateQuote prices an exchange between two assets. Exactly one side may be
// fixed: a non-zero fromAmountMicros quotes how much the caller receives, a
// non-zero toAmountMicros quotes how much the caller must pay. With neither
// side fixed the quote is indicative, priced on a canonical 100-unit base.
// The fee is charged in the source asset on top of the quoted amount.
func (s *QuoteService) CreateQuote(ctx context.Context, ownerID uuid.UUID, fromAsset, toAsset string, fromAmountMicros, toAmountMicros int64) (*models.Quote, error) {
	if fromAsset == "" || toAsset == "" || fromAsset == toAsset {
		return nil, domain.E(domain.KindValidation, "a quote needs two distinct assets")
	}
	if fromAmountMicros < 0 || toAmountMicros < 0 {
		return nil, domain.E(domain.KindValidation, "amounts must not be negative")
	}
	if fromAmountMicros > 0 && toAmountMicros > 0 {
		return nil, domain.E(domain.KindValidation, "fix at most one side of the quote")
	}

	rate, err := s.rates.GetRate(ctx, fromAsset, toAsset)
	if err != nil {
		return nil, err
	}

	switch {
	case fromAmountMicros > 0:
		toAmountMicros = domain.NewMoney(fromAmountMicros, fromAsset).Convert(toAsset, rate).Amount
	case toAmountMicros > 0:
		inverse, err := s.rates.GetRate(ctx, toAsset, fromAsset)
		if err != nil {
			return nil, err
		}
		fromAmountMicros = domain.NewMoney(toAmountMicros, toAsset).Convert(fromAsset, inverse).Amount
	default:
		fromAmountMicros = domain.DefaultQuoteBaseMicros
		toAmountMicros = domain.NewMoney(fromAmountMicros, fromAsset).Convert(toAsset, rate).Amount
	}

	fee := s.fees.ExchangeFee(domain.NewMoney(fromAmountMicros, fromAsset))
	now := s.now()
	quote := &models.Quote{
		ID:               uuid.New(),
		OwnerID:          ownerID,
		FromAsset:        fromAsset,
		ToAsset:          toAsset,
		FromAmountMicros: fromAmountMicros,
		ToAmountMicros:   toAmountMicros,
		Rate:             rate,
		FeeMicros:        fee.Amount,
		ExpiresAt:        now.Add(QuoteTTL),
		CreatedAt:        now,
	}
	if err := s.quotes.Put(ctx, quote, QuoteTTL); err != nil {
		return nil, err
	}
	observability.IncrementQuoteEvent("created")
	return quote, nil
}

// GetQuote fetches a live quote. Expired and unknown quotes are the same
// quote_expired error.
func (s *QuoteService) GetQuote(ctx context.Context, ownerID, quoteID uuid.UUID) (*models.Quote, error) {
	quote, err := s.quotes.Get(ctx, quoteID)
	if err != nil {
		return nil, err
	}
	if quote.OwnerID != ownerID {
		return nil, domain.E(domain.KindQuoteExpired, "quote %s expired or unknown", quoteID)
	}
	return quote, nil
}

// ExecuteQuote settles a live quote against the owner's accounts: the source
// asset account is debited the quoted amount plus fee, the target asset
// account is credited the quoted amount. Expiry is re-checked at execution
// even though the cache enforces its own TTL. If the owner holds no account
// in the target asset one is opened.
func (s *QuoteService) ExecuteQuote(ctx context.Context, ownerID, quoteID uuid.UUID) (*models.TransferRequest, error) {
	quote, err := s.GetQuote(ctx, ownerID, quoteID)
	if err != nil {
		return nil, err
	}
	if quote.Expired(s.now()) {
		return nil, domain.E(domain.KindQuoteExpired, "quote %s expired or unknown", quoteID)
	}

	from, err := s.store.GetAccountByOwnerCurrency(ctx, ownerID, quote.FromAsset)
	if err != nil {
		return nil, err
	}
	to, err := s.store.GetAccountByOwnerCurrency(ctx, ownerID, quote.ToAsset)
	if err != nil {
		if domain.KindOf(err) != domain.KindNotFound {
			return nil, err
		}
		to, err = s.ledger.OpenAccount(ctx, ownerID, quote.ToAsset)
		if err != nil {
			return nil, err
		}
	}

	total := quote.FromAmountMicros + quote.FeeMicros
	if _, err := s.ledger.Debit(ctx, from.ID, total); err != nil {
		return nil, err
	}
	debitTx, err := s.recorder.Record(ctx, from.ID, domain.TxTypeExchangeOut, -total, from.Currency, quote.FeeMicros, map[string]string{
		"quote_id": quote.ID.String(),
		"rate":     quote.Rate.String(),
	})
	if err != nil {
		s.compensateBalance(ctx, from.ID, total)
		return nil, err
	}

	if _, err := s.ledger.Credit(ctx, to.ID, quote.ToAmountMicros); err != nil {
		s.compensateDebit(ctx, from.ID, debitTx)
		return nil, err
	}
	creditTx, err := s.recorder.Record(ctx, to.ID, domain.TxTypeExchangeIn, quote.ToAmountMicros, to.Currency, 0, map[string]string{
		"quote_id": quote.ID.String(),
		"rate":     quote.Rate.String(),
	})
	if err != nil {
		s.compensateBalance(ctx, to.ID, -quote.ToAmountMicros)
		s.compensateDebit(ctx, from.ID, debitTx)
		return nil, err
	}
	if err := s.recorder.LinkPair(ctx, debitTx.ID, creditTx.ID); err != nil {
		zap.L().Error("link exchange pair failed",
			zap.String("debit_tx_id", debitTx.ID.String()),
			zap.String("credit_tx_id", creditTx.ID.String()),
			zap.Error(err))
	}

	req := &models.TransferRequest{
		ID:            uuid.New(),
		OwnerID:       ownerID,
		FromAccountID: from.ID,
		ToAccountID:   to.ID,
		Method:        domain.MethodExchange,
		AmountMicros:  quote.FromAmountMicros,
		Currency:      quote.FromAsset,
		FeeMicros:     quote.FeeMicros,
		Status:        domain.RequestStatusCompleted,
		DebitTxID:     &debitTx.ID,
		CreditTxID:    &creditTx.ID,
	}
	if err := s.store.CreateTransferRequest(ctx, req); err != nil {
		return nil, err
	}
	observability.IncrementQuoteEvent("executed")
	zap.L().Info("quote executed",
		zap.String("quote_id", quote.ID.String()),
		zap.String("transfer_id", req.ID.String()),
		zap.String("pair", quote.FromAsset+"/"+quote.ToAsset),
		zap.Int64("from_amount_micros", quote.FromAmountMicros),
		zap.Int64("to_amount_micros", quote.ToAmountMicros))
	return req, nil
}

func (s *QuoteService) compensateDebit(ctx context.Context, accountID uuid.UUID, debitTx *models.Transaction) {
	if _, err := s.ledger.Credit(ctx, accountID, -debitTx.AmountMicros); err != nil {
		zap.L().Error("compensating credit failed",
			zap.String("account_id", accountID.String()),
			zap.String("debit_tx_id", debitTx.ID.String()),
			zap.Error(err))
		return
	}
	if _, err := s.recorder.Reverse(ctx, debitTx, "exchange credit leg failed"); err != nil {
		zap.L().Error("recording reversal failed",
			zap.String("debit_tx_id", debitTx.ID.String()),
			zap.Error(err))
	}
}

func (s *QuoteService) compensateBalance(ctx context.Context, accountID uuid.UUID, deltaMicros int64) {
	if _, err := s.store.ApplyBalanceDelta(ctx, accountID, deltaMicros); err != nil {
		zap.L().Error("balance compensation failed",
			zap.String("account_id", accountID.String()),
			zap.Int64("delta_micros", deltaMicros),
			zap.Error(err))
	}
}

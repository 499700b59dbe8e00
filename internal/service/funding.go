package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/ayo6706/ledger-engine/internal/domain"
	"github.com/ayo6706/ledger-engine/internal/models"
	"github.com/ayo6706/ledger-engine/internal/observability"
	"github.com/ayo6706/ledger-engine/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// FundingService manages asynchronous deposits. Initiating a funding request
// moves no money; only a settlement event from the external rail credits the
// account, and re-delivered events credit at most once.
type FundingService struct {
	store    repository.Store
	ledger   *LedgerService
	recorder *Recorder
}

func NewFundingService(store repository.Store, ledger *LedgerService, recorder *Recorder) *FundingService {
	return &FundingService{store: store, ledger: ledger, recorder: recorder}
}

// Initiate opens a pending funding request and hands back the rail-specific
// reference the depositor needs: a wire reference, a deposit address or a
// USSD code.
func (s *FundingService) Initiate(ctx context.Context, ownerID, accountID uuid.UUID, method string, amountMicros int64) (*models.FundingRequest, error) {
	if amountMicros <= 0 {
		return nil, domain.E(domain.KindValidation, "amount must be positive")
	}
	account, err := s.store.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account.OwnerID != ownerID {
		return nil, domain.E(domain.KindNotFound, "account %s not found", accountID)
	}
	if account.Status != domain.AccountStatusActive {
		return nil, domain.E(domain.KindValidation, "account %s is %s", accountID, account.Status)
	}

	id := uuid.New()
	reference, err := fundingReference(method, id)
	if err != nil {
		return nil, err
	}

	req := &models.FundingRequest{
		ID:           id,
		AccountID:    accountID,
		Method:       method,
		AmountMicros: amountMicros,
		Currency:     account.Currency,
		Reference:    reference,
		Status:       domain.RequestStatusPending,
	}
	if err := s.store.CreateFundingRequest(ctx, req); err != nil {
		return nil, err
	}
	observability.IncrementFundingEvent(method, "initiated")
	zap.L().Info("funding initiated",
		zap.String("funding_id", req.ID.String()),
		zap.String("method", method),
		zap.Int64("amount_micros", amountMicros),
		zap.String("currency", req.Currency))
	return req, nil
}

func (s *FundingService) Get(ctx context.Context, id uuid.UUID) (*models.FundingRequest, error) {
	return s.store.GetFundingRequest(ctx, id)
}

// GetForOwner fetches a funding request, hiding other owners' requests as
// not found.
func (s *FundingService) GetForOwner(ctx context.Context, ownerID, id uuid.UUID) (*models.FundingRequest, error) {
	req, err := s.store.GetFundingRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	account, err := s.store.GetAccount(ctx, req.AccountID)
	if err != nil {
		return nil, err
	}
	if account.OwnerID != ownerID {
		return nil, domain.E(domain.KindNotFound, "funding request %s not found", id)
	}
	return req, nil
}

// Complete settles a funding request after the external rail confirmed the
// deposit. The settled amount may differ from the requested one; the ledger
// credits what actually arrived. Completion is idempotent: a re-delivered
// settlement for an already completed request is a no-op success, and two
// concurrent deliveries race on a status compare-and-set so exactly one
// credits.
func (s *FundingService) Complete(ctx context.Context, id uuid.UUID, settledMicros int64) (*models.FundingRequest, error) {
	if settledMicros <= 0 {
		return nil, domain.E(domain.KindValidation, "settled amount must be positive")
	}
	req, err := s.store.GetFundingRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	switch req.Status {
	case domain.RequestStatusCompleted:
		return req, nil
	case domain.RequestStatusCancelled, domain.RequestStatusFailed:
		return nil, domain.E(domain.KindConflict, "funding request %s is %s", id, req.Status)
	}

	claimed, err := s.store.TransitionFundingStatus(ctx, id, domain.RequestStatusPending, domain.RequestStatusProcessing)
	if err != nil {
		return nil, err
	}
	if !claimed {
		// Lost the race or the status moved underneath us; re-read to decide.
		req, err = s.store.GetFundingRequest(ctx, id)
		if err != nil {
			return nil, err
		}
		if req.Status == domain.RequestStatusCompleted {
			return req, nil
		}
		return nil, domain.E(domain.KindConflict, "funding request %s settlement already in progress", id)
	}

	if _, err := s.ledger.Credit(ctx, req.AccountID, settledMicros); err != nil {
		// Put the request back so a later retry can settle it.
		if _, cerr := s.store.TransitionFundingStatus(ctx, id, domain.RequestStatusProcessing, domain.RequestStatusPending); cerr != nil {
			zap.L().Error("funding rollback failed", zap.String("funding_id", id.String()), zap.Error(cerr))
		}
		return nil, err
	}
	creditTx, err := s.recorder.Record(ctx, req.AccountID, domain.TxTypeDeposit, settledMicros, req.Currency, 0, map[string]string{
		"funding_id": id.String(),
		"method":     req.Method,
		"reference":  req.Reference,
	})
	if err != nil {
		// Undo the credit and put the request back so a later retry can
		// settle it; a balance change with no ledger entry must not survive.
		if _, derr := s.store.ApplyBalanceDelta(ctx, req.AccountID, -settledMicros); derr != nil {
			zap.L().Error("funding credit compensation failed",
				zap.String("funding_id", id.String()),
				zap.Int64("settled_micros", settledMicros),
				zap.Error(derr))
		}
		if _, cerr := s.store.TransitionFundingStatus(ctx, id, domain.RequestStatusProcessing, domain.RequestStatusPending); cerr != nil {
			zap.L().Error("funding rollback failed", zap.String("funding_id", id.String()), zap.Error(cerr))
		}
		return nil, err
	}
	if err := s.store.SetFundingCreditTx(ctx, id, creditTx.ID); err != nil {
		zap.L().Error("linking deposit to funding failed", zap.String("funding_id", id.String()), zap.Error(err))
	}
	if _, err := s.store.TransitionFundingStatus(ctx, id, domain.RequestStatusProcessing, domain.RequestStatusCompleted); err != nil {
		return nil, err
	}

	observability.IncrementFundingEvent(req.Method, "settled")
	zap.L().Info("funding settled",
		zap.String("funding_id", id.String()),
		zap.Int64("settled_micros", settledMicros),
		zap.String("currency", req.Currency))
	return s.store.GetFundingRequest(ctx, id)
}

// Fail marks a pending funding request failed after the rail reported the
// deposit will never arrive. Nothing was credited, so nothing is reversed.
func (s *FundingService) Fail(ctx context.Context, id uuid.UUID, reason string) error {
	moved, err := s.store.TransitionFundingStatus(ctx, id, domain.RequestStatusPending, domain.RequestStatusFailed)
	if err != nil {
		return err
	}
	if !moved {
		req, err := s.store.GetFundingRequest(ctx, id)
		if err != nil {
			return err
		}
		return domain.E(domain.KindConflict, "funding request %s is %s", id, req.Status)
	}
	zap.L().Warn("funding failed", zap.String("funding_id", id.String()), zap.String("reason", reason))
	return nil
}

// Cancel withdraws a funding request that has not settled yet.
func (s *FundingService) Cancel(ctx context.Context, ownerID, id uuid.UUID) error {
	req, err := s.store.GetFundingRequest(ctx, id)
	if err != nil {
		return err
	}
	account, err := s.store.GetAccount(ctx, req.AccountID)
	if err != nil {
		return err
	}
	if account.OwnerID != ownerID {
		return domain.E(domain.KindNotFound, "funding request %s not found", id)
	}
	moved, err := s.store.TransitionFundingStatus(ctx, id, domain.RequestStatusPending, domain.RequestStatusCancelled)
	if err != nil {
		return err
	}
	if !moved {
		return domain.E(domain.KindConflict, "funding request %s is no longer pending", id)
	}
	return nil
}

func fundingReference(method string, id uuid.UUID) (string, error) {
	short := strings.ToUpper(strings.ReplaceAll(id.String(), "-", ""))[:12]
	switch method {
	case domain.MethodWire:
		return fmt.Sprintf("WIRE-%s", short), nil
	case domain.MethodCrypto:
		// Deterministic placeholder address; a custody integration replaces this.
		return fmt.Sprintf("0x%s", strings.ToLower(short)), nil
	case domain.MethodMobileMoney:
		return fmt.Sprintf("*737*%s#", short[:6]), nil
	default:
		return "", domain.E(domain.KindValidation, "unsupported funding method %q", method)
	}
}

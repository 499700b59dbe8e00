package service

import (
	"context"

	"github.com/ayo6706/ledger-engine/internal/domain"
	"github.com/ayo6706/ledger-engine/internal/gateway"
	"github.com/ayo6706/ledger-engine/internal/models"
	"github.com/ayo6706/ledger-engine/internal/observability"
	"github.com/ayo6706/ledger-engine/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PayoutService drives queued payout requests to settlement. The debit of
// amount+fee already happened when the request was created; this service
// either pushes the money out through the gateway or puts it back.
type PayoutService struct {
	store    repository.Store
	ledger   *LedgerService
	recorder *Recorder
	gateway  gateway.Gateway
}

func NewPayoutService(store repository.Store, ledger *LedgerService, recorder *Recorder, gw gateway.Gateway) *PayoutService {
	return &PayoutService{store: store, ledger: ledger, recorder: recorder, gateway: gw}
}

func (s *PayoutService) Get(ctx context.Context, id uuid.UUID) (*models.PayoutRequest, error) {
	return s.store.GetPayoutRequest(ctx, id)
}

// GetForOwner fetches a payout request, hiding other owners' requests as
// not found.
func (s *PayoutService) GetForOwner(ctx context.Context, ownerID, id uuid.UUID) (*models.PayoutRequest, error) {
	req, err := s.store.GetPayoutRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	account, err := s.store.GetAccount(ctx, req.AccountID)
	if err != nil {
		return nil, err
	}
	if account.OwnerID != ownerID {
		return nil, domain.E(domain.KindNotFound, "payout request %s not found", id)
	}
	return req, nil
}

// Cancel withdraws a payout the worker has not picked up yet and refunds the
// full amount plus fee. Once a payout is processing it can no longer be
// cancelled; the rail decides its fate.
func (s *PayoutService) Cancel(ctx context.Context, ownerID, id uuid.UUID) (*models.PayoutRequest, error) {
	req, err := s.store.GetPayoutRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	account, err := s.store.GetAccount(ctx, req.AccountID)
	if err != nil {
		return nil, err
	}
	if account.OwnerID != ownerID {
		return nil, domain.E(domain.KindNotFound, "payout request %s not found", id)
	}

	moved, err := s.store.TransitionPayoutStatus(ctx, id, domain.RequestStatusPending, domain.RequestStatusCancelled)
	if err != nil {
		return nil, err
	}
	if !moved {
		return nil, domain.E(domain.KindConflict, "payout request %s is no longer pending", id)
	}

	s.refund(ctx, req, "payout cancelled")
	observability.IncrementPayoutEvent(req.Method, "cancelled")
	zap.L().Info("payout cancelled", zap.String("payout_id", id.String()))
	return s.store.GetPayoutRequest(ctx, id)
}

// Approve settles a processing payout after the rail confirmed delivery out
// of band. Rails that answer synchronously never get here; the worker
// finalizes those itself.
func (s *PayoutService) Approve(ctx context.Context, id uuid.UUID, gatewayRef string) (*models.PayoutRequest, error) {
	req, err := s.store.GetPayoutRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	moved, err := s.store.TransitionPayoutStatus(ctx, id, domain.RequestStatusProcessing, domain.RequestStatusCompleted)
	if err != nil {
		return nil, err
	}
	if !moved {
		return nil, domain.E(domain.KindConflict, "payout request %s is not processing", id)
	}
	if gatewayRef != "" {
		if err := s.store.SetPayoutGatewayRef(ctx, id, gatewayRef); err != nil {
			zap.L().Error("saving gateway ref failed", zap.String("payout_id", id.String()), zap.Error(err))
		}
	}
	observability.IncrementPayoutEvent(req.Method, "settled")
	zap.L().Info("payout approved", zap.String("payout_id", id.String()), zap.String("gateway_ref", gatewayRef))
	return s.store.GetPayoutRequest(ctx, id)
}

// Reject fails a processing payout after the rail reported it undeliverable
// and refunds the full amount plus fee.
func (s *PayoutService) Reject(ctx context.Context, id uuid.UUID, reason string) (*models.PayoutRequest, error) {
	req, err := s.store.GetPayoutRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	moved, err := s.store.TransitionPayoutStatus(ctx, id, domain.RequestStatusProcessing, domain.RequestStatusFailed)
	if err != nil {
		return nil, err
	}
	if !moved {
		return nil, domain.E(domain.KindConflict, "payout request %s is not processing", id)
	}
	s.refund(ctx, req, reason)
	observability.IncrementPayoutEvent(req.Method, "failed")
	zap.L().Warn("payout rejected", zap.String("payout_id", id.String()), zap.String("reason", reason))
	return s.store.GetPayoutRequest(ctx, id)
}

// ProcessBatch claims up to limit pending payouts and settles each one
// through the gateway. A rejected payout is refunded in full and marked
// failed. The number of claimed payouts is returned so the worker can tell
// an idle poll from a busy one.
func (s *PayoutService) ProcessBatch(ctx context.Context, limit int) (int, error) {
	claimed, err := s.store.ClaimPendingPayouts(ctx, limit)
	if err != nil {
		return 0, err
	}
	for i := range claimed {
		s.process(ctx, &claimed[i])
	}
	return len(claimed), nil
}

func (s *PayoutService) process(ctx context.Context, req *models.PayoutRequest) {
	ref, err := s.gateway.SendPayout(ctx, gateway.PayoutInstruction{
		PayoutID:     req.ID,
		Method:       req.Method,
		AmountMicros: req.AmountMicros,
		Currency:     req.Currency,
		Destination:  req.Destination,
	})
	if err != nil {
		zap.L().Warn("payout rejected by rail",
			zap.String("payout_id", req.ID.String()),
			zap.String("method", req.Method),
			zap.Error(err))
		moved, terr := s.store.TransitionPayoutStatus(ctx, req.ID, domain.RequestStatusProcessing, domain.RequestStatusFailed)
		if terr != nil {
			zap.L().Error("payout status update failed", zap.String("payout_id", req.ID.String()), zap.Error(terr))
			return
		}
		if !moved {
			// Someone else (an out-of-band Reject) already moved the payout
			// out of PROCESSING and owns the refund.
			zap.L().Warn("payout already transitioned, skipping refund", zap.String("payout_id", req.ID.String()))
			return
		}
		s.refund(ctx, req, "payout rejected by rail")
		observability.IncrementPayoutEvent(req.Method, "failed")
		return
	}

	if err := s.store.SetPayoutGatewayRef(ctx, req.ID, ref); err != nil {
		zap.L().Error("saving gateway ref failed", zap.String("payout_id", req.ID.String()), zap.Error(err))
	}
	moved, err := s.store.TransitionPayoutStatus(ctx, req.ID, domain.RequestStatusProcessing, domain.RequestStatusCompleted)
	if err != nil {
		zap.L().Error("payout status update failed", zap.String("payout_id", req.ID.String()), zap.Error(err))
		return
	}
	if !moved {
		zap.L().Warn("payout already transitioned, not marking settled", zap.String("payout_id", req.ID.String()))
		return
	}
	observability.IncrementPayoutEvent(req.Method, "settled")
	zap.L().Info("payout settled",
		zap.String("payout_id", req.ID.String()),
		zap.String("gateway_ref", ref),
		zap.Int64("amount_micros", req.AmountMicros))
}

// refund puts amount+fee back on the account and reverses the original
// withdrawal entry. Failures are logged for reconciliation to catch; the
// status transition that triggered the refund has already happened.
func (s *PayoutService) refund(ctx context.Context, req *models.PayoutRequest, reason string) {
	total := req.AmountMicros + req.FeeMicros
	if _, err := s.ledger.Credit(ctx, req.AccountID, total); err != nil {
		zap.L().Error("payout refund credit failed",
			zap.String("payout_id", req.ID.String()),
			zap.Int64("total_micros", total),
			zap.Error(err))
		return
	}
	if req.DebitTxID == nil {
		return
	}
	debitTx, err := s.store.GetTransaction(ctx, *req.DebitTxID)
	if err != nil {
		zap.L().Error("payout refund lookup failed", zap.String("payout_id", req.ID.String()), zap.Error(err))
		return
	}
	if _, err := s.recorder.Reverse(ctx, debitTx, reason); err != nil {
		zap.L().Error("payout refund reversal failed", zap.String("payout_id", req.ID.String()), zap.Error(err))
		return
	}
	observability.IncrementRefund(reason)
}

package services

import (
	"context"
	"errors"
	"log"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Abhi-Verma2005/hrm8-backend-sub000/models"
)

// ReconciliationService consumes asynchronous provider events and drives
// withdrawals to their terminal state. It is idempotent under redelivery:
// the status guards in the ledger make a duplicate confirmation a no-op.
type ReconciliationService struct {
	ledger *LedgerService
}

func NewReconciliationService(ledger *LedgerService) *ReconciliationService {
	return &ReconciliationService{ledger: ledger}
}

// HandleProviderEvent processes one webhook delivery. A returned error
// means the provider should redeliver (transient store failure); events
// that cannot ever be applied are logged and swallowed.
func (s *ReconciliationService) HandleProviderEvent(ctx context.Context, event models.ProviderEvent) error {
	withdrawalID, err := primitive.ObjectIDFromHex(event.CorrelationID)
	if err != nil {
		// Not one of ours; the provider account may serve other integrations
		log.Printf("payout webhook: ignoring event with unknown correlation ID %q", event.CorrelationID)
		return nil
	}

	switch event.Type {
	case models.ProviderEventTransferSucceeded:
		return s.handleTransferSucceeded(ctx, withdrawalID, event)
	case models.ProviderEventTransferFailed:
		return s.handleTransferFailed(ctx, withdrawalID, event)
	default:
		log.Printf("payout webhook: ignoring event type %q for withdrawal %s", event.Type, withdrawalID.Hex())
		return nil
	}
}

func (s *ReconciliationService) handleTransferSucceeded(ctx context.Context, withdrawalID primitive.ObjectID, event models.ProviderEvent) error {
	withdrawal, err := s.ledger.GetWithdrawal(ctx, withdrawalID)
	if err != nil {
		if errors.Is(err, ErrWithdrawalNotFound) {
			log.Printf("payout webhook: no withdrawal for correlation ID %s", withdrawalID.Hex())
			return nil
		}
		return err
	}

	// No short-circuit on an already-completed withdrawal: CompleteWithdrawal
	// is a no-op then except for re-running the status-guarded paid marking,
	// which repairs a delivery that died between the two writes

	reference := event.TransferID
	if reference == "" {
		reference = withdrawal.TransferID
	}

	_, err = s.ledger.CompleteWithdrawal(ctx, withdrawalID, reference)
	if errors.Is(err, ErrInvalidStateTransition) {
		// A success event for a withdrawal that never reached an executable
		// state (e.g. rejected). Retrying cannot help; flag for operators.
		log.Printf("payout webhook: transfer.succeeded for withdrawal %s in status %s, leaving untouched",
			withdrawalID.Hex(), withdrawal.Status)
		return s.ledger.RecordTransferFailure(ctx, withdrawalID,
			"provider reported success but withdrawal was in status "+string(withdrawal.Status))
	}
	return err
}

func (s *ReconciliationService) handleTransferFailed(ctx context.Context, withdrawalID primitive.ObjectID, event models.ProviderEvent) error {
	_, err := s.ledger.GetWithdrawal(ctx, withdrawalID)
	if err != nil {
		if errors.Is(err, ErrWithdrawalNotFound) {
			log.Printf("payout webhook: no withdrawal for correlation ID %s", withdrawalID.Hex())
			return nil
		}
		return err
	}

	reason := event.FailureReason
	if reason == "" {
		reason = "transfer failed (no reason supplied by provider)"
	}

	// Annotation only. The status is deliberately not rolled back: a failed
	// notification can race a delayed success for the same transfer, and
	// reverting would invite a duplicate payout. An operator reviews.
	return s.ledger.RecordTransferFailure(ctx, withdrawalID, reason)
}

package services

import (
	"context"
	"errors"
	"net"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Abhi-Verma2005/hrm8-backend-sub000/models"
	"github.com/Abhi-Verma2005/hrm8-backend-sub000/repositories"
)

// transferCallTimeout bounds a single provider call. A timeout is an
// unknown outcome, not a failure.
const transferCallTimeout = 30 * time.Second

// PayoutExecutor turns an approved withdrawal into a provider transfer and
// records the result. It never retries on its own; a retry is an explicit
// operator action.
type PayoutExecutor struct {
	ledger      *LedgerService
	consultants repositories.ConsultantRepository
	client      TransferClient
	locker      Locker
	currency    string
}

func NewPayoutExecutor(ledger *LedgerService, consultants repositories.ConsultantRepository, client TransferClient, locker Locker, currency string) *PayoutExecutor {
	if currency == "" {
		currency = "USD"
	}
	return &PayoutExecutor{
		ledger:      ledger,
		consultants: consultants,
		client:      client,
		locker:      locker,
		currency:    currency,
	}
}

// ExecuteWithdrawal issues the transfer for an approved withdrawal.
//
// On a synchronously settled transfer the withdrawal moves through
// processing straight to completed and the referenced commissions are
// marked paid. On a declined call the withdrawal stays approved with the
// failure recorded, so an operator can re-execute. On a timeout the
// outcome is unknown: the withdrawal is parked in processing until a
// reconciliation event or an operator resolves it.
func (e *PayoutExecutor) ExecuteWithdrawal(ctx context.Context, withdrawalID, adminID primitive.ObjectID) (*models.TransferResult, error) {
	release, err := e.locker.Acquire(ctx, "payout:"+withdrawalID.Hex())
	if err != nil {
		return nil, err
	}
	defer release()

	withdrawal, err := e.ledger.GetWithdrawal(ctx, withdrawalID)
	if err != nil {
		return nil, err
	}
	if withdrawal.Status != models.WithdrawalStatusApproved {
		return nil, ErrNotApproved
	}

	consultant, err := e.consultants.FindByID(ctx, withdrawal.ConsultantID)
	if err != nil {
		return nil, err
	}
	if consultant == nil || consultant.PayoutAccount == nil || !consultant.PayoutAccount.Enabled {
		return nil, ErrPayoutDestinationUnavailable
	}

	amount := withdrawal.Amount
	transferReq := models.TransferRequest{
		Amount:         &amount,
		Currency:       e.currency,
		Destination:    consultant.PayoutAccount.Handle,
		CorrelationID:  withdrawal.ID.Hex(),
		IdempotencyKey: withdrawal.ID.Hex(),
		Description:    "Commission withdrawal " + withdrawal.ID.Hex(),
	}

	callCtx, cancel := context.WithTimeout(ctx, transferCallTimeout)
	defer cancel()

	result, err := e.client.CreateTransfer(callCtx, transferReq)
	if err != nil {
		if isTimeout(err) {
			// Unknown outcome: the transfer may have gone through. Park the
			// withdrawal in processing and wait for reconciliation.
			if perr := e.ledger.MarkProcessing(ctx, withdrawalID, ""); perr != nil && !errors.Is(perr, ErrInvalidStateTransition) {
				return nil, perr
			}
			reason := "transfer outcome unknown: " + err.Error()
			if rerr := e.ledger.RecordTransferFailure(ctx, withdrawalID, reason); rerr != nil {
				return nil, rerr
			}
			return nil, &PayoutError{Reason: reason}
		}

		// Definitive decline: stay approved, record the reason, let an
		// operator decide whether to re-execute
		if rerr := e.ledger.RecordTransferFailure(ctx, withdrawalID, err.Error()); rerr != nil {
			return nil, rerr
		}
		return nil, &PayoutError{Reason: err.Error()}
	}

	if err := e.ledger.MarkProcessing(ctx, withdrawalID, result.TransferID); err != nil {
		return nil, err
	}

	if result.Settled {
		// This provider settles transfers into the receiving ledger at
		// creation time, so the synchronous-success path completes
		// immediately rather than waiting for the webhook
		if _, err := e.ledger.CompleteWithdrawal(ctx, withdrawalID, result.TransferID); err != nil {
			return nil, err
		}
	}

	return result, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

package services

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Abhi-Verma2005/hrm8-backend-sub000/models"
	"github.com/Abhi-Verma2005/hrm8-backend-sub000/repositories"
)

// amountTolerance is the rounding slack allowed between a withdrawal's
// amount and the sum of its referenced commissions.
const amountTolerance = 0.01

// LedgerService owns the commission/withdrawal invariants: balances are
// derived, commissions are never double-spent, and every state transition
// is a guarded single-document update.
type LedgerService struct {
	commissions repositories.CommissionRepository
	withdrawals repositories.WithdrawalRepository
	locker      Locker
}

func NewLedgerService(commissions repositories.CommissionRepository, withdrawals repositories.WithdrawalRepository, locker Locker) *LedgerService {
	return &LedgerService{
		commissions: commissions,
		withdrawals: withdrawals,
		locker:      locker,
	}
}

// RecordCommission creates a pending commission for a consultant. Called
// by the job/billing pipeline when an attributable event lands.
func (s *LedgerService) RecordCommission(ctx context.Context, commission *models.Commission) error {
	now := time.Now()
	commission.Status = models.CommissionStatusPending
	commission.CreatedAt = now
	commission.UpdatedAt = now
	return s.commissions.Insert(ctx, commission)
}

// ConfirmCommission flips a pending commission to confirmed, making it
// part of the consultant's available balance. Returns the confirmed record
// so callers can notify the consultant.
func (s *LedgerService) ConfirmCommission(ctx context.Context, id primitive.ObjectID) (*models.Commission, error) {
	ok, err := s.commissions.Confirm(ctx, id, time.Now())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidStateTransition
	}
	return s.commissions.FindByID(ctx, id)
}

// CalculateBalance derives the consultant's balance snapshot from raw
// commission and withdrawal records. Totals are rounded once, at the
// boundary, never mid-calculation.
func (s *LedgerService) CalculateBalance(ctx context.Context, consultantID primitive.ObjectID) (*models.BalanceSnapshot, error) {
	commissions, err := s.commissions.FindByConsultant(ctx, consultantID)
	if err != nil {
		return nil, err
	}
	withdrawals, err := s.withdrawals.FindByConsultant(ctx, consultantID)
	if err != nil {
		return nil, err
	}

	encumbered := encumberedSet(withdrawals)

	var available, pending, earned, withdrawn float64
	for _, c := range commissions {
		switch c.Status {
		case models.CommissionStatusPending:
			pending += c.Amount
		case models.CommissionStatusConfirmed:
			if !encumbered[c.ID] {
				available += c.Amount
			}
		}
		if c.Status != models.CommissionStatusCancelled {
			earned += c.Amount
		}
	}
	for _, w := range withdrawals {
		if w.Status == models.WithdrawalStatusCompleted {
			withdrawn += w.Amount
		}
	}

	return &models.BalanceSnapshot{
		AvailableBalance: round2(available),
		PendingBalance:   round2(pending),
		TotalEarned:      round2(earned),
		TotalWithdrawn:   round2(withdrawn),
	}, nil
}

// CreateWithdrawal validates and records a withdrawal request against a
// specific set of confirmed commissions. The whole read-validate-insert
// sequence runs under a per-consultant advisory lock so two concurrent
// requests cannot both encumber the same commission.
func (s *LedgerService) CreateWithdrawal(ctx context.Context, consultantID primitive.ObjectID, req *models.WithdrawalRequest, commissionIDs []primitive.ObjectID) (*models.Withdrawal, error) {
	if req.Amount <= 0 {
		return nil, ErrInvalidAmount
	}

	release, err := s.locker.Acquire(ctx, "withdrawal:"+consultantID.Hex())
	if err != nil {
		return nil, err
	}
	defer release()

	commissions, err := s.commissions.FindByConsultant(ctx, consultantID)
	if err != nil {
		return nil, err
	}
	withdrawals, err := s.withdrawals.FindByConsultant(ctx, consultantID)
	if err != nil {
		return nil, err
	}

	encumbered := encumberedSet(withdrawals)

	available := make(map[primitive.ObjectID]float64)
	var availableBalance float64
	for _, c := range commissions {
		if c.Status == models.CommissionStatusConfirmed && !encumbered[c.ID] {
			available[c.ID] = c.Amount
			availableBalance += c.Amount
		}
	}

	// Check the referenced commissions before the aggregate balance: a
	// reserved or foreign commission is the more specific failure, and the
	// consultant can act on it (pick different commissions)
	var selectedTotal float64
	seen := make(map[primitive.ObjectID]bool)
	for _, id := range commissionIDs {
		amount, ok := available[id]
		if !ok || seen[id] {
			return nil, ErrCommissionUnavailable
		}
		seen[id] = true
		selectedTotal += amount
	}

	if round2(availableBalance) < req.Amount {
		return nil, &InsufficientBalanceError{Available: round2(availableBalance), Requested: req.Amount}
	}

	if math.Abs(selectedTotal-req.Amount) > amountTolerance {
		return nil, ErrAmountMismatch
	}

	now := time.Now()
	withdrawal := &models.Withdrawal{
		ID:             primitive.NewObjectID(),
		ConsultantID:   consultantID,
		Amount:         req.Amount,
		Status:         models.WithdrawalStatusPending,
		CommissionIDs:  commissionIDs,
		PaymentMethod:  req.PaymentMethod,
		PaymentDetails: req.PaymentDetails,
		UserNote:       req.UserNote,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.withdrawals.Insert(ctx, withdrawal); err != nil {
		return nil, err
	}

	return withdrawal, nil
}

// GetWithdrawal loads a withdrawal or returns ErrWithdrawalNotFound.
func (s *LedgerService) GetWithdrawal(ctx context.Context, id primitive.ObjectID) (*models.Withdrawal, error) {
	withdrawal, err := s.withdrawals.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if withdrawal == nil {
		return nil, ErrWithdrawalNotFound
	}
	return withdrawal, nil
}

// ListWithdrawals returns a consultant's withdrawal history, newest first.
func (s *LedgerService) ListWithdrawals(ctx context.Context, consultantID primitive.ObjectID) ([]models.Withdrawal, error) {
	return s.withdrawals.FindByConsultant(ctx, consultantID)
}

// ListCommissions returns a consultant's commission history, newest first.
func (s *LedgerService) ListCommissions(ctx context.Context, consultantID primitive.ObjectID) ([]models.Commission, error) {
	return s.commissions.FindByConsultant(ctx, consultantID)
}

// ListPendingWithdrawals returns the admin review queue.
func (s *LedgerService) ListPendingWithdrawals(ctx context.Context) ([]models.Withdrawal, error) {
	return s.withdrawals.FindByStatus(ctx, models.WithdrawalStatusPending)
}

// ApproveWithdrawal moves a pending withdrawal to approved.
func (s *LedgerService) ApproveWithdrawal(ctx context.Context, id, adminID primitive.ObjectID, note string) (*models.Withdrawal, error) {
	if _, err := s.GetWithdrawal(ctx, id); err != nil {
		return nil, err
	}
	ok, err := s.withdrawals.Approve(ctx, id, adminID, note, time.Now())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidStateTransition
	}
	return s.GetWithdrawal(ctx, id)
}

// RejectWithdrawal moves a pending withdrawal to rejected, releasing its
// commissions back into the available balance.
func (s *LedgerService) RejectWithdrawal(ctx context.Context, id, adminID primitive.ObjectID, reason string) (*models.Withdrawal, error) {
	if _, err := s.GetWithdrawal(ctx, id); err != nil {
		return nil, err
	}
	ok, err := s.withdrawals.Reject(ctx, id, adminID, reason, time.Now())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidStateTransition
	}
	return s.GetWithdrawal(ctx, id)
}

// CancelWithdrawal lets the owning consultant withdraw a pending request.
func (s *LedgerService) CancelWithdrawal(ctx context.Context, id, consultantID primitive.ObjectID) (*models.Withdrawal, error) {
	withdrawal, err := s.GetWithdrawal(ctx, id)
	if err != nil {
		return nil, err
	}
	if withdrawal.ConsultantID != consultantID {
		return nil, ErrNotOwner
	}
	ok, err := s.withdrawals.Cancel(ctx, id, consultantID, time.Now())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidStateTransition
	}
	return s.GetWithdrawal(ctx, id)
}

// MarkProcessing records the provider transfer handle as payout execution
// begins.
func (s *LedgerService) MarkProcessing(ctx context.Context, id primitive.ObjectID, transferID string) error {
	ok, err := s.withdrawals.MarkProcessing(ctx, id, transferID, time.Now())
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidStateTransition
	}
	return nil
}

// CompleteWithdrawal finalizes a withdrawal after the provider confirms
// the transfer: the withdrawal becomes completed and every referenced
// commission is marked paid with the shared payment reference. Safe to
// call repeatedly; redelivered confirmations are no-ops.
func (s *LedgerService) CompleteWithdrawal(ctx context.Context, id primitive.ObjectID, paymentReference string) (*models.Withdrawal, error) {
	withdrawal, err := s.GetWithdrawal(ctx, id)
	if err != nil {
		return nil, err
	}
	if withdrawal.Status == models.WithdrawalStatusCompleted {
		// An earlier completion may have died between flipping the status
		// and marking the commissions paid. MarkPaid only touches
		// still-confirmed commissions, so re-running it finishes the job
		// without double-applying
		if err := s.commissions.MarkPaid(ctx, withdrawal.CommissionIDs, withdrawal.PaymentReference, time.Now()); err != nil {
			return nil, err
		}
		return withdrawal, nil
	}

	if paymentReference == "" {
		if withdrawal.TransferID != "" {
			paymentReference = withdrawal.TransferID
		} else {
			paymentReference = "PAY-" + uuid.NewString()
		}
	}

	now := time.Now()
	ok, err := s.withdrawals.Complete(ctx, id, paymentReference, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Lost a race with another confirmation of the same transfer, or
		// the withdrawal never reached an executable state
		current, err := s.GetWithdrawal(ctx, id)
		if err != nil {
			return nil, err
		}
		if current.Status == models.WithdrawalStatusCompleted {
			if err := s.commissions.MarkPaid(ctx, current.CommissionIDs, current.PaymentReference, time.Now()); err != nil {
				return nil, err
			}
			return current, nil
		}
		return nil, ErrInvalidStateTransition
	}

	// MarkPaid only touches still-confirmed commissions, so a redelivered
	// confirmation cannot double-apply the paid transition
	if err := s.commissions.MarkPaid(ctx, withdrawal.CommissionIDs, paymentReference, now); err != nil {
		return nil, err
	}

	return s.GetWithdrawal(ctx, id)
}

// RecordTransferFailure annotates a withdrawal with the provider's failure
// reason. The status is deliberately not rolled back: a failure
// notification can race a delayed success from the same provider, and
// reverting would invite a duplicate transfer. An operator decides.
func (s *LedgerService) RecordTransferFailure(ctx context.Context, id primitive.ObjectID, reason string) error {
	return s.withdrawals.RecordTransferFailure(ctx, id, reason, time.Now())
}

// encumberedSet collects commission IDs referenced by any withdrawal that
// still holds a claim on them (anything not rejected or cancelled).
func encumberedSet(withdrawals []models.Withdrawal) map[primitive.ObjectID]bool {
	encumbered := make(map[primitive.ObjectID]bool)
	for _, w := range withdrawals {
		if !w.Status.IsActive() {
			continue
		}
		for _, id := range w.CommissionIDs {
			encumbered[id] = true
		}
	}
	return encumbered
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

package services

import (
	"errors"
	"fmt"
)

// Ledger errors returned to callers. Controllers map these to HTTP
// statuses; the messages are user-visible.
var (
	ErrInvalidAmount                = errors.New("withdrawal amount must be greater than zero")
	ErrCommissionUnavailable        = errors.New("one or more commissions are unavailable for withdrawal")
	ErrAmountMismatch               = errors.New("withdrawal amount does not match the selected commissions")
	ErrInvalidStateTransition       = errors.New("withdrawal is not in a state that allows this operation")
	ErrWithdrawalNotFound           = errors.New("withdrawal request not found")
	ErrNotApproved                  = errors.New("withdrawal must be approved before payout execution")
	ErrNotOwner                     = errors.New("withdrawal belongs to another consultant")
	ErrPayoutDestinationUnavailable = errors.New("consultant has no enabled payout destination")
)

// InsufficientBalanceError carries the available amount so the caller can
// show it to the consultant.
type InsufficientBalanceError struct {
	Available float64
	Requested float64
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("Insufficient balance. Available: $%.2f, requested: $%.2f", e.Available, e.Requested)
}

// PayoutError wraps a payout provider failure. The withdrawal keeps its
// status; the provider's message is recorded on it for operator review.
type PayoutError struct {
	Reason string
}

func (e *PayoutError) Error() string {
	return "payout provider error: " + e.Reason
}

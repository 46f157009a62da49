package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// WithdrawalStatus is the lifecycle status of a withdrawal request.
type WithdrawalStatus string

const (
	WithdrawalStatusPending    WithdrawalStatus = "pending"
	WithdrawalStatusApproved   WithdrawalStatus = "approved"
	WithdrawalStatusProcessing WithdrawalStatus = "processing"
	WithdrawalStatusCompleted  WithdrawalStatus = "completed"
	WithdrawalStatusRejected   WithdrawalStatus = "rejected"
	WithdrawalStatusCancelled  WithdrawalStatus = "cancelled"
)

// IsTerminal reports whether no further transitions are allowed from s.
func (s WithdrawalStatus) IsTerminal() bool {
	return s == WithdrawalStatusCompleted || s == WithdrawalStatusRejected || s == WithdrawalStatusCancelled
}

// IsActive reports whether withdrawals in this status still encumber their
// referenced commissions. Rejected and cancelled withdrawals release them.
func (s WithdrawalStatus) IsActive() bool {
	return s != WithdrawalStatusRejected && s != WithdrawalStatusCancelled
}

// Withdrawal is a consultant's request to cash out a specific set of
// confirmed commissions. CommissionIDs and Amount are fixed at creation.
type Withdrawal struct {
	ID            primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	ConsultantID  primitive.ObjectID   `bson:"consultantId" json:"consultantId"`
	Amount        float64              `bson:"amount" json:"amount"`
	Status        WithdrawalStatus     `bson:"status" json:"status"`
	CommissionIDs []primitive.ObjectID `bson:"commissionIds" json:"commissionIds"`

	PaymentMethod  string `bson:"paymentMethod" json:"paymentMethod"`
	PaymentDetails string `bson:"paymentDetails,omitempty" json:"paymentDetails,omitempty"`
	UserNote       string `bson:"userNote,omitempty" json:"userNote,omitempty"`

	ProcessedBy      *primitive.ObjectID `bson:"processedBy,omitempty" json:"processedBy,omitempty"`
	ProcessedAt      *time.Time          `bson:"processedAt,omitempty" json:"processedAt,omitempty"`
	PaymentReference string              `bson:"paymentReference,omitempty" json:"paymentReference,omitempty"`
	AdminNotes       string              `bson:"adminNotes,omitempty" json:"adminNotes,omitempty"`

	RejectionReason string              `bson:"rejectionReason,omitempty" json:"rejectionReason,omitempty"`
	RejectedBy      *primitive.ObjectID `bson:"rejectedBy,omitempty" json:"rejectedBy,omitempty"`
	RejectedAt      *time.Time          `bson:"rejectedAt,omitempty" json:"rejectedAt,omitempty"`

	// Provider transfer tracking
	TransferID            string     `bson:"transferId,omitempty" json:"transferId,omitempty"`
	TransferInitiatedAt   *time.Time `bson:"transferInitiatedAt,omitempty" json:"transferInitiatedAt,omitempty"`
	TransferFailureReason string     `bson:"transferFailureReason,omitempty" json:"transferFailureReason,omitempty"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// WithdrawalRequest is the payload a consultant submits to create a
// withdrawal against a set of confirmed commissions.
type WithdrawalRequest struct {
	Amount         float64  `json:"amount" validate:"required,gt=0"`
	PaymentMethod  string   `json:"paymentMethod" validate:"required"`
	PaymentDetails string   `json:"paymentDetails,omitempty"`
	CommissionIDs  []string `json:"commissionIds" validate:"required,min=1"`
	UserNote       string   `json:"userNote,omitempty"`
}

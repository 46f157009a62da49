package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CommissionStatus is the lifecycle status of a commission record.
type CommissionStatus string

const (
	CommissionStatusPending   CommissionStatus = "pending"
	CommissionStatusConfirmed CommissionStatus = "confirmed"
	CommissionStatusPaid      CommissionStatus = "paid"
	CommissionStatusCancelled CommissionStatus = "cancelled"
)

// Commission types attributed by the job/billing pipeline
const (
	CommissionTypeJobFill      = "job_fill"
	CommissionTypeSubscription = "subscription"
	CommissionTypeReferral     = "referral"
)

// Commission represents money owed to a consultant for one attributable
// business event. Amount is fixed at creation; only status, timestamps and
// the payment reference ever change.
type Commission struct {
	ID             primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	ConsultantID   primitive.ObjectID  `bson:"consultantId" json:"consultantId"`
	RegionID       primitive.ObjectID  `bson:"regionId" json:"regionId"`
	JobID          *primitive.ObjectID `bson:"jobId,omitempty" json:"jobId,omitempty"`
	SubscriptionID *primitive.ObjectID `bson:"subscriptionId,omitempty" json:"subscriptionId,omitempty"`
	Type           string              `bson:"type" json:"type"`
	Amount         float64             `bson:"amount" json:"amount"`
	Rate           *float64            `bson:"rate,omitempty" json:"rate,omitempty"`
	Status         CommissionStatus    `bson:"status" json:"status"`

	ConfirmedAt      *time.Time `bson:"confirmedAt,omitempty" json:"confirmedAt,omitempty"`
	PaidAt           *time.Time `bson:"paidAt,omitempty" json:"paidAt,omitempty"`
	PaymentReference string     `bson:"paymentReference,omitempty" json:"paymentReference,omitempty"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// CommissionRequest is the payload the job/billing producer sends when
// recording a new commission.
type CommissionRequest struct {
	ConsultantID   string   `json:"consultantId" validate:"required"`
	RegionID       string   `json:"regionId" validate:"required"`
	JobID          string   `json:"jobId,omitempty"`
	SubscriptionID string   `json:"subscriptionId,omitempty"`
	Type           string   `json:"type" validate:"required,oneof=job_fill subscription referral"`
	Amount         float64  `json:"amount" validate:"required,gt=0"`
	Rate           *float64 `json:"rate,omitempty"`
}

package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PayoutAccount is a consultant's linked destination at the payout
// provider. Transfers can only be issued while Enabled is true.
type PayoutAccount struct {
	Handle  string `bson:"handle" json:"handle"`
	Enabled bool   `bson:"enabled" json:"enabled"`
}

// Consultant is the slice of the consultant profile the ledger needs:
// identity, contact details for notifications and the payout destination.
type Consultant struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	FullName      string             `bson:"fullName" json:"fullName"`
	Email         string             `bson:"email" json:"email"`
	RegionID      primitive.ObjectID `bson:"regionId" json:"regionId"`
	PayoutAccount *PayoutAccount     `bson:"payoutAccount,omitempty" json:"payoutAccount,omitempty"`
	FCMToken      string             `bson:"fcmToken,omitempty" json:"-"`
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
}

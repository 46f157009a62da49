package repositories

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Abhi-Verma2005/hrm8-backend-sub000/models"
)

// CommissionRepository is the data access surface the ledger needs over
// commission records. The mongo implementation below is the production
// one; tests substitute in-memory fakes.
type CommissionRepository interface {
	Insert(ctx context.Context, commission *models.Commission) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Commission, error)
	FindByConsultant(ctx context.Context, consultantID primitive.ObjectID) ([]models.Commission, error)
	// Confirm flips a pending commission to confirmed. Returns false when
	// the commission is missing or not pending.
	Confirm(ctx context.Context, id primitive.ObjectID, at time.Time) (bool, error)
	// MarkPaid sets every referenced confirmed commission to paid with the
	// shared payment reference. Already-paid commissions are left untouched,
	// which is what makes reconciliation redelivery safe.
	MarkPaid(ctx context.Context, ids []primitive.ObjectID, paymentReference string, at time.Time) error
}

type mongoCommissionRepository struct {
	collection *mongo.Collection
}

func NewCommissionRepository(db *mongo.Database) CommissionRepository {
	return &mongoCommissionRepository{
		collection: db.Collection("commissions"),
	}
}

func (r *mongoCommissionRepository) Insert(ctx context.Context, commission *models.Commission) error {
	if commission.ID.IsZero() {
		commission.ID = primitive.NewObjectID()
	}
	_, err := r.collection.InsertOne(ctx, commission)
	return err
}

func (r *mongoCommissionRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Commission, error) {
	var commission models.Commission
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&commission)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &commission, nil
}

func (r *mongoCommissionRepository) FindByConsultant(ctx context.Context, consultantID primitive.ObjectID) ([]models.Commission, error) {
	cursor, err := r.collection.Find(
		ctx,
		bson.M{"consultantId": consultantID},
		options.Find().SetSort(bson.M{"createdAt": -1}),
	)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var commissions []models.Commission
	if err := cursor.All(ctx, &commissions); err != nil {
		return nil, err
	}
	return commissions, nil
}

func (r *mongoCommissionRepository) Confirm(ctx context.Context, id primitive.ObjectID, at time.Time) (bool, error) {
	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id, "status": models.CommissionStatusPending},
		bson.M{"$set": bson.M{
			"status":      models.CommissionStatusConfirmed,
			"confirmedAt": at,
			"updatedAt":   at,
		}},
	)
	if err != nil {
		return false, err
	}
	return result.ModifiedCount > 0, nil
}

func (r *mongoCommissionRepository) MarkPaid(ctx context.Context, ids []primitive.ObjectID, paymentReference string, at time.Time) error {
	_, err := r.collection.UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": ids}, "status": models.CommissionStatusConfirmed},
		bson.M{"$set": bson.M{
			"status":           models.CommissionStatusPaid,
			"paidAt":           at,
			"paymentReference": paymentReference,
			"updatedAt":        at,
		}},
	)
	return err
}

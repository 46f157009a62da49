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

// WithdrawalRepository is the data access surface over withdrawal requests.
// Every state transition is a single conditional update guarded on the
// current status, so a concurrent duplicate loses the race cleanly: the
// bool result reports whether the guard matched.
type WithdrawalRepository interface {
	Insert(ctx context.Context, withdrawal *models.Withdrawal) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Withdrawal, error)
	FindByConsultant(ctx context.Context, consultantID primitive.ObjectID) ([]models.Withdrawal, error)
	FindByStatus(ctx context.Context, status models.WithdrawalStatus) ([]models.Withdrawal, error)

	Approve(ctx context.Context, id, adminID primitive.ObjectID, note string, at time.Time) (bool, error)
	Reject(ctx context.Context, id, adminID primitive.ObjectID, reason string, at time.Time) (bool, error)
	Cancel(ctx context.Context, id, consultantID primitive.ObjectID, at time.Time) (bool, error)
	MarkProcessing(ctx context.Context, id primitive.ObjectID, transferID string, at time.Time) (bool, error)
	Complete(ctx context.Context, id primitive.ObjectID, paymentReference string, at time.Time) (bool, error)
	RecordTransferFailure(ctx context.Context, id primitive.ObjectID, reason string, at time.Time) error
}

type mongoWithdrawalRepository struct {
	collection *mongo.Collection
}

func NewWithdrawalRepository(db *mongo.Database) WithdrawalRepository {
	return &mongoWithdrawalRepository{
		collection: db.Collection("withdrawals"),
	}
}

func (r *mongoWithdrawalRepository) Insert(ctx context.Context, withdrawal *models.Withdrawal) error {
	if withdrawal.ID.IsZero() {
		withdrawal.ID = primitive.NewObjectID()
	}
	_, err := r.collection.InsertOne(ctx, withdrawal)
	return err
}

func (r *mongoWithdrawalRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Withdrawal, error) {
	var withdrawal models.Withdrawal
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&withdrawal)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &withdrawal, nil
}

func (r *mongoWithdrawalRepository) FindByConsultant(ctx context.Context, consultantID primitive.ObjectID) ([]models.Withdrawal, error) {
	cursor, err := r.collection.Find(
		ctx,
		bson.M{"consultantId": consultantID},
		options.Find().SetSort(bson.M{"createdAt": -1}),
	)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var withdrawals []models.Withdrawal
	if err := cursor.All(ctx, &withdrawals); err != nil {
		return nil, err
	}
	return withdrawals, nil
}

func (r *mongoWithdrawalRepository) FindByStatus(ctx context.Context, status models.WithdrawalStatus) ([]models.Withdrawal, error) {
	cursor, err := r.collection.Find(
		ctx,
		bson.M{"status": status},
		options.Find().SetSort(bson.M{"createdAt": -1}),
	)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var withdrawals []models.Withdrawal
	if err := cursor.All(ctx, &withdrawals); err != nil {
		return nil, err
	}
	return withdrawals, nil
}

func (r *mongoWithdrawalRepository) Approve(ctx context.Context, id, adminID primitive.ObjectID, note string, at time.Time) (bool, error) {
	return r.transition(ctx,
		bson.M{"_id": id, "status": models.WithdrawalStatusPending},
		bson.M{
			"status":      models.WithdrawalStatusApproved,
			"processedBy": adminID,
			"processedAt": at,
			"adminNotes":  note,
			"updatedAt":   at,
		},
	)
}

func (r *mongoWithdrawalRepository) Reject(ctx context.Context, id, adminID primitive.ObjectID, reason string, at time.Time) (bool, error) {
	return r.transition(ctx,
		bson.M{"_id": id, "status": models.WithdrawalStatusPending},
		bson.M{
			"status":          models.WithdrawalStatusRejected,
			"rejectedBy":      adminID,
			"rejectedAt":      at,
			"rejectionReason": reason,
			"updatedAt":       at,
		},
	)
}

func (r *mongoWithdrawalRepository) Cancel(ctx context.Context, id, consultantID primitive.ObjectID, at time.Time) (bool, error) {
	// The owner guard lives in the filter so a consultant can never cancel
	// someone else's request
	return r.transition(ctx,
		bson.M{"_id": id, "consultantId": consultantID, "status": models.WithdrawalStatusPending},
		bson.M{
			"status":    models.WithdrawalStatusCancelled,
			"updatedAt": at,
		},
	)
}

func (r *mongoWithdrawalRepository) MarkProcessing(ctx context.Context, id primitive.ObjectID, transferID string, at time.Time) (bool, error) {
	return r.transition(ctx,
		bson.M{"_id": id, "status": models.WithdrawalStatusApproved},
		bson.M{
			"status":              models.WithdrawalStatusProcessing,
			"transferId":          transferID,
			"transferInitiatedAt": at,
			"updatedAt":           at,
		},
	)
}

func (r *mongoWithdrawalRepository) Complete(ctx context.Context, id primitive.ObjectID, paymentReference string, at time.Time) (bool, error) {
	// A provider confirmation can arrive while the withdrawal is still
	// approved (synchronous-settlement path) or already processing
	return r.transition(ctx,
		bson.M{"_id": id, "status": bson.M{"$in": []models.WithdrawalStatus{
			models.WithdrawalStatusApproved,
			models.WithdrawalStatusProcessing,
		}}},
		bson.M{
			"status":           models.WithdrawalStatusCompleted,
			"paymentReference": paymentReference,
			"updatedAt":        at,
		},
	)
}

func (r *mongoWithdrawalRepository) RecordTransferFailure(ctx context.Context, id primitive.ObjectID, reason string, at time.Time) error {
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{
			"transferFailureReason": reason,
			"updatedAt":             at,
		}},
	)
	return err
}

func (r *mongoWithdrawalRepository) transition(ctx context.Context, filter, set bson.M) (bool, error) {
	result, err := r.collection.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return false, err
	}
	return result.ModifiedCount > 0, nil
}

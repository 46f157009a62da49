package repositories

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/Abhi-Verma2005/hrm8-backend-sub000/models"
)

// ConsultantRepository resolves consultant profiles: payout destination
// for the executor, contact details for notifications.
type ConsultantRepository interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Consultant, error)
}

type mongoConsultantRepository struct {
	collection *mongo.Collection
}

func NewConsultantRepository(db *mongo.Database) ConsultantRepository {
	return &mongoConsultantRepository{
		collection: db.Collection("consultants"),
	}
}

func (r *mongoConsultantRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Consultant, error) {
	var consultant models.Consultant
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&consultant)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &consultant, nil
}

package repositories

import (
	"context"
	"time"

	"github.com/anonto42/volunteer-hub/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DeliveryReportRepository archives fan-out statistics
type DeliveryReportRepository interface {
	Insert(ctx context.Context, report *models.DeliveryReport) error
	List(ctx context.Context, eventID uint, skip, limit int64) ([]models.DeliveryReport, error)
}

// MongoDeliveryReportRepository implements DeliveryReportRepository for MongoDB
type MongoDeliveryReportRepository struct {
	collection *mongo.Collection
}

func NewMongoDeliveryReportRepository(db *mongo.Database) *MongoDeliveryReportRepository {
	return &MongoDeliveryReportRepository{collection: db.Collection("delivery_reports")}
}

// EnsureIndexes creates the indexes the admin listing sorts and filters on.
func (r *MongoDeliveryReportRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "finished_at", Value: -1}}},
		{Keys: bson.D{{Key: "event_id", Value: 1}, {Key: "finished_at", Value: -1}}},
	})
	return err
}

func (r *MongoDeliveryReportRepository) Insert(ctx context.Context, report *models.DeliveryReport) error {
	report.ID = primitive.NewObjectID()
	if report.FinishedAt.IsZero() {
		report.FinishedAt = time.Now()
	}
	_, err := r.collection.InsertOne(ctx, report)
	return err
}

// List returns the newest reports first, optionally limited to one event.
func (r *MongoDeliveryReportRepository) List(ctx context.Context, eventID uint, skip, limit int64) ([]models.DeliveryReport, error) {
	filter := bson.M{}
	if eventID != 0 {
		filter["event_id"] = eventID
	}

	findOptions := options.Find().SetSkip(skip).SetLimit(limit).SetSort(bson.D{{Key: "finished_at", Value: -1}})
	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	reports := []models.DeliveryReport{}
	if err = cursor.All(ctx, &reports); err != nil {
		return nil, err
	}
	return reports, nil
}

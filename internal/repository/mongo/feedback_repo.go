package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"studenthub/portal/internal/domain"
	"studenthub/portal/internal/repository"
)

const feedbackCollectionName = "feedback"

// mongoFeedbackRepository implements repository.FeedbackRepository using MongoDB.
type mongoFeedbackRepository struct {
	collection *mongo.Collection
}

// NewMongoFeedbackRepository creates a new instance of mongoFeedbackRepository.
func NewMongoFeedbackRepository(db *mongo.Database) repository.FeedbackRepository {
	return &mongoFeedbackRepository{
		collection: db.Collection(feedbackCollectionName),
	}
}

// Create inserts a new feedback entry. The one-per-day rule is checked
// by the service via ExistsForUserBetween before this is called.
func (r *mongoFeedbackRepository) Create(ctx context.Context, fb *domain.Feedback) (primitive.ObjectID, error) {
	if fb.UserID == primitive.NilObjectID || fb.Category == "" || fb.Subject == "" || fb.Message == "" {
		return primitive.NilObjectID, errors.New("feedback user ID, category, subject, and message are required")
	}

	fb.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	fb.CreatedAt = now
	fb.UpdatedAt = now
	if fb.Status == "" {
		fb.Status = domain.FeedbackSubmitted
	}

	result, err := r.collection.InsertOne(ctx, fb)
	if err != nil {
		return primitive.NilObjectID, err
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted ID")
	}
	return insertedID, nil
}

func (r *mongoFeedbackRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Feedback, error) {
	var fb domain.Feedback
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&fb)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &fb, nil
}

// ListByUserID returns one account's feedback entries, newest first.
func (r *mongoFeedbackRepository) ListByUserID(ctx context.Context, userID primitive.ObjectID) ([]domain.Feedback, error) {
	return r.list(ctx, bson.M{"userId": userID})
}

// ListAll returns every feedback entry, newest first. Admin listings only.
func (r *mongoFeedbackRepository) ListAll(ctx context.Context) ([]domain.Feedback, error) {
	return r.list(ctx, bson.M{})
}

func (r *mongoFeedbackRepository) list(ctx context.Context, filter bson.M) ([]domain.Feedback, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var entries []domain.Feedback
	if err = cursor.All(ctx, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// ExistsForUserBetween reports whether the account has an entry created
// in [from, to).
func (r *mongoFeedbackRepository) ExistsForUserBetween(ctx context.Context, userID primitive.ObjectID, from, to time.Time) (bool, error) {
	filter := bson.M{
		"userId":    userID,
		"createdAt": bson.M{"$gte": from, "$lt": to},
	}
	count, err := r.collection.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// SetResponse attaches an admin response without touching the status.
func (r *mongoFeedbackRepository) SetResponse(ctx context.Context, id primitive.ObjectID, response string, respondedBy primitive.ObjectID, respondedAt time.Time) error {
	update := bson.M{"$set": bson.M{
		"adminResponse": response,
		"respondedBy":   respondedBy,
		"respondedAt":   respondedAt,
		"updatedAt":     time.Now().UTC(),
	}}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// SetStatus updates the handling status without touching the response.
func (r *mongoFeedbackRepository) SetStatus(ctx context.Context, id primitive.ObjectID, status domain.FeedbackStatus) error {
	update := bson.M{"$set": bson.M{
		"status":    status,
		"updatedAt": time.Now().UTC(),
	}}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// DeleteByUserID removes all of an account's feedback entries.
func (r *mongoFeedbackRepository) DeleteByUserID(ctx context.Context, userID primitive.ObjectID) error {
	_, err := r.collection.DeleteMany(ctx, bson.M{"userId": userID})
	return err
}

// EnsureFeedbackIndexes creates necessary indexes for the feedback collection.
func EnsureFeedbackIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			// Serves both per-user listings and the one-per-day lookup.
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "status", Value: 1}},
			Options: options.Index(),
		},
	}

	_, _ = collection.Indexes().CreateMany(ctx, indexes)
}

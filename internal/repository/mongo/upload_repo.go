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

const uploadCollectionName = "uploads"

// mongoUploadRepository implements repository.UploadRepository using MongoDB.
type mongoUploadRepository struct {
	collection *mongo.Collection
}

// NewMongoUploadRepository creates a new instance of mongoUploadRepository.
func NewMongoUploadRepository(db *mongo.Database) repository.UploadRepository {
	return &mongoUploadRepository{
		collection: db.Collection(uploadCollectionName),
	}
}

// Create inserts upload metadata after the blob has been persisted.
func (r *mongoUploadRepository) Create(ctx context.Context, upload *domain.Upload) (primitive.ObjectID, error) {
	if upload.UserID == primitive.NilObjectID || upload.FileName == "" || upload.StoragePath == "" {
		return primitive.NilObjectID, errors.New("upload user ID, file name, and storage path are required")
	}

	upload.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	upload.CreatedAt = now
	upload.UpdatedAt = now
	if upload.Status == "" {
		upload.Status = domain.UploadPending
	}

	result, err := r.collection.InsertOne(ctx, upload)
	if err != nil {
		return primitive.NilObjectID, err
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted ID")
	}
	return insertedID, nil
}

func (r *mongoUploadRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Upload, error) {
	var upload domain.Upload
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&upload)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &upload, nil
}

// ListByUserID returns one account's uploads, newest first.
func (r *mongoUploadRepository) ListByUserID(ctx context.Context, userID primitive.ObjectID) ([]domain.Upload, error) {
	return r.list(ctx, bson.M{"userId": userID})
}

// ListAll returns every upload, newest first. Admin listings only.
func (r *mongoUploadRepository) ListAll(ctx context.Context) ([]domain.Upload, error) {
	return r.list(ctx, bson.M{})
}

func (r *mongoUploadRepository) list(ctx context.Context, filter bson.M) ([]domain.Upload, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var uploads []domain.Upload
	if err = cursor.All(ctx, &uploads); err != nil {
		return nil, err
	}
	return uploads, nil
}

// SetReview records an admin verdict: new status, free-text feedback,
// reviewer id, and timestamp. No transition enforcement; an admin can
// re-set the status of an already reviewed upload.
func (r *mongoUploadRepository) SetReview(ctx context.Context, id primitive.ObjectID, status domain.UploadStatus, feedback string, reviewedBy primitive.ObjectID, reviewedAt time.Time) error {
	update := bson.M{"$set": bson.M{
		"status":        status,
		"adminFeedback": feedback,
		"reviewedBy":    reviewedBy,
		"reviewedAt":    reviewedAt,
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

// DeleteByUserID removes all of an account's upload records.
func (r *mongoUploadRepository) DeleteByUserID(ctx context.Context, userID primitive.ObjectID) error {
	_, err := r.collection.DeleteMany(ctx, bson.M{"userId": userID})
	return err
}

// EnsureUploadIndexes creates necessary indexes for the uploads collection.
func EnsureUploadIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
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

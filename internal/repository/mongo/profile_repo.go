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

const profileCollectionName = "profiles"

// mongoProfileRepository implements repository.ProfileRepository using MongoDB.
type mongoProfileRepository struct {
	collection *mongo.Collection
}

// NewMongoProfileRepository creates a new instance of mongoProfileRepository.
func NewMongoProfileRepository(db *mongo.Database) repository.ProfileRepository {
	return &mongoProfileRepository{
		collection: db.Collection(profileCollectionName),
	}
}

// Create inserts a new profile. Called alongside User creation at signup.
func (r *mongoProfileRepository) Create(ctx context.Context, profile *domain.Profile) (primitive.ObjectID, error) {
	if profile.UserID == primitive.NilObjectID || profile.FullName == "" {
		return primitive.NilObjectID, errors.New("profile user ID and full name are required")
	}

	profile.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	profile.CreatedAt = now
	profile.UpdatedAt = now
	if profile.Status == "" {
		profile.Status = domain.ProfilePending
	}

	result, err := r.collection.InsertOne(ctx, profile)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return primitive.NilObjectID, repository.ErrDuplicate
		}
		return primitive.NilObjectID, err
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted ID")
	}
	return insertedID, nil
}

func (r *mongoProfileRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Profile, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *mongoProfileRepository) GetByUserID(ctx context.Context, userID primitive.ObjectID) (*domain.Profile, error) {
	return r.findOne(ctx, bson.M{"userId": userID})
}

func (r *mongoProfileRepository) GetByUsername(ctx context.Context, username string) (*domain.Profile, error) {
	return r.findOne(ctx, bson.M{"username": username})
}

func (r *mongoProfileRepository) findOne(ctx context.Context, filter bson.M) (*domain.Profile, error) {
	var profile domain.Profile
	err := r.collection.FindOne(ctx, filter).Decode(&profile)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &profile, nil
}

// List returns all profiles, newest first.
func (r *mongoProfileRepository) List(ctx context.Context) ([]domain.Profile, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var profiles []domain.Profile
	if err = cursor.All(ctx, &profiles); err != nil {
		return nil, err
	}
	return profiles, nil
}

// Update rewrites the mutable display fields of a profile.
func (r *mongoProfileRepository) Update(ctx context.Context, profile *domain.Profile) error {
	update := bson.M{"$set": bson.M{
		"fullName":      profile.FullName,
		"contactNumber": profile.ContactNumber,
		"collegeName":   profile.CollegeName,
		"collegeId":     profile.CollegeID,
		"collegeEmail":  profile.CollegeEmail,
		"city":          profile.City,
		"pincode":       profile.Pincode,
		"avatarUrl":     profile.AvatarURL,
		"updatedAt":     time.Now().UTC(),
	}}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": profile.ID}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Approve assigns the username and flips the profile to active in one
// update. The unique index on username surfaces a taken name as
// repository.ErrDuplicate.
func (r *mongoProfileRepository) Approve(ctx context.Context, id primitive.ObjectID, username string) error {
	update := bson.M{"$set": bson.M{
		"username":  username,
		"status":    domain.ProfileActive,
		"updatedAt": time.Now().UTC(),
	}}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrDuplicate
		}
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// SetStatus toggles the profile status (suspend/activate).
func (r *mongoProfileRepository) SetStatus(ctx context.Context, id primitive.ObjectID, status domain.ProfileStatus) error {
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

// DeleteByUserID removes the 1:1 profile of an account.
func (r *mongoProfileRepository) DeleteByUserID(ctx context.Context, userID primitive.ObjectID) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"userId": userID})
	return err
}

// EnsureProfileIndexes creates necessary indexes for the profiles
// collection. The username index is sparse because usernames only exist
// after admin approval.
func EnsureProfileIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true),
		},
		{
			Keys:    bson.D{{Key: "userId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "status", Value: 1}},
			Options: options.Index(),
		},
	}

	_, _ = collection.Indexes().CreateMany(ctx, indexes)
}

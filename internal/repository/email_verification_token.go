package repository

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/sarunyu-dev/authkeeper/internal/model"
)

// EmailVerificationTokenRepository defines the interface for email verification
// token operations.
type EmailVerificationTokenRepository interface {
	// CreateToken creates a new email verification token.
	CreateToken(ctx context.Context, token *model.EmailVerificationToken) (*model.EmailVerificationToken, error)

	// ConsumeToken atomically marks the live token with the given JTI as used
	// and returns it. Returns mongo.ErrNoDocuments when the token does not
	// exist, was already consumed, or has expired.
	ConsumeToken(ctx context.Context, jti string) (*model.EmailVerificationToken, error)

	// InvalidateUserTokens invalidates all unused tokens for a specific user.
	InvalidateUserTokens(ctx context.Context, userID string) error
}

const emailVerificationTokenCollection = "email_verification_tokens"

type emailVerificationTokenMongoRepository struct {
	db *mongo.Database
}

// NewEmailVerificationTokenMongoRepository creates a new MongoDB repository for
// email verification tokens.
func NewEmailVerificationTokenMongoRepository(
	ctx context.Context,
	logger *zerolog.Logger,
	db *mongo.Database,
) EmailVerificationTokenRepository {
	collection := db.Collection(emailVerificationTokenCollection)

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "jti", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "user_id", Value: 1}},
		},
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0), // TTL index
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create email verification token indexes")
	}

	return &emailVerificationTokenMongoRepository{
		db: db,
	}
}

func (r *emailVerificationTokenMongoRepository) CreateToken(
	ctx context.Context,
	token *model.EmailVerificationToken,
) (*model.EmailVerificationToken, error) {
	now := time.Now()
	token.CreatedAt = now
	token.UpdatedAt = now
	token.Used = false

	result, err := r.db.Collection(emailVerificationTokenCollection).InsertOne(ctx, token)
	if err != nil {
		return nil, err
	}

	if objectID, ok := result.InsertedID.(bson.ObjectID); ok {
		token.ID = objectID
	}

	return token, nil
}

func (r *emailVerificationTokenMongoRepository) ConsumeToken(
	ctx context.Context,
	jti string,
) (*model.EmailVerificationToken, error) {
	// Filtering on used:false makes consumption a compare-and-swap: only one of
	// two racing requests gets the document back.
	filter := bson.M{
		"jti":        jti,
		"used":       false,
		"expires_at": bson.M{"$gt": time.Now()},
	}
	update := bson.M{
		"$set": bson.M{
			"used":       true,
			"updated_at": time.Now(),
		},
	}

	result := r.db.Collection(emailVerificationTokenCollection).FindOneAndUpdate(ctx, filter, update)
	if result.Err() != nil {
		return nil, result.Err()
	}

	var token model.EmailVerificationToken
	if err := result.Decode(&token); err != nil {
		return nil, err
	}

	return &token, nil
}

func (r *emailVerificationTokenMongoRepository) InvalidateUserTokens(ctx context.Context, userID string) error {
	objectID, err := bson.ObjectIDFromHex(userID)
	if err != nil {
		return err
	}

	filter := bson.M{
		"user_id": objectID,
		"used":    false,
	}
	update := bson.M{
		"$set": bson.M{
			"used":       true,
			"updated_at": time.Now(),
		},
	}

	_, err = r.db.Collection(emailVerificationTokenCollection).UpdateMany(ctx, filter, update)
	return err
}

package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/sarunyu-dev/authkeeper/internal/model"
)

// SessionRepository defines the interface for session-related database operations.
type SessionRepository interface {
	CreateSession(ctx context.Context, session *model.Session) (*model.Session, error)
	GetSession(ctx context.Context, id string) (*model.Session, error)
	ListSessionsByUserID(ctx context.Context, userID string) ([]model.Session, error)

	// UpdateSudoAt refreshes the last password re-entry timestamp.
	UpdateSudoAt(ctx context.Context, id string, at time.Time) error

	// DeleteSession removes a single session. Returns mongo.ErrNoDocuments when
	// the session does not exist.
	DeleteSession(ctx context.Context, id string) error

	// DeleteSessionsByUserID removes every session of a user.
	DeleteSessionsByUserID(ctx context.Context, userID string) (int64, error)

	// DeleteOtherSessions removes every session of a user except the given one.
	DeleteOtherSessions(ctx context.Context, userID, keepID string) (int64, error)
}

const sessionCollection = "sessions"

type sessionMongoRepository struct {
	db *mongo.Database
}

func NewSessionMongoRepository(db *mongo.Database) SessionRepository {
	return &sessionMongoRepository{db: db}
}

func (r *sessionMongoRepository) CreateSession(ctx context.Context, session *model.Session) (*model.Session, error) {
	now := time.Now()
	session.CreatedAt = now
	session.UpdatedAt = now

	result, err := r.db.Collection(sessionCollection).InsertOne(ctx, session)
	if err != nil {
		return nil, err
	}

	if objectID, ok := result.InsertedID.(bson.ObjectID); ok {
		session.ID = objectID
	} else {
		return nil, errors.New("failed to convert inserted ID to ObjectID")
	}

	return session, nil
}

func (r *sessionMongoRepository) GetSession(ctx context.Context, id string) (*model.Session, error) {
	objectID, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}

	result := r.db.Collection(sessionCollection).FindOne(ctx, bson.M{"_id": objectID})
	if result.Err() != nil {
		return nil, result.Err()
	}

	var session model.Session
	if err := result.Decode(&session); err != nil {
		return nil, err
	}

	return &session, nil
}

func (r *sessionMongoRepository) ListSessionsByUserID(ctx context.Context, userID string) ([]model.Session, error) {
	cursor, err := r.db.Collection(sessionCollection).Find(ctx, bson.M{"user_id": userID})
	if err != nil {
		return nil, err
	}

	var sessions []model.Session
	if err := cursor.All(ctx, &sessions); err != nil {
		return nil, err
	}

	return sessions, nil
}

func (r *sessionMongoRepository) UpdateSudoAt(ctx context.Context, id string, at time.Time) error {
	objectID, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return err
	}

	_, err = r.db.Collection(sessionCollection).UpdateOne(
		ctx,
		bson.M{"_id": objectID},
		bson.M{"$set": bson.M{
			"sudo_at":    at,
			"updated_at": time.Now(),
		}},
	)
	return err
}

func (r *sessionMongoRepository) DeleteSession(ctx context.Context, id string) error {
	objectID, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return err
	}

	result, err := r.db.Collection(sessionCollection).DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		return err
	}

	if result.DeletedCount == 0 {
		return mongo.ErrNoDocuments
	}

	return nil
}

func (r *sessionMongoRepository) DeleteSessionsByUserID(ctx context.Context, userID string) (int64, error) {
	result, err := r.db.Collection(sessionCollection).DeleteMany(ctx, bson.M{"user_id": userID})
	if err != nil {
		return 0, err
	}

	return result.DeletedCount, nil
}

func (r *sessionMongoRepository) DeleteOtherSessions(ctx context.Context, userID, keepID string) (int64, error) {
	keepObjectID, err := bson.ObjectIDFromHex(keepID)
	if err != nil {
		return 0, err
	}

	result, err := r.db.Collection(sessionCollection).DeleteMany(ctx, bson.M{
		"user_id": userID,
		"_id":     bson.M{"$ne": keepObjectID},
	})
	if err != nil {
		return 0, err
	}

	return result.DeletedCount, nil
}

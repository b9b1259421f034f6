package sessions

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection holds admin sessions when MongoDB backs the session store.
const Collection = "admin_sessions"

// Repository provides session persistence operations
type Repository interface {
	Create(ctx context.Context, s *Session) error
	Get(ctx context.Context, id string) (*Session, error)
	Touch(ctx context.Context, id string, seen, expires time.Time) error
	Delete(ctx context.Context, id string) error
}

// DatabaseFunc yields the database to use for one call. database.Manager.Database fits.
type DatabaseFunc func(ctx context.Context) (*mongo.Database, error)

// MongoRepository implements Repository on the admin_sessions collection.
type MongoRepository struct {
	db DatabaseFunc
}

func NewMongoRepository(db DatabaseFunc) *MongoRepository {
	return &MongoRepository{db: db}
}

func (r *MongoRepository) col(ctx context.Context) (*mongo.Collection, error) {
	db, err := r.db(ctx)
	if err != nil {
		return nil, err
	}
	return db.Collection(Collection), nil
}

// EnsureIndexes adds a TTL index so the server drops idle sessions on its own.
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	col, err := r.col(ctx)
	if err != nil {
		return err
	}
	_, err = col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "expiresAt", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0),
	})
	return err
}

func (r *MongoRepository) Create(ctx context.Context, s *Session) error {
	col, err := r.col(ctx)
	if err != nil {
		return err
	}
	_, err = col.InsertOne(ctx, s)
	return err
}

func (r *MongoRepository) Get(ctx context.Context, id string) (*Session, error) {
	col, err := r.col(ctx)
	if err != nil {
		return nil, err
	}
	var s Session
	if err := col.FindOne(ctx, bson.M{"_id": id}).Decode(&s); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

func (r *MongoRepository) Touch(ctx context.Context, id string, seen, expires time.Time) error {
	col, err := r.col(ctx)
	if err != nil {
		return err
	}
	_, err = col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"lastSeenAt": seen, "expiresAt": expires}})
	return err
}

func (r *MongoRepository) Delete(ctx context.Context, id string) error {
	col, err := r.col(ctx)
	if err != nil {
		return err
	}
	_, err = col.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

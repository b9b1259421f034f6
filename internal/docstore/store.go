// Package docstore executes the primitive document operations against a backing store.
package docstore

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
)

// FindOptions are passed to the store verbatim.
type FindOptions struct {
	Sort       bson.D
	Limit      int64
	Skip       int64
	Projection bson.D
}

// UpdateResult carries the raw counts reported by the store.
type UpdateResult struct {
	Acknowledged  bool        `json:"acknowledged"`
	MatchedCount  int64       `json:"matchedCount"`
	ModifiedCount int64       `json:"modifiedCount"`
	UpsertedCount int64       `json:"upsertedCount"`
	UpsertedID    interface{} `json:"upsertedId"`
}

type DeleteResult struct {
	Acknowledged bool  `json:"acknowledged"`
	DeletedCount int64 `json:"deletedCount"`
}

// Store is the backing store of the action dispatcher.
// FindOne returns (nil, nil) when nothing matches.
type Store interface {
	Find(ctx context.Context, collection string, filter bson.M, opts FindOptions) ([]bson.M, error)
	FindOne(ctx context.Context, collection string, filter bson.M, projection bson.D) (bson.M, error)
	InsertOne(ctx context.Context, collection string, doc bson.M) (interface{}, error)
	UpdateOne(ctx context.Context, collection string, filter bson.M, set bson.M) (UpdateResult, error)
	DeleteOne(ctx context.Context, collection string, filter bson.M) (DeleteResult, error)
	Count(ctx context.Context, collection string, filter bson.M) (int64, error)
}

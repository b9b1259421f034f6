package docstore

import (
	"context"
	"errors"

	"github.com/sachtalks/sachtalks-api/internal/database"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore runs operations on the database held by a connection Manager.
// A failed driver call discards the client it ran on; the next call redials.
type MongoStore struct {
	mgr *database.Manager
}

func NewMongoStore(mgr *database.Manager) *MongoStore {
	return &MongoStore{mgr: mgr}
}

func (s *MongoStore) col(ctx context.Context, name string) (*mongo.Collection, error) {
	db, err := s.mgr.Database(ctx)
	if err != nil {
		return nil, err
	}
	return db.Collection(name), nil
}

func (s *MongoStore) Find(ctx context.Context, collection string, filter bson.M, o FindOptions) ([]bson.M, error) {
	col, err := s.col(ctx, collection)
	if err != nil {
		return nil, err
	}
	opts := options.Find()
	if len(o.Sort) > 0 {
		opts.SetSort(o.Sort)
	}
	if o.Limit > 0 {
		opts.SetLimit(o.Limit)
	}
	if o.Skip > 0 {
		opts.SetSkip(o.Skip)
	}
	if len(o.Projection) > 0 {
		opts.SetProjection(o.Projection)
	}
	cur, err := col.Find(ctx, orEmpty(filter), opts)
	if err != nil {
		return nil, s.failed(col, err)
	}
	out := []bson.M{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, s.failed(col, err)
	}
	return out, nil
}

func (s *MongoStore) FindOne(ctx context.Context, collection string, filter bson.M, projection bson.D) (bson.M, error) {
	col, err := s.col(ctx, collection)
	if err != nil {
		return nil, err
	}
	opts := options.FindOne()
	if len(projection) > 0 {
		opts.SetProjection(projection)
	}
	var doc bson.M
	err = col.FindOne(ctx, orEmpty(filter), opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, s.failed(col, err)
	}
	return doc, nil
}

func (s *MongoStore) InsertOne(ctx context.Context, collection string, doc bson.M) (interface{}, error) {
	col, err := s.col(ctx, collection)
	if err != nil {
		return nil, err
	}
	res, err := col.InsertOne(ctx, doc)
	if err != nil {
		return nil, s.failed(col, err)
	}
	return res.InsertedID, nil
}

func (s *MongoStore) UpdateOne(ctx context.Context, collection string, filter bson.M, set bson.M) (UpdateResult, error) {
	col, err := s.col(ctx, collection)
	if err != nil {
		return UpdateResult{}, err
	}
	res, err := col.UpdateOne(ctx, orEmpty(filter), bson.M{"$set": set})
	if errors.Is(err, mongo.ErrUnacknowledgedWrite) {
		return UpdateResult{Acknowledged: false}, nil
	}
	if err != nil {
		return UpdateResult{}, s.failed(col, err)
	}
	return UpdateResult{
		Acknowledged:  true,
		MatchedCount:  res.MatchedCount,
		ModifiedCount: res.ModifiedCount,
		UpsertedCount: res.UpsertedCount,
		UpsertedID:    res.UpsertedID,
	}, nil
}

func (s *MongoStore) DeleteOne(ctx context.Context, collection string, filter bson.M) (DeleteResult, error) {
	col, err := s.col(ctx, collection)
	if err != nil {
		return DeleteResult{}, err
	}
	res, err := col.DeleteOne(ctx, orEmpty(filter))
	if errors.Is(err, mongo.ErrUnacknowledgedWrite) {
		return DeleteResult{Acknowledged: false}, nil
	}
	if err != nil {
		return DeleteResult{}, s.failed(col, err)
	}
	return DeleteResult{Acknowledged: true, DeletedCount: res.DeletedCount}, nil
}

func (s *MongoStore) Count(ctx context.Context, collection string, filter bson.M) (int64, error) {
	col, err := s.col(ctx, collection)
	if err != nil {
		return 0, err
	}
	n, err := col.CountDocuments(ctx, orEmpty(filter))
	if err != nil {
		return 0, s.failed(col, err)
	}
	return n, nil
}

func (s *MongoStore) failed(col *mongo.Collection, err error) error {
	s.mgr.Discard(col.Database().Client())
	return err
}

func orEmpty(f bson.M) bson.M {
	if f == nil {
		return bson.M{}
	}
	return f
}

package docstore

import (
	"context"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sachtalks/sachtalks-api/internal/config"
	"github.com/sachtalks/sachtalks-api/internal/database"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Runs against a live server only when MONGODB_TEST_URI is set.
func TestMongoStore_Integration(t *testing.T) {
	uri := os.Getenv("MONGODB_TEST_URI")
	if uri == "" || testing.Short() {
		t.Skip("MONGODB_TEST_URI not set")
	}
	ctx := context.Background()
	mgr := database.NewManager(config.MongoDBConfig{URI: uri, Database: "sachtalks_it"})
	defer mgr.Close(ctx)
	s := NewMongoStore(mgr)

	db, err := mgr.Database(ctx)
	require.NoError(t, err)
	require.NoError(t, db.Collection("it_docs").Drop(ctx))

	id, err := s.InsertOne(ctx, "it_docs", bson.M{"name": "first", "n": 1})
	require.NoError(t, err)

	got, err := s.FindOne(ctx, "it_docs", bson.M{"_id": id}, nil)
	require.NoError(t, err)
	require.Equal(t, "first", got["name"])

	res, err := s.UpdateOne(ctx, "it_docs", bson.M{"_id": id}, bson.M{"n": 2})
	require.NoError(t, err)
	require.Equal(t, int64(1), res.MatchedCount)

	n, err := s.Count(ctx, "it_docs", bson.M{"n": 2})
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	del, err := s.DeleteOne(ctx, "it_docs", bson.M{"_id": id})
	require.NoError(t, err)
	require.Equal(t, int64(1), del.DeletedCount)

	none, err := s.FindOne(ctx, "it_docs", bson.M{"_id": id}, nil)
	require.NoError(t, err)
	require.Nil(t, none)
}

func TestMongoStore_FailedCallDiscardsClient(t *testing.T) {
	var dials int32
	cfg := config.MongoDBConfig{URI: "mongodb://127.0.0.1:1", Database: "sachtalks_test"}
	mgr := database.NewManager(cfg, database.WithDialer(func(ctx context.Context, cfg config.MongoDBConfig) (*mongo.Client, error) {
		atomic.AddInt32(&dials, 1)
		return mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI).SetServerSelectionTimeout(100*time.Millisecond))
	}))
	defer mgr.Close(context.Background())
	s := NewMongoStore(mgr)

	_, err := s.Count(context.Background(), "it_docs", nil)
	require.Error(t, err)
	require.Equal(t, int32(1), atomic.LoadInt32(&dials))

	_, err = mgr.Database(context.Background())
	require.NoError(t, err)
	require.Equal(t, int32(2), atomic.LoadInt32(&dials))
}

package docstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func seed(t *testing.T, m *MemoryStore, docs ...bson.M) []primitive.ObjectID {
	t.Helper()
	ids := make([]primitive.ObjectID, 0, len(docs))
	for _, d := range docs {
		id, err := m.InsertOne(context.Background(), "blogs", d)
		require.NoError(t, err)
		ids = append(ids, id.(primitive.ObjectID))
	}
	return ids
}

func TestMemoryStore_InsertAssignsID(t *testing.T) {
	m := NewMemoryStore()
	in := bson.M{"title": "a"}
	id, err := m.InsertOne(context.Background(), "blogs", in)
	require.NoError(t, err)
	require.IsType(t, primitive.ObjectID{}, id)
	_, hasID := in["_id"]
	assert.False(t, hasID, "caller's document must not be mutated")

	got, err := m.FindOne(context.Background(), "blogs", bson.M{"_id": id}, nil)
	require.NoError(t, err)
	require.Equal(t, "a", got["title"])
}

func TestMemoryStore_FindOneNoMatchIsNil(t *testing.T) {
	m := NewMemoryStore()
	got, err := m.FindOne(context.Background(), "blogs", bson.M{"slug": "missing"}, nil)
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestMemoryStore_FilterOperators(t *testing.T) {
	m := NewMemoryStore()
	seed(t, m,
		bson.M{"slug": "a", "published": true},
		bson.M{"slug": "b", "published": true, "deleted": true},
		bson.M{"slug": "c", "published": false},
	)
	ctx := context.Background()

	got, err := m.Find(ctx, "blogs", bson.M{"published": true, "deleted": bson.M{"$ne": true}}, FindOptions{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "a", got[0]["slug"])

	got, err = m.Find(ctx, "blogs", bson.M{"deleted": map[string]interface{}{"$exists": true}}, FindOptions{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "b", got[0]["slug"])

	got, err = m.Find(ctx, "blogs", bson.M{"slug": bson.M{"$in": []interface{}{"a", "c"}}}, FindOptions{})
	require.NoError(t, err)
	require.Len(t, got, 2)

	_, err = m.Find(ctx, "blogs", bson.M{"slug": bson.M{"$regex": "a"}}, FindOptions{})
	require.Error(t, err)
}

func TestMemoryStore_SortLimitSkipProjection(t *testing.T) {
	m := NewMemoryStore()
	seed(t, m,
		bson.M{"slug": "old", "createdAt": "2024-01-01T00:00:00.000Z", "content": "x"},
		bson.M{"slug": "new", "createdAt": "2024-03-01T00:00:00.000Z", "content": "y"},
		bson.M{"slug": "mid", "createdAt": "2024-02-01T00:00:00.000Z", "content": "z"},
	)
	ctx := context.Background()

	got, err := m.Find(ctx, "blogs", nil, FindOptions{Sort: bson.D{{Key: "createdAt", Value: int32(-1)}}})
	require.NoError(t, err)
	require.Equal(t, []interface{}{"new", "mid", "old"}, []interface{}{got[0]["slug"], got[1]["slug"], got[2]["slug"]})

	got, err = m.Find(ctx, "blogs", nil, FindOptions{
		Sort:       bson.D{{Key: "createdAt", Value: 1}},
		Skip:       1,
		Limit:      1,
		Projection: bson.D{{Key: "slug", Value: 1}},
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "mid", got[0]["slug"])
	require.Contains(t, got[0], "_id")
	require.NotContains(t, got[0], "content")

	got, err = m.Find(ctx, "blogs", nil, FindOptions{Projection: bson.D{{Key: "content", Value: 0}}})
	require.NoError(t, err)
	require.Len(t, got, 3)
	require.NotContains(t, got[0], "content")
	require.Contains(t, got[0], "slug")
}

func TestMemoryStore_UpdateIsPartialMerge(t *testing.T) {
	m := NewMemoryStore()
	ids := seed(t, m, bson.M{"title": "t", "published": false})
	ctx := context.Background()

	res, err := m.UpdateOne(ctx, "blogs", bson.M{"_id": ids[0]}, bson.M{"published": true})
	require.NoError(t, err)
	require.Equal(t, UpdateResult{Acknowledged: true, MatchedCount: 1, ModifiedCount: 1}, res)

	got, _ := m.FindOne(ctx, "blogs", bson.M{"_id": ids[0]}, nil)
	require.Equal(t, "t", got["title"])
	require.Equal(t, true, got["published"])

	// same value again matches but modifies nothing
	res, err = m.UpdateOne(ctx, "blogs", bson.M{"_id": ids[0]}, bson.M{"published": true})
	require.NoError(t, err)
	require.Equal(t, int64(1), res.MatchedCount)
	require.Equal(t, int64(0), res.ModifiedCount)

	res, err = m.UpdateOne(ctx, "blogs", bson.M{"_id": primitive.NilObjectID}, bson.M{"published": true})
	require.NoError(t, err)
	require.Equal(t, int64(0), res.MatchedCount)
}

func TestMemoryStore_DeleteAndCount(t *testing.T) {
	m := NewMemoryStore()
	ids := seed(t, m, bson.M{"n": 1}, bson.M{"n": 2})
	ctx := context.Background()

	n, err := m.Count(ctx, "blogs", bson.M{})
	require.NoError(t, err)
	require.Equal(t, int64(2), n)

	res, err := m.DeleteOne(ctx, "blogs", bson.M{"_id": ids[0]})
	require.NoError(t, err)
	require.Equal(t, DeleteResult{Acknowledged: true, DeletedCount: 1}, res)

	res, err = m.DeleteOne(ctx, "blogs", bson.M{"_id": ids[0]})
	require.NoError(t, err)
	require.Equal(t, int64(0), res.DeletedCount)

	n, err = m.Count(ctx, "blogs", bson.M{"n": float64(2)})
	require.NoError(t, err)
	require.Equal(t, int64(1), n, "numbers compare across int and float")
}

func TestMemoryStore_DuplicateID(t *testing.T) {
	m := NewMemoryStore()
	id := primitive.NewObjectID()
	_, err := m.InsertOne(context.Background(), "c", bson.M{"_id": id})
	require.NoError(t, err)
	_, err = m.InsertOne(context.Background(), "c", bson.M{"_id": id})
	require.ErrorContains(t, err, "duplicate key")
}

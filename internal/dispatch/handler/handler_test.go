package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sachtalks/sachtalks-api/internal/config"
	"github.com/sachtalks/sachtalks-api/internal/database"
	"github.com/sachtalks/sachtalks-api/internal/dispatch"
	"github.com/sachtalks/sachtalks-api/internal/docstore"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

// watchedStore counts every store call.
type watchedStore struct {
	docstore.Store
	calls int
}

func (s *watchedStore) Find(ctx context.Context, c string, f bson.M, o docstore.FindOptions) ([]bson.M, error) {
	s.calls++
	return s.Store.Find(ctx, c, f, o)
}

func (s *watchedStore) FindOne(ctx context.Context, c string, f bson.M, p bson.D) (bson.M, error) {
	s.calls++
	return s.Store.FindOne(ctx, c, f, p)
}

func (s *watchedStore) InsertOne(ctx context.Context, c string, d bson.M) (interface{}, error) {
	s.calls++
	return s.Store.InsertOne(ctx, c, d)
}

func (s *watchedStore) UpdateOne(ctx context.Context, c string, f, set bson.M) (docstore.UpdateResult, error) {
	s.calls++
	return s.Store.UpdateOne(ctx, c, f, set)
}

func (s *watchedStore) DeleteOne(ctx context.Context, c string, f bson.M) (docstore.DeleteResult, error) {
	s.calls++
	return s.Store.DeleteOne(ctx, c, f)
}

func (s *watchedStore) Count(ctx context.Context, c string, f bson.M) (int64, error) {
	s.calls++
	return s.Store.Count(ctx, c, f)
}

func setup(store docstore.Store) *gin.Engine {
	gin.SetMode(gin.TestMode)
	g := gin.New()
	RegisterDispatchRoutes(g, dispatch.New(store))
	return g
}

func post(g *gin.Engine, path, body string) (*httptest.ResponseRecorder, map[string]json.RawMessage) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	g.ServeHTTP(w, req)
	var env map[string]json.RawMessage
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	return w, env
}

func TestDispatchHandler_EnvelopeForEveryAction(t *testing.T) {
	store := &watchedStore{Store: docstore.NewMemoryStore()}
	g := setup(store)

	w, env := post(g, "/api/mongodb-api", `{"action":"insertOne","collection":"test_collection","data":{"message":"hi"}}`)
	require.Equal(t, http.StatusOK, w.Code)
	var inserted struct {
		ID      string `json:"_id"`
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(env["data"], &inserted))
	require.Len(t, inserted.ID, 24)
	require.Equal(t, "hi", inserted.Message)

	bodies := []string{
		`{"action":"find","collection":"test_collection","options":{"sort":{"message":1},"limit":10}}`,
		`{"action":"findOne","collection":"test_collection","query":{"_id":"` + inserted.ID + `"}}`,
		`{"action":"updateOne","collection":"test_collection","query":{"_id":"` + inserted.ID + `"},"data":{"message":"bye"}}`,
		`{"action":"count","collection":"test_collection"}`,
		`{"action":"deleteOne","collection":"test_collection","query":{"_id":{"$oid":"` + inserted.ID + `"}}}`,
	}
	for _, b := range bodies {
		w, env := post(g, "/mongodb-api", b)
		require.Equal(t, http.StatusOK, w.Code, b)
		require.JSONEq(t, "true", string(env["success"]))
		require.Contains(t, env, "data")
		require.NotContains(t, env, "error")
	}
	require.Equal(t, 6, store.calls)

	w, env = post(g, "/mongodb-api", `{"action":"aggregate","collection":"test_collection"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.JSONEq(t, "false", string(env["success"]))
	require.JSONEq(t, `"Unknown action: aggregate"`, string(env["error"]))
	require.NotContains(t, env, "data")
	require.Equal(t, 6, store.calls, "unknown action must not reach the store")
}

func TestDispatchHandler_UpdateResultShape(t *testing.T) {
	g := setup(docstore.NewMemoryStore())
	_, env := post(g, "/mongodb-api", `{"action":"updateOne","collection":"c","query":{"_id":"000000000000000000000000"},"data":{"x":1}}`)
	var res map[string]interface{}
	require.NoError(t, json.Unmarshal(env["data"], &res))
	require.Equal(t, float64(0), res["matchedCount"])
	require.Equal(t, true, res["acknowledged"])
	require.Contains(t, res, "modifiedCount")
	require.Contains(t, res, "upsertedId")
}

func TestDispatchHandler_MissingFields(t *testing.T) {
	store := &watchedStore{Store: docstore.NewMemoryStore()}
	g := setup(store)
	w, env := post(g, "/mongodb-api", `{"action":"find"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.JSONEq(t, `"Missing required fields: action, collection"`, string(env["error"]))
	require.Equal(t, 0, store.calls)
}

func TestDispatchHandler_MethodNotAllowed(t *testing.T) {
	g := setup(docstore.NewMemoryStore())
	for _, m := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
		w := httptest.NewRecorder()
		g.ServeHTTP(w, httptest.NewRequest(m, "/api/mongodb-api", nil))
		require.Equal(t, http.StatusMethodNotAllowed, w.Code)
		require.Equal(t, "POST", w.Header().Get("Allow"))
	}
}

func TestDispatchHandler_MisconfiguredStore(t *testing.T) {
	store := docstore.NewMongoStore(database.NewManager(config.MongoDBConfig{}))
	g := setup(store)
	w, env := post(g, "/mongodb-api", `{"action":"count","collection":"blogs"}`)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.JSONEq(t, `"MONGODB_URI or DB_NAME is not configured"`, string(env["error"]))
}

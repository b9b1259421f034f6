package youtube

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/sachtalks/sachtalks-api/pkg/apperrors"
	"github.com/sachtalks/sachtalks-api/pkg/metrics"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	vids  []Video
	err   error
	calls int
}

func (s *stubSource) Videos(context.Context) ([]Video, error) {
	s.calls++
	return s.vids, s.err
}

func serve(src Source, method, path string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	g := gin.New()
	RegisterRoutes(g, src)
	w := httptest.NewRecorder()
	g.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestHandler_EmptyPlaylist(t *testing.T) {
	_, srv := newFakeAPI(t, map[string]string{"channels": channelsOK, "playlistItems": `{"items":[]}`})
	w := serve(clientFor(srv.URL), http.MethodGet, "/api/youtube")
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"videos":[]}`, w.Body.String())
}

func TestHandler_ErrorBodies(t *testing.T) {
	w := serve(&stubSource{err: apperrors.Configuration("YouTube API key is not configured on the server. Please set YOUTUBE_API_KEY.")}, http.MethodGet, "/youtube")
	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.JSONEq(t, `{"error":"YouTube API key is not configured on the server. Please set YOUTUBE_API_KEY."}`, w.Body.String())

	w = serve(&stubSource{err: errors.New("boom")}, http.MethodGet, "/api/youtube")
	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.Contains(t, w.Body.String(), "Failed to load YouTube videos")
	require.NotContains(t, w.Body.String(), "boom")
}

func TestHandler_MethodNotAllowed(t *testing.T) {
	w := serve(&stubSource{}, http.MethodPost, "/api/youtube")
	require.Equal(t, http.StatusMethodNotAllowed, w.Code)
	require.Equal(t, http.MethodGet, w.Header().Get("Allow"))
	require.JSONEq(t, `{"error":"Method not allowed. Use GET /api/youtube"}`, w.Body.String())
}

func TestCachedSource_ReadThrough(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	src := &stubSource{vids: []Video{{VideoID: "a", Title: "A"}}}
	cached := NewCachedSource(src, rdb, time.Minute)

	hits := testutil.ToFloat64(metrics.CacheLookups.WithLabelValues("youtube", "hit"))
	for i := 0; i < 3; i++ {
		vids, err := cached.Videos(context.Background())
		require.NoError(t, err)
		require.Equal(t, "a", vids[0].VideoID)
	}
	require.Equal(t, 1, src.calls)
	require.Equal(t, hits+2, testutil.ToFloat64(metrics.CacheLookups.WithLabelValues("youtube", "hit")))

	mr.FastForward(2 * time.Minute)
	_, err := cached.Videos(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, src.calls)
}

func TestCachedSource_ErrorsNotCached(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	src := &stubSource{err: apperrors.Upstream(nil, "down")}
	cached := NewCachedSource(src, rdb, time.Minute)

	_, err := cached.Videos(context.Background())
	require.Error(t, err)
	require.False(t, mr.Exists(cacheKey))

	src.err, src.vids = nil, []Video{}
	vids, err := cached.Videos(context.Background())
	require.NoError(t, err)
	require.Empty(t, vids)
	require.Equal(t, 2, src.calls)
}

func TestCachedSource_RedisDownFallsThrough(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	mr.Close()
	src := &stubSource{vids: []Video{{VideoID: "a"}}}

	vids, err := NewCachedSource(src, rdb, time.Minute).Videos(context.Background())
	require.NoError(t, err)
	require.Len(t, vids, 1)
}

package database

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sachtalks/sachtalks-api/internal/config"
	"github.com/sachtalks/sachtalks-api/pkg/apperrors"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var testCfg = config.MongoDBConfig{URI: "mongodb://127.0.0.1:1", Database: "sachtalks_test"}

// lazyClient builds a client without contacting a server; the driver connects lazily.
func lazyClient(t *testing.T) *mongo.Client {
	t.Helper()
	c, err := mongo.Connect(context.Background(), options.Client().ApplyURI(testCfg.URI))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Disconnect(context.Background()) })
	return c
}

func TestManager_MissingConfigNeverDials(t *testing.T) {
	var dials int32
	m := NewManager(config.MongoDBConfig{URI: "mongodb://x"}, WithDialer(func(ctx context.Context, cfg config.MongoDBConfig) (*mongo.Client, error) {
		atomic.AddInt32(&dials, 1)
		return nil, errors.New("unreachable")
	}))

	for i := 0; i < 3; i++ {
		_, err := m.Database(context.Background())
		require.Error(t, err)
		require.True(t, apperrors.Is(err, apperrors.KindConfiguration))
	}
	require.Equal(t, int32(0), atomic.LoadInt32(&dials))
}

func TestManager_ReusesCachedClient(t *testing.T) {
	var dials int32
	client := lazyClient(t)
	m := NewManager(testCfg, WithDialer(func(ctx context.Context, cfg config.MongoDBConfig) (*mongo.Client, error) {
		atomic.AddInt32(&dials, 1)
		return client, nil
	}))

	db1, err := m.Database(context.Background())
	require.NoError(t, err)
	db2, err := m.Database(context.Background())
	require.NoError(t, err)

	require.Equal(t, "sachtalks_test", db1.Name())
	require.Same(t, db1.Client(), db2.Client())
	require.Equal(t, int32(1), atomic.LoadInt32(&dials))
}

func TestManager_ConcurrentCallersShareOneDial(t *testing.T) {
	var dials int32
	release := make(chan struct{})
	client := lazyClient(t)
	m := NewManager(testCfg, WithDialer(func(ctx context.Context, cfg config.MongoDBConfig) (*mongo.Client, error) {
		atomic.AddInt32(&dials, 1)
		<-release
		return client, nil
	}))

	const callers = 16
	var wg sync.WaitGroup
	results := make([]*mongo.Client, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			db, err := m.Database(context.Background())
			if err == nil {
				results[i] = db.Client()
			}
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	require.Equal(t, int32(1), atomic.LoadInt32(&dials))
	for _, c := range results {
		require.Same(t, client, c)
	}
}

func TestManager_RetriesExactlyOnceOnDialFailure(t *testing.T) {
	var dials int32
	client := lazyClient(t)
	m := NewManager(testCfg, WithDialer(func(ctx context.Context, cfg config.MongoDBConfig) (*mongo.Client, error) {
		if atomic.AddInt32(&dials, 1) == 1 {
			return nil, errors.New("server selection timeout")
		}
		return client, nil
	}))

	db, err := m.Database(context.Background())
	require.NoError(t, err)
	require.Same(t, client, db.Client())
	require.Equal(t, int32(2), atomic.LoadInt32(&dials))
}

func TestManager_SurfacesSecondFailure(t *testing.T) {
	var dials int32
	m := NewManager(testCfg, WithDialer(func(ctx context.Context, cfg config.MongoDBConfig) (*mongo.Client, error) {
		atomic.AddInt32(&dials, 1)
		return nil, errors.New("tls handshake failed")
	}))

	_, err := m.Database(context.Background())
	require.EqualError(t, err, "tls handshake failed")
	require.Equal(t, int32(2), atomic.LoadInt32(&dials))

	// a later call starts over rather than replaying the cached failure
	_, err = m.Database(context.Background())
	require.Error(t, err)
	require.Equal(t, int32(4), atomic.LoadInt32(&dials))
}

func TestManager_InvalidateForcesRedial(t *testing.T) {
	var dials int32
	m := NewManager(testCfg, WithDialer(func(ctx context.Context, cfg config.MongoDBConfig) (*mongo.Client, error) {
		atomic.AddInt32(&dials, 1)
		return lazyClient(t), nil
	}))

	first, err := m.Database(context.Background())
	require.NoError(t, err)
	m.Invalidate()
	second, err := m.Database(context.Background())
	require.NoError(t, err)

	require.NotSame(t, first.Client(), second.Client())
	require.Equal(t, int32(2), atomic.LoadInt32(&dials))
}

func TestManager_ConcurrentCallersShareTheRetry(t *testing.T) {
	var dials int32
	client := lazyClient(t)
	m := NewManager(testCfg, WithDialer(func(ctx context.Context, cfg config.MongoDBConfig) (*mongo.Client, error) {
		if atomic.AddInt32(&dials, 1) == 1 {
			time.Sleep(50 * time.Millisecond)
			return nil, errors.New("server selection timeout")
		}
		return client, nil
	}))

	const callers = 8
	var wg sync.WaitGroup
	results := make([]*mongo.Client, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			db, err := m.Database(context.Background())
			errs[i] = err
			if err == nil {
				results[i] = db.Client()
			}
		}(i)
	}
	wg.Wait()

	require.Equal(t, int32(2), atomic.LoadInt32(&dials))
	for i := range results {
		require.NoError(t, errs[i])
		require.Same(t, client, results[i])
	}
	require.Same(t, client, m.cached())
}

func TestManager_DiscardOnlyDropsTheFailedClient(t *testing.T) {
	var dials int32
	m := NewManager(testCfg, WithDialer(func(ctx context.Context, cfg config.MongoDBConfig) (*mongo.Client, error) {
		atomic.AddInt32(&dials, 1)
		return lazyClient(t), nil
	}))

	first, err := m.Database(context.Background())
	require.NoError(t, err)
	failed := first.Client()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Discard(failed)
			_, _ = m.Database(context.Background())
		}()
	}
	wg.Wait()

	live := m.cached()
	require.NotNil(t, live)
	require.NotSame(t, failed, live)
	require.Equal(t, int32(2), atomic.LoadInt32(&dials))

	// a stale discard leaves the replacement in place
	m.Discard(failed)
	require.Same(t, live, m.cached())
}

func TestManager_StoreKeepsTheLiveClient(t *testing.T) {
	live, extra := lazyClient(t), lazyClient(t)
	m := NewManager(testCfg)
	require.Same(t, live, m.store(live))
	require.Same(t, live, m.store(extra))
	require.Same(t, live, m.cached())
}

func TestClientOptions_CapsPool(t *testing.T) {
	opts := ClientOptions(config.MongoDBConfig{URI: "mongodb://localhost:27017"})
	require.NotNil(t, opts.MaxPoolSize)
	require.Equal(t, uint64(1), *opts.MaxPoolSize)
	require.Equal(t, 5*time.Second, *opts.ServerSelectionTimeout)
	require.Equal(t, 10*time.Second, *opts.ConnectTimeout)
	require.Nil(t, opts.TLSConfig)

	tlsOpts := ClientOptions(config.MongoDBConfig{URI: "mongodb://localhost:27017", TLS: true})
	require.NotNil(t, tlsOpts.TLSConfig)
}

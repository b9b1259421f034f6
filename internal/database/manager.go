package database

import (
	"context"
	"sync"
	"time"

	"github.com/sachtalks/sachtalks-api/internal/config"
	"github.com/sachtalks/sachtalks-api/pkg/apperrors"
	"github.com/sachtalks/sachtalks-api/pkg/logger"
	"github.com/sachtalks/sachtalks-api/pkg/metrics"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"golang.org/x/sync/singleflight"
)

// Dialer opens a verified client for the given configuration.
type Dialer func(ctx context.Context, cfg config.MongoDBConfig) (*mongo.Client, error)

// Manager owns the one cached client of the process.
// The client is dialed lazily on first use and reused until it is discarded;
// callers arriving while a dial is in flight wait for that same dial.
type Manager struct {
	cfg   config.MongoDBConfig
	dial  Dialer
	group singleflight.Group

	mu     sync.Mutex
	client *mongo.Client
}

type Option func(*Manager)

// WithDialer replaces the default ConnectMongo dialer.
func WithDialer(d Dialer) Option {
	return func(m *Manager) { m.dial = d }
}

func NewManager(cfg config.MongoDBConfig, opts ...Option) *Manager {
	m := &Manager{cfg: cfg, dial: ConnectMongo}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Configured reports whether both the URI and the database name are set.
func (m *Manager) Configured() bool {
	return m.cfg.URI != "" && m.cfg.Database != ""
}

// Database returns the target database on the cached client, dialing when needed.
// A failed dial is retried exactly once inside the shared flight, so every waiter
// observes the same two attempts and the same result.
func (m *Manager) Database(ctx context.Context) (*mongo.Database, error) {
	if !m.Configured() {
		return nil, apperrors.Configuration("MONGODB_URI or DB_NAME is not configured")
	}
	client, err := m.acquire(ctx)
	if err != nil {
		return nil, err
	}
	return client.Database(m.cfg.Database), nil
}

func (m *Manager) cached() *mongo.Client {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.client
}

func (m *Manager) acquire(ctx context.Context) (*mongo.Client, error) {
	if c := m.cached(); c != nil {
		return c, nil
	}
	// the dial is shared, so it must not die with the first caller's request
	dialCtx := context.WithoutCancel(ctx)
	v, err, _ := m.group.Do("connect", func() (interface{}, error) {
		if c := m.cached(); c != nil {
			return c, nil
		}
		c, err := m.connect(dialCtx)
		if err != nil {
			logger.Warnf("document store unavailable, reconnecting once: %v", err)
			c, err = m.connect(dialCtx)
		}
		if err != nil {
			return nil, err
		}
		return m.store(c), nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*mongo.Client), nil
}

func (m *Manager) connect(ctx context.Context) (*mongo.Client, error) {
	start := time.Now()
	c, err := m.dial(ctx, m.cfg)
	if err != nil {
		metrics.StoreConnects.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.StoreConnects.WithLabelValues("success").Inc()
	logger.Infof("connected to document store (database=%s) in %s", m.cfg.Database, time.Since(start).Round(time.Millisecond))
	return c, nil
}

// store caches c unless another client is already live, in which case c is
// disconnected and the live one returned.
func (m *Manager) store(c *mongo.Client) *mongo.Client {
	m.mu.Lock()
	live := m.client
	if live == nil {
		m.client = c
	}
	m.mu.Unlock()
	if live != nil && live != c {
		disconnect(c)
		return live
	}
	return c
}

// Discard drops c if it is still the cached client. A client that was already
// replaced is left alone, so concurrent failures on one connection cause one redial.
func (m *Manager) Discard(c *mongo.Client) {
	if c == nil {
		return
	}
	m.mu.Lock()
	if m.client != c {
		m.mu.Unlock()
		return
	}
	m.client = nil
	m.mu.Unlock()
	disconnect(c)
}

// Invalidate drops whatever client is cached so the next call dials a fresh one.
func (m *Manager) Invalidate() {
	m.Discard(m.cached())
}

func disconnect(c *mongo.Client) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = c.Disconnect(ctx)
	}()
}

// Ping verifies the store is reachable, dialing if needed.
func (m *Manager) Ping(ctx context.Context) error {
	db, err := m.Database(ctx)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return db.Client().Ping(ctx, readpref.Primary())
}

// Close disconnects the cached client, if any.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	c := m.client
	m.client = nil
	m.mu.Unlock()
	if c == nil {
		return nil
	}
	return c.Disconnect(ctx)
}

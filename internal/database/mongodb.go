package database

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/sachtalks/sachtalks-api/internal/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// ClientOptions builds the driver options for a single-connection client.
// The pool is capped (1 by default) so one process never holds more than one live connection.
func ClientOptions(cfg config.MongoDBConfig) *options.ClientOptions {
	opts := options.Client().
		ApplyURI(cfg.URI).
		SetServerSelectionTimeout(orDefault(cfg.ServerSelectionTimeout, 5*time.Second)).
		SetConnectTimeout(orDefault(cfg.ConnectTimeout, 10*time.Second)).
		SetSocketTimeout(orDefault(cfg.SocketTimeout, 45*time.Second)).
		SetMaxConnIdleTime(orDefault(cfg.MaxConnIdleTime, 30*time.Second)).
		SetMinPoolSize(0).
		SetRetryWrites(true).
		SetRetryReads(true)
	pool := cfg.MaxPoolSize
	if pool == 0 {
		pool = 1
	}
	opts.SetMaxPoolSize(pool)
	if cfg.TLS {
		opts.SetTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12})
	}
	return opts
}

// ConnectMongo opens a connection and returns the client. Caller should call client.Disconnect(ctx).
func ConnectMongo(ctx context.Context, cfg config.MongoDBConfig) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, orDefault(cfg.ConnectTimeout, 10*time.Second))
	defer cancel()
	client, err := mongo.Connect(ctx, ClientOptions(cfg))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return client, nil
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoConfig describes the cart database. Zero fields take the defaults below.
type MongoConfig struct {
	URI                    string
	Database               string
	MaxPoolSize            uint64
	MinPoolSize            uint64
	ConnectTimeout         time.Duration
	ServerSelectionTimeout time.Duration
}

const (
	defaultMongoMaxPool          = 100
	defaultMongoMinPool          = 10
	defaultMongoConnectTimeout   = 10 * time.Second
	defaultMongoSelectionTimeout = 5 * time.Second
)

func (c MongoConfig) withDefaults() MongoConfig {
	if c.MaxPoolSize == 0 {
		c.MaxPoolSize = defaultMongoMaxPool
	}
	if c.MinPoolSize == 0 {
		c.MinPoolSize = defaultMongoMinPool
	}
	if c.MinPoolSize > c.MaxPoolSize {
		c.MinPoolSize = c.MaxPoolSize
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = defaultMongoConnectTimeout
	}
	if c.ServerSelectionTimeout <= 0 {
		c.ServerSelectionTimeout = defaultMongoSelectionTimeout
	}
	return c
}

// ConnectMongoDB opens and pings the cart database. The returned close func
// disconnects the client; on error nothing is left connected.
func ConnectMongoDB(ctx context.Context, cfg MongoConfig) (*mongo.Database, func(context.Context) error, error) {
	cfg = cfg.withDefaults()
	clientOpts := options.Client().
		ApplyURI(cfg.URI).
		SetConnectTimeout(cfg.ConnectTimeout).
		SetServerSelectionTimeout(cfg.ServerSelectionTimeout).
		SetMaxPoolSize(cfg.MaxPoolSize).
		SetMinPoolSize(cfg.MinPoolSize)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		// detached so a cancelled ctx still releases the pool
		_ = client.Disconnect(context.WithoutCancel(ctx))
		return nil, nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return client.Database(cfg.Database), client.Disconnect, nil
}

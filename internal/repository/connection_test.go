package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMongoConfig_Defaults(t *testing.T) {
	cfg := MongoConfig{URI: "mongodb://localhost:27017"}.withDefaults()

	assert.Equal(t, uint64(100), cfg.MaxPoolSize)
	assert.Equal(t, uint64(10), cfg.MinPoolSize)
	assert.Equal(t, 10*time.Second, cfg.ConnectTimeout)
	assert.Equal(t, 5*time.Second, cfg.ServerSelectionTimeout)
}

func TestMongoConfig_KeepsExplicitValues(t *testing.T) {
	cfg := MongoConfig{
		MaxPoolSize:            4,
		MinPoolSize:            8,
		ConnectTimeout:         time.Second,
		ServerSelectionTimeout: 2 * time.Second,
	}.withDefaults()

	assert.Equal(t, uint64(4), cfg.MaxPoolSize)
	assert.Equal(t, uint64(4), cfg.MinPoolSize, "min pool is capped at max pool")
	assert.Equal(t, time.Second, cfg.ConnectTimeout)
	assert.Equal(t, 2*time.Second, cfg.ServerSelectionTimeout)
}

func TestConnectMongoDB_PingFailure(t *testing.T) {
	db, closeFn, err := ConnectMongoDB(context.Background(), MongoConfig{
		URI:                    "mongodb://127.0.0.1:1",
		Database:               "testdb",
		MinPoolSize:            1,
		ServerSelectionTimeout: 100 * time.Millisecond,
		ConnectTimeout:         100 * time.Millisecond,
	})

	require.Error(t, err)
	assert.ErrorContains(t, err, "failed to ping MongoDB")
	assert.Nil(t, db)
	assert.Nil(t, closeFn)
}

func TestConnectMongoDB_InvalidURI(t *testing.T) {
	_, _, err := ConnectMongoDB(context.Background(), MongoConfig{URI: "not-a-uri"})
	assert.ErrorContains(t, err, "failed to connect to MongoDB")
}

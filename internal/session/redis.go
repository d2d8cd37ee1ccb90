package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_storefront/domain"
	"github.com/redis/go-redis/v9"
)

// RedisStore shares checkout state between storefront instances.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{
		client: client,
		ttl:    ttl,
	}
}

func (r *RedisStore) Get(ctx context.Context, userID string) (domain.CheckoutState, error) {
	data, err := r.client.Get(ctx, stateKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.CheckoutState{}, ErrNotFound
	}
	if err != nil {
		return domain.CheckoutState{}, fmt.Errorf("redis get failed: %w", err)
	}
	return decodeState(data)
}

func (r *RedisStore) Put(ctx context.Context, userID string, state domain.CheckoutState) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal checkout state failed: %w", err)
	}
	if err := r.client.Set(ctx, stateKey(userID), payload, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *RedisStore) Replace(ctx context.Context, userID string, state domain.CheckoutState) (bool, error) {
	key := stateKey(userID)
	payload, err := json.Marshal(state)
	if err != nil {
		return false, fmt.Errorf("marshal checkout state failed: %w", err)
	}

	replaced := false
	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return err
		}
		current, err := decodeState(data)
		if err != nil {
			return err
		}
		if current.RunID != state.RunID {
			return nil
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, r.ttl)
			return nil
		})
		if err != nil {
			return err
		}
		replaced = true
		return nil
	}

	err = r.client.Watch(ctx, txf, key)
	if errors.Is(err, redis.TxFailedErr) {
		// the key changed under us: a reset or a newer run won
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis replace failed: %w", err)
	}
	return replaced, nil
}

func (r *RedisStore) Delete(ctx context.Context, userID string) error {
	if err := r.client.Del(ctx, stateKey(userID)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func decodeState(data []byte) (domain.CheckoutState, error) {
	var state domain.CheckoutState
	if err := json.Unmarshal(data, &state); err != nil {
		return domain.CheckoutState{}, fmt.Errorf("unmarshal checkout state failed: %w", err)
	}
	return state, nil
}

func stateKey(userID string) string {
	return fmt.Sprintf("checkout:%s", userID)
}

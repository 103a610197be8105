// Package redis provides a Redis-backed pending-action store for
// multi-instance deployments.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	oa "github.com/panyam/accounts"
)

const pendingKeyPrefix = "pending"

// PendingStore implements oa.PendingStore on Redis.  Expiry is delegated to
// Redis TTLs; Consume uses an optimistic WATCH transaction so that of two
// requests racing on the same token exactly one succeeds.
type PendingStore struct {
	client *redis.Client
	prefix string
}

func NewPendingStore(client *redis.Client) *PendingStore {
	return &PendingStore{client: client, prefix: pendingKeyPrefix}
}

func (s *PendingStore) key(token string) string {
	return s.prefix + ":" + token
}

func (s *PendingStore) Create(action *oa.PendingAction, ttl time.Duration) (string, error) {
	token, err := oa.GenerateSecureToken()
	if err != nil {
		return "", err
	}

	action.Token = token
	action.CreatedAt = time.Now()
	action.ExpiresAt = action.CreatedAt.Add(ttl)

	encoded, err := json.Marshal(action)
	if err != nil {
		return "", fmt.Errorf("error encoding pending action: %w", err)
	}

	ctx := context.Background()
	if err := s.client.Set(ctx, s.key(token), encoded, ttl).Err(); err != nil {
		return "", fmt.Errorf("redis unavailable: %w", err)
	}
	return token, nil
}

func (s *PendingStore) Peek(token string, flow oa.Flow) (*oa.PendingAction, error) {
	ctx := context.Background()
	encoded, err := s.client.Get(ctx, s.key(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, oa.ErrTokenInvalid
	} else if err != nil {
		return nil, fmt.Errorf("redis unavailable: %w", err)
	}
	return decode(encoded, flow)
}

func (s *PendingStore) Consume(token string, flow oa.Flow) (*oa.PendingAction, error) {
	const maxRetries = 4
	ctx := context.Background()
	key := s.key(token)

	for i := 0; i < maxRetries; i++ {
		var matched *oa.PendingAction

		err := s.client.Watch(ctx, func(tx *redis.Tx) error {
			encoded, err := tx.Get(ctx, key).Bytes()
			if errors.Is(err, redis.Nil) {
				return oa.ErrTokenInvalid
			} else if err != nil {
				return fmt.Errorf("redis unavailable: %w", err)
			}

			action, err := decode(encoded, flow)
			if err != nil {
				return err
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Del(ctx, key)
				return nil
			})
			if err != nil {
				return err
			}
			matched = action
			return nil
		}, key)

		if errors.Is(err, redis.TxFailedErr) {
			// Someone else touched the key between GET and DEL; retry.
			// The winner deleted it, so the next round returns ErrTokenInvalid.
			continue
		}
		if err != nil {
			return nil, err
		}
		return matched, nil
	}
	return nil, oa.ErrTokenInvalid
}

func (s *PendingStore) Delete(token string) error {
	ctx := context.Background()
	if err := s.client.Del(ctx, s.key(token)).Err(); err != nil {
		return fmt.Errorf("redis unavailable: %w", err)
	}
	return nil
}

func decode(encoded []byte, flow oa.Flow) (*oa.PendingAction, error) {
	var action oa.PendingAction
	if err := json.Unmarshal(encoded, &action); err != nil {
		return nil, fmt.Errorf("error decoding pending action: %w", err)
	}
	if action.IsExpired() || action.Flow != flow {
		return nil, oa.ErrTokenInvalid
	}
	return &action, nil
}

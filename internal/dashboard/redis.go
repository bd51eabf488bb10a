package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	snapshotKey     = "dashboard:snapshot"
	snapshotChannel = "dashboard.tick"
)

// ErrNoSnapshot is returned before the first snapshot has been published.
var ErrNoSnapshot = errors.New("dashboard: no snapshot published")

// RedisStore keeps the last snapshot in Redis and announces each one on a channel.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore wraps client. A zero ttl keeps the snapshot until replaced.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

// Publish stores snap as the latest snapshot and notifies subscribers.
func (s *RedisStore) Publish(ctx context.Context, snap Snapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("dashboard: encode snapshot: %w", err)
	}
	if err := s.client.Set(ctx, snapshotKey, raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("dashboard: store snapshot: %w", err)
	}
	return s.client.Publish(ctx, snapshotChannel, raw).Err()
}

// Latest returns the last published snapshot.
func (s *RedisStore) Latest(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	raw, err := s.client.Get(ctx, snapshotKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return snap, ErrNoSnapshot
	}
	if err != nil {
		return snap, fmt.Errorf("dashboard: load snapshot: %w", err)
	}
	if err := json.Unmarshal(raw, &snap); err != nil {
		return snap, fmt.Errorf("dashboard: decode snapshot: %w", err)
	}
	return snap, nil
}

// Subscribe delivers published snapshots until ctx is cancelled.
func (s *RedisStore) Subscribe(ctx context.Context) (<-chan Snapshot, error) {
	pubsub := s.client.Subscribe(ctx, snapshotChannel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("dashboard: subscribe: %w", err)
	}
	out := make(chan Snapshot)
	go func() {
		defer close(out)
		defer func() { _ = pubsub.Close() }()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var snap Snapshot
				if err := json.Unmarshal([]byte(msg.Payload), &snap); err != nil {
					continue
				}
				select {
				case out <- snap:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

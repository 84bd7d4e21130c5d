// internal/workers/notification/dispatch-pending/claims.go
package dispatchpending

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ClaimState is the outcome of trying to claim a notification.
type ClaimState int

const (
	// ClaimAcquired means this dispatcher may send.
	ClaimAcquired ClaimState = iota
	// ClaimAlreadySent means the email went out on an earlier pass but the
	// queue was never told; only the mark is retried.
	ClaimAlreadySent
	// ClaimHeld means another dispatcher is sending right now.
	ClaimHeld
)

const (
	claimSending = "sending"
	claimSent    = "sent"
	claimPrefix  = "notification:claim:"
)

// ClaimStore guards against sending the same notification twice across
// passes and concurrent dispatchers.
type ClaimStore interface {
	Acquire(ctx context.Context, id string) (ClaimState, error)
	MarkSent(ctx context.Context, id string) error
	Release(ctx context.Context, id string) error
}

// noopClaimStore always grants the claim.
type noopClaimStore struct{}

func (noopClaimStore) Acquire(context.Context, string) (ClaimState, error) { return ClaimAcquired, nil }
func (noopClaimStore) MarkSent(context.Context, string) error              { return nil }
func (noopClaimStore) Release(context.Context, string) error               { return nil }

// RedisClaimStore keeps one key per notification: "sending" while a send is
// in flight and "sent" once the provider accepted it. Keys expire after ttl.
type RedisClaimStore struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewRedisClaimStore(client redis.Cmdable, ttl time.Duration) *RedisClaimStore {
	return &RedisClaimStore{client: client, ttl: ttl}
}

func claimKey(id string) string {
	return claimPrefix + id
}

func (s *RedisClaimStore) Acquire(ctx context.Context, id string) (ClaimState, error) {
	key := claimKey(id)
	for attempt := 0; attempt < 2; attempt++ {
		ok, err := s.client.SetNX(ctx, key, claimSending, s.ttl).Result()
		if err != nil {
			return ClaimHeld, fmt.Errorf("claim %s: %w", id, err)
		}
		if ok {
			return ClaimAcquired, nil
		}

		val, err := s.client.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			// expired between SETNX and GET
			continue
		}
		if err != nil {
			return ClaimHeld, fmt.Errorf("read claim %s: %w", id, err)
		}
		if val == claimSent {
			return ClaimAlreadySent, nil
		}
		return ClaimHeld, nil
	}
	return ClaimHeld, nil
}

func (s *RedisClaimStore) MarkSent(ctx context.Context, id string) error {
	if err := s.client.Set(ctx, claimKey(id), claimSent, s.ttl).Err(); err != nil {
		return fmt.Errorf("mark claim %s sent: %w", id, err)
	}
	return nil
}

// Release drops a "sending" claim so the next pass can try again.
func (s *RedisClaimStore) Release(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, claimKey(id)).Err(); err != nil {
		return fmt.Errorf("release claim %s: %w", id, err)
	}
	return nil
}

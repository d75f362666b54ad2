package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock key only when it still holds the
// caller's token, so a holder whose TTL expired cannot release a lock
// that has since been re-acquired by someone else.
var releaseScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	end
	return 0
`)

// LockStore handles distributed locking in Redis.
type LockStore struct {
	client *redis.Client
}

// NewLockStore creates a new LockStore.
func NewLockStore(client *redis.Client) *LockStore {
	return &LockStore{client: client}
}

// AcquirePaymentLock attempts to acquire the per-payment lock that
// serializes gateway-facing operations (verify callbacks, refunds)
// before any external call. Returns an owner token on success and ""
// when another holder has the lock.
func (s *LockStore) AcquirePaymentLock(ctx context.Context, paymentID string, ttl time.Duration) (string, error) {
	key := paymentLockKey(paymentID)
	token := uuid.New().String()

	ok, err := s.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return "", err
	}
	if !ok {
		return "", nil
	}

	return token, nil
}

// ReleasePaymentLock releases the per-payment lock, but only if the
// caller's token still owns it.
func (s *LockStore) ReleasePaymentLock(ctx context.Context, paymentID, token string) error {
	return releaseScript.Run(ctx, s.client, []string{paymentLockKey(paymentID)}, token).Err()
}

func paymentLockKey(paymentID string) string {
	return fmt.Sprintf("lock:payment:%s", paymentID)
}

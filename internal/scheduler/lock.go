package scheduler

import (
	"context"
	"errors"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

const lockKeyPrefix = "repairdesk:scheduler:"

// releaseIfOwner deletes the lease only while it still carries our token, so
// a replica whose lease expired cannot drop the lease of its successor.
var releaseIfOwner = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

var (
	ErrLockKeyEmpty   = errors.New("lock_key_empty")
	ErrLockTTLInvalid = errors.New("lock_ttl_invalid")
)

// Locker hands out per-job leases in Redis so only one replica sweeps at a
// time. Tokens look like "<host>/<uuid>" which lets a skipped replica log who
// holds the lease. A nil Locker, or one without a client, grants every lease.
type Locker struct {
	client *redis.Client
	host   string
}

func NewLocker(client *redis.Client) *Locker {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "unknown"
	}
	return &Locker{client: client, host: host}
}

func (l *Locker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	switch {
	case key == "":
		return "", false, ErrLockKeyEmpty
	case ttl <= 0:
		return "", false, ErrLockTTLInvalid
	case l == nil || l.client == nil:
		return "", true, nil
	}

	token := l.host + "/" + uuid.NewString()
	ok, err := l.client.SetNX(ctx, lockKeyPrefix+key, token, ttl).Result()
	if err != nil {
		return "", false, err
	}
	return token, ok, nil
}

// Holder returns the host currently holding the lease on key, or "" when the
// lease is free or unknown.
func (l *Locker) Holder(ctx context.Context, key string) string {
	if l == nil || l.client == nil || key == "" {
		return ""
	}
	token, err := l.client.Get(ctx, lockKeyPrefix+key).Result()
	if err != nil {
		return ""
	}
	host, _, _ := strings.Cut(token, "/")
	return host
}

// Release gives the lease back if token still owns it.
func (l *Locker) Release(ctx context.Context, key, token string) error {
	if l == nil || l.client == nil || key == "" || token == "" {
		return nil
	}
	return releaseIfOwner.Run(ctx, l.client, []string{lockKeyPrefix + key}, token).Err()
}

package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "yamdb:attempts"

// reserveScript takes one attempt and starts the window on the first, so the
// window is fixed from that point and not extended by later attempts.
var reserveScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return count
`)

// AttemptLimiter caps attempts per key in a fixed window.
// Key format: <prefix>:<key>
type AttemptLimiter struct {
	client *redis.Client
	prefix string
	max    int64
	window time.Duration
}

// NewAttemptLimiter allows up to max attempts per key within window.
func NewAttemptLimiter(client *redis.Client, prefix string, max int, window time.Duration) (*AttemptLimiter, error) {
	if client == nil {
		return nil, errors.New("attempt limiter: redis client is required")
	}
	if max <= 0 || window <= 0 {
		return nil, errors.New("attempt limiter: max and window must be positive")
	}
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &AttemptLimiter{client: client, prefix: prefix, max: int64(max), window: window}, nil
}

// Reserve counts an attempt for key and reports whether it fits the limit.
// The count moves before the caller acts, so concurrent attempts cannot all
// slip under the limit.
func (l *AttemptLimiter) Reserve(ctx context.Context, key string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	n, err := reserveScript.Run(ctx, l.client, []string{l.key(key)}, l.window.Milliseconds()).Int64()
	if err != nil {
		return false, fmt.Errorf("attempts reserve: %w", err)
	}
	return n <= l.max, nil
}

// Reset forgets the attempts recorded for key.
func (l *AttemptLimiter) Reset(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	return l.client.Del(ctx, l.key(key)).Err()
}

func (l *AttemptLimiter) key(key string) string {
	return l.prefix + ":" + key
}

package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// LoginThrottle counts failed logins per email inside a rolling window.
// Once the limit is reached, login is refused regardless of credential
// correctness until the window lapses or a successful login resets it.
type LoginThrottle struct {
	rdb    *redis.Client
	limit  int
	window time.Duration
}

// NewLoginThrottle builds a throttle with the given attempt limit and
// window in minutes.
func NewLoginThrottle(rdb *redis.Client, limit, windowMin int) *LoginThrottle {
	return &LoginThrottle{rdb: rdb, limit: limit, window: time.Duration(windowMin) * time.Minute}
}

func failedLoginKey(email string) string {
	return fmt.Sprintf("failed_login:%s", strings.ToLower(strings.TrimSpace(email)))
}

// Fail records one failed attempt and returns the updated count.  The
// window starts at the first failure; later failures do not extend it.
func (t *LoginThrottle) Fail(ctx context.Context, email string) (int64, error) {
	key := failedLoginKey(email)
	n, err := t.rdb.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if n == 1 {
		if err := t.rdb.Expire(ctx, key, t.window).Err(); err != nil {
			return n, err
		}
	}
	return n, nil
}

// Blocked reports whether the email has reached the failure limit.
func (t *LoginThrottle) Blocked(ctx context.Context, email string) (bool, error) {
	raw, err := t.rdb.Get(ctx, failedLoginKey(email)).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	var n int64
	fmt.Sscanf(raw, "%d", &n)
	return n >= int64(t.limit), nil
}

// Reset clears the failure counter, called after a successful login.
func (t *LoginThrottle) Reset(ctx context.Context, email string) error {
	return t.rdb.Del(ctx, failedLoginKey(email)).Err()
}

// RetryAfter returns how long until the lockout window lapses.
func (t *LoginThrottle) RetryAfter(ctx context.Context, email string) (time.Duration, error) {
	return t.rdb.TTL(ctx, failedLoginKey(email)).Result()
}

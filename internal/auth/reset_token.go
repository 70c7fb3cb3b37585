package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// ResetTokenStore holds single-use password-reset tokens in Redis.  Token
// delivery (email) is outside this service; callers hand the token to
// whatever channel they use.
type ResetTokenStore struct {
	rdb *redis.Client
}

func NewResetTokenStore(rdb *redis.Client) *ResetTokenStore {
	return &ResetTokenStore{rdb: rdb}
}

func resetKey(token string) string {
	return fmt.Sprintf("reset_token:%s", token)
}

// Issue generates an opaque token for the user and stores it with the given
// lifetime.
func (s *ResetTokenStore) Issue(ctx context.Context, userID uint64, ttl time.Duration) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	token := hex.EncodeToString(buf)
	if err := s.rdb.Set(ctx, resetKey(token), strconv.FormatUint(userID, 10), ttl).Err(); err != nil {
		return "", err
	}
	return token, nil
}

// Consume resolves a token to its user id and deletes it so it cannot be
// replayed.  An unknown or expired token returns ErrUnauthorized.
func (s *ResetTokenStore) Consume(ctx context.Context, token string) (uint64, error) {
	key := resetKey(token)
	raw, err := s.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return 0, ErrUnauthorized
	}
	if err != nil {
		return 0, err
	}
	userID, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, ErrUnauthorized
	}
	if err := s.rdb.Del(ctx, key).Err(); err != nil {
		return 0, err
	}
	return userID, nil
}

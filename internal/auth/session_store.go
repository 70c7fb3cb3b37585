package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/chikaturin/test-hololab-be/internal/utils"
)

// SessionRecord is the JSON document stored per session under the user's
// session hash.  Field names are a storage contract; existing records must
// keep decoding after deploys.
type SessionRecord struct {
	RefreshToken string           `json:"refresh_token"`
	UserAgent    string           `json:"user_agent"`
	IPAddress    string           `json:"ip_address"`
	DeviceInfo   utils.DeviceInfo `json:"device_info"`
	CreatedAt    time.Time        `json:"created_at"`
	ExpiresAt    time.Time        `json:"expires_at"`
	Revoked      bool             `json:"revoked"`
}

// Session is a record plus its id, as returned by List.  The raw refresh
// token is redacted before a record ever leaves this package.
type Session struct {
	SessionRecord
	SessionID string `json:"session_id"`
}

const redactedToken = "redacted"

// SessionStore keeps one Redis hash per user mapping session id to a JSON
// session record.  Every write refreshes a rolling TTL on the whole hash, so
// stale sessions disappear via expiry rather than explicit cleanup.
// Revocation is always the mark-revoked flag, never field deletion; revoked
// rows stay visible (and auditable) until the TTL reclaims them.
type SessionStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewSessionStore returns a store with the given rolling TTL in days.
func NewSessionStore(rdb *redis.Client, ttlDays int) *SessionStore {
	return &SessionStore{rdb: rdb, ttl: time.Duration(ttlDays) * 24 * time.Hour}
}

func sessionKey(userID uint64) string {
	return fmt.Sprintf("user_sessions:%d", userID)
}

// Create writes a new session record under a fresh opaque session id and
// refreshes the per-user TTL.  Random ids rule out the collisions a
// timestamp id would risk under concurrent logins from one user.
func (s *SessionStore) Create(ctx context.Context, userID uint64, rec SessionRecord) (string, error) {
	sessionID := "session:" + uuid.NewString()
	body, err := json.Marshal(rec)
	if err != nil {
		return "", err
	}
	key := sessionKey(userID)
	if err := s.rdb.HSet(ctx, key, sessionID, body).Err(); err != nil {
		return "", err
	}
	if err := s.rdb.Expire(ctx, key, s.ttl).Err(); err != nil {
		return "", err
	}
	return sessionID, nil
}

// Get loads a single session record.  A missing field or expired key is
// reported as ErrSessionNotFound.
func (s *SessionStore) Get(ctx context.Context, userID uint64, sessionID string) (SessionRecord, error) {
	raw, err := s.rdb.HGet(ctx, sessionKey(userID), sessionID).Result()
	if err == redis.Nil {
		return SessionRecord{}, ErrSessionNotFound
	}
	if err != nil {
		return SessionRecord{}, err
	}
	var rec SessionRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return SessionRecord{}, err
	}
	return rec, nil
}

// List returns every session for the user, revoked ones included, with the
// raw refresh token redacted.  Callers filter on Revoked as needed.
func (s *SessionStore) List(ctx context.Context, userID uint64) ([]Session, error) {
	all, err := s.rdb.HGetAll(ctx, sessionKey(userID)).Result()
	if err != nil {
		return nil, err
	}
	out := make([]Session, 0, len(all))
	for id, raw := range all {
		var rec SessionRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			continue // skip records that no longer decode
		}
		rec.RefreshToken = redactedToken
		out = append(out, Session{SessionRecord: rec, SessionID: id})
	}
	return out, nil
}

// Revoke flips the revoked flag on one session.  A session that is already
// gone or already revoked is a no-op, which keeps logout idempotent.
func (s *SessionStore) Revoke(ctx context.Context, userID uint64, sessionID string) error {
	key := sessionKey(userID)
	raw, err := s.rdb.HGet(ctx, key, sessionID).Result()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return err
	}
	var rec SessionRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return err
	}
	rec.Revoked = true
	body, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.rdb.HSet(ctx, key, sessionID, body).Err()
}

// RevokeAll flips the revoked flag on every session for the user ("log out
// everywhere").
func (s *SessionStore) RevokeAll(ctx context.Context, userID uint64) error {
	key := sessionKey(userID)
	all, err := s.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return err
	}
	for id, raw := range all {
		var rec SessionRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			continue
		}
		if rec.Revoked {
			continue
		}
		rec.Revoked = true
		body, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		if err := s.rdb.HSet(ctx, key, id, body).Err(); err != nil {
			return err
		}
	}
	return nil
}

package auth

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/chikaturin/test-hololab-be/internal/repository"
	"github.com/chikaturin/test-hololab-be/internal/utils"
)

// UserStore is the slice of the user repository the auth service needs.
type UserStore interface {
	GetByEmail(ctx context.Context, email string) (repository.User, error)
	GetByID(ctx context.Context, id uint64) (repository.User, error)
	UpdatePassword(ctx context.Context, id uint64, password string, cost int) error
}

// Sessions is the session-store contract used by the service.
type Sessions interface {
	Create(ctx context.Context, userID uint64, rec SessionRecord) (string, error)
	Get(ctx context.Context, userID uint64, sessionID string) (SessionRecord, error)
	Revoke(ctx context.Context, userID uint64, sessionID string) error
	RevokeAll(ctx context.Context, userID uint64) error
}

// Throttle is the failed-login counter contract.
type Throttle interface {
	Blocked(ctx context.Context, email string) (bool, error)
	Fail(ctx context.Context, email string) (int64, error)
	Reset(ctx context.Context, email string) error
}

// TokenPair is what login and refresh hand back to the client.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	SessionID    string `json:"sessionId"`
}

// Service orchestrates the token codec, the session store and the throttle
// into the login/refresh/logout/verify state machine.  A session moves from
// active to revoked (or silently expires with its TTL) and never back.
type Service struct {
	users    UserStore
	sessions Sessions
	throttle Throttle

	accessSecret  string
	refreshSecret string
	accessTTL     time.Duration
	refreshTTL    time.Duration
	bcryptCost    int

	// refreshGrace lets the refresh path accept a just-expired refresh
	// token.  Off by default and never applied to access tokens.
	refreshGrace bool
}

// New wires a Service.  TTLs follow the config convention: access in
// minutes, refresh in days.
func New(users UserStore, sessions Sessions, throttle Throttle,
	accessSecret, refreshSecret string, accessTTLMin, refreshTTLDays, bcryptCost int) *Service {
	return &Service{
		users:         users,
		sessions:      sessions,
		throttle:      throttle,
		accessSecret:  accessSecret,
		refreshSecret: refreshSecret,
		accessTTL:     time.Duration(accessTTLMin) * time.Minute,
		refreshTTL:    time.Duration(refreshTTLDays) * 24 * time.Hour,
		bcryptCost:    bcryptCost,
	}
}

// EnableRefreshGrace lets the refresh path accept a refresh token whose
// expiry has just lapsed, provided its signature and session still check
// out.  Default off, security-sensitive, and never applied to access
// tokens.
func (s *Service) EnableRefreshGrace() {
	s.refreshGrace = true
}

// Login authenticates credentials and opens a new session.  Lockout is
// checked before credentials so a locked account fails the same way whether
// or not the password is correct.
func (s *Service) Login(ctx context.Context, email, password, ip, userAgent string) (TokenPair, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	blocked, err := s.throttle.Blocked(ctx, email)
	if err != nil {
		return TokenPair{}, err
	}
	if blocked {
		return TokenPair{}, ErrAccountLocked
	}

	u, err := s.users.GetByEmail(ctx, email)
	if err == repository.ErrNotFound {
		if _, ferr := s.throttle.Fail(ctx, email); ferr != nil {
			log.Printf("auth: record failed login for %s: %v", email, ferr)
		}
		return TokenPair{}, ErrInvalidCredentials
	}
	if err != nil {
		return TokenPair{}, err
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		if _, ferr := s.throttle.Fail(ctx, email); ferr != nil {
			log.Printf("auth: record failed login for %s: %v", email, ferr)
		}
		return TokenPair{}, ErrInvalidCredentials
	}
	if !u.IsActive {
		return TokenPair{}, ErrAccountInactive
	}

	if err := s.throttle.Reset(ctx, email); err != nil {
		log.Printf("auth: reset failed-login counter for %s: %v", email, err)
	}
	return s.issuePair(ctx, u, ip, userAgent)
}

// issuePair signs a fresh access/refresh pair and writes a new active
// session record for the device.
func (s *Service) issuePair(ctx context.Context, u repository.User, ip, userAgent string) (TokenPair, error) {
	payload := TokenPayload{UserID: u.ID, Email: u.Email}

	access, err := SignToken(payload, s.accessSecret, s.accessTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := SignToken(payload, s.refreshSecret, s.refreshTTL)
	if err != nil {
		return TokenPair{}, err
	}

	now := time.Now().UTC()
	rec := SessionRecord{
		RefreshToken: refresh,
		UserAgent:    userAgent,
		IPAddress:    ip,
		DeviceInfo:   utils.ParseDeviceInfo(userAgent, ip),
		CreatedAt:    now,
		ExpiresAt:    now.Add(s.refreshTTL),
	}
	sessionID, err := s.sessions.Create(ctx, u.ID, rec)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh, SessionID: sessionID}, nil
}

// Verify checks a token's signature and expiry, then confirms the paired
// session still exists and is not revoked.  The dual check is the core
// invariant: a validly signed access token stops working the instant its
// session is revoked, well before the token itself expires.  refresh
// selects the refresh-token secret (and, if enabled, the grace window).
func (s *Service) Verify(ctx context.Context, token, sessionID string, refresh bool) (TokenPayload, error) {
	secret := s.accessSecret
	ignoreExpiry := false
	if refresh {
		secret = s.refreshSecret
		ignoreExpiry = s.refreshGrace
	}
	payload, err := VerifyToken(token, secret, ignoreExpiry)
	if err != nil {
		log.Printf("auth: token rejected: %v", err) // detail stays internal
		return TokenPayload{}, ErrInvalidToken
	}
	rec, err := s.sessions.Get(ctx, payload.UserID, sessionID)
	if err == ErrSessionNotFound {
		return TokenPayload{}, ErrUnauthorized
	}
	if err != nil {
		return TokenPayload{}, err
	}
	if rec.Revoked {
		return TokenPayload{}, ErrUnauthorized
	}
	return payload, nil
}

// Refresh rotates a token pair: the presented refresh token and session are
// verified, the old session is revoked, and a brand-new session is issued.
// Any verification failure collapses to ErrInvalidToken.  A crash between
// revoke and create leaves the device with no valid session, which fails
// safe: the user logs in again.
func (s *Service) Refresh(ctx context.Context, refreshToken, sessionID, userAgent, ip string) (TokenPair, error) {
	payload, err := s.Verify(ctx, refreshToken, sessionID, true)
	if err != nil {
		if err == ErrUnauthorized || err == ErrInvalidToken {
			return TokenPair{}, ErrInvalidToken
		}
		return TokenPair{}, err
	}
	u, err := s.users.GetByID(ctx, payload.UserID)
	if err == repository.ErrNotFound {
		return TokenPair{}, ErrUserNotFound
	}
	if err != nil {
		return TokenPair{}, err
	}
	if !u.IsActive {
		// A deactivated subject cannot rotate; same surface as a vanished one.
		return TokenPair{}, ErrUserNotFound
	}
	if err := s.sessions.Revoke(ctx, payload.UserID, sessionID); err != nil {
		return TokenPair{}, err
	}
	return s.issuePair(ctx, u, ip, userAgent)
}

// Logout revokes one session.  Idempotent: revoking a missing or
// already-revoked session succeeds.
func (s *Service) Logout(ctx context.Context, userID uint64, sessionID string) error {
	return s.sessions.Revoke(ctx, userID, sessionID)
}

// LogoutAll revokes every session for the user ("log out everywhere").
func (s *Service) LogoutAll(ctx context.Context, userID uint64) error {
	return s.sessions.RevokeAll(ctx, userID)
}

// ChangePassword verifies the current password, stores the new hash and
// revokes every session so stolen tokens die with the old password.
func (s *Service) ChangePassword(ctx context.Context, userID uint64, current, next string) error {
	u, err := s.users.GetByID(ctx, userID)
	if err == repository.ErrNotFound {
		return ErrUserNotFound
	}
	if err != nil {
		return err
	}
	if !utils.VerifyPassword(u.PasswordHash, current) {
		return ErrInvalidCredentials
	}
	if err := s.users.UpdatePassword(ctx, userID, next, s.bcryptCost); err != nil {
		return err
	}
	return s.sessions.RevokeAll(ctx, userID)
}

// Package auth implements the session/token core: token signing and
// verification, the Redis-backed session store, failed-login throttling and
// the login/refresh/logout/verify orchestration on top of them.
package auth

import "errors"

// Service-level failures.  Handlers translate these into HTTP statuses and
// deliberately collapse the token-failure detail into one generic message so
// callers cannot distinguish a bad signature from an expired token or a
// revoked session.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountInactive    = errors.New("account inactive")
	ErrAccountLocked      = errors.New("account locked")
	ErrUserNotFound       = errors.New("user not found")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrSessionNotFound    = errors.New("session not found")
)

// Token-level failures returned by VerifyToken.  The split is kept for
// internal logging; externally they all surface as ErrInvalidToken.
var (
	ErrInvalidToken   = errors.New("invalid token")
	ErrTokenExpired   = errors.New("token expired")
	ErrTokenMalformed = errors.New("token malformed")
	ErrBadSignature   = errors.New("token signature invalid")
)

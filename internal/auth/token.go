package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenPayload is the minimal claim set carried by both token classes.
type TokenPayload struct {
	UserID uint64
	Email  string
}

// tokenClaims is the wire form of TokenPayload.  Field names are part of the
// token contract shared with existing clients.
type tokenClaims struct {
	UserID uint64 `json:"userId"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// SignToken builds and signs an HS256 JWT carrying the payload plus
// issued-at, expiry and a unique jti claim.  The jti guarantees every
// issued token is distinct even when two are signed within the same
// second, so rotation always produces new token bytes.  Access and
// refresh tokens use this same routine with their own secret and TTL.
func SignToken(p TokenPayload, secret string, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := tokenClaims{
		UserID: p.UserID,
		Email:  p.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(secret))
}

// VerifyToken checks the signature and claims of a token and returns its
// payload.  The signature is always validated before any claim is trusted.
// When ignoreExpiry is true the exp claim is skipped; this exists solely for
// refresh-token revalidation during a grace period and must never be applied
// to access tokens.
func VerifyToken(token, secret string, ignoreExpiry bool) (TokenPayload, error) {
	var opts []jwt.ParserOption
	if ignoreExpiry {
		opts = append(opts, jwt.WithoutClaimsValidation())
	}
	claims := &tokenClaims{}
	tok, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrBadSignature
		}
		return []byte(secret), nil
	}, opts...)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenMalformed):
			return TokenPayload{}, ErrTokenMalformed
		case errors.Is(err, jwt.ErrTokenExpired):
			return TokenPayload{}, ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return TokenPayload{}, ErrBadSignature
		default:
			return TokenPayload{}, ErrInvalidToken
		}
	}
	if !tok.Valid {
		return TokenPayload{}, ErrInvalidToken
	}
	return TokenPayload{UserID: claims.UserID, Email: claims.Email}, nil
}

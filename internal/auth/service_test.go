package auth

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chikaturin/test-hololab-be/internal/repository"
	"github.com/chikaturin/test-hololab-be/internal/utils"
)

// ----- fakes -----

type fakeUsers struct {
	byEmail map[string]repository.User
	byID    map[uint64]repository.User
	updated map[uint64]string
}

func newFakeUsers(users ...repository.User) *fakeUsers {
	f := &fakeUsers{
		byEmail: map[string]repository.User{},
		byID:    map[uint64]repository.User{},
		updated: map[uint64]string{},
	}
	for _, u := range users {
		f.byEmail[u.Email] = u
		f.byID[u.ID] = u
	}
	return f
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (repository.User, error) {
	u, ok := f.byEmail[email]
	if !ok {
		return repository.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (f *fakeUsers) GetByID(_ context.Context, id uint64) (repository.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return repository.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (f *fakeUsers) UpdatePassword(_ context.Context, id uint64, password string, _ int) error {
	f.updated[id] = password
	return nil
}

type fakeSessions struct {
	next int
	recs map[uint64]map[string]SessionRecord
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{recs: map[uint64]map[string]SessionRecord{}}
}

func (f *fakeSessions) Create(_ context.Context, userID uint64, rec SessionRecord) (string, error) {
	f.next++
	id := fmt.Sprintf("session:%d", f.next)
	if f.recs[userID] == nil {
		f.recs[userID] = map[string]SessionRecord{}
	}
	f.recs[userID][id] = rec
	return id, nil
}

func (f *fakeSessions) Get(_ context.Context, userID uint64, sessionID string) (SessionRecord, error) {
	rec, ok := f.recs[userID][sessionID]
	if !ok {
		return SessionRecord{}, ErrSessionNotFound
	}
	return rec, nil
}

func (f *fakeSessions) Revoke(_ context.Context, userID uint64, sessionID string) error {
	rec, ok := f.recs[userID][sessionID]
	if !ok {
		return nil // revoking a missing session is a no-op
	}
	rec.Revoked = true
	f.recs[userID][sessionID] = rec
	return nil
}

func (f *fakeSessions) RevokeAll(_ context.Context, userID uint64) error {
	for id, rec := range f.recs[userID] {
		rec.Revoked = true
		f.recs[userID][id] = rec
	}
	return nil
}

type fakeThrottle struct {
	fails  map[string]int64
	limit  int64
	resets int
}

func newFakeThrottle(limit int64) *fakeThrottle {
	return &fakeThrottle{fails: map[string]int64{}, limit: limit}
}

func (f *fakeThrottle) Blocked(_ context.Context, email string) (bool, error) {
	return f.fails[email] >= f.limit, nil
}

func (f *fakeThrottle) Fail(_ context.Context, email string) (int64, error) {
	f.fails[email]++
	return f.fails[email], nil
}

func (f *fakeThrottle) Reset(_ context.Context, email string) error {
	f.fails[email] = 0
	f.resets++
	return nil
}

// ----- helpers -----

const (
	testAccessSecret  = "at-secret"
	testRefreshSecret = "rt-secret"
	testPassword      = "correct-horse"
)

func newTestService(t *testing.T, users ...repository.User) (*Service, *fakeUsers, *fakeSessions, *fakeThrottle) {
	t.Helper()
	fu := newFakeUsers(users...)
	fs := newFakeSessions()
	ft := newFakeThrottle(5)
	svc := New(fu, fs, ft, testAccessSecret, testRefreshSecret, 15, 7, 4)
	return svc, fu, fs, ft
}

func testUser(t *testing.T, id uint64, email string, active bool) repository.User {
	t.Helper()
	hash, err := utils.HashPassword(testPassword, 4)
	require.NoError(t, err)
	return repository.User{ID: id, Email: email, PasswordHash: hash, IsActive: active}
}

// ----- tests -----

func TestLoginSuccess(t *testing.T) {
	svc, _, fs, ft := newTestService(t, testUser(t, 1, "a@b.c", true))
	ctx := context.Background()

	pair, err := svc.Login(ctx, "a@b.c", testPassword, "1.2.3.4", "test-agent")
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.NotEmpty(t, pair.SessionID)

	rec, err := fs.Get(ctx, 1, pair.SessionID)
	require.NoError(t, err)
	assert.Equal(t, pair.RefreshToken, rec.RefreshToken)
	assert.False(t, rec.Revoked)
	assert.Equal(t, 1, ft.resets)
}

func TestLoginNormalizesEmail(t *testing.T) {
	svc, _, _, _ := newTestService(t, testUser(t, 1, "a@b.c", true))

	_, err := svc.Login(context.Background(), "  A@B.C ", testPassword, "ip", "ua")
	assert.NoError(t, err)
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _, _, ft := newTestService(t, testUser(t, 1, "a@b.c", true))

	_, err := svc.Login(context.Background(), "a@b.c", "wrong", "ip", "ua")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Equal(t, int64(1), ft.fails["a@b.c"])
}

func TestLoginUnknownEmailCounted(t *testing.T) {
	svc, _, _, ft := newTestService(t)

	_, err := svc.Login(context.Background(), "ghost@b.c", "whatever", "ip", "ua")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Equal(t, int64(1), ft.fails["ghost@b.c"])
}

func TestLoginInactiveAccount(t *testing.T) {
	svc, _, _, ft := newTestService(t, testUser(t, 1, "a@b.c", false))

	_, err := svc.Login(context.Background(), "a@b.c", testPassword, "ip", "ua")
	assert.ErrorIs(t, err, ErrAccountInactive)
	// Valid credentials against an inactive account are not a failed attempt.
	assert.Equal(t, int64(0), ft.fails["a@b.c"])
}

func TestLoginLockoutAfterRepeatedFailures(t *testing.T) {
	svc, _, _, _ := newTestService(t, testUser(t, 1, "a@b.c", true))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := svc.Login(ctx, "a@b.c", "wrong", "ip", "ua")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	}

	// Locked now, even with the correct password.
	_, err := svc.Login(ctx, "a@b.c", testPassword, "ip", "ua")
	assert.ErrorIs(t, err, ErrAccountLocked)
}

func TestLoginSuccessResetsCounter(t *testing.T) {
	svc, _, _, ft := newTestService(t, testUser(t, 1, "a@b.c", true))
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, _ = svc.Login(ctx, "a@b.c", "wrong", "ip", "ua")
	}
	_, err := svc.Login(ctx, "a@b.c", testPassword, "ip", "ua")
	require.NoError(t, err)
	assert.Equal(t, int64(0), ft.fails["a@b.c"])
}

func TestVerifyAcceptsLiveSession(t *testing.T) {
	svc, _, _, _ := newTestService(t, testUser(t, 1, "a@b.c", true))
	ctx := context.Background()

	pair, err := svc.Login(ctx, "a@b.c", testPassword, "ip", "ua")
	require.NoError(t, err)

	payload, err := svc.Verify(ctx, pair.AccessToken, pair.SessionID, false)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), payload.UserID)
	assert.Equal(t, "a@b.c", payload.Email)
}

func TestVerifyRejectsRevokedSession(t *testing.T) {
	svc, _, _, _ := newTestService(t, testUser(t, 1, "a@b.c", true))
	ctx := context.Background()

	pair, err := svc.Login(ctx, "a@b.c", testPassword, "ip", "ua")
	require.NoError(t, err)
	require.NoError(t, svc.Logout(ctx, 1, pair.SessionID))

	// The token is still validly signed and unexpired; the session kills it.
	_, err = svc.Verify(ctx, pair.AccessToken, pair.SessionID, false)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestVerifyRejectsUnknownSession(t *testing.T) {
	svc, _, _, _ := newTestService(t, testUser(t, 1, "a@b.c", true))
	ctx := context.Background()

	pair, err := svc.Login(ctx, "a@b.c", testPassword, "ip", "ua")
	require.NoError(t, err)

	_, err = svc.Verify(ctx, pair.AccessToken, "session:nope", false)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestVerifyRejectsRefreshTokenOnAccessPath(t *testing.T) {
	svc, _, _, _ := newTestService(t, testUser(t, 1, "a@b.c", true))
	ctx := context.Background()

	pair, err := svc.Login(ctx, "a@b.c", testPassword, "ip", "ua")
	require.NoError(t, err)

	_, err = svc.Verify(ctx, pair.RefreshToken, pair.SessionID, false)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestLogoutIsIdempotent(t *testing.T) {
	svc, _, _, _ := newTestService(t, testUser(t, 1, "a@b.c", true))
	ctx := context.Background()

	pair, err := svc.Login(ctx, "a@b.c", testPassword, "ip", "ua")
	require.NoError(t, err)

	assert.NoError(t, svc.Logout(ctx, 1, pair.SessionID))
	assert.NoError(t, svc.Logout(ctx, 1, pair.SessionID))
	assert.NoError(t, svc.Logout(ctx, 1, "session:never-existed"))
}

func TestRefreshRotatesSession(t *testing.T) {
	svc, _, fs, _ := newTestService(t, testUser(t, 1, "a@b.c", true))
	ctx := context.Background()

	old, err := svc.Login(ctx, "a@b.c", testPassword, "ip", "ua")
	require.NoError(t, err)

	fresh, err := svc.Refresh(ctx, old.RefreshToken, old.SessionID, "ua", "ip")
	require.NoError(t, err)
	assert.NotEqual(t, old.SessionID, fresh.SessionID)
	assert.NotEqual(t, old.RefreshToken, fresh.RefreshToken)

	// Old session is revoked, new one verifies.
	rec, err := fs.Get(ctx, 1, old.SessionID)
	require.NoError(t, err)
	assert.True(t, rec.Revoked)

	_, err = svc.Verify(ctx, fresh.AccessToken, fresh.SessionID, false)
	assert.NoError(t, err)
}

func TestRefreshRejectsReplayedToken(t *testing.T) {
	svc, _, _, _ := newTestService(t, testUser(t, 1, "a@b.c", true))
	ctx := context.Background()

	old, err := svc.Login(ctx, "a@b.c", testPassword, "ip", "ua")
	require.NoError(t, err)

	_, err = svc.Refresh(ctx, old.RefreshToken, old.SessionID, "ua", "ip")
	require.NoError(t, err)

	// Replaying the rotated-out pair must fail.
	_, err = svc.Refresh(ctx, old.RefreshToken, old.SessionID, "ua", "ip")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	svc, _, _, _ := newTestService(t, testUser(t, 1, "a@b.c", true))
	ctx := context.Background()

	pair, err := svc.Login(ctx, "a@b.c", testPassword, "ip", "ua")
	require.NoError(t, err)

	_, err = svc.Refresh(ctx, pair.AccessToken, pair.SessionID, "ua", "ip")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefreshGraceAcceptsJustExpiredToken(t *testing.T) {
	svc, _, _, _ := newTestService(t, testUser(t, 1, "a@b.c", true))
	ctx := context.Background()

	pair, err := svc.Login(ctx, "a@b.c", testPassword, "ip", "ua")
	require.NoError(t, err)

	expired, err := SignToken(TokenPayload{UserID: 1, Email: "a@b.c"},
		testRefreshSecret, -time.Minute)
	require.NoError(t, err)

	// Default: an expired refresh token is rejected outright.
	_, err = svc.Refresh(ctx, expired, pair.SessionID, "ua", "ip")
	assert.ErrorIs(t, err, ErrInvalidToken)

	// With the grace window enabled the same token rotates normally.
	svc.EnableRefreshGrace()
	fresh, err := svc.Refresh(ctx, expired, pair.SessionID, "ua", "ip")
	require.NoError(t, err)
	assert.NotEmpty(t, fresh.SessionID)

	// Access tokens get no grace regardless of the knob.
	expiredAccess, err := SignToken(TokenPayload{UserID: 1, Email: "a@b.c"},
		testAccessSecret, -time.Minute)
	require.NoError(t, err)
	_, err = svc.Verify(ctx, expiredAccess, fresh.SessionID, false)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefreshDeactivatedUser(t *testing.T) {
	svc, fu, _, _ := newTestService(t, testUser(t, 1, "a@b.c", true))
	ctx := context.Background()

	pair, err := svc.Login(ctx, "a@b.c", testPassword, "ip", "ua")
	require.NoError(t, err)

	u := fu.byID[1]
	u.IsActive = false
	fu.byID[1] = u

	_, err = svc.Refresh(ctx, pair.RefreshToken, pair.SessionID, "ua", "ip")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestLogoutAllRevokesEverySession(t *testing.T) {
	svc, _, _, _ := newTestService(t, testUser(t, 1, "a@b.c", true))
	ctx := context.Background()

	first, err := svc.Login(ctx, "a@b.c", testPassword, "ip1", "ua1")
	require.NoError(t, err)
	second, err := svc.Login(ctx, "a@b.c", testPassword, "ip2", "ua2")
	require.NoError(t, err)

	require.NoError(t, svc.LogoutAll(ctx, 1))

	_, err = svc.Verify(ctx, first.AccessToken, first.SessionID, false)
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = svc.Verify(ctx, second.AccessToken, second.SessionID, false)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestChangePassword(t *testing.T) {
	svc, fu, _, _ := newTestService(t, testUser(t, 1, "a@b.c", true))
	ctx := context.Background()

	pair, err := svc.Login(ctx, "a@b.c", testPassword, "ip", "ua")
	require.NoError(t, err)

	err = svc.ChangePassword(ctx, 1, "wrong-current", "new-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	require.NoError(t, svc.ChangePassword(ctx, 1, testPassword, "new-password"))
	assert.Equal(t, "new-password", fu.updated[1])

	// All sessions die with the old password.
	_, err = svc.Verify(ctx, pair.AccessToken, pair.SessionID, false)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

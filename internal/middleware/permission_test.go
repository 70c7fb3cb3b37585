package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chikaturin/test-hololab-be/internal/repository"
)

type fakeResolver struct {
	perms map[uint64][]string
}

func (f *fakeResolver) EffectivePermissions(_ context.Context, roleID uint64) ([]string, error) {
	return f.perms[roleID], nil
}

func newAuthedContext(t *testing.T, roles ...repository.RoleAssignment) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("user_id", uint64(1))
	c.Set("roles", roles)
	return c, rec
}

func okHandler(c echo.Context) error {
	return c.NoContent(http.StatusOK)
}

func TestRequirePermissionGranted(t *testing.T) {
	resolver := &fakeResolver{perms: map[uint64][]string{2: {"manage_roles", "view_reports"}}}
	c, rec := newAuthedContext(t, repository.RoleAssignment{RoleID: 2})

	mw := RequirePermission(resolver, "manage_roles")
	require.NoError(t, mw(okHandler)(c))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequirePermissionUnionsAcrossRoles(t *testing.T) {
	resolver := &fakeResolver{perms: map[uint64][]string{
		2: {"view_reports"},
		3: {"manage_roles"},
	}}
	c, rec := newAuthedContext(t,
		repository.RoleAssignment{RoleID: 2},
		repository.RoleAssignment{RoleID: 3})

	mw := RequirePermission(resolver, "manage_roles", "view_reports")
	require.NoError(t, mw(okHandler)(c))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequirePermissionForbidden(t *testing.T) {
	resolver := &fakeResolver{perms: map[uint64][]string{2: {"view_reports"}}}
	c, rec := newAuthedContext(t, repository.RoleAssignment{RoleID: 2})

	mw := RequirePermission(resolver, "manage_roles")
	require.NoError(t, mw(okHandler)(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequirePermissionNoRoles(t *testing.T) {
	resolver := &fakeResolver{perms: map[uint64][]string{}}
	c, rec := newAuthedContext(t)

	mw := RequirePermission(resolver, "manage_roles")
	require.NoError(t, mw(okHandler)(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequirePermissionUnauthenticated(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	mw := RequirePermission(&fakeResolver{}, "manage_roles")
	require.NoError(t, mw(okHandler)(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

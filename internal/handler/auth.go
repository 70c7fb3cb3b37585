package handler

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/chikaturin/test-hololab-be/internal/auth"
	"github.com/chikaturin/test-hololab-be/internal/config"
	"github.com/chikaturin/test-hololab-be/internal/middleware"
	"github.com/chikaturin/test-hololab-be/internal/queue"
	"github.com/chikaturin/test-hololab-be/internal/repository"
	audit "github.com/chikaturin/test-hololab-be/internal/service"
)

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Cfg      config.Config
	Svc      *auth.Service
	Users    *repository.UserRepo
	Sessions *auth.SessionStore
	Reset    *auth.ResetTokenStore
	Throttle *auth.LoginThrottle
}

func NewAuthHandler(cfg config.Config, svc *auth.Service, u *repository.UserRepo,
	s *auth.SessionStore, r *auth.ResetTokenStore, t *auth.LoginThrottle) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Svc: svc, Users: u, Sessions: s, Reset: r, Throttle: t}
}

// ----- DTOs -----

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
type refreshReq struct {
	RefreshToken string `json:"refreshToken"`
	SessionID    string `json:"sessionId"`
}
type logoutReq struct {
	SessionID string `json:"sessionId"`
}
type changePasswordReq struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}
type forgotPasswordReq struct {
	Email string `json:"email"`
}
type resetPasswordReq struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

// Login: verify credentials and open a new session for the device.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	ip := c.RealIP()
	ua := c.Request().UserAgent()

	pair, err := h.Svc.Login(ctx, req.Email, req.Password, ip, ua)
	switch err {
	case nil:
	case auth.ErrInvalidCredentials:
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	case auth.ErrAccountInactive:
		return c.JSON(http.StatusForbidden, echo.Map{"error": "account inactive"})
	case auth.ErrAccountLocked:
		if wait, terr := h.Throttle.RetryAfter(ctx, req.Email); terr == nil && wait > 0 {
			c.Response().Header().Set("Retry-After", strconv.Itoa(int(wait.Seconds())))
		}
		_ = audit.PublishSecurityEvent(ctx, queue.SecurityEvent{
			Type:       queue.EventAccountLocked,
			Email:      req.Email,
			IPAddress:  ip,
			UserAgent:  ua,
			OccurredAt: time.Now().UTC().Format(time.RFC3339),
		})
		return c.JSON(http.StatusForbidden, echo.Map{"error": "account locked, try again later"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "login failed"})
	}

	if err := audit.PublishSecurityEvent(ctx, queue.SecurityEvent{
		Type:       queue.EventLogin,
		Email:      req.Email,
		IPAddress:  ip,
		UserAgent:  ua,
		SessionID:  pair.SessionID,
		OccurredAt: time.Now().UTC().Format(time.RFC3339),
	}); err != nil {
		log.Printf("auth: publish login event failed: %v", err) // non-fatal
	}

	return c.JSON(http.StatusOK, pair)
}

// Refresh: rotate the token pair and supersede the presented session.  New
// values are also set as http-only cookies for browser clients.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" || req.SessionID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refreshToken/sessionId required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	pair, err := h.Svc.Refresh(ctx, strings.TrimSpace(req.RefreshToken), req.SessionID,
		c.Request().UserAgent(), c.RealIP())
	switch err {
	case nil:
	case auth.ErrInvalidToken:
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired token"})
	case auth.ErrUserNotFound:
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "refresh failed"})
	}

	maxAge := h.Cfg.SessionTTLDays * 24 * 60 * 60
	secure := h.Cfg.Env == "prod"
	c.SetCookie(&http.Cookie{
		Name: "accessToken", Value: pair.AccessToken,
		Path: "/", HttpOnly: true, Secure: secure, MaxAge: maxAge,
	})
	c.SetCookie(&http.Cookie{
		Name: "session", Value: pair.SessionID,
		Path: "/", HttpOnly: true, Secure: secure, MaxAge: maxAge,
	})

	return c.JSON(http.StatusOK, pair)
}

// Logout: revoke a single session.  Idempotent; revoking a session that is
// already gone still reports success.  Defaults to the caller's own
// session when the body names none.
func (h *AuthHandler) Logout(c echo.Context) error {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired token"})
	}
	var req logoutReq
	_ = c.Bind(&req)
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID, _ = c.Get("session_id").(string)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Svc.Logout(ctx, userID, sessionID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "logout failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "logged out successfully"})
}

// LogoutAll: revoke every session for the caller across all devices.
func (h *AuthHandler) LogoutAll(c echo.Context) error {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired token"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Svc.LogoutAll(ctx, userID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "logout failed"})
	}

	email, _ := c.Get("email").(string)
	if err := audit.PublishSecurityEvent(ctx, queue.SecurityEvent{
		Type:       queue.EventLogoutAll,
		UserID:     userID,
		Email:      email,
		IPAddress:  c.RealIP(),
		OccurredAt: time.Now().UTC().Format(time.RFC3339),
	}); err != nil {
		log.Printf("auth: publish logout-all event failed: %v", err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Me: return the authenticated principal with its active role assignments.
func (h *AuthHandler) Me(c echo.Context) error {
	roles := middleware.CurrentRoles(c)
	out := make([]echo.Map, 0, len(roles))
	for _, r := range roles {
		out = append(out, echo.Map{
			"roleId":   r.RoleID,
			"name":     r.Name,
			"roleType": r.RoleType,
			"level":    r.Level,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"userId": c.Get("user_id"),
		"email":  c.Get("email"),
		"roles":  out,
	})
}

// Sessions: list the caller's sessions across devices, refresh tokens
// redacted.  Revoked sessions are included so users can audit activity.
func (h *AuthHandler) ListSessions(c echo.Context) error {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired token"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	sessions, err := h.Sessions.List(ctx, userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list sessions failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"sessions": sessions})
}

// ChangePassword: verify the current password, store the new one and log
// the user out everywhere.
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired token"})
	}
	var req changePasswordReq
	if err := c.Bind(&req); err != nil || req.CurrentPassword == "" || req.NewPassword == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "currentPassword/newPassword required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	switch err := h.Svc.ChangePassword(ctx, userID, req.CurrentPassword, req.NewPassword); err {
	case nil:
		return c.JSON(http.StatusOK, echo.Map{"message": "password changed successfully"})
	case auth.ErrInvalidCredentials:
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "change password failed"})
	}
}

// ForgotPassword: issue a reset token for the account.  The response is
// identical whether or not the email exists so the endpoint cannot be used
// to enumerate accounts.  Token delivery is handled out of band.
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req forgotPasswordReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Email) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err == nil && u.IsActive {
		if token, terr := h.Reset.Issue(ctx, u.ID, 30*time.Minute); terr == nil {
			log.Printf("auth: reset token issued for user %d: %s", u.ID, token)
		}
	} else if err != nil && err != repository.ErrNotFound {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "request failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "if the account exists, a reset token has been issued"})
}

// ResetPassword: consume a reset token, store the new password and revoke
// all existing sessions.
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req resetPasswordReq
	if err := c.Bind(&req); err != nil || req.Token == "" || req.NewPassword == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "token/newPassword required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	userID, err := h.Reset.Consume(ctx, req.Token)
	if err == auth.ErrUnauthorized {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired token"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "reset failed"})
	}
	if err := h.Users.UpdatePassword(ctx, userID, req.NewPassword, h.Cfg.BcryptCost); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "reset failed"})
	}
	if err := h.Svc.LogoutAll(ctx, userID); err != nil {
		log.Printf("auth: revoke sessions after reset for user %d: %v", userID, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "password reset successfully"})
}

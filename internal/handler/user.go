package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/chikaturin/test-hololab-be/internal/config"
	"github.com/chikaturin/test-hololab-be/internal/repository"
)

// UserHandler manages login accounts.  Accounts are separate from staff
// records; a user may optionally point at a staff row.
type UserHandler struct {
	Cfg   config.Config
	Users *repository.UserRepo
}

func NewUserHandler(cfg config.Config, users *repository.UserRepo) *UserHandler {
	return &UserHandler{Cfg: cfg, Users: users}
}

type createUserReq struct {
	Email    string  `json:"email"`
	Password string  `json:"password"`
	StaffID  *uint64 `json:"staffId"`
}
type setActiveReq struct {
	Active bool `json:"active"`
}

func userOut(u repository.User) echo.Map {
	out := echo.Map{
		"id":        u.ID,
		"email":     u.Email,
		"isActive":  u.IsActive,
		"createdAt": u.CreatedAt,
		"updatedAt": u.UpdatedAt,
	}
	if u.StaffID.Valid {
		out["staffId"] = u.StaffID.Int64
	}
	return out
}

func (h *UserHandler) Create(c echo.Context) error {
	var req createUserReq
	if err := c.Bind(&req); err != nil || req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
	}
	if len(req.Password) < 8 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "password must be at least 8 characters"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	id, err := h.Users.Create(ctx, req.Email, req.Password, req.StaffID, h.Cfg.BcryptCost)
	if err == repository.ErrEmailExists {
		return c.JSON(http.StatusConflict, echo.Map{"error": "email already registered"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": id})
}

func (h *UserHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	users, err := h.Users.List(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list users failed"})
	}
	out := make([]echo.Map, 0, len(users))
	for _, u := range users {
		out = append(out, userOut(u))
	}
	return c.JSON(http.StatusOK, echo.Map{"users": out})
}

func (h *UserHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByID(ctx, id)
	if err == repository.ErrNotFound {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "get user failed"})
	}
	return c.JSON(http.StatusOK, userOut(u))
}

// SetActive toggles an account.  Deactivated accounts fail login and token
// verification on their next request.
func (h *UserHandler) SetActive(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}
	var req setActiveReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	switch err := h.Users.SetActive(ctx, id, req.Active); err {
	case nil:
		return c.JSON(http.StatusOK, echo.Map{"message": "user updated"})
	case repository.ErrNotFound:
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update user failed"})
	}
}

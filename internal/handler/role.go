package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/chikaturin/test-hololab-be/internal/repository"
)

// RoleHandler exposes role management and role-permission grants.
type RoleHandler struct {
	Roles *repository.RoleRepo
	Perms *repository.PermissionRepo
}

func NewRoleHandler(roles *repository.RoleRepo, perms *repository.PermissionRepo) *RoleHandler {
	return &RoleHandler{Roles: roles, Perms: perms}
}

type roleReq struct {
	Name     string `json:"name"`
	RoleType string `json:"roleType"`
	Level    string `json:"level"`
}
type assignRoleReq struct {
	UserID uint64 `json:"userId"`
	RoleID uint64 `json:"roleId"`
}
type addPermissionReq struct {
	Module string `json:"module"`
	Name   string `json:"name"`
}
type replacePermissionsReq struct {
	PermissionIDs []uint64 `json:"permissionIds"`
}

func roleOut(r repository.Role) echo.Map {
	return echo.Map{
		"id":            r.ID,
		"name":          r.Name,
		"roleType":      r.RoleType,
		"level":         r.Level,
		"isActive":      r.IsActive,
		"permissionIds": r.PermissionIDs,
		"createdAt":     r.CreatedAt,
		"updatedAt":     r.UpdatedAt,
	}
}

func pathID(c echo.Context, name string) (uint64, error) {
	return strconv.ParseUint(c.Param(name), 10, 64)
}

func (h *RoleHandler) Create(c echo.Context) error {
	var req roleReq
	if err := c.Bind(&req); err != nil || req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	id, err := h.Roles.Create(ctx, req.Name, req.RoleType, req.Level)
	if err == repository.ErrConflict {
		return c.JSON(http.StatusConflict, echo.Map{"error": "role name already exists"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create role failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": id})
}

func (h *RoleHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	roles, err := h.Roles.List(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list roles failed"})
	}
	out := make([]echo.Map, 0, len(roles))
	for _, r := range roles {
		out = append(out, roleOut(r))
	}
	return c.JSON(http.StatusOK, echo.Map{"roles": out})
}

func (h *RoleHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid role id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	role, err := h.Roles.GetByID(ctx, id)
	if err == repository.ErrNotFound {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "role not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "get role failed"})
	}
	return c.JSON(http.StatusOK, roleOut(role))
}

func (h *RoleHandler) Update(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid role id"})
	}
	var req roleReq
	if err := c.Bind(&req); err != nil || req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	switch err := h.Roles.Update(ctx, id, req.Name, req.RoleType, req.Level); err {
	case nil:
		return c.JSON(http.StatusOK, echo.Map{"message": "role updated"})
	case repository.ErrNotFound:
		return c.JSON(http.StatusNotFound, echo.Map{"error": "role not found"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update role failed"})
	}
}

func (h *RoleHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid role id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	switch err := h.Roles.Delete(ctx, id); err {
	case nil:
		return c.NoContent(http.StatusNoContent)
	case repository.ErrNotFound:
		return c.JSON(http.StatusNotFound, echo.Map{"error": "role not found"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete role failed"})
	}
}

// Assign gives a user a role, replacing any role held before.  A user has
// at most one active role at a time.
func (h *RoleHandler) Assign(c echo.Context) error {
	var req assignRoleReq
	if err := c.Bind(&req); err != nil || req.UserID == 0 || req.RoleID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "userId/roleId required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	switch err := h.Roles.AssignToUser(ctx, req.UserID, req.RoleID); err {
	case nil:
		return c.JSON(http.StatusOK, echo.Map{"message": "role assigned"})
	case repository.ErrNotFound:
		return c.JSON(http.StatusNotFound, echo.Map{"error": "role not found"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "assign role failed"})
	}
}

// Permissions returns the effective permission names for a role: embedded
// grants merged with join-table grants, deduplicated.  This is the read
// path fronted by the Redis response cache.
func (h *RoleHandler) Permissions(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid role id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	names, err := h.Roles.EffectivePermissions(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "resolve permissions failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"roleId": id, "permissions": names})
}

func (h *RoleHandler) AddPermission(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid role id"})
	}
	var req addPermissionReq
	if err := c.Bind(&req); err != nil || req.Module == "" || req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "module/name required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	switch err := h.Perms.AddToRole(ctx, id, req.Module, req.Name); err {
	case nil:
		return c.JSON(http.StatusCreated, echo.Map{"message": "permission granted"})
	case repository.ErrNotFound:
		return c.JSON(http.StatusNotFound, echo.Map{"error": "role or permission not found"})
	case repository.ErrConflict:
		return c.JSON(http.StatusConflict, echo.Map{"error": "permission already granted"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "grant permission failed"})
	}
}

// RemovePermission deactivates a grant.  Removing one that is absent or
// already inactive is a no-op.
func (h *RoleHandler) RemovePermission(c echo.Context) error {
	roleID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid role id"})
	}
	permID, err := pathID(c, "permissionId")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid permission id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Perms.RemoveFromRole(ctx, roleID, permID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "revoke permission failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// ReplacePermissions rewrites a role's join-table grants wholesale, then
// deduplicates any lingering duplicate rows.
func (h *RoleHandler) ReplacePermissions(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid role id"})
	}
	var req replacePermissionsReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	switch err := h.Perms.ReplaceRolePermissions(ctx, id, req.PermissionIDs); err {
	case nil:
		return c.JSON(http.StatusOK, echo.Map{"message": "permissions replaced"})
	case repository.ErrNotFound:
		return c.JSON(http.StatusNotFound, echo.Map{"error": "role not found"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "replace permissions failed"})
	}
}

// CleanupPermissions collapses duplicate active grants, keeping the oldest
// row for each permission.
func (h *RoleHandler) CleanupPermissions(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid role id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Perms.CleanupDuplicates(ctx, id); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "cleanup failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "duplicates removed"})
}

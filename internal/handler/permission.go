package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/chikaturin/test-hololab-be/internal/repository"
)

// PermissionHandler manages the permission catalog.
type PermissionHandler struct {
	Perms *repository.PermissionRepo
}

func NewPermissionHandler(perms *repository.PermissionRepo) *PermissionHandler {
	return &PermissionHandler{Perms: perms}
}

type permissionReq struct {
	Module string `json:"module"`
	Name   string `json:"name"`
}

func (h *PermissionHandler) Create(c echo.Context) error {
	var req permissionReq
	if err := c.Bind(&req); err != nil || req.Module == "" || req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "module/name required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	id, err := h.Perms.Create(ctx, req.Module, req.Name)
	if err == repository.ErrConflict {
		return c.JSON(http.StatusConflict, echo.Map{"error": "permission already exists"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create permission failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": id})
}

func (h *PermissionHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	perms, err := h.Perms.List(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list permissions failed"})
	}
	out := make([]echo.Map, 0, len(perms))
	for _, p := range perms {
		out = append(out, echo.Map{
			"id":       p.ID,
			"module":   p.Module,
			"name":     p.Name,
			"isActive": p.IsActive,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"permissions": out})
}

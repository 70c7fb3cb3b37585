package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/chikaturin/test-hololab-be/internal/repository"
)

// DepartmentHandler manages departments.
type DepartmentHandler struct {
	Departments *repository.DepartmentRepo
}

func NewDepartmentHandler(d *repository.DepartmentRepo) *DepartmentHandler {
	return &DepartmentHandler{Departments: d}
}

type departmentReq struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func departmentOut(d repository.Department) echo.Map {
	return echo.Map{
		"id":          d.ID,
		"name":        d.Name,
		"description": d.Description,
		"isActive":    d.IsActive,
		"createdAt":   d.CreatedAt,
		"updatedAt":   d.UpdatedAt,
	}
}

func (h *DepartmentHandler) Create(c echo.Context) error {
	var req departmentReq
	if err := c.Bind(&req); err != nil || req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	id, err := h.Departments.Create(ctx, req.Name, req.Description)
	if err == repository.ErrConflict {
		return c.JSON(http.StatusConflict, echo.Map{"error": "department name already exists"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create department failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": id})
}

func (h *DepartmentHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	deps, err := h.Departments.List(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list departments failed"})
	}
	out := make([]echo.Map, 0, len(deps))
	for _, d := range deps {
		out = append(out, departmentOut(d))
	}
	return c.JSON(http.StatusOK, echo.Map{"departments": out})
}

func (h *DepartmentHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid department id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	d, err := h.Departments.GetByID(ctx, id)
	if err == repository.ErrNotFound {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "department not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "get department failed"})
	}
	return c.JSON(http.StatusOK, departmentOut(d))
}

func (h *DepartmentHandler) Update(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid department id"})
	}
	var req departmentReq
	if err := c.Bind(&req); err != nil || req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	switch err := h.Departments.Update(ctx, id, req.Name, req.Description); err {
	case nil:
		return c.JSON(http.StatusOK, echo.Map{"message": "department updated"})
	case repository.ErrNotFound:
		return c.JSON(http.StatusNotFound, echo.Map{"error": "department not found"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update department failed"})
	}
}

func (h *DepartmentHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid department id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	switch err := h.Departments.Delete(ctx, id); err {
	case nil:
		return c.NoContent(http.StatusNoContent)
	case repository.ErrNotFound:
		return c.JSON(http.StatusNotFound, echo.Map{"error": "department not found"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete department failed"})
	}
}

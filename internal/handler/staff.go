package handler

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/chikaturin/test-hololab-be/internal/repository"
)

// StaffHandler manages staff records.
type StaffHandler struct {
	Staff *repository.StaffRepo
}

func NewStaffHandler(staff *repository.StaffRepo) *StaffHandler {
	return &StaffHandler{Staff: staff}
}

type staffReq struct {
	FirstName    string  `json:"firstName"`
	LastName     string  `json:"lastName"`
	Email        string  `json:"email"`
	Position     string  `json:"position"`
	DepartmentID *uint64 `json:"departmentId"`
}

func (r staffReq) toModel() repository.Staff {
	s := repository.Staff{
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Email:     r.Email,
		Position:  r.Position,
	}
	if r.DepartmentID != nil {
		s.DepartmentID = sql.NullInt64{Int64: int64(*r.DepartmentID), Valid: true}
	}
	return s
}

func staffOut(s repository.Staff) echo.Map {
	out := echo.Map{
		"id":        s.ID,
		"firstName": s.FirstName,
		"lastName":  s.LastName,
		"email":     s.Email,
		"position":  s.Position,
		"isActive":  s.IsActive,
		"createdAt": s.CreatedAt,
		"updatedAt": s.UpdatedAt,
	}
	if s.DepartmentID.Valid {
		out["departmentId"] = s.DepartmentID.Int64
	}
	return out
}

func (h *StaffHandler) Create(c echo.Context) error {
	var req staffReq
	if err := c.Bind(&req); err != nil || req.FirstName == "" || req.Email == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "firstName/email required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	id, err := h.Staff.Create(ctx, req.toModel())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create staff failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": id})
}

func (h *StaffHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	staff, err := h.Staff.List(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list staff failed"})
	}
	out := make([]echo.Map, 0, len(staff))
	for _, s := range staff {
		out = append(out, staffOut(s))
	}
	return c.JSON(http.StatusOK, echo.Map{"staff": out})
}

func (h *StaffHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid staff id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	s, err := h.Staff.GetByID(ctx, id)
	if err == repository.ErrNotFound {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "staff not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "get staff failed"})
	}
	return c.JSON(http.StatusOK, staffOut(s))
}

func (h *StaffHandler) Update(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid staff id"})
	}
	var req staffReq
	if err := c.Bind(&req); err != nil || req.FirstName == "" || req.Email == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "firstName/email required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	switch err := h.Staff.Update(ctx, id, req.toModel()); err {
	case nil:
		return c.JSON(http.StatusOK, echo.Map{"message": "staff updated"})
	case repository.ErrNotFound:
		return c.JSON(http.StatusNotFound, echo.Map{"error": "staff not found"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update staff failed"})
	}
}

func (h *StaffHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid staff id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	switch err := h.Staff.Delete(ctx, id); err {
	case nil:
		return c.NoContent(http.StatusNoContent)
	case repository.ErrNotFound:
		return c.JSON(http.StatusNotFound, echo.Map{"error": "staff not found"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete staff failed"})
	}
}

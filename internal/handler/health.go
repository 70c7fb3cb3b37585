package handler

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

// HealthHandler reports liveness and dependency readiness.
type HealthHandler struct {
	DB  *sql.DB
	RDB *redis.Client
}

func NewHealthHandler(db *sql.DB, rdb *redis.Client) *HealthHandler {
	return &HealthHandler{DB: db, RDB: rdb}
}

func (h *HealthHandler) Healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}

// Readyz pings MySQL and Redis.  Redis being down degrades readiness but
// the server can still verify tokens against MySQL-backed state, so it is
// reported per dependency rather than as a single flag.
func (h *HealthHandler) Readyz(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	db := "ok"
	if err := h.DB.PingContext(ctx); err != nil {
		db = "down"
		status = http.StatusServiceUnavailable
	}
	cache := "ok"
	if h.RDB == nil {
		cache = "disabled"
	} else if err := h.RDB.Ping(ctx).Err(); err != nil {
		cache = "down"
		status = http.StatusServiceUnavailable
	}
	return c.JSON(status, echo.Map{"db": db, "redis": cache})
}

package router

import (
	"database/sql"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/chikaturin/test-hololab-be/internal/auth"
	"github.com/chikaturin/test-hololab-be/internal/config"
	"github.com/chikaturin/test-hololab-be/internal/handler"
	"github.com/chikaturin/test-hololab-be/internal/middleware"
	"github.com/chikaturin/test-hololab-be/internal/repository"
)

// Deps carries everything the route table needs.
type Deps struct {
	Cfg      config.Config
	DB       *sql.DB
	RDB      *redis.Client
	Auth     *auth.Service
	Store    *auth.SessionStore
	Reset    *auth.ResetTokenStore
	Throttle *auth.LoginThrottle
	Users    *repository.UserRepo
	Roles    *repository.RoleRepo
	Perms    *repository.PermissionRepo
	Staff    *repository.StaffRepo
	Depts    *repository.DepartmentRepo
	RLConf   config.RateLimitConfig
	CConf    config.CacheConfig
}

// Register wires all routes.  Credential endpoints sit behind the Redis
// token-bucket limiter; everything under the protected group requires a
// valid access token plus a live session.  Role-permission reads go
// through the Redis response cache.
func Register(e *echo.Echo, d Deps) {
	authH := handler.NewAuthHandler(d.Cfg, d.Auth, d.Users, d.Store, d.Reset, d.Throttle)
	roleH := handler.NewRoleHandler(d.Roles, d.Perms)
	permH := handler.NewPermissionHandler(d.Perms)
	userH := handler.NewUserHandler(d.Cfg, d.Users)
	staffH := handler.NewStaffHandler(d.Staff)
	deptH := handler.NewDepartmentHandler(d.Depts)
	healthH := handler.NewHealthHandler(d.DB, d.RDB)

	limiter := middleware.NewTokenBucket(d.RLConf, d.RDB)
	protected := middleware.SessionAuth(d.Auth, d.Roles)
	cached := middleware.NewRedisCache(d.CConf, d.RDB)
	manageRoles := middleware.RequirePermission(d.Roles, "manage_roles")
	manageUsers := middleware.RequirePermission(d.Roles, "manage_users")
	manageStaff := middleware.RequirePermission(d.Roles, "manage_staff")

	e.GET("/healthz", healthH.Healthz)
	e.GET("/readyz", healthH.Readyz)

	v1 := e.Group("/v1")

	// Public credential endpoints, rate limited per IP and route.
	pub := v1.Group("/auth", limiter)
	pub.POST("/login", authH.Login)
	pub.POST("/refresh-token", authH.Refresh)
	pub.POST("/forgot-password", authH.ForgotPassword)
	pub.POST("/reset-password", authH.ResetPassword)

	// Session-holder endpoints.
	me := v1.Group("/auth", protected)
	me.GET("", authH.Me)
	me.GET("/sessions", authH.ListSessions)
	me.POST("/logout", authH.Logout)
	me.POST("/logout-all", authH.LogoutAll)
	me.POST("/change-password", authH.ChangePassword)

	roles := v1.Group("/roles", protected)
	roles.GET("", roleH.List)
	roles.GET("/:id", roleH.Get)
	roles.GET("/:id/permissions", roleH.Permissions, cached)
	roles.POST("", roleH.Create, manageRoles)
	roles.PATCH("/:id", roleH.Update, manageRoles)
	roles.DELETE("/:id", roleH.Delete, manageRoles)
	roles.POST("/assign", roleH.Assign, manageRoles)
	roles.POST("/:id/permissions", roleH.AddPermission, manageRoles)
	roles.DELETE("/:id/permissions/:permissionId", roleH.RemovePermission, manageRoles)
	roles.PUT("/:id/permissions", roleH.ReplacePermissions, manageRoles)
	roles.POST("/:id/permissions/cleanup", roleH.CleanupPermissions, manageRoles)

	perms := v1.Group("/permissions", protected)
	perms.GET("", permH.List)
	perms.POST("", permH.Create, manageRoles)

	users := v1.Group("/users", protected, manageUsers)
	users.POST("", userH.Create)
	users.GET("", userH.List)
	users.GET("/:id", userH.Get)
	users.PATCH("/:id/status", userH.SetActive)

	staff := v1.Group("/staff", protected, manageStaff)
	staff.POST("", staffH.Create)
	staff.GET("", staffH.List)
	staff.GET("/:id", staffH.Get)
	staff.PUT("/:id", staffH.Update)
	staff.DELETE("/:id", staffH.Delete)

	depts := v1.Group("/departments", protected, manageStaff)
	depts.POST("", deptH.Create)
	depts.GET("", deptH.List)
	depts.GET("/:id", deptH.Get)
	depts.PUT("/:id", deptH.Update)
	depts.DELETE("/:id", deptH.Delete)
}

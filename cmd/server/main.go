package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/chikaturin/test-hololab-be/internal/auth"
	"github.com/chikaturin/test-hololab-be/internal/config"
	"github.com/chikaturin/test-hololab-be/internal/database"
	"github.com/chikaturin/test-hololab-be/internal/queue"
	"github.com/chikaturin/test-hololab-be/internal/repository"
	"github.com/chikaturin/test-hololab-be/internal/router"
)

func main() {
	// .env is optional; real deployments set variables directly.
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using environment variables")
	}

	cfg := config.Load()

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Sessions, throttling and reset tokens all live in Redis; without it
	// every login and verification would fail, so refuse to start.  The
	// limiter and cache middleware tolerate a nil client, but nothing else
	// does.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Fatal("redis unavailable: session store cannot operate")
	}

	users := repository.NewUserRepo(db)
	roles := repository.NewRoleRepo(db)
	perms := repository.NewPermissionRepo(db)
	staff := repository.NewStaffRepo(db)
	depts := repository.NewDepartmentRepo(db)

	store := auth.NewSessionStore(rdb, cfg.SessionTTLDays)
	throttle := auth.NewLoginThrottle(rdb, cfg.LockoutAttempts, cfg.LockoutWindowMin)
	reset := auth.NewResetTokenStore(rdb)
	svc := auth.New(users, store, throttle,
		cfg.AccessSecret, cfg.RefreshSecret,
		cfg.AccessTTLMin, cfg.RefreshTTLDays, cfg.BcryptCost)
	if cfg.RefreshGrace {
		svc.EnableRefreshGrace()
	}

	go func() {
		if err := queue.StartSecurityConsumer(); err != nil {
			log.Printf("security consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Logger())
	e.Use(echomw.Recover())

	router.Register(e, router.Deps{
		Cfg:      cfg,
		DB:       db,
		RDB:      rdb,
		Auth:     svc,
		Store:    store,
		Reset:    reset,
		Throttle: throttle,
		Users:    users,
		Roles:    roles,
		Perms:    perms,
		Staff:    staff,
		Depts:    depts,
		RLConf:   config.LoadRateLimitConfig(),
		CConf:    config.LoadCacheConfig(),
	})

	log.Printf("listening on :%s (env=%s)", cfg.Port, cfg.Env)
	if err := e.Start(":" + cfg.Port); err != nil {
		log.Fatalf("server: %v", err)
	}
}

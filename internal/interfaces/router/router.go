package router

import (
	"fmt"
	"time"

	"ecotrack-backend/internal/application/activity"
	"ecotrack-backend/internal/application/awareness"
	"ecotrack-backend/internal/application/leaderboard"
	"ecotrack-backend/internal/application/ledger"
	listsvc "ecotrack-backend/internal/application/listings"
	usersvc "ecotrack-backend/internal/application/user"
	"ecotrack-backend/internal/auth"
	"ecotrack-backend/internal/config"
	"ecotrack-backend/internal/domain"
	"ecotrack-backend/internal/infrastructure/database"
	acthandler "ecotrack-backend/internal/interfaces/handlers/activity"
	adminhandler "ecotrack-backend/internal/interfaces/handlers/admin"
	authhandler "ecotrack-backend/internal/interfaces/handlers/auth"
	awarehandler "ecotrack-backend/internal/interfaces/handlers/awareness"
	healthhandler "ecotrack-backend/internal/interfaces/handlers/health"
	listhandler "ecotrack-backend/internal/interfaces/handlers/listings"
	userhandler "ecotrack-backend/internal/interfaces/handlers/user"
	"ecotrack-backend/internal/middleware"
	"ecotrack-backend/internal/realtime"
	"ecotrack-backend/internal/scheduler"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// App is the wired application: the REST API, the realtime server and the
// services behind them.
type App struct {
	Fiber     *fiber.App
	DB        *gorm.DB
	Rdb       *redis.Client
	Hub       *realtime.Hub
	Relay     *realtime.Relay // nil without Redis
	Realtime  *realtime.Server
	Scheduler *scheduler.Scheduler
	Registry  *prometheus.Registry

	Auth        *auth.Service
	Board       *leaderboard.Service
	Listings    *listsvc.Service
	Broadcaster *realtime.Broadcaster
}

// CreateApp opens the database and Redis from cfg and builds the App.
func CreateApp(cfg *config.Config) (*App, error) {
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("database url is not configured for env %q", cfg.Env)
	}
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	var rdb *redis.Client
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		rdb = redis.NewClient(opt)
	}
	return Build(cfg, db, rdb)
}

func listingPolicy(cfg *config.Config) listsvc.Policy {
	p := listsvc.DefaultPolicy()
	p.ReservationTTL[domain.KindRecyclable] = cfg.ReservationTTLRecyclable
	p.ReservationTTL[domain.KindDonation] = cfg.ReservationTTLDonation
	if cfg.ListingRetention > 0 {
		p.Retention = cfg.ListingRetention
	}
	return p
}

// Build wires services, handlers and routes on an open database. rdb may be
// nil, in which case token revocation, the leaderboard cache, health counters
// and cross-instance fan-out are disabled.
func Build(cfg *config.Config, db *gorm.DB, rdb *redis.Client) (*App, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	hub := realtime.NewHub(realtime.NewMetrics(reg))
	var emitter realtime.Emitter = hub
	var relay *realtime.Relay
	if rdb != nil {
		relay = &realtime.Relay{Rdb: rdb, Channel: cfg.EventsChannel, Hub: hub}
		emitter = relay
	}
	bc := realtime.NewBroadcaster(emitter)

	tokens := &auth.TokenStore{Rdb: rdb}
	authSvc := &auth.Service{
		DB:          db,
		Tokens:      &auth.Tokens{Secret: []byte(cfg.JWTSecret), TTL: cfg.JWTTTL},
		Store:       tokens,
		Broadcaster: bc,
	}
	ledgerSvc := &ledger.Service{DB: db}
	board := &leaderboard.Service{DB: db, Rdb: rdb, Broadcaster: bc}
	listings := &listsvc.Service{DB: db, Ledger: ledgerSvc, Board: board, Broadcaster: bc, Policy: listingPolicy(cfg)}
	users := &usersvc.Service{DB: db, Ledger: ledgerSvc, Board: board, Tokens: tokens, TokenTTL: cfg.JWTTTL}
	act := &activity.Service{DB: db, Ledger: ledgerSvc, Board: board, Broadcaster: bc}
	aware := &awareness.Service{DB: db, Broadcaster: bc}

	sched, err := scheduler.New(scheduler.Config{
		SweepSchedule: cfg.SweepSchedule,
		StatsSchedule: cfg.StatsSchedule,
	}, listings, hub, bc)
	if err != nil {
		return nil, err
	}

	middleware.SetLevel(cfg.LogLevel)
	app := fiber.New(fiber.Config{
		DisableStartupMessage:   true,
		ErrorHandler:            middleware.ErrorHandler,
		EnableTrustedProxyCheck: true,
		ReadTimeout:             30 * time.Second,
	})

	app.Use(middleware.CORS(middleware.CORSConfig{
		AllowedSuffix: cfg.FrontendURLEndsWith,
		DevPassword:   cfg.DevPassword,
	}))
	app.Use(middleware.HealthMarker(rdb))
	app.Use(middleware.Tracing())
	app.Use(middleware.RouteLogger())

	hh := &healthhandler.Handlers{Rdb: rdb, Hub: hub, HealthAdminKey: cfg.HealthAdminKey}
	if sqlDB, err := db.DB(); err == nil {
		hh.DB = sqlDB
	}
	app.Get("/health/json", hh.JSON)
	app.Get("/health/errors", hh.Errors)
	app.Post("/health/reset", hh.Reset)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})))

	requireAuth := middleware.RequireAuth(authSvc)
	optionalAuth := middleware.OptionalAuth(authSvc)
	requireAdmin := middleware.RequireAdmin()

	v1 := app.Group("/api/v1")

	ah := &authhandler.Handlers{Service: authSvc, Users: users}
	authGroup := v1.Group("/auth")
	limited := middleware.RateLimit(cfg.AuthRatePerMinute)
	authGroup.Post("/register", limited, ah.Register)
	authGroup.Post("/login", limited, ah.Login)
	authGroup.Post("/logout", requireAuth, ah.Logout)
	authGroup.Get("/me", requireAuth, ah.Me)

	uh := &userhandler.Handlers{Service: users, Board: board}
	userGroup := v1.Group("/users")
	userGroup.Get("/leaderboard", optionalAuth, uh.Leaderboard)
	userGroup.Get("/profile", requireAuth, uh.Profile)
	userGroup.Put("/profile", requireAuth, uh.UpdateProfile)
	userGroup.Get("/stats", requireAuth, uh.Stats)
	userGroup.Get("/points", requireAuth, uh.Points)
	userGroup.Patch("/:id/status", requireAuth, requireAdmin, uh.SetStatus)

	recyclables := &listhandler.Handlers{Service: listings, Kind: domain.KindRecyclable}
	recyclables.Mount(v1.Group("/recyclables"), requireAuth, optionalAuth)
	donations := &listhandler.Handlers{Service: listings, Kind: domain.KindDonation}
	donations.Mount(v1.Group("/donations"), requireAuth, optionalAuth)

	acth := &acthandler.Handlers{Service: act}
	fp := v1.Group("/footprint", requireAuth)
	fp.Post("/", acth.LogFootprint)
	fp.Get("/", acth.Footprints)
	fp.Get("/summary", acth.FootprintSummary)
	fp.Delete("/:id", acth.DeleteFootprint)
	water := v1.Group("/water", requireAuth)
	water.Post("/", acth.LogWater)
	water.Get("/", acth.WaterLogs)
	water.Get("/summary", acth.WaterSummary)
	water.Delete("/:id", acth.DeleteWater)

	awh := &awarehandler.Handlers{Service: aware}
	aw := v1.Group("/awareness")
	aw.Get("/", awh.List)
	aw.Get("/:id", awh.Get)
	aw.Get("/:id/comments", awh.Comments)
	aw.Post("/:id/comments", requireAuth, awh.AddComment)
	aw.Post("/", requireAuth, requireAdmin, awh.Create)
	aw.Put("/:id", requireAuth, requireAdmin, awh.Update)
	aw.Delete("/:id", requireAuth, requireAdmin, awh.Delete)

	adh := &adminhandler.Handlers{Hub: hub, Broadcaster: bc}
	admin := v1.Group("/admin", requireAuth, requireAdmin)
	admin.Post("/alerts", adh.Alert)
	admin.Post("/announcements", adh.Announce)
	admin.Get("/realtime", adh.Realtime)

	return &App{
		Fiber:       app,
		DB:          db,
		Rdb:         rdb,
		Hub:         hub,
		Relay:       relay,
		Realtime:    realtime.NewServer(hub, authSvc),
		Scheduler:   sched,
		Registry:    reg,
		Auth:        authSvc,
		Board:       board,
		Listings:    listings,
		Broadcaster: bc,
	}, nil
}

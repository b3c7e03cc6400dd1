package main // Entry point package

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/callboard/callboard/internal/config"
	"github.com/callboard/callboard/internal/database"
	"github.com/callboard/callboard/internal/handler"
	"github.com/callboard/callboard/internal/middleware"
	"github.com/callboard/callboard/internal/mirror"
	"github.com/callboard/callboard/internal/queue"
	"github.com/callboard/callboard/internal/repository"
	"github.com/callboard/callboard/internal/router"
	queue_publisher "github.com/callboard/callboard/internal/service"
)

func main() {
	// .env is optional; real deployments set the variables directly.
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Redis is optional: when unreachable, caching and rate limiting degrade
	// to pass-through middleware.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable; response cache and rate limiting disabled")
	}

	mirrorStore, err := mirror.NewStore(cfg.MirrorDir)
	if err != nil {
		log.Fatalf("mirror: %v", err)
	}

	// Repositories.
	orgRepo := repository.NewOrganizationRepo(db)
	userRepo := repository.NewUserRepo(db)
	tokenRepo := repository.NewTokenRepo(db)
	showRepo := repository.NewShowRepo(db)
	attRepo := repository.NewAttendanceRepo(db)

	// The audit-log consumer runs for the life of the process and survives
	// broker restarts via its own reconnect loop.
	go func() {
		if err := queue.StartAttendanceConsumer(); err != nil {
			log.Printf("attendance-consumer stopped: %v", err)
		}
	}()
	events := queue_publisher.NewBroker()

	// Handlers.
	authH := handler.NewAuthHandler(cfg, userRepo, tokenRepo, orgRepo)
	orgH := handler.NewOrgHandler(orgRepo)
	userH := handler.NewUserHandler(cfg, userRepo)
	showH := handler.NewShowHandler(showRepo)
	importH := handler.NewImportHandler(showRepo)
	attH := handler.NewAttendanceHandler(attRepo, showRepo, userRepo, events)
	actorH := handler.NewActorHandler(showRepo, userRepo, attRepo)
	signInH := handler.NewSignInHandler(showRepo, attRepo, events)
	offlineH := handler.NewOfflineHandler(showRepo, userRepo, orgRepo, mirrorStore)

	e := echo.New()
	e.HideBanner = true

	router.RegisterRoutes(e, orgH)
	router.RegisterAuth(e, authH, cfg.JWTSecret)
	router.RegisterAdmin(e, router.AdminHandlers{
		Orgs:       orgH,
		Users:      userH,
		Shows:      showH,
		Imports:    importH,
		Attendance: attH,
		Offline:    offlineH,
	}, cfg.JWTSecret)

	cacheMW := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)
	rateMW := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	router.RegisterActor(e, actorH, signInH, cfg.JWTSecret, cacheMW, rateMW)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}

package handler_test

import (
	"database/sql"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/callboard/callboard/internal/config"
	"github.com/callboard/callboard/internal/handler"
	"github.com/callboard/callboard/internal/middleware"
	"github.com/callboard/callboard/internal/mirror"
	"github.com/callboard/callboard/internal/repository"
	"github.com/callboard/callboard/internal/router"
	"github.com/callboard/callboard/internal/testutil"
)

// newTestApp wires the full route surface over an in-memory database. Events
// are disabled (nil publisher) and Redis is absent, so the cache and rate
// limit middlewares degrade to pass-through exactly as in a Redis outage.
func newTestApp(t *testing.T) (*echo.Echo, *sql.DB) {
	t.Helper()
	db := testutil.OpenDB(t)

	cfg := config.Config{
		Env:            "test",
		JWTSecret:      testutil.JWTSecret,
		AccessTTLMin:   5,
		RefreshTTLDays: 7,
		BcryptCost:     4,
		MirrorDir:      t.TempDir(),
	}

	mirrorStore, err := mirror.NewStore(cfg.MirrorDir)
	if err != nil {
		t.Fatalf("mirror store: %v", err)
	}

	orgRepo := repository.NewOrganizationRepo(db)
	userRepo := repository.NewUserRepo(db)
	tokenRepo := repository.NewTokenRepo(db)
	showRepo := repository.NewShowRepo(db)
	attRepo := repository.NewAttendanceRepo(db)

	authH := handler.NewAuthHandler(cfg, userRepo, tokenRepo, orgRepo)
	orgH := handler.NewOrgHandler(orgRepo)
	userH := handler.NewUserHandler(cfg, userRepo)
	showH := handler.NewShowHandler(showRepo)
	importH := handler.NewImportHandler(showRepo)
	attH := handler.NewAttendanceHandler(attRepo, showRepo, userRepo, nil)
	actorH := handler.NewActorHandler(showRepo, userRepo, attRepo)
	signInH := handler.NewSignInHandler(showRepo, attRepo, nil)
	offlineH := handler.NewOfflineHandler(showRepo, userRepo, orgRepo, mirrorStore)

	e := echo.New()
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

	cacheMW := middleware.NewRedisCache(config.LoadCacheConfig(), nil)
	rateMW := middleware.NewTokenBucket(config.LoadRateLimitConfig(), nil)
	router.RegisterActor(e, actorH, signInH, cfg.JWTSecret, cacheMW, rateMW)

	return e, db
}

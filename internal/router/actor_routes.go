package router

import (
	"github.com/labstack/echo/v4"

	"github.com/callboard/callboard/internal/handler"
	"github.com/callboard/callboard/internal/middleware"
)

// RegisterActor registers cast-facing endpoints under /v1. All routes
// require a valid JWT and the actor role. The callboard poll sits behind the
// org-keyed response cache; the sign-in scan sits behind the token bucket.
func RegisterActor(e *echo.Echo, a *handler.ActorHandler, s *handler.SignInHandler, jwtSecret string, cacheMW, rateMW echo.MiddlewareFunc) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("actor"),
	)
	g.GET("/actor/callboard/active", a.CallboardActive, cacheMW)
	g.GET("/sign-in/:token", s.SignIn, rateMW)
}

package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/callboard/callboard/internal/handler"
	"github.com/callboard/callboard/internal/middleware"
)

// RegisterRoutes registers routes that do not require authentication on the
// provided Echo instance: the health check and organization bootstrap.
func RegisterRoutes(e *echo.Echo, o *handler.OrgHandler) {
	// Load balancers and monitoring poll this.
	e.GET("/healthz", handler.Health)

	// Organizations are created before any of their users can exist, so the
	// endpoints are public. The listing only exposes identity fields.
	e.POST("/v1/organizations", o.Create)
	e.GET("/v1/organizations", o.List)
}

// RegisterAuth registers all authentication-related routes. Unauthenticated
// operations live under /v1/auth, while /v1/me requires a valid token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	// Rotates the refresh token.
	g.POST("/refresh", a.Refresh)
	// Issues a new access token without rotating the refresh token.
	g.POST("/refresh-access", a.RefreshAccess)
	// Logout accepts either a refresh_token body or a bearer access token;
	// it deliberately skips the JWT middleware so an expired session can
	// still revoke its refresh token.
	g.POST("/logout", a.Logout)

	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.Use(middleware.RequireRole("admin", "actor"))
	auth.GET("/me", a.Me)
}

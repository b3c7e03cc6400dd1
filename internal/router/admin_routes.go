package router

import (
	"github.com/labstack/echo/v4"

	"github.com/callboard/callboard/internal/handler"
	"github.com/callboard/callboard/internal/middleware"
)

// AdminHandlers bundles the handlers mounted on the admin group.
type AdminHandlers struct {
	Orgs       *handler.OrgHandler
	Users      *handler.UserHandler
	Shows      *handler.ShowHandler
	Imports    *handler.ImportHandler
	Attendance *handler.AttendanceHandler
	Offline    *handler.OfflineHandler
}

// RegisterAdmin registers admin-scoped endpoints under /v1. All routes
// require a valid JWT and the admin role; every handler additionally scopes
// its queries by the org claim.
func RegisterAdmin(e *echo.Echo, h AdminHandlers, jwtSecret string) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("admin"),
	)

	// Organization settings (the caller's own org only).
	g.GET("/organizations/me/settings", h.Orgs.GetSettings)
	g.PATCH("/organizations/me/settings", h.Orgs.UpdateSettings)

	// Roster management.
	g.GET("/users", h.Users.List)
	g.POST("/users", h.Users.Create)
	g.GET("/users/:id", h.Users.Get)
	g.PATCH("/users/:id", h.Users.Update)
	g.DELETE("/users/:id", h.Users.Delete)

	// Show lifecycle. The static /shows/active route is registered before
	// the :id routes take their parameter.
	g.GET("/shows", h.Shows.List)
	g.POST("/shows", h.Shows.Create)
	g.GET("/shows/active", h.Shows.Active)
	g.POST("/shows/import", h.Imports.Import)
	g.POST("/shows/bulk-generate", h.Imports.BulkGenerate)
	g.GET("/shows/:id", h.Shows.Get)
	g.PATCH("/shows/:id", h.Shows.Update)
	g.DELETE("/shows/:id", h.Shows.Delete)
	g.POST("/shows/:id/activate", h.Shows.Activate)
	g.POST("/shows/:id/close-signin", h.Shows.CloseSignIn)

	// Attendance ledger.
	g.GET("/attendance", h.Attendance.List)
	g.POST("/attendance", h.Attendance.Set)
	g.DELETE("/attendance", h.Attendance.Clear)
	g.POST("/attendance/bulk", h.Attendance.Bulk)

	// Offline sign-in sheet.
	g.GET("/offline/sheet", h.Offline.Sheet)
}

package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/callboard/callboard/internal/repository"
)

// ActorHandler serves the cast-facing callboard view.
type ActorHandler struct {
	Shows      *repository.ShowRepo
	Users      *repository.UserRepo
	Attendance *repository.AttendanceRepo
}

func NewActorHandler(s *repository.ShowRepo, u *repository.UserRepo, a *repository.AttendanceRepo) *ActorHandler {
	return &ActorHandler{Shows: s, Users: u, Attendance: a}
}

// callboardShow is the cast-facing projection of a show. The sign-in token
// must never appear here: this response is polled by every actor and stored
// in the response cache, and the token is the credential the QR gate rotates.
type callboardShow struct {
	ID       uint64  `json:"id"`
	Date     string  `json:"date"`
	ShowTime string  `json:"showTime"`
	ActiveAt *string `json:"activeAt"`
	LockedAt *string `json:"lockedAt"`
}

// CallboardActive returns the organization's active show together with the
// actor roster and that show's ledger rows. The cast dashboard polls this on
// an interval, so the route sits behind the response cache; a 200 with a
// null show keeps "nothing active" cacheable too.
func (h *ActorHandler) CallboardActive(c echo.Context) error {
	orgID, err := getOrgID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	actors, err := h.Users.ListByOrg(ctx, orgID, "actor")
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	roster := make([]rosterUser, 0, len(actors))
	for _, u := range actors {
		roster = append(roster, toRosterUser(u))
	}

	show, err := h.Shows.GetActive(ctx, orgID)
	if err != nil {
		if err == repository.ErrNoActiveShow {
			return c.JSON(http.StatusOK, echo.Map{"show": nil, "actors": roster, "attendance": []repository.Attendance{}})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	ledger, err := h.Attendance.ListByShow(ctx, orgID, show.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if ledger == nil {
		ledger = []repository.Attendance{}
	}
	view := callboardShow{ID: show.ID, Date: show.Date, ShowTime: show.ShowTime, ActiveAt: show.ActiveAt, LockedAt: show.LockedAt}
	return c.JSON(http.StatusOK, echo.Map{"show": view, "actors": roster, "attendance": ledger})
}

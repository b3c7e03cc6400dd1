package handler

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/callboard/callboard/internal/mirror"
	"github.com/callboard/callboard/internal/repository"
	"github.com/callboard/callboard/internal/showtime"
)

// OfflineHandler serves the printable sign-in sheet backed by the offline
// mirror. Every successful live read refreshes the organization's snapshot;
// when the datastore is unreachable the last snapshot is served instead so
// the stage door still has a roster and schedule to work from.
type OfflineHandler struct {
	Shows  *repository.ShowRepo
	Users  *repository.UserRepo
	Orgs   *repository.OrganizationRepo
	Mirror *mirror.Store
}

func NewOfflineHandler(s *repository.ShowRepo, u *repository.UserRepo, o *repository.OrganizationRepo, m *mirror.Store) *OfflineHandler {
	return &OfflineHandler{Shows: s, Users: u, Orgs: o, Mirror: m}
}

// Sheet returns roster + schedule for ?start&end (inclusive), defaulting to
// the current week per the organization's weekStartsOn setting. Attendance
// is never part of the sheet. The fromSnapshot flag tells the device it is
// looking at stale data; 503 means neither live data nor a snapshot exists.
func (h *OfflineHandler) Sheet(c echo.Context) error {
	orgID, err := getOrgID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	start := strings.TrimSpace(c.QueryParam("start"))
	end := strings.TrimSpace(c.QueryParam("end"))
	if start != "" && !showtime.DateRegex.MatchString(start) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "start must be YYYY-MM-DD"})
	}
	if end != "" && !showtime.DateRegex.MatchString(end) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "end must be YYYY-MM-DD"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	snap, err := h.buildLive(ctx, orgID, start, end)
	if err != nil {
		log.Printf("offline-sheet: live read failed for org %d: %v; falling back to snapshot", orgID, err)
		stored, loadErr := h.Mirror.Load(orgID)
		if loadErr != nil {
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "sheet unavailable"})
		}
		return c.JSON(http.StatusOK, echo.Map{"sheet": stored, "fromSnapshot": true})
	}

	if err := h.Mirror.Replace(*snap); err != nil {
		// Live data still serves; only the next outage loses freshness.
		log.Printf("offline-sheet: snapshot refresh failed for org %d: %v", orgID, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"sheet": snap, "fromSnapshot": false})
}

func (h *OfflineHandler) buildLive(ctx context.Context, orgID uint64, start, end string) (*mirror.Snapshot, error) {
	if start == "" || end == "" {
		org, err := h.Orgs.GetByID(ctx, orgID)
		if err != nil {
			return nil, err
		}
		ws, we := showtime.WeekBounds(time.Now().UTC(), org.WeekStartsOn)
		if start == "" {
			start = ws
		}
		if end == "" {
			end = we
		}
	}

	actors, err := h.Users.ListByOrg(ctx, orgID, "actor")
	if err != nil {
		return nil, err
	}
	shows, err := h.Shows.ListRange(ctx, orgID, start, end)
	if err != nil {
		return nil, err
	}

	snap := &mirror.Snapshot{
		OrganizationID: orgID,
		Actors:         make([]mirror.Actor, 0, len(actors)),
		Shows:          make([]mirror.Show, 0, len(shows)),
		SyncedAt:       time.Now().UTC().Format(time.RFC3339),
	}
	for _, a := range actors {
		snap.Actors = append(snap.Actors, mirror.Actor{ID: a.ID, FirstName: a.FirstName, LastName: a.LastName})
	}
	for _, s := range shows {
		snap.Shows = append(snap.Shows, mirror.Show{ID: s.ID, Date: s.Date, ShowTime: s.ShowTime, ActiveAt: s.ActiveAt, LockedAt: s.LockedAt})
	}
	return snap, nil
}

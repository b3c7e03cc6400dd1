package handler

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/callboard/callboard/internal/repository"
	"github.com/callboard/callboard/internal/showtime"
)

// expiredShowGrace is how long past its scheduled moment a show with no
// attendance is kept before the inline sweep removes it. Long enough that a
// slot created by mistake for "yesterday" survives a same-day correction.
const expiredShowGrace = 36 * time.Hour

// ShowHandler serves the show lifecycle endpoints.
type ShowHandler struct {
	Shows *repository.ShowRepo
}

func NewShowHandler(s *repository.ShowRepo) *ShowHandler { return &ShowHandler{Shows: s} }

// List returns the organization's shows ordered by (date, time), optionally
// bounded by ?start and ?end (inclusive, YYYY-MM-DD). Before reading it
// garbage-collects org shows whose moment is more than 36h past and that
// nobody ever signed in to; shows with any attendance are kept forever.
func (h *ShowHandler) List(c echo.Context) error {
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

	// The sweep rides on listing reads instead of a background job; a failed
	// sweep only means stale rows linger until the next read.
	if n, err := h.Shows.DeleteExpiredWithoutAttendance(ctx, orgID, time.Now().UTC().Add(-expiredShowGrace)); err != nil {
		log.Printf("show-gc: sweep failed for org %d: %v", orgID, err)
	} else if n > 0 {
		log.Printf("show-gc: removed %d expired shows for org %d", n, orgID)
	}

	shows, err := h.Shows.ListRange(ctx, orgID, start, end)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if shows == nil {
		shows = []repository.Show{}
	}
	return c.JSON(http.StatusOK, echo.Map{"shows": shows})
}

type createShowReq struct {
	Date     string `json:"date"`
	ShowTime string `json:"showTime"`
}

// Create schedules a single show. The time accepts any normalizable
// spelling ("19:30", "7:30 pm", "matinee") and is stored canonicalized.
func (h *ShowHandler) Create(c echo.Context) error {
	orgID, err := getOrgID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req createShowReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	date := strings.TrimSpace(req.Date)
	if !showtime.DateRegex.MatchString(date) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "date must be YYYY-MM-DD"})
	}
	hhmm, ok := showtime.Normalize(req.ShowTime)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unrecognized showTime"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	s := &repository.Show{OrganizationID: orgID, Date: date, ShowTime: hhmm}
	if err := h.Shows.Create(ctx, s); err != nil {
		if err == repository.ErrDuplicateShow {
			return c.JSON(http.StatusConflict, echo.Map{"error": "show already exists for that date and time"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create show failed"})
	}
	return c.JSON(http.StatusCreated, s)
}

// Get returns one show; cross-tenant ids 404 like missing ones.
func (h *ShowHandler) Get(c echo.Context) error {
	orgID, err := getOrgID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := paramID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	s, err := h.Shows.GetByIDAndOrg(ctx, id, orgID)
	if err != nil {
		if err == repository.ErrShowNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "show not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, s)
}

type patchShowReq struct {
	Date     *string `json:"date"`
	ShowTime *string `json:"showTime"`
}

// Update reschedules a show. Editing stays allowed on closed shows so the
// record can be corrected after the fact; lifecycle fields are untouchable
// through this endpoint.
func (h *ShowHandler) Update(c echo.Context) error {
	orgID, err := getOrgID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := paramID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req patchShowReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	s, err := h.Shows.GetByIDAndOrg(ctx, id, orgID)
	if err != nil {
		if err == repository.ErrShowNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "show not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	if req.Date != nil {
		date := strings.TrimSpace(*req.Date)
		if !showtime.DateRegex.MatchString(date) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "date must be YYYY-MM-DD"})
		}
		s.Date = date
	}
	if req.ShowTime != nil {
		hhmm, ok := showtime.Normalize(*req.ShowTime)
		if !ok {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "unrecognized showTime"})
		}
		s.ShowTime = hhmm
	}

	if err := h.Shows.UpdateByIDAndOrg(ctx, s, orgID); err != nil {
		switch err {
		case repository.ErrShowNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"error": "show not found"})
		case repository.ErrDuplicateShow:
			return c.JSON(http.StatusConflict, echo.Map{"error": "show already exists for that date and time"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.JSON(http.StatusOK, s)
}

// Delete removes a show and its ledger rows.
func (h *ShowHandler) Delete(c echo.Context) error {
	orgID, err := getOrgID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := paramID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Shows.DeleteByIDAndOrg(ctx, id, orgID); err != nil {
		if err == repository.ErrShowNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "show not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// Activate opens a show for sign-in. Only the next upcoming show can be
// activated, and activating deactivates any other show in the organization
// and rotates the sign-in token.
func (h *ShowHandler) Activate(c echo.Context) error {
	orgID, err := getOrgID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := paramID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	s, err := h.Shows.Activate(ctx, id, orgID, time.Now().UTC())
	if err != nil {
		switch err {
		case repository.ErrShowNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"error": "show not found"})
		case repository.ErrShowClosed:
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "show sign-in is closed"})
		case repository.ErrNotNextUpcoming:
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "show is not the next upcoming show"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "activate failed"})
	}
	return c.JSON(http.StatusOK, s)
}

// CloseSignIn permanently closes the active show's sign-in window.
func (h *ShowHandler) CloseSignIn(c echo.Context) error {
	orgID, err := getOrgID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := paramID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	s, err := h.Shows.CloseSignIn(ctx, id, orgID, time.Now().UTC())
	if err != nil {
		switch err {
		case repository.ErrShowNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"error": "show not found"})
		case repository.ErrShowNotActive:
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "show is not active"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "close failed"})
	}
	return c.JSON(http.StatusOK, s)
}

// Active returns the organization's currently active show, or 404 when no
// sign-in window is open.
func (h *ShowHandler) Active(c echo.Context) error {
	orgID, err := getOrgID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	s, err := h.Shows.GetActive(ctx, orgID)
	if err != nil {
		if err == repository.ErrNoActiveShow {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "no active show"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, s)
}

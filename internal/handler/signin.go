package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/callboard/callboard/internal/queue"
	"github.com/callboard/callboard/internal/repository"
	queue_publisher "github.com/callboard/callboard/internal/service"
)

// SignInHandler serves the QR self-service sign-in endpoint.
type SignInHandler struct {
	Shows      *repository.ShowRepo
	Attendance *repository.AttendanceRepo
	Events     queue_publisher.EventPublisher // nil disables event publishing
}

func NewSignInHandler(s *repository.ShowRepo, a *repository.AttendanceRepo, ev queue_publisher.EventPublisher) *SignInHandler {
	return &SignInHandler{Shows: s, Attendance: a, Events: ev}
}

// SignIn records the authenticated actor as present for the show behind the
// scanned token. The token is looked up globally, then the checks run in
// order: unknown token 404, inactive show 400, closed show 400, caller from
// another organization 403. A closed show has no activeAt, so a stale QR for
// it reports "not active". A repeat scan is a no-op that reports
// alreadySignedIn and never downgrades an existing status.
func (h *SignInHandler) SignIn(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	orgID, err := getOrgID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	token := strings.TrimSpace(c.Param("token"))
	if token == "" {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "invalid sign-in token"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	show, err := h.Shows.GetBySignInToken(ctx, token)
	if err != nil {
		if err == repository.ErrInvalidSignInToken {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "invalid sign-in token"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if show.ActiveAt == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "show is not active"})
	}
	if show.LockedAt != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "sign-in for this show is closed"})
	}
	if show.OrganizationID != orgID {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}

	created, err := h.Attendance.CreateIfAbsent(ctx, userID, show.ID, time.Now().UTC())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "sign-in failed"})
	}
	if created && h.Events != nil {
		_ = h.Events.PublishAttendanceRecorded(ctx, queue.AttendanceRecordedEvent{
			OrganizationID: show.OrganizationID,
			ShowID:         show.ID,
			ShowDate:       show.Date,
			ShowTime:       show.ShowTime,
			UserID:         userID,
			Status:         repository.StatusSignedIn,
			Action:         "sign_in",
			RecordedAt:     time.Now().UTC().Format(time.RFC3339),
		})
	}
	// Only the slot goes back to the scanner; the row carries the token and
	// tenant internals, none of the actor's business.
	return c.JSON(http.StatusOK, echo.Map{
		"success":         true,
		"alreadySignedIn": !created,
		"show":            echo.Map{"date": show.Date, "showTime": show.ShowTime},
	})
}

package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/callboard/callboard/internal/queue"
	"github.com/callboard/callboard/internal/repository"
	queue_publisher "github.com/callboard/callboard/internal/service"
)

// AttendanceHandler serves the admin side of the attendance ledger.
type AttendanceHandler struct {
	Attendance *repository.AttendanceRepo
	Shows      *repository.ShowRepo
	Users      *repository.UserRepo
	Events     queue_publisher.EventPublisher // nil disables event publishing
}

func NewAttendanceHandler(a *repository.AttendanceRepo, s *repository.ShowRepo, u *repository.UserRepo, ev queue_publisher.EventPublisher) *AttendanceHandler {
	return &AttendanceHandler{Attendance: a, Shows: s, Users: u, Events: ev}
}

// publish sends an audit event; failures are ignored so a broker outage
// never blocks a ledger write.
func (h *AttendanceHandler) publish(ctx context.Context, show *repository.Show, userID uint64, status, action string, markedBy *uint64) {
	if h.Events == nil {
		return
	}
	_ = h.Events.PublishAttendanceRecorded(ctx, queue.AttendanceRecordedEvent{
		OrganizationID: show.OrganizationID,
		ShowID:         show.ID,
		ShowDate:       show.Date,
		ShowTime:       show.ShowTime,
		UserID:         userID,
		Status:         status,
		Action:         action,
		MarkedByUserID: markedBy,
		RecordedAt:     time.Now().UTC().Format(time.RFC3339),
	})
}

// List returns org-scoped ledger records, optionally filtered by ?showId
// and/or ?userId.
func (h *AttendanceHandler) List(c echo.Context) error {
	orgID, err := getOrgID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	showID, _ := queryID(c, "showId")
	userID, _ := queryID(c, "userId")

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	records, err := h.Attendance.List(ctx, orgID, showID, userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if records == nil {
		records = []repository.AttendanceRecord{}
	}
	return c.JSON(http.StatusOK, echo.Map{"attendance": records})
}

type setAttendanceReq struct {
	UserID uint64 `json:"userId"`
	ShowID uint64 `json:"showId"`
	Status string `json:"status"`
}

// Set writes a status for (user, show), creating or overwriting the ledger
// row. The write is attributed to the calling admin. Works on closed shows:
// manual correction is exactly what closing leaves open.
func (h *AttendanceHandler) Set(c echo.Context) error {
	orgID, err := getOrgID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	adminID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req setAttendanceReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if !repository.ValidStatus(req.Status) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	show, err := h.Shows.GetByIDAndOrg(ctx, req.ShowID, orgID)
	if err != nil {
		if err == repository.ErrShowNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "show not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if _, err := h.Users.GetByIDAndOrg(ctx, req.UserID, orgID); err != nil {
		if err == repository.ErrUserNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	a, err := h.Attendance.Upsert(ctx, req.UserID, req.ShowID, req.Status, &adminID, time.Now().UTC())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "write failed"})
	}
	h.publish(ctx, show, req.UserID, req.Status, "mark", &adminID)
	return c.JSON(http.StatusOK, a)
}

// Clear deletes the ledger row for ?userId&showId, returning the pair to the
// unset state. Missing and cross-tenant rows both 404.
func (h *AttendanceHandler) Clear(c echo.Context) error {
	orgID, err := getOrgID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	adminID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	userID, err := queryID(c, "userId")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "userId required"})
	}
	showID, err := queryID(c, "showId")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "showId required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Attendance.DeleteScoped(ctx, userID, showID, orgID); err != nil {
		if err == repository.ErrAttendanceNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "attendance not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	if show, err := h.Shows.GetByIDAndOrg(ctx, showID, orgID); err == nil {
		h.publish(ctx, show, userID, "cleared", "clear", &adminID)
	}
	return c.NoContent(http.StatusNoContent)
}

type bulkMarkReq struct {
	ShowID  uint64   `json:"showId"`
	UserIDs []uint64 `json:"userIds"`
}

// Bulk marks many actors signed in against one show in a single call, used
// to reconcile a paper sheet after a connectivity gap. Unknown, cross-tenant
// and non-actor ids are dropped silently; the response reports what was
// actually written.
func (h *AttendanceHandler) Bulk(c echo.Context) error {
	orgID, err := getOrgID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	adminID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req bulkMarkReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if len(req.UserIDs) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "userIds required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 30*time.Second)
	defer cancel()

	show, err := h.Shows.GetByIDAndOrg(ctx, req.ShowID, orgID)
	if err != nil {
		if err == repository.ErrShowNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "show not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	written, err := h.Attendance.BulkMark(ctx, req.ShowID, req.UserIDs, adminID, orgID, time.Now().UTC())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "bulk mark failed"})
	}
	for _, uid := range written {
		h.publish(ctx, show, uid, repository.StatusSignedIn, "bulk_mark", &adminID)
	}
	if written == nil {
		written = []uint64{}
	}
	return c.JSON(http.StatusOK, echo.Map{"count": len(written), "markedUserIds": written})
}

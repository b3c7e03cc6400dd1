package handler_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/callboard/callboard/internal/repository"
	"github.com/callboard/callboard/internal/testutil"
)

func TestSetAttendanceValidation(t *testing.T) {
	e, db := newTestApp(t)

	orgID := testutil.SeedOrg(t, db, "Troupe", "troupe", 0)
	otherOrg := testutil.SeedOrg(t, db, "Rivals", "rivals", 0)
	admin := testutil.SeedUser(t, db, orgID, "sm@troupe.test", "admin", "Stage", "Manager")
	actor := testutil.SeedUser(t, db, orgID, "a@troupe.test", "actor", "Ada", "Lear")
	outsider := testutil.SeedUser(t, db, otherOrg, "x@rivals.test", "actor", "Eve", "Iago")
	show := testutil.SeedShow(t, db, orgID, "2026-09-01", "19:30")
	adminToken := testutil.Token(t, admin, "admin", orgID)

	t.Run("invalid status", func(t *testing.T) {
		rec := testutil.DoJSON(t, e, http.MethodPost, "/v1/attendance",
			map[string]any{"userId": actor, "showId": show, "status": "present"}, adminToken)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown show", func(t *testing.T) {
		rec := testutil.DoJSON(t, e, http.MethodPost, "/v1/attendance",
			map[string]any{"userId": actor, "showId": 99999, "status": repository.StatusAbsent}, adminToken)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("cross-tenant user looks missing", func(t *testing.T) {
		rec := testutil.DoJSON(t, e, http.MethodPost, "/v1/attendance",
			map[string]any{"userId": outsider, "showId": show, "status": repository.StatusAbsent}, adminToken)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("overwrite is last-writer-wins", func(t *testing.T) {
		rec := testutil.DoJSON(t, e, http.MethodPost, "/v1/attendance",
			map[string]any{"userId": actor, "showId": show, "status": repository.StatusAbsent}, adminToken)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		rec = testutil.DoJSON(t, e, http.MethodPost, "/v1/attendance",
			map[string]any{"userId": actor, "showId": show, "status": repository.StatusPersonalDay}, adminToken)
		require.Equal(t, http.StatusOK, rec.Code)
		var a repository.Attendance
		testutil.Decode(t, rec, &a)
		assert.Equal(t, repository.StatusPersonalDay, a.Status)
		assert.Nil(t, a.SignedInAt)
	})
}

func TestClearAttendance(t *testing.T) {
	e, db := newTestApp(t)

	orgID := testutil.SeedOrg(t, db, "Troupe", "troupe", 0)
	admin := testutil.SeedUser(t, db, orgID, "sm@troupe.test", "admin", "Stage", "Manager")
	actor := testutil.SeedUser(t, db, orgID, "a@troupe.test", "actor", "Ada", "Lear")
	show := testutil.SeedShow(t, db, orgID, "2026-09-01", "19:30")
	adminToken := testutil.Token(t, admin, "admin", orgID)

	path := fmt.Sprintf("/v1/attendance?userId=%d&showId=%d", actor, show)

	rec := testutil.DoJSON(t, e, http.MethodDelete, path, nil, adminToken)
	assert.Equal(t, http.StatusNotFound, rec.Code, "clearing an unset pair 404s")

	rec = testutil.DoJSON(t, e, http.MethodPost, "/v1/attendance",
		map[string]any{"userId": actor, "showId": show, "status": repository.StatusSignedIn}, adminToken)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = testutil.DoJSON(t, e, http.MethodDelete, path, nil, adminToken)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = testutil.DoJSON(t, e, http.MethodDelete, path, nil, adminToken)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBulkMarkEndpoint(t *testing.T) {
	e, db := newTestApp(t)

	orgID := testutil.SeedOrg(t, db, "Troupe", "troupe", 0)
	admin := testutil.SeedUser(t, db, orgID, "sm@troupe.test", "admin", "Stage", "Manager")
	actor1 := testutil.SeedUser(t, db, orgID, "a1@troupe.test", "actor", "Ada", "Lear")
	actor2 := testutil.SeedUser(t, db, orgID, "a2@troupe.test", "actor", "Ben", "Fool")
	show := testutil.SeedShow(t, db, orgID, "2026-09-01", "19:30")
	adminToken := testutil.Token(t, admin, "admin", orgID)

	rec := testutil.DoJSON(t, e, http.MethodPost, "/v1/attendance/bulk",
		map[string]any{"showId": show, "userIds": []uint64{actor1, actor2, 99999}}, adminToken)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp struct {
		Count         int      `json:"count"`
		MarkedUserIDs []uint64 `json:"markedUserIds"`
	}
	testutil.Decode(t, rec, &resp)
	assert.Equal(t, 2, resp.Count)
	assert.Equal(t, []uint64{actor1, actor2}, resp.MarkedUserIDs)

	t.Run("unknown show", func(t *testing.T) {
		rec := testutil.DoJSON(t, e, http.MethodPost, "/v1/attendance/bulk",
			map[string]any{"showId": 99999, "userIds": []uint64{actor1}}, adminToken)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("empty ids", func(t *testing.T) {
		rec := testutil.DoJSON(t, e, http.MethodPost, "/v1/attendance/bulk",
			map[string]any{"showId": show, "userIds": []uint64{}}, adminToken)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestAttendanceListFilters(t *testing.T) {
	e, db := newTestApp(t)

	orgID := testutil.SeedOrg(t, db, "Troupe", "troupe", 0)
	admin := testutil.SeedUser(t, db, orgID, "sm@troupe.test", "admin", "Stage", "Manager")
	actor1 := testutil.SeedUser(t, db, orgID, "a1@troupe.test", "actor", "Ada", "Lear")
	actor2 := testutil.SeedUser(t, db, orgID, "a2@troupe.test", "actor", "Ben", "Fool")
	show1 := testutil.SeedShow(t, db, orgID, "2026-09-01", "19:30")
	show2 := testutil.SeedShow(t, db, orgID, "2026-09-02", "19:30")
	adminToken := testutil.Token(t, admin, "admin", orgID)

	for _, pair := range []struct{ u, s uint64 }{{actor1, show1}, {actor2, show1}, {actor1, show2}} {
		rec := testutil.DoJSON(t, e, http.MethodPost, "/v1/attendance",
			map[string]any{"userId": pair.u, "showId": pair.s, "status": repository.StatusSignedIn}, adminToken)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	var resp struct {
		Attendance []repository.AttendanceRecord `json:"attendance"`
	}

	rec := testutil.DoJSON(t, e, http.MethodGet, fmt.Sprintf("/v1/attendance?showId=%d", show1), nil, adminToken)
	require.Equal(t, http.StatusOK, rec.Code)
	testutil.Decode(t, rec, &resp)
	assert.Len(t, resp.Attendance, 2)

	rec = testutil.DoJSON(t, e, http.MethodGet, fmt.Sprintf("/v1/attendance?userId=%d", actor1), nil, adminToken)
	require.Equal(t, http.StatusOK, rec.Code)
	testutil.Decode(t, rec, &resp)
	assert.Len(t, resp.Attendance, 2)

	rec = testutil.DoJSON(t, e, http.MethodGet,
		fmt.Sprintf("/v1/attendance?userId=%d&showId=%d", actor2, show1), nil, adminToken)
	require.Equal(t, http.StatusOK, rec.Code)
	testutil.Decode(t, rec, &resp)
	require.Len(t, resp.Attendance, 1)
	assert.Equal(t, "Ben", resp.Attendance[0].User.FirstName)
	assert.Equal(t, "2026-09-01", resp.Attendance[0].Show.Date)
}

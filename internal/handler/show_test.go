package handler_test

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/callboard/callboard/internal/repository"
	"github.com/callboard/callboard/internal/showtime"
	"github.com/callboard/callboard/internal/testutil"
)

func TestCreateShowNormalizesTime(t *testing.T) {
	e, db := newTestApp(t)

	orgID := testutil.SeedOrg(t, db, "Troupe", "troupe", 0)
	admin := testutil.SeedUser(t, db, orgID, "sm@troupe.test", "admin", "Stage", "Manager")
	token := testutil.Token(t, admin, "admin", orgID)

	rec := testutil.DoJSON(t, e, http.MethodPost, "/v1/shows",
		map[string]any{"date": "2026-09-01", "showTime": "7:30 pm"}, token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var s repository.Show
	testutil.Decode(t, rec, &s)
	assert.Equal(t, "19:30", s.ShowTime)

	// The canonicalized slot collides with any other spelling of it.
	rec = testutil.DoJSON(t, e, http.MethodPost, "/v1/shows",
		map[string]any{"date": "2026-09-01", "showTime": "19:30"}, token)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = testutil.DoJSON(t, e, http.MethodPost, "/v1/shows",
		map[string]any{"date": "September 1st", "showTime": "19:30"}, token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestActivateAndCloseFlow(t *testing.T) {
	e, db := newTestApp(t)

	orgID := testutil.SeedOrg(t, db, "Troupe", "troupe", 0)
	admin := testutil.SeedUser(t, db, orgID, "sm@troupe.test", "admin", "Stage", "Manager")
	token := testutil.Token(t, admin, "admin", orgID)

	tomorrow := showtime.FormatDate(time.Now().UTC().AddDate(0, 0, 1))
	later := showtime.FormatDate(time.Now().UTC().AddDate(0, 0, 2))
	first := testutil.SeedShow(t, db, orgID, tomorrow, "19:30")
	second := testutil.SeedShow(t, db, orgID, later, "19:30")

	// No active show yet.
	rec := testutil.DoJSON(t, e, http.MethodGet, "/v1/shows/active", nil, token)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Skipping ahead is rejected.
	rec = testutil.DoJSON(t, e, http.MethodPost, fmt.Sprintf("/v1/shows/%d/activate", second), nil, token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = testutil.DoJSON(t, e, http.MethodPost, fmt.Sprintf("/v1/shows/%d/activate", first), nil, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var s repository.Show
	testutil.Decode(t, rec, &s)
	require.NotNil(t, s.ActiveAt)
	require.NotNil(t, s.SignInToken)
	activeToken := *s.SignInToken

	rec = testutil.DoJSON(t, e, http.MethodGet, "/v1/shows/active", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	testutil.Decode(t, rec, &s)
	assert.Equal(t, first, s.ID)

	rec = testutil.DoJSON(t, e, http.MethodPost, fmt.Sprintf("/v1/shows/%d/close-signin", first), nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	testutil.Decode(t, rec, &s)
	require.NotNil(t, s.LockedAt)
	assert.Nil(t, s.ActiveAt)
	assert.NotEqual(t, activeToken, *s.SignInToken)

	// Closing twice and re-activating are both rejected.
	rec = testutil.DoJSON(t, e, http.MethodPost, fmt.Sprintf("/v1/shows/%d/close-signin", first), nil, token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = testutil.DoJSON(t, e, http.MethodPost, fmt.Sprintf("/v1/shows/%d/activate", first), nil, token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListSweepsExpiredShows(t *testing.T) {
	e, db := newTestApp(t)

	orgID := testutil.SeedOrg(t, db, "Troupe", "troupe", 0)
	admin := testutil.SeedUser(t, db, orgID, "sm@troupe.test", "admin", "Stage", "Manager")
	actor := testutil.SeedUser(t, db, orgID, "a@troupe.test", "actor", "Ada", "Lear")
	token := testutil.Token(t, admin, "admin", orgID)

	stale := testutil.SeedShow(t, db, orgID, "2020-01-01", "19:30")
	attended := testutil.SeedShow(t, db, orgID, "2020-01-02", "19:30")
	upcoming := testutil.SeedShow(t, db, orgID, showtime.FormatDate(time.Now().UTC().AddDate(0, 0, 3)), "19:30")

	_, err := db.Exec(
		"INSERT INTO attendance (user_id, show_id, status) VALUES (?,?,?)",
		actor, attended, repository.StatusSignedIn)
	require.NoError(t, err)

	rec := testutil.DoJSON(t, e, http.MethodGet, "/v1/shows", nil, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp struct {
		Shows []repository.Show `json:"shows"`
	}
	testutil.Decode(t, rec, &resp)
	require.Len(t, resp.Shows, 2)
	ids := []uint64{resp.Shows[0].ID, resp.Shows[1].ID}
	assert.Contains(t, ids, attended)
	assert.Contains(t, ids, upcoming)
	assert.NotContains(t, ids, stale)
}

func TestShowCRUDTenantParity(t *testing.T) {
	e, db := newTestApp(t)

	orgA := testutil.SeedOrg(t, db, "A", "org-a", 0)
	orgB := testutil.SeedOrg(t, db, "B", "org-b", 0)
	adminB := testutil.SeedUser(t, db, orgB, "sm@b.test", "admin", "Beth", "Boss")
	show := testutil.SeedShow(t, db, orgA, "2026-09-01", "19:30")
	tokenB := testutil.Token(t, adminB, "admin", orgB)

	rec := testutil.DoJSON(t, e, http.MethodGet, fmt.Sprintf("/v1/shows/%d", show), nil, tokenB)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = testutil.DoJSON(t, e, http.MethodPatch, fmt.Sprintf("/v1/shows/%d", show),
		map[string]any{"showTime": "20:00"}, tokenB)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = testutil.DoJSON(t, e, http.MethodDelete, fmt.Sprintf("/v1/shows/%d", show), nil, tokenB)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestActorCannotReachAdminRoutes(t *testing.T) {
	e, db := newTestApp(t)

	orgID := testutil.SeedOrg(t, db, "Troupe", "troupe", 0)
	actor := testutil.SeedUser(t, db, orgID, "a@troupe.test", "actor", "Ada", "Lear")
	token := testutil.Token(t, actor, "actor", orgID)

	rec := testutil.DoJSON(t, e, http.MethodGet, "/v1/shows", nil, token)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = testutil.DoJSON(t, e, http.MethodGet, "/v1/shows", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

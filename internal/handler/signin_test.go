package handler_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/callboard/callboard/internal/repository"
	"github.com/callboard/callboard/internal/testutil"
)

func TestSignInHappyPathAndIdempotence(t *testing.T) {
	e, db := newTestApp(t)

	orgID := testutil.SeedOrg(t, db, "Troupe", "troupe", 0)
	actor := testutil.SeedUser(t, db, orgID, "a@troupe.test", "actor", "Ada", "Lear")
	show := testutil.SeedShow(t, db, orgID, "2026-09-01", "19:30")
	testutil.ActivateShow(t, db, show, "tok-active")
	token := testutil.Token(t, actor, "actor", orgID)

	rec := testutil.DoJSON(t, e, http.MethodGet, "/v1/sign-in/tok-active", nil, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp struct {
		Success         bool `json:"success"`
		AlreadySignedIn bool `json:"alreadySignedIn"`
		Show            struct {
			Date     string `json:"date"`
			ShowTime string `json:"showTime"`
		} `json:"show"`
	}
	testutil.Decode(t, rec, &resp)
	assert.True(t, resp.Success)
	assert.False(t, resp.AlreadySignedIn)
	assert.Equal(t, "2026-09-01", resp.Show.Date)
	assert.Equal(t, "19:30", resp.Show.ShowTime)
	// The response names the slot only; the token and tenant internals stay
	// server-side.
	assert.NotContains(t, rec.Body.String(), "tok-active")
	assert.NotContains(t, rec.Body.String(), "signInToken")

	// Scanning twice is a no-op.
	rec = testutil.DoJSON(t, e, http.MethodGet, "/v1/sign-in/tok-active", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	testutil.Decode(t, rec, &resp)
	assert.True(t, resp.Success)
	assert.True(t, resp.AlreadySignedIn)
}

func TestSignInFailureLadder(t *testing.T) {
	e, db := newTestApp(t)

	orgID := testutil.SeedOrg(t, db, "Troupe", "troupe", 0)
	otherOrg := testutil.SeedOrg(t, db, "Rivals", "rivals", 0)
	actor := testutil.SeedUser(t, db, orgID, "a@troupe.test", "actor", "Ada", "Lear")
	outsider := testutil.SeedUser(t, db, otherOrg, "x@rivals.test", "actor", "Eve", "Iago")
	token := testutil.Token(t, actor, "actor", orgID)

	t.Run("unknown token", func(t *testing.T) {
		rec := testutil.DoJSON(t, e, http.MethodGet, "/v1/sign-in/nope", nil, token)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("inactive show", func(t *testing.T) {
		show := testutil.SeedShow(t, db, orgID, "2026-09-02", "19:30")
		if _, err := db.Exec("UPDATE shows SET sign_in_token = ? WHERE id = ?", "tok-idle", show); err != nil {
			t.Fatal(err)
		}
		rec := testutil.DoJSON(t, e, http.MethodGet, "/v1/sign-in/tok-idle", nil, token)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("closed show", func(t *testing.T) {
		show := testutil.SeedShow(t, db, orgID, "2026-09-03", "19:30")
		testutil.LockShow(t, db, show, "tok-locked")
		rec := testutil.DoJSON(t, e, http.MethodGet, "/v1/sign-in/tok-locked", nil, token)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		// Closing clears activeAt, so a stale QR for a closed show surfaces
		// the inactive message.
		assert.Contains(t, rec.Body.String(), "show is not active")
	})

	t.Run("cross-organization actor", func(t *testing.T) {
		show := testutil.SeedShow(t, db, orgID, "2026-09-04", "19:30")
		testutil.ActivateShow(t, db, show, "tok-cross")
		outsiderToken := testutil.Token(t, outsider, "actor", otherOrg)
		rec := testutil.DoJSON(t, e, http.MethodGet, "/v1/sign-in/tok-cross", nil, outsiderToken)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("admin role rejected", func(t *testing.T) {
		admin := testutil.SeedUser(t, db, orgID, "sm@troupe.test", "admin", "Stage", "Manager")
		adminToken := testutil.Token(t, admin, "admin", orgID)
		rec := testutil.DoJSON(t, e, http.MethodGet, "/v1/sign-in/anything", nil, adminToken)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestSignInDoesNotOverwriteAdminMark(t *testing.T) {
	e, db := newTestApp(t)

	orgID := testutil.SeedOrg(t, db, "Troupe", "troupe", 0)
	admin := testutil.SeedUser(t, db, orgID, "sm@troupe.test", "admin", "Stage", "Manager")
	actor := testutil.SeedUser(t, db, orgID, "a@troupe.test", "actor", "Ada", "Lear")
	show := testutil.SeedShow(t, db, orgID, "2026-09-01", "19:30")
	testutil.ActivateShow(t, db, show, "tok-active")

	adminToken := testutil.Token(t, admin, "admin", orgID)
	rec := testutil.DoJSON(t, e, http.MethodPost, "/v1/attendance",
		map[string]any{"userId": actor, "showId": show, "status": repository.StatusVacation}, adminToken)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	actorToken := testutil.Token(t, actor, "actor", orgID)
	rec = testutil.DoJSON(t, e, http.MethodGet, "/v1/sign-in/tok-active", nil, actorToken)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		AlreadySignedIn bool `json:"alreadySignedIn"`
	}
	testutil.Decode(t, rec, &resp)
	assert.True(t, resp.AlreadySignedIn)

	var status string
	require.NoError(t, db.QueryRow(
		"SELECT status FROM attendance WHERE user_id = ? AND show_id = ?", actor, show).Scan(&status))
	assert.Equal(t, repository.StatusVacation, status)
}

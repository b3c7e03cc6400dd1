package handler_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/callboard/callboard/internal/testutil"
)

func TestRosterCRUD(t *testing.T) {
	e, db := newTestApp(t)

	orgID := testutil.SeedOrg(t, db, "Troupe", "troupe", 0)
	admin := testutil.SeedUser(t, db, orgID, "sm@troupe.test", "admin", "Stage", "Manager")
	token := testutil.Token(t, admin, "admin", orgID)

	rec := testutil.DoJSON(t, e, http.MethodPost, "/v1/users", map[string]any{
		"email":     "ada@troupe.test",
		"password":  "break-a-leg",
		"firstName": "Ada",
		"lastName":  "Lear",
	}, token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created struct {
		ID   uint64 `json:"id"`
		Role string `json:"role"`
	}
	testutil.Decode(t, rec, &created)
	assert.Equal(t, "actor", created.Role)

	rec = testutil.DoJSON(t, e, http.MethodPost, "/v1/users", map[string]any{
		"email": "ada@troupe.test", "password": "x",
	}, token)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = testutil.DoJSON(t, e, http.MethodGet, "/v1/users?role=actor", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Users []struct {
			Email string `json:"email"`
		} `json:"users"`
	}
	testutil.Decode(t, rec, &list)
	require.Len(t, list.Users, 1)
	assert.Equal(t, "ada@troupe.test", list.Users[0].Email)

	rec = testutil.DoJSON(t, e, http.MethodGet, "/v1/users?role=stagehand", nil, token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = testutil.DoJSON(t, e, http.MethodPatch, fmt.Sprintf("/v1/users/%d", created.ID),
		map[string]any{"lastName": "Cordelia"}, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var patched struct {
		LastName string `json:"lastName"`
	}
	testutil.Decode(t, rec, &patched)
	assert.Equal(t, "Cordelia", patched.LastName)

	rec = testutil.DoJSON(t, e, http.MethodDelete, fmt.Sprintf("/v1/users/%d", created.ID), nil, token)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = testutil.DoJSON(t, e, http.MethodGet, fmt.Sprintf("/v1/users/%d", created.ID), nil, token)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRosterTenantScoping(t *testing.T) {
	e, db := newTestApp(t)

	orgA := testutil.SeedOrg(t, db, "A", "org-a", 0)
	orgB := testutil.SeedOrg(t, db, "B", "org-b", 0)
	adminA := testutil.SeedUser(t, db, orgA, "sm@a.test", "admin", "Alba", "Boss")
	actorB := testutil.SeedUser(t, db, orgB, "b@b.test", "actor", "Beth", "Witch")
	tokenA := testutil.Token(t, adminA, "admin", orgA)

	rec := testutil.DoJSON(t, e, http.MethodGet, fmt.Sprintf("/v1/users/%d", actorB), nil, tokenA)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = testutil.DoJSON(t, e, http.MethodGet, "/v1/users", nil, tokenA)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Users []struct {
			ID uint64 `json:"id"`
		} `json:"users"`
	}
	testutil.Decode(t, rec, &list)
	require.Len(t, list.Users, 1)
	assert.Equal(t, adminA, list.Users[0].ID)
}

func TestDeleteUserCascadesAttendance(t *testing.T) {
	e, db := newTestApp(t)

	orgID := testutil.SeedOrg(t, db, "Troupe", "troupe", 0)
	admin := testutil.SeedUser(t, db, orgID, "sm@troupe.test", "admin", "Stage", "Manager")
	actor := testutil.SeedUser(t, db, orgID, "a@troupe.test", "actor", "Ada", "Lear")
	show := testutil.SeedShow(t, db, orgID, "2026-09-01", "19:30")
	token := testutil.Token(t, admin, "admin", orgID)

	rec := testutil.DoJSON(t, e, http.MethodPost, "/v1/attendance",
		map[string]any{"userId": actor, "showId": show, "status": "signed_in"}, token)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = testutil.DoJSON(t, e, http.MethodDelete, fmt.Sprintf("/v1/users/%d", actor), nil, token)
	require.Equal(t, http.StatusNoContent, rec.Code)

	var count int
	require.NoError(t, db.QueryRow(
		"SELECT COUNT(*) FROM attendance WHERE user_id = ?", actor).Scan(&count))
	assert.Zero(t, count)
}

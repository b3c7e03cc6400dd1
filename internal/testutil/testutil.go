// Package testutil provides the shared test harness: an in-memory SQLite
// database with the service schema, seed helpers, and HTTP helpers for
// exercising handlers through httptest. Production runs on MySQL; every
// repository query is written in the portable subset both engines accept, so
// the tests drive the exact SQL that ships.
package testutil

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/callboard/callboard/internal/utils"
)

// JWTSecret signs the tokens used by handler tests.
const JWTSecret = "test-secret"

// SeedPassword is the plaintext behind every seeded user's hash.
const SeedPassword = "opening-night"

const schema = `
CREATE TABLE organizations (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	name            TEXT NOT NULL,
	slug            TEXT NOT NULL UNIQUE,
	week_starts_on  INTEGER NOT NULL DEFAULT 0,
	display_title   TEXT NULL,
	created_at      TEXT NOT NULL DEFAULT (datetime('now')),
	updated_at      TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE users (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	organization_id INTEGER NOT NULL,
	email           TEXT NOT NULL UNIQUE,
	password_hash   TEXT NOT NULL,
	first_name      TEXT NOT NULL,
	last_name       TEXT NOT NULL,
	role            TEXT NOT NULL,
	created_at      TEXT NOT NULL DEFAULT (datetime('now')),
	updated_at      TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE refresh_tokens (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id     INTEGER NOT NULL,
	token_hash  TEXT NOT NULL UNIQUE,
	expires_at  TEXT NOT NULL,
	revoked_at  TEXT NULL,
	created_at  TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE shows (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	organization_id INTEGER NOT NULL,
	date            TEXT NOT NULL,
	show_time       TEXT NOT NULL,
	active_at       TEXT NULL,
	locked_at       TEXT NULL,
	sign_in_token   TEXT NULL UNIQUE,
	created_at      TEXT NOT NULL DEFAULT (datetime('now')),
	updated_at      TEXT NOT NULL DEFAULT (datetime('now')),
	UNIQUE (organization_id, date, show_time)
);

CREATE TABLE attendance (
	user_id           INTEGER NOT NULL,
	show_id           INTEGER NOT NULL,
	status            TEXT NOT NULL,
	signed_in_at      TEXT NULL,
	marked_by_user_id INTEGER NULL,
	created_at        TEXT NOT NULL DEFAULT (datetime('now')),
	updated_at        TEXT NOT NULL DEFAULT (datetime('now')),
	PRIMARY KEY (user_id, show_id)
);
`

// OpenDB returns an in-memory SQLite database with the schema applied. The
// pool is pinned to one connection because each in-memory SQLite connection
// is its own database.
func OpenDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("apply schema: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// SeedOrg inserts an organization and returns its id.
func SeedOrg(t *testing.T, db *sql.DB, name, slug string, weekStartsOn int) uint64 {
	t.Helper()
	res, err := db.Exec(
		"INSERT INTO organizations (name, slug, week_starts_on) VALUES (?,?,?)",
		name, slug, weekStartsOn)
	if err != nil {
		t.Fatalf("seed org: %v", err)
	}
	id, _ := res.LastInsertId()
	return uint64(id)
}

// SeedUser inserts a user with a real bcrypt hash of SeedPassword so login
// flows can be exercised end to end.
func SeedUser(t *testing.T, db *sql.DB, orgID uint64, email, role, firstName, lastName string) uint64 {
	t.Helper()
	hash, err := utils.HashPassword(SeedPassword, 4)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	res, err := db.Exec(
		"INSERT INTO users (organization_id, email, password_hash, first_name, last_name, role) VALUES (?,?,?,?,?,?)",
		orgID, email, hash, firstName, lastName, role)
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	id, _ := res.LastInsertId()
	return uint64(id)
}

// SeedShow inserts a scheduled show (not active, not locked).
func SeedShow(t *testing.T, db *sql.DB, orgID uint64, date, showTime string) uint64 {
	t.Helper()
	res, err := db.Exec(
		"INSERT INTO shows (organization_id, date, show_time) VALUES (?,?,?)",
		orgID, date, showTime)
	if err != nil {
		t.Fatalf("seed show: %v", err)
	}
	id, _ := res.LastInsertId()
	return uint64(id)
}

// ActivateShow flips a seeded show straight to the active state with the
// given sign-in token, bypassing the next-upcoming rule.
func ActivateShow(t *testing.T, db *sql.DB, showID uint64, token string) {
	t.Helper()
	if _, err := db.Exec(
		"UPDATE shows SET active_at = datetime('now'), locked_at = NULL, sign_in_token = ? WHERE id = ?",
		token, showID); err != nil {
		t.Fatalf("activate show: %v", err)
	}
}

// LockShow flips a seeded show to the closed state.
func LockShow(t *testing.T, db *sql.DB, showID uint64, token string) {
	t.Helper()
	if _, err := db.Exec(
		"UPDATE shows SET locked_at = datetime('now'), active_at = NULL, sign_in_token = ? WHERE id = ?",
		token, showID); err != nil {
		t.Fatalf("lock show: %v", err)
	}
}

// Token issues a short-lived access token signed with JWTSecret.
func Token(t *testing.T, userID uint64, role string, orgID uint64) string {
	t.Helper()
	tok, err := utils.NewAccessToken(JWTSecret, userID, role, orgID, 5)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return tok.Token
}

// DoJSON performs a JSON request against the handler h and returns the
// recorder. body may be nil; token, when non-empty, is sent as a bearer.
func DoJSON(t *testing.T, h http.Handler, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echoHeaderContentType, "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

const echoHeaderContentType = "Content-Type"

// Decode unmarshals a recorder's JSON body into out.
func Decode(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

// Package repository: attendance ledger persistence. An attendance row is a
// per-(user, show) status record keyed by the composite primary key; absence
// of a row means "unset", which is distinct from any explicit status. The
// ledger is last-writer-wins and keeps no history — the audit trail, when
// needed, is the attendance.recorded event stream.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
)

// Attendance statuses. Absence of a row is a separate, fifth state.
const (
	StatusSignedIn    = "signed_in"
	StatusAbsent      = "absent"
	StatusVacation    = "vacation"
	StatusPersonalDay = "personal_day"
)

// ValidStatus reports whether s is one of the four storable statuses.
func ValidStatus(s string) bool {
	switch s {
	case StatusSignedIn, StatusAbsent, StatusVacation, StatusPersonalDay:
		return true
	}
	return false
}

// Attendance mirrors the 'attendance' table. MarkedByUserID is nil for
// self-service sign-ins and carries the admin's id for manual marks; the
// distinction is what makes the ledger auditable after the fact.
type Attendance struct {
	UserID         uint64  `json:"userId"`
	ShowID         uint64  `json:"showId"`
	Status         string  `json:"status"`
	SignedInAt     *string `json:"signedInAt"`
	MarkedByUserID *uint64 `json:"markedByUserId"`
}

// AttendanceRecord is the org-scoped read model: the ledger row joined with
// the actor's name and the show's slot for display.
type AttendanceRecord struct {
	Attendance
	User struct {
		ID        uint64 `json:"id"`
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
	} `json:"user"`
	Show struct {
		ID       uint64 `json:"id"`
		Date     string `json:"date"`
		ShowTime string `json:"showTime"`
	} `json:"show"`
}

// AttendanceRepo manages persistence for the attendance ledger.
type AttendanceRepo struct{ db *sql.DB }

// NewAttendanceRepo constructs an AttendanceRepo with the given DB handle.
func NewAttendanceRepo(db *sql.DB) *AttendanceRepo { return &AttendanceRepo{db: db} }

// Upsert writes a status for (userID, showID), creating the row on first
// write and overwriting it on every later one. Each write — create or
// update — recomputes signed_in_at: now when the status is signed_in, NULL
// otherwise. markedBy records who performed the write; pass nil only from
// the self-service path. Implemented as UPDATE-then-INSERT inside one
// transaction, which yields the same last-writer-wins result on every
// backend without vendor upsert syntax.
func (r *AttendanceRepo) Upsert(ctx context.Context, userID, showID uint64, status string, markedBy *uint64, now time.Time) (*Attendance, error) {
	var signedInAt *string
	if status == StatusSignedIn {
		s := now.UTC().Format("2006-01-02 15:04:05")
		signedInAt = &s
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var res sql.Result
	res, err = tx.ExecContext(ctx,
		`UPDATE attendance SET status = ?, signed_in_at = ?, marked_by_user_id = ? WHERE user_id = ? AND show_id = ?`,
		status, signedInAt, markedBy, userID, showID)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// No existing row updated; either the pair is new or the values are
		// identical. Probe and insert only when truly absent.
		var one int
		probeErr := tx.QueryRowContext(ctx,
			`SELECT 1 FROM attendance WHERE user_id = ? AND show_id = ? LIMIT 1`, userID, showID).Scan(&one)
		if errors.Is(probeErr, sql.ErrNoRows) {
			if _, err = tx.ExecContext(ctx,
				`INSERT INTO attendance (user_id, show_id, status, signed_in_at, marked_by_user_id) VALUES (?, ?, ?, ?, ?)`,
				userID, showID, status, signedInAt, markedBy); err != nil {
				return nil, err
			}
		} else if probeErr != nil {
			err = probeErr
			return nil, err
		}
	}
	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return r.get(ctx, userID, showID)
}

// CreateIfAbsent inserts a self-service signed_in row for (userID, showID)
// unless one already exists. It reports created=false without touching the
// existing row regardless of its status — self-service sign-in must never
// overwrite an admin's mark. marked_by_user_id stays NULL on this path.
func (r *AttendanceRepo) CreateIfAbsent(ctx context.Context, userID, showID uint64, now time.Time) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var one int
	err = tx.QueryRowContext(ctx,
		`SELECT 1 FROM attendance WHERE user_id = ? AND show_id = ? LIMIT 1`, userID, showID).Scan(&one)
	if err == nil {
		_ = tx.Rollback()
		return false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return false, err
	}
	err = nil
	stamp := now.UTC().Format("2006-01-02 15:04:05")
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO attendance (user_id, show_id, status, signed_in_at, marked_by_user_id) VALUES (?, ?, ?, ?, NULL)`,
		userID, showID, StatusSignedIn, stamp); err != nil {
		// A concurrent sign-in for the same pair wins the race; treat the
		// duplicate as "already signed in" rather than an error.
		if isDuplicate(err) {
			err = nil
			_ = tx.Rollback()
			return false, nil
		}
		return false, err
	}
	if err = tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

// DeleteScoped removes a ledger row after verifying both sides belong to the
// caller's organization. Missing and cross-tenant rows return the same
// ErrAttendanceNotFound.
func (r *AttendanceRepo) DeleteScoped(ctx context.Context, userID, showID, orgID uint64) error {
	var one int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM attendance a
		 JOIN users u ON u.id = a.user_id
		 JOIN shows s ON s.id = a.show_id
		 WHERE a.user_id = ? AND a.show_id = ? AND u.organization_id = ? AND s.organization_id = ?
		 LIMIT 1`,
		userID, showID, orgID, orgID).Scan(&one)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrAttendanceNotFound
		}
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`DELETE FROM attendance WHERE user_id = ? AND show_id = ?`, userID, showID)
	return err
}

// List returns org-scoped ledger records joined with actor names and show
// slots, optionally filtered by show and/or user.
func (r *AttendanceRepo) List(ctx context.Context, orgID uint64, showID, userID uint64) ([]AttendanceRecord, error) {
	q := `SELECT a.user_id, a.show_id, a.status, a.signed_in_at, a.marked_by_user_id,
	             u.id, u.first_name, u.last_name,
	             s.id, s.date, s.show_time
	      FROM attendance a
	      JOIN users u ON u.id = a.user_id
	      JOIN shows s ON s.id = a.show_id
	      WHERE u.organization_id = ? AND s.organization_id = ?`
	args := []any{orgID, orgID}
	if showID != 0 {
		q += ` AND a.show_id = ?`
		args = append(args, showID)
	}
	if userID != 0 {
		q += ` AND a.user_id = ?`
		args = append(args, userID)
	}
	q += ` ORDER BY s.date ASC, s.show_time ASC, u.last_name ASC, u.first_name ASC`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []AttendanceRecord
	for rows.Next() {
		var rec AttendanceRecord
		if err := rows.Scan(
			&rec.UserID, &rec.ShowID, &rec.Status, &rec.SignedInAt, &rec.MarkedByUserID,
			&rec.User.ID, &rec.User.FirstName, &rec.User.LastName,
			&rec.Show.ID, &rec.Show.Date, &rec.Show.ShowTime,
		); err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// ListByShow returns the bare ledger rows for one show, org-scoped. The
// actor callboard uses this lighter shape for polling.
func (r *AttendanceRepo) ListByShow(ctx context.Context, orgID, showID uint64) ([]Attendance, error) {
	const q = `SELECT a.user_id, a.show_id, a.status, a.signed_in_at, a.marked_by_user_id
	           FROM attendance a
	           JOIN users u ON u.id = a.user_id
	           JOIN shows s ON s.id = a.show_id
	           WHERE a.show_id = ? AND u.organization_id = ? AND s.organization_id = ?`
	rows, err := r.db.QueryContext(ctx, q, showID, orgID, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []Attendance
	for rows.Next() {
		var a Attendance
		if err := rows.Scan(&a.UserID, &a.ShowID, &a.Status, &a.SignedInAt, &a.MarkedByUserID); err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// BulkMark upserts status=signed_in for every valid actor in userIDs against
// one show. Used for manual reconciliation after a connectivity gap: ids
// that are unknown, cross-tenant, or not actors are silently dropped rather
// than failing the batch. Rows are processed strictly sequentially. Returns
// the ids actually written, in input order.
func (r *AttendanceRepo) BulkMark(ctx context.Context, showID uint64, userIDs []uint64, markedBy uint64, orgID uint64, now time.Time) ([]uint64, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	// Resolve the valid actor set in one query.
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(userIDs)), ",")
	args := make([]any, 0, len(userIDs)+2)
	for _, id := range userIDs {
		args = append(args, id)
	}
	args = append(args, orgID, "actor")
	rows, err := r.db.QueryContext(ctx,
		`SELECT id FROM users WHERE id IN (`+placeholders+`) AND organization_id = ? AND role = ?`, args...)
	if err != nil {
		return nil, err
	}
	valid := make(map[uint64]bool)
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		valid[id] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var written []uint64
	for _, id := range userIDs {
		if !valid[id] {
			continue
		}
		if _, err := r.Upsert(ctx, id, showID, StatusSignedIn, &markedBy, now); err != nil {
			return written, err
		}
		written = append(written, id)
	}
	return written, nil
}

// CountByShow returns the number of ledger rows for a show.
func (r *AttendanceRepo) CountByShow(ctx context.Context, showID uint64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM attendance WHERE show_id = ?`, showID).Scan(&n)
	return n, err
}

func (r *AttendanceRepo) get(ctx context.Context, userID, showID uint64) (*Attendance, error) {
	var a Attendance
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id, show_id, status, signed_in_at, marked_by_user_id FROM attendance WHERE user_id = ? AND show_id = ?`,
		userID, showID).Scan(&a.UserID, &a.ShowID, &a.Status, &a.SignedInAt, &a.MarkedByUserID)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

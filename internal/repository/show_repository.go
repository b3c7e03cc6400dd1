// Package repository contains data access logic for Show domain operations.
// This file defines the Show model and the lifecycle repository. A Show is a
// single scheduled performance (date + time) belonging to one organization.
// The lifecycle invariants live here, enforced inside transactions:
// at most one show per organization has active_at set at any instant,
// active_at and locked_at are mutually exclusive, and the sign-in token
// rotates on every activation and every close so a captured QR image can
// never be replayed into a later show.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/callboard/callboard/internal/showtime"
)

// Show represents one scheduled performance. Date is date-only text
// ("YYYY-MM-DD") and ShowTime zero-padded "HH:MM" text; together with the
// organization they form the natural key. ActiveAt/LockedAt/SignInToken are
// the lifecycle fields: a show is scheduled (both nil), active (ActiveAt
// set), or closed (LockedAt set, terminal for sign-in).
type Show struct {
	ID             uint64  `json:"id"`
	OrganizationID uint64  `json:"organizationId"`
	Date           string  `json:"date"`
	ShowTime       string  `json:"showTime"`
	ActiveAt       *string `json:"activeAt"`
	LockedAt       *string `json:"lockedAt"`
	SignInToken    *string `json:"signInToken"`
}

const showCols = `id, organization_id, date, show_time, active_at, locked_at, sign_in_token`

// ShowRepo manages persistence for shows.
type ShowRepo struct {
	db *sql.DB
}

// NewShowRepo constructs a ShowRepo with the given DB handle.
func NewShowRepo(db *sql.DB) *ShowRepo {
	return &ShowRepo{db: db}
}

// DB exposes the underlying sql.DB. It allows callers to begin
// transactions spanning multiple repositories.
func (r *ShowRepo) DB() *sql.DB {
	return r.db
}

func scanShow(row interface{ Scan(...any) error }) (*Show, error) {
	var s Show
	err := row.Scan(&s.ID, &s.OrganizationID, &s.Date, &s.ShowTime, &s.ActiveAt, &s.LockedAt, &s.SignInToken)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Create inserts a new scheduled show (active_at and locked_at both unset)
// and assigns the generated ID back to the struct. A collision on the
// (organization, date, show_time) natural key returns ErrDuplicateShow.
func (r *ShowRepo) Create(ctx context.Context, s *Show) error {
	const q = `INSERT INTO shows (organization_id, date, show_time) VALUES (?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, s.OrganizationID, s.Date, s.ShowTime)
	if err != nil {
		if isDuplicate(err) {
			return ErrDuplicateShow
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	return nil
}

// GetByIDAndOrg retrieves a show scoped to the caller's organization. It
// returns ErrShowNotFound whether the row is missing or belongs to another
// tenant; callers must not be able to tell the difference.
func (r *ShowRepo) GetByIDAndOrg(ctx context.Context, id, orgID uint64) (*Show, error) {
	const q = `SELECT ` + showCols + ` FROM shows WHERE id = ? AND organization_id = ?`
	s, err := scanShow(r.db.QueryRowContext(ctx, q, id, orgID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrShowNotFound
		}
		return nil, err
	}
	return s, nil
}

// ListRange returns the organization's shows ordered by (date, show_time).
// Empty bounds are open-ended. Lexicographic comparison is correct because
// both columns are zero padded.
func (r *ShowRepo) ListRange(ctx context.Context, orgID uint64, start, end string) ([]Show, error) {
	q := `SELECT ` + showCols + ` FROM shows WHERE organization_id = ?`
	args := []any{orgID}
	if start != "" {
		q += ` AND date >= ?`
		args = append(args, start)
	}
	if end != "" {
		q += ` AND date <= ?`
		args = append(args, end)
	}
	q += ` ORDER BY date ASC, show_time ASC`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []Show
	for rows.Next() {
		s, err := scanShow(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// GetActive returns the organization's currently active show, or
// ErrNoActiveShow when sign-in is not open anywhere in the org.
func (r *ShowRepo) GetActive(ctx context.Context, orgID uint64) (*Show, error) {
	const q = `SELECT ` + showCols + ` FROM shows WHERE organization_id = ? AND active_at IS NOT NULL ORDER BY active_at DESC LIMIT 1`
	s, err := scanShow(r.db.QueryRowContext(ctx, q, orgID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoActiveShow
		}
		return nil, err
	}
	return s, nil
}

// GetBySignInToken looks a show up by its rotating sign-in token. Tokens are
// globally unique, so the lookup deliberately precedes any tenant check.
func (r *ShowRepo) GetBySignInToken(ctx context.Context, token string) (*Show, error) {
	const q = `SELECT ` + showCols + ` FROM shows WHERE sign_in_token = ?`
	s, err := scanShow(r.db.QueryRowContext(ctx, q, token))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalidSignInToken
		}
		return nil, err
	}
	return s, nil
}

// Activate opens a show for self-service sign-in. The target must exist in
// the organization and must not be closed, and it must be the next upcoming
// candidate: among org shows with neither active_at nor locked_at set, the
// one with the smallest (date, show_time) whose moment is still >= now.
// Admins cannot skip ahead. On success, inside one transaction, active_at is
// cleared on every other org show, then set on the target together with a
// freshly rotated sign-in token. The transactional clear-then-set is the
// sole concurrency mechanism; there are no application-level locks.
func (r *ShowRepo) Activate(ctx context.Context, id, orgID uint64, now time.Time) (*Show, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const sel = `SELECT ` + showCols + ` FROM shows WHERE id = ? AND organization_id = ?`
	var target *Show
	target, err = scanShow(tx.QueryRowContext(ctx, sel, id, orgID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = ErrShowNotFound
		}
		return nil, err
	}
	if target.LockedAt != nil {
		err = ErrShowClosed
		return nil, err
	}

	// Next-upcoming candidate: a single sorted, limited query. The
	// future-only filter is expressed on the (date, show_time) tuple so the
	// tie-break stays exactly (date, then time). "Now" is compared at
	// minute precision because show times carry no seconds.
	nowDate := showtime.FormatDate(now.UTC())
	nowTime := showtime.FormatHHMM(now.UTC())
	const next = `SELECT id FROM shows
	              WHERE organization_id = ? AND locked_at IS NULL AND active_at IS NULL
	                AND (date > ? OR (date = ? AND show_time >= ?))
	              ORDER BY date ASC, show_time ASC
	              LIMIT 1`
	var nextID uint64
	err = tx.QueryRowContext(ctx, next, orgID, nowDate, nowDate, nowTime).Scan(&nextID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = ErrNotNextUpcoming
		}
		return nil, err
	}
	if nextID != id {
		err = ErrNotNextUpcoming
		return nil, err
	}

	// Clear all, then set one. Both statements ride the same transaction so
	// concurrent activations can never leave two shows active at once.
	if _, err = tx.ExecContext(ctx,
		`UPDATE shows SET active_at = NULL WHERE organization_id = ? AND id <> ?`, orgID, id); err != nil {
		return nil, err
	}
	token := uuid.NewString()
	stamp := now.UTC().Format("2006-01-02 15:04:05")
	if _, err = tx.ExecContext(ctx,
		`UPDATE shows SET active_at = ?, locked_at = NULL, sign_in_token = ? WHERE id = ?`,
		stamp, token, id); err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return r.GetByIDAndOrg(ctx, id, orgID)
}

// CloseSignIn permanently shuts the sign-in window of the active show:
// locked_at is set, active_at cleared, and the sign-in token rotated again
// so the QR link dies immediately. Closed shows remain queryable and
// editable for corrections, but can never re-open.
func (r *ShowRepo) CloseSignIn(ctx context.Context, id, orgID uint64, now time.Time) (*Show, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const sel = `SELECT ` + showCols + ` FROM shows WHERE id = ? AND organization_id = ?`
	var target *Show
	target, err = scanShow(tx.QueryRowContext(ctx, sel, id, orgID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = ErrShowNotFound
		}
		return nil, err
	}
	if target.ActiveAt == nil {
		err = ErrShowNotActive
		return nil, err
	}

	token := uuid.NewString()
	stamp := now.UTC().Format("2006-01-02 15:04:05")
	if _, err = tx.ExecContext(ctx,
		`UPDATE shows SET locked_at = ?, active_at = NULL, sign_in_token = ? WHERE id = ?`,
		stamp, token, id); err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return r.GetByIDAndOrg(ctx, id, orgID)
}

// UpdateByIDAndOrg rewrites a show's date and/or time. The caller passes the
// post-merge values; a collision with another show's natural key returns
// ErrDuplicateShow.
func (r *ShowRepo) UpdateByIDAndOrg(ctx context.Context, s *Show, orgID uint64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE shows SET date = ?, show_time = ? WHERE id = ? AND organization_id = ?`,
		s.Date, s.ShowTime, s.ID, orgID)
	if err != nil {
		if isDuplicate(err) {
			return ErrDuplicateShow
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var one int
		if err := r.db.QueryRowContext(ctx,
			`SELECT 1 FROM shows WHERE id = ? AND organization_id = ? LIMIT 1`, s.ID, orgID).Scan(&one); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrShowNotFound
			}
			return err
		}
	}
	return nil
}

// DeleteByIDAndOrg removes a show and its attendance rows.
func (r *ShowRepo) DeleteByIDAndOrg(ctx context.Context, id, orgID uint64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	var one int
	err = tx.QueryRowContext(ctx,
		`SELECT 1 FROM shows WHERE id = ? AND organization_id = ? LIMIT 1`, id, orgID).Scan(&one)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = ErrShowNotFound
		}
		return err
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM attendance WHERE show_id = ?`, id); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM shows WHERE id = ?`, id); err != nil {
		return err
	}
	return tx.Commit()
}

// ExistsByNaturalKey reports whether a show already occupies the
// (organization, date, show_time) slot. The import and bulk-generate loops
// call this before each insert; processing is strictly sequential so the
// check-then-insert pair stays correct without extra locking.
func (r *ShowRepo) ExistsByNaturalKey(ctx context.Context, orgID uint64, date, showTime string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM shows WHERE organization_id = ? AND date = ? AND show_time = ? LIMIT 1`,
		orgID, date, showTime).Scan(&one)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// DeleteExpiredWithoutAttendance garbage-collects shows whose scheduled
// moment precedes the cutoff and that have zero attendance rows; shows with
// any attendance are retained indefinitely. The sweep runs inline on listing
// reads, not as a background job. Returns the number of rows removed.
func (r *ShowRepo) DeleteExpiredWithoutAttendance(ctx context.Context, orgID uint64, cutoff time.Time) (int64, error) {
	cutDate := showtime.FormatDate(cutoff.UTC())
	cutTime := showtime.FormatHHMM(cutoff.UTC())
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM shows
		 WHERE organization_id = ?
		   AND (date < ? OR (date = ? AND show_time < ?))
		   AND id NOT IN (SELECT show_id FROM attendance)`,
		orgID, cutDate, cutDate, cutTime)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

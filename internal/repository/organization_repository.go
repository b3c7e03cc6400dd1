package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
)

// Organization is the multi-tenant boundary. Every other entity carries an
// organization id and all queries are implicitly filtered by it.
// WeekStartsOn (0=Sunday … 6=Saturday) and DisplayTitle are read-only
// configuration consumed by scheduling views.
type Organization struct {
	ID           uint64  `json:"id"`
	Name         string  `json:"name"`
	Slug         string  `json:"slug"`
	WeekStartsOn int     `json:"weekStartsOn"`
	DisplayTitle *string `json:"displayTitle"`
}

// OrgSettings is the editable subset of an organization.
type OrgSettings struct {
	WeekStartsOn int     `json:"weekStartsOn"`
	DisplayTitle *string `json:"displayTitle"`
}

// OrganizationRepo manages persistence for organizations.
type OrganizationRepo struct{ db *sql.DB }

// NewOrganizationRepo constructs an OrganizationRepo with the given DB handle.
func NewOrganizationRepo(db *sql.DB) *OrganizationRepo { return &OrganizationRepo{db: db} }

// Create inserts a new organization and assigns the generated ID back to the
// struct. It returns ErrSlugExists when the slug is already taken.
func (r *OrganizationRepo) Create(ctx context.Context, o *Organization) error {
	const q = `INSERT INTO organizations (name, slug, week_starts_on, display_title) VALUES (?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, o.Name, strings.ToLower(strings.TrimSpace(o.Slug)), o.WeekStartsOn, o.DisplayTitle)
	if err != nil {
		if isDuplicate(err) {
			return ErrSlugExists
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	o.ID = uint64(id)
	return nil
}

// GetByID fetches an organization by id. It returns ErrOrgNotFound when no
// matching row exists.
func (r *OrganizationRepo) GetByID(ctx context.Context, id uint64) (*Organization, error) {
	const q = `SELECT id, name, slug, week_starts_on, display_title FROM organizations WHERE id = ?`
	var o Organization
	err := r.db.QueryRowContext(ctx, q, id).Scan(&o.ID, &o.Name, &o.Slug, &o.WeekStartsOn, &o.DisplayTitle)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrgNotFound
		}
		return nil, err
	}
	return &o, nil
}

// GetBySlug fetches an organization by its unique slug.
func (r *OrganizationRepo) GetBySlug(ctx context.Context, slug string) (*Organization, error) {
	const q = `SELECT id, name, slug, week_starts_on, display_title FROM organizations WHERE slug = ?`
	var o Organization
	err := r.db.QueryRowContext(ctx, q, strings.ToLower(strings.TrimSpace(slug))).Scan(&o.ID, &o.Name, &o.Slug, &o.WeekStartsOn, &o.DisplayTitle)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrgNotFound
		}
		return nil, err
	}
	return &o, nil
}

// List returns every organization ordered by name. The listing endpoint is
// public and only exposes identity fields, but the repo returns full rows and
// lets the handler shape the response.
func (r *OrganizationRepo) List(ctx context.Context) ([]Organization, error) {
	const q = `SELECT id, name, slug, week_starts_on, display_title FROM organizations ORDER BY name ASC`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []Organization
	for rows.Next() {
		var o Organization
		if err := rows.Scan(&o.ID, &o.Name, &o.Slug, &o.WeekStartsOn, &o.DisplayTitle); err != nil {
			return nil, err
		}
		result = append(result, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// UpdateSettings overwrites the editable settings of an organization.
func (r *OrganizationRepo) UpdateSettings(ctx context.Context, id uint64, s OrgSettings) error {
	const q = `UPDATE organizations SET week_starts_on = ?, display_title = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, s.WeekStartsOn, s.DisplayTitle, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Distinguish "missing row" from "values unchanged".
		var one int
		if err := r.db.QueryRowContext(ctx, `SELECT 1 FROM organizations WHERE id = ?`, id).Scan(&one); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrOrgNotFound
			}
			return err
		}
	}
	return nil
}

// isDuplicate reports whether a driver error is a unique-key violation.
// MySQL surfaces error 1062; SQLite (used by the test harness) reports a
// "UNIQUE constraint failed" message.
func isDuplicate(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "1062") || strings.Contains(msg, "unique")
}

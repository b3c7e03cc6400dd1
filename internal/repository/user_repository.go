package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/callboard/callboard/internal/utils"
)

// User mirrors the 'users' table. PasswordHash never leaves the repository
// layer; handlers shape their own response types.
type User struct {
	ID             uint64
	OrganizationID uint64
	Email          string
	PasswordHash   string
	FirstName      string
	LastName       string
	Role           string // admin | actor
}

// UserRepo manages persistence for users.
type UserRepo struct{ DB *sql.DB }

// NewUserRepo constructs a UserRepo with the given DB handle.
func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// Create inserts a user and returns its ID. The email is normalized to
// lower case and the password hashed with bcrypt before storage.
func (r *UserRepo) Create(ctx context.Context, orgID uint64, email, password, firstName, lastName, role string, cost int) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (organization_id, email, password_hash, first_name, last_name, role) VALUES (?,?,?,?,?,?)",
		orgID, email, hash, firstName, lastName, role)
	if err != nil {
		if isDuplicate(err) {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var u User
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, organization_id, email, password_hash, first_name, last_name, role FROM users WHERE email=? LIMIT 1",
		email).Scan(&u.ID, &u.OrganizationID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &u.Role)
	return u, err
}

// GetByID fetches a user by id regardless of tenant. Only the auth flow may
// use this; everything else goes through GetByIDAndOrg.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (User, error) {
	var u User
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, organization_id, email, password_hash, first_name, last_name, role FROM users WHERE id=? LIMIT 1",
		id).Scan(&u.ID, &u.OrganizationID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &u.Role)
	return u, err
}

// GetByIDAndOrg fetches a user within the caller's organization. A missing
// row and a cross-tenant row both return ErrUserNotFound.
func (r *UserRepo) GetByIDAndOrg(ctx context.Context, id, orgID uint64) (User, error) {
	var u User
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, organization_id, email, password_hash, first_name, last_name, role FROM users WHERE id=? AND organization_id=? LIMIT 1",
		id, orgID).Scan(&u.ID, &u.OrganizationID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &u.Role)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, err
	}
	return u, nil
}

// ListByOrg returns the organization's users ordered by last then first name.
// When role is non-empty only users with that role are returned.
func (r *UserRepo) ListByOrg(ctx context.Context, orgID uint64, role string) ([]User, error) {
	q := "SELECT id, organization_id, email, password_hash, first_name, last_name, role FROM users WHERE organization_id=?"
	args := []any{orgID}
	if role != "" {
		q += " AND role=?"
		args = append(args, role)
	}
	q += " ORDER BY last_name ASC, first_name ASC"
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.OrganizationID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &u.Role); err != nil {
			return nil, err
		}
		result = append(result, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// UpdateByIDAndOrg overwrites the mutable fields of a user in the caller's
// organization. The caller passes the full post-merge struct; the password
// hash must already be computed when a password change is requested.
func (r *UserRepo) UpdateByIDAndOrg(ctx context.Context, u *User, orgID uint64) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET email=?, password_hash=?, first_name=?, last_name=? WHERE id=? AND organization_id=?",
		strings.ToLower(strings.TrimSpace(u.Email)), u.PasswordHash, u.FirstName, u.LastName, u.ID, orgID)
	if err != nil {
		if isDuplicate(err) {
			return ErrEmailExists
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Either the row is missing/cross-tenant or nothing changed; probe
		// for existence so callers can 404 correctly.
		var one int
		if err := r.DB.QueryRowContext(ctx, "SELECT 1 FROM users WHERE id=? AND organization_id=? LIMIT 1", u.ID, orgID).Scan(&one); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrUserNotFound
			}
			return err
		}
	}
	return nil
}

// DeleteByIDAndOrg removes a user from the caller's organization together
// with their ledger rows and refresh tokens.
func (r *UserRepo) DeleteByIDAndOrg(ctx context.Context, id, orgID uint64) error {
	tx, err := r.DB.BeginTx(ctx, nil)
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
		"SELECT 1 FROM users WHERE id=? AND organization_id=? LIMIT 1", id, orgID).Scan(&one)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = ErrUserNotFound
		}
		return err
	}
	if _, err = tx.ExecContext(ctx, "DELETE FROM attendance WHERE user_id=?", id); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, "DELETE FROM refresh_tokens WHERE user_id=?", id); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, "DELETE FROM users WHERE id=?", id); err != nil {
		return err
	}
	return tx.Commit()
}

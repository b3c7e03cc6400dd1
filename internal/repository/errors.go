// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios and map
// each one to a stable HTTP status. Missing and cross-tenant rows
// deliberately share the same sentinel so responses never reveal
// whether an entity exists in another organization.
package repository

import "errors"

// ErrShowNotFound indicates that a show was not located in the caller's
// organization (either it does not exist or belongs to another tenant).
var ErrShowNotFound = errors.New("show not found")

// ErrNoActiveShow indicates that no show in the organization is currently
// open for sign-in.
var ErrNoActiveShow = errors.New("no active show")

// ErrShowClosed is returned when attempting to activate a show whose
// sign-in window has been permanently closed.
var ErrShowClosed = errors.New("closed shows cannot re-open sign-in")

// ErrNotNextUpcoming is returned when the show being activated is not the
// next upcoming candidate; activation must follow strict chronological order.
var ErrNotNextUpcoming = errors.New("only the next upcoming show can be opened for sign-in")

// ErrShowNotActive is returned when closing a show that is not currently
// open for sign-in.
var ErrShowNotActive = errors.New("only the current active show can be closed")

// ErrDuplicateShow is returned when an insert or update collides with the
// (organization, date, show_time) natural key.
var ErrDuplicateShow = errors.New("show already exists for this date and time")

// ErrInvalidSignInToken is returned when a sign-in token matches no show.
// Tokens rotate on every activation and close, so stale QR codes land here.
var ErrInvalidSignInToken = errors.New("invalid or expired sign-in link")

// ErrAttendanceNotFound indicates no ledger record exists for the
// requested (user, show) pair within the caller's organization.
var ErrAttendanceNotFound = errors.New("attendance record not found")

// ErrUserNotFound indicates a user is missing or belongs to another tenant.
var ErrUserNotFound = errors.New("user not found")

// ErrEmailExists is returned when registering a user with a taken email.
var ErrEmailExists = errors.New("email already exists")

// ErrOrgNotFound indicates the organization does not exist.
var ErrOrgNotFound = errors.New("organization not found")

// ErrSlugExists is returned when creating an organization with a taken slug.
var ErrSlugExists = errors.New("organization slug already exists")

// Package mirror persists per-organization snapshots of the sign-in sheet so
// the stage-door device keeps working through a connectivity gap. A snapshot
// is the full replacement of the previous one; partial merges would let
// deleted shows linger on the device.
package mirror

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrNoSnapshot is returned by Load when no snapshot has ever been stored
// for the organization.
var ErrNoSnapshot = errors.New("mirror: no snapshot for organization")

// Actor is the roster entry carried in a snapshot.
type Actor struct {
	ID        uint64 `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// Show is the schedule entry carried in a snapshot. Attendance is
// deliberately absent: the offline sheet is for collecting marks on paper,
// not for reading a possibly stale ledger.
type Show struct {
	ID       uint64  `json:"id"`
	Date     string  `json:"date"`
	ShowTime string  `json:"showTime"`
	ActiveAt *string `json:"activeAt"`
	LockedAt *string `json:"lockedAt"`
}

// Snapshot is one org's offline sheet: roster, schedule, and the moment the
// data was last known fresh. SyncedAt lets the device show how stale it is.
type Snapshot struct {
	OrganizationID uint64  `json:"organizationId"`
	Actors         []Actor `json:"actors"`
	Shows          []Show  `json:"shows"`
	SyncedAt       string  `json:"syncedAt"`
}

// Store keeps one JSON file per organization under a base directory.
type Store struct{ dir string }

// NewStore creates the base directory if needed and returns a Store over it.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("mirror: create dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) path(orgID uint64) string {
	return filepath.Join(s.dir, fmt.Sprintf("org-%d.json", orgID))
}

// Replace atomically swaps the organization's snapshot for snap. Written to
// a temp file first so a crash mid-write never leaves a truncated snapshot.
func (s *Store) Replace(snap Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("mirror: marshal snapshot: %w", err)
	}
	tmp, err := os.CreateTemp(s.dir, fmt.Sprintf("org-%d-*.tmp", snap.OrganizationID))
	if err != nil {
		return fmt.Errorf("mirror: create temp: %w", err)
	}
	name := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		_ = os.Remove(name)
		return fmt.Errorf("mirror: write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(name)
		return fmt.Errorf("mirror: close temp: %w", err)
	}
	if err := os.Rename(name, s.path(snap.OrganizationID)); err != nil {
		_ = os.Remove(name)
		return fmt.Errorf("mirror: rename: %w", err)
	}
	return nil
}

// Load returns the organization's last stored snapshot, or ErrNoSnapshot.
func (s *Store) Load(orgID uint64) (*Snapshot, error) {
	data, err := os.ReadFile(s.path(orgID))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoSnapshot
		}
		return nil, fmt.Errorf("mirror: read snapshot: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("mirror: decode snapshot: %w", err)
	}
	return &snap, nil
}

// Package queue defines message payloads exchanged over the message broker.
package queue

// AttendanceRecordedEvent is published whenever a ledger row is written:
// self-service sign-ins, admin marks, bulk reconciliation and clears. It
// carries enough for the audit log consumer to write a useful line without
// querying the primary database.
type AttendanceRecordedEvent struct {
	OrganizationID uint64  `json:"organization_id"`
	ShowID         uint64  `json:"show_id"`
	ShowDate       string  `json:"show_date"`
	ShowTime       string  `json:"show_time"`
	UserID         uint64  `json:"user_id"`
	Status         string  `json:"status"`
	Action         string  `json:"action"` // "sign_in", "mark", "bulk_mark" or "clear"
	MarkedByUserID *uint64 `json:"marked_by_user_id"`
	RecordedAt     string  `json:"recorded_at"`
}

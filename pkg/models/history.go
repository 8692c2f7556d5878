package models

import "time"

// SessionRecordStatus is the state of a history entry.
type SessionRecordStatus string

const (
	SessionRecordStatusActive    SessionRecordStatus = "active"
	SessionRecordStatusCompleted SessionRecordStatus = "completed"
)

// SessionRecord is the audit entry describing one session's lifecycle. It
// outlives the live session state.
type SessionRecord struct {
	ID             string              `json:"id"`
	WorkshopID     string              `json:"workshop_id"`
	WorkshopTitle  string              `json:"workshop_title"`
	BlocksCount    int                 `json:"blocks_count"`
	Blocks         []Block             `json:"blocks"`
	StartedAt      time.Time           `json:"started_at"`
	EndedAt        *time.Time          `json:"ended_at,omitempty"`
	DurationSec    *int                `json:"duration_sec,omitempty"`
	Status         SessionRecordStatus `json:"status"`
	CurrentBlockID *string             `json:"current_block_id"`
}

// SessionRecordUpdate holds the fields a history update may merge. Nil
// fields are left untouched; an empty CurrentBlockID clears the selection.
type SessionRecordUpdate struct {
	CurrentBlockID *string `json:"current_block_id,omitempty"`
	WorkshopTitle  *string `json:"workshop_title,omitempty"`
}

// IsCompleted reports whether the record reached its terminal state.
func (r *SessionRecord) IsCompleted() bool {
	return r.Status == SessionRecordStatusCompleted
}

// Apply merges the update into the record.
func (r *SessionRecord) Apply(update SessionRecordUpdate) {
	if update.CurrentBlockID != nil {
		if *update.CurrentBlockID == "" {
			r.CurrentBlockID = nil
		} else {
			id := *update.CurrentBlockID
			r.CurrentBlockID = &id
		}
	}

	if update.WorkshopTitle != nil {
		r.WorkshopTitle = *update.WorkshopTitle
	}
}

// Complete stamps the end of the record. Completing twice keeps the first
// stamp.
func (r *SessionRecord) Complete(now time.Time) bool {
	if r.IsCompleted() {
		return false
	}

	ended := now
	duration := max(0, int(now.Sub(r.StartedAt)/time.Second))

	r.EndedAt = &ended
	r.DurationSec = &duration
	r.Status = SessionRecordStatusCompleted

	return true
}

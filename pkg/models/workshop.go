// Package models defines the domain models for authored workshops and their live sessions.
package models

import "time"

// WorkshopStatus represents the lifecycle state of a workshop.
type WorkshopStatus string

const (
	WorkshopStatusDraft     WorkshopStatus = "draft"     // Being edited, not yet published
	WorkshopStatusUpcoming  WorkshopStatus = "upcoming"  // Published and ready to run
	WorkshopStatusCompleted WorkshopStatus = "completed" // Already run
)

// UntitledWorkshop is the title used when a workshop has none.
const UntitledWorkshop = "Untitled Workshop"

// Workshop is an authored agenda of ordered, timed blocks.
type Workshop struct {
	ID          string         `json:"id"                    validate:"required"`
	Title       string         `json:"title"`
	Date        string         `json:"date,omitempty"        validate:"omitempty,datetime=2006-01-02"`
	Duration    *int           `json:"duration,omitempty"    validate:"omitempty,min=0"` // Minutes
	Description string         `json:"description,omitempty"`
	Blocks      []Block        `json:"blocks"                validate:"unique=ID,dive"`
	Status      WorkshopStatus `json:"status"                validate:"required,oneof=draft upcoming completed"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// NewBlankWorkshop returns an empty draft used when an editor opens an unknown id.
func NewBlankWorkshop(id string, now time.Time) *Workshop {
	return &Workshop{
		ID:        id,
		Title:     UntitledWorkshop,
		Blocks:    []Block{},
		Status:    WorkshopStatusDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// DisplayTitle returns the title, falling back to UntitledWorkshop.
func (w *Workshop) DisplayTitle() string {
	if w == nil || w.Title == "" {
		return UntitledWorkshop
	}

	return w.Title
}

// BlockIndex returns the position of the block with the given id, or -1.
func (w *Workshop) BlockIndex(blockID string) int {
	for i := range w.Blocks {
		if w.Blocks[i].ID == blockID {
			return i
		}
	}

	return -1
}

// Block returns the block with the given id.
func (w *Workshop) Block(blockID string) (*Block, bool) {
	i := w.BlockIndex(blockID)
	if i < 0 {
		return nil, false
	}

	return &w.Blocks[i], true
}

// TotalMinutes sums the planned durations of all blocks.
func (w *Workshop) TotalMinutes() int {
	total := 0
	for _, b := range w.Blocks {
		total += b.Duration
	}

	return total
}

// Clone returns a deep copy so later edits never reach a snapshot.
func (w *Workshop) Clone() *Workshop {
	if w == nil {
		return nil
	}

	clone := *w
	if w.Duration != nil {
		d := *w.Duration
		clone.Duration = &d
	}

	clone.Blocks = CloneBlocks(w.Blocks)

	return &clone
}

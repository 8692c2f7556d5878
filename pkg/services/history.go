package services

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/dukex/facilitator/pkg/models"
	"github.com/dukex/facilitator/pkg/persistence"
)

// History records the lifecycle of sessions independently of their live state.
type History struct {
	persistence persistence.Persistence
	options

	mu sync.Mutex
}

// NewHistory creates a new session history service.
func NewHistory(persistence persistence.Persistence, opts ...Option) *History {
	return &History{
		persistence: persistence,
		options:     newOptions(opts),
	}
}

// Start records a new active session of workshop, snapshotting its title
// and blocks.
func (h *History) Start(ctx context.Context, workshop *models.Workshop, currentBlockID *string) (*models.SessionRecord, error) {
	if workshop == nil {
		return nil, NewValidationError("StartHistory", "workshop_nil", "", ErrWorkshopNil)
	}

	record := &models.SessionRecord{
		ID:            newID(),
		WorkshopID:    workshop.ID,
		WorkshopTitle: workshop.DisplayTitle(),
		BlocksCount:   len(workshop.Blocks),
		Blocks:        models.CloneBlocks(workshop.Blocks),
		StartedAt:     h.now().UTC(),
		Status:        models.SessionRecordStatusActive,
	}

	if record.Blocks == nil {
		record.Blocks = []models.Block{}
	}

	if currentBlockID != nil {
		record.Apply(models.SessionRecordUpdate{CurrentBlockID: currentBlockID})
	}

	if err := h.persistence.HistoryRepository().Prepend(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to record session start: %w", err)
	}

	return record, nil
}

// Update merges fields into a record. Absent records are ignored and
// reported as (nil, nil).
func (h *History) Update(ctx context.Context, id string, update models.SessionRecordUpdate) (*models.SessionRecord, error) {
	return h.mutate(ctx, id, func(record *models.SessionRecord) bool {
		record.Apply(update)

		return true
	})
}

// Complete stamps the end time and wall-clock duration of a record. It is a
// one-way transition: completing a completed record changes nothing.
func (h *History) Complete(ctx context.Context, id string) (*models.SessionRecord, error) {
	return h.mutate(ctx, id, func(record *models.SessionRecord) bool {
		return record.Complete(h.now().UTC())
	})
}

func (h *History) mutate(ctx context.Context, id string, fn func(*models.SessionRecord) bool) (*models.SessionRecord, error) {
	if id == "" {
		return nil, nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	record, err := h.persistence.HistoryRepository().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get session record: %w", err)
	}

	if record == nil || !fn(record) {
		return record, nil
	}

	if err := h.persistence.HistoryRepository().Save(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to save session record: %w", err)
	}

	return record, nil
}

// Get returns one record.
func (h *History) Get(ctx context.Context, id string) (*models.SessionRecord, error) {
	record, err := h.persistence.HistoryRepository().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get session record: %w", err)
	}

	if record == nil {
		return nil, ErrSessionRecordNotFound
	}

	return record, nil
}

// List returns every record, most recently started first.
func (h *History) List(ctx context.Context) ([]*models.SessionRecord, error) {
	records, err := h.persistence.HistoryRepository().GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list session history: %w", err)
	}

	slices.SortStableFunc(records, func(a, b *models.SessionRecord) int {
		return b.StartedAt.Compare(a.StartedAt)
	})

	return records, nil
}

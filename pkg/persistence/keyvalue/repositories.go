package keyvalue

import (
	"context"
	"time"

	"github.com/dukex/facilitator/pkg/models"
	"github.com/dukex/facilitator/pkg/persistence"
	"github.com/dukex/facilitator/pkg/storage"
)

// WorkshopRepository stores published workshops as one list.
type WorkshopRepository struct {
	list namespace[models.Workshop]
	now  func() time.Time
}

func newWorkshopRepository(store storage.Store, key, entity string, now func() time.Time) *WorkshopRepository {
	return &WorkshopRepository{
		list: newNamespace(store, key, entity, func(w *models.Workshop) string { return w.ID }),
		now:  now,
	}
}

// NewWorkshopRepository creates a workshop repository on store.
func NewWorkshopRepository(store storage.Store) *WorkshopRepository {
	return newWorkshopRepository(store, persistence.WorkshopsKey, "workshop", time.Now)
}

func (r *WorkshopRepository) GetAll(ctx context.Context) ([]*models.Workshop, error) {
	return r.list.load(ctx)
}

func (r *WorkshopRepository) GetByID(ctx context.Context, id string) (*models.Workshop, error) {
	return r.list.get(ctx, id)
}

// Save upserts a copy of the workshop and writes the applied timestamps back
// to the caller's value.
func (r *WorkshopRepository) Save(ctx context.Context, workshop *models.Workshop) error {
	stored := workshop.Clone()
	if stored.Blocks == nil {
		stored.Blocks = []models.Block{}
	}

	err := r.list.update(ctx, "Save", workshop.ID, func(items []*models.Workshop) ([]*models.Workshop, bool) {
		now := r.now().UTC()

		i := r.list.index(items, workshop.ID)
		if i >= 0 {
			if stored.CreatedAt.IsZero() {
				stored.CreatedAt = items[i].CreatedAt
			}

			if now.After(stored.UpdatedAt) {
				stored.UpdatedAt = now
			}

			items[i] = stored

			return items, true
		}

		if stored.CreatedAt.IsZero() {
			stored.CreatedAt = now
		}

		if stored.UpdatedAt.IsZero() {
			stored.UpdatedAt = stored.CreatedAt
		}

		return append(items, stored), true
	})
	if err != nil {
		return err
	}

	workshop.CreatedAt = stored.CreatedAt
	workshop.UpdatedAt = stored.UpdatedAt

	return nil
}

func (r *WorkshopRepository) Delete(ctx context.Context, id string) error {
	return r.list.delete(ctx, id)
}

// DraftRepository keeps working copies keyed by workshop id.
type DraftRepository struct {
	*WorkshopRepository
}

// SessionRepository stores sessions as one list plus one workshop snapshot
// per session.
type SessionRepository struct {
	store storage.Store
	list  namespace[models.Session]
}

func NewSessionRepository(store storage.Store) *SessionRepository {
	return &SessionRepository{
		store: store,
		list:  newNamespace(store, persistence.SessionsKey, "session", func(s *models.Session) string { return s.ID }),
	}
}

func (r *SessionRepository) GetAll(ctx context.Context) ([]*models.Session, error) {
	return r.list.load(ctx)
}

func (r *SessionRepository) GetByID(ctx context.Context, id string) (*models.Session, error) {
	return r.list.get(ctx, id)
}

func (r *SessionRepository) Save(ctx context.Context, session *models.Session) error {
	stored := session.Clone()

	return r.list.update(ctx, "Save", session.ID, func(items []*models.Session) ([]*models.Session, bool) {
		if i := r.list.index(items, session.ID); i >= 0 {
			items[i] = stored

			return items, true
		}

		return append(items, stored), true
	})
}

// Delete removes the session and its workshop snapshot.
func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	if err := r.list.delete(ctx, id); err != nil {
		return err
	}

	if err := r.store.Delete(ctx, persistence.SessionWorkshopKeyFor(id)); err != nil {
		return persistence.NewEntityError("Delete", "session workshop", id, err)
	}

	return nil
}

func (r *SessionRepository) SaveWorkshopSnapshot(ctx context.Context, sessionID string, workshop *models.Workshop) error {
	return setJSON(ctx, r.store, persistence.SessionWorkshopKeyFor(sessionID), "session workshop", sessionID, workshop)
}

func (r *SessionRepository) WorkshopSnapshot(ctx context.Context, sessionID string) (*models.Workshop, error) {
	return getJSON[models.Workshop](ctx, r.store, persistence.SessionWorkshopKeyFor(sessionID), "session workshop", sessionID)
}

// HistoryRepository stores session records most recent first.
type HistoryRepository struct {
	list namespace[models.SessionRecord]
}

func NewHistoryRepository(store storage.Store) *HistoryRepository {
	return &HistoryRepository{
		list: newNamespace(store, persistence.HistoryKey, "session record", func(r *models.SessionRecord) string { return r.ID }),
	}
}

func (r *HistoryRepository) GetAll(ctx context.Context) ([]*models.SessionRecord, error) {
	return r.list.load(ctx)
}

func (r *HistoryRepository) GetByID(ctx context.Context, id string) (*models.SessionRecord, error) {
	return r.list.get(ctx, id)
}

func (r *HistoryRepository) Prepend(ctx context.Context, record *models.SessionRecord) error {
	return r.list.update(ctx, "Prepend", record.ID, func(items []*models.SessionRecord) ([]*models.SessionRecord, bool) {
		return append([]*models.SessionRecord{record}, items...), true
	})
}

func (r *HistoryRepository) Save(ctx context.Context, record *models.SessionRecord) error {
	return r.list.update(ctx, "Save", record.ID, func(items []*models.SessionRecord) ([]*models.SessionRecord, bool) {
		i := r.list.index(items, record.ID)
		if i < 0 {
			return items, false
		}

		items[i] = record

		return items, true
	})
}

// ResponseRepository stores one response map per session and participant.
type ResponseRepository struct {
	store storage.Store
}

func NewResponseRepository(store storage.Store) *ResponseRepository {
	return &ResponseRepository{store: store}
}

func (r *ResponseRepository) Get(ctx context.Context, sessionID, participantID string) (models.ParticipantResponses, error) {
	responses, err := getJSON[models.ParticipantResponses](ctx, r.store, persistence.ResponsesKeyFor(sessionID, participantID), "responses", participantID)
	if err != nil {
		return nil, err
	}

	if responses == nil || *responses == nil {
		return models.ParticipantResponses{}, nil
	}

	return *responses, nil
}

func (r *ResponseRepository) Save(ctx context.Context, sessionID, participantID string, responses models.ParticipantResponses) error {
	if responses == nil {
		responses = models.ParticipantResponses{}
	}

	return setJSON(ctx, r.store, persistence.ResponsesKeyFor(sessionID, participantID), "responses", participantID, responses)
}

var (
	_ persistence.WorkshopRepository = (*WorkshopRepository)(nil)
	_ persistence.DraftRepository    = (*DraftRepository)(nil)
	_ persistence.SessionRepository  = (*SessionRepository)(nil)
	_ persistence.HistoryRepository  = (*HistoryRepository)(nil)
	_ persistence.ResponseRepository = (*ResponseRepository)(nil)
)

// Package keyvalue implements the persistence repositories on top of a
// storage.Store.
package keyvalue

import (
	"context"
	"time"

	"github.com/dukex/facilitator/pkg/persistence"
	"github.com/dukex/facilitator/pkg/storage"
	"github.com/dukex/facilitator/pkg/storage/memory"
)

// Persistence implements persistence.Persistence over a key-value store.
// Drafts are kept in a process-local store and never reach the shared one.
type Persistence struct {
	store  storage.Store
	drafts storage.Store

	workshopRepo *WorkshopRepository
	draftRepo    *DraftRepository
	sessionRepo  *SessionRepository
	historyRepo  *HistoryRepository
	responseRepo *ResponseRepository
}

type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock overrides the clock used to stamp workshops.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// NewPersistence creates the repositories over store.
func NewPersistence(store storage.Store, opts ...Option) *Persistence {
	o := &options{now: time.Now}
	for _, opt := range opts {
		opt(o)
	}

	drafts := memory.NewStore()

	return &Persistence{
		store:        store,
		drafts:       drafts,
		workshopRepo: newWorkshopRepository(store, persistence.WorkshopsKey, "workshop", o.now),
		draftRepo:    &DraftRepository{newWorkshopRepository(drafts, persistence.DraftsKey, "draft", o.now)},
		sessionRepo:  NewSessionRepository(store),
		historyRepo:  NewHistoryRepository(store),
		responseRepo: NewResponseRepository(store),
	}
}

// Store returns the shared store, for wiring change watchers.
func (p *Persistence) Store() storage.Store {
	return p.store
}

func (p *Persistence) WorkshopRepository() persistence.WorkshopRepository {
	return p.workshopRepo
}

func (p *Persistence) DraftRepository() persistence.DraftRepository {
	return p.draftRepo
}

func (p *Persistence) SessionRepository() persistence.SessionRepository {
	return p.sessionRepo
}

func (p *Persistence) HistoryRepository() persistence.HistoryRepository {
	return p.historyRepo
}

func (p *Persistence) ResponseRepository() persistence.ResponseRepository {
	return p.responseRepo
}

func (p *Persistence) HealthCheck(ctx context.Context) error {
	return p.store.HealthCheck(ctx)
}

func (p *Persistence) Close(_ context.Context) error {
	if err := p.drafts.Close(); err != nil {
		return err
	}

	return p.store.Close()
}

var _ persistence.Persistence = (*Persistence)(nil)

// Package persistence provides the repository abstraction for workshops,
// drafts, sessions, history and participant responses.
package persistence

import (
	"context"

	"github.com/dukex/facilitator/pkg/models"
)

// Namespace keys of the flat lists and satellite records.
const (
	WorkshopsKey          = "facilitator-workshops"
	DraftsKey             = "facilitator-drafts"
	SessionsKey           = "facilitator-sessions"
	HistoryKey            = "facilitator-session-history"
	SessionWorkshopPrefix = "session-workshop-"
	ResponsesPrefix       = "facilitator-responses-"
)

// SessionWorkshopKeyFor returns the key of a session's workshop snapshot.
func SessionWorkshopKeyFor(sessionID string) string {
	return SessionWorkshopPrefix + sessionID
}

// ResponsesKeyFor returns the key of a participant's responses in a session.
func ResponsesKeyFor(sessionID, participantID string) string {
	return ResponsesPrefix + sessionID + "-" + participantID
}

// Repositories return (nil, nil) from GetByID when the entity is absent and
// treat Delete of an absent id as success.

type WorkshopRepository interface {
	GetAll(ctx context.Context) ([]*models.Workshop, error)
	GetByID(ctx context.Context, id string) (*models.Workshop, error)
	// Save upserts by id. An update stamps UpdatedAt; an insert keeps the
	// caller's timestamps, filling them when zero.
	Save(ctx context.Context, workshop *models.Workshop) error
	Delete(ctx context.Context, id string) error
}

type DraftRepository interface {
	GetAll(ctx context.Context) ([]*models.Workshop, error)
	GetByID(ctx context.Context, id string) (*models.Workshop, error)
	Save(ctx context.Context, draft *models.Workshop) error
	Delete(ctx context.Context, id string) error
}

type SessionRepository interface {
	GetAll(ctx context.Context) ([]*models.Session, error)
	GetByID(ctx context.Context, id string) (*models.Session, error)
	Save(ctx context.Context, session *models.Session) error
	Delete(ctx context.Context, id string) error

	SaveWorkshopSnapshot(ctx context.Context, sessionID string, workshop *models.Workshop) error
	WorkshopSnapshot(ctx context.Context, sessionID string) (*models.Workshop, error)
}

type HistoryRepository interface {
	// GetAll returns records in stored order, most recent insertion first.
	GetAll(ctx context.Context) ([]*models.SessionRecord, error)
	GetByID(ctx context.Context, id string) (*models.SessionRecord, error)
	Prepend(ctx context.Context, record *models.SessionRecord) error
	// Save replaces an existing record in place; absent ids are ignored.
	Save(ctx context.Context, record *models.SessionRecord) error
}

type ResponseRepository interface {
	// Get returns an empty map when nothing was saved.
	Get(ctx context.Context, sessionID, participantID string) (models.ParticipantResponses, error)
	Save(ctx context.Context, sessionID, participantID string, responses models.ParticipantResponses) error
}

type Persistence interface {
	WorkshopRepository() WorkshopRepository
	DraftRepository() DraftRepository
	SessionRepository() SessionRepository
	HistoryRepository() HistoryRepository
	ResponseRepository() ResponseRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

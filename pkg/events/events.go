// Package events defines the domain events published when workshops and
// sessions change.
package events

import (
	"time"

	"github.com/dukex/facilitator/pkg/models"
	"github.com/google/uuid"
)

type EventType string

// Topic every facilitator event is published on.
const Topic = "facilitator.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Session lifecycle events.
	SessionCreatedEvent   EventType = "session.created"
	SessionUpdatedEvent   EventType = "session.updated"
	SessionCompletedEvent EventType = "session.completed"

	// Participant events.
	ParticipantJoinedEvent  EventType = "participant.joined"
	ParticipantUpdatedEvent EventType = "participant.updated"
	ParticipantRemovedEvent EventType = "participant.removed"

	// Library events.
	WorkshopPublishedEvent EventType = "workshop.published"
	WorkshopDeletedEvent   EventType = "workshop.deleted"
)

// SessionChange names the run-control mutation behind a SessionUpdated event.
type SessionChange string

const (
	ChangeStartBlock    SessionChange = "start_block"
	ChangeTogglePause   SessionChange = "toggle_pause"
	ChangeAddTime       SessionChange = "add_time"
	ChangeTick          SessionChange = "tick"
	ChangeNextBlock     SessionChange = "next_block"
	ChangePreviousBlock SessionChange = "previous_block"
)

type BaseEvent struct {
	ID         string         `json:"id"`
	Type       EventType      `json:"type"`
	Timestamp  time.Time      `json:"timestamp"`
	SessionID  string         `json:"session_id,omitempty"`
	WorkshopID string         `json:"workshop_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// SessionScoped is implemented by events that concern one session.
type SessionScoped interface {
	GetSessionID() string
}

func (b BaseEvent) GetSessionID() string {
	return b.SessionID
}

type SessionCreated struct {
	BaseEvent

	JoinCode string `json:"join_code"`
	Title    string `json:"title"`
}

func (e SessionCreated) GetType() EventType {
	return SessionCreatedEvent
}

type SessionUpdated struct {
	BaseEvent

	Change         SessionChange `json:"change"`
	CurrentBlockID *string       `json:"current_block_id"`
	IsRunning      bool          `json:"is_running"`
}

func (e SessionUpdated) GetType() EventType {
	return SessionUpdatedEvent
}

type SessionCompleted struct {
	BaseEvent

	ElapsedTime int    `json:"elapsed_time"`
	HistoryID   string `json:"history_id,omitempty"`
}

func (e SessionCompleted) GetType() EventType {
	return SessionCompletedEvent
}

type ParticipantJoined struct {
	BaseEvent

	ParticipantID string `json:"participant_id"`
	Name          string `json:"name"`
}

func (e ParticipantJoined) GetType() EventType {
	return ParticipantJoinedEvent
}

type ParticipantUpdated struct {
	BaseEvent

	ParticipantID string                   `json:"participant_id"`
	Status        models.ParticipantStatus `json:"status"`
}

func (e ParticipantUpdated) GetType() EventType {
	return ParticipantUpdatedEvent
}

type ParticipantRemoved struct {
	BaseEvent

	ParticipantID string `json:"participant_id"`
}

func (e ParticipantRemoved) GetType() EventType {
	return ParticipantRemovedEvent
}

type WorkshopPublished struct {
	BaseEvent

	Title       string `json:"title"`
	BlocksCount int    `json:"blocks_count"`
}

func (e WorkshopPublished) GetType() EventType {
	return WorkshopPublishedEvent
}

type WorkshopDeleted struct {
	BaseEvent
}

func (e WorkshopDeleted) GetType() EventType {
	return WorkshopDeletedEvent
}

// NewBaseEvent stamps a new event with a unique id and the current time.
func NewBaseEvent(eventType EventType, sessionID, workshopID string) BaseEvent {
	return BaseEvent{
		ID:         uuid.New().String(),
		Type:       eventType,
		Timestamp:  time.Now().UTC(),
		SessionID:  sessionID,
		WorkshopID: workshopID,
		Metadata:   make(map[string]any),
	}
}

// New returns an empty value of the concrete type registered for eventType,
// ready to be decoded into.
func New(eventType EventType) (any, bool) {
	switch eventType {
	case SessionCreatedEvent:
		return &SessionCreated{}, true
	case SessionUpdatedEvent:
		return &SessionUpdated{}, true
	case SessionCompletedEvent:
		return &SessionCompleted{}, true
	case ParticipantJoinedEvent:
		return &ParticipantJoined{}, true
	case ParticipantUpdatedEvent:
		return &ParticipantUpdated{}, true
	case ParticipantRemovedEvent:
		return &ParticipantRemoved{}, true
	case WorkshopPublishedEvent:
		return &WorkshopPublished{}, true
	case WorkshopDeletedEvent:
		return &WorkshopDeleted{}, true
	default:
		return nil, false
	}
}

// SessionEvents lists the events a session view reacts to.
func SessionEvents() []EventType {
	return []EventType{
		SessionCreatedEvent,
		SessionUpdatedEvent,
		SessionCompletedEvent,
		ParticipantJoinedEvent,
		ParticipantUpdatedEvent,
		ParticipantRemovedEvent,
	}
}

package services

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/dukex/facilitator/pkg/events"
	"github.com/dukex/facilitator/pkg/joincode"
	"github.com/dukex/facilitator/pkg/models"
	"github.com/dukex/facilitator/pkg/otelhelper"
	"github.com/dukex/facilitator/pkg/persistence"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Session turns workshops into live sessions and drives their run state.
//
// Run-control mutations (StartBlock, TogglePause, AddTime, NextBlock,
// PreviousBlock, Tick) return (nil, nil) when the session does not exist and
// leave a completed session untouched.
type Session struct {
	persistence persistence.Persistence
	history     *History
	options

	mu sync.Mutex
}

// NewSession creates a new session lifecycle service. history may be nil, in
// which case no history records are kept.
func NewSession(persistence persistence.Persistence, history *History, opts ...Option) *Session {
	return &Session{
		persistence: persistence,
		history:     history,
		options:     newOptions(opts),
	}
}

// CreateSession starts a session from a deep copy of workshop. The copy is
// validated like a library save. The session has a zeroed timer per block,
// no current block and is not running.
func (s *Session) CreateSession(ctx context.Context, workshop *models.Workshop) (*models.Session, error) {
	ctx, span := otelhelper.StartSpan(ctx, otelhelper.Tracer(), "session.create")
	defer span.End()

	if workshop == nil {
		return nil, NewValidationError("CreateSession", "workshop_nil", "", ErrWorkshopNil)
	}

	snapshot := workshop.Clone()
	if err := prepareWorkshop("CreateSession", snapshot); err != nil {
		otelhelper.SetErrorKind(span, err, "validation")

		return nil, err
	}

	span.SetAttributes(attribute.String(otelhelper.WorkshopIDKey, snapshot.ID))

	s.mu.Lock()
	defer s.mu.Unlock()

	code, err := s.uniqueJoinCode(ctx)
	if err != nil {
		otelhelper.SetErrorKind(span, err, "conflict")

		return nil, err
	}

	now := s.now().UTC()

	session := &models.Session{
		ID:           newID(),
		WorkshopID:   snapshot.ID,
		Title:        fmt.Sprintf("%s - %s", snapshot.DisplayTitle(), now.Format(time.DateOnly)),
		StartedAt:    now,
		Status:       models.SessionStatusActive,
		Participants: []models.Participant{},
		JoinCode:     code,
		Timers:       make(map[string]int, len(snapshot.Blocks)),
	}

	for _, block := range snapshot.Blocks {
		session.Timers[block.ID] = 0
	}

	if err := s.persistence.SessionRepository().SaveWorkshopSnapshot(ctx, session.ID, snapshot); err != nil {
		otelhelper.SetError(span, err)

		return nil, fmt.Errorf("failed to save session workshop: %w", err)
	}

	if s.history != nil {
		record, err := s.history.Start(ctx, snapshot, nil)
		if err != nil {
			otelhelper.SetError(span, err)

			return nil, err
		}

		session.HistoryID = record.ID
	}

	if err := s.persistence.SessionRepository().Save(ctx, session); err != nil {
		otelhelper.SetError(span, err)
		s.abandonRecord(ctx, session.HistoryID)

		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	span.SetAttributes(attribute.String(otelhelper.SessionIDKey, session.ID))
	s.logger.InfoContext(ctx, "Created session",
		"session_id", session.ID,
		"workshop_id", session.WorkshopID,
		"join_code", session.JoinCode)

	s.publish(ctx, session.ID, events.SessionCreated{
		BaseEvent: events.NewBaseEvent(events.SessionCreatedEvent, session.ID, session.WorkshopID),
		JoinCode:  session.JoinCode,
		Title:     session.Title,
	})

	return session, nil
}

// abandonRecord closes the history record of a session that was never
// stored, so it does not stay active.
func (s *Session) abandonRecord(ctx context.Context, recordID string) {
	if s.history == nil || recordID == "" {
		return
	}

	if _, err := s.history.Complete(ctx, recordID); err != nil {
		s.logger.WarnContext(ctx, "Failed to close abandoned session record", "record_id", recordID, "error", err)
	}
}

// CreateSessionForWorkshop starts a session from the library workshop with
// the given id, falling back to its draft.
func (s *Session) CreateSessionForWorkshop(ctx context.Context, workshopID string) (*models.Session, error) {
	workshop, err := s.persistence.WorkshopRepository().GetByID(ctx, workshopID)
	if err != nil {
		return nil, fmt.Errorf("failed to get workshop: %w", err)
	}

	if workshop == nil {
		workshop, err = s.persistence.DraftRepository().GetByID(ctx, workshopID)
		if err != nil {
			return nil, fmt.Errorf("failed to get draft: %w", err)
		}
	}

	if workshop == nil {
		return nil, ErrWorkshopNotFound
	}

	return s.CreateSession(ctx, workshop)
}

// uniqueJoinCode draws codes until one is not used by an open session.
func (s *Session) uniqueJoinCode(ctx context.Context) (string, error) {
	sessions, err := s.persistence.SessionRepository().GetAll(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to list sessions: %w", err)
	}

	inUse := make(map[string]struct{}, len(sessions))

	for _, session := range sessions {
		if !session.IsCompleted() {
			inUse[joincode.Normalize(session.JoinCode)] = struct{}{}
		}
	}

	for range s.joinCodeAttempts {
		code := s.joinCode()
		if _, taken := inUse[code]; !taken {
			return code, nil
		}
	}

	return "", ErrJoinCodeUnavailable
}

// Get returns one session.
func (s *Session) Get(ctx context.Context, id string) (*models.Session, error) {
	session, err := s.persistence.SessionRepository().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	if session == nil {
		return nil, ErrSessionNotFound
	}

	return session, nil
}

// List returns every session, most recently started first.
func (s *Session) List(ctx context.Context) ([]*models.Session, error) {
	sessions, err := s.persistence.SessionRepository().GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	slices.SortStableFunc(sessions, func(a, b *models.Session) int {
		return b.StartedAt.Compare(a.StartedAt)
	})

	return sessions, nil
}

// RunningSessions returns the sessions whose timers should advance.
func (s *Session) RunningSessions(ctx context.Context) ([]*models.Session, error) {
	sessions, err := s.persistence.SessionRepository().GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	return slices.DeleteFunc(sessions, func(session *models.Session) bool {
		return !session.IsRunning || session.IsCompleted()
	}), nil
}

// Workshop returns the workshop snapshot a session was created from.
func (s *Session) Workshop(ctx context.Context, id string) (*models.Workshop, error) {
	workshop, err := s.persistence.SessionRepository().WorkshopSnapshot(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get session workshop: %w", err)
	}

	if workshop == nil {
		return nil, ErrWorkshopNotFound
	}

	return workshop, nil
}

// Snapshot returns the session together with its workshop snapshot.
func (s *Session) Snapshot(ctx context.Context, id string) (*models.SessionSnapshot, error) {
	session, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	workshop, err := s.persistence.SessionRepository().WorkshopSnapshot(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get session workshop: %w", err)
	}

	return &models.SessionSnapshot{Session: session, Workshop: workshop}, nil
}

// Delete removes a session and its workshop snapshot. History is kept.
func (s *Session) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.persistence.SessionRepository().Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	return nil
}

// StartBlock makes blockID current and running. Its accumulated time is kept.
func (s *Session) StartBlock(ctx context.Context, id, blockID string) (*models.Session, error) {
	session, err := s.runControl(ctx, "session.start_block", id, events.ChangeStartBlock, func(session *models.Session) bool {
		session.SetCurrentBlock(blockID)
		session.IsRunning = true
		session.Status = models.SessionStatusActive

		if _, ok := session.Timers[blockID]; !ok {
			session.Timers[blockID] = 0
		}

		return true
	}, attribute.String(otelhelper.BlockIDKey, blockID))
	if err != nil || session == nil || session.IsCompleted() {
		return session, err
	}

	s.recordCurrentBlock(ctx, session)

	return session, nil
}

// TogglePause flips the running flag and mirrors it in the status.
func (s *Session) TogglePause(ctx context.Context, id string) (*models.Session, error) {
	return s.runControl(ctx, "session.toggle_pause", id, events.ChangeTogglePause, func(session *models.Session) bool {
		session.IsRunning = !session.IsRunning
		if session.IsRunning {
			session.Status = models.SessionStatusActive
		} else {
			session.Status = models.SessionStatusPaused
		}

		return true
	})
}

// AddTime adds delta seconds to a block's timer, clamping the result to
// [0, limit] when limit is given. A negative limit counts as 0.
func (s *Session) AddTime(ctx context.Context, id, blockID string, delta int, limit *int) (*models.Session, error) {
	return s.runControl(ctx, "session.add_time", id, events.ChangeAddTime, func(session *models.Session) bool {
		value := max(0, session.Timers[blockID]+delta)
		if limit != nil {
			value = min(value, max(0, *limit))
		}

		session.Timers[blockID] = value

		return true
	}, attribute.String(otelhelper.BlockIDKey, blockID))
}

// NextBlock moves to the block after the current one, or to the first block
// when none is selected. At the last block it changes nothing.
func (s *Session) NextBlock(ctx context.Context, id string) (*models.Session, error) {
	return s.step(ctx, "session.next_block", id, events.ChangeNextBlock, func(current int) int {
		if current < 0 {
			return 0
		}

		return current + 1
	})
}

// PreviousBlock moves to the block before the current one. At the first
// block, or with no block selected, it changes nothing.
func (s *Session) PreviousBlock(ctx context.Context, id string) (*models.Session, error) {
	return s.step(ctx, "session.previous_block", id, events.ChangePreviousBlock, func(current int) int {
		if current < 0 {
			return -1
		}

		return current - 1
	})
}

func (s *Session) step(ctx context.Context, name, id string, change events.SessionChange, target func(current int) int) (*models.Session, error) {
	workshop, err := s.persistence.SessionRepository().WorkshopSnapshot(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get session workshop: %w", err)
	}

	moved := false

	session, err := s.runControl(ctx, name, id, change, func(session *models.Session) bool {
		if workshop == nil || len(workshop.Blocks) == 0 {
			return false
		}

		i := target(workshop.BlockIndex(session.CurrentBlock()))
		if i < 0 || i >= len(workshop.Blocks) {
			return false
		}

		blockID := workshop.Blocks[i].ID
		session.SetCurrentBlock(blockID)

		if _, ok := session.Timers[blockID]; !ok {
			session.Timers[blockID] = 0
		}

		moved = true

		return true
	})
	if err != nil || !moved {
		return session, err
	}

	s.recordCurrentBlock(ctx, session)

	return session, nil
}

// Tick advances a running session by one second: the session's elapsed
// time and the current block's timer.
func (s *Session) Tick(ctx context.Context, id string) (*models.Session, error) {
	return s.runControl(ctx, "session.tick", id, events.ChangeTick, func(session *models.Session) bool {
		if !session.IsRunning {
			return false
		}

		session.ElapsedTime++

		if current := session.CurrentBlock(); current != "" {
			session.Timers[current]++
		}

		return true
	})
}

// Complete ends a session and completes its history record. Completing a
// completed session changes nothing.
func (s *Session) Complete(ctx context.Context, id string) (*models.Session, error) {
	ctx, span := otelhelper.StartSpan(ctx, otelhelper.Tracer(), "session.complete",
		attribute.String(otelhelper.SessionIDKey, id))
	defer span.End()

	completed := false

	session, err := s.mutate(ctx, id, func(session *models.Session) (bool, error) {
		if session.IsCompleted() {
			return false, nil
		}

		session.Status = models.SessionStatusCompleted
		session.IsRunning = false
		completed = true

		return true, nil
	})
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	if !completed {
		return session, nil
	}

	if s.history != nil {
		if _, err := s.history.Complete(ctx, session.HistoryID); err != nil {
			otelhelper.SetError(span, err)

			return nil, err
		}
	}

	s.logger.InfoContext(ctx, "Completed session", "session_id", id, "elapsed_time", session.ElapsedTime)

	s.publish(ctx, id, events.SessionCompleted{
		BaseEvent:   events.NewBaseEvent(events.SessionCompletedEvent, id, session.WorkshopID),
		ElapsedTime: session.ElapsedTime,
		HistoryID:   session.HistoryID,
	})

	return session, nil
}

// runControl applies a run-state mutation. Missing sessions yield (nil, nil);
// completed sessions are returned unchanged.
func (s *Session) runControl(
	ctx context.Context,
	name, id string,
	change events.SessionChange,
	fn func(*models.Session) bool,
	attrs ...attribute.KeyValue,
) (*models.Session, error) {
	ctx, span := otelhelper.StartSpan(ctx, otelhelper.Tracer(), name,
		append(attrs, attribute.String(otelhelper.SessionIDKey, id))...)
	defer span.End()

	changed := false

	session, err := s.mutate(ctx, id, func(session *models.Session) (bool, error) {
		if session.IsCompleted() {
			return false, nil
		}

		if session.Timers == nil {
			session.Timers = map[string]int{}
		}

		changed = fn(session)

		return changed, nil
	})
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	if changed {
		s.publishUpdate(ctx, span, session, change)
	}

	return session, nil
}

func (s *Session) publishUpdate(ctx context.Context, span trace.Span, session *models.Session, change events.SessionChange) {
	span.AddEvent(string(change))

	event := events.SessionUpdated{
		BaseEvent: events.NewBaseEvent(events.SessionUpdatedEvent, session.ID, session.WorkshopID),
		Change:    change,
		IsRunning: session.IsRunning,
	}

	if session.CurrentBlockID != nil {
		current := *session.CurrentBlockID
		event.CurrentBlockID = &current
	}

	s.publish(ctx, session.ID, event)
}

// mutate runs a locked read-modify-write of one session. fn reports whether
// the session changed and must be saved.
func (s *Session) mutate(ctx context.Context, id string, fn func(*models.Session) (bool, error)) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.persistence.SessionRepository().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	if session == nil {
		return nil, nil
	}

	changed, err := fn(session)
	if err != nil {
		return nil, err
	}

	if !changed {
		return session, nil
	}

	if err := s.persistence.SessionRepository().Save(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return session, nil
}

// recordCurrentBlock mirrors the current block into the history record.
// Failures are logged, the live session stays authoritative.
func (s *Session) recordCurrentBlock(ctx context.Context, session *models.Session) {
	if s.history == nil || session.HistoryID == "" {
		return
	}

	current := session.CurrentBlock()

	if _, err := s.history.Update(ctx, session.HistoryID, models.SessionRecordUpdate{CurrentBlockID: &current}); err != nil {
		s.logger.ErrorContext(ctx, "Failed to update session record",
			"session_id", session.ID,
			"history_id", session.HistoryID,
			"error", err)
	}
}

// JoinRequest carries what a participant enters to join a session.
type JoinRequest struct {
	Code          string
	Name          string
	ParticipantID string // Reused on rejoin; generated when empty
	Avatar        string
}

// Join attaches a participant to the open session whose join code matches
// case-insensitively. A participant id already in the session is returned
// as-is. No session is changed when the code matches nothing.
func (s *Session) Join(ctx context.Context, req JoinRequest) (*models.Session, *models.Participant, error) {
	ctx, span := otelhelper.StartSpan(ctx, otelhelper.Tracer(), "session.join")
	defer span.End()

	code := joincode.Normalize(req.Code)
	if !joincode.Valid(code) {
		return nil, nil, ErrSessionNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sessions, err := s.persistence.SessionRepository().GetAll(ctx)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	i := slices.IndexFunc(sessions, func(session *models.Session) bool {
		return !session.IsCompleted() && joincode.Normalize(session.JoinCode) == code
	})
	if i < 0 {
		return nil, nil, ErrSessionNotFound
	}

	session := sessions[i]
	span.SetAttributes(attribute.String(otelhelper.SessionIDKey, session.ID))

	participantID := strings.TrimSpace(req.ParticipantID)
	if participantID != "" {
		if j := session.ParticipantIndex(participantID); j >= 0 {
			participant := session.Participants[j]

			return session, &participant, nil
		}
	} else {
		participantID = newID()
	}

	participant := models.Participant{
		ID:     participantID,
		Name:   strings.TrimSpace(req.Name),
		Avatar: req.Avatar,
		Status: models.ParticipantStatusThinking,
	}

	if participant.Name == "" {
		participant.Name = models.DefaultParticipantName
	}

	if participant.Avatar == "" {
		participant.Avatar = fmt.Sprintf("avatar-%d", len(session.Participants)+1)
	}

	session.Participants = append(session.Participants, participant)

	if err := s.persistence.SessionRepository().Save(ctx, session); err != nil {
		otelhelper.SetError(span, err)

		return nil, nil, fmt.Errorf("failed to save session: %w", err)
	}

	span.SetAttributes(attribute.String(otelhelper.ParticipantIDKey, participant.ID))
	s.logger.InfoContext(ctx, "Participant joined", "session_id", session.ID, "participant_id", participant.ID)

	s.publish(ctx, session.ID, events.ParticipantJoined{
		BaseEvent:     events.NewBaseEvent(events.ParticipantJoinedEvent, session.ID, session.WorkshopID),
		ParticipantID: participant.ID,
		Name:          participant.Name,
	})

	return session, &participant, nil
}

// ParticipantUpdate holds the participant fields that may change. Nil
// fields are left untouched.
type ParticipantUpdate struct {
	Name   *string                   `json:"name,omitempty"`
	Status *models.ParticipantStatus `json:"status,omitempty" validate:"omitempty,oneof=thinking finished help-needed"`
}

// UpdateParticipant changes a participant's name or status.
func (s *Session) UpdateParticipant(ctx context.Context, sessionID, participantID string, update ParticipantUpdate) (*models.Participant, error) {
	if err := validate.Struct(update); err != nil {
		return nil, NewValidationError("UpdateParticipant", "invalid_status", "status must be one of thinking, finished, help-needed", ErrInvalidStatus)
	}

	var updated models.Participant

	session, err := s.mutate(ctx, sessionID, func(session *models.Session) (bool, error) {
		i := session.ParticipantIndex(participantID)
		if i < 0 {
			return false, ErrParticipantNotFound
		}

		p := &session.Participants[i]
		if update.Name != nil {
			p.Name = strings.TrimSpace(*update.Name)
			if p.Name == "" {
				p.Name = models.DefaultParticipantName
			}
		}

		if update.Status != nil {
			p.Status = *update.Status
		}

		updated = *p

		return true, nil
	})
	if err != nil {
		return nil, err
	}

	if session == nil {
		return nil, ErrSessionNotFound
	}

	s.publish(ctx, sessionID, events.ParticipantUpdated{
		BaseEvent:     events.NewBaseEvent(events.ParticipantUpdatedEvent, sessionID, session.WorkshopID),
		ParticipantID: participantID,
		Status:        updated.Status,
	})

	return &updated, nil
}

// RemoveParticipant drops a participant from a session. Removing an absent
// participant succeeds.
func (s *Session) RemoveParticipant(ctx context.Context, sessionID, participantID string) (*models.Session, error) {
	removed := false

	session, err := s.mutate(ctx, sessionID, func(session *models.Session) (bool, error) {
		i := session.ParticipantIndex(participantID)
		if i < 0 {
			return false, nil
		}

		session.Participants = slices.Delete(session.Participants, i, i+1)
		removed = true

		return true, nil
	})
	if err != nil {
		return nil, err
	}

	if session == nil {
		return nil, ErrSessionNotFound
	}

	if removed {
		s.publish(ctx, sessionID, events.ParticipantRemoved{
			BaseEvent:     events.NewBaseEvent(events.ParticipantRemovedEvent, sessionID, session.WorkshopID),
			ParticipantID: participantID,
		})
	}

	return session, nil
}

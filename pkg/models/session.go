package models

import (
	"slices"
	"time"
)

// SessionStatus represents the lifecycle state of a live session.
type SessionStatus string

const (
	SessionStatusActive    SessionStatus = "active"
	SessionStatusPaused    SessionStatus = "paused"
	SessionStatusCompleted SessionStatus = "completed"
)

// ParticipantStatus is the self-reported state of a participant.
type ParticipantStatus string

const (
	ParticipantStatusThinking   ParticipantStatus = "thinking"
	ParticipantStatusFinished   ParticipantStatus = "finished"
	ParticipantStatusHelpNeeded ParticipantStatus = "help-needed"
)

// DefaultParticipantName is used when a participant joins without a name.
const DefaultParticipantName = "Guest"

// Session is a live run of one workshop snapshot.
type Session struct {
	ID             string         `json:"id"               validate:"required"`
	WorkshopID     string         `json:"workshop_id"      validate:"required"`
	HistoryID      string         `json:"history_id,omitempty"`
	Title          string         `json:"title"`
	StartedAt      time.Time      `json:"started_at"`
	Status         SessionStatus  `json:"status"           validate:"required,oneof=active paused completed"`
	CurrentBlockID *string        `json:"current_block_id"`
	Participants   []Participant  `json:"participants"     validate:"unique=ID,dive"`
	ElapsedTime    int            `json:"elapsed_time"` // Seconds
	JoinCode       string         `json:"join_code"        validate:"required,len=6"`
	IsRunning      bool           `json:"is_running"`
	Timers         map[string]int `json:"timers"` // Block id to accumulated seconds
}

// Participant is someone who joined a session with its code.
type Participant struct {
	ID     string            `json:"id"     validate:"required"`
	Name   string            `json:"name"`
	Avatar string            `json:"avatar"`
	Status ParticipantStatus `json:"status" validate:"required,oneof=thinking finished help-needed"`
}

// SessionSnapshot is what a synchronized view renders: the session and the
// workshop it was created from.
type SessionSnapshot struct {
	Session  *Session  `json:"session"`
	Workshop *Workshop `json:"workshop,omitempty"`
}

// IsCompleted reports whether the session has ended.
func (s *Session) IsCompleted() bool {
	return s.Status == SessionStatusCompleted
}

// CurrentBlock returns the current block id or "" when none is selected.
func (s *Session) CurrentBlock() string {
	if s.CurrentBlockID == nil {
		return ""
	}

	return *s.CurrentBlockID
}

// SetCurrentBlock selects a block.
func (s *Session) SetCurrentBlock(blockID string) {
	id := blockID
	s.CurrentBlockID = &id
}

// ParticipantIndex returns the index of the participant with the given id, or -1.
func (s *Session) ParticipantIndex(participantID string) int {
	return slices.IndexFunc(s.Participants, func(p Participant) bool {
		return p.ID == participantID
	})
}

// ParticipantCounts counts participants per status.
func (s *Session) ParticipantCounts() map[ParticipantStatus]int {
	counts := map[ParticipantStatus]int{
		ParticipantStatusThinking:   0,
		ParticipantStatusFinished:   0,
		ParticipantStatusHelpNeeded: 0,
	}

	for _, p := range s.Participants {
		counts[p.Status]++
	}

	return counts
}

// Clone returns a deep copy of the session.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}

	clone := *s
	if s.CurrentBlockID != nil {
		clone.SetCurrentBlock(*s.CurrentBlockID)
	}

	clone.Participants = append([]Participant{}, s.Participants...)

	clone.Timers = make(map[string]int, len(s.Timers))
	for k, v := range s.Timers {
		clone.Timers[k] = v
	}

	return &clone
}

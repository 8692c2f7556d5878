package services

import (
	"context"

	"github.com/dukex/facilitator/pkg/models"
)

// Screen is the read-only projector view of a session.
type Screen struct {
	SessionID         string                           `json:"session_id"`
	Title             string                           `json:"title"`
	Status            models.SessionStatus             `json:"status"`
	CurrentBlock      *models.Block                    `json:"current_block,omitempty"`
	BlockSeconds      int                              `json:"block_seconds"`
	RemainingSeconds  int                              `json:"remaining_seconds"`
	ElapsedTime       int                              `json:"elapsed_time"`
	IsRunning         bool                             `json:"is_running"`
	JoinCode          string                           `json:"join_code"`
	ParticipantCounts map[models.ParticipantStatus]int `json:"participant_counts"`
}

// NewScreen projects a snapshot into what a projector displays. Remaining
// time never goes below zero.
func NewScreen(snapshot *models.SessionSnapshot) *Screen {
	session := snapshot.Session

	screen := &Screen{
		SessionID:         session.ID,
		Title:             session.Title,
		Status:            session.Status,
		ElapsedTime:       session.ElapsedTime,
		IsRunning:         session.IsRunning,
		JoinCode:          session.JoinCode,
		ParticipantCounts: session.ParticipantCounts(),
	}

	current := session.CurrentBlock()
	if current == "" || snapshot.Workshop == nil {
		return screen
	}

	screen.BlockSeconds = session.Timers[current]

	if block, ok := snapshot.Workshop.Block(current); ok {
		screen.CurrentBlock = block
		screen.RemainingSeconds = max(0, block.Duration*60-screen.BlockSeconds)
	}

	return screen
}

// Screen returns the projector view of a session.
func (s *Session) Screen(ctx context.Context, id string) (*Screen, error) {
	snapshot, err := s.Snapshot(ctx, id)
	if err != nil {
		return nil, err
	}

	return NewScreen(snapshot), nil
}

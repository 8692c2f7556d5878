package services

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/dukex/facilitator/pkg/models"
	"github.com/dukex/facilitator/pkg/persistence"
)

// Responses stores participants' survey answers.
type Responses struct {
	persistence persistence.Persistence
	options
}

// NewResponses creates a new participant responses service.
func NewResponses(persistence persistence.Persistence, opts ...Option) *Responses {
	return &Responses{
		persistence: persistence,
		options:     newOptions(opts),
	}
}

// Get returns a participant's answers, empty when nothing was saved.
func (r *Responses) Get(ctx context.Context, sessionID, participantID string) (models.ParticipantResponses, error) {
	if _, err := r.session(ctx, sessionID); err != nil {
		return nil, err
	}

	responses, err := r.persistence.ResponseRepository().Get(ctx, sessionID, participantID)
	if err != nil {
		return nil, fmt.Errorf("failed to get responses: %w", err)
	}

	return responses, nil
}

// Save replaces a participant's answers. Answers to questions of the session
// workshop must fit the question type; unknown question ids are kept as-is.
func (r *Responses) Save(ctx context.Context, sessionID, participantID string, responses models.ParticipantResponses) (models.ParticipantResponses, error) {
	session, err := r.session(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if session.ParticipantIndex(participantID) < 0 {
		return nil, ErrParticipantNotFound
	}

	workshop, err := r.persistence.SessionRepository().WorkshopSnapshot(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session workshop: %w", err)
	}

	if err := validateResponses(workshop, session.CurrentBlockID, responses); err != nil {
		return nil, err
	}

	if responses == nil {
		responses = models.ParticipantResponses{}
	}

	if err := r.persistence.ResponseRepository().Save(ctx, sessionID, participantID, responses); err != nil {
		return nil, fmt.Errorf("failed to save responses: %w", err)
	}

	return responses, nil
}

func (r *Responses) session(ctx context.Context, sessionID string) (*models.Session, error) {
	session, err := r.persistence.SessionRepository().GetByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	if session == nil {
		return nil, ErrSessionNotFound
	}

	return session, nil
}

// findQuestion resolves a question id against the current block first, then
// the first block that has it. Ids are only unique within a subscale.
func findQuestion(workshop *models.Workshop, currentBlockID *string, questionID string) (*models.Question, bool) {
	if currentBlockID != nil {
		if block, ok := workshop.Block(*currentBlockID); ok {
			if question, ok := block.Question(questionID); ok {
				return question, true
			}
		}
	}

	for i := range workshop.Blocks {
		if question, ok := workshop.Blocks[i].Question(questionID); ok {
			return question, true
		}
	}

	return nil, false
}

func validateResponses(workshop *models.Workshop, currentBlockID *string, responses models.ParticipantResponses) error {
	if workshop == nil {
		return nil
	}

	var problems []string

	for questionID, answer := range responses {
		question, ok := findQuestion(workshop, currentBlockID, questionID)
		if !ok {
			continue
		}

		if err := question.ValidateAnswer(answer); err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", questionID, err))
		}
	}

	if len(problems) > 0 {
		slices.Sort(problems)

		return NewValidationError("SaveResponses", "invalid_answer", strings.Join(problems, "; "), ErrInvalidAnswer)
	}

	return nil
}

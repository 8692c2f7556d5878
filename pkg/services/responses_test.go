package services_test

import (
	"testing"

	"github.com/dukex/facilitator/pkg/models"
	"github.com/dukex/facilitator/pkg/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResponses(t *testing.T) {
	f := newFixture(t, services.WithJoinCodeGenerator(sequence("ABC234")))
	ctx := t.Context()

	session, err := f.sessions.CreateSession(ctx, agendaWorkshop())
	require.NoError(t, err)

	_, _, err = f.sessions.Join(ctx, services.JoinRequest{Code: "ABC234", ParticipantID: "p1"})
	require.NoError(t, err)

	empty, err := f.responses.Get(ctx, session.ID, "p1")
	require.NoError(t, err)
	assert.Empty(t, empty)

	saved, err := f.responses.Save(ctx, session.ID, "p1", models.ParticipantResponses{
		"q-likert": models.NumberAnswer(4),
		"q-choice": models.ListAnswer("calm"),
		"q-text":   models.TextAnswer("all good"),
		"freeform": models.TextAnswer("kept"),
	})
	require.NoError(t, err)
	assert.Len(t, saved, 4)

	_, err = f.responses.Save(ctx, session.ID, "p1", models.ParticipantResponses{
		"q-likert": models.NumberAnswer(5),
	})
	require.NoError(t, err)

	stored, err := f.responses.Get(ctx, session.ID, "p1")
	require.NoError(t, err)
	assert.Len(t, stored, 1, "saving overwrites wholesale")

	n, ok := stored["q-likert"].Number()
	assert.True(t, ok)
	assert.InDelta(t, 5, n, 0)
}

func TestResponses_Validation(t *testing.T) {
	tests := []struct {
		name      string
		responses models.ParticipantResponses
	}{
		{"likert out of scale", models.ParticipantResponses{"q-likert": models.NumberAnswer(9)}},
		{"likert as text", models.ParticipantResponses{"q-likert": models.TextAnswer("high")}},
		{"unknown option", models.ParticipantResponses{"q-choice": models.TextAnswer("angry")}},
		{"open text as number", models.ParticipantResponses{"q-text": models.NumberAnswer(1)}},
		{"markdown answered", models.ParticipantResponses{"q-note": models.TextAnswer("hi")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, services.WithJoinCodeGenerator(sequence("ABC234")))
			ctx := t.Context()

			session, err := f.sessions.CreateSession(ctx, agendaWorkshop())
			require.NoError(t, err)

			_, _, err = f.sessions.Join(ctx, services.JoinRequest{Code: "ABC234", ParticipantID: "p1"})
			require.NoError(t, err)

			_, err = f.responses.Save(ctx, session.ID, "p1", tt.responses)
			require.Error(t, err)
			assert.ErrorIs(t, err, services.ErrInvalidAnswer)
			assert.True(t, services.IsValidationError(err))
		})
	}
}

func TestResponses_UnknownSessionOrParticipant(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()

	_, err := f.responses.Get(ctx, "missing", "p1")
	require.ErrorIs(t, err, services.ErrSessionNotFound)

	session, err := f.sessions.CreateSession(ctx, breakWorkshop())
	require.NoError(t, err)

	_, err = f.responses.Save(ctx, session.ID, "ghost", models.ParticipantResponses{})
	require.ErrorIs(t, err, services.ErrParticipantNotFound)
}

func TestResponses_SharedQuestionIDFollowsCurrentBlock(t *testing.T) {
	f := newFixture(t, services.WithJoinCodeGenerator(sequence("ABC234")))
	ctx := t.Context()

	survey := func(blockID string, question models.Question) models.Block {
		return models.Block{
			ID:        blockID,
			Type:      models.BlockTypeSurvey,
			Title:     blockID,
			Duration:  5,
			Subscales: []models.Subscale{{ID: "main", Title: "Main", Questions: []models.Question{question}}},
		}
	}

	workshop := &models.Workshop{
		ID:     "w3",
		Title:  "Check-ins",
		Status: models.WorkshopStatusUpcoming,
		Blocks: []models.Block{
			survey("morning", models.Question{ID: "q1", Type: models.QuestionTypeLikert, Text: "Energy", Scale: &models.LikertScale{Min: 1, Max: 5}}),
			survey("evening", models.Question{ID: "q1", Type: models.QuestionTypeMultipleChoice, Text: "Done?", Options: []string{"yes", "no"}}),
		},
	}

	session, err := f.sessions.CreateSession(ctx, workshop)
	require.NoError(t, err)

	_, _, err = f.sessions.Join(ctx, services.JoinRequest{Code: "ABC234", ParticipantID: "p1"})
	require.NoError(t, err)

	_, err = f.sessions.StartBlock(ctx, session.ID, "evening")
	require.NoError(t, err)

	_, err = f.responses.Save(ctx, session.ID, "p1", models.ParticipantResponses{"q1": models.TextAnswer("yes")})
	require.NoError(t, err)

	_, err = f.sessions.StartBlock(ctx, session.ID, "morning")
	require.NoError(t, err)

	_, err = f.responses.Save(ctx, session.ID, "p1", models.ParticipantResponses{"q1": models.TextAnswer("yes")})
	require.ErrorIs(t, err, services.ErrInvalidAnswer)

	_, err = f.responses.Save(ctx, session.ID, "p1", models.ParticipantResponses{"q1": models.NumberAnswer(3)})
	require.NoError(t, err)
}

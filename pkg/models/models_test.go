package models

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleWorkshop() *Workshop {
	duration := 90

	return &Workshop{
		ID:       "w1",
		Title:    "Team Health Check",
		Date:     "2026-03-14",
		Duration: &duration,
		Status:   WorkshopStatusUpcoming,
		Blocks: []Block{
			{
				ID:             "b1",
				Type:           BlockTypeDiscussion,
				Title:          "Warm up",
				Duration:       10,
				Prompt:         "What went well?",
				GroupingMethod: GroupingMethodRandom,
			},
			{
				ID:       "b2",
				Type:     BlockTypeSurvey,
				Title:    "Safety survey",
				Duration: 15,
				Subscales: []Subscale{{
					ID:    "s1",
					Title: "Psychological Safety",
					Questions: []Question{
						{ID: "q1", Type: QuestionTypeMarkdown, Text: "**Instructions**"},
						{ID: "q2", Type: QuestionTypeLikert, Text: "I feel safe", Scale: &LikertScale{Min: 1, Max: 5}},
						{ID: "q3", Type: QuestionTypeMultipleChoice, Text: "How often?", Options: []string{"Always", "Never"}},
						{ID: "q4", Type: QuestionTypeOpenText, Text: "Anything else?"},
					},
				}},
			},
			{ID: "b3", Type: BlockTypeBreak, Title: "Break", Duration: 5},
		},
	}
}

func TestWorkshop_Validate_Valid(t *testing.T) {
	assert.NoError(t, sampleWorkshop().Validate())
}

func TestWorkshop_Validate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(w *Workshop)
		wantErr error
		wantTag string
	}{
		{
			name:    "missing id",
			mutate:  func(w *Workshop) { w.ID = "" },
			wantTag: "required",
		},
		{
			name:    "duplicate block id",
			mutate:  func(w *Workshop) { w.Blocks[2].ID = "b1" },
			wantTag: "unique",
		},
		{
			name:    "duplicate question id",
			mutate:  func(w *Workshop) { w.Blocks[1].Subscales[0].Questions[3].ID = "q1" },
			wantTag: "unique",
		},
		{
			name:    "negative duration",
			mutate:  func(w *Workshop) { w.Blocks[0].Duration = -1 },
			wantTag: "min",
		},
		{
			name:    "unknown block type",
			mutate:  func(w *Workshop) { w.Blocks[0].Type = "lecture" },
			wantTag: "oneof",
		},
		{
			name:    "bad date",
			mutate:  func(w *Workshop) { w.Date = "14/03/2026" },
			wantTag: "datetime",
		},
		{
			name:    "likert without scale",
			mutate:  func(w *Workshop) { w.Blocks[1].Subscales[0].Questions[1].Scale = nil },
			wantErr: ErrLikertScaleRequired,
		},
		{
			name:    "multiple choice without options",
			mutate:  func(w *Workshop) { w.Blocks[1].Subscales[0].Questions[2].Options = nil },
			wantErr: ErrOptionsRequired,
		},
		{
			name: "subscales on a break",
			mutate: func(w *Workshop) {
				w.Blocks[2].Subscales = []Subscale{{ID: "x", Questions: []Question{}}}
			},
			wantErr: ErrSubscalesNotAllowed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := sampleWorkshop()
			tt.mutate(w)

			err := w.Validate()
			require.Error(t, err)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)

				return
			}

			var validationErrors validator.ValidationErrors
			require.True(t, errors.As(err, &validationErrors))

			found := false
			for _, fieldErr := range validationErrors {
				if fieldErr.Tag() == tt.wantTag {
					found = true
				}
			}

			assert.True(t, found, "expected a %q violation, got %v", tt.wantTag, err)
		})
	}
}

func TestWorkshop_Clone_IsDeep(t *testing.T) {
	original := sampleWorkshop()
	clone := original.Clone()

	clone.Title = "Changed"
	*clone.Duration = 1
	clone.Blocks[0].Title = "Changed"
	clone.Blocks[1].Subscales[0].Questions[2].Options[0] = "Changed"
	clone.Blocks[1].Subscales[0].Questions[1].Scale.Max = 10

	assert.Equal(t, "Team Health Check", original.Title)
	assert.Equal(t, 90, *original.Duration)
	assert.Equal(t, "Warm up", original.Blocks[0].Title)
	assert.Equal(t, "Always", original.Blocks[1].Subscales[0].Questions[2].Options[0])
	assert.Equal(t, 5, original.Blocks[1].Subscales[0].Questions[1].Scale.Max)
}

func TestWorkshop_DisplayTitle(t *testing.T) {
	assert.Equal(t, UntitledWorkshop, (&Workshop{}).DisplayTitle())
	assert.Equal(t, "Retro", (&Workshop{Title: "Retro"}).DisplayTitle())
}

func TestBlock_JSONCarriesOnlyVariantFields(t *testing.T) {
	w := sampleWorkshop()

	data, err := json.Marshal(w.Blocks)
	require.NoError(t, err)

	var raw []map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))

	assert.Equal(t, "discussion", raw[0]["type"])
	assert.Contains(t, raw[0], "has_reflection")
	assert.NotContains(t, raw[0], "subscales")

	assert.Contains(t, raw[1], "subscales")
	assert.NotContains(t, raw[1], "prompt")

	assert.Len(t, raw[2], 4)

	var decoded []Block
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, w.Blocks, decoded)
}

func TestBlock_MarshalUnknownType(t *testing.T) {
	_, err := json.Marshal(Block{ID: "b", Type: "lecture"})
	assert.Error(t, err)
}

func TestSession_Clone_IsDeep(t *testing.T) {
	s := &Session{
		ID:           "s1",
		Timers:       map[string]int{"b1": 3},
		Participants: []Participant{{ID: "p1", Status: ParticipantStatusThinking}},
	}
	s.SetCurrentBlock("b1")

	clone := s.Clone()
	clone.Timers["b1"] = 99
	clone.Participants[0].Status = ParticipantStatusFinished
	clone.SetCurrentBlock("b2")

	assert.Equal(t, 3, s.Timers["b1"])
	assert.Equal(t, ParticipantStatusThinking, s.Participants[0].Status)
	assert.Equal(t, "b1", s.CurrentBlock())
}

func TestSession_JSONKeepsNullCurrentBlock(t *testing.T) {
	data, err := json.Marshal(&Session{ID: "s1", Timers: map[string]int{}})
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))

	value, ok := raw["current_block_id"]
	assert.True(t, ok)
	assert.Nil(t, value)
}

func TestSession_ParticipantCounts(t *testing.T) {
	s := &Session{Participants: []Participant{
		{ID: "a", Status: ParticipantStatusThinking},
		{ID: "b", Status: ParticipantStatusHelpNeeded},
		{ID: "c", Status: ParticipantStatusThinking},
	}}

	counts := s.ParticipantCounts()
	assert.Equal(t, 2, counts[ParticipantStatusThinking])
	assert.Equal(t, 0, counts[ParticipantStatusFinished])
	assert.Equal(t, 1, counts[ParticipantStatusHelpNeeded])
	assert.Equal(t, 2, s.ParticipantIndex("c"))
	assert.Equal(t, -1, s.ParticipantIndex("z"))
}

func TestSessionRecord_Complete(t *testing.T) {
	start := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	r := &SessionRecord{StartedAt: start, Status: SessionRecordStatusActive}

	assert.True(t, r.Complete(start.Add(95*time.Second+400*time.Millisecond)))
	require.NotNil(t, r.DurationSec)
	assert.Equal(t, 95, *r.DurationSec)
	assert.Equal(t, SessionRecordStatusCompleted, r.Status)

	assert.False(t, r.Complete(start.Add(time.Hour)))
	assert.Equal(t, 95, *r.DurationSec)
}

func TestSessionRecord_CompleteBeforeStartClampsToZero(t *testing.T) {
	start := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	r := &SessionRecord{StartedAt: start, Status: SessionRecordStatusActive}

	r.Complete(start.Add(-time.Minute))
	assert.Equal(t, 0, *r.DurationSec)
}

func TestSessionRecord_Apply(t *testing.T) {
	r := &SessionRecord{WorkshopTitle: "Old"}

	block := "b2"
	r.Apply(SessionRecordUpdate{CurrentBlockID: &block})
	require.NotNil(t, r.CurrentBlockID)
	assert.Equal(t, "b2", *r.CurrentBlockID)
	assert.Equal(t, "Old", r.WorkshopTitle)

	empty := ""
	r.Apply(SessionRecordUpdate{CurrentBlockID: &empty})
	assert.Nil(t, r.CurrentBlockID)
}

func TestAnswer_JSON(t *testing.T) {
	responses := ParticipantResponses{
		"q2": NumberAnswer(4),
		"q3": ListAnswer("Always"),
		"q4": TextAnswer("more breaks"),
	}

	data, err := json.Marshal(responses)
	require.NoError(t, err)
	assert.JSONEq(t, `{"q2":4,"q3":["Always"],"q4":"more breaks"}`, string(data))

	var decoded ParticipantResponses
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, responses, decoded)

	var bad Answer
	assert.ErrorIs(t, json.Unmarshal([]byte(`{"x":1}`), &bad), ErrInvalidAnswer)
}

func TestQuestion_ValidateAnswer(t *testing.T) {
	questions := sampleWorkshop().Blocks[1].Subscales[0].Questions

	tests := []struct {
		name     string
		question Question
		answer   Answer
		wantErr  error
	}{
		{"markdown", questions[0], TextAnswer("x"), ErrNotAnswerable},
		{"likert in scale", questions[1], NumberAnswer(3), nil},
		{"likert out of scale", questions[1], NumberAnswer(6), ErrAnswerOutOfScale},
		{"likert text", questions[1], TextAnswer("3"), ErrAnswerType},
		{"choice text", questions[2], TextAnswer("Always"), nil},
		{"choice list", questions[2], ListAnswer("Always", "Never"), nil},
		{"choice unknown", questions[2], ListAnswer("Sometimes"), ErrUnknownOption},
		{"open text", questions[3], TextAnswer("ok"), nil},
		{"open text number", questions[3], NumberAnswer(1), ErrAnswerType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.question.ValidateAnswer(tt.answer)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

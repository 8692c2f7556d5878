// Package testutil provides test data builders and utilities for testing.
package testutil

import (
	"github.com/dukex/facilitator/pkg/models"
	"github.com/google/uuid"
)

// CreateTestWorkshop creates an upcoming workshop with a discussion, a
// survey and a break block. Overrides run in order.
func CreateTestWorkshop(overrides ...func(*models.Workshop)) *models.Workshop {
	workshop := &models.Workshop{
		ID:     uuid.New().String(),
		Title:  "Test Workshop",
		Status: models.WorkshopStatusUpcoming,
		Blocks: []models.Block{
			CreateDiscussionBlock("intro", 10),
			CreateSurveyBlock("pulse", 5),
			CreateBreakBlock("coffee", 15),
		},
	}

	for _, override := range overrides {
		override(workshop)
	}

	return workshop
}

// WithWorkshopID sets the workshop id.
func WithWorkshopID(id string) func(*models.Workshop) {
	return func(w *models.Workshop) {
		w.ID = id
	}
}

// WithTitle sets the workshop title.
func WithTitle(title string) func(*models.Workshop) {
	return func(w *models.Workshop) {
		w.Title = title
	}
}

// WithStatus sets the workshop status.
func WithStatus(status models.WorkshopStatus) func(*models.Workshop) {
	return func(w *models.Workshop) {
		w.Status = status
	}
}

// WithBlocks replaces the workshop's blocks.
func WithBlocks(blocks ...models.Block) func(*models.Workshop) {
	return func(w *models.Workshop) {
		w.Blocks = blocks
	}
}

func CreateDiscussionBlock(id string, minutes int) models.Block {
	return models.Block{
		ID:             id,
		Type:           models.BlockTypeDiscussion,
		Title:          "Discussion " + id,
		Duration:       minutes,
		Prompt:         "What stood out?",
		GroupingMethod: models.GroupingMethodRandom,
	}
}

// CreateSurveyBlock creates a survey whose "<id>-likert" question takes 1
// to 5 and whose "<id>-choice" question takes "yes" or "no".
func CreateSurveyBlock(id string, minutes int) models.Block {
	return models.Block{
		ID:       id,
		Type:     models.BlockTypeSurvey,
		Title:    "Survey " + id,
		Duration: minutes,
		Subscales: []models.Subscale{{
			ID:    id + "-scale",
			Title: "Scale",
			Questions: []models.Question{
				{
					ID:    id + "-likert",
					Type:  models.QuestionTypeLikert,
					Text:  "How much?",
					Scale: &models.LikertScale{Min: 1, Max: 5, Labels: models.ScaleLabels{Min: "Little", Max: "Lots"}},
				},
				{
					ID:      id + "-choice",
					Type:    models.QuestionTypeMultipleChoice,
					Text:    "Again?",
					Options: []string{"yes", "no"},
				},
			},
		}},
	}
}

func CreateBreakBlock(id string, minutes int) models.Block {
	return models.Block{
		ID:       id,
		Type:     models.BlockTypeBreak,
		Title:    "Break",
		Duration: minutes,
	}
}

package services_test

import (
	"errors"
	"testing"
	"time"

	"github.com/dukex/facilitator/pkg/mocks"
	"github.com/dukex/facilitator/pkg/models"
	"github.com/dukex/facilitator/pkg/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestWorkshop_SaveTwiceKeepsOneEntry(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()

	first := breakWorkshop()
	_, err := f.workshops.Save(ctx, first)
	require.NoError(t, err)

	f.clock.Advance(time.Minute)

	second := breakWorkshop()
	second.Title = "Retro, take two"
	_, err = f.workshops.Save(ctx, second)
	require.NoError(t, err)

	all, err := f.workshops.List(ctx, services.ListWorkshopsRequest{})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Retro, take two", all[0].Title)
	assert.False(t, all[0].UpdatedAt.Before(first.UpdatedAt))
}

func TestWorkshop_SaveRetrievesSameFields(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()

	workshop := agendaWorkshop()
	workshop.Date = "2026-04-01"
	workshop.Duration = ptr(90)
	workshop.Description = "Quarterly offsite"

	saved, err := f.workshops.Save(ctx, workshop)
	require.NoError(t, err)

	stored, err := f.workshops.Get(ctx, saved.ID)
	require.NoError(t, err)

	assert.False(t, stored.UpdatedAt.Before(saved.UpdatedAt))
	stored.UpdatedAt = saved.UpdatedAt
	assert.Equal(t, saved, stored)
}

func TestWorkshop_SaveValidates(t *testing.T) {
	tests := []struct {
		name     string
		workshop *models.Workshop
	}{
		{"nil", nil},
		{"bad status", &models.Workshop{ID: "w", Status: "archived"}},
		{"duplicate block ids", &models.Workshop{ID: "w", Blocks: []models.Block{
			{ID: "b", Type: models.BlockTypeBreak},
			{ID: "b", Type: models.BlockTypeBreak},
		}}},
		{"likert without scale", &models.Workshop{ID: "w", Blocks: []models.Block{{
			ID: "s", Type: models.BlockTypeSurvey,
			Subscales: []models.Subscale{{ID: "x", Questions: []models.Question{{ID: "q", Type: models.QuestionTypeLikert}}}},
		}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			_, err := f.workshops.Save(t.Context(), tt.workshop)
			require.Error(t, err)
			assert.True(t, services.IsValidationError(err))
		})
	}
}

func TestWorkshop_SaveDefaults(t *testing.T) {
	f := newFixture(t)

	saved, err := f.workshops.Save(t.Context(), &models.Workshop{Title: "Fresh"})
	require.NoError(t, err)
	assert.NotEmpty(t, saved.ID)
	assert.Equal(t, models.WorkshopStatusDraft, saved.Status)
	assert.NotNil(t, saved.Blocks)
}

func TestWorkshop_List(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()

	seed := []*models.Workshop{
		{ID: "a", Title: "Design Sprint", Status: models.WorkshopStatusDraft},
		{ID: "b", Title: "Sprint Retro", Status: models.WorkshopStatusUpcoming},
		{ID: "c", Title: "Kickoff", Status: models.WorkshopStatusCompleted},
	}

	for _, w := range seed {
		_, err := f.workshops.Save(ctx, w)
		require.NoError(t, err)
		f.clock.Advance(time.Minute)
	}

	tests := []struct {
		name string
		req  services.ListWorkshopsRequest
		want []string
	}{
		{"everything newest first", services.ListWorkshopsRequest{}, []string{"c", "b", "a"}},
		{"all keyword", services.ListWorkshopsRequest{Status: "all"}, []string{"c", "b", "a"}},
		{"by status", services.ListWorkshopsRequest{Status: "upcoming"}, []string{"b"}},
		{"search ignores case", services.ListWorkshopsRequest{Query: "SPRINT"}, []string{"b", "a"}},
		{"status and search", services.ListWorkshopsRequest{Status: "draft", Query: "sprint"}, []string{"a"}},
		{"no match", services.ListWorkshopsRequest{Query: "zzz"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.workshops.List(ctx, tt.req)
			require.NoError(t, err)

			ids := make([]string, 0, len(got))
			for _, w := range got {
				ids = append(ids, w.ID)
			}

			assert.Equal(t, tt.want, ids)
		})
	}

	_, err := f.workshops.List(ctx, services.ListWorkshopsRequest{Status: "archived"})
	assert.ErrorIs(t, err, services.ErrInvalidStatus)
}

func TestWorkshop_Delete(t *testing.T) {
	bus := &mocks.MockEventBus{}
	bus.On("Publish", mock.Anything, "w1", mock.AnythingOfType("events.WorkshopDeleted")).Return(nil).Twice()

	f := newFixture(t, services.WithEventPublisher(bus))
	ctx := t.Context()

	_, err := f.workshops.Save(ctx, breakWorkshop())
	require.NoError(t, err)
	_, err = f.publishing.SaveDraft(ctx, breakWorkshop())
	require.NoError(t, err)

	require.NoError(t, f.workshops.Delete(ctx, "w1"))
	require.NoError(t, f.workshops.Delete(ctx, "w1"))

	_, err = f.workshops.Get(ctx, "w1")
	require.ErrorIs(t, err, services.ErrWorkshopNotFound)

	_, err = f.publishing.GetDraft(ctx, "w1")
	require.ErrorIs(t, err, services.ErrDraftNotFound)

	bus.AssertExpectations(t)
}

func TestWorkshop_HealthCheck(t *testing.T) {
	p := &mocks.MockPersistence{}
	p.On("HealthCheck", mock.Anything).Return(errors.New("connection refused")).Once()
	p.On("HealthCheck", mock.Anything).Return(nil).Once()

	workshops := services.NewWorkshop(p)

	message, ok := workshops.HealthCheck(t.Context())
	assert.False(t, ok)
	assert.Contains(t, message, "connection refused")

	_, ok = workshops.HealthCheck(t.Context())
	assert.True(t, ok)
}

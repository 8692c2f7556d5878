package services_test

import (
	"sync"
	"testing"
	"time"

	"github.com/dukex/facilitator/pkg/models"
	"github.com/dukex/facilitator/pkg/persistence/keyvalue"
	"github.com/dukex/facilitator/pkg/services"
	"github.com/dukex/facilitator/pkg/storage/memory"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
}

// fixture wires every service over one in-memory store.
type fixture struct {
	clock       *testClock
	persistence *keyvalue.Persistence
	workshops   *services.Workshop
	publishing  *services.Publishing
	history     *services.History
	sessions    *services.Session
	responses   *services.Responses
}

func newFixture(t *testing.T, opts ...services.Option) *fixture {
	t.Helper()

	clock := newTestClock()
	p := keyvalue.NewPersistence(memory.NewStore(), keyvalue.WithClock(clock.Now))

	t.Cleanup(func() { _ = p.Close(t.Context()) })

	opts = append([]services.Option{services.WithClock(clock.Now)}, opts...)
	history := services.NewHistory(p, opts...)

	return &fixture{
		clock:       clock,
		persistence: p,
		workshops:   services.NewWorkshop(p, opts...),
		publishing:  services.NewPublishing(p, opts...),
		history:     history,
		sessions:    services.NewSession(p, history, opts...),
		responses:   services.NewResponses(p, opts...),
	}
}

func breakWorkshop() *models.Workshop {
	return &models.Workshop{
		ID:     "w1",
		Title:  "Retro",
		Status: models.WorkshopStatusUpcoming,
		Blocks: []models.Block{{ID: "b1", Type: models.BlockTypeBreak, Title: "Break", Duration: 5}},
	}
}

func agendaWorkshop() *models.Workshop {
	return &models.Workshop{
		ID:     "w2",
		Title:  "Team Offsite",
		Status: models.WorkshopStatusUpcoming,
		Blocks: []models.Block{
			{
				ID:             "intro",
				Type:           models.BlockTypeDiscussion,
				Title:          "Check-in",
				Duration:       10,
				Prompt:         "How are you arriving?",
				GroupingMethod: models.GroupingMethodRandom,
			},
			{
				ID:       "pulse",
				Type:     models.BlockTypeSurvey,
				Title:    "Pulse",
				Duration: 5,
				Subscales: []models.Subscale{{
					ID:    "energy",
					Title: "Energy",
					Questions: []models.Question{
						{ID: "q-likert", Type: models.QuestionTypeLikert, Text: "Energy level", Scale: &models.LikertScale{Min: 1, Max: 5}},
						{ID: "q-choice", Type: models.QuestionTypeMultipleChoice, Text: "Mood", Options: []string{"calm", "busy"}},
						{ID: "q-text", Type: models.QuestionTypeOpenText, Text: "Anything else?"},
						{ID: "q-note", Type: models.QuestionTypeMarkdown, Text: "**Thanks**"},
					},
				}},
			},
			{ID: "coffee", Type: models.BlockTypeBreak, Title: "Coffee", Duration: 15},
		},
	}
}

// sequence returns a join code generator cycling through codes.
func sequence(codes ...string) func() string {
	var (
		mu sync.Mutex
		i  int
	)

	return func() string {
		mu.Lock()
		defer mu.Unlock()

		code := codes[i%len(codes)]
		i++

		return code
	}
}

func ptr[T any](v T) *T {
	return &v
}

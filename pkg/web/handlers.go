// Package web provides HTTP handlers and REST API endpoints for workshops,
// live sessions and their history.
package web

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/dukex/facilitator/pkg/joincode"
	"github.com/dukex/facilitator/pkg/models"
	"github.com/dukex/facilitator/pkg/notifier"
	"github.com/dukex/facilitator/pkg/services"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// SessionWatcher streams session snapshots to a handler until cancelled.
// Done is closed when the watcher shuts down and stops every subscription.
type SessionWatcher interface {
	Subscribe(ctx context.Context, sessionID string, handler notifier.Handler) (func(), error)
	Done() <-chan struct{}
}

// Services groups the domain services the handlers call.
type Services struct {
	Workshops  *services.Workshop
	Publishing *services.Publishing
	Sessions   *services.Session
	History    *services.History
	Responses  *services.Responses
}

type APIHandlers struct {
	workshops  *services.Workshop
	publishing *services.Publishing
	sessions   *services.Session
	history    *services.History
	responses  *services.Responses
	watcher    SessionWatcher
	validator  *validator.Validate
}

func NewAPIHandlers(svc Services, watcher SessionWatcher, validator *validator.Validate) *APIHandlers {
	return &APIHandlers{
		workshops:  svc.Workshops,
		publishing: svc.Publishing,
		sessions:   svc.Sessions,
		history:    svc.History,
		responses:  svc.Responses,
		watcher:    watcher,
		validator:  validator,
	}
}

// Register mounts every endpoint on router.
func (h *APIHandlers) Register(router fiber.Router) {
	w := router.Group("/workshops")
	w.Get("/", h.GetWorkshops)
	w.Post("/", h.SaveWorkshop)
	w.Get("/:id", h.GetWorkshop)
	w.Put("/:id", h.SaveWorkshop)
	w.Delete("/:id", h.DeleteWorkshop)
	w.Get("/:id/editor", h.OpenEditor)
	w.Get("/:id/draft", h.GetDraft)
	w.Put("/:id/draft", h.SaveDraft)
	w.Delete("/:id/draft", h.DeleteDraft)
	w.Post("/:id/publish", h.PublishWorkshop)
	w.Post("/:id/sessions", h.StartWorkshopSession)

	router.Get("/drafts", h.GetDrafts)

	s := router.Group("/sessions")
	s.Get("/", h.GetSessions)
	s.Post("/", h.CreateSession)
	s.Get("/:id", h.GetSession)
	s.Delete("/:id", h.DeleteSession)
	s.Get("/:id/workshop", h.GetSessionWorkshop)
	s.Get("/:id/screen", h.GetScreen)
	s.Get("/:id/watch", h.WatchSession)
	s.Post("/:id/blocks/:blockId/start", h.StartBlock)
	s.Post("/:id/blocks/:blockId/time", h.AddTime)
	s.Post("/:id/pause", h.TogglePause)
	s.Post("/:id/next", h.NextBlock)
	s.Post("/:id/previous", h.PreviousBlock)
	s.Post("/:id/complete", h.CompleteSession)
	s.Patch("/:id/participants/:pid", h.UpdateParticipant)
	s.Delete("/:id/participants/:pid", h.RemoveParticipant)
	s.Get("/:id/participants/:pid/responses", h.GetResponses)
	s.Put("/:id/participants/:pid/responses", h.SaveResponses)

	router.Post("/join", h.Join)

	router.Get("/history", h.GetHistory)
	router.Get("/history/:id", h.GetSessionRecord)

	router.Get("/health", h.HealthCheck)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	repositoryCheck, ok := h.workshops.HealthCheck(c.Context())

	status := "unhealthy"
	message := "Facilitator API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if ok {
		status = "healthy"
		message = "Facilitator API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}

// Workshops

func (h *APIHandlers) GetWorkshops(c fiber.Ctx) error {
	workshops, err := h.workshops.List(c.Context(), services.ListWorkshopsRequest{
		Status: c.Query("status"),
		Query:  c.Query("q"),
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"workshops":   workshops,
		"total_count": len(workshops),
	})
}

func (h *APIHandlers) GetWorkshop(c fiber.Ctx) error {
	workshop, err := h.workshops.Get(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(workshop)
}

// SaveWorkshop upserts straight into the library. On PUT the path id wins
// over the body's.
func (h *APIHandlers) SaveWorkshop(c fiber.Ctx) error {
	var workshop models.Workshop
	if err := c.Bind().JSON(&workshop); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if id := c.Params("id"); id != "" {
		workshop.ID = id
	}

	saved, err := h.workshops.Save(c.Context(), &workshop)
	if err != nil {
		return handleServiceError(c, err)
	}

	status := fiber.StatusOK
	if c.Method() == fiber.MethodPost {
		status = fiber.StatusCreated
	}

	return c.Status(status).JSON(saved)
}

func (h *APIHandlers) DeleteWorkshop(c fiber.Ctx) error {
	if err := h.workshops.Delete(c.Context(), c.Params("id")); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) OpenEditor(c fiber.Ctx) error {
	editor, err := h.publishing.ResolveForEditing(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(editor)
}

func (h *APIHandlers) GetDrafts(c fiber.Ctx) error {
	drafts, err := h.publishing.ListDrafts(c.Context())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"drafts": drafts})
}

func (h *APIHandlers) GetDraft(c fiber.Ctx) error {
	draft, err := h.publishing.GetDraft(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(draft)
}

func (h *APIHandlers) SaveDraft(c fiber.Ctx) error {
	var draft models.Workshop
	if err := c.Bind().JSON(&draft); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	draft.ID = c.Params("id")

	saved, err := h.publishing.SaveDraft(c.Context(), &draft)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(saved)
}

func (h *APIHandlers) DeleteDraft(c fiber.Ctx) error {
	if err := h.publishing.DeleteDraft(c.Context(), c.Params("id")); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) PublishWorkshop(c fiber.Ctx) error {
	published, err := h.publishing.Publish(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(published)
}

func (h *APIHandlers) StartWorkshopSession(c fiber.Ctx) error {
	session, err := h.sessions.CreateSessionForWorkshop(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(session)
}

// Sessions

func (h *APIHandlers) GetSessions(c fiber.Ctx) error {
	sessions, err := h.sessions.List(c.Context())
	if err != nil {
		return handleServiceError(c, err)
	}

	summaries := make([]SessionSummary, 0, len(sessions))
	for _, session := range sessions {
		summaries = append(summaries, TransformSessionSummary(session))
	}

	return c.JSON(fiber.Map{
		"sessions":    summaries,
		"total_count": len(summaries),
	})
}

func (h *APIHandlers) CreateSession(c fiber.Ctx) error {
	var req CreateSessionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	var (
		session *models.Session
		err     error
	)

	if req.Workshop != nil {
		session, err = h.sessions.CreateSession(c.Context(), req.Workshop)
	} else {
		session, err = h.sessions.CreateSessionForWorkshop(c.Context(), req.WorkshopID)
	}

	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(session)
}

func (h *APIHandlers) GetSession(c fiber.Ctx) error {
	session, err := h.sessions.Get(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(session)
}

func (h *APIHandlers) DeleteSession(c fiber.Ctx) error {
	if err := h.sessions.Delete(c.Context(), c.Params("id")); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) GetSessionWorkshop(c fiber.Ctx) error {
	workshop, err := h.sessions.Workshop(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(workshop)
}

func (h *APIHandlers) GetScreen(c fiber.Ctx) error {
	screen, err := h.sessions.Screen(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(screen)
}

// runControl answers a run-control call. The service reports an absent
// session with a nil result, which becomes a 404 here.
func runControl(c fiber.Ctx, session *models.Session, err error) error {
	if err != nil {
		return handleServiceError(c, err)
	}

	if session == nil {
		return handleServiceError(c, services.ErrSessionNotFound)
	}

	return c.JSON(session)
}

func (h *APIHandlers) StartBlock(c fiber.Ctx) error {
	session, err := h.sessions.StartBlock(c.Context(), c.Params("id"), c.Params("blockId"))

	return runControl(c, session, err)
}

func (h *APIHandlers) TogglePause(c fiber.Ctx) error {
	session, err := h.sessions.TogglePause(c.Context(), c.Params("id"))

	return runControl(c, session, err)
}

func (h *APIHandlers) AddTime(c fiber.Ctx) error {
	var req AddTimeRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	session, err := h.sessions.AddTime(c.Context(), c.Params("id"), c.Params("blockId"), req.Delta, req.Limit)

	return runControl(c, session, err)
}

func (h *APIHandlers) NextBlock(c fiber.Ctx) error {
	session, err := h.sessions.NextBlock(c.Context(), c.Params("id"))

	return runControl(c, session, err)
}

func (h *APIHandlers) PreviousBlock(c fiber.Ctx) error {
	session, err := h.sessions.PreviousBlock(c.Context(), c.Params("id"))

	return runControl(c, session, err)
}

func (h *APIHandlers) CompleteSession(c fiber.Ctx) error {
	session, err := h.sessions.Complete(c.Context(), c.Params("id"))

	return runControl(c, session, err)
}

// WatchSession streams the session as server-sent events: one "snapshot"
// event per change, and a final "gone" event if the session disappears.
func (h *APIHandlers) WatchSession(c fiber.Ctx) error {
	id := c.Params("id")

	if _, err := h.sessions.Get(c.Context(), id); err != nil {
		return handleServiceError(c, err)
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")

	return c.SendStreamWriter(func(w *bufio.Writer) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		snapshots := make(chan *models.SessionSnapshot, 1)

		stop, err := h.watcher.Subscribe(ctx, id, func(ctx context.Context, snapshot *models.SessionSnapshot) {
			select {
			case snapshots <- snapshot:
			case <-ctx.Done():
			}
		})
		if err != nil {
			return
		}
		defer stop()

		for {
			var snapshot *models.SessionSnapshot

			select {
			case <-h.watcher.Done():
				return
			case snapshot = <-snapshots:
			}

			if snapshot == nil {
				_ = writeEvent(w, "gone", fiber.Map{"session_id": id})

				return
			}

			if err := writeEvent(w, "snapshot", snapshot); err != nil {
				return
			}
		}
	})
}

func writeEvent(w *bufio.Writer, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	if _, err := w.WriteString("event: " + event + "\ndata: "); err != nil {
		return err
	}

	if _, err := w.Write(data); err != nil {
		return err
	}

	if _, err := w.WriteString("\n\n"); err != nil {
		return err
	}

	return w.Flush()
}

// Participants

// Join attaches a participant. A code in the body takes precedence over
// the ?code= prefill.
func (h *APIHandlers) Join(c fiber.Ctx) error {
	var req JoinRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c, "Invalid JSON format")
		}
	}

	if req.Code == "" {
		req.Code = c.Query("code")
	}

	req.Code = joincode.Normalize(req.Code)

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	session, participant, err := h.sessions.Join(c.Context(), req.ToService())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(JoinResponse{
		SessionID:   session.ID,
		Title:       session.Title,
		Participant: participant,
	})
}

func (h *APIHandlers) UpdateParticipant(c fiber.Ctx) error {
	var req UpdateParticipantRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	participant, err := h.sessions.UpdateParticipant(c.Context(), c.Params("id"), c.Params("pid"), req.ToService())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(participant)
}

func (h *APIHandlers) RemoveParticipant(c fiber.Ctx) error {
	if _, err := h.sessions.RemoveParticipant(c.Context(), c.Params("id"), c.Params("pid")); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) GetResponses(c fiber.Ctx) error {
	responses, err := h.responses.Get(c.Context(), c.Params("id"), c.Params("pid"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(responses)
}

func (h *APIHandlers) SaveResponses(c fiber.Ctx) error {
	var responses models.ParticipantResponses
	if err := c.Bind().JSON(&responses); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	saved, err := h.responses.Save(c.Context(), c.Params("id"), c.Params("pid"), responses)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(saved)
}

// History

func (h *APIHandlers) GetHistory(c fiber.Ctx) error {
	records, err := h.history.List(c.Context())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"records":     records,
		"total_count": len(records),
	})
}

func (h *APIHandlers) GetSessionRecord(c fiber.Ctx) error {
	record, err := h.history.Get(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(record)
}

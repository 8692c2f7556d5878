package services

import (
	"context"
	"fmt"

	"github.com/dukex/facilitator/pkg/events"
	"github.com/dukex/facilitator/pkg/models"
	"github.com/dukex/facilitator/pkg/otelhelper"
	"github.com/dukex/facilitator/pkg/persistence"
	"go.opentelemetry.io/otel/attribute"
)

// EditorSource tells where the workshop opened in the editor came from.
type EditorSource string

const (
	EditorSourcePublished EditorSource = "published"
	EditorSourceDraft     EditorSource = "draft"
	EditorSourceBlank     EditorSource = "blank"
)

// EditorWorkshop is the workshop an editor should display.
type EditorWorkshop struct {
	Workshop *models.Workshop `json:"workshop"`
	Source   EditorSource     `json:"source"`
}

// Publishing handles drafts and their promotion into the library.
type Publishing struct {
	persistence persistence.Persistence
	options
}

// NewPublishing creates a new workshop publishing service.
func NewPublishing(persistence persistence.Persistence, opts ...Option) *Publishing {
	return &Publishing{
		persistence: persistence,
		options:     newOptions(opts),
	}
}

// Publish promotes the draft with the given id to an upcoming workshop and
// discards the draft.
func (p *Publishing) Publish(ctx context.Context, workshopID string) (*models.Workshop, error) {
	ctx, span := otelhelper.StartSpan(ctx, otelhelper.Tracer(), "workshop.publish",
		attribute.String(otelhelper.WorkshopIDKey, workshopID))
	defer span.End()

	draft, err := p.persistence.DraftRepository().GetByID(ctx, workshopID)
	if err != nil {
		return nil, fmt.Errorf("failed to get draft: %w", err)
	}

	if draft == nil {
		return nil, ErrDraftNotFound
	}

	draft.Status = models.WorkshopStatusUpcoming
	if err := prepareWorkshop("PublishWorkshop", draft); err != nil {
		return nil, err
	}

	if err := p.persistence.WorkshopRepository().Save(ctx, draft); err != nil {
		otelhelper.SetError(span, err)

		return nil, fmt.Errorf("failed to publish workshop: %w", err)
	}

	if err := p.persistence.DraftRepository().Delete(ctx, workshopID); err != nil {
		return nil, fmt.Errorf("failed to discard draft: %w", err)
	}

	p.logger.InfoContext(ctx, "Published workshop", "workshop_id", workshopID, "blocks", len(draft.Blocks))

	p.publish(ctx, workshopID, events.WorkshopPublished{
		BaseEvent:   events.NewBaseEvent(events.WorkshopPublishedEvent, "", workshopID),
		Title:       draft.DisplayTitle(),
		BlocksCount: len(draft.Blocks),
	})

	return draft, nil
}

// GetDraft returns the draft of a workshop.
func (p *Publishing) GetDraft(ctx context.Context, workshopID string) (*models.Workshop, error) {
	draft, err := p.persistence.DraftRepository().GetByID(ctx, workshopID)
	if err != nil {
		return nil, fmt.Errorf("failed to get draft: %w", err)
	}

	if draft == nil {
		return nil, ErrDraftNotFound
	}

	return draft, nil
}

// ListDrafts returns every draft held by this process.
func (p *Publishing) ListDrafts(ctx context.Context) ([]*models.Workshop, error) {
	drafts, err := p.persistence.DraftRepository().GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list drafts: %w", err)
	}

	return drafts, nil
}

// SaveDraft validates and stores a working copy.
func (p *Publishing) SaveDraft(ctx context.Context, draft *models.Workshop) (*models.Workshop, error) {
	if err := prepareWorkshop("SaveDraft", draft); err != nil {
		return nil, err
	}

	if err := p.persistence.DraftRepository().Save(ctx, draft); err != nil {
		return nil, fmt.Errorf("failed to save draft: %w", err)
	}

	return draft, nil
}

// DeleteDraft discards a working copy. Deleting an absent draft succeeds.
func (p *Publishing) DeleteDraft(ctx context.Context, workshopID string) error {
	if err := p.persistence.DraftRepository().Delete(ctx, workshopID); err != nil {
		return fmt.Errorf("failed to delete draft: %w", err)
	}

	return nil
}

// ResolveForEditing returns the published workshop when one exists, else the
// draft, else a blank draft that is not stored.
func (p *Publishing) ResolveForEditing(ctx context.Context, workshopID string) (*EditorWorkshop, error) {
	published, err := p.persistence.WorkshopRepository().GetByID(ctx, workshopID)
	if err != nil {
		return nil, fmt.Errorf("failed to get workshop: %w", err)
	}

	if published != nil {
		return &EditorWorkshop{Workshop: published, Source: EditorSourcePublished}, nil
	}

	draft, err := p.persistence.DraftRepository().GetByID(ctx, workshopID)
	if err != nil {
		return nil, fmt.Errorf("failed to get draft: %w", err)
	}

	if draft != nil {
		return &EditorWorkshop{Workshop: draft, Source: EditorSourceDraft}, nil
	}

	if workshopID == "" {
		workshopID = newID()
	}

	return &EditorWorkshop{
		Workshop: models.NewBlankWorkshop(workshopID, p.now().UTC()),
		Source:   EditorSourceBlank,
	}, nil
}

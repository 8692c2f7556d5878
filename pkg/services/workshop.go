package services

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/dukex/facilitator/pkg/events"
	"github.com/dukex/facilitator/pkg/models"
	"github.com/dukex/facilitator/pkg/otelhelper"
	"github.com/dukex/facilitator/pkg/persistence"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel/attribute"
)

// StatusAll lists workshops regardless of status.
const StatusAll = "all"

var validate = validator.New(validator.WithRequiredStructEnabled())

// Workshop manages the library of published workshops.
type Workshop struct {
	persistence persistence.Persistence
	options
}

// NewWorkshop creates a new workshop library service.
func NewWorkshop(persistence persistence.Persistence, opts ...Option) *Workshop {
	return &Workshop{
		persistence: persistence,
		options:     newOptions(opts),
	}
}

// HealthCheck checks the health of the persistence layer.
func (w *Workshop) HealthCheck(ctx context.Context) (string, bool) {
	if w.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := w.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// ListWorkshopsRequest contains options for listing workshops.
type ListWorkshopsRequest struct {
	Status string `validate:"omitempty,oneof=all draft upcoming completed"`
	Query  string // Case-insensitive title search
}

// List returns the workshops matching the request, most recently updated first.
func (w *Workshop) List(ctx context.Context, req ListWorkshopsRequest) ([]*models.Workshop, error) {
	if err := validate.Struct(req); err != nil {
		return nil, NewValidationError("ListWorkshops", "invalid_status", "status must be one of all, draft, upcoming, completed", ErrInvalidStatus)
	}

	all, err := w.persistence.WorkshopRepository().GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list workshops: %w", err)
	}

	query := strings.ToLower(strings.TrimSpace(req.Query))
	result := make([]*models.Workshop, 0, len(all))

	for _, workshop := range all {
		if req.Status != "" && req.Status != StatusAll && string(workshop.Status) != req.Status {
			continue
		}

		if query != "" && !strings.Contains(strings.ToLower(workshop.Title), query) {
			continue
		}

		result = append(result, workshop)
	}

	slices.SortStableFunc(result, func(a, b *models.Workshop) int {
		return b.UpdatedAt.Compare(a.UpdatedAt)
	})

	return result, nil
}

// Get returns a published workshop.
func (w *Workshop) Get(ctx context.Context, id string) (*models.Workshop, error) {
	workshop, err := w.persistence.WorkshopRepository().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get workshop: %w", err)
	}

	if workshop == nil {
		return nil, ErrWorkshopNotFound
	}

	return workshop, nil
}

// Save validates and upserts a workshop into the library.
func (w *Workshop) Save(ctx context.Context, workshop *models.Workshop) (*models.Workshop, error) {
	ctx, span := otelhelper.StartSpan(ctx, otelhelper.Tracer(), "workshop.save")
	defer span.End()

	if err := prepareWorkshop("SaveWorkshop", workshop); err != nil {
		otelhelper.SetErrorKind(span, err, "validation")

		return nil, err
	}

	span.SetAttributes(attribute.String(otelhelper.WorkshopIDKey, workshop.ID))

	if err := w.persistence.WorkshopRepository().Save(ctx, workshop); err != nil {
		otelhelper.SetError(span, err)

		return nil, fmt.Errorf("failed to save workshop: %w", err)
	}

	return workshop, nil
}

// Delete removes a workshop and any draft of it. Deleting an absent
// workshop succeeds.
func (w *Workshop) Delete(ctx context.Context, id string) error {
	if err := w.persistence.WorkshopRepository().Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete workshop: %w", err)
	}

	if err := w.persistence.DraftRepository().Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete draft: %w", err)
	}

	w.publish(ctx, id, events.WorkshopDeleted{
		BaseEvent: events.NewBaseEvent(events.WorkshopDeletedEvent, "", id),
	})

	return nil
}

// prepareWorkshop fills defaults and validates a workshop before it is stored.
func prepareWorkshop(op string, workshop *models.Workshop) error {
	if workshop == nil {
		return NewValidationError(op, "workshop_nil", "", ErrWorkshopNil)
	}

	workshop.ID = strings.TrimSpace(workshop.ID)
	if workshop.ID == "" {
		workshop.ID = newID()
	}

	workshop.Status = cmp.Or(workshop.Status, models.WorkshopStatusDraft)

	if workshop.Blocks == nil {
		workshop.Blocks = []models.Block{}
	}

	if err := workshop.Validate(); err != nil {
		return NewValidationError(op, "invalid_workshop", err.Error(), ErrInvalidWorkshop)
	}

	return nil
}

// Package seed loads workshops from a seed file into an empty library.
//
// Seeding is an explicit bootstrap step. Read paths never fall back to
// seed data.
package seed

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/dukex/facilitator/pkg/models"
	"github.com/dukex/facilitator/pkg/services"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

//go:embed schema.json
var schema []byte

var ErrInvalidSeed = errors.New("invalid seed file")

// File is the decoded seed document.
type File struct {
	Workshops []*models.Workshop `json:"workshops"`
}

// Library is the part of the workshop service seeding writes through.
type Library interface {
	List(ctx context.Context, req services.ListWorkshopsRequest) ([]*models.Workshop, error)
	Save(ctx context.Context, workshop *models.Workshop) (*models.Workshop, error)
}

// Result reports what a seeding run did.
type Result struct {
	Loaded  int
	Saved   int
	Skipped bool
}

// Load reads and validates the seed file at path. YAML and JSON are both
// accepted.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file %s: %w", path, err)
	}

	return Parse(data)
}

// Parse decodes a YAML or JSON seed document and validates it against the
// embedded schema.
func Parse(data []byte) (*File, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSeed, err)
	}

	raw = normalize(raw)

	result, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(schema), gojsonschema.NewGoLoader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSeed, err)
	}

	if !result.Valid() {
		var problems []string
		for _, desc := range result.Errors() {
			problems = append(problems, desc.String())
		}

		return nil, fmt.Errorf("%w: %s", ErrInvalidSeed, strings.Join(problems, "; "))
	}

	encoded, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSeed, err)
	}

	var file File
	if err := json.Unmarshal(encoded, &file); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSeed, err)
	}

	return &file, nil
}

// normalize turns YAML-only values into their JSON equivalents: unquoted
// dates become YYYY-MM-DD strings.
func normalize(value any) any {
	switch v := value.(type) {
	case map[string]any:
		for key, item := range v {
			v[key] = normalize(item)
		}

		return v
	case []any:
		for i, item := range v {
			v[i] = normalize(item)
		}

		return v
	case time.Time:
		return v.Format(time.DateOnly)
	default:
		return v
	}
}

// Seeder applies a seed file to a workshop library.
type Seeder struct {
	library Library
	logger  *slog.Logger
}

func NewSeeder(library Library, logger *slog.Logger) *Seeder {
	return &Seeder{library: library, logger: logger.With("module", "seed")}
}

// Apply saves the file's workshops when the library is empty. With force
// the workshops are saved regardless, replacing same-id entries.
func (s *Seeder) Apply(ctx context.Context, file *File, force bool) (*Result, error) {
	result := &Result{Loaded: len(file.Workshops)}

	if !force {
		existing, err := s.library.List(ctx, services.ListWorkshopsRequest{})
		if err != nil {
			return nil, fmt.Errorf("failed to list workshops: %w", err)
		}

		if len(existing) > 0 {
			s.logger.InfoContext(ctx, "Library is not empty, skipping seed", "workshops", len(existing))
			result.Skipped = true

			return result, nil
		}
	}

	for _, workshop := range file.Workshops {
		if workshop.Status == "" {
			workshop.Status = models.WorkshopStatusUpcoming
		}

		saved, err := s.library.Save(ctx, workshop)
		if err != nil {
			return result, fmt.Errorf("failed to seed workshop %q: %w", workshop.DisplayTitle(), err)
		}

		result.Saved++

		s.logger.DebugContext(ctx, "Seeded workshop", "workshop_id", saved.ID, "title", saved.DisplayTitle())
	}

	s.logger.InfoContext(ctx, "Seed applied", "saved", result.Saved, "forced", force)

	return result, nil
}

// ApplyFile loads path and applies it.
func (s *Seeder) ApplyFile(ctx context.Context, path string, force bool) (*Result, error) {
	file, err := Load(path)
	if err != nil {
		return nil, err
	}

	return s.Apply(ctx, file, force)
}

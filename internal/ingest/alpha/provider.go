// Package alpha imports Alpha Progression CSV exports as workouts.
package alpha

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/claude/liftscore/internal/catalog"
	"github.com/claude/liftscore/internal/ingest"
	"github.com/claude/liftscore/internal/models"
	"github.com/google/uuid"
)

// Importer stores validated workouts for a user.
type Importer interface {
	Import(ctx context.Context, userID uuid.UUID, inputs []models.WorkoutInput) (int, error)
}

// Provider processes Alpha Progression CSV exports.
type Provider struct {
	importer Importer
	catalog  *catalog.Catalog
	loc      *time.Location
	log      *slog.Logger
}

// NewProvider creates a new Alpha Progression ingest provider.
func NewProvider(importer Importer, cat *catalog.Catalog, loc *time.Location, log *slog.Logger) *Provider {
	return &Provider{importer: importer, catalog: cat, loc: loc, log: log}
}

// Ingest parses a CSV export and stores one workout per session.
func (p *Provider) Ingest(ctx context.Context, r io.Reader, userID uuid.UUID) (*ingest.Result, error) {
	sessions, err := Parse(r, p.loc)
	if err != nil {
		return nil, fmt.Errorf("parsing CSV: %w", err)
	}

	inputs, result := Convert(sessions, p.catalog)
	if len(result.RejectedNames) > 0 {
		p.log.Warn("alpha import skipped unknown exercises",
			"user_id", userID, "names", result.RejectedNames)
	}
	if len(inputs) == 0 {
		result.Message = "no importable workouts found"
		return result, nil
	}

	n, err := p.importer.Import(ctx, userID, inputs)
	result.WorkoutsInserted = n
	if err != nil {
		return result, fmt.Errorf("importing workouts: %w", err)
	}
	return result, nil
}

// Preview parses and converts r without storing anything.
func (p *Provider) Preview(r io.Reader) (*ingest.Result, error) {
	sessions, err := Parse(r, p.loc)
	if err != nil {
		return nil, fmt.Errorf("parsing CSV: %w", err)
	}
	inputs, result := Convert(sessions, p.catalog)
	result.Message = fmt.Sprintf("dry run: %d workouts would be imported", len(inputs))
	return result, nil
}

// Convert maps parsed sessions to workout inputs. Warm-up sets are dropped and
// exercises the catalog cannot resolve are skipped and reported by name.
// Sessions left without exercises are omitted.
func Convert(sessions []Session, cat *catalog.Catalog) ([]models.WorkoutInput, *ingest.Result) {
	result := &ingest.Result{SessionsReceived: len(sessions)}
	rejected := map[string]bool{}

	var inputs []models.WorkoutInput
	for _, s := range sessions {
		in := models.WorkoutInput{Date: models.Date{Time: s.Date}, DurationMin: s.DurationMin}
		for _, ex := range s.Exercises {
			entry, ok := cat.Lookup(ex.Name)
			if !ok {
				rejected[ex.Name] = true
				result.ExercisesSkipped++
				continue
			}
			var sets []models.Set
			for _, set := range ex.Sets {
				result.SetsReceived++
				if set.Warmup {
					result.WarmupsSkipped++
					continue
				}
				sets = append(sets, models.Set{WeightKg: set.WeightKg, Reps: set.Reps})
			}
			if len(sets) == 0 {
				continue
			}
			in.Exercises = append(in.Exercises, models.ExerciseEntry{Name: entry.ID, Sets: sets})
		}
		if len(in.Exercises) > 0 {
			inputs = append(inputs, in)
		}
	}

	for name := range rejected {
		result.RejectedNames = append(result.RejectedNames, name)
	}
	sort.Strings(result.RejectedNames)
	return inputs, result
}

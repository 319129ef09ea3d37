// Package catalog holds the static exercise catalog that workouts reference.
package catalog

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed exercises.yaml
var exercisesYAML []byte

// Exercise is one catalog entry.
type Exercise struct {
	ID          string   `yaml:"id" json:"id"`
	Name        string   `yaml:"name" json:"name"`
	MuscleGroup string   `yaml:"muscle_group" json:"muscleGroup"`
	Aliases     []string `yaml:"aliases" json:"aliases,omitempty"`
}

// Catalog resolves exercise names to catalog entries.
type Catalog struct {
	exercises []Exercise
	index     map[string]int
}

// Default returns the embedded catalog. It panics if the embedded file is invalid.
func Default() *Catalog {
	c, err := Parse(exercisesYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded exercise catalog: %v", err))
	}
	return c
}

// Parse builds a Catalog from a YAML list of exercises. Ids, names and aliases
// must be unique after normalisation.
func Parse(data []byte) (*Catalog, error) {
	var exercises []Exercise
	if err := yaml.Unmarshal(data, &exercises); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}

	c := &Catalog{exercises: exercises, index: make(map[string]int)}
	for i, ex := range exercises {
		if ex.ID == "" {
			return nil, fmt.Errorf("catalog entry %d: id is required", i)
		}
		keys := append([]string{ex.ID, ex.Name}, ex.Aliases...)
		for _, k := range keys {
			nk := normalize(k)
			if nk == "" {
				continue
			}
			if j, dup := c.index[nk]; dup && j != i {
				return nil, fmt.Errorf("catalog key %q used by %s and %s", k, exercises[j].ID, ex.ID)
			}
			c.index[nk] = i
		}
	}
	return c, nil
}

// Lookup resolves an id, name or alias, ignoring case, whitespace, underscores and hyphens.
func (c *Catalog) Lookup(name string) (Exercise, bool) {
	i, ok := c.index[normalize(name)]
	if !ok {
		return Exercise{}, false
	}
	return c.exercises[i], true
}

// All returns the catalog entries in file order.
func (c *Catalog) All() []Exercise {
	return append([]Exercise(nil), c.exercises...)
}

func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer("_", " ", "-", " ").Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

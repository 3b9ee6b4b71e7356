// pkg/registry/registry.go
package registry

import (
	"encoding/json"
	"fmt"
	"os"

	"listing-matcher/internal/models"
)

// LabelRegistry maps tagger labels to categories. It is immutable once built.
type LabelRegistry struct {
	byLabel map[string]models.Category
	labels  []string
}

// New builds a registry from a vocabulary. A label may belong to one set only.
func New(v Vocabulary) (*LabelRegistry, error) {
	r := &LabelRegistry{byLabel: make(map[string]models.Category)}
	sets := []struct {
		cat    models.Category
		labels []string
	}{
		{models.CategoryHouse, v.House},
		{models.CategoryLogo, v.Logo},
		{models.CategoryPerson, v.Person},
	}
	for _, s := range sets {
		for _, label := range s.labels {
			if label == "" {
				return nil, fmt.Errorf("empty label in %s set", s.cat)
			}
			if prev, ok := r.byLabel[label]; ok {
				return nil, fmt.Errorf("label %q listed in both %s and %s sets", label, prev, s.cat)
			}
			r.byLabel[label] = s.cat
			r.labels = append(r.labels, label)
		}
	}
	if len(r.labels) == 0 {
		return nil, fmt.Errorf("vocabulary has no labels")
	}
	return r, nil
}

// Default returns the registry for DefaultVocabulary.
func Default() *LabelRegistry {
	r, err := New(DefaultVocabulary())
	if err != nil {
		panic(err)
	}
	return r
}

// LoadRegistry reads a JSON vocabulary file.
func LoadRegistry(path string) (*LabelRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var v Vocabulary
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("parse vocabulary %s: %w", path, err)
	}
	return New(v)
}

// Category returns the bucket for a label; labels outside every set are CategoryOther.
func (r *LabelRegistry) Category(label string) models.Category {
	if c, ok := r.byLabel[label]; ok {
		return c
	}
	return models.CategoryOther
}

// Labels returns all known labels in declaration order.
func (r *LabelRegistry) Labels() []string {
	out := make([]string, len(r.labels))
	copy(out, r.labels)
	return out
}

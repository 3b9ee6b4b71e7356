// internal/common/catalog/store.go
package catalog

import (
	"context"
	"sync"

	"listing-matcher/internal/models"
)

// Store supplies an ordered snapshot of the template catalog. Callers own the
// returned slice; later writes to the store never show through it.
type Store interface {
	ListTemplates(ctx context.Context) ([]models.Template, error)
}

// Writer persists templates, replacing any with the same id.
type Writer interface {
	UpsertTemplates(ctx context.Context, templates []models.Template) error
}

// ReadWriter is a store that accepts uploads.
type ReadWriter interface {
	Store
	Writer
}

// Clone deep-copies a snapshot.
func Clone(in []models.Template) []models.Template {
	if in == nil {
		return nil
	}
	out := make([]models.Template, len(in))
	for i, t := range in {
		out[i] = cloneTemplate(t)
	}
	return out
}

func cloneTemplate(t models.Template) models.Template {
	c := t
	c.PropertyImages = append([]string(nil), t.PropertyImages...)
	c.Logos = append([]string(nil), t.Logos...)
	if t.TextFields != nil {
		c.TextFields = make(map[string]models.TextField, len(t.TextFields))
		for k, v := range t.TextFields {
			c.TextFields[k] = v
		}
	}
	return c
}

// MemoryStore keeps templates in insertion order. Upserting an existing id keeps its position.
type MemoryStore struct {
	mu        sync.RWMutex
	templates []models.Template
}

func NewMemoryStore(templates ...models.Template) *MemoryStore {
	return &MemoryStore{templates: Clone(templates)}
}

func (m *MemoryStore) ListTemplates(ctx context.Context) ([]models.Template, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Clone(m.templates), nil
}

func (m *MemoryStore) UpsertTemplates(ctx context.Context, templates []models.Template) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, t := range templates {
		replaced := false
		for i := range m.templates {
			if m.templates[i].ID == t.ID {
				m.templates[i] = cloneTemplate(t)
				replaced = true
				break
			}
		}
		if !replaced {
			m.templates = append(m.templates, cloneTemplate(t))
		}
	}
	return nil
}

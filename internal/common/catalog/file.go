// internal/common/catalog/file.go
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"listing-matcher/internal/common/errors"
	"listing-matcher/internal/models"
)

// FileStore serves a catalog file (JSON array or YAML list). The file is re-read per snapshot.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (f *FileStore) ListTemplates(ctx context.Context) ([]models.Template, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, errors.NewStoreUnavailableError(err)
	}
	templates, err := DecodeTemplates(f.path, data)
	if err != nil {
		return nil, errors.NewStoreUnavailableError(err)
	}
	return templates, nil
}

// DecodeTemplates parses a catalog document, choosing YAML or JSON by file extension.
func DecodeTemplates(name string, data []byte) ([]models.Template, error) {
	var templates []models.Template
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &templates); err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
	default:
		if err := json.Unmarshal(data, &templates); err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
	}
	return templates, nil
}

// DecodeDocuments parses a catalog into generic documents for schema validation.
func DecodeDocuments(name string, data []byte) ([]map[string]interface{}, error) {
	var docs []map[string]interface{}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &docs); err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
	default:
		if err := json.Unmarshal(data, &docs); err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
	}
	return docs, nil
}

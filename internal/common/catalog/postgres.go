// internal/common/catalog/postgres.go
package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"listing-matcher/internal/common/errors"
	"listing-matcher/internal/models"
)

const (
	listTemplatesQuery = `
		SELECT id, data
		FROM templates
		ORDER BY seq`

	upsertTemplateQuery = `
		INSERT INTO templates (id, name, data, img_count, text_count)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			name       = EXCLUDED.name,
			data       = EXCLUDED.data,
			img_count  = EXCLUDED.img_count,
			text_count = EXCLUDED.text_count,
			updated_at = NOW()`
)

// PostgresStore reads and writes the templates table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) ListTemplates(ctx context.Context) ([]models.Template, error) {
	rows, err := s.db.QueryContext(ctx, listTemplatesQuery)
	if err != nil {
		return nil, errors.NewStoreUnavailableError(fmt.Errorf("query templates: %w", err))
	}
	defer rows.Close()

	var out []models.Template
	for rows.Next() {
		var (
			id   string
			data []byte
		)
		if err := rows.Scan(&id, &data); err != nil {
			return nil, errors.NewStoreUnavailableError(fmt.Errorf("scan template row: %w", err))
		}

		var t models.Template
		if err := json.Unmarshal(data, &t); err != nil {
			return nil, errors.NewStoreUnavailableError(fmt.Errorf("decode template %s: %w", id, err))
		}
		t.ID = id
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStoreUnavailableError(fmt.Errorf("iterate templates: %w", err))
	}
	return out, nil
}

// UpsertTemplates writes all templates in one transaction.
func (s *PostgresStore) UpsertTemplates(ctx context.Context, templates []models.Template) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewStoreUnavailableError(fmt.Errorf("begin transaction: %w", err))
	}
	defer func() { _ = tx.Rollback() }()

	for _, t := range templates {
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Errorf("encode template %s: %w", t.ID, err)
		}
		if _, err := tx.ExecContext(ctx, upsertTemplateQuery, t.ID, t.Name, data, t.ImageCount(), t.TextCount()); err != nil {
			return errors.NewStoreUnavailableError(fmt.Errorf("upsert template %s: %w", t.ID, err))
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.NewStoreUnavailableError(fmt.Errorf("commit: %w", err))
	}
	return nil
}

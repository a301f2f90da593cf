package db

import (
	"context"
	"database/sql"

	"github.com/hpungsan/kiln/internal/component"
	"github.com/hpungsan/kiln/internal/errors"
)

// SQLRegistry reads and writes discovery-registry rows in the registry table.
type SQLRegistry struct {
	DB *sql.DB
}

// NewSQLRegistry returns a registry backed by db.
func NewSQLRegistry(db *sql.DB) *SQLRegistry {
	return &SQLRegistry{DB: db}
}

const registryColumns = `
	id, slug, capability_type, name, description, category, tags_json,
	content_url, docs_url, example_usage, version, created_at, updated_at`

// Find returns the entry for (slug, capabilityType), or a NOT_FOUND error.
func (r *SQLRegistry) Find(ctx context.Context, slug, capabilityType string) (*component.RegistryEntry, error) {
	row := r.DB.QueryRowContext(ctx,
		`SELECT `+registryColumns+` FROM registry WHERE slug = ? AND capability_type = ?`,
		slug, capabilityType,
	)

	var (
		e        component.RegistryEntry
		tagsJSON sql.NullString
	)
	err := row.Scan(&e.ID, &e.Slug, &e.CapabilityType, &e.Name, &e.Description, &e.Category,
		&tagsJSON, &e.ContentURL, &e.DocsURL, &e.ExampleUsage, &e.Version, &e.CreatedAt, &e.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("registry entry", slug)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	if e.Tags, err = unmarshalTags(tagsJSON); err != nil {
		return nil, errors.NewInternal(err)
	}
	return &e, nil
}

// Insert creates a new registry row. CreatedAt/UpdatedAt default to now.
func (r *SQLRegistry) Insert(ctx context.Context, e *component.RegistryEntry) error {
	tagsJSON, err := marshalTags(e.Tags)
	if err != nil {
		return errors.NewInternal(err)
	}
	ts := now()
	if e.CreatedAt == 0 {
		e.CreatedAt = ts
	}
	e.UpdatedAt = ts

	_, err = r.DB.ExecContext(ctx, `INSERT INTO registry (`+registryColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Slug, e.CapabilityType, e.Name, e.Description, e.Category, tagsJSON,
		e.ContentURL, e.DocsURL, e.ExampleUsage, e.Version, e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrUniqueConstraint
		}
		return errors.NewInternal(err)
	}
	return nil
}

// Update rewrites the mutable columns of an existing row, matched by ID.
func (r *SQLRegistry) Update(ctx context.Context, e *component.RegistryEntry) error {
	tagsJSON, err := marshalTags(e.Tags)
	if err != nil {
		return errors.NewInternal(err)
	}
	e.UpdatedAt = now()

	result, err := r.DB.ExecContext(ctx, `
		UPDATE registry
		SET name = ?, description = ?, category = ?, tags_json = ?,
			content_url = ?, docs_url = ?, example_usage = ?, version = ?, updated_at = ?
		WHERE id = ?`,
		e.Name, e.Description, e.Category, tagsJSON,
		e.ContentURL, e.DocsURL, e.ExampleUsage, e.Version, e.UpdatedAt,
		e.ID,
	)
	if err != nil {
		return errors.NewInternal(err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return errors.NewInternal(err)
	}
	if n == 0 {
		return errors.NewNotFound("registry entry", e.Slug)
	}
	return nil
}

package db

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"strings"
	"time"

	"github.com/hpungsan/kiln/internal/component"
	"github.com/hpungsan/kiln/internal/errors"
)

// ErrUniqueConstraint is returned when an insert violates a UNIQUE constraint.
var ErrUniqueConstraint = &errors.KilnError{
	Code:    "UNIQUE_CONSTRAINT",
	Status:  409,
	Message: "unique constraint violation",
}

// ErrStalePointer is returned by CommitVersion when current_version no longer
// equals the version the caller read.
var ErrStalePointer = &errors.KilnError{
	Code:    "STALE_POINTER",
	Status:  409,
	Message: "current_version changed since it was read",
}

// ListFilter narrows ListComponents.
type ListFilter struct {
	Category string
	Status   string
	Limit    int
	Offset   int
}

const componentColumns = `
	id, name, slug, description, category, tags_json,
	alias_path, current_version, status, created_at, updated_at`

const versionColumns = `
	component_id, version_number, blob_path, change_description, changed_by,
	generator_model, generator_prompt, content_hash, created_at`

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// InsertComponent stores a new component together with its version-1 row in
// one transaction.
func InsertComponent(ctx context.Context, db *sql.DB, c *component.Component, v *component.Version) error {
	tagsJSON, err := marshalTags(c.Tags)
	if err != nil {
		return errors.NewInternal(err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewInternal(err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO components (`+componentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.Slug, c.Description, c.Category, tagsJSON,
		c.AliasPath, c.CurrentVersion, c.Status, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrUniqueConstraint
		}
		return errors.NewInternal(err)
	}

	if err := insertVersion(ctx, tx, v); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// CommitVersion appends v and advances the component's current_version from
// expected to v.VersionNumber in one transaction. The pointer update is a
// compare-and-swap: if current_version != expected, nothing is written and
// ErrStalePointer is returned. A duplicate version row returns ErrUniqueConstraint.
func CommitVersion(ctx context.Context, db *sql.DB, v *component.Version, expected int) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewInternal(err)
	}
	defer tx.Rollback()

	// Write first so the transaction takes the write lock before reading anything.
	result, err := tx.ExecContext(ctx, `
		UPDATE components
		SET current_version = ?, updated_at = ?
		WHERE id = ? AND current_version = ?`,
		v.VersionNumber, v.CreatedAt, v.ComponentID, expected,
	)
	if err != nil {
		return errors.NewInternal(err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewInternal(err)
	}
	if rowsAffected == 0 {
		return ErrStalePointer
	}

	if err := insertVersion(ctx, tx, v); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

func insertVersion(ctx context.Context, tx *sql.Tx, v *component.Version) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO versions (`+versionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		v.ComponentID, v.VersionNumber, v.BlobPath, v.ChangeDescription, v.ChangedBy,
		toNullString(v.GeneratorModel), toNullString(v.GeneratorPrompt), v.ContentHash, v.CreatedAt,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrUniqueConstraint
		}
		return errors.NewInternal(err)
	}
	return nil
}

// isUniqueConstraintError checks if the error is a SQLite UNIQUE constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	// SQLite returns "UNIQUE constraint failed: ..." for unique violations
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// GetComponentByName retrieves a component by its normalized name.
func GetComponentByName(ctx context.Context, db *sql.DB, name string) (*component.Component, error) {
	row := db.QueryRowContext(ctx, `SELECT `+componentColumns+` FROM components WHERE name = ?`, name)
	c, err := scanComponent(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("component", name)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return c, nil
}

// ListComponents returns components ordered by most recently updated, plus
// the total matching count.
func ListComponents(ctx context.Context, db *sql.DB, f ListFilter) ([]component.Component, int, error) {
	where := []string{"1=1"}
	args := []any{}
	if f.Category != "" {
		where = append(where, "category = ?")
		args = append(args, f.Category)
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, f.Status)
	}
	whereSQL := strings.Join(where, " AND ")

	var total int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM components WHERE `+whereSQL, args...).Scan(&total); err != nil {
		return nil, 0, errors.NewInternal(err)
	}

	query := `SELECT ` + componentColumns + ` FROM components WHERE ` + whereSQL +
		` ORDER BY updated_at DESC, name ASC LIMIT ? OFFSET ?`
	rows, err := db.QueryContext(ctx, query, append(args, f.Limit, f.Offset)...)
	if err != nil {
		return nil, 0, errors.NewInternal(err)
	}
	defer rows.Close()

	items, err := scanComponents(rows)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// ListActiveComponents returns every component with status active, by name.
func ListActiveComponents(ctx context.Context, db *sql.DB) ([]component.Component, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+componentColumns+` FROM components WHERE status = ? ORDER BY name ASC`,
		component.StatusActive,
	)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()
	return scanComponents(rows)
}

// GetVersion retrieves version n of component c.
func GetVersion(ctx context.Context, db *sql.DB, c *component.Component, n int) (*component.Version, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+versionColumns+` FROM versions WHERE component_id = ? AND version_number = ?`,
		c.ID, n,
	)
	v, err := scanVersion(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewVersionNotFound(c.Name, n)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return v, nil
}

// ListVersions returns all versions of a component, newest first.
func ListVersions(ctx context.Context, db *sql.DB, componentID string) ([]component.Version, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+versionColumns+` FROM versions WHERE component_id = ? ORDER BY version_number DESC`,
		componentID,
	)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	var versions []component.Version
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		versions = append(versions, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return versions, nil
}

// InsertTranscript stores an advisory edit transcript.
func InsertTranscript(ctx context.Context, db *sql.DB, t *component.Transcript) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO edit_transcripts (
			id, component_id, target_version, user_request,
			changes_summary, generator_model, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.ComponentID, t.TargetVersion, t.UserRequest,
		t.ChangesSummary, t.GeneratorModel, t.CreatedAt,
	)
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// ListTranscripts returns the most recent transcripts for a component.
func ListTranscripts(ctx context.Context, db *sql.DB, componentID string, limit int) ([]component.Transcript, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, component_id, target_version, user_request,
			changes_summary, generator_model, created_at
		FROM edit_transcripts
		WHERE component_id = ?
		ORDER BY created_at DESC, target_version DESC
		LIMIT ?`,
		componentID, limit,
	)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	var out []component.Transcript
	for rows.Next() {
		var t component.Transcript
		if err := rows.Scan(&t.ID, &t.ComponentID, &t.TargetVersion, &t.UserRequest,
			&t.ChangesSummary, &t.GeneratorModel, &t.CreatedAt); err != nil {
			return nil, errors.NewInternal(err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return out, nil
}

func scanComponents(rows *sql.Rows) ([]component.Component, error) {
	var items []component.Component
	for rows.Next() {
		c, err := scanComponent(rows)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		items = append(items, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return items, nil
}

// scanComponent scans a single row into a Component struct.
func scanComponent(row rowScanner) (*component.Component, error) {
	var (
		c        component.Component
		tagsJSON sql.NullString
	)

	err := row.Scan(
		&c.ID, &c.Name, &c.Slug, &c.Description, &c.Category, &tagsJSON,
		&c.AliasPath, &c.CurrentVersion, &c.Status, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if c.Tags, err = unmarshalTags(tagsJSON); err != nil {
		return nil, err
	}
	return &c, nil
}

func scanVersion(row rowScanner) (*component.Version, error) {
	var (
		v      component.Version
		model  sql.NullString
		prompt sql.NullString
	)
	err := row.Scan(
		&v.ComponentID, &v.VersionNumber, &v.BlobPath, &v.ChangeDescription, &v.ChangedBy,
		&model, &prompt, &v.ContentHash, &v.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	v.GeneratorModel = model.String
	v.GeneratorPrompt = prompt.String
	return &v, nil
}

func marshalTags(tags []string) (sql.NullString, error) {
	if len(tags) == 0 {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(tags)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func unmarshalTags(ns sql.NullString) ([]string, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	var tags []string
	if err := json.Unmarshal([]byte(ns.String), &tags); err != nil {
		return nil, err
	}
	return tags, nil
}

// toNullString maps "" to NULL.
func toNullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// IsStalePointer reports whether err is ErrStalePointer.
func IsStalePointer(err error) bool {
	return stderrors.Is(err, ErrStalePointer)
}

// now is the clock used for registry timestamps; tests may replace it.
var now = func() int64 { return time.Now().Unix() }

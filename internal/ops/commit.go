package ops

import (
	"context"
	stderrors "errors"
	"log/slog"
	"strconv"

	"github.com/hpungsan/kiln/internal/blob"
	"github.com/hpungsan/kiln/internal/component"
	"github.com/hpungsan/kiln/internal/db"
	"github.com/hpungsan/kiln/internal/errors"
	"github.com/hpungsan/kiln/internal/metrics"
)

// commitMeta describes the version being committed.
type commitMeta struct {
	op          string // metrics label: edit, restore
	description string
	changedBy   string
	model       string
	prompt      string
}

// commitVersion appends version c.CurrentVersion+1 holding code.
//
// Order: immutable blob, alias blob, then one SQL transaction that inserts
// the version row and advances current_version with a compare-and-swap. A
// crash before the transaction leaves the pointer on the previous, intact
// version. Losing the compare-and-swap returns CONFLICT after pointing the
// alias back at whatever the winner committed.
func commitVersion(ctx context.Context, e *Env, c *component.Component, code []byte, m commitMeta) (*component.Version, error) {
	expected := c.CurrentVersion
	next := expected + 1
	ts := e.now()
	key := component.VersionKey(c.Name, next, ts.UnixNano())
	blobMeta := map[string]string{"component": c.Name, "version": strconv.Itoa(next)}

	if err := e.Blobs.Put(ctx, key, code, component.ContentTypeJS, blobMeta); err != nil {
		e.Metrics.ObserveCommit(m.op, metrics.OutcomeError)
		return nil, errors.NewStorageFailure(err, map[string]any{
			"stage":   "version_blob",
			"partial": false,
		})
	}

	if err := e.Blobs.Put(ctx, c.AliasPath, code, component.ContentTypeJS, blobMeta); err != nil {
		e.Metrics.ObserveCommit(m.op, metrics.OutcomeError)
		return nil, errors.NewStorageFailure(err, map[string]any{
			"stage":       "alias_blob",
			"partial":     true,
			"orphan_blob": key,
			"alias_ahead": false,
		})
	}

	v := &component.Version{
		ComponentID:       c.ID,
		VersionNumber:     next,
		BlobPath:          key,
		ChangeDescription: m.description,
		ChangedBy:         m.changedBy,
		GeneratorModel:    m.model,
		GeneratorPrompt:   m.prompt,
		ContentHash:       component.ContentHash(code),
		CreatedAt:         ts.Unix(),
	}

	err := db.CommitVersion(ctx, e.DB, v, expected)
	if err == nil {
		c.CurrentVersion = next
		c.UpdatedAt = v.CreatedAt
		e.Metrics.ObserveCommit(m.op, metrics.OutcomeSuccess)
		return v, nil
	}

	repairErr := realignAlias(ctx, e, c.Name)
	if repairErr != nil {
		e.logger().Error("alias realignment failed",
			slog.String("component", c.Name),
			slog.String("error", repairErr.Error()))
	}

	if db.IsStalePointer(err) || stderrors.Is(err, db.ErrUniqueConstraint) {
		e.Metrics.ObserveConflict(m.op)
		e.Metrics.ObserveCommit(m.op, metrics.OutcomeError)
		conflict := errors.NewConflict(c.Name, expected)
		conflict.Details["orphan_blob"] = key
		conflict.Details["alias_repaired"] = repairErr == nil
		return nil, conflict
	}

	e.Metrics.ObserveCommit(m.op, metrics.OutcomeError)
	e.logger().Error("metadata commit failed after blob writes",
		slog.String("component", c.Name),
		slog.Int("version", next),
		slog.String("orphan_blob", key),
		slog.String("error", err.Error()))
	return nil, errors.NewStorageFailure(err, map[string]any{
		"stage":          "metadata",
		"partial":        true,
		"orphan_blob":    key,
		"alias_ahead":    repairErr != nil,
		"alias_repaired": repairErr == nil,
	})
}

// realignAlias rewrites the alias blob from the blob of the committed
// current version.
func realignAlias(ctx context.Context, e *Env, name string) error {
	_, err := repairAlias(ctx, e, name)
	return err
}

func repairAlias(ctx context.Context, e *Env, name string) (*component.Version, error) {
	c, err := db.GetComponentByName(ctx, e.DB, name)
	if err != nil {
		return nil, err
	}
	v, err := db.GetVersion(ctx, e.DB, c, c.CurrentVersion)
	if err != nil {
		return nil, err
	}
	content, err := readBlob(ctx, e, v.BlobPath, "version_blob")
	if err != nil {
		return nil, err
	}
	meta := map[string]string{"component": c.Name, "version": strconv.Itoa(v.VersionNumber)}
	if err := e.Blobs.Put(ctx, c.AliasPath, content, component.ContentTypeJS, meta); err != nil {
		return nil, errors.NewStorageFailure(err, map[string]any{"stage": "alias_blob"})
	}
	return v, nil
}

// readBlob maps blob.ErrNotFound to NOT_FOUND naming what was missing.
func readBlob(ctx context.Context, e *Env, key, what string) ([]byte, error) {
	data, err := e.Blobs.Get(ctx, key)
	if stderrors.Is(err, blob.ErrNotFound) {
		return nil, errors.NewNotFound(what, key)
	}
	if err != nil {
		return nil, errors.NewStorageFailure(err, nil)
	}
	return data, nil
}

func itoa(n int) string {
	return strconv.Itoa(n)
}

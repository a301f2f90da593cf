package ops

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hpungsan/kiln/internal/db"
	"github.com/hpungsan/kiln/internal/errors"
)

// RestoreInput contains parameters for the Restore operation.
type RestoreInput struct {
	Name         string
	Version      int
	ChangedBy    string
	GenerateDocs *bool
}

// RestoreOutput contains the result of the Restore operation.
type RestoreOutput struct {
	Name                   string `json:"name"`
	RestoredFrom           int    `json:"restored_from"`
	NewVersion             int    `json:"new_version"`
	DiffEndpoint           string `json:"diff_endpoint"`
	DocumentationGenerated bool   `json:"documentation_generated"`
	DocumentationError     string `json:"documentation_error,omitempty"`
}

// Restore copies version K forward as a new version. History is never
// rewound: restoring 2 while current is 5 yields 6. A lost compare-and-swap
// is retried against the then-current version up to RestoreMaxAttempts times.
func Restore(ctx context.Context, e *Env, input RestoreInput) (*RestoreOutput, error) {
	if input.Version < 1 {
		return nil, errors.NewInvalidRequest("version must be >= 1")
	}
	attempts := max(e.config().RestoreMaxAttempts, 1)

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		out, err := restoreOnce(ctx, e, input)
		if err == nil {
			return out, nil
		}
		if !errors.Is(err, errors.ErrConflict) {
			return nil, err
		}
		lastErr = err
		e.logger().Warn("restore lost commit race, retrying",
			slog.String("component", input.Name),
			slog.Int("attempt", attempt))
	}
	return nil, lastErr
}

func restoreOnce(ctx context.Context, e *Env, input RestoreInput) (*RestoreOutput, error) {
	c, err := lookup(ctx, e, input.Name)
	if err != nil {
		return nil, err
	}
	source, err := db.GetVersion(ctx, e.DB, c, input.Version)
	if err != nil {
		return nil, err
	}
	content, err := readBlob(ctx, e, source.BlobPath, "version_blob")
	if err != nil {
		return nil, err
	}

	v, err := commitVersion(ctx, e, c, content, commitMeta{
		op:          "restore",
		description: fmt.Sprintf("restored from version %d", input.Version),
		changedBy:   input.ChangedBy,
	})
	if err != nil {
		return nil, err
	}
	e.logger().Info("component restored",
		slog.String("component", c.Name),
		slog.Int("from", input.Version),
		slog.Int("new_version", v.VersionNumber))

	out := &RestoreOutput{
		Name:         c.Name,
		RestoredFrom: input.Version,
		NewVersion:   v.VersionNumber,
		DiffEndpoint: diffEndpoint(c.Name, input.Version, v.VersionNumber),
	}
	if wantDocs(e, input.GenerateDocs) {
		out.DocumentationGenerated, out.DocumentationError = runDocs(ctx, e, c.Name, v.VersionNumber, string(content))
	}
	return out, nil
}

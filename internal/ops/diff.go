package ops

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/hpungsan/kiln/internal/db"
	"github.com/hpungsan/kiln/internal/errors"
)

// DiffInput contains parameters for the Diff operation.
type DiffInput struct {
	Name string
	From int
	To   int
}

// Snapshot is the stored content of one version.
type Snapshot struct {
	Version  int    `json:"version"`
	BlobPath string `json:"blob_path"`
	Content  string `json:"content"`
}

// DiffOutput contains the result of the Diff operation.
type DiffOutput struct {
	Name string   `json:"name"`
	From Snapshot `json:"from"`
	To   Snapshot `json:"to"`
}

// Diff resolves two version numbers and returns both immutable contents.
// No diff is computed; clients compare the snapshots themselves.
func Diff(ctx context.Context, e *Env, input DiffInput) (*DiffOutput, error) {
	if input.From < 1 || input.To < 1 {
		return nil, errors.NewInvalidRequest("from and to must be version numbers >= 1")
	}
	c, err := lookup(ctx, e, input.Name)
	if err != nil {
		return nil, err
	}

	from, err := db.GetVersion(ctx, e.DB, c, input.From)
	if err != nil {
		return nil, err
	}
	to, err := db.GetVersion(ctx, e.DB, c, input.To)
	if err != nil {
		return nil, err
	}

	out := &DiffOutput{
		Name: c.Name,
		From: Snapshot{Version: from.VersionNumber, BlobPath: from.BlobPath},
		To:   Snapshot{Version: to.VersionNumber, BlobPath: to.BlobPath},
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, snap := range []*Snapshot{&out.From, &out.To} {
		g.Go(func() error {
			data, err := readBlob(gctx, e, snap.BlobPath, "version_blob")
			if err != nil {
				return err
			}
			snap.Content = string(data)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

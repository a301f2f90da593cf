package ops

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/hpungsan/kiln/internal/component"
	"github.com/hpungsan/kiln/internal/db"
	"github.com/hpungsan/kiln/internal/docs"
	"github.com/hpungsan/kiln/internal/errors"
)

// maxHeadConcurrency bounds parallel documentation-existence checks.
const maxHeadConcurrency = 8

// VersionsInput contains parameters for the ListVersions operation.
type VersionsInput struct {
	Name string
}

// VersionItem is a version row annotated with documentation presence.
type VersionItem struct {
	component.Version
	HasDocumentation bool `json:"has_documentation"`
}

// VersionsOutput contains the result of the ListVersions operation.
type VersionsOutput struct {
	Name           string        `json:"name"`
	CurrentVersion int           `json:"current_version"`
	Versions       []VersionItem `json:"versions"`
}

// ListVersions returns every version of a component, newest first.
func ListVersions(ctx context.Context, e *Env, input VersionsInput) (*VersionsOutput, error) {
	c, err := lookup(ctx, e, input.Name)
	if err != nil {
		return nil, err
	}
	versions, err := db.ListVersions(ctx, e.DB, c.ID)
	if err != nil {
		return nil, err
	}

	items := make([]VersionItem, len(versions))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxHeadConcurrency)
	for i := range versions {
		items[i].Version = versions[i]
		g.Go(func() error {
			ok, err := docs.Exists(gctx, e.Blobs, c.Name, versions[i].VersionNumber)
			if err != nil {
				return errors.NewStorageFailure(err, nil)
			}
			items[i].HasDocumentation = ok
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &VersionsOutput{Name: c.Name, CurrentVersion: c.CurrentVersion, Versions: items}, nil
}

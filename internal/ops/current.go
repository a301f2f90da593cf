package ops

import (
	"context"

	"github.com/hpungsan/kiln/internal/component"
	"github.com/hpungsan/kiln/internal/db"
)

// CurrentInput contains parameters for the CurrentVersion operation.
type CurrentInput struct {
	Name string
}

// CurrentOutput contains the result of the CurrentVersion operation.
type CurrentOutput struct {
	Name    string             `json:"name"`
	Version *component.Version `json:"version"`
	Content string             `json:"content"`
}

// CurrentVersion returns the row and immutable content of current_version.
func CurrentVersion(ctx context.Context, e *Env, input CurrentInput) (*CurrentOutput, error) {
	c, err := lookup(ctx, e, input.Name)
	if err != nil {
		return nil, err
	}
	v, err := db.GetVersion(ctx, e.DB, c, c.CurrentVersion)
	if err != nil {
		return nil, err
	}
	data, err := readBlob(ctx, e, v.BlobPath, "version_blob")
	if err != nil {
		return nil, err
	}
	return &CurrentOutput{Name: c.Name, Version: v, Content: string(data)}, nil
}

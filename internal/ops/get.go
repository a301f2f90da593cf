package ops

import (
	"context"

	"github.com/hpungsan/kiln/internal/component"
)

// GetInput contains parameters for the Get operation.
type GetInput struct {
	Name           string
	IncludeContent bool
}

// GetOutput contains the result of the Get operation.
type GetOutput struct {
	Component *component.Component `json:"component"`
	Content   *string              `json:"content,omitempty"`
}

// Get returns a component's metadata and, optionally, its current source
// read from the alias blob.
func Get(ctx context.Context, e *Env, input GetInput) (*GetOutput, error) {
	c, err := lookup(ctx, e, input.Name)
	if err != nil {
		return nil, err
	}

	out := &GetOutput{Component: c}
	if input.IncludeContent {
		data, err := readBlob(ctx, e, c.AliasPath, "alias_blob")
		if err != nil {
			return nil, err
		}
		s := string(data)
		out.Content = &s
	}
	return out, nil
}

// Content returns the raw alias content of a component.
func Content(ctx context.Context, e *Env, name string) ([]byte, error) {
	c, err := lookup(ctx, e, name)
	if err != nil {
		return nil, err
	}
	return readBlob(ctx, e, c.AliasPath, "alias_blob")
}

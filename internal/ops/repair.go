package ops

import (
	"context"
	"log/slog"
)

// RepairInput contains parameters for the RepairAlias operation.
type RepairInput struct {
	Name string
}

// RepairOutput contains the result of the RepairAlias operation.
type RepairOutput struct {
	Name     string `json:"name"`
	Version  int    `json:"version"`
	BlobPath string `json:"blob_path"`
}

// RepairAlias rewrites the alias blob from the blob recorded for
// current_version. Used after a STORAGE_FAILURE left the alias ahead.
func RepairAlias(ctx context.Context, e *Env, input RepairInput) (*RepairOutput, error) {
	name, err := resolveName(input.Name)
	if err != nil {
		return nil, err
	}
	v, err := repairAlias(ctx, e, name)
	if err != nil {
		return nil, err
	}
	e.logger().Info("alias repaired", slog.String("component", name), slog.Int("version", v.VersionNumber))
	return &RepairOutput{Name: name, Version: v.VersionNumber, BlobPath: v.BlobPath}, nil
}

package ops

import (
	"context"

	"github.com/hpungsan/kiln/internal/component"
	"github.com/hpungsan/kiln/internal/db"
)

// TranscriptsInput contains parameters for the ListTranscripts operation.
type TranscriptsInput struct {
	Name  string
	Limit int // default: 20, max: 100
}

// TranscriptsOutput contains the result of the ListTranscripts operation.
type TranscriptsOutput struct {
	Name  string                 `json:"name"`
	Items []component.Transcript `json:"items"`
}

// ListTranscripts returns the most recent edit transcripts of a component.
func ListTranscripts(ctx context.Context, e *Env, input TranscriptsInput) (*TranscriptsOutput, error) {
	c, err := lookup(ctx, e, input.Name)
	if err != nil {
		return nil, err
	}
	limit := input.Limit
	if limit <= 0 {
		limit = DefaultTranscriptsLimit
	}
	limit = min(limit, MaxTranscriptsLimit)

	items, err := db.ListTranscripts(ctx, e.DB, c.ID, limit)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []component.Transcript{}
	}
	return &TranscriptsOutput{Name: c.Name, Items: items}, nil
}

package ops

import (
	"context"

	"github.com/hpungsan/kiln/internal/component"
	"github.com/hpungsan/kiln/internal/db"
	"github.com/hpungsan/kiln/internal/errors"
)

// ListInput contains parameters for the List operation.
type ListInput struct {
	Category string
	Status   string // "" lists every status
	Limit    int    // default: 20, max: 100
	Offset   int    // default: 0
}

// ListOutput contains the result of the List operation.
type ListOutput struct {
	Items      []component.Component `json:"items"`
	Pagination Pagination            `json:"pagination"`
	Sort       string                `json:"sort"`
}

// List retrieves components with pagination, most recently updated first.
func List(ctx context.Context, e *Env, input ListInput) (*ListOutput, error) {
	switch input.Status {
	case "", component.StatusActive, component.StatusDraft, component.StatusDeprecated:
	default:
		return nil, errors.NewInvalidRequest("status must be one of: active, draft, deprecated")
	}

	// Apply limit defaults and bounds
	limit := input.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	// Ensure offset is non-negative
	offset := max(input.Offset, 0)

	items, total, err := db.ListComponents(ctx, e.DB, db.ListFilter{
		Category: component.Normalize(input.Category),
		Status:   input.Status,
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		return nil, err
	}

	// Ensure we return an empty array rather than nil
	if items == nil {
		items = []component.Component{}
	}

	return &ListOutput{
		Items: items,
		Pagination: Pagination{
			Limit:   limit,
			Offset:  offset,
			HasMore: offset+len(items) < total,
			Total:   total,
		},
		Sort: "updated_at_desc",
	}, nil
}

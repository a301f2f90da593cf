package ops

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hpungsan/kiln/internal/component"
	"github.com/hpungsan/kiln/internal/db"
	"github.com/hpungsan/kiln/internal/errors"
)

// SyncOutput contains the result of the Sync operation.
type SyncOutput struct {
	Total   int `json:"total"`
	Created int `json:"created"`
	Updated int `json:"updated"`
	Errors  int `json:"errors"`
}

// Sync projects every active component into the discovery registry, keyed
// by (slug, capability_type=component). Per-row failures are counted and
// logged; they do not abort the batch.
func Sync(ctx context.Context, e *Env) (*SyncOutput, error) {
	items, err := db.ListActiveComponents(ctx, e.DB)
	if err != nil {
		return nil, err
	}

	reg := e.registry()
	base := strings.TrimRight(e.config().PublicBaseURL, "/")
	out := &SyncOutput{Total: len(items)}

	for i := range items {
		created, err := syncOne(ctx, reg, base, &items[i])
		switch {
		case err != nil:
			out.Errors++
			e.logger().Warn("registry sync failed",
				slog.String("component", items[i].Name),
				slog.String("error", err.Error()))
		case created:
			out.Created++
		default:
			out.Updated++
		}
	}

	e.Metrics.ObserveSync(out.Created, out.Updated, out.Errors)
	e.logger().Info("registry sync finished",
		slog.Int("total", out.Total),
		slog.Int("created", out.Created),
		slog.Int("updated", out.Updated),
		slog.Int("errors", out.Errors))
	return out, nil
}

func syncOne(ctx context.Context, reg Registry, base string, c *component.Component) (created bool, err error) {
	entry := RegistryEntryFor(base, c)

	existing, err := reg.Find(ctx, entry.Slug, entry.CapabilityType)
	switch {
	case err == nil:
		entry.ID = existing.ID
		entry.CreatedAt = existing.CreatedAt
		return false, reg.Update(ctx, entry)
	case errors.Is(err, errors.ErrNotFound):
		id, err := generateULID()
		if err != nil {
			return false, err
		}
		entry.ID = id
		return true, reg.Insert(ctx, entry)
	default:
		return false, err
	}
}

// RegistryEntryFor computes the discovery projection of c.
func RegistryEntryFor(base string, c *component.Component) *component.RegistryEntry {
	contentURL := fmt.Sprintf("%s/components/%s/content", base, c.Name)
	slug := c.Slug
	if slug == "" {
		slug = c.Name
	}
	return &component.RegistryEntry{
		Slug:           slug,
		CapabilityType: component.CapabilityComponent,
		Name:           c.Name,
		Description:    c.Description,
		Category:       c.Category,
		Tags:           c.Tags,
		ContentURL:     contentURL,
		DocsURL:        fmt.Sprintf("%s/components/%s/docs", base, c.Name),
		ExampleUsage:   fmt.Sprintf("<script type=\"module\" src=\"%s\"></script>\n<%s></%s>", contentURL, c.Name, c.Name),
		Version:        c.CurrentVersion,
	}
}

package ops

import (
	"context"

	"github.com/hpungsan/kiln/internal/component"
	"github.com/hpungsan/kiln/internal/db"
	"github.com/hpungsan/kiln/internal/docs"
	"github.com/hpungsan/kiln/internal/errors"
)

// Documentation formats.
const (
	DocsFormatJSON     = "json"
	DocsFormatMarkdown = "markdown"
	DocsFormatHTML     = "html"
)

// DocsInput contains parameters for the GetDocumentation operation.
type DocsInput struct {
	Name    string
	Version int    // 0 reads the latest documentation
	Format  string // json (default), markdown, html
}

// DocsOutput contains the result of the GetDocumentation operation.
type DocsOutput struct {
	Documentation *component.Documentation `json:"documentation"`
	Markdown      string                   `json:"markdown,omitempty"`
	HTML          string                   `json:"html,omitempty"`
}

// GetDocumentation reads stored documentation for a component.
func GetDocumentation(ctx context.Context, e *Env, input DocsInput) (*DocsOutput, error) {
	switch input.Format {
	case "", DocsFormatJSON, DocsFormatMarkdown, DocsFormatHTML:
	default:
		return nil, errors.NewInvalidRequest("format must be one of: json, markdown, html")
	}
	if input.Version < 0 {
		return nil, errors.NewInvalidRequest("version must be >= 1")
	}

	c, err := lookup(ctx, e, input.Name)
	if err != nil {
		return nil, err
	}
	if input.Version > 0 {
		if _, err := db.GetVersion(ctx, e.DB, c, input.Version); err != nil {
			return nil, err
		}
	}

	doc, err := docs.Load(ctx, e.Blobs, c.Name, input.Version)
	if err != nil {
		return nil, err
	}

	out := &DocsOutput{Documentation: doc}
	switch input.Format {
	case DocsFormatMarkdown:
		out.Markdown = docs.RenderMarkdown(doc)
	case DocsFormatHTML:
		html, err := docs.RenderHTML(doc)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		out.HTML = html
	}
	return out, nil
}

// RegenerateDocsInput contains parameters for the RegenerateDocumentation operation.
type RegenerateDocsInput struct {
	Name    string
	Version int // 0 documents current_version
}

// RegenerateDocumentation runs the documentation pipeline for one version.
// Unlike the advisory run after an edit, failures are returned.
func RegenerateDocumentation(ctx context.Context, e *Env, input RegenerateDocsInput) (*DocsOutput, error) {
	if e.Gen == nil {
		return nil, errors.NewGenerationFailed("setup", errNoGenerator)
	}
	c, err := lookup(ctx, e, input.Name)
	if err != nil {
		return nil, err
	}
	n := input.Version
	if n <= 0 {
		n = c.CurrentVersion
	}
	v, err := db.GetVersion(ctx, e.DB, c, n)
	if err != nil {
		return nil, err
	}
	content, err := readBlob(ctx, e, v.BlobPath, "version_blob")
	if err != nil {
		return nil, err
	}

	doc, err := e.pipeline().Run(ctx, c.Name, n, string(content))
	if err != nil {
		return nil, err
	}
	// Documenting an older version must not move the alias off the latest docs.
	if n != c.CurrentVersion {
		if err := restoreDocsAlias(ctx, e, c); err != nil {
			return nil, err
		}
	}
	return &DocsOutput{Documentation: doc}, nil
}

// restoreDocsAlias points {name}-docs back at the newest documented version.
func restoreDocsAlias(ctx context.Context, e *Env, c *component.Component) error {
	for n := c.CurrentVersion; n >= 1; n-- {
		ok, err := docs.Exists(ctx, e.Blobs, c.Name, n)
		if err != nil {
			return errors.NewStorageFailure(err, nil)
		}
		if !ok {
			continue
		}
		doc, err := docs.Load(ctx, e.Blobs, c.Name, n)
		if err != nil {
			return err
		}
		return docs.Persist(ctx, e.Blobs, doc)
	}
	return nil
}

// Package docs generates and stores documentation for component versions.
//
// Documentation is written twice, like code: an immutable {name}-docs-v{n}
// blob and the {name}-docs alias. Failures here never undo a committed version;
// callers report them as advisory.
package docs

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hpungsan/kiln/internal/blob"
	"github.com/hpungsan/kiln/internal/component"
	"github.com/hpungsan/kiln/internal/errors"
	"github.com/hpungsan/kiln/internal/generate"
	"github.com/hpungsan/kiln/internal/metrics"
)

const systemPrompt = `You document web components. Reply with a single JSON object and nothing else.`

const promptTemplate = `Document the custom element <%s> from its source below.

Return JSON with exactly these keys:
{
  "description": "one paragraph",
  "attributes": [{"name": "", "type": "", "default": "", "description": ""}],
  "events": [{"name": "", "detail": "", "description": ""}],
  "methods": [{"name": "", "signature": "", "description": ""}],
  "dependencies": ["imported modules or external services"],
  "usage_examples": ["HTML snippets"]
}

Source:
%s`

// Pipeline turns component source into stored Documentation.
type Pipeline struct {
	Gen     generate.Generator
	Blobs   blob.Store
	Logger  *slog.Logger
	Metrics *metrics.Metrics

	// Now stamps generated_at. Defaults to time.Now.
	Now func() time.Time
}

// Run generates documentation for version n of name and persists it.
func (p *Pipeline) Run(ctx context.Context, name string, version int, code string) (*component.Documentation, error) {
	doc, err := p.generate(ctx, name, version, code)
	if err == nil {
		err = Persist(ctx, p.Blobs, doc)
	}

	if err != nil {
		p.Metrics.ObserveDocs(metrics.OutcomeError)
		p.logger().Warn("documentation pipeline failed",
			slog.String("component", name),
			slog.Int("version", version),
			slog.String("error", err.Error()))
		return nil, err
	}
	p.Metrics.ObserveDocs(metrics.OutcomeSuccess)
	return doc, nil
}

func (p *Pipeline) generate(ctx context.Context, name string, version int, code string) (*component.Documentation, error) {
	raw, err := p.Gen.Generate(ctx, systemPrompt, []generate.Message{
		generate.User(fmt.Sprintf(promptTemplate, name, code)),
	})
	if err != nil {
		return nil, errors.NewGenerationFailed("documentation", err)
	}

	doc, err := Parse(raw)
	if err != nil {
		return nil, errors.NewGenerationFailed("documentation", err)
	}

	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	doc.Component = name
	doc.Version = version
	doc.Generated = true
	doc.GeneratedAt = now().UTC().Format(time.RFC3339)
	return doc, nil
}

func (p *Pipeline) logger() *slog.Logger {
	if p.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return p.Logger
}

// Parse decodes a model reply into Documentation. Code fences and prose
// around the JSON object are tolerated.
func Parse(raw string) (*component.Documentation, error) {
	body, _ := generate.StripCodeFences(raw)
	if start, end := strings.IndexByte(body, '{'), strings.LastIndexByte(body, '}'); start >= 0 && end > start {
		body = body[start : end+1]
	}

	var doc component.Documentation
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return nil, fmt.Errorf("documentation is not valid JSON: %w", err)
	}
	normalize(&doc)
	return &doc, nil
}

// normalize replaces nil slices so stored JSON always carries arrays.
func normalize(doc *component.Documentation) {
	if doc.Attributes == nil {
		doc.Attributes = []component.Attribute{}
	}
	if doc.Events == nil {
		doc.Events = []component.Event{}
	}
	if doc.Methods == nil {
		doc.Methods = []component.Method{}
	}
	if doc.Dependencies == nil {
		doc.Dependencies = []string{}
	}
	if doc.UsageExamples == nil {
		doc.UsageExamples = []string{}
	}
}

// Persist writes the immutable version key, then the alias.
func Persist(ctx context.Context, blobs blob.Store, doc *component.Documentation) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return errors.NewInternal(err)
	}
	meta := map[string]string{"component": doc.Component, "version": fmt.Sprint(doc.Version)}

	if err := blobs.Put(ctx, component.DocsVersionKey(doc.Component, doc.Version), data, component.ContentTypeJSON, meta); err != nil {
		return errors.NewStorageFailure(err, map[string]any{"stage": "docs_version_blob"})
	}
	if err := blobs.Put(ctx, component.DocsAliasKey(doc.Component), data, component.ContentTypeJSON, meta); err != nil {
		return errors.NewStorageFailure(err, map[string]any{"stage": "docs_alias_blob", "orphan_blob": component.DocsVersionKey(doc.Component, doc.Version)})
	}
	return nil
}

// Load reads stored documentation. version <= 0 reads the alias.
func Load(ctx context.Context, blobs blob.Store, name string, version int) (*component.Documentation, error) {
	key := component.DocsAliasKey(name)
	if version > 0 {
		key = component.DocsVersionKey(name, version)
	}

	data, err := blobs.Get(ctx, key)
	if stderrors.Is(err, blob.ErrNotFound) {
		return nil, errors.NewNotFound("documentation", key)
	}
	if err != nil {
		return nil, errors.NewStorageFailure(err, nil)
	}

	var doc component.Documentation
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("decode documentation %s: %w", key, err))
	}
	return &doc, nil
}

// Exists reports whether documentation for version n is stored.
func Exists(ctx context.Context, blobs blob.Store, name string, version int) (bool, error) {
	return blobs.Head(ctx, component.DocsVersionKey(name, version))
}

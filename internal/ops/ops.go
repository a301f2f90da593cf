package ops

import (
	"context"
	"crypto/rand"
	"database/sql"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hpungsan/kiln/internal/apidocs"
	"github.com/hpungsan/kiln/internal/blob"
	"github.com/hpungsan/kiln/internal/component"
	"github.com/hpungsan/kiln/internal/config"
	"github.com/hpungsan/kiln/internal/db"
	"github.com/hpungsan/kiln/internal/docs"
	"github.com/hpungsan/kiln/internal/errors"
	"github.com/hpungsan/kiln/internal/generate"
	"github.com/hpungsan/kiln/internal/metrics"
	"github.com/hpungsan/kiln/internal/validate"
)

// Pagination limits
const (
	DefaultListLimit        = 20
	MaxListLimit            = 100
	DefaultTranscriptsLimit = 20
	MaxTranscriptsLimit     = 100
)

// Pagination contains pagination metadata for list operations.
type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
	Total   int  `json:"total"`
}

// Registry is the external discovery registry that Sync projects into.
type Registry interface {
	Find(ctx context.Context, slug, capabilityType string) (*component.RegistryEntry, error)
	Insert(ctx context.Context, e *component.RegistryEntry) error
	Update(ctx context.Context, e *component.RegistryEntry) error
}

// APIDocsSource supplies the API documentation used to enrich edit prompts.
type APIDocsSource interface {
	Fetch(ctx context.Context) (*apidocs.Document, error)
}

// Env carries the collaborators every operation needs. Handlers build one
// per process and share it; it holds no per-request state.
type Env struct {
	DB      *sql.DB
	Blobs   blob.Store
	Gen     generate.Generator
	Cfg     *config.Config
	Logger  *slog.Logger
	Metrics *metrics.Metrics

	// Registry defaults to the SQL registry table when nil.
	Registry Registry

	// APIDocs defaults to an HTTP client for Cfg.APIDocsURL when nil.
	APIDocs APIDocsSource

	// Rules defaults to validate.DefaultRules.
	Rules []validate.Rule

	// Clock defaults to time.Now.
	Clock func() time.Time
}

func (e *Env) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return e.Logger
}

func (e *Env) now() time.Time {
	if e.Clock != nil {
		return e.Clock()
	}
	return time.Now()
}

func (e *Env) config() *config.Config {
	if e.Cfg == nil {
		return config.DefaultConfig()
	}
	return e.Cfg
}

func (e *Env) rules() []validate.Rule {
	if e.Rules == nil {
		return validate.DefaultRules()
	}
	return e.Rules
}

func (e *Env) registry() Registry {
	if e.Registry == nil {
		return db.NewSQLRegistry(e.DB)
	}
	return e.Registry
}

func (e *Env) apiDocs() APIDocsSource {
	if e.APIDocs != nil {
		return e.APIDocs
	}
	cfg := e.config()
	if cfg.APIDocsURL == "" {
		return nil
	}
	return apidocs.NewClient(cfg.APIDocsURL, time.Duration(cfg.APIDocsTimeoutSecs)*time.Second)
}

func (e *Env) pipeline() *docs.Pipeline {
	return &docs.Pipeline{Gen: e.Gen, Blobs: e.Blobs, Logger: e.Logger, Metrics: e.Metrics, Now: e.Clock}
}

// resolveName normalizes and validates a component name.
func resolveName(raw string) (string, error) {
	name := component.Normalize(raw)
	if name == "" {
		return "", errors.NewInvalidRequest("name is required")
	}
	if !component.ValidName(name) {
		return "", errors.NewInvalidRequest("name must be a lowercase custom-element tag containing a hyphen (e.g. \"foo-bar\") and must not end in -docs")
	}
	return name, nil
}

// lookup resolves a name and loads its component row.
func lookup(ctx context.Context, e *Env, raw string) (*component.Component, error) {
	name, err := resolveName(raw)
	if err != nil {
		return nil, err
	}
	return db.GetComponentByName(ctx, e.DB, name)
}

// validateCode runs the configured rules and maps a failure to VALIDATION_FAILED.
func validateCode(e *Env, code string) error {
	res := validate.Validate(code, e.rules())
	if res.Valid {
		return nil
	}
	e.Metrics.ObserveValidationFailure(res.FailingRule)
	return errors.NewValidationFailed(res.FailingRule, res.Reason)
}

// diffEndpoint is the relative URL comparing version n with its predecessor.
func diffEndpoint(name string, from, to int) string {
	return "/components/" + name + "/diff?from=" + itoa(from) + "&to=" + itoa(to)
}

// generateULID creates a new ULID using crypto/rand for entropy.
func generateULID() (string, error) {
	id, err := ulid.New(ulid.Timestamp(time.Now()), rand.Reader)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

package ops

import (
	"context"
	stderrors "errors"
	"log/slog"
	"strings"

	"github.com/hpungsan/kiln/internal/apidocs"
	"github.com/hpungsan/kiln/internal/component"
	"github.com/hpungsan/kiln/internal/db"
	"github.com/hpungsan/kiln/internal/errors"
	"github.com/hpungsan/kiln/internal/generate"
)

var errNoGenerator = stderrors.New("no generator configured")

// MaxInstructionChars bounds the natural-language edit request.
const MaxInstructionChars = 8000

// EditInput contains parameters for the Edit operation.
type EditInput struct {
	Name           string
	Instruction    string
	ChangedBy      string
	IncludeContext bool
	// GenerateDocs overrides Config.GenerateDocsOnEdit when set.
	GenerateDocs *bool
}

// EditOutput contains the result of the Edit operation.
type EditOutput struct {
	Name                   string `json:"name"`
	NewVersion             int    `json:"new_version"`
	ChangeSummary          string `json:"change_summary"`
	ReasoningText          string `json:"reasoning_text"`
	DiffEndpoint           string `json:"diff_endpoint"`
	DocumentationGenerated bool   `json:"documentation_generated"`
	DocumentationError     string `json:"documentation_error,omitempty"`
}

// Edit applies a natural-language change to a component and commits it as a
// new version: read, generate, summarize, validate, commit, document.
// GENERATION_FAILED and VALIDATION_FAILED leave no writes behind. Losing a
// concurrent commit returns CONFLICT; the caller retries against the new version.
func Edit(ctx context.Context, e *Env, input EditInput) (*EditOutput, error) {
	instruction := strings.TrimSpace(input.Instruction)
	if instruction == "" {
		return nil, errors.NewInvalidRequest("instruction is required")
	}
	if len(instruction) > MaxInstructionChars {
		return nil, errors.NewInvalidRequest("instruction exceeds 8000 characters")
	}
	if e.Gen == nil {
		return nil, errors.NewGenerationFailed("setup", errNoGenerator)
	}

	// 1. Read
	c, err := lookup(ctx, e, input.Name)
	if err != nil {
		return nil, err
	}
	current, err := readBlob(ctx, e, c.AliasPath, "alias_blob")
	if err != nil {
		return nil, err
	}
	log := e.logger().With(slog.String("component", c.Name), slog.Int("base_version", c.CurrentVersion))

	// 2. Optional API context
	apiContext := ""
	if input.IncludeContext || apidocs.NeedsContext(instruction) {
		apiContext = fetchAPIContext(ctx, e, log, c.Name, instruction, string(current))
	}

	// 3. Generate code
	prompt := buildEditPrompt(c.Name, instruction, string(current), apiContext)
	turns := []generate.Message{generate.User(prompt)}
	reply, err := e.Gen.Generate(ctx, editSystemPrompt, turns)
	if err != nil {
		return nil, errors.NewGenerationFailed("code", err)
	}
	code, reasoning := generate.StripCodeFences(reply)

	// 4. Summarize on the same conversation; advisory
	turns = append(turns, generate.Assistant(reply), generate.User(summaryPrompt))
	summary, err := e.Gen.Generate(ctx, editSystemPrompt, turns)
	if err != nil {
		log.Warn("change summary generation failed", slog.String("error", err.Error()))
		summary = ""
	}
	summary = strings.TrimSpace(summary)

	// 5. Validate
	if err := validateCode(e, code); err != nil {
		return nil, err
	}

	// 6. Commit
	changeDescription := summary
	if changeDescription == "" {
		changeDescription = instruction
	}
	v, err := commitVersion(ctx, e, c, []byte(code), commitMeta{
		op:          "edit",
		description: changeDescription,
		changedBy:   input.ChangedBy,
		model:       e.Gen.Model(),
		prompt:      instruction,
	})
	if err != nil {
		return nil, err
	}
	log.Info("component edited", slog.Int("new_version", v.VersionNumber))

	recordTranscript(ctx, e, log, c, v.VersionNumber, instruction, summary)

	out := &EditOutput{
		Name:          c.Name,
		NewVersion:    v.VersionNumber,
		ChangeSummary: summary,
		ReasoningText: reasoning,
		DiffEndpoint:  diffEndpoint(c.Name, v.VersionNumber-1, v.VersionNumber),
	}

	// 7. Optional documentation; failure does not void the version
	if wantDocs(e, input.GenerateDocs) {
		out.DocumentationGenerated, out.DocumentationError = runDocs(ctx, e, c.Name, v.VersionNumber, code)
	}
	return out, nil
}

func fetchAPIContext(ctx context.Context, e *Env, log *slog.Logger, name, instruction, code string) string {
	src := e.apiDocs()
	if src == nil {
		return ""
	}
	doc, err := src.Fetch(ctx)
	if err != nil {
		log.Warn("api docs fetch failed", slog.String("error", err.Error()))
		return ""
	}
	endpoints := apidocs.Filter(doc.Endpoints(), instruction, apidocs.Keywords(instruction, code, name))
	log.Debug("api context filtered", slog.Int("endpoints", len(endpoints)))
	return apidocs.Render(endpoints)
}

func recordTranscript(ctx context.Context, e *Env, log *slog.Logger, c *component.Component, version int, request, summary string) {
	id, err := generateULID()
	if err != nil {
		log.Warn("transcript id generation failed", slog.String("error", err.Error()))
		return
	}
	model := ""
	if e.Gen != nil {
		model = e.Gen.Model()
	}
	err = db.InsertTranscript(ctx, e.DB, &component.Transcript{
		ID:             id,
		ComponentID:    c.ID,
		TargetVersion:  version,
		UserRequest:    request,
		ChangesSummary: summary,
		GeneratorModel: model,
		CreatedAt:      e.now().Unix(),
	})
	if err != nil {
		log.Warn("transcript insert failed", slog.String("error", err.Error()))
	}
}

func wantDocs(e *Env, override *bool) bool {
	if override != nil {
		return *override
	}
	return e.config().GenerateDocsOnEdit
}

// runDocs runs the documentation pipeline and reports its advisory outcome.
func runDocs(ctx context.Context, e *Env, name string, version int, code string) (bool, string) {
	if e.Gen == nil {
		return false, errNoGenerator.Error()
	}
	if _, err := e.pipeline().Run(ctx, name, version, code); err != nil {
		return false, err.Error()
	}
	return true, ""
}

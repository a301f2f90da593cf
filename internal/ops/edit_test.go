package ops

import (
	"context"
	stderrors "errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/kiln/internal/apidocs"
	"github.com/hpungsan/kiln/internal/db"
	"github.com/hpungsan/kiln/internal/errors"
	"github.com/hpungsan/kiln/internal/generate"
	"github.com/hpungsan/kiln/internal/generate/generatetest"
	"github.com/hpungsan/kiln/internal/validate"
)

func TestEdit_AddButton(t *testing.T) {
	ctx := context.Background()
	v2 := source("foo-bar", "with a button")
	gen := generatetest.New(fenced(v2), "Added a button to the component.")
	e := setupEnv(t, gen)
	mustCreate(t, e, "foo-bar", source("foo-bar", "v1"))

	out, err := Edit(ctx, e, EditInput{Name: "foo-bar", Instruction: "add a button", ChangedBy: "alice"})
	require.NoError(t, err)

	require.Equal(t, "foo-bar", out.Name)
	require.Equal(t, 2, out.NewVersion)
	require.Equal(t, "Added a button to the component.", out.ChangeSummary)
	require.Equal(t, "Here is the updated component.", out.ReasoningText)
	require.Equal(t, "/components/foo-bar/diff?from=1&to=2", out.DiffEndpoint)
	require.False(t, out.DocumentationGenerated)

	c, err := db.GetComponentByName(ctx, e.DB, "foo-bar")
	require.NoError(t, err)
	require.Equal(t, 2, c.CurrentVersion)

	v, err := db.GetVersion(ctx, e.DB, c, 2)
	require.NoError(t, err)
	require.Equal(t, "Added a button to the component.", v.ChangeDescription)
	require.Equal(t, "alice", v.ChangedBy)
	require.Equal(t, "scripted-model", v.GeneratorModel)
	require.Equal(t, "add a button", v.GeneratorPrompt)

	require.Equal(t, v2, aliasContent(t, e, "foo-bar"))
	require.Equal(t, v2, versionContent(t, e, "foo-bar", 2))

	// Summary call continues the same conversation.
	calls := gen.Calls()
	require.Len(t, calls, 2)
	require.Len(t, calls[1].Turns, 3)
	require.Equal(t, generate.RoleAssistant, calls[1].Turns[1].Role)
	require.Contains(t, calls[0].Turns[0].Content, "add a button")
	require.Contains(t, calls[0].Turns[0].Content, "v1")

	transcripts, err := ListTranscripts(ctx, e, TranscriptsInput{Name: "foo-bar"})
	require.NoError(t, err)
	require.Len(t, transcripts.Items, 1)
	require.Equal(t, 2, transcripts.Items[0].TargetVersion)
	require.Equal(t, "add a button", transcripts.Items[0].UserRequest)
}

func TestEdit_ValidationFailureLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	noRegistration := "class FooBar extends HTMLElement {\n  connectedCallback() {}\n}"
	e := setupEnv(t, generatetest.New(fenced(noRegistration), "summary"))
	v1 := source("foo-bar", "v1")
	mustCreate(t, e, "foo-bar", v1)

	_, err := Edit(ctx, e, EditInput{Name: "foo-bar", Instruction: "drop the define call"})
	require.True(t, errors.Is(err, errors.ErrValidationFailed))
	require.Equal(t, validate.RuleRegisters, errors.As(err).Details["rule"])

	c, err := db.GetComponentByName(ctx, e.DB, "foo-bar")
	require.NoError(t, err)
	require.Equal(t, 1, c.CurrentVersion)
	require.Equal(t, []int{1}, versionNumbers(t, e, "foo-bar"))
	require.Equal(t, v1, aliasContent(t, e, "foo-bar"))
}

func TestEdit_GenerationFailureWritesNothing(t *testing.T) {
	ctx := context.Background()
	e := setupEnv(t, generatetest.New().Then("", stderrors.New("model overloaded")))
	v1 := source("foo-bar", "v1")
	mustCreate(t, e, "foo-bar", v1)

	_, err := Edit(ctx, e, EditInput{Name: "foo-bar", Instruction: "make it red"})
	require.True(t, errors.Is(err, errors.ErrGenerationFailed))
	require.Equal(t, []int{1}, versionNumbers(t, e, "foo-bar"))
	require.Equal(t, v1, aliasContent(t, e, "foo-bar"))
}

func TestEdit_SummaryFailureIsNonFatal(t *testing.T) {
	ctx := context.Background()
	gen := generatetest.New(fenced(source("foo-bar", "red"))).Then("", stderrors.New("timeout"))
	e := setupEnv(t, gen)
	mustCreate(t, e, "foo-bar", source("foo-bar", "v1"))

	out, err := Edit(ctx, e, EditInput{Name: "foo-bar", Instruction: "make it red"})
	require.NoError(t, err)
	require.Equal(t, 2, out.NewVersion)
	require.Empty(t, out.ChangeSummary)

	c, err := db.GetComponentByName(ctx, e.DB, "foo-bar")
	require.NoError(t, err)
	v, err := db.GetVersion(ctx, e.DB, c, 2)
	require.NoError(t, err)
	require.Equal(t, "make it red", v.ChangeDescription)
}

func TestEdit_NotFound(t *testing.T) {
	e := setupEnv(t, generatetest.New())
	_, err := Edit(context.Background(), e, EditInput{Name: "ghost-comp", Instruction: "x"})
	require.True(t, errors.Is(err, errors.ErrNotFound))
	require.Equal(t, "component", errors.As(err).Details["what"])
}

func TestEdit_MissingAliasBlob(t *testing.T) {
	ctx := context.Background()
	e := setupEnv(t, generatetest.New())
	mustCreate(t, e, "foo-bar", source("foo-bar", "v1"))

	// Point the row at an alias key that was never written.
	_, err := e.DB.Exec("UPDATE components SET alias_path = 'nowhere' WHERE name = 'foo-bar'")
	require.NoError(t, err)

	_, err = Edit(ctx, e, EditInput{Name: "foo-bar", Instruction: "x"})
	require.True(t, errors.Is(err, errors.ErrNotFound))
	require.Equal(t, "alias_blob", errors.As(err).Details["what"])
}

func TestEdit_InvalidInstruction(t *testing.T) {
	e := setupEnv(t, generatetest.New())
	_, err := Edit(context.Background(), e, EditInput{Name: "foo-bar", Instruction: "   "})
	require.True(t, errors.Is(err, errors.ErrInvalidRequest))

	_, err = Edit(context.Background(), e, EditInput{Name: "foo-bar", Instruction: strings.Repeat("x", MaxInstructionChars+1)})
	require.True(t, errors.Is(err, errors.ErrInvalidRequest))
}

type staticDocs struct {
	doc   *apidocs.Document
	err   error
	calls int
}

func (s *staticDocs) Fetch(context.Context) (*apidocs.Document, error) {
	s.calls++
	return s.doc, s.err
}

func TestEdit_APIContextEnrichment(t *testing.T) {
	ctx := context.Background()
	gen := generatetest.New(fenced(source("user-list", "loaded")), "Loads users.")
	e := setupEnv(t, gen)
	e.APIDocs = &staticDocs{doc: &apidocs.Document{Paths: map[string]map[string]apidocs.Operation{
		"/api/users":  {"get": {Summary: "List users"}},
		"/api/health": {"get": {Summary: "Health"}},
	}}}
	mustCreate(t, e, "user-list", source("user-list", "v1"))

	_, err := Edit(ctx, e, EditInput{Name: "user-list", Instruction: "fetch the users from the backend"})
	require.NoError(t, err)

	prompt := gen.Calls()[0].Turns[0].Content
	require.Contains(t, prompt, "Available API endpoints:")
	require.Contains(t, prompt, "GET /api/users: List users")
	require.NotContains(t, prompt, "/api/health")
}

func TestEdit_APIContextSkippedWithoutTrigger(t *testing.T) {
	ctx := context.Background()
	src := &staticDocs{doc: &apidocs.Document{}}
	e := setupEnv(t, generatetest.New(fenced(source("foo-bar", "blue")), "Blue."))
	e.APIDocs = src
	mustCreate(t, e, "foo-bar", source("foo-bar", "v1"))

	_, err := Edit(ctx, e, EditInput{Name: "foo-bar", Instruction: "make the text blue"})
	require.NoError(t, err)
	require.Zero(t, src.calls)
}

func TestEdit_APIContextFetchErrorIgnored(t *testing.T) {
	ctx := context.Background()
	gen := generatetest.New(fenced(source("foo-bar", "x")), "ok")
	e := setupEnv(t, gen)
	e.APIDocs = &staticDocs{err: stderrors.New("unreachable")}
	mustCreate(t, e, "foo-bar", source("foo-bar", "v1"))

	_, err := Edit(ctx, e, EditInput{Name: "foo-bar", Instruction: "x", IncludeContext: true})
	require.NoError(t, err)
	require.NotContains(t, gen.Calls()[0].Turns[0].Content, "API context")
}

func TestEdit_DocumentationGenerated(t *testing.T) {
	ctx := context.Background()
	gen := generatetest.New(fenced(source("foo-bar", "v2")), "Changed.", `{"description": "docs v2"}`)
	e := setupEnv(t, gen)
	mustCreate(t, e, "foo-bar", source("foo-bar", "v1"))

	out, err := Edit(ctx, e, EditInput{Name: "foo-bar", Instruction: "x", GenerateDocs: boolPtr(true)})
	require.NoError(t, err)
	require.True(t, out.DocumentationGenerated)
	require.Empty(t, out.DocumentationError)

	versions, err := ListVersions(ctx, e, VersionsInput{Name: "foo-bar"})
	require.NoError(t, err)
	require.Equal(t, 2, versions.Versions[0].VersionNumber)
	require.True(t, versions.Versions[0].HasDocumentation)
	require.False(t, versions.Versions[1].HasDocumentation)
}

func TestEdit_DocumentationFailureKeepsVersion(t *testing.T) {
	ctx := context.Background()
	gen := generatetest.New(fenced(source("foo-bar", "v2")), "Changed.", "not json at all")
	e := setupEnv(t, gen)
	e.Cfg.GenerateDocsOnEdit = true
	mustCreate(t, e, "foo-bar", source("foo-bar", "v1"))

	out, err := Edit(ctx, e, EditInput{Name: "foo-bar", Instruction: "x"})
	require.NoError(t, err)
	require.Equal(t, 2, out.NewVersion)
	require.False(t, out.DocumentationGenerated)
	require.NotEmpty(t, out.DocumentationError)
	require.Equal(t, []int{2, 1}, versionNumbers(t, e, "foo-bar"))
}

func TestEdit_ConcurrentCommitConflicts(t *testing.T) {
	ctx := context.Background()
	v1 := source("foo-bar", "v1")
	scripted := generatetest.New(fenced(source("foo-bar", "loser")), "Loser edit.")
	gen := &hookGenerator{Generator: scripted}
	e := setupEnv(t, gen)
	mustCreate(t, e, "foo-bar", v1)

	// Another writer commits version 2 after this edit has read version 1.
	gen.before = func() {
		_, err := Restore(ctx, e, RestoreInput{Name: "foo-bar", Version: 1})
		require.NoError(t, err)
	}

	_, err := Edit(ctx, e, EditInput{Name: "foo-bar", Instruction: "x"})
	require.True(t, errors.Is(err, errors.ErrConflict))
	details := errors.As(err).Details
	require.Equal(t, 1, details["expected_version"])
	require.Equal(t, true, details["alias_repaired"])
	require.NotEmpty(t, details["orphan_blob"])

	require.Equal(t, []int{2, 1}, versionNumbers(t, e, "foo-bar"))
	require.Equal(t, v1, aliasContent(t, e, "foo-bar"))
	require.Equal(t, versionContent(t, e, "foo-bar", 2), aliasContent(t, e, "foo-bar"))
}

func TestEdit_AliasWriteFailure(t *testing.T) {
	ctx := context.Background()
	e := setupEnv(t, generatetest.New(fenced(source("foo-bar", "v2")), "Changed."))
	v1 := source("foo-bar", "v1")
	mustCreate(t, e, "foo-bar", v1)
	e.Blobs = &faultyBlobs{Store: e.Blobs, failKey: "foo-bar"}

	_, err := Edit(ctx, e, EditInput{Name: "foo-bar", Instruction: "x"})
	require.True(t, errors.Is(err, errors.ErrStorageFailure))
	details := errors.As(err).Details
	require.Equal(t, "alias_blob", details["stage"])
	require.Equal(t, true, details["partial"])
	require.NotEmpty(t, details["orphan_blob"])

	require.Equal(t, []int{1}, versionNumbers(t, e, "foo-bar"))
	require.Equal(t, v1, aliasContent(t, e, "foo-bar"))
}

func TestEdit_MetadataFailureLeavesAliasAhead(t *testing.T) {
	ctx := context.Background()
	e := setupEnv(t, generatetest.New(fenced(source("foo-bar", "v2")), "Changed."))
	mustCreate(t, e, "foo-bar", source("foo-bar", "v1"))
	e.Blobs = &faultyBlobs{Store: e.Blobs, onPut: func(key string) {
		if key == "foo-bar" {
			e.DB.Close()
		}
	}}

	_, err := Edit(ctx, e, EditInput{Name: "foo-bar", Instruction: "x"})
	require.True(t, errors.Is(err, errors.ErrStorageFailure))
	details := errors.As(err).Details
	require.Equal(t, "metadata", details["stage"])
	require.Equal(t, true, details["partial"])
	require.Equal(t, true, details["alias_ahead"])
	require.Equal(t, false, details["alias_repaired"])
}

package ops

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/kiln/internal/blob"
	"github.com/hpungsan/kiln/internal/config"
	"github.com/hpungsan/kiln/internal/db"
	"github.com/hpungsan/kiln/internal/generate"
)

// source returns a minimal valid component whose body carries marker.
func source(tag, marker string) string {
	class := ""
	for _, part := range strings.Split(tag, "-") {
		class += strings.ToUpper(part[:1]) + part[1:]
	}
	return fmt.Sprintf("class %s extends HTMLElement {\n  connectedCallback() { this.textContent = %q; }\n}\ncustomElements.define('%s', %s);", class, marker, tag, class)
}

func fenced(code string) string {
	return "Here is the updated component.\n\n```javascript\n" + code + "\n```"
}

func setupEnv(t *testing.T, gen generate.Generator) *Env {
	t.Helper()
	database, err := db.Init(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	blobs, err := blob.OpenBadgerInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { blobs.Close() })

	return &Env{DB: database, Blobs: blobs, Gen: gen, Cfg: config.DefaultConfig()}
}

func mustCreate(t *testing.T, e *Env, name, code string) *CreateOutput {
	t.Helper()
	out, err := Create(context.Background(), e, CreateInput{Name: name, Code: code, ChangedBy: "tester"})
	require.NoError(t, err)
	return out
}

// aliasContent reads the alias blob of name.
func aliasContent(t *testing.T, e *Env, name string) string {
	t.Helper()
	data, err := e.Blobs.Get(context.Background(), name)
	require.NoError(t, err)
	return string(data)
}

// versionContent reads the immutable blob recorded for version n.
func versionContent(t *testing.T, e *Env, name string, n int) string {
	t.Helper()
	ctx := context.Background()
	c, err := db.GetComponentByName(ctx, e.DB, name)
	require.NoError(t, err)
	v, err := db.GetVersion(ctx, e.DB, c, n)
	require.NoError(t, err)
	data, err := e.Blobs.Get(ctx, v.BlobPath)
	require.NoError(t, err)
	return string(data)
}

func versionNumbers(t *testing.T, e *Env, name string) []int {
	t.Helper()
	out, err := ListVersions(context.Background(), e, VersionsInput{Name: name})
	require.NoError(t, err)
	var ns []int
	for _, v := range out.Versions {
		ns = append(ns, v.VersionNumber)
	}
	return ns
}

func boolPtr(b bool) *bool {
	return &b
}

// hookGenerator runs before once, on the first Generate call, then delegates.
type hookGenerator struct {
	generate.Generator
	before func()
	fired  bool
}

func (h *hookGenerator) Generate(ctx context.Context, system string, turns []generate.Message) (string, error) {
	if !h.fired {
		h.fired = true
		h.before()
	}
	return h.Generator.Generate(ctx, system, turns)
}

// faultyBlobs fails or intercepts Put for one key.
type faultyBlobs struct {
	blob.Store
	failKey string
	onPut   func(key string)
}

func (f *faultyBlobs) Put(ctx context.Context, key string, data []byte, contentType string, metadata map[string]string) error {
	if key == f.failKey {
		return fmt.Errorf("injected failure writing %s", key)
	}
	if err := f.Store.Put(ctx, key, data, contentType, metadata); err != nil {
		return err
	}
	if f.onPut != nil {
		f.onPut(key)
	}
	return nil
}

package web

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/kiln/internal/blob"
	"github.com/hpungsan/kiln/internal/config"
	"github.com/hpungsan/kiln/internal/db"
	"github.com/hpungsan/kiln/internal/generate"
	"github.com/hpungsan/kiln/internal/generate/generatetest"
	"github.com/hpungsan/kiln/internal/metrics"
	"github.com/hpungsan/kiln/internal/ops"
)

func componentSource(marker string) string {
	return fmt.Sprintf("class FooBar extends HTMLElement {\n  connectedCallback() { this.textContent = %q; }\n}\ncustomElements.define('foo-bar', FooBar);", marker)
}

func setupTest(t *testing.T, gen generate.Generator) (*ops.Env, http.Handler) {
	t.Helper()
	database, err := db.Init(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	blobs, err := blob.OpenBadgerInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { blobs.Close() })

	env := &ops.Env{DB: database, Blobs: blobs, Gen: gen, Cfg: config.DefaultConfig(), Metrics: metrics.New()}
	return env, NewRouter(env)
}

func seedComponent(t *testing.T, env *ops.Env, code string) {
	t.Helper()
	_, err := ops.Create(context.Background(), env, ops.CreateInput{Name: "foo-bar", Code: code})
	require.NoError(t, err)
}

func do(t *testing.T, h http.Handler, method, target, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var decoded map[string]any
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decoded))
	}
	return w, decoded
}

func errorCode(body map[string]any) string {
	e, _ := body["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}

func TestCreateAndGet(t *testing.T) {
	_, h := setupTest(t, nil)

	body := fmt.Sprintf(`{"name": "foo-bar", "code": %q, "tags": ["ui"]}`, componentSource("v1"))
	w, resp := do(t, h, http.MethodPost, "/components", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	require.Equal(t, true, resp["success"])

	w, resp = do(t, h, http.MethodGet, "/components/foo-bar?include_content=true", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, componentSource("v1"), resp["content"])
	c := resp["component"].(map[string]any)
	require.Equal(t, float64(1), c["current_version"])

	w, resp = do(t, h, http.MethodPost, "/components", body)
	require.Equal(t, http.StatusConflict, w.Code)
	require.Equal(t, false, resp["success"])
	require.Equal(t, "NAME_ALREADY_EXISTS", errorCode(resp))
}

func TestCreate_BadBody(t *testing.T) {
	_, h := setupTest(t, nil)
	w, resp := do(t, h, http.MethodPost, "/components", "{not json")
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "INVALID_REQUEST", errorCode(resp))
}

func TestContent(t *testing.T) {
	env, h := setupTest(t, nil)
	seedComponent(t, env, componentSource("v1"))

	w, _ := do(t, h, http.MethodGet, "/components/foo-bar/content", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "application/javascript", w.Header().Get("Content-Type"))
	require.Equal(t, componentSource("v1"), w.Body.String())
}

func TestNotFound(t *testing.T) {
	_, h := setupTest(t, nil)
	w, resp := do(t, h, http.MethodGet, "/components/ghost-comp", "")
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, "NOT_FOUND", errorCode(resp))
}

func TestEditFlow(t *testing.T) {
	v2 := componentSource("v2")
	gen := generatetest.New("Done.\n```js\n"+v2+"\n```", "Changed the text.")
	env, h := setupTest(t, gen)
	seedComponent(t, env, componentSource("v1"))

	w, resp := do(t, h, http.MethodPost, "/components/foo-bar/edit", `{"instruction": "change the text", "changed_by": "alice"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Equal(t, float64(2), resp["new_version"])
	require.Equal(t, "/components/foo-bar/diff?from=1&to=2", resp["diff_endpoint"])

	w, resp = do(t, h, http.MethodGet, "/components/foo-bar/diff?from=1&to=2", "")
	require.Equal(t, http.StatusOK, w.Code)
	to := resp["to"].(map[string]any)
	require.Equal(t, v2, to["content"])

	w, resp = do(t, h, http.MethodGet, "/components/foo-bar/versions", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, resp["versions"], 2)

	w, resp = do(t, h, http.MethodGet, "/components/foo-bar/versions/current", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, v2, resp["content"])

	w, resp = do(t, h, http.MethodGet, "/components/foo-bar/transcripts", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, resp["items"], 1)

	w, resp = do(t, h, http.MethodPost, "/components/foo-bar/restore", `{"version": 1}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, float64(3), resp["new_version"])
}

func TestEdit_ValidationFailed(t *testing.T) {
	gen := generatetest.New("```js\nconsole.log('not a component at all');\n```", "summary")
	env, h := setupTest(t, gen)
	seedComponent(t, env, componentSource("v1"))

	w, resp := do(t, h, http.MethodPost, "/components/foo-bar/edit", `{"instruction": "break it"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "VALIDATION_FAILED", errorCode(resp))
	details := resp["error"].(map[string]any)["details"].(map[string]any)
	require.Equal(t, "extends_html_element", details["rule"])
}

func TestEdit_GenerationFailed(t *testing.T) {
	env, h := setupTest(t, generatetest.New())
	seedComponent(t, env, componentSource("v1"))

	w, resp := do(t, h, http.MethodPost, "/components/foo-bar/edit", `{"instruction": "anything"}`)
	require.Equal(t, http.StatusBadGateway, w.Code)
	require.Equal(t, "GENERATION_FAILED", errorCode(resp))
}

func TestDiff_QueryValidation(t *testing.T) {
	env, h := setupTest(t, nil)
	seedComponent(t, env, componentSource("v1"))

	tests := []struct {
		target string
		status int
		code   string
	}{
		{"/components/foo-bar/diff?to=1", http.StatusBadRequest, "INVALID_REQUEST"},
		{"/components/foo-bar/diff?from=x&to=1", http.StatusBadRequest, "INVALID_REQUEST"},
		{"/components/foo-bar/diff?from=1&to=4", http.StatusNotFound, "VERSION_NOT_FOUND"},
	}
	for _, tt := range tests {
		w, resp := do(t, h, http.MethodGet, tt.target, "")
		if w.Code != tt.status {
			t.Errorf("%s: status = %d, want %d", tt.target, w.Code, tt.status)
		}
		if errorCode(resp) != tt.code {
			t.Errorf("%s: code = %q, want %q", tt.target, errorCode(resp), tt.code)
		}
	}
}

func TestDocs(t *testing.T) {
	gen := generatetest.New(`{"description": "Greets.", "attributes": [{"name": "label", "type": "string"}]}`)
	env, h := setupTest(t, gen)
	seedComponent(t, env, componentSource("v1"))

	w, resp := do(t, h, http.MethodGet, "/components/foo-bar/docs", "")
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, "NOT_FOUND", errorCode(resp))

	w, _ = do(t, h, http.MethodPost, "/components/foo-bar/docs", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, resp = do(t, h, http.MethodGet, "/components/foo-bar/docs?version=1", "")
	require.Equal(t, http.StatusOK, w.Code)
	doc := resp["documentation"].(map[string]any)
	require.Equal(t, "Greets.", doc["description"])

	w, _ = do(t, h, http.MethodGet, "/components/foo-bar/docs?format=markdown", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "`label`")

	w, _ = do(t, h, http.MethodGet, "/components/foo-bar/docs?format=html", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "text/html"))
	require.Contains(t, w.Body.String(), "<table>")
}

func TestListAndSync(t *testing.T) {
	env, h := setupTest(t, nil)
	seedComponent(t, env, componentSource("v1"))

	w, resp := do(t, h, http.MethodGet, "/components?limit=5", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, resp["items"], 1)
	pagination := resp["pagination"].(map[string]any)
	require.Equal(t, float64(5), pagination["limit"])

	w, resp = do(t, h, http.MethodGet, "/components?limit=abc", "")
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "INVALID_REQUEST", errorCode(resp))

	w, resp = do(t, h, http.MethodPost, "/registry/sync", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, float64(1), resp["created"])
}

func TestHealthAndMetrics(t *testing.T) {
	_, h := setupTest(t, nil)

	w, resp := do(t, h, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "ok", resp["status"])
	require.NotEmpty(t, w.Header().Get(RequestIDHeader))

	w, _ = do(t, h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "kiln_http_requests_total")
}

func TestRequestIDPropagated(t *testing.T) {
	_, h := setupTest(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
}

func TestInternalErrorsAreMasked(t *testing.T) {
	w := httptest.NewRecorder()
	renderError(w, fmt.Errorf("disk I/O error at /var/lib/kiln"))
	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.NotContains(t, w.Body.String(), "/var/lib/kiln")
	require.Contains(t, w.Body.String(), `"INTERNAL"`)
}

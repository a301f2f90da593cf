package web

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hpungsan/kiln/internal/component"
	"github.com/hpungsan/kiln/internal/errors"
	"github.com/hpungsan/kiln/internal/ops"
)

// maxBodyBytes bounds request bodies; component source is capped well below it.
const maxBodyBytes = 1 << 20

// Handlers contains the HTTP route handlers.
type Handlers struct {
	env *ops.Env
}

type createRequest struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Category     string   `json:"category"`
	Tags         []string `json:"tags"`
	Status       string   `json:"status"`
	Code         string   `json:"code"`
	ChangedBy    string   `json:"changed_by"`
	GenerateDocs bool     `json:"generate_docs"`
}

type editRequest struct {
	Instruction    string `json:"instruction"`
	ChangedBy      string `json:"changed_by"`
	IncludeContext bool   `json:"include_context"`
	GenerateDocs   *bool  `json:"generate_docs"`
}

type restoreRequest struct {
	Version      int    `json:"version"`
	ChangedBy    string `json:"changed_by"`
	GenerateDocs *bool  `json:"generate_docs"`
}

type regenerateDocsRequest struct {
	Version int `json:"version"`
}

// HandleCreate handles POST /components.
func (h *Handlers) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := decodeBody(w, r, &req); err != nil {
		renderError(w, err)
		return
	}
	out, err := ops.Create(r.Context(), h.env, ops.CreateInput{
		Name:         req.Name,
		Description:  req.Description,
		Category:     req.Category,
		Tags:         req.Tags,
		Status:       req.Status,
		Code:         req.Code,
		ChangedBy:    req.ChangedBy,
		GenerateDocs: req.GenerateDocs,
	})
	if err != nil {
		renderError(w, err)
		return
	}
	renderJSON(w, http.StatusCreated, out)
}

// HandleList handles GET /components.
func (h *Handlers) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := intParam(r, "limit", 0)
	if err != nil {
		renderError(w, err)
		return
	}
	offset, err := intParam(r, "offset", 0)
	if err != nil {
		renderError(w, err)
		return
	}
	out, err := ops.List(r.Context(), h.env, ops.ListInput{
		Category: q.Get("category"),
		Status:   q.Get("status"),
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		renderError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, out)
}

// HandleGet handles GET /components/{name}.
func (h *Handlers) HandleGet(w http.ResponseWriter, r *http.Request) {
	out, err := ops.Get(r.Context(), h.env, ops.GetInput{
		Name:           chi.URLParam(r, "name"),
		IncludeContent: boolParam(r, "include_content"),
	})
	if err != nil {
		renderError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, out)
}

// HandleContent handles GET /components/{name}/content, serving the alias
// blob as a JavaScript module.
func (h *Handlers) HandleContent(w http.ResponseWriter, r *http.Request) {
	data, err := ops.Content(r.Context(), h.env, chi.URLParam(r, "name"))
	if err != nil {
		renderError(w, err)
		return
	}
	w.Header().Set("Content-Type", component.ContentTypeJS)
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// HandleVersions handles GET /components/{name}/versions.
func (h *Handlers) HandleVersions(w http.ResponseWriter, r *http.Request) {
	out, err := ops.ListVersions(r.Context(), h.env, ops.VersionsInput{Name: chi.URLParam(r, "name")})
	if err != nil {
		renderError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, out)
}

// HandleCurrent handles GET /components/{name}/versions/current.
func (h *Handlers) HandleCurrent(w http.ResponseWriter, r *http.Request) {
	out, err := ops.CurrentVersion(r.Context(), h.env, ops.CurrentInput{Name: chi.URLParam(r, "name")})
	if err != nil {
		renderError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, out)
}

// HandleEdit handles POST /components/{name}/edit.
func (h *Handlers) HandleEdit(w http.ResponseWriter, r *http.Request) {
	var req editRequest
	if err := decodeBody(w, r, &req); err != nil {
		renderError(w, err)
		return
	}
	out, err := ops.Edit(r.Context(), h.env, ops.EditInput{
		Name:           chi.URLParam(r, "name"),
		Instruction:    req.Instruction,
		ChangedBy:      req.ChangedBy,
		IncludeContext: req.IncludeContext,
		GenerateDocs:   req.GenerateDocs,
	})
	if err != nil {
		renderError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, out)
}

// HandleRestore handles POST /components/{name}/restore.
func (h *Handlers) HandleRestore(w http.ResponseWriter, r *http.Request) {
	var req restoreRequest
	if err := decodeBody(w, r, &req); err != nil {
		renderError(w, err)
		return
	}
	out, err := ops.Restore(r.Context(), h.env, ops.RestoreInput{
		Name:         chi.URLParam(r, "name"),
		Version:      req.Version,
		ChangedBy:    req.ChangedBy,
		GenerateDocs: req.GenerateDocs,
	})
	if err != nil {
		renderError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, out)
}

// HandleDiff handles GET /components/{name}/diff?from=&to=.
func (h *Handlers) HandleDiff(w http.ResponseWriter, r *http.Request) {
	from, err := requiredIntParam(r, "from")
	if err != nil {
		renderError(w, err)
		return
	}
	to, err := requiredIntParam(r, "to")
	if err != nil {
		renderError(w, err)
		return
	}
	out, err := ops.Diff(r.Context(), h.env, ops.DiffInput{Name: chi.URLParam(r, "name"), From: from, To: to})
	if err != nil {
		renderError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, out)
}

// HandleDocs handles GET /components/{name}/docs?version=&format=.
// markdown and html are served as documents; json uses the envelope.
func (h *Handlers) HandleDocs(w http.ResponseWriter, r *http.Request) {
	version, err := intParam(r, "version", 0)
	if err != nil {
		renderError(w, err)
		return
	}
	format := r.URL.Query().Get("format")
	out, err := ops.GetDocumentation(r.Context(), h.env, ops.DocsInput{
		Name:    chi.URLParam(r, "name"),
		Version: version,
		Format:  format,
	})
	if err != nil {
		renderError(w, err)
		return
	}

	switch format {
	case ops.DocsFormatMarkdown:
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, out.Markdown)
	case ops.DocsFormatHTML:
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, out.HTML)
	default:
		renderJSON(w, http.StatusOK, out)
	}
}

// HandleRegenerateDocs handles POST /components/{name}/docs.
func (h *Handlers) HandleRegenerateDocs(w http.ResponseWriter, r *http.Request) {
	var req regenerateDocsRequest
	if err := decodeBody(w, r, &req); err != nil {
		renderError(w, err)
		return
	}
	out, err := ops.RegenerateDocumentation(r.Context(), h.env, ops.RegenerateDocsInput{
		Name:    chi.URLParam(r, "name"),
		Version: req.Version,
	})
	if err != nil {
		renderError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, out)
}

// HandleTranscripts handles GET /components/{name}/transcripts.
func (h *Handlers) HandleTranscripts(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", 0)
	if err != nil {
		renderError(w, err)
		return
	}
	out, err := ops.ListTranscripts(r.Context(), h.env, ops.TranscriptsInput{Name: chi.URLParam(r, "name"), Limit: limit})
	if err != nil {
		renderError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, out)
}

// HandleSync handles POST /registry/sync.
func (h *Handlers) HandleSync(w http.ResponseWriter, r *http.Request) {
	out, err := ops.Sync(r.Context(), h.env)
	if err != nil {
		renderError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, out)
}

// HandleHealth handles GET /healthz.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if err := h.env.DB.PingContext(r.Context()); err != nil {
		renderError(w, errors.NewStorageFailure(err, map[string]any{"stage": "ping"}))
		return
	}
	renderJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// decodeBody reads a JSON body into v. An empty body leaves v zero.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || err == io.EOF {
		return nil
	}
	return errors.NewInvalidRequest("invalid JSON body: " + err.Error())
}

// intParam parses an integer query parameter with a default value.
func intParam(r *http.Request, name string, defaultVal int) (int, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return defaultVal, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.NewInvalidRequest(name + " must be an integer")
	}
	return v, nil
}

func requiredIntParam(r *http.Request, name string) (int, error) {
	if r.URL.Query().Get(name) == "" {
		return 0, errors.NewInvalidRequest(name + " is required")
	}
	return intParam(r, name, 0)
}

// boolParam parses a boolean query parameter.
func boolParam(r *http.Request, name string) bool {
	s := r.URL.Query().Get(name)
	return s == "true" || s == "1"
}

package mcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/kiln/internal/errors"
	"github.com/hpungsan/kiln/internal/ops"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	env *ops.Env
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(env *ops.Env) *Handlers {
	return &Handlers{env: env}
}

// Request types for each tool

// CreateRequest represents the arguments for component_create.
type CreateRequest struct {
	Name         string   `json:"name"`
	Code         string   `json:"code"`
	Description  string   `json:"description,omitempty"`
	Category     string   `json:"category,omitempty"`
	Tags         []string `json:"tags,omitempty"`
	Status       string   `json:"status,omitempty"`
	ChangedBy    string   `json:"changed_by,omitempty"`
	GenerateDocs bool     `json:"generate_docs,omitempty"`
}

// GetRequest represents the arguments for component_get.
type GetRequest struct {
	Name           string `json:"name"`
	IncludeContent bool   `json:"include_content,omitempty"`
}

// ListRequest represents the arguments for component_list.
type ListRequest struct {
	Category string `json:"category,omitempty"`
	Status   string `json:"status,omitempty"`
	Limit    int    `json:"limit,omitempty"`
	Offset   int    `json:"offset,omitempty"`
}

// VersionsRequest represents the arguments for component_versions.
type VersionsRequest struct {
	Name string `json:"name"`
}

// EditRequest represents the arguments for component_edit.
type EditRequest struct {
	Name           string `json:"name"`
	Instruction    string `json:"instruction"`
	ChangedBy      string `json:"changed_by,omitempty"`
	IncludeContext bool   `json:"include_context,omitempty"`
	GenerateDocs   *bool  `json:"generate_docs,omitempty"`
}

// RestoreRequest represents the arguments for component_restore.
type RestoreRequest struct {
	Name         string `json:"name"`
	Version      int    `json:"version"`
	ChangedBy    string `json:"changed_by,omitempty"`
	GenerateDocs *bool  `json:"generate_docs,omitempty"`
}

// DiffRequest represents the arguments for component_diff.
type DiffRequest struct {
	Name string `json:"name"`
	From int    `json:"from"`
	To   int    `json:"to"`
}

// DocsRequest represents the arguments for component_docs.
type DocsRequest struct {
	Name       string `json:"name"`
	Version    int    `json:"version,omitempty"`
	Format     string `json:"format,omitempty"`
	Regenerate bool   `json:"regenerate,omitempty"`
}

// Handler implementations

// HandleCreate handles the component_create tool call.
func (h *Handlers) HandleCreate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[CreateRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.Create(ctx, h.env, ops.CreateInput{
		Name:         input.Name,
		Code:         input.Code,
		Description:  input.Description,
		Category:     input.Category,
		Tags:         input.Tags,
		Status:       input.Status,
		ChangedBy:    input.ChangedBy,
		GenerateDocs: input.GenerateDocs,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleGet handles the component_get tool call.
func (h *Handlers) HandleGet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[GetRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.Get(ctx, h.env, ops.GetInput{Name: input.Name, IncludeContent: input.IncludeContent})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleList handles the component_list tool call.
func (h *Handlers) HandleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ListRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.List(ctx, h.env, ops.ListInput{
		Category: input.Category,
		Status:   input.Status,
		Limit:    input.Limit,
		Offset:   input.Offset,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleVersions handles the component_versions tool call.
func (h *Handlers) HandleVersions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[VersionsRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.ListVersions(ctx, h.env, ops.VersionsInput{Name: input.Name})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleEdit handles the component_edit tool call.
func (h *Handlers) HandleEdit(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[EditRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.Edit(ctx, h.env, ops.EditInput{
		Name:           input.Name,
		Instruction:    input.Instruction,
		ChangedBy:      input.ChangedBy,
		IncludeContext: input.IncludeContext,
		GenerateDocs:   input.GenerateDocs,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleRestore handles the component_restore tool call.
func (h *Handlers) HandleRestore(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[RestoreRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.Restore(ctx, h.env, ops.RestoreInput{
		Name:         input.Name,
		Version:      input.Version,
		ChangedBy:    input.ChangedBy,
		GenerateDocs: input.GenerateDocs,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleDiff handles the component_diff tool call.
func (h *Handlers) HandleDiff(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[DiffRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.Diff(ctx, h.env, ops.DiffInput{Name: input.Name, From: input.From, To: input.To})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleDocs handles the component_docs tool call. With regenerate set, the
// documentation is rebuilt first and then read back in the requested format.
func (h *Handlers) HandleDocs(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[DocsRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	version := input.Version
	if input.Regenerate {
		regen, err := ops.RegenerateDocumentation(ctx, h.env, ops.RegenerateDocsInput{Name: input.Name, Version: version})
		if err != nil {
			return errorResult(err), nil
		}
		version = regen.Documentation.Version
	}

	result, err := ops.GetDocumentation(ctx, h.env, ops.DocsInput{
		Name:    input.Name,
		Version: version,
		Format:  input.Format,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleSync handles the registry_sync tool call.
func (h *Handlers) HandleSync(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := ops.Sync(ctx, h.env)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Internal error details are not exposed.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	if kErr := errors.As(err); kErr != nil {
		errorObj := map[string]any{
			"code":    kErr.Code,
			"message": kErr.Message,
			"status":  kErr.Status,
		}
		if kErr.Code == errors.ErrInternal {
			errorObj["message"] = "an internal error occurred"
		} else if kErr.Details != nil {
			errorObj["details"] = kErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    "INTERNAL",
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}

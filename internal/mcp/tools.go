package mcp

import "github.com/mark3labs/mcp-go/mcp"

var createToolDef = mcp.NewTool("component_create",
	mcp.WithDescription("Register a new web component at version 1. The code must define a class extending HTMLElement and register it with customElements.define."),
	mcp.WithString("name", mcp.Required(), mcp.Description("Custom-element tag name, e.g. \"user-card\"")),
	mcp.WithString("code", mcp.Required(), mcp.Description("Complete ES module source")),
	mcp.WithString("description", mcp.Description("Short human description")),
	mcp.WithString("category", mcp.Description("Free-form grouping, e.g. \"forms\"")),
	mcp.WithArray("tags", mcp.WithStringItems(), mcp.Description("Tags for discovery")),
	mcp.WithString("status", mcp.Enum("active", "draft", "deprecated"), mcp.Description("Defaults to active")),
	mcp.WithString("changed_by", mcp.Description("Author recorded on version 1")),
	mcp.WithBoolean("generate_docs", mcp.Description("Generate documentation for version 1")),
)

var getToolDef = mcp.NewTool("component_get",
	mcp.WithDescription("Get a component's metadata and, optionally, its current source."),
	mcp.WithString("name", mcp.Required(), mcp.Description("Component name")),
	mcp.WithBoolean("include_content", mcp.Description("Include the current source (default false)")),
)

var listToolDef = mcp.NewTool("component_list",
	mcp.WithDescription("List components, most recently updated first."),
	mcp.WithString("category", mcp.Description("Filter by category")),
	mcp.WithString("status", mcp.Enum("active", "draft", "deprecated"), mcp.Description("Filter by status")),
	mcp.WithNumber("limit", mcp.Description("Max items (default 20, max 100)")),
	mcp.WithNumber("offset", mcp.Description("Items to skip")),
)

var versionsToolDef = mcp.NewTool("component_versions",
	mcp.WithDescription("List every version of a component, newest first, with documentation presence."),
	mcp.WithString("name", mcp.Required(), mcp.Description("Component name")),
)

var editToolDef = mcp.NewTool("component_edit",
	mcp.WithDescription("Apply a natural-language change to a component. The generated code is validated and committed as a new version. CONFLICT means another edit landed first; re-read and retry."),
	mcp.WithString("name", mcp.Required(), mcp.Description("Component name")),
	mcp.WithString("instruction", mcp.Required(), mcp.Description("What to change")),
	mcp.WithString("changed_by", mcp.Description("Author recorded on the new version")),
	mcp.WithBoolean("include_context", mcp.Description("Add relevant backend API endpoints to the prompt")),
	mcp.WithBoolean("generate_docs", mcp.Description("Generate documentation for the new version (overrides config)")),
)

var restoreToolDef = mcp.NewTool("component_restore",
	mcp.WithDescription("Copy an earlier version forward as a new version. History is never rewound."),
	mcp.WithString("name", mcp.Required(), mcp.Description("Component name")),
	mcp.WithNumber("version", mcp.Required(), mcp.Description("Version number to restore")),
	mcp.WithString("changed_by", mcp.Description("Author recorded on the new version")),
	mcp.WithBoolean("generate_docs", mcp.Description("Generate documentation for the new version (overrides config)")),
)

var diffToolDef = mcp.NewTool("component_diff",
	mcp.WithDescription("Return the stored source of two versions for comparison."),
	mcp.WithString("name", mcp.Required(), mcp.Description("Component name")),
	mcp.WithNumber("from", mcp.Required(), mcp.Description("First version number")),
	mcp.WithNumber("to", mcp.Required(), mcp.Description("Second version number")),
)

var docsToolDef = mcp.NewTool("component_docs",
	mcp.WithDescription("Read stored documentation for a component, or regenerate it."),
	mcp.WithString("name", mcp.Required(), mcp.Description("Component name")),
	mcp.WithNumber("version", mcp.Description("Version number (default: latest documented)")),
	mcp.WithString("format", mcp.Enum("json", "markdown", "html"), mcp.Description("Output format (default json)")),
	mcp.WithBoolean("regenerate", mcp.Description("Regenerate documentation for the version before returning it")),
)

var syncToolDef = mcp.NewTool("registry_sync",
	mcp.WithDescription("Project every active component into the discovery registry."),
)

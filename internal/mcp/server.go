package mcp

import (
	"slices"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hpungsan/kiln/internal/ops"
)

// Tool types. A tool's type is the prefix of its name.
const (
	TypeComponent = "component"
	TypeRegistry  = "registry"
)

// KnownTypes lists all valid type names.
var KnownTypes = []string{TypeComponent, TypeRegistry}

type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// tools is the registration order. Names must be "type_action".
var tools = []toolEntry{
	{createToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleCreate }},
	{getToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleGet }},
	{listToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleList }},
	{versionsToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleVersions }},
	{editToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleEdit }},
	{restoreToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleRestore }},
	{diffToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleDiff }},
	{docsToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleDocs }},
	{syncToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleSync }},
}

// AllToolNames returns every tool name in registration order.
func AllToolNames() []string {
	names := make([]string, len(tools))
	for i, t := range tools {
		names[i] = t.def.Name
	}
	return names
}

// ValidateDisabledTools returns the names that match no tool.
func ValidateDisabledTools(names []string) []string {
	all := AllToolNames()
	unknown := make([]string, 0)
	for _, name := range names {
		if !slices.Contains(all, name) {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// ValidateDisabledTypes returns the names that are not in KnownTypes.
func ValidateDisabledTypes(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if !slices.Contains(KnownTypes, name) {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// GetTypeForTool returns the type prefix of a tool name,
// e.g. "component_edit" → "component".
func GetTypeForTool(toolName string) string {
	typ, _, ok := strings.Cut(toolName, "_")
	if !ok || typ == "" {
		return ""
	}
	return typ
}

// ExpandTypesToTools returns all tool names belonging to the given types.
func ExpandTypesToTools(types []string) []string {
	if len(types) == 0 {
		return nil
	}
	out := make([]string, 0)
	for _, name := range AllToolNames() {
		if slices.Contains(types, GetTypeForTool(name)) {
			out = append(out, name)
		}
	}
	return out
}

// disabledSet merges DisabledTypes (expanded) and DisabledTools from config.
func disabledSet(env *ops.Env) map[string]bool {
	disabled := make(map[string]bool)
	if env.Cfg == nil {
		return disabled
	}
	for _, name := range ExpandTypesToTools(env.Cfg.DisabledTypes) {
		disabled[name] = true
	}
	for _, name := range env.Cfg.DisabledTools {
		disabled[name] = true
	}
	return disabled
}

// NewServer returns an MCP server exposing the component tools that are
// not disabled by configuration.
func NewServer(env *ops.Env, version string) *server.MCPServer {
	s := server.NewMCPServer("kiln", version, server.WithToolCapabilities(true))

	h := NewHandlers(env)
	disabled := disabledSet(env)
	for _, t := range tools {
		if disabled[t.def.Name] {
			continue
		}
		s.AddTool(t.def, t.handler(h))
	}
	return s
}

// Run serves MCP over stdio until stdin closes.
func Run(env *ops.Env, version string) error {
	return server.ServeStdio(NewServer(env, version))
}

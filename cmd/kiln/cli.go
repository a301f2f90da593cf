package main

import (
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/hpungsan/kiln/internal/errors"
	"github.com/hpungsan/kiln/internal/mcp"
	"github.com/hpungsan/kiln/internal/ops"
	"github.com/hpungsan/kiln/internal/web"
)

// Output streams; tests swap them.
var (
	stdin  io.Reader = os.Stdin
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

// newCLIApp creates the CLI application with all commands. env is nil when
// only help or version output is needed.
func newCLIApp(env *ops.Env) *cli.App {
	app := &cli.App{
		Name:    "kiln",
		Usage:   "Versioned web-component store with AI-assisted edits",
		Version: Version,
		Commands: []*cli.Command{
			serveCmd(env),
			mcpCmd(env),
			createCmd(env),
			getCmd(env),
			listCmd(env),
			versionsCmd(env),
			editCmd(env),
			restoreCmd(env),
			diffCmd(env),
			docsCmd(env),
			syncCmd(env),
			repairCmd(env),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// serveCmd creates the serve command.
func serveCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the HTTP API",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Value: "127.0.0.1", Usage: "Address to bind"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Value: 8340, Usage: "Port to listen on"},
		},
		Action: func(c *cli.Context) error {
			srv := web.NewServer(env, c.String("bind"), c.Int("port"))
			return web.Run(srv, env.Logger)
		},
	}
}

// mcpCmd creates the mcp command.
func mcpCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Serve MCP tools over stdio",
		Action: func(c *cli.Context) error {
			return mcp.Run(env, Version)
		},
	}
}

// createCmd creates the create command.
func createCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:      "create",
		Usage:     "Register a new component (reads code from stdin)",
		ArgsUsage: "<name>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "description", Aliases: []string{"d"}, Usage: "Short description"},
			&cli.StringFlag{Name: "category", Aliases: []string{"c"}, Usage: "Category"},
			&cli.StringFlag{Name: "tags", Usage: "Comma-separated tags"},
			&cli.StringFlag{Name: "status", Value: "active", Usage: "Status: active|draft|deprecated"},
			&cli.StringFlag{Name: "changed-by", Usage: "Author recorded on version 1"},
			&cli.BoolFlag{Name: "docs", Usage: "Generate documentation for version 1"},
		},
		Action: func(c *cli.Context) error {
			name, err := nameArg(c)
			if err != nil {
				return outputError(err)
			}
			if !stdinHasData() {
				return outputError(errors.NewInvalidRequest("code must be piped via stdin"))
			}
			code, err := readStdin()
			if err != nil {
				return outputError(errors.NewInternal(err))
			}

			output, err := ops.Create(c.Context, env, ops.CreateInput{
				Name:         name,
				Description:  c.String("description"),
				Category:     c.String("category"),
				Tags:         parseTags(c.String("tags")),
				Status:       c.String("status"),
				Code:         code,
				ChangedBy:    c.String("changed-by"),
				GenerateDocs: c.Bool("docs"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// getCmd creates the get command.
func getCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "Show a component",
		ArgsUsage: "<name>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "content", Usage: "Include the current source"},
			&cli.BoolFlag{Name: "raw", Usage: "Print only the current source"},
		},
		Action: func(c *cli.Context) error {
			name, err := nameArg(c)
			if err != nil {
				return outputError(err)
			}
			if c.Bool("raw") {
				data, err := ops.Content(c.Context, env, name)
				if err != nil {
					return outputError(err)
				}
				_, err = stdout.Write(data)
				return err
			}

			output, err := ops.Get(c.Context, env, ops.GetInput{Name: name, IncludeContent: c.Bool("content")})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// listCmd creates the list command.
func listCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List components, most recently updated first",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "category", Aliases: []string{"c"}, Usage: "Filter by category"},
			&cli.StringFlag{Name: "status", Usage: "Filter by status"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultListLimit, Usage: "Max items"},
			&cli.IntFlag{Name: "offset", Aliases: []string{"o"}, Usage: "Items to skip"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.List(c.Context, env, ops.ListInput{
				Category: c.String("category"),
				Status:   c.String("status"),
				Limit:    c.Int("limit"),
				Offset:   c.Int("offset"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// versionsCmd creates the versions command.
func versionsCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:      "versions",
		Usage:     "List versions of a component",
		ArgsUsage: "<name>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "current", Usage: "Show only the current version with its source"},
		},
		Action: func(c *cli.Context) error {
			name, err := nameArg(c)
			if err != nil {
				return outputError(err)
			}
			if c.Bool("current") {
				output, err := ops.CurrentVersion(c.Context, env, ops.CurrentInput{Name: name})
				if err != nil {
					return outputError(err)
				}
				return outputJSON(output)
			}
			output, err := ops.ListVersions(c.Context, env, ops.VersionsInput{Name: name})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// editCmd creates the edit command.
func editCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:      "edit",
		Usage:     "Apply a natural-language change (instruction via flag or stdin)",
		ArgsUsage: "<name>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "instruction", Aliases: []string{"i"}, Usage: "What to change"},
			&cli.StringFlag{Name: "changed-by", Usage: "Author recorded on the new version"},
			&cli.BoolFlag{Name: "context", Usage: "Add relevant API endpoints to the prompt"},
			&cli.BoolFlag{Name: "docs", Usage: "Generate documentation (overrides config; --docs=false disables)"},
		},
		Action: func(c *cli.Context) error {
			name, err := nameArg(c)
			if err != nil {
				return outputError(err)
			}
			instruction := c.String("instruction")
			if instruction == "" && stdinHasData() {
				if instruction, err = readStdin(); err != nil {
					return outputError(errors.NewInternal(err))
				}
			}

			output, err := ops.Edit(c.Context, env, ops.EditInput{
				Name:           name,
				Instruction:    instruction,
				ChangedBy:      c.String("changed-by"),
				IncludeContext: c.Bool("context"),
				GenerateDocs:   optionalBool(c, "docs"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// restoreCmd creates the restore command.
func restoreCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:      "restore",
		Usage:     "Copy an earlier version forward as a new version",
		ArgsUsage: "<name>",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "to", Required: true, Usage: "Version number to restore"},
			&cli.StringFlag{Name: "changed-by", Usage: "Author recorded on the new version"},
			&cli.BoolFlag{Name: "docs", Usage: "Generate documentation (overrides config)"},
		},
		Action: func(c *cli.Context) error {
			name, err := nameArg(c)
			if err != nil {
				return outputError(err)
			}
			output, err := ops.Restore(c.Context, env, ops.RestoreInput{
				Name:         name,
				Version:      c.Int("to"),
				ChangedBy:    c.String("changed-by"),
				GenerateDocs: optionalBool(c, "docs"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// diffCmd creates the diff command.
func diffCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:      "diff",
		Usage:     "Show the source of two versions",
		ArgsUsage: "<name>",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "from", Required: true, Usage: "First version"},
			&cli.IntFlag{Name: "to", Required: true, Usage: "Second version"},
		},
		Action: func(c *cli.Context) error {
			name, err := nameArg(c)
			if err != nil {
				return outputError(err)
			}
			output, err := ops.Diff(c.Context, env, ops.DiffInput{Name: name, From: c.Int("from"), To: c.Int("to")})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// docsCmd creates the docs command.
func docsCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:      "docs",
		Usage:     "Show or regenerate component documentation",
		ArgsUsage: "<name>",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "version", Usage: "Version number (default: latest documented)"},
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Value: ops.DocsFormatJSON, Usage: "json|markdown|html"},
			&cli.BoolFlag{Name: "regenerate", Usage: "Regenerate before showing"},
		},
		Action: func(c *cli.Context) error {
			name, err := nameArg(c)
			if err != nil {
				return outputError(err)
			}
			version := c.Int("version")
			if c.Bool("regenerate") {
				regen, err := ops.RegenerateDocumentation(c.Context, env, ops.RegenerateDocsInput{Name: name, Version: version})
				if err != nil {
					return outputError(err)
				}
				version = regen.Documentation.Version
			}

			output, err := ops.GetDocumentation(c.Context, env, ops.DocsInput{Name: name, Version: version, Format: c.String("format")})
			if err != nil {
				return outputError(err)
			}
			switch c.String("format") {
			case ops.DocsFormatMarkdown:
				_, err = io.WriteString(stdout, output.Markdown)
				return err
			case ops.DocsFormatHTML:
				_, err = io.WriteString(stdout, output.HTML)
				return err
			}
			return outputJSON(output)
		},
	}
}

// syncCmd creates the sync command.
func syncCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Project active components into the discovery registry",
		Action: func(c *cli.Context) error {
			output, err := ops.Sync(c.Context, env)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// repairCmd creates the repair command.
func repairCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:      "repair",
		Usage:     "Rewrite a component's alias from its current version",
		ArgsUsage: "<name>",
		Action: func(c *cli.Context) error {
			name, err := nameArg(c)
			if err != nil {
				return outputError(err)
			}
			output, err := ops.RepairAlias(c.Context, env, ops.RepairInput{Name: name})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// Helper functions

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError writes the error as JSON to stderr and exits 1.
// Internal causes are not printed.
func outputError(err error) error {
	kErr := errors.As(err)
	if kErr == nil {
		kErr = errors.NewInternal(err)
	}
	body := map[string]any{"code": kErr.Code, "message": kErr.Message}
	if kErr.Code == errors.ErrInternal {
		body["message"] = "internal error"
	} else if kErr.Details != nil {
		body["details"] = kErr.Details
	}
	enc := json.NewEncoder(stderr)
	enc.SetIndent("", "  ")
	_ = enc.Encode(map[string]any{"error": body})
	return cli.Exit("", 1)
}

// nameArg returns the first positional argument.
func nameArg(c *cli.Context) (string, error) {
	if c.NArg() == 0 {
		return "", errors.NewInvalidRequest("component name argument is required")
	}
	return c.Args().First(), nil
}

// optionalBool returns nil unless the flag was given explicitly.
func optionalBool(c *cli.Context, name string) *bool {
	if !c.IsSet(name) {
		return nil
	}
	v := c.Bool(name)
	return &v
}

// stdinHasData returns true if stdin has piped data (not a terminal).
func stdinHasData() bool {
	f, ok := stdin.(*os.File)
	if !ok {
		return stdin != nil
	}
	stat, err := f.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// readStdin reads all content from stdin.
func readStdin() (string, error) {
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// parseTags splits a comma-separated string into a slice of tags.
func parseTags(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/hpungsan/kiln/internal/blob"
	"github.com/hpungsan/kiln/internal/config"
	"github.com/hpungsan/kiln/internal/db"
	"github.com/hpungsan/kiln/internal/generate"
	"github.com/hpungsan/kiln/internal/mcp"
	"github.com/hpungsan/kiln/internal/metrics"
	"github.com/hpungsan/kiln/internal/ops"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// envHome overrides the default ~/.kiln base directory.
const envHome = "KILN_HOME"

// cliCommands contains known CLI subcommands.
var cliCommands = map[string]bool{
	"serve": true, "mcp": true,
	"create": true, "get": true, "list": true, "versions": true,
	"edit": true, "restore": true, "diff": true, "docs": true,
	"sync": true, "repair": true,
	"help": true,
}

// isCLIMode determines if we should run CLI vs MCP server.
func isCLIMode() bool {
	if len(os.Args) < 2 {
		return false // No args → MCP server
	}
	arg := os.Args[1]
	if cliCommands[arg] {
		return true
	}
	if arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" {
		return true
	}
	return false
}

// isHelpOrVersion returns true if the user is requesting help or version info.
func isHelpOrVersion() bool {
	if len(os.Args) < 2 {
		return false
	}
	arg := os.Args[1]
	return arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" || arg == "help"
}

// isTerminal returns true if stdin is a terminal (not piped).
func isTerminal() bool {
	stat, _ := os.Stdin.Stat()
	return (stat.Mode() & os.ModeCharDevice) != 0
}

// printBanner displays a friendly banner when run interactively without args.
func printBanner() {
	fmt.Println(`
   _  _ _ _
  | |/ (_) |_ _
  | ' <| | | ' \
  |_|\_\_|_|_||_|

  Versioned web-component store with AI-assisted edits

  Usage: kiln <command> [options]
         kiln --help

  MCP server mode requires piped input.`)
}

// baseDir returns $KILN_HOME or ~/.kiln.
func baseDir() (string, error) {
	if dir := strings.TrimSpace(os.Getenv(envHome)); dir != "" {
		return dir, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".kiln"), nil
}

// newLogger builds the process logger. serve logs JSON; everything else
// logs text. Logs always go to stderr so stdout stays clean for output and
// the MCP protocol.
func newLogger(level string, json bool, w io.Writer) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if json {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// openEnv wires every collaborator the operations need.
func openEnv(ctx context.Context, dir string, cfg *config.Config, logger *slog.Logger) (*ops.Env, func(), error) {
	database, err := db.Init(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	db.ConfigurePool(database, cfg)

	blobs, err := blob.New(ctx, cfg, dir, logger)
	if err != nil {
		database.Close()
		return nil, nil, fmt.Errorf("failed to open blob store: %w", err)
	}

	m := metrics.New()
	gen, err := generate.New(cfg, logger, m)
	if err != nil {
		blobs.Close()
		database.Close()
		return nil, nil, fmt.Errorf("failed to configure generator: %w", err)
	}

	env := &ops.Env{
		DB:      database,
		Blobs:   blobs,
		Gen:     gen,
		Cfg:     cfg,
		Logger:  logger,
		Metrics: m,
	}
	closeFn := func() {
		if err := blobs.Close(); err != nil {
			logger.Warn("blob store close failed", slog.String("error", err.Error()))
		}
		database.Close()
	}
	return env, closeFn, nil
}

func main() {
	// No args + interactive terminal → show banner and exit
	if len(os.Args) < 2 && isTerminal() {
		printBanner()
		return
	}

	// Handle --help/--version before any storage is opened
	if isHelpOrVersion() {
		app := newCLIApp(nil)
		if err := app.Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	dir, err := baseDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	cwd, err := os.Getwd()
	if err != nil {
		cwd = dir
	}
	cfg, err := config.LoadWithRepo(dir, cwd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to load config: %v\n", err)
		os.Exit(1)
	}

	if unknown := mcp.ValidateDisabledTools(cfg.DisabledTools); len(unknown) > 0 {
		fmt.Fprintf(os.Stderr, "warning: unknown tools in disabled_tools: %s\n", strings.Join(unknown, ", "))
	}
	if unknown := mcp.ValidateDisabledTypes(cfg.DisabledTypes); len(unknown) > 0 {
		fmt.Fprintf(os.Stderr, "warning: unknown types in disabled_types: %s\n", strings.Join(unknown, ", "))
	}

	logger := newLogger(cfg.LogLevel, len(os.Args) >= 2 && os.Args[1] == "serve", os.Stderr)
	env, closeEnv, err := openEnv(context.Background(), dir, cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer closeEnv()

	// CLI mode: known subcommand
	if isCLIMode() {
		app := newCLIApp(env)
		if err := app.Run(os.Args); err != nil {
			if msg := err.Error(); msg != "" {
				fmt.Fprintf(os.Stderr, "error: %s\n", msg)
			}
			closeEnv()
			os.Exit(1)
		}
		return
	}

	// Unknown argument + terminal → show error (don't start MCP server)
	if len(os.Args) >= 2 && isTerminal() {
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n", os.Args[1])
		fmt.Fprintf(os.Stderr, "Run 'kiln --help' for usage.\n")
		closeEnv()
		os.Exit(1)
	}

	// MCP server mode (default)
	if err := mcp.Run(env, Version); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		closeEnv()
		os.Exit(1)
	}
}

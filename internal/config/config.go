package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// Blob backend names.
const (
	BlobBackendBadger = "badger"
	BlobBackendS3     = "s3"
	BlobBackendGCS    = "gcs"
)

// Config holds application configuration.
type Config struct {
	// BlobBackend selects the blob store: "badger" (local, default), "s3" or "gcs".
	BlobBackend string `json:"blob_backend,omitempty"`

	// BadgerDir is where the local blob store keeps its files.
	// Relative paths are resolved against the base directory. Default: "blobs".
	BadgerDir string `json:"badger_dir,omitempty"`

	S3  S3Config  `json:"s3,omitempty"`
	GCS GCSConfig `json:"gcs,omitempty"`

	Generator GeneratorConfig `json:"generator,omitempty"`
	Retry     RetryConfig     `json:"retry,omitempty"`

	// APIDocsURL points at a JSON API-documentation document (OpenAPI-shaped)
	// used to enrich edit prompts. Empty disables enrichment.
	APIDocsURL string `json:"api_docs_url,omitempty"`

	// APIDocsTimeoutSecs bounds the API-documentation fetch. Default: 10.
	APIDocsTimeoutSecs int `json:"api_docs_timeout_secs,omitempty"`

	// PublicBaseURL is the externally reachable base URL used for registry
	// discovery links (content, docs).
	PublicBaseURL string `json:"public_base_url,omitempty"`

	// GenerateDocsOnEdit runs the documentation pipeline after every
	// successful edit unless the request says otherwise.
	GenerateDocsOnEdit bool `json:"generate_docs_on_edit,omitempty"`

	// RestoreMaxAttempts bounds internal retries of a restore that lost the
	// compare-and-swap on current_version. Default: 3.
	RestoreMaxAttempts int `json:"restore_max_attempts,omitempty"`

	// LogLevel is one of debug, info, warn, error. Default: info.
	LogLevel string `json:"log_level,omitempty"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// If set to 1, all database access is serialized (reduces "database is locked" errors).
	// 0 means use sql.DB default (unlimited). Only set if you experience contention.
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	// 0 means use sql.DB default. Typically set equal to DBMaxOpenConns.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	// Unknown tool names are logged as warnings.
	DisabledTools []string `json:"disabled_tools,omitempty"`

	// DisabledTypes is a list of type names to disable entirely.
	// Known types: "component", "registry". Unknown type names are logged as warnings.
	DisabledTypes []string `json:"disabled_types,omitempty"`
}

// S3Config configures the S3 blob backend. Endpoint and UsePathStyle allow
// S3-compatible stores such as MinIO.
type S3Config struct {
	Bucket       string `json:"bucket,omitempty"`
	Region       string `json:"region,omitempty"`
	Endpoint     string `json:"endpoint,omitempty"`
	Prefix       string `json:"prefix,omitempty"`
	UsePathStyle bool   `json:"use_path_style,omitempty"`
	AccessKey    string `json:"access_key,omitempty"`
	SecretKey    string `json:"secret_key,omitempty"`
}

// GCSConfig configures the Google Cloud Storage blob backend.
type GCSConfig struct {
	Bucket          string `json:"bucket,omitempty"`
	Prefix          string `json:"prefix,omitempty"`
	CredentialsFile string `json:"credentials_file,omitempty"`
}

// GeneratorConfig configures the text-generation provider.
type GeneratorConfig struct {
	// Provider is one of "openai", "openai-compatible", "anthropic".
	Provider    string  `json:"provider,omitempty"`
	Model       string  `json:"model,omitempty"`
	APIKey      string  `json:"api_key,omitempty"`
	BaseURL     string  `json:"base_url,omitempty"`
	Temperature float32 `json:"temperature,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
	TimeoutSecs int     `json:"timeout_secs,omitempty"`
}

// RetryConfig configures exponential backoff around generator calls.
type RetryConfig struct {
	MaxAttempts      int     `json:"max_attempts,omitempty"`
	InitialBackoffMs int     `json:"initial_backoff_ms,omitempty"`
	MaxBackoffMs     int     `json:"max_backoff_ms,omitempty"`
	Multiplier       float64 `json:"multiplier,omitempty"`
	JitterFactor     float64 `json:"jitter_factor,omitempty"`
}

// Environment variables that override secrets from the config file.
const (
	EnvGeneratorAPIKey = "KILN_GENERATOR_API_KEY"
	EnvS3AccessKey     = "KILN_S3_ACCESS_KEY"
	EnvS3SecretKey     = "KILN_S3_SECRET_KEY"
)

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		BlobBackend: BlobBackendBadger,
		BadgerDir:   "blobs",
		Generator: GeneratorConfig{
			Provider:    "openai",
			Model:       "gpt-4o",
			Temperature: 0.2,
			MaxTokens:   4096,
			TimeoutSecs: 120,
		},
		Retry: RetryConfig{
			MaxAttempts:      3,
			InitialBackoffMs: 1000,
			MaxBackoffMs:     30000,
			Multiplier:       2.0,
			JitterFactor:     0.2,
		},
		APIDocsTimeoutSecs: 10,
		PublicBaseURL:      "http://localhost:8340",
		RestoreMaxAttempts: 3,
		LogLevel:           "info",
	}
}

// Load loads configuration from baseDir/config.json and applies environment
// overrides. Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.kiln.
func Load(baseDir string) (*Config, error) {
	cfg, err := loadFile(filepath.Join(baseDir, "config.json"))
	if err != nil {
		return nil, err
	}
	ApplyEnv(cfg, os.Getenv)
	return cfg, nil
}

// LoadWithRepo loads configuration from both global (~/.kiln) and repo (.kiln) directories.
// Repo config is found by walking upward from startDir to find the nearest .kiln/config.json.
// Repo config takes precedence for scalar values; arrays are merged (deduplicated).
// Either or both configs may be missing.
func LoadWithRepo(globalDir, startDir string) (*Config, error) {
	global, err := loadFileRaw(filepath.Join(globalDir, "config.json"))
	if err != nil {
		return nil, err
	}

	repo, err := loadFileRaw(FindRepoConfig(startDir))
	if err != nil {
		return nil, err
	}

	cfg := Merge(Merge(DefaultConfig(), global), repo)
	ApplyEnv(cfg, os.Getenv)
	return cfg, nil
}

// FindRepoConfig walks upward from startDir to find the nearest .kiln/config.json.
// Returns the path if found, or empty string if not found.
func FindRepoConfig(startDir string) string {
	dir := startDir
	for {
		configPath := filepath.Join(dir, ".kiln", "config.json")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// ApplyEnv overrides secrets from the environment. getenv is injected so tests
// don't need to mutate process state.
func ApplyEnv(cfg *Config, getenv func(string) string) {
	if v := strings.TrimSpace(getenv(EnvGeneratorAPIKey)); v != "" {
		cfg.Generator.APIKey = v
	}
	if v := strings.TrimSpace(getenv(EnvS3AccessKey)); v != "" {
		cfg.S3.AccessKey = v
	}
	if v := strings.TrimSpace(getenv(EnvS3SecretKey)); v != "" {
		cfg.S3.SecretKey = v
	}
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	if configPath == "" {
		return &Config{}, nil
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFile loads configuration from a specific file path.
// Returns default config if the file doesn't exist.
func loadFile(configPath string) (*Config, error) {
	cfg, err := loadFileRaw(configPath)
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{}

	result.BlobBackend = pickString(overlay.BlobBackend, base.BlobBackend)
	result.BadgerDir = pickString(overlay.BadgerDir, base.BadgerDir)

	result.S3 = S3Config{
		Bucket:       pickString(overlay.S3.Bucket, base.S3.Bucket),
		Region:       pickString(overlay.S3.Region, base.S3.Region),
		Endpoint:     pickString(overlay.S3.Endpoint, base.S3.Endpoint),
		Prefix:       pickString(overlay.S3.Prefix, base.S3.Prefix),
		UsePathStyle: base.S3.UsePathStyle || overlay.S3.UsePathStyle,
		AccessKey:    pickString(overlay.S3.AccessKey, base.S3.AccessKey),
		SecretKey:    pickString(overlay.S3.SecretKey, base.S3.SecretKey),
	}
	result.GCS = GCSConfig{
		Bucket:          pickString(overlay.GCS.Bucket, base.GCS.Bucket),
		Prefix:          pickString(overlay.GCS.Prefix, base.GCS.Prefix),
		CredentialsFile: pickString(overlay.GCS.CredentialsFile, base.GCS.CredentialsFile),
	}

	result.Generator = GeneratorConfig{
		Provider:    pickString(overlay.Generator.Provider, base.Generator.Provider),
		Model:       pickString(overlay.Generator.Model, base.Generator.Model),
		APIKey:      pickString(overlay.Generator.APIKey, base.Generator.APIKey),
		BaseURL:     pickString(overlay.Generator.BaseURL, base.Generator.BaseURL),
		Temperature: overlay.Generator.Temperature,
		MaxTokens:   pickInt(overlay.Generator.MaxTokens, base.Generator.MaxTokens),
		TimeoutSecs: pickInt(overlay.Generator.TimeoutSecs, base.Generator.TimeoutSecs),
	}
	if result.Generator.Temperature == 0 {
		result.Generator.Temperature = base.Generator.Temperature
	}

	result.Retry = RetryConfig{
		MaxAttempts:      pickInt(overlay.Retry.MaxAttempts, base.Retry.MaxAttempts),
		InitialBackoffMs: pickInt(overlay.Retry.InitialBackoffMs, base.Retry.InitialBackoffMs),
		MaxBackoffMs:     pickInt(overlay.Retry.MaxBackoffMs, base.Retry.MaxBackoffMs),
		Multiplier:       overlay.Retry.Multiplier,
		JitterFactor:     overlay.Retry.JitterFactor,
	}
	if result.Retry.Multiplier == 0 {
		result.Retry.Multiplier = base.Retry.Multiplier
	}
	if result.Retry.JitterFactor == 0 {
		result.Retry.JitterFactor = base.Retry.JitterFactor
	}

	result.APIDocsURL = pickString(overlay.APIDocsURL, base.APIDocsURL)
	result.APIDocsTimeoutSecs = pickInt(overlay.APIDocsTimeoutSecs, base.APIDocsTimeoutSecs)
	result.PublicBaseURL = pickString(overlay.PublicBaseURL, base.PublicBaseURL)
	result.RestoreMaxAttempts = pickInt(overlay.RestoreMaxAttempts, base.RestoreMaxAttempts)
	result.LogLevel = pickString(overlay.LogLevel, base.LogLevel)
	result.DBMaxOpenConns = pickInt(overlay.DBMaxOpenConns, base.DBMaxOpenConns)
	result.DBMaxIdleConns = pickInt(overlay.DBMaxIdleConns, base.DBMaxIdleConns)

	// Booleans: overlay wins if true, else base
	result.GenerateDocsOnEdit = base.GenerateDocsOnEdit || overlay.GenerateDocsOnEdit

	// Arrays: merge and deduplicate
	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)
	result.DisabledTypes = mergeStringSlice(base.DisabledTypes, overlay.DisabledTypes)

	return result
}

func pickString(overlay, base string) string {
	if strings.TrimSpace(overlay) != "" {
		return overlay
	}
	return base
}

func pickInt(overlay, base int) int {
	if overlay != 0 {
		return overlay
	}
	return base
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range a {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}
	for _, s := range b {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}

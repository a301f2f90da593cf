package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, dir, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte(body), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
}

func TestLoad_DefaultWhenMissing(t *testing.T) {
	tmpDir := t.TempDir()

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.BlobBackend != BlobBackendBadger {
		t.Errorf("BlobBackend = %q, want %q", cfg.BlobBackend, BlobBackendBadger)
	}
	if cfg.Retry.MaxAttempts != 3 {
		t.Errorf("Retry.MaxAttempts = %d, want 3", cfg.Retry.MaxAttempts)
	}
	if cfg.RestoreMaxAttempts != 3 {
		t.Errorf("RestoreMaxAttempts = %d, want 3", cfg.RestoreMaxAttempts)
	}
}

func TestLoad_OverridesFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	writeConfig(t, tmpDir, `{
		"blob_backend": "s3",
		"s3": {"bucket": "components", "use_path_style": true},
		"generator": {"provider": "anthropic", "model": "claude-x"},
		"retry": {"max_attempts": 5}
	}`)

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.BlobBackend != "s3" {
		t.Errorf("BlobBackend = %q, want s3", cfg.BlobBackend)
	}
	if cfg.S3.Bucket != "components" || !cfg.S3.UsePathStyle {
		t.Errorf("S3 = %+v", cfg.S3)
	}
	if cfg.Generator.Provider != "anthropic" || cfg.Generator.Model != "claude-x" {
		t.Errorf("Generator = %+v", cfg.Generator)
	}
	// Unset nested fields keep their defaults
	if cfg.Generator.MaxTokens != 4096 {
		t.Errorf("Generator.MaxTokens = %d, want default 4096", cfg.Generator.MaxTokens)
	}
	if cfg.Retry.MaxAttempts != 5 {
		t.Errorf("Retry.MaxAttempts = %d, want 5", cfg.Retry.MaxAttempts)
	}
	if cfg.Retry.MaxBackoffMs != 30000 {
		t.Errorf("Retry.MaxBackoffMs = %d, want default 30000", cfg.Retry.MaxBackoffMs)
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	tmpDir := t.TempDir()
	writeConfig(t, tmpDir, `{not json}`)

	if _, err := Load(tmpDir); err == nil {
		t.Fatalf("Load() expected error, got nil")
	}
}

func TestLoad_DisabledTools(t *testing.T) {
	tmpDir := t.TempDir()
	writeConfig(t, tmpDir, `{"disabled_tools": ["component_edit", "registry_sync"]}`)

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if len(cfg.DisabledTools) != 2 {
		t.Fatalf("DisabledTools length = %d, want 2", len(cfg.DisabledTools))
	}
	if cfg.DisabledTools[0] != "component_edit" {
		t.Errorf("DisabledTools[0] = %q, want %q", cfg.DisabledTools[0], "component_edit")
	}
}

func TestApplyEnv(t *testing.T) {
	cfg := DefaultConfig()
	env := map[string]string{
		EnvGeneratorAPIKey: " sk-test ",
		EnvS3AccessKey:     "AKIA",
	}

	ApplyEnv(cfg, func(k string) string { return env[k] })

	if cfg.Generator.APIKey != "sk-test" {
		t.Errorf("Generator.APIKey = %q, want %q", cfg.Generator.APIKey, "sk-test")
	}
	if cfg.S3.AccessKey != "AKIA" {
		t.Errorf("S3.AccessKey = %q, want AKIA", cfg.S3.AccessKey)
	}
	if cfg.S3.SecretKey != "" {
		t.Errorf("S3.SecretKey = %q, want empty", cfg.S3.SecretKey)
	}
}

func TestMerge_ArraysDeduplicated(t *testing.T) {
	base := &Config{DisabledTypes: []string{"registry", " component "}}
	overlay := &Config{DisabledTypes: []string{"component", ""}}

	merged := Merge(base, overlay)

	if len(merged.DisabledTypes) != 2 {
		t.Fatalf("DisabledTypes = %v, want 2 entries", merged.DisabledTypes)
	}
}

func TestMerge_BooleansOr(t *testing.T) {
	merged := Merge(&Config{GenerateDocsOnEdit: true}, &Config{})
	if !merged.GenerateDocsOnEdit {
		t.Error("GenerateDocsOnEdit = false, want true (base wins when overlay unset)")
	}
}

func TestLoadWithRepo_RepoOverridesGlobal(t *testing.T) {
	globalDir := t.TempDir()
	writeConfig(t, globalDir, `{"public_base_url": "https://global.example", "log_level": "debug"}`)

	repoRoot := t.TempDir()
	if err := os.MkdirAll(filepath.Join(repoRoot, ".kiln"), 0700); err != nil {
		t.Fatal(err)
	}
	writeConfig(t, filepath.Join(repoRoot, ".kiln"), `{"public_base_url": "https://repo.example"}`)

	nested := filepath.Join(repoRoot, "a", "b")
	if err := os.MkdirAll(nested, 0700); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadWithRepo(globalDir, nested)
	if err != nil {
		t.Fatalf("LoadWithRepo() error = %v", err)
	}
	if cfg.PublicBaseURL != "https://repo.example" {
		t.Errorf("PublicBaseURL = %q, want repo value", cfg.PublicBaseURL)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want global value", cfg.LogLevel)
	}
}

func TestFindRepoConfig_NotFoundInsideDir(t *testing.T) {
	dir := t.TempDir()
	if got := FindRepoConfig(dir); strings.HasPrefix(got, dir) {
		t.Errorf("FindRepoConfig() = %q, want nothing under %q", got, dir)
	}
}

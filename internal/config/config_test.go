// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

func TestLoadConfigOrDefault_NoFile(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HIGHLIGHT_LOCATOR_CONFIG_DIR", t.TempDir())

	cfg := LoadConfigOrDefault("")
	if cfg == nil {
		t.Fatal("expected non-nil config")
	}
	if cfg.Defaults.Format != "text" {
		t.Errorf("expected default format, got %q", cfg.Defaults.Format)
	}
}

func TestLoadConfigOrDefault_NonexistentFile(t *testing.T) {
	cfg := LoadConfigOrDefault("/nonexistent/path/config.yaml")
	if cfg == nil {
		t.Fatal("expected non-nil config (fallback to defaults)")
	}
}

func TestLoadConfigOrDefault_InvalidYAML(t *testing.T) {
	cfg := LoadConfigOrDefault(writeConfig(t, ":::invalid yaml:::"))
	if cfg == nil {
		t.Fatal("expected non-nil config (fallback to defaults on parse error)")
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Defaults.Units != "byte" {
		t.Errorf("expected default units=byte, got %q", cfg.Defaults.Units)
	}
	if !cfg.Search.NormalizeQuotes || !cfg.Search.PartialMatch || cfg.Search.CaseSensitive {
		t.Errorf("unexpected default search options %+v", cfg.Search)
	}
	if cfg.Validation.MaxQuotedLength != 1500 {
		t.Errorf("expected max_quoted_length=1500, got %d", cfg.Validation.MaxQuotedLength)
	}
	if cfg.Partial.LongNeedleThreshold != 50 || cfg.Partial.MinMatchLength != 30 {
		t.Errorf("unexpected partial defaults %+v", cfg.Partial)
	}
	if cfg.LLM.Enabled {
		t.Error("LLM should be disabled by default")
	}
	if err := ValidateConfig(cfg); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadConfig_PartialOverride(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, `
defaults:
  format: json
  units: utf16
search:
  case_sensitive: true
fuzzy:
  max_errors: 4
llm:
  enabled: true
  model: gemini-2.5-flash
  timeout: 10s
`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Defaults.Format != "json" || cfg.Defaults.Units != "utf16" {
		t.Errorf("defaults not applied: %+v", cfg.Defaults)
	}
	if !cfg.Search.CaseSensitive {
		t.Error("expected case_sensitive from file")
	}
	if !cfg.Search.NormalizeQuotes {
		t.Error("keys absent from the file should keep their defaults")
	}
	if cfg.Fuzzy.MaxErrors != 4 || cfg.Fuzzy.ErrorDivisor != 8 {
		t.Errorf("unexpected fuzzy config %+v", cfg.Fuzzy)
	}
	if !cfg.LLM.Enabled || cfg.LLM.Model != "gemini-2.5-flash" || cfg.LLM.Timeout != 10*time.Second {
		t.Errorf("unexpected llm config %+v", cfg.LLM)
	}
	if cfg.LLM.APIKeyEnv != "GEMINI_API_KEY" {
		t.Errorf("expected default api_key_env, got %q", cfg.LLM.APIKeyEnv)
	}
}

func TestLoadConfig_RejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"format":    "defaults:\n  format: xml\n",
		"units":     "defaults:\n  units: furlongs\n",
		"threshold": "fuzzy:\n  bitap_threshold: 1.5\n",
		"partial":   "partial:\n  min_match_length: 0\n",
		"scores":    "validation:\n  min_score: 100\n  max_score: 0\n",
		"provider":  "llm:\n  provider: other\n",
		"profile":   "defaults:\n  profile: missing\n",
		"typos":     "profiles:\n  x:\n    max_typos: -1\n",
		"breaker":   "llm:\n  breaker_threshold: -1\n",
		"scan":      "partial:\n  max_scan_bytes: -1\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := LoadConfig(writeConfig(t, content)); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestSearchOptions_Profiles(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	opts, err := cfg.SearchOptions("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts != cfg.Search {
		t.Errorf("no profile should return the search section, got %+v", opts)
	}

	opts, err = cfg.SearchOptions("spelling")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !opts.CaseSensitive || opts.PartialMatch || opts.MaxTypos != 1 {
		t.Errorf("spelling profile not applied: %+v", opts)
	}
	if !opts.NormalizeQuotes {
		t.Error("unset profile fields should keep search values")
	}
	if opts.PluginName != "spelling" {
		t.Errorf("expected plugin name from profile, got %q", opts.PluginName)
	}

	opts, _ = cfg.SearchOptions("fact-check")
	if !opts.UseLLMFallback || opts.LLMContext == "" {
		t.Errorf("fact-check profile should enable the model: %+v", opts)
	}

	if _, err := cfg.SearchOptions("nope"); err == nil {
		t.Error("expected unknown profile error")
	}
}

func TestListProfiles_Sorted(t *testing.T) {
	cfg := Default()
	got := cfg.ListProfiles()
	want := []string{"fact-check", "forecast", "math", "spelling"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("expected %v, got %v", want, got)
		}
	}
}

func TestHighlightConfig_Workers(t *testing.T) {
	cfg := Default()
	cfg.Defaults.Workers = 3
	if got := cfg.HighlightConfig().Workers; got != 3 {
		t.Errorf("expected workers from defaults, got %d", got)
	}
	cfg.Validation.Workers = 2
	if got := cfg.HighlightConfig().Workers; got != 2 {
		t.Errorf("validation section should win, got %d", got)
	}
}

func TestFindConfigFile_CurrentDirectory(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	if err := os.WriteFile(filepath.Join(dir, ".highlight-locator.yaml"), []byte("defaults:\n  format: yaml\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if got := FindConfigFile(); got != ".highlight-locator.yaml" {
		t.Errorf("expected project config, got %q", got)
	}
	if cfg := LoadConfigOrDefault(""); cfg.Defaults.Format != "yaml" {
		t.Errorf("expected format from discovered file, got %q", cfg.Defaults.Format)
	}
}

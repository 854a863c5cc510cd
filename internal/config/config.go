// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"highlight-locator/internal/highlight"
	"highlight-locator/internal/lines"
	"highlight-locator/internal/llm"
	"highlight-locator/internal/locate"
	"highlight-locator/internal/paths"
	"highlight-locator/internal/textnorm"
)

// Config represents the application configuration
type Config struct {
	// Default settings
	Defaults struct {
		Format  string `yaml:"format"`
		Units   string `yaml:"units"`
		Profile string `yaml:"profile"`
		Debug   bool   `yaml:"debug"`
		NoColor bool   `yaml:"no_color"`
		Workers int    `yaml:"workers"`
	} `yaml:"defaults"`

	// Search options used when no profile is selected
	Search locate.Options `yaml:"search"`

	// Matcher tuning constants
	Fuzzy   locate.FuzzyConfig   `yaml:"fuzzy"`
	Partial locate.PartialConfig `yaml:"partial"`
	Lines   lines.Config         `yaml:"lines"`

	// Highlight validation limits
	Validation highlight.Config `yaml:"validation"`

	// Model collaborator for LLM-assisted location
	LLM LLMConfig `yaml:"llm"`

	// Profiles are named search option overrides, one per highlight source
	Profiles map[string]Profile `yaml:"profiles"`
}

// LLMConfig selects and tunes the model used as the last strategy.
type LLMConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Provider   string `yaml:"provider"`
	llm.Config `yaml:",inline"`
}

// Profile overrides the search options for one highlight source. Unset
// fields keep the value from the search section.
type Profile struct {
	Description     string `yaml:"description"`
	NormalizeQuotes *bool  `yaml:"normalize_quotes"`
	PartialMatch    *bool  `yaml:"partial_match"`
	CaseSensitive   *bool  `yaml:"case_sensitive"`
	MaxTypos        *int   `yaml:"max_typos"`
	UseLLMFallback  *bool  `yaml:"use_llm_fallback"`
	LLMContext      string `yaml:"llm_context"`
}

func boolPtr(b bool) *bool { return &b }
func intPtr(i int) *int    { return &i }

// Default returns the built-in configuration.
func Default() *Config {
	config := &Config{
		Search:     locate.DefaultOptions(),
		Fuzzy:      locate.DefaultFuzzyConfig(),
		Partial:    locate.DefaultPartialConfig(),
		Lines:      lines.DefaultConfig(),
		Validation: highlight.DefaultConfig(),
		LLM: LLMConfig{
			Provider: "gemini",
			Config:   llm.DefaultConfig(),
		},
		Profiles: make(map[string]Profile),
	}
	config.Defaults.Format = "text"
	config.Defaults.Units = textnorm.UnitByte.String()

	config.Profiles["fact-check"] = Profile{
		Description:    "Claims quoted loosely by a reviewer; falls back to the model",
		UseLLMFallback: boolPtr(true),
		LLMContext:     "The search text is a claim quoted from the document for fact checking.",
	}
	config.Profiles["spelling"] = Profile{
		Description:   "Misspelled words must be matched as written",
		CaseSensitive: boolPtr(true),
		PartialMatch:  boolPtr(false),
		MaxTypos:      intPtr(1),
	}
	config.Profiles["math"] = Profile{
		Description:     "Formulas and numbers; no partial fragments",
		PartialMatch:    boolPtr(false),
		NormalizeQuotes: boolPtr(true),
	}
	config.Profiles["forecast"] = Profile{
		Description: "Predictions quoted from the document",
	}
	return config
}

// LoadConfig loads configuration from the specified file path. An empty
// path returns the defaults.
func LoadConfig(configPath string) (*Config, error) {
	config := Default()
	if configPath == "" {
		return config, nil
	}

	cleanPath := filepath.Clean(configPath)
	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// decoding into the populated defaults keeps every key the file omits
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := ValidateConfig(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// FindConfigFile looks for a configuration file in standard locations
func FindConfigFile() string {
	for _, name := range []string{
		"highlight-locator.yaml",
		"highlight-locator.yml",
		".highlight-locator.yaml",
		".highlight-locator.yml",
	} {
		if fileExists(name) {
			return name
		}
	}

	if standard := paths.GetConfigFile(); standard != "" && fileExists(standard) {
		return standard
	}

	if home, err := os.UserHomeDir(); err == nil {
		homeConfig := filepath.Join(home, ".highlight-locator.yaml")
		if fileExists(homeConfig) {
			return homeConfig
		}
	}
	return ""
}

// fileExists checks if a file exists and is not a directory
func fileExists(filename string) bool {
	info, err := os.Stat(filename)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// ListProfiles returns the profile names in sorted order
func (c *Config) ListProfiles() []string {
	profiles := make([]string, 0, len(c.Profiles))
	for name := range c.Profiles {
		profiles = append(profiles, name)
	}
	sort.Strings(profiles)
	return profiles
}

// GetProfile returns a profile by name, or nil if not found
func (c *Config) GetProfile(name string) *Profile {
	if profile, exists := c.Profiles[name]; exists {
		return &profile
	}
	return nil
}

// SearchOptions returns the search options for a profile. An empty name
// selects Defaults.Profile, and when that is empty too the search section
// is used as is. The profile name doubles as the plugin name in logs.
func (c *Config) SearchOptions(profileName string) (locate.Options, error) {
	opts := c.Search
	if profileName == "" {
		profileName = c.Defaults.Profile
	}
	if profileName == "" {
		return opts, nil
	}

	profile := c.GetProfile(profileName)
	if profile == nil {
		return opts, fmt.Errorf("unknown profile %q (available: %v)", profileName, c.ListProfiles())
	}
	if profile.NormalizeQuotes != nil {
		opts.NormalizeQuotes = *profile.NormalizeQuotes
	}
	if profile.PartialMatch != nil {
		opts.PartialMatch = *profile.PartialMatch
	}
	if profile.CaseSensitive != nil {
		opts.CaseSensitive = *profile.CaseSensitive
	}
	if profile.MaxTypos != nil {
		opts.MaxTypos = *profile.MaxTypos
	}
	if profile.UseLLMFallback != nil {
		opts.UseLLMFallback = *profile.UseLLMFallback
	}
	if profile.LLMContext != "" {
		opts.LLMContext = profile.LLMContext
	}
	if opts.PluginName == "" {
		opts.PluginName = profileName
	}
	return opts, nil
}

// HighlightConfig returns the validation limits with the worker default applied.
func (c *Config) HighlightConfig() highlight.Config {
	v := c.Validation
	if v.Workers == 0 {
		v.Workers = c.Defaults.Workers
	}
	return v
}

// ValidateConfig checks value ranges so bad tuning fails at load time
// instead of silently degrading matches.
func ValidateConfig(config *Config) error {
	if config == nil {
		return fmt.Errorf("configuration cannot be nil")
	}

	switch config.Defaults.Format {
	case "text", "json", "yaml", "csv":
	default:
		return fmt.Errorf("defaults.format: unsupported format %q", config.Defaults.Format)
	}
	if _, err := textnorm.ParseUnit(config.Defaults.Units); err != nil {
		return fmt.Errorf("defaults.units: %w", err)
	}
	if config.Defaults.Workers < 0 {
		return fmt.Errorf("defaults.workers must not be negative")
	}
	if p := config.Defaults.Profile; p != "" && config.GetProfile(p) == nil {
		return fmt.Errorf("defaults.profile: unknown profile %q", p)
	}
	if config.Search.MaxTypos < 0 {
		return fmt.Errorf("search.max_typos must not be negative")
	}

	if err := validateFuzzy(config.Fuzzy); err != nil {
		return fmt.Errorf("fuzzy: %w", err)
	}
	if err := validatePartial(config.Partial); err != nil {
		return fmt.Errorf("partial: %w", err)
	}
	if err := validateLines(config.Lines); err != nil {
		return fmt.Errorf("lines: %w", err)
	}
	if err := validateValidation(config.Validation); err != nil {
		return fmt.Errorf("validation: %w", err)
	}

	if config.LLM.Provider != "gemini" {
		return fmt.Errorf("llm.provider: unsupported provider %q", config.LLM.Provider)
	}
	if config.LLM.Model == "" {
		return fmt.Errorf("llm.model is required")
	}
	if config.LLM.Timeout < 0 || config.LLM.MaxRetries < 0 {
		return fmt.Errorf("llm.timeout and llm.max_retries must not be negative")
	}
	if config.LLM.BreakerThreshold < 0 || config.LLM.BreakerCooldown < 0 {
		return fmt.Errorf("llm.breaker_threshold and llm.breaker_cooldown must not be negative")
	}

	for name, profile := range config.Profiles {
		if profile.MaxTypos != nil && *profile.MaxTypos < 0 {
			return fmt.Errorf("profile %q: max_typos must not be negative", name)
		}
	}
	return nil
}

func inUnit(f float64) bool { return f >= 0 && f <= 1 }

func validateFuzzy(f locate.FuzzyConfig) error {
	switch {
	case f.ErrorDivisor <= 0:
		return fmt.Errorf("error_divisor must be positive")
	case f.MinErrors < 0 || f.MaxErrors < f.MinErrors:
		return fmt.Errorf("need 0 <= min_errors <= max_errors")
	case !inUnit(f.AcceptRatio) || !inUnit(f.BitapThreshold) || !inUnit(f.SimilarityFloor) || !inUnit(f.SlidingWindowCeiling):
		return fmt.Errorf("ratios and thresholds must be within [0,1]")
	case f.WindowFactor < 1 || f.MaxExpansionFactor < 1:
		return fmt.Errorf("window_factor and max_expansion_factor must be at least 1")
	}
	return nil
}

func validatePartial(p locate.PartialConfig) error {
	switch {
	case p.MinMatchLength <= 0 || p.LongNeedleThreshold <= 0:
		return fmt.Errorf("lengths must be positive")
	case !inUnit(p.ConfidenceCeiling):
		return fmt.Errorf("confidence_ceiling must be within [0,1]")
	case p.MaxCandidates <= 0:
		return fmt.Errorf("max_candidates must be positive")
	case p.MaxScanBytes < 0:
		return fmt.Errorf("max_scan_bytes must not be negative")
	}
	return nil
}

func validateLines(l lines.Config) error {
	switch {
	case l.NeighborRadius < 0:
		return fmt.Errorf("neighbor_radius must not be negative")
	case !inUnit(l.SimilarityFloor):
		return fmt.Errorf("similarity_floor must be within [0,1]")
	case l.PartialMinLen <= 0 || l.PartialMaxLen < l.PartialMinLen:
		return fmt.Errorf("need 0 < partial_min_len <= partial_max_len")
	case l.FallbackSpan <= 0 || l.LastDitchSpan <= 0 || l.PrefixLength < 0:
		return fmt.Errorf("spans must be positive")
	}
	return nil
}

func validateValidation(v highlight.Config) error {
	switch {
	case v.MaxQuotedLength <= 0:
		return fmt.Errorf("max_quoted_length must be positive")
	case v.MinScore >= v.MaxScore:
		return fmt.Errorf("min_score must be below max_score")
	case v.DefaultImportance < v.MinScore || v.DefaultImportance > v.MaxScore ||
		v.DefaultLineImportance < v.MinScore || v.DefaultLineImportance > v.MaxScore:
		return fmt.Errorf("default importances must lie within [min_score,max_score]")
	case v.Workers < 0:
		return fmt.Errorf("workers must not be negative")
	}
	return nil
}

// LoadConfigOrDefault loads configuration from configFile (or searches standard locations
// when configFile is empty). If loading fails, it returns a default configuration.
func LoadConfigOrDefault(configFile string) *Config {
	configPath := configFile
	if configPath == "" {
		configPath = FindConfigFile()
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		// callers should not crash on a missing or bad config file
		return Default()
	}
	return cfg
}

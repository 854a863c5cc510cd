// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package llm provides the model collaborator behind LLM-assisted location.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	genai "google.golang.org/genai"

	"highlight-locator/internal/locate"
	"highlight-locator/internal/observability"
	"highlight-locator/internal/resilience"
)

const componentName = "gemini_completer"

// ErrInvalidJSON is returned when the model reply is not the expected object.
var ErrInvalidJSON = errors.New("llm: invalid JSON from model")

// Config selects the model and bounds each call.
type Config struct {
	Model       string        `yaml:"model"`
	APIKey      string        `yaml:"-"`
	APIKeyEnv   string        `yaml:"api_key_env"`
	Timeout     time.Duration `yaml:"timeout"`
	Temperature float32       `yaml:"temperature"`
	MaxRetries  int           `yaml:"max_retries"`

	// BreakerThreshold consecutive outages stop model calls for BreakerCooldown
	BreakerThreshold int           `yaml:"breaker_threshold"`
	BreakerCooldown  time.Duration `yaml:"breaker_cooldown"`
}

// DefaultConfig returns the stock model settings.
func DefaultConfig() Config {
	breaker := resilience.DefaultBreakerConfig(componentName)
	return Config{
		Model:            "gemini-2.0-flash",
		APIKeyEnv:        "GEMINI_API_KEY",
		Timeout:          30 * time.Second,
		MaxRetries:       2,
		BreakerThreshold: breaker.Threshold,
		BreakerCooldown:  breaker.Cooldown,
	}
}

// ResolveAPIKey returns the explicit key or the one in the configured
// environment variable.
func (c Config) ResolveAPIKey() string {
	if c.APIKey != "" {
		return c.APIKey
	}
	if c.APIKeyEnv != "" {
		return os.Getenv(c.APIKeyEnv)
	}
	return ""
}

// contentGenerator is the part of genai.Models the completer uses.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiCompleter implements locate.Completer with structured Gemini output.
// Transient failures are retried and repeated failures trip a breaker so a
// batch of unresolved highlights does not hammer an unavailable backend.
type GeminiCompleter struct {
	models   contentGenerator
	config   Config
	policy   resilience.Policy
	breaker  *resilience.Breaker
	observer *observability.StandardObserver
}

// NewGeminiCompleter creates a completer backed by the Gemini API.
func NewGeminiCompleter(ctx context.Context, config Config, observer *observability.StandardObserver) (*GeminiCompleter, error) {
	apiKey := config.ResolveAPIKey()
	if apiKey == "" {
		return nil, fmt.Errorf("no API key: set %s or llm.api_key_env", config.APIKeyEnv)
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return newGeminiCompleter(client.Models, config, observer), nil
}

func newGeminiCompleter(models contentGenerator, config Config, observer *observability.StandardObserver) *GeminiCompleter {
	policy := resilience.DefaultPolicy().WithRetries(config.MaxRetries)
	policy.OnRetry = func(attempt int, err error, wait time.Duration) {
		observer.Warn(componentName, "retrying model call", map[string]interface{}{
			"attempt": attempt,
			"wait":    wait.String(),
			"error":   err.Error(),
		})
	}

	breaker := resilience.DefaultBreakerConfig(componentName)
	if config.BreakerThreshold > 0 {
		breaker.Threshold = config.BreakerThreshold
	}
	if config.BreakerCooldown > 0 {
		breaker.Cooldown = config.BreakerCooldown
	}
	breaker.OnStateChange = func(name string, from, to resilience.BreakerState) {
		observer.Warn(componentName, "circuit breaker state change", map[string]interface{}{
			"breaker": name,
			"from":    from.String(),
			"to":      to.String(),
		})
	}

	return &GeminiCompleter{
		models:   models,
		config:   config,
		policy:   policy,
		breaker:  resilience.NewBreaker(breaker),
		observer: observer,
	}
}

// Complete asks the model for the passage described by req.
func (g *GeminiCompleter) Complete(ctx context.Context, req locate.LLMRequest) (*locate.LLMMatch, error) {
	finish := g.observer.StartTiming(componentName, "complete", req.PluginName)

	match, err := resilience.Call(ctx, g.policy, g.breaker, func(ctx context.Context) (*locate.LLMMatch, error) {
		return g.generate(ctx, req)
	})

	finish(err == nil, map[string]interface{}{
		"model":  g.config.Model,
		"plugin": req.PluginName,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini %s: %w", g.config.Model, err)
	}
	return match, nil
}

// BreakerStats exposes the breaker state for diagnostics.
func (g *GeminiCompleter) BreakerStats() resilience.BreakerStats {
	return g.breaker.Stats()
}

func (g *GeminiCompleter) generate(ctx context.Context, req locate.LLMRequest) (*locate.LLMMatch, error) {
	if g.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.config.Timeout)
		defer cancel()
	}

	temperature := g.config.Temperature
	resp, err := g.models.GenerateContent(ctx, g.config.Model,
		[]*genai.Content{{Role: "user", Parts: []*genai.Part{{Text: req.UserPrompt}}}},
		&genai.GenerateContentConfig{
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: req.SystemPrompt}}},
			Temperature:       &temperature,
			ResponseMIMEType:  "application/json",
			ResponseSchema:    matchSchema(),
		},
	)
	if err != nil {
		return nil, classifyAPIError(err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil ||
		len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, resilience.NewInvalidResponseError("model returned no candidates", ErrInvalidJSON)
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		text.WriteString(part.Text)
	}
	return parseMatch(text.String())
}

// matchSchema describes the object the model must return.
func matchSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"found":       {Type: genai.TypeBoolean},
			"matchedText": {Type: genai.TypeString, Description: "the passage copied exactly from the document"},
			"startOffset": {Type: genai.TypeInteger},
			"endOffset":   {Type: genai.TypeInteger},
			"confidence":  {Type: genai.TypeNumber},
		},
		Required: []string{"found", "matchedText", "startOffset", "endOffset", "confidence"},
	}
}

// parseMatch decodes a reply, tolerating a markdown code fence around it.
func parseMatch(text string) (*locate.LLMMatch, error) {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	}
	var match locate.LLMMatch
	if err := json.Unmarshal([]byte(text), &match); err != nil {
		return nil, resilience.NewInvalidResponseError("model reply is not a match object", fmt.Errorf("%w: %v", ErrInvalidJSON, err))
	}
	return &match, nil
}

// classifyAPIError maps genai status errors onto the resilience taxonomy.
func classifyAPIError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return resilience.ClassifyStatus(apiErr.Code, err)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return resilience.ClassifyStatus(apiErrPtr.Code, err)
	}
	return resilience.ClassifyError(err)
}

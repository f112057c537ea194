// Package config loads runtime configuration for the mesh from defaults, an
// optional YAML file, and PARKMESH_-prefixed environment variables, in that
// order of precedence.
package config

import (
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Log          LogConfig          `koanf:"log"`
	Orchestrator OrchestratorConfig `koanf:"orchestrator"`
	Tools        ToolsConfig        `koanf:"tools"`
	Guardrail    GuardrailConfig    `koanf:"guardrail"`
	Profile      ProfileConfig      `koanf:"profile"`
	Reasoning    ReasoningConfig    `koanf:"reasoning"`
}

type LogConfig struct {
	Level     string `koanf:"level"`
	Format    string `koanf:"format"` // json, text
	AddSource bool   `koanf:"add_source"`
}

type OrchestratorConfig struct {
	// DefaultDeadline bounds runs whose tasks carry no deadline.
	DefaultDeadline time.Duration `koanf:"default_deadline"`

	// HandoffRetries is the number of alternate agents tried after a
	// rejected handoff before the run fails.
	HandoffRetries int `koanf:"handoff_retries"`

	// CueBuffer is the per-channel capacity of the cue bus.
	CueBuffer int `koanf:"cue_buffer"`

	// MinBranchSuccesses is the minimum number of augmentative branches
	// that must succeed for a run to avoid failure. Zero means any.
	MinBranchSuccesses int `koanf:"min_branch_successes"`

	// SearchLimit caps merged candidate lists from fan-out searches.
	SearchLimit int `koanf:"search_limit"`
}

type ToolsConfig struct {
	MaxTries        int           `koanf:"max_tries"`
	InitialInterval time.Duration `koanf:"initial_interval"`
	MaxInterval     time.Duration `koanf:"max_interval"`
	Timeout         time.Duration `koanf:"timeout"`
}

type GuardrailConfig struct {
	MaxOutputBytes int      `koanf:"max_output_bytes"`
	OutputRetries  int      `koanf:"output_retries"`
	RedactPII      bool     `koanf:"redact_pii"`
	BannedTerms    []string `koanf:"banned_terms"`
}

type ProfileConfig struct {
	CacheTTL     time.Duration `koanf:"cache_ttl"`
	CacheMaxCost int64         `koanf:"cache_max_cost"`
}

type ReasoningConfig struct {
	Provider    string  `koanf:"provider"` // mock, anthropic, openai
	Model       string  `koanf:"model"`
	Temperature float64 `koanf:"temperature"`
	MaxTokens   int64   `koanf:"max_tokens"`
	APIKey      string  `koanf:"api_key"`
}

// Global k instance
var k = koanf.New(".")

func Load(path string) (*Config, error) {
	// Defaults
	k.Set("log.level", "info")
	k.Set("log.format", "text")
	k.Set("log.add_source", false)

	k.Set("orchestrator.default_deadline", "30s")
	k.Set("orchestrator.handoff_retries", 2)
	k.Set("orchestrator.cue_buffer", 8)
	k.Set("orchestrator.min_branch_successes", 0)
	k.Set("orchestrator.search_limit", 5)

	k.Set("tools.max_tries", 3)
	k.Set("tools.initial_interval", "100ms")
	k.Set("tools.max_interval", "2s")
	k.Set("tools.timeout", "5s")

	k.Set("guardrail.max_output_bytes", 64*1024)
	k.Set("guardrail.output_retries", 1)
	k.Set("guardrail.redact_pii", true)

	k.Set("profile.cache_ttl", "5m")
	k.Set("profile.cache_max_cost", 1<<20)

	k.Set("reasoning.provider", "mock")
	k.Set("reasoning.temperature", 0.2)
	k.Set("reasoning.max_tokens", 4096)

	// 1. Load from file
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, err
		}
	}

	// 2. Load from ENV (PARKMESH_ORCHESTRATOR_CUE_BUFFER -> orchestrator.cue_buffer)
	if err := k.Load(env.Provider("PARKMESH_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(
			strings.TrimPrefix(s, "PARKMESH_")), "_", ".", -1)
	}), nil); err != nil {
		return nil, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

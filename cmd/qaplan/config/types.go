// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

type QAPlanConfig struct {
	// Backends: inference backend order and per-backend overrides
	Backends BackendsConfig `yaml:"backends"`

	// Generation: retry budget and sampling knobs for structured generation
	Generation GenerationConfig `yaml:"generation"`

	// Output: where artifacts land by default
	Output OutputConfig `yaml:"output"`

	// Logging: level and optional log directory
	Logging LoggingConfig `yaml:"logging"`
}

type BackendsConfig struct {
	// Order is the fallback order, first available wins.
	Order []string `yaml:"order"` // e.g. ["local", "openai", "anthropic"]

	LocalBaseURL   string `yaml:"local_base_url,omitempty"`  // e.g. http://localhost:8080
	OpenAIBaseURL  string `yaml:"openai_base_url,omitempty"` // set to target an OpenAI-compatible server
	OpenAIModel    string `yaml:"openai_model,omitempty"`    // e.g. gpt-4o-mini
	AnthropicModel string `yaml:"anthropic_model,omitempty"` // e.g. claude-3-5-sonnet-20240620
}

type GenerationConfig struct {
	MaxAttempts       int     `yaml:"max_attempts"`        // gateway calls per validated generation
	TimeoutSeconds    int     `yaml:"timeout_seconds"`     // per gateway call
	Temperature       float32 `yaml:"temperature"`         // fixed across retries
	ScenarioMaxTokens int     `yaml:"scenario_max_tokens"` // completion cap for scenario synthesis
	CaseMaxTokens     int     `yaml:"case_max_tokens"`     // completion cap for case generation
}

type OutputConfig struct {
	Dir string `yaml:"dir"` // default artifact directory
}

type LoggingConfig struct {
	Level string `yaml:"level"`          // debug, info, warn, error
	Dir   string `yaml:"dir,omitempty"`  // optional log file directory
	JSON  bool   `yaml:"json,omitempty"` // JSON log lines instead of text
}

func DefaultConfig() QAPlanConfig {
	return QAPlanConfig{
		Backends: BackendsConfig{
			Order: []string{"local", "openai", "anthropic"},
		},
		Generation: GenerationConfig{
			MaxAttempts:       3,
			TimeoutSeconds:    120,
			Temperature:       0.1,
			ScenarioMaxTokens: 3000,
			CaseMaxTokens:     4000,
		},
		Output: OutputConfig{
			Dir: "./qa-artifacts",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/AleutianAI/AleutianQA/pkg/logging"
)

// BackendSettings is the resolved backend configuration. The CLI maps
// the YAML config and flags onto this; the llm package never reads
// config files itself.
type BackendSettings struct {
	// Order is the fallback order, e.g. ["local", "openai", "anthropic"].
	Order []string

	// Preferred, when non-empty, restricts resolution to exactly one
	// backend; no fallback is attempted.
	Preferred string

	// LocalBaseURL overrides the local server URL. Empty uses
	// LLM_SERVICE_URL_BASE or the llama.cpp default.
	LocalBaseURL string

	// OpenAIBaseURL, when set, points the "openai" backend at an
	// OpenAI-compatible server instead of hosted OpenAI.
	OpenAIBaseURL string

	// OpenAIModel and AnthropicModel override the per-backend model
	// defaults.
	OpenAIModel    string
	AnthropicModel string
}

// DefaultOrder is the fallback order when config names none.
var DefaultOrder = []string{"local", "openai", "anthropic"}

// BackendStatus pairs a backend's identity with its probed availability.
type BackendStatus struct {
	Info      BackendInfo `json:"info"`
	Available bool        `json:"available"`
	InitError string      `json:"init_error,omitempty"`
}

// Resolve selects exactly one Client from the ordered backend list.
//
// Each candidate is constructed and probed in order; the first
// available one wins. When settings.Preferred is set, only that
// backend is considered and an unavailable preferred backend is an
// error rather than a fallback. Resolution happens once at pipeline
// construction; the result is used for every gateway call of the run.
func Resolve(ctx context.Context, settings BackendSettings, log *logging.Logger) (Client, error) {
	order := settings.Order
	if len(order) == 0 {
		order = DefaultOrder
	}
	if settings.Preferred != "" {
		order = []string{settings.Preferred}
	}

	var tried []string
	for _, name := range order {
		client, err := build(name, settings)
		if err != nil {
			log.Debug("backend not constructable", "backend", name, "error", err)
			tried = append(tried, fmt.Sprintf("%s (%v)", name, err))
			continue
		}
		if !client.Available(ctx) {
			log.Debug("backend not available", "backend", name)
			tried = append(tried, name+" (unreachable)")
			continue
		}
		log.Info("selected inference backend", "backend", name, "model", client.Info().Model)
		return client, nil
	}

	if settings.Preferred != "" {
		return nil, fmt.Errorf("preferred backend %q is not available", settings.Preferred)
	}
	return nil, fmt.Errorf("no inference backend available, tried: %s", strings.Join(tried, ", "))
}

// Statuses constructs and probes every backend in the configured order
// without selecting one. Used by the `qaplan runtimes` command.
func Statuses(ctx context.Context, settings BackendSettings) []BackendStatus {
	order := settings.Order
	if len(order) == 0 {
		order = DefaultOrder
	}

	statuses := make([]BackendStatus, 0, len(order))
	for _, name := range order {
		client, err := build(name, settings)
		if err != nil {
			statuses = append(statuses, BackendStatus{
				Info:      BackendInfo{Name: name},
				InitError: err.Error(),
			})
			continue
		}
		statuses = append(statuses, BackendStatus{
			Info:      client.Info(),
			Available: client.Available(ctx),
		})
	}
	return statuses
}

func build(name string, settings BackendSettings) (Client, error) {
	switch name {
	case "local":
		return NewLocalLlamaCppClient(settings.LocalBaseURL)
	case "openai":
		return NewOpenAIClient(OpenAIOptions{
			BaseURL: settings.OpenAIBaseURL,
			Model:   settings.OpenAIModel,
		})
	case "anthropic":
		return NewAnthropicClient(settings.AnthropicModel)
	default:
		return nil, fmt.Errorf("unknown backend %q", name)
	}
}

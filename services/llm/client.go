// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package llm provides the inference gateway: a uniform call contract
// to any text-generation backend, local or hosted.
//
// All backends implement Client. Failures are classified as
// *GatewayError so the retry policy in pkg/structured can decide
// whether a retry is sane. The backend is selected exactly once at
// startup by Resolve; it is never re-decided per call.
package llm

import "context"

type GenerationParams struct {
	Temperature *float32 `json:"temperature"`
	TopK        *int     `json:"top_k"`
	TopP        *float32 `json:"top_p"`
	MaxTokens   *int     `json:"max_tokens"`
	Stop        []string `json:"stop"`
}

// BackendInfo describes a configured backend for diagnostics.
type BackendInfo struct {
	Name    string `json:"name"`
	Kind    string `json:"kind"` // "local", "openai", "anthropic", "scripted"
	Model   string `json:"model,omitempty"`
	BaseURL string `json:"base_url,omitempty"`
}

// Client defines the standard interface for any LLM backend.
//
// Generate must honor ctx cancellation and deadlines; the pipeline's
// per-call timeout arrives through ctx. Implementations retain no
// state between calls.
type Client interface {
	Generate(ctx context.Context, prompt string, params GenerationParams) (string, error)

	// Available reports whether the backend is currently reachable.
	// Used once during backend resolution, never on the hot path.
	Available(ctx context.Context) bool

	Info() BackendInfo
}

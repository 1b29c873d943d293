// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package structured wraps an inference backend with a
// schema-validated generation loop. Every model call goes through
// Generator.Generate, which decodes the reply strictly into a typed
// target and retries with an error-annotated prompt until the reply
// conforms or the attempt budget runs out.
//
// The retry policy is deliberately simple: fixed temperature, fixed
// token limit, same backend, bounded attempts. Creative resampling is
// the enemy of schema conformance here.
package structured

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"time"

	"github.com/AleutianAI/AleutianQA/pkg/logging"
	"github.com/AleutianAI/AleutianQA/services/llm"
	"github.com/AleutianAI/AleutianQA/services/qa/datatypes"
)

const (
	// DefaultMaxAttempts bounds gateway calls per Generate invocation.
	DefaultMaxAttempts = 3

	// DefaultTimeout bounds each individual gateway call.
	DefaultTimeout = 120 * time.Second

	// DefaultTemperature keeps sampling near-deterministic. The same
	// value is reused on every retry.
	DefaultTemperature float32 = 0.1

	// rawOutputPromptLimit bounds the invalid output echoed back in a
	// repair prompt.
	rawOutputPromptLimit = 6000
)

// Check is an extra semantic validation run after strict decoding and
// struct validation pass. Stages use checks to enforce cross-entity
// rules the struct tags cannot express, such as AC id membership. A
// failing Check counts as a schema violation and triggers the same
// repair path.
type Check func(out any) error

// Config tunes a Generator. The zero value is usable: defaults are
// applied in New.
type Config struct {
	MaxAttempts int
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
}

// ValidationError reports that the model never produced a
// schema-conformant reply within the attempt budget. RawOutput is the
// final attempt's verbatim reply, preserved for the error report.
type ValidationError struct {
	RawOutput string
	Violation string
	Attempts  int
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("model output failed schema validation after %d attempts: %s", e.Attempts, e.Violation)
}

// Generator runs the validated generation loop against one backend.
type Generator struct {
	client llm.Client
	config Config
	log    *logging.Logger
}

// New builds a Generator over the given backend, filling config
// defaults for any zero field.
func New(client llm.Client, config Config, log *logging.Logger) *Generator {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = DefaultMaxAttempts
	}
	if config.Temperature == 0 {
		config.Temperature = DefaultTemperature
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	if log == nil {
		log = logging.Default()
	}
	return &Generator{client: client, config: config, log: log}
}

// Generate issues prompt to the backend and decodes the reply into
// out, which must be a non-nil pointer to a struct.
//
// Each reply is decoded strictly (unknown fields and trailing data
// rejected), then struct-validated, then run through the optional
// checks. A reply that fails only because of surrounding prose is
// first rescued in-process via ExtractJSON, with no extra gateway
// call. Only when a reply is genuinely non-conformant is the gateway
// called again, with the prompt augmented by the specific violation.
// Transient gateway errors consume attempts like invalid replies do.
//
// On exhaustion Generate returns a *ValidationError carrying the last
// raw reply. A gateway failure with no reply ever received is
// returned as-is.
func (g *Generator) Generate(ctx context.Context, prompt string, out any, checks ...Check) error {
	rv := reflect.ValueOf(out)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("structured: out must be a non-nil pointer, got %T", out)
	}

	params := llm.GenerationParams{Temperature: &g.config.Temperature}
	if g.config.MaxTokens > 0 {
		maxTokens := g.config.MaxTokens
		params.MaxTokens = &maxTokens
	}

	currentPrompt := prompt
	var lastRaw string
	var lastViolation string
	var lastGatewayErr error
	parsedOnce := false

	for attempt := 1; attempt <= g.config.MaxAttempts; attempt++ {
		raw, err := g.call(ctx, currentPrompt, params)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			var gwErr *llm.GatewayError
			if errors.As(err, &gwErr) && gwErr.Transient() {
				g.log.Warn("gateway call failed, retrying",
					"attempt", attempt, "backend", gwErr.Backend, "kind", string(gwErr.Kind))
				lastGatewayErr = err
				continue
			}
			return err
		}

		lastRaw = raw
		parsedOnce = true

		violation := g.decodeAndCheck(raw, rv, checks)
		if violation == "" {
			return nil
		}

		// In-process repair: if the reply buried a JSON object in
		// prose or fences, try the extracted object before spending
		// another gateway call.
		if extracted, ok := ExtractJSON(raw); ok && extracted != raw {
			if v := g.decodeAndCheck(extracted, rv, checks); v == "" {
				g.log.Debug("repaired model output in-process", "attempt", attempt)
				return nil
			}
		}

		lastViolation = violation
		g.log.Warn("model output failed validation",
			"attempt", attempt, "max_attempts", g.config.MaxAttempts, "violation", violation)
		currentPrompt = augmentPrompt(prompt, raw, violation)
	}

	if !parsedOnce && lastGatewayErr != nil {
		return lastGatewayErr
	}
	if lastViolation == "" && lastGatewayErr != nil {
		// At least one reply arrived but the budget was then consumed
		// by transient gateway failures.
		lastViolation = lastGatewayErr.Error()
	}
	return &ValidationError{
		RawOutput: lastRaw,
		Violation: lastViolation,
		Attempts:  g.config.MaxAttempts,
	}
}

// call runs one gateway call under the per-call timeout.
func (g *Generator) call(ctx context.Context, prompt string, params llm.GenerationParams) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, g.config.Timeout)
	defer cancel()
	return g.client.Generate(callCtx, prompt, params)
}

// decodeAndCheck strictly decodes raw into a fresh value of out's
// type, runs struct validation and the checks, and copies the result
// into out only when everything passes. Returns "" on success or a
// violation message.
//
// Decoding into a fresh value keeps a half-populated target from a
// failed attempt from leaking into the next one.
func (g *Generator) decodeAndCheck(raw string, out reflect.Value, checks []Check) string {
	target := reflect.New(out.Elem().Type())

	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(target.Interface()); err != nil {
		return fmt.Sprintf("invalid JSON: %v", err)
	}
	// Anything after the first value means the reply was not a single
	// JSON document.
	if dec.More() {
		return "trailing data after JSON object"
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return "trailing data after JSON object"
	}

	if err := datatypes.Validate(target.Elem().Interface()); err != nil {
		return fmt.Sprintf("schema violation: %v", err)
	}
	for _, check := range checks {
		if err := check(target.Interface()); err != nil {
			return err.Error()
		}
	}

	out.Elem().Set(target.Elem())
	return ""
}

// augmentPrompt rebuilds the original prompt with the previous invalid
// output and the concrete violation appended, so the retry targets the
// specific defect instead of resampling blind.
func augmentPrompt(original, raw, violation string) string {
	return fmt.Sprintf(`%s

Your previous response was invalid and has been rejected.

Previous response:
%s

Problem: %s

Return ONLY a corrected JSON object that fixes this problem. Do not include any explanation, markdown fences, or text outside the JSON object.`,
		original, truncateForPrompt(raw, rawOutputPromptLimit), violation)
}

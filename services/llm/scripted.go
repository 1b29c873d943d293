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
	"sync"
)

// ScriptedReply is one step of a ScriptedClient's script: either a
// canned completion or an error to return.
type ScriptedReply struct {
	Text string
	Err  error
}

// ScriptedClient is a deterministic Client for tests. It replays a
// fixed script of replies in order and records every call it sees, so
// tests can assert on call counts, prompts, and generation params
// without a real backend.
//
// The last script entry repeats once the script is exhausted.
type ScriptedClient struct {
	Script []ScriptedReply

	mu     sync.Mutex
	calls  int
	prompt []string
	params []GenerationParams
}

// NewScriptedClient builds a client replaying the given text replies.
func NewScriptedClient(replies ...string) *ScriptedClient {
	script := make([]ScriptedReply, len(replies))
	for i, r := range replies {
		script[i] = ScriptedReply{Text: r}
	}
	return &ScriptedClient{Script: script}
}

// Generate implements the Client interface.
func (s *ScriptedClient) Generate(ctx context.Context, prompt string, params GenerationParams) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.calls
	if idx >= len(s.Script) {
		idx = len(s.Script) - 1
	}
	s.calls++
	s.prompt = append(s.prompt, prompt)
	s.params = append(s.params, params)

	if len(s.Script) == 0 {
		return "", nil
	}
	reply := s.Script[idx]
	if reply.Err != nil {
		return "", reply.Err
	}
	return reply.Text, nil
}

// Calls returns the number of Generate invocations seen so far.
func (s *ScriptedClient) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// Prompts returns a copy of every prompt received, in call order.
func (s *ScriptedClient) Prompts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.prompt))
	copy(out, s.prompt)
	return out
}

// Params returns a copy of the generation params of every call.
func (s *ScriptedClient) Params() []GenerationParams {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]GenerationParams, len(s.params))
	copy(out, s.params)
	return out
}

func (s *ScriptedClient) Available(ctx context.Context) bool {
	return true
}

func (s *ScriptedClient) Info() BackendInfo {
	return BackendInfo{Name: "scripted", Kind: "scripted"}
}

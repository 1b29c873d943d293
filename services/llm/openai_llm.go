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
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

const systemPrompt = "You are a QA test design assistant. Return JSON only, " +
	"matching the requested structure. No markdown formatting, no explanations, just valid JSON."

// OpenAIClient talks to any OpenAI-chat-compatible endpoint. With the
// default base URL it reaches hosted OpenAI; with a custom base URL it
// reaches a local OpenAI-compatible server (mlx-llm-server, vLLM,
// llama.cpp in OpenAI mode), so local and hosted runtimes are
// interchangeable behind one wire contract.
type OpenAIClient struct {
	client  *openai.Client
	name    string
	model   string
	baseURL string
}

// OpenAIOptions configures an OpenAIClient. Zero values fall back to
// environment variables and hosted-OpenAI defaults.
type OpenAIOptions struct {
	// BaseURL overrides the endpoint. Empty means hosted OpenAI.
	BaseURL string

	// Model overrides OPENAI_MODEL. Empty defaults to gpt-4o-mini.
	Model string

	// Name identifies the backend in logs and errors ("openai" or
	// the local server name).
	Name string

	// APIKey overrides OPENAI_API_KEY. Local servers accept any key.
	APIKey string
}

func NewOpenAIClient(opts OpenAIOptions) (*OpenAIClient, error) {
	apiKey := opts.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		if opts.BaseURL == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
		}
		// Local OpenAI-compatible servers don't check the key.
		apiKey = "no-key"
	}

	model := opts.Model
	if model == "" {
		model = os.Getenv("OPENAI_MODEL")
	}
	if model == "" {
		model = "gpt-4o-mini"
	}

	name := opts.Name
	if name == "" {
		name = "openai"
	}

	cfg := openai.DefaultConfig(apiKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = strings.TrimSuffix(opts.BaseURL, "/")
	}

	return &OpenAIClient{
		client:  openai.NewClientWithConfig(cfg),
		name:    name,
		model:   model,
		baseURL: cfg.BaseURL,
	}, nil
}

// Generate implements the Client interface.
func (o *OpenAIClient) Generate(ctx context.Context, prompt string, params GenerationParams) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}
	if params.Temperature != nil {
		req.Temperature = *params.Temperature
	}
	if params.MaxTokens != nil {
		req.MaxCompletionTokens = *params.MaxTokens
	}
	if params.TopP != nil {
		req.TopP = *params.TopP
	}
	if len(params.Stop) > 0 {
		req.Stop = params.Stop
	}

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", o.classify(err)
	}

	if len(resp.Choices) == 0 {
		return "", newGatewayError(KindMalformed, o.name, fmt.Errorf("no choices in completion response"))
	}
	return resp.Choices[0].Message.Content, nil
}

// classify maps go-openai errors onto the gateway taxonomy.
func (o *OpenAIClient) classify(err error) *GatewayError {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == http.StatusTooManyRequests:
			return newGatewayError(KindRateLimited, o.name, err)
		case apiErr.HTTPStatusCode >= 500:
			return newGatewayError(KindUnavailable, o.name, err)
		case apiErr.HTTPStatusCode == http.StatusRequestTimeout:
			return newGatewayError(KindTimeout, o.name, err)
		default:
			return newGatewayError(KindMalformed, o.name, err)
		}
	}
	return classifyTransport(o.name, err)
}

// Available probes the models endpoint with a short deadline.
func (o *OpenAIClient) Available(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err := o.client.ListModels(probeCtx)
	return err == nil
}

func (o *OpenAIClient) Info() BackendInfo {
	kind := "openai"
	if o.name != "openai" {
		kind = "local"
	}
	return BackendInfo{
		Name:    o.name,
		Kind:    kind,
		Model:   o.model,
		BaseURL: o.baseURL,
	}
}

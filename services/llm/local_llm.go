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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// DefaultLocalBaseURL is where a llama.cpp server listens by default.
const DefaultLocalBaseURL = "http://localhost:8080"

// LocalLlamaCppClient talks to a llama.cpp server's /completion
// endpoint. This is the zero-credential local runtime and the first
// candidate in the default fallback order.
type LocalLlamaCppClient struct {
	httpClient *http.Client
	baseURL    string
}

type localCompletionPayload struct {
	Prompt      string   `json:"prompt"`
	NPredict    int      `json:"n_predict"`
	Temperature *float32 `json:"temperature,omitempty"`
	TopK        *int     `json:"top_k,omitempty"`
	TopP        *float32 `json:"top_p,omitempty"`
	Stop        []string `json:"stop,omitempty"`
}

type localCompletionResponse struct {
	Content string `json:"content"`
}

func NewLocalLlamaCppClient(baseURL string) (*LocalLlamaCppClient, error) {
	if baseURL == "" {
		baseURL = os.Getenv("LLM_SERVICE_URL_BASE")
	}
	if baseURL == "" {
		baseURL = DefaultLocalBaseURL
	}
	baseURL = strings.TrimSuffix(baseURL, "/")
	return &LocalLlamaCppClient{
		httpClient: &http.Client{Timeout: 5 * time.Minute},
		baseURL:    baseURL,
	}, nil
}

// Generate implements the Client interface.
func (l *LocalLlamaCppClient) Generate(ctx context.Context, prompt string, params GenerationParams) (string, error) {
	completionURL := l.baseURL + "/completion"

	payload := localCompletionPayload{Prompt: systemPrompt + "\n\n" + prompt}
	if params.MaxTokens != nil {
		payload.NPredict = *params.MaxTokens
	} else {
		payload.NPredict = 2048
	}
	if params.Temperature != nil {
		payload.Temperature = params.Temperature
	} else {
		defaultTemperature := float32(0.1)
		payload.Temperature = &defaultTemperature
	}
	payload.TopK = params.TopK
	payload.TopP = params.TopP
	payload.Stop = params.Stop

	reqBody, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, completionURL, bytes.NewBuffer(reqBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return "", classifyTransport("local", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", newGatewayError(KindMalformed, "local", fmt.Errorf("failed to read response body: %w", err))
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", newGatewayError(KindRateLimited, "local", fmt.Errorf("status %d", resp.StatusCode))
	case resp.StatusCode >= 500:
		return "", newGatewayError(KindUnavailable, "local", fmt.Errorf("status %d: %s", resp.StatusCode, body))
	case resp.StatusCode != http.StatusOK:
		return "", newGatewayError(KindMalformed, "local", fmt.Errorf("status %d: %s", resp.StatusCode, body))
	}

	var completion localCompletionResponse
	if err := json.Unmarshal(body, &completion); err != nil {
		return "", newGatewayError(KindMalformed, "local", fmt.Errorf("failed to decode response: %w", err))
	}
	if completion.Content == "" {
		return "", newGatewayError(KindMalformed, "local", fmt.Errorf("empty completion content"))
	}
	return completion.Content, nil
}

// Available probes the server's /health endpoint.
func (l *LocalLlamaCppClient) Available(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, l.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := l.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func (l *LocalLlamaCppClient) Info() BackendInfo {
	return BackendInfo{
		Name:    "local",
		Kind:    "local",
		BaseURL: l.baseURL,
	}
}

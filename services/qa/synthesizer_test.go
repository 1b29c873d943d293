// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package qa

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/AleutianAI/AleutianQA/pkg/logging"
	"github.com/AleutianAI/AleutianQA/pkg/structured"
	"github.com/AleutianAI/AleutianQA/services/llm"
)

const scenarioReplyJSON = `{
  "scenarios": [
    {
      "id": "model-made-this-up",
      "title": "ZIP validation",
      "type": "functional",
      "risk": "medium",
      "preconditions": ["checkout open"],
      "related_requirements": ["AC-001"]
    },
    {
      "id": "another-invented-id",
      "title": "Card validation",
      "type": "functional",
      "risk": "high",
      "preconditions": ["checkout open"],
      "related_requirements": ["AC-002"]
    }
  ]
}`

func testLogger() *logging.Logger {
	return logging.New(logging.Config{Quiet: true})
}

func newSynthesizer(client llm.Client, maxAttempts int) *ScenarioSynthesizer {
	log := testLogger()
	gen := structured.New(client, structured.Config{MaxAttempts: maxAttempts}, log)
	return NewScenarioSynthesizer(gen, log)
}

func TestSynthesize_ReassignsScenarioIDs(t *testing.T) {
	client := llm.NewScriptedClient(scenarioReplyJSON)
	synth := newSynthesizer(client, 3)

	scenarios, err := synth.Synthesize(context.Background(), fixtureReqs())
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if len(scenarios) != 2 {
		t.Fatalf("got %d scenarios, want 2", len(scenarios))
	}
	if scenarios[0].ID != "SCN-001" || scenarios[1].ID != "SCN-002" {
		t.Errorf("scenario ids = %s, %s; model-invented ids must be replaced",
			scenarios[0].ID, scenarios[1].ID)
	}
}

func TestSynthesize_PromptCarriesSpecAndACs(t *testing.T) {
	client := llm.NewScriptedClient(scenarioReplyJSON)
	synth := newSynthesizer(client, 3)

	if _, err := synth.Synthesize(context.Background(), fixtureReqs()); err != nil {
		t.Fatal(err)
	}

	prompt := client.Prompts()[0]
	for _, want := range []string{
		"ZIP and card entry during checkout.",
		"AC-001: ZIP code must be exactly 5 digits",
		"AC-002: Card number must pass the Luhn check",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestSynthesize_UnknownACRefTriggersRepair(t *testing.T) {
	bad := strings.ReplaceAll(scenarioReplyJSON, `"AC-002"`, `"AC-007"`)
	client := llm.NewScriptedClient(bad, scenarioReplyJSON)
	synth := newSynthesizer(client, 3)

	scenarios, err := synth.Synthesize(context.Background(), fixtureReqs())
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if client.Calls() != 2 {
		t.Errorf("Calls() = %d, want 2 (repair retry)", client.Calls())
	}
	if !strings.Contains(client.Prompts()[1], "AC-007") {
		t.Error("retry prompt should name the unknown AC id")
	}
	if len(scenarios) != 2 {
		t.Errorf("got %d scenarios, want 2", len(scenarios))
	}
}

func TestSynthesize_ExhaustedRetriesReturnsSynthesisError(t *testing.T) {
	client := llm.NewScriptedClient("not json")
	synth := newSynthesizer(client, 2)

	_, err := synth.Synthesize(context.Background(), fixtureReqs())

	var synthErr *SynthesisError
	if !errors.As(err, &synthErr) {
		t.Fatalf("Synthesize() error = %v, want *SynthesisError", err)
	}
	var vErr *structured.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatal("SynthesisError should wrap the *structured.ValidationError")
	}
	if vErr.RawOutput != "not json" {
		t.Errorf("RawOutput = %q", vErr.RawOutput)
	}
}

func TestSynthesize_UncoveredACIsNotAnError(t *testing.T) {
	// One scenario covering only AC-001; AC-002 is uncovered. That gap
	// is the critic's call, not the synthesizer's.
	partial := `{
  "scenarios": [
    {
      "id": "x",
      "title": "ZIP validation",
      "type": "functional",
      "risk": "medium",
      "preconditions": ["checkout open"],
      "related_requirements": ["AC-001"]
    }
  ]
}`
	client := llm.NewScriptedClient(partial)
	synth := newSynthesizer(client, 3)

	scenarios, err := synth.Synthesize(context.Background(), fixtureReqs())
	if err != nil {
		t.Fatalf("Synthesize() error = %v, want success despite uncovered AC", err)
	}
	if len(scenarios) != 1 {
		t.Errorf("got %d scenarios, want 1", len(scenarios))
	}
	if client.Calls() != 1 {
		t.Errorf("Calls() = %d, want 1 (no retry for coverage gaps)", client.Calls())
	}
}

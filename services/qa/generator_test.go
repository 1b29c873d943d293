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
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/AleutianAI/AleutianQA/pkg/structured"
	"github.com/AleutianAI/AleutianQA/services/llm"
	"github.com/AleutianAI/AleutianQA/services/qa/datatypes"
)

func newCaseGenerator(client llm.Client, maxAttempts int) *CaseGenerator {
	log := testLogger()
	gen := structured.New(client, structured.Config{MaxAttempts: maxAttempts}, log)
	return NewCaseGenerator(gen, log)
}

// caseReplyFor builds a valid TestCaseResponse JSON with one positive
// and one negative case per scenario.
func caseReplyFor(scenarios []datatypes.Scenario) string {
	var resp datatypes.TestCaseResponse
	n := 1
	for _, scn := range scenarios {
		resp.TestCases = append(resp.TestCases,
			datatypes.TestCase{
				ID: fmt.Sprintf("model-%d", n), ScenarioID: scn.ID,
				Title:    "happy path for " + scn.Title,
				Steps:    []datatypes.TestStep{{Action: "do it right", Expected: "it works"}},
				Priority: "P3", Polarity: datatypes.PolarityPositive,
			},
			datatypes.TestCase{
				ID: fmt.Sprintf("model-%d", n+1), ScenarioID: scn.ID,
				Title:    "failure path for " + scn.Title,
				Steps:    []datatypes.TestStep{{Action: "do it wrong", Expected: "error shown"}},
				Priority: "P3", Polarity: datatypes.PolarityNegative,
			})
		n += 2
	}
	data, _ := json.Marshal(resp)
	return string(data)
}

// manyScenarios builds n scenarios all covering AC-001.
func manyScenarios(n int) []datatypes.Scenario {
	scenarios := make([]datatypes.Scenario, n)
	for i := range scenarios {
		scenarios[i] = datatypes.Scenario{
			ID:                  datatypes.FormatScenarioID(i + 1),
			Title:               fmt.Sprintf("scenario %d", i+1),
			Type:                "functional",
			Risk:                "medium",
			Preconditions:       []string{"ready"},
			RelatedRequirements: []string{"AC-001"},
		}
	}
	return scenarios
}

func TestGenerate_BatchesOfFive(t *testing.T) {
	scenarios := manyScenarios(12) // 3 batches: 5 + 5 + 2
	client := llm.NewScriptedClient(
		caseReplyFor(scenarios[0:5]),
		caseReplyFor(scenarios[5:10]),
		caseReplyFor(scenarios[10:12]),
	)
	gen := newCaseGenerator(client, 3)

	cases, err := gen.Generate(context.Background(), fixtureReqs(), scenarios)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if client.Calls() != 3 {
		t.Errorf("Calls() = %d, want 3 batches", client.Calls())
	}
	if len(cases) != 24 {
		t.Errorf("got %d cases, want 24", len(cases))
	}

	// Each batch prompt names only its own scenarios.
	prompts := client.Prompts()
	if strings.Contains(prompts[0], "SCN-006") {
		t.Error("first batch prompt should not mention SCN-006")
	}
	if !strings.Contains(prompts[2], "SCN-011") || strings.Contains(prompts[2], "SCN-005 ") {
		t.Error("last batch prompt should cover only the tail scenarios")
	}
}

func TestGenerate_ReassignsTestCaseIDsGlobally(t *testing.T) {
	scenarios := manyScenarios(7)
	client := llm.NewScriptedClient(
		caseReplyFor(scenarios[0:5]),
		caseReplyFor(scenarios[5:7]),
	)
	gen := newCaseGenerator(client, 3)

	cases, err := gen.Generate(context.Background(), fixtureReqs(), scenarios)
	if err != nil {
		t.Fatal(err)
	}
	for i, tc := range cases {
		want := datatypes.FormatTestCaseID(i + 1)
		if tc.ID != want {
			t.Errorf("case %d id = %q, want %q", i, tc.ID, want)
		}
	}
}

func TestGenerate_RiskWeightedPriorities(t *testing.T) {
	scenarios := fixtureScenarios() // SCN-001 medium risk, SCN-002 high risk
	client := llm.NewScriptedClient(caseReplyFor(scenarios))
	gen := newCaseGenerator(client, 3)

	reqs := fixtureReqs()
	reqs.Constraints.PriorityPolicy = datatypes.PolicyRiskWeighted
	cases, err := gen.Generate(context.Background(), reqs, scenarios)
	if err != nil {
		t.Fatal(err)
	}

	want := map[string]string{
		"SCN-001/positive": "P1",
		"SCN-001/negative": "P2",
		"SCN-002/positive": "P0",
		"SCN-002/negative": "P1",
	}
	for _, tc := range cases {
		key := tc.ScenarioID + "/" + string(tc.Polarity)
		if tc.Priority != want[key] {
			t.Errorf("%s priority = %s, want %s", key, tc.Priority, want[key])
		}
	}
}

func TestGenerate_UniformPriorities(t *testing.T) {
	scenarios := fixtureScenarios()
	client := llm.NewScriptedClient(caseReplyFor(scenarios))
	gen := newCaseGenerator(client, 3)

	reqs := fixtureReqs()
	reqs.Constraints.PriorityPolicy = datatypes.PolicyUniform
	cases, err := gen.Generate(context.Background(), reqs, scenarios)
	if err != nil {
		t.Fatal(err)
	}
	for _, tc := range cases {
		want := "P1"
		if tc.Polarity == datatypes.PolarityNegative {
			want = "P2"
		}
		if tc.Priority != want {
			t.Errorf("%s/%s priority = %s, want %s", tc.ScenarioID, tc.Polarity, tc.Priority, want)
		}
	}
}

func TestGenerate_OutOfBatchScenarioRefTriggersRepair(t *testing.T) {
	scenarios := fixtureScenarios()
	bad := strings.ReplaceAll(caseReplyFor(scenarios), "SCN-002", "SCN-777")
	client := llm.NewScriptedClient(bad, caseReplyFor(scenarios))
	gen := newCaseGenerator(client, 3)

	cases, err := gen.Generate(context.Background(), fixtureReqs(), scenarios)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if client.Calls() != 2 {
		t.Errorf("Calls() = %d, want 2 (repair retry)", client.Calls())
	}
	if len(cases) != 4 {
		t.Errorf("got %d cases, want 4", len(cases))
	}
}

func TestGenerate_ExhaustedRetriesReturnsGenerationError(t *testing.T) {
	scenarios := fixtureScenarios()
	client := llm.NewScriptedClient("still not json")
	gen := newCaseGenerator(client, 2)

	_, err := gen.Generate(context.Background(), fixtureReqs(), scenarios)

	var genErr *GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("Generate() error = %v, want *GenerationError", err)
	}
	if len(genErr.ScenarioIDs) != 2 {
		t.Errorf("ScenarioIDs = %v, want the failed batch's ids", genErr.ScenarioIDs)
	}
}

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
	"reflect"
	"strings"
	"testing"

	"github.com/AleutianAI/AleutianQA/services/qa/datatypes"
)

// fixtureReqs builds a two-AC requirement set.
func fixtureReqs() *datatypes.RequirementSet {
	return &datatypes.RequirementSet{
		Project:    "checkout",
		ArtifactID: "chk-001",
		SpecText:   "ZIP and card entry during checkout.",
		AcceptanceCriteria: []datatypes.AcceptanceCriterion{
			{ID: "AC-001", Text: "ZIP code must be exactly 5 digits"},
			{ID: "AC-002", Text: "Card number must pass the Luhn check"},
		},
	}
}

// fixtureScenarios covers both ACs with one scenario each.
func fixtureScenarios() []datatypes.Scenario {
	return []datatypes.Scenario{
		{
			ID: "SCN-001", Title: "ZIP validation", Type: "functional", Risk: "medium",
			Preconditions:       []string{"checkout open"},
			RelatedRequirements: []string{"AC-001"},
		},
		{
			ID: "SCN-002", Title: "Card validation", Type: "functional", Risk: "high",
			Preconditions:       []string{"checkout open"},
			RelatedRequirements: []string{"AC-002"},
		},
	}
}

// fixtureCases gives every scenario one positive and one negative case.
func fixtureCases() []datatypes.TestCase {
	return []datatypes.TestCase{
		{
			ID: "TC-001", ScenarioID: "SCN-001", Title: "Valid ZIP accepted",
			Steps:    []datatypes.TestStep{{Action: "enter 12345", Expected: "accepted"}},
			Priority: "P1", Polarity: datatypes.PolarityPositive,
		},
		{
			ID: "TC-002", ScenarioID: "SCN-001", Title: "Short ZIP rejected",
			Steps:    []datatypes.TestStep{{Action: "enter 1234", Expected: "error shown"}},
			Priority: "P2", Polarity: datatypes.PolarityNegative,
		},
		{
			ID: "TC-003", ScenarioID: "SCN-002", Title: "Valid card accepted",
			Steps:    []datatypes.TestStep{{Action: "enter 4111111111111111", Expected: "accepted"}},
			Priority: "P0", Polarity: datatypes.PolarityPositive,
		},
		{
			ID: "TC-004", ScenarioID: "SCN-002", Title: "Luhn failure rejected",
			Steps:    []datatypes.TestStep{{Action: "enter 4111111111111112", Expected: "error shown"}},
			Priority: "P1", Polarity: datatypes.PolarityNegative,
		},
	}
}

func fixturePlan() *datatypes.TestPlan {
	reqs := fixtureReqs()
	scenarios := fixtureScenarios()
	cases := fixtureCases()
	critic := NewCoverageCritic()
	coverage := critic.BuildCoverage(reqs, scenarios, cases)
	questions := critic.OpenQuestions(reqs, coverage)
	return assemblePlan(reqs, scenarios, cases, coverage, questions, "run-1")
}

func TestBuildCoverage(t *testing.T) {
	critic := NewCoverageCritic()
	coverage := critic.BuildCoverage(fixtureReqs(), fixtureScenarios(), fixtureCases())

	entry := coverage["AC-001"]
	if !reflect.DeepEqual(entry.ScenarioIDs, []string{"SCN-001"}) {
		t.Errorf("AC-001 scenarios = %v", entry.ScenarioIDs)
	}
	if !reflect.DeepEqual(entry.TestCaseIDs, []string{"TC-001", "TC-002"}) {
		t.Errorf("AC-001 cases = %v", entry.TestCaseIDs)
	}
	if entry.PositiveCases != 1 || entry.NegativeCases != 1 {
		t.Errorf("AC-001 polarity counts = %d/%d", entry.PositiveCases, entry.NegativeCases)
	}
}

func TestBuildCoverage_RepeatedACRefCountsOnce(t *testing.T) {
	reqs := fixtureReqs()
	scenarios := fixtureScenarios()[:1]
	scenarios[0].RelatedRequirements = []string{"AC-001", "AC-001"}
	cases := fixtureCases()[:2]

	coverage := NewCoverageCritic().BuildCoverage(reqs, scenarios, cases)

	entry := coverage["AC-001"]
	if !reflect.DeepEqual(entry.ScenarioIDs, []string{"SCN-001"}) {
		t.Errorf("AC-001 scenarios = %v, want [SCN-001]", entry.ScenarioIDs)
	}
	if !reflect.DeepEqual(entry.TestCaseIDs, []string{"TC-001", "TC-002"}) {
		t.Errorf("AC-001 cases = %v, want [TC-001 TC-002]", entry.TestCaseIDs)
	}
	if entry.PositiveCases != 1 || entry.NegativeCases != 1 {
		t.Errorf("AC-001 polarity counts = %d/%d, want 1/1", entry.PositiveCases, entry.NegativeCases)
	}
}

func TestBuildCoverage_UncoveredACGetsEmptyEntry(t *testing.T) {
	critic := NewCoverageCritic()
	scenarios := fixtureScenarios()[:1] // only the ZIP scenario
	coverage := critic.BuildCoverage(fixtureReqs(), scenarios, fixtureCases()[:2])

	entry, ok := coverage["AC-002"]
	if !ok {
		t.Fatal("uncovered AC must still appear in the coverage map")
	}
	if len(entry.ScenarioIDs) != 0 || len(entry.TestCaseIDs) != 0 {
		t.Errorf("AC-002 should be empty, got %+v", entry)
	}
}

func TestEvaluate_AllGatesPass(t *testing.T) {
	report := NewCoverageCritic().Evaluate(fixturePlan())

	if !report.Passed {
		t.Fatalf("verdict = failed, report: %+v", report)
	}
	if len(report.Gates) != 5 {
		t.Fatalf("got %d gate results, want 5", len(report.Gates))
	}
	for _, g := range report.Gates {
		if !g.Passed {
			t.Errorf("gate %s failed: %s", g.GateID, g.Detail)
		}
	}
}

func TestEvaluate_UncoveredACFailsACGate(t *testing.T) {
	reqs := fixtureReqs()
	scenarios := fixtureScenarios()[:1]
	cases := fixtureCases()[:2]
	critic := NewCoverageCritic()
	coverage := critic.BuildCoverage(reqs, scenarios, cases)
	plan := assemblePlan(reqs, scenarios, cases, coverage, nil, "run-1")

	report := critic.Evaluate(plan)
	if report.Passed {
		t.Fatal("verdict should be failed")
	}

	byID := gateResultsByID(report)
	acGate := byID[datatypes.GateACCoverage]
	if acGate.Passed || !strings.Contains(acGate.Detail, "AC-002") {
		t.Errorf("AC coverage gate = %+v, want failure naming AC-002", acGate)
	}
	// Every gate must still be reported on failure.
	if len(report.Gates) != 5 {
		t.Errorf("got %d gate results, want 5", len(report.Gates))
	}
	// The polarity gate also fails for the uncovered AC.
	if byID[datatypes.GatePolarityCoverage].Passed {
		t.Error("polarity gate should fail for an AC with no cases")
	}
}

func TestEvaluate_OrphanedScenarioFailsScenarioGate(t *testing.T) {
	reqs := fixtureReqs()
	scenarios := fixtureScenarios()
	cases := fixtureCases()[:2] // SCN-002 has no cases
	critic := NewCoverageCritic()
	coverage := critic.BuildCoverage(reqs, scenarios, cases)
	plan := assemblePlan(reqs, scenarios, cases, coverage, nil, "run-1")

	report := critic.Evaluate(plan)
	scnGate := gateResultsByID(report)[datatypes.GateScenarioCoverage]
	if scnGate.Passed || !strings.Contains(scnGate.Detail, "SCN-002") {
		t.Errorf("scenario gate = %+v, want failure naming SCN-002", scnGate)
	}
}

func TestEvaluate_MissingNegativeCaseFailsPolarityGate(t *testing.T) {
	reqs := fixtureReqs()
	scenarios := fixtureScenarios()
	cases := fixtureCases()
	cases[3].Polarity = datatypes.PolarityPositive // AC-002 loses its negative case
	critic := NewCoverageCritic()
	coverage := critic.BuildCoverage(reqs, scenarios, cases)
	plan := assemblePlan(reqs, scenarios, cases, coverage, nil, "run-1")

	report := critic.Evaluate(plan)
	gate := gateResultsByID(report)[datatypes.GatePolarityCoverage]
	if gate.Passed || !strings.Contains(gate.Detail, "AC-002 (no negative case)") {
		t.Errorf("polarity gate = %+v", gate)
	}
}

func TestEvaluate_DanglingReferenceFailsReferenceGate(t *testing.T) {
	plan := fixturePlan()
	plan.TestCases[0].ScenarioID = "SCN-999"

	report := NewCoverageCritic().Evaluate(plan)
	gate := gateResultsByID(report)[datatypes.GateReferences]
	if gate.Passed || !strings.Contains(gate.Detail, "SCN-999") {
		t.Errorf("reference gate = %+v", gate)
	}
}

func TestEvaluate_DuplicateIDFailsReferenceGate(t *testing.T) {
	plan := fixturePlan()
	plan.TestCases[1].ID = plan.TestCases[0].ID

	report := NewCoverageCritic().Evaluate(plan)
	gate := gateResultsByID(report)[datatypes.GateReferences]
	if gate.Passed || !strings.Contains(gate.Detail, "duplicate test case id") {
		t.Errorf("reference gate = %+v", gate)
	}
}

func TestEvaluate_InvalidEnumFailsSerializationGate(t *testing.T) {
	plan := fixturePlan()
	plan.Scenarios[0].Risk = "catastrophic"

	report := NewCoverageCritic().Evaluate(plan)
	gate := gateResultsByID(report)[datatypes.GateSerialization]
	if gate.Passed {
		t.Errorf("serialization gate should fail on an out-of-domain enum, got %+v", gate)
	}
}

func TestEvaluate_Idempotent(t *testing.T) {
	plan := fixturePlan()
	critic := NewCoverageCritic()

	first := critic.Evaluate(plan)
	second := critic.Evaluate(plan)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Evaluate is not idempotent:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestOpenQuestions_UncoveredACIsBlocking(t *testing.T) {
	reqs := fixtureReqs()
	critic := NewCoverageCritic()
	coverage := critic.BuildCoverage(reqs, fixtureScenarios()[:1], fixtureCases()[:2])

	questions := critic.OpenQuestions(reqs, coverage)

	var found bool
	for _, q := range questions {
		if len(q.RelatedACIDs) == 1 && q.RelatedACIDs[0] == "AC-002" && q.Blocking {
			found = true
		}
	}
	if !found {
		t.Errorf("no blocking question for uncovered AC-002 in %+v", questions)
	}
}

func TestOpenQuestions_SequentialIDs(t *testing.T) {
	reqs := fixtureReqs()
	reqs.AcceptanceCriteria = append(reqs.AcceptanceCriteria,
		datatypes.AcceptanceCriterion{ID: "AC-003", Text: "The page should respond quickly"})
	critic := NewCoverageCritic()
	coverage := critic.BuildCoverage(reqs, fixtureScenarios(), fixtureCases())

	questions := critic.OpenQuestions(reqs, coverage)
	for i, q := range questions {
		want := datatypes.FormatQuestionID(i + 1)
		if q.ID != want {
			t.Errorf("question %d id = %q, want %q", i, q.ID, want)
		}
	}
}

func TestWordingQuestion(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string // substring of the question, "" means no question
	}{
		{"vague term", "The form should behave appropriately", "appropriate"},
		{"validation without format", "The system must validate the postal code", "expected format"},
		{"validation with format", "ZIP must be validated as exactly 5 digits", ""},
		{"error without message", "Invalid input is rejected", "error message or code"},
		{"error with message", "Invalid input is rejected with error code E400", ""},
		{"concrete", "Total price equals the sum of line items", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := wordingQuestion(datatypes.AcceptanceCriterion{ID: "AC-001", Text: tt.text})
			if tt.want == "" {
				if got != "" {
					t.Errorf("wordingQuestion(%q) = %q, want none", tt.text, got)
				}
				return
			}
			if !strings.Contains(got, tt.want) {
				t.Errorf("wordingQuestion(%q) = %q, want substring %q", tt.text, got, tt.want)
			}
		})
	}
}

func gateResultsByID(report datatypes.GateReport) map[string]datatypes.GateResult {
	byID := make(map[string]datatypes.GateResult, len(report.Gates))
	for _, g := range report.Gates {
		byID[g.GateID] = g
	}
	return byID
}

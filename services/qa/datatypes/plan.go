// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package datatypes defines the entities of a test-plan generation
// run: acceptance criteria, scenarios, test cases, the coverage map,
// open questions, the gate report, and the final TestPlan artifact.
//
// Every entity is owned exclusively by the run that created it and is
// handed read-only from stage to stage. Struct field order doubles as
// the canonical JSON key order of the persisted artifact, so field
// ordering here is part of the external contract.
package datatypes

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// =============================================================================
// Identifier formats
// =============================================================================

// ID prefixes. IDs are sequential and three-digit zero-padded:
// AC-001, SCN-001, TC-001, Q-001.
const (
	ACIDPrefix       = "AC-"
	ScenarioIDPrefix = "SCN-"
	TestCaseIDPrefix = "TC-"
	QuestionIDPrefix = "Q-"
)

// FormatACID returns the id for the n-th acceptance criterion (1-based).
func FormatACID(n int) string { return fmt.Sprintf("%s%03d", ACIDPrefix, n) }

// FormatScenarioID returns the id for the n-th scenario (1-based).
func FormatScenarioID(n int) string { return fmt.Sprintf("%s%03d", ScenarioIDPrefix, n) }

// FormatTestCaseID returns the id for the n-th test case (1-based).
func FormatTestCaseID(n int) string { return fmt.Sprintf("%s%03d", TestCaseIDPrefix, n) }

// FormatQuestionID returns the id for the n-th open question (1-based).
func FormatQuestionID(n int) string { return fmt.Sprintf("%s%03d", QuestionIDPrefix, n) }

// =============================================================================
// Enum domains
// =============================================================================

// Polarity classifies a test case as exercising the happy path or an
// error/failure path.
type Polarity string

const (
	PolarityPositive Polarity = "positive"
	PolarityNegative Polarity = "negative"
)

// Scenario risk levels.
const (
	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"
)

// Priority policies accepted by --priority-policy.
const (
	PolicyRiskWeighted = "risk_weighted"
	PolicyUniform      = "uniform"
)

// =============================================================================
// Input side
// =============================================================================

// AcceptanceCriterion is one testable requirement statement. Created
// by ParseRequirements and immutable afterward.
type AcceptanceCriterion struct {
	ID   string `json:"id" validate:"required"`
	Text string `json:"text" validate:"required"`
}

// Constraints carries optional generation knobs from the CLI.
type Constraints struct {
	TestFramework  string   `json:"test_framework,omitempty" validate:"omitempty,oneof=playwright selenium pytest cypress jest"`
	Environments   []string `json:"environments,omitempty"`
	PriorityPolicy string   `json:"priority_policy,omitempty" validate:"omitempty,oneof=risk_weighted uniform"`
}

// DroppedDuplicate records an AC string discarded during
// normalization because its text exactly matched an earlier one.
type DroppedDuplicate struct {
	Text   string `json:"text"`
	KeptID string `json:"kept_id"`
}

// RequirementSet is the canonical, ID-stamped requirement set produced
// by ParseRequirements. It is passed by reference to the synthesis
// stages and never mutated downstream.
type RequirementSet struct {
	Project            string                `json:"project" validate:"required"`
	ArtifactID         string                `json:"artifact_id" validate:"required"`
	SpecText           string                `json:"spec_text" validate:"required"`
	AcceptanceCriteria []AcceptanceCriterion `json:"acceptance_criteria" validate:"required,min=1,dive"`
	Constraints        Constraints           `json:"constraints"`
	DroppedDuplicates  []DroppedDuplicate    `json:"dropped_duplicates,omitempty"`
}

// ACIDs returns the set of known AC ids.
func (r *RequirementSet) ACIDs() map[string]bool {
	ids := make(map[string]bool, len(r.AcceptanceCriteria))
	for _, ac := range r.AcceptanceCriteria {
		ids[ac.ID] = true
	}
	return ids
}

// =============================================================================
// Generated artifacts
// =============================================================================

// Scenario is a named, risk-tagged test situation covering one or
// more ACs. RelatedRequirements must be non-empty and reference only
// AC ids present in the RequirementSet.
type Scenario struct {
	ID                  string   `json:"id" validate:"required"`
	Title               string   `json:"title" validate:"required"`
	Description         string   `json:"description,omitempty"`
	Type                string   `json:"type" validate:"required,oneof=functional integration e2e"`
	Risk                string   `json:"risk" validate:"required,oneof=low medium high"`
	Preconditions       []string `json:"preconditions" validate:"required,min=1,dive,required"`
	RelatedRequirements []string `json:"related_requirements" validate:"required,min=1,dive,required"`
	Tags                []string `json:"tags,omitempty"`
}

// TestStep is one action/expectation pair inside a test case.
type TestStep struct {
	Action   string `json:"action" validate:"required"`
	Expected string `json:"expected" validate:"required"`
}

// TestCase is a concrete, steppable test derived from a scenario.
type TestCase struct {
	ID          string     `json:"id" validate:"required"`
	ScenarioID  string     `json:"scenario_id" validate:"required"`
	Title       string     `json:"title" validate:"required"`
	Steps       []TestStep `json:"steps" validate:"required,min=1,dive"`
	Priority    string     `json:"priority" validate:"required,oneof=P0 P1 P2 P3"`
	Environment string     `json:"environment,omitempty"`
	Polarity    Polarity   `json:"polarity" validate:"required,oneof=positive negative"`
}

// OpenQuestion flags a gap CoverageCritic could not resolve
// deterministically, surfaced for human follow-up.
type OpenQuestion struct {
	ID           string   `json:"id" validate:"required"`
	Text         string   `json:"text" validate:"required"`
	Blocking     bool     `json:"blocking"`
	RelatedACIDs []string `json:"related_ac_ids,omitempty"`
}

// ACCoverage is the derived per-AC traceability view: the scenarios
// referencing the AC and, transitively, its test cases split by
// polarity.
type ACCoverage struct {
	ScenarioIDs   []string `json:"scenario_ids"`
	TestCaseIDs   []string `json:"test_case_ids"`
	PositiveCases int      `json:"positive_cases"`
	NegativeCases int      `json:"negative_cases"`
}

// CoverageMap maps AC id to its coverage. It is recomputed by
// CoverageCritic, never patched incrementally. encoding/json sorts
// map keys, which gives deterministic AC-001 < AC-002 ordering.
type CoverageMap map[string]ACCoverage

// =============================================================================
// Gate report
// =============================================================================

// Gate ids of the five completeness/uniqueness invariants.
const (
	GateACCoverage       = "G1.1" // every AC referenced by >=1 scenario
	GateScenarioCoverage = "G1.2" // every scenario referenced by >=1 case
	GatePolarityCoverage = "G1.3" // every AC has >=1 positive and >=1 negative case
	GateReferences       = "G1.4" // unique ids, no dangling references
	GateSerialization    = "G1.5" // artifact round-trips as schema-conformant JSON
)

// GateResult is the outcome of one gate evaluation.
type GateResult struct {
	GateID string `json:"gate_id"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

// GateReport aggregates all five gate results into a verdict. All
// gates are evaluated and reported even when an earlier one fails.
// Gates carries no validation tag: the serialization gate judges the
// plan before its own report is attached.
type GateReport struct {
	Gates  []GateResult `json:"gates"`
	Passed bool         `json:"passed"`
}

// Failed returns the results of gates that did not pass.
func (r GateReport) Failed() []GateResult {
	var failed []GateResult
	for _, g := range r.Gates {
		if !g.Passed {
			failed = append(failed, g)
		}
	}
	return failed
}

// =============================================================================
// Final artifact
// =============================================================================

// CoverageStats summarizes the plan for the metadata block.
type CoverageStats struct {
	TotalACs       int `json:"total_acs"`
	ACsCovered     int `json:"acs_covered"`
	TotalScenarios int `json:"total_scenarios"`
	TotalTestCases int `json:"total_test_cases"`
	PositiveCases  int `json:"positive_cases"`
	NegativeCases  int `json:"negative_cases"`
}

// Metadata describes one generation run.
type Metadata struct {
	GeneratedAt       string             `json:"generated_at" validate:"required"`
	RunID             string             `json:"run_id" validate:"required"`
	TotalScenarios    int                `json:"total_scenarios"`
	TotalTestCases    int                `json:"total_test_cases"`
	CoverageStats     CoverageStats      `json:"coverage_stats"`
	GateReport        GateReport         `json:"gate_report"`
	DroppedDuplicates []DroppedDuplicate `json:"dropped_duplicates,omitempty"`
}

// TestPlan is the final immutable artifact bundle, written once by the
// emitter and never mutated after creation. Field order is the JSON
// contract other tooling depends on.
type TestPlan struct {
	Project            string                `json:"project" validate:"required"`
	ArtifactID         string                `json:"artifact_id" validate:"required"`
	AcceptanceCriteria []AcceptanceCriterion `json:"acceptance_criteria" validate:"required,min=1,dive"`
	Scenarios          []Scenario            `json:"scenarios" validate:"required,min=1,dive"`
	TestCases          []TestCase            `json:"test_cases" validate:"required,min=1,dive"`
	CoverageMap        CoverageMap           `json:"coverage_map" validate:"required"`
	OpenQuestions      []OpenQuestion        `json:"open_questions" validate:"dive"`
	Metadata           Metadata              `json:"metadata"`
}

// =============================================================================
// Structured generation response envelopes
// =============================================================================

// ScenarioResponse is the schema the synthesizer stage expects back
// from the model.
type ScenarioResponse struct {
	Scenarios []Scenario `json:"scenarios" validate:"required,min=1,dive"`
}

// TestCaseResponse is the schema the case-generation stage expects
// back from the model.
type TestCaseResponse struct {
	TestCases []TestCase `json:"test_cases" validate:"required,min=1,dive"`
}

// =============================================================================
// Shared validator
// =============================================================================

// planValidate is the validator instance for plan datatypes.
var planValidate = validator.New()

// Validate checks required fields and enum domains on any datatype in
// this package. It is the single struct-level validation boundary used
// both by pkg/structured and by the G1.5 gate.
func Validate(v any) error {
	return planValidate.Struct(v)
}

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
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/AleutianAI/AleutianQA/services/qa/datatypes"
)

// CoverageCritic is the deterministic completeness judge. It derives
// the coverage map, evaluates the five coverage gates, and raises open
// questions for gaps and suspicious requirement wording. It makes no
// gateway calls; given the same plan it always returns the same
// verdict.
type CoverageCritic struct{}

func NewCoverageCritic() *CoverageCritic { return &CoverageCritic{} }

// BuildCoverage recomputes the full per-AC coverage view from the
// scenarios and cases. The map is always rebuilt from scratch; there
// is no incremental patching.
func (c *CoverageCritic) BuildCoverage(reqs *datatypes.RequirementSet, scenarios []datatypes.Scenario, cases []datatypes.TestCase) datatypes.CoverageMap {
	coverage := make(datatypes.CoverageMap, len(reqs.AcceptanceCriteria))
	for _, ac := range reqs.AcceptanceCriteria {
		coverage[ac.ID] = datatypes.ACCoverage{
			ScenarioIDs: []string{},
			TestCaseIDs: []string{},
		}
	}

	casesByScenario := make(map[string][]datatypes.TestCase)
	for _, tc := range cases {
		casesByScenario[tc.ScenarioID] = append(casesByScenario[tc.ScenarioID], tc)
	}

	for _, scn := range scenarios {
		// related_requirements is a set; the model may still repeat an
		// AC id, which must not double-count the scenario's cases.
		seen := make(map[string]bool, len(scn.RelatedRequirements))
		for _, acID := range scn.RelatedRequirements {
			if seen[acID] {
				continue
			}
			seen[acID] = true
			entry, ok := coverage[acID]
			if !ok {
				continue
			}
			entry.ScenarioIDs = append(entry.ScenarioIDs, scn.ID)
			for _, tc := range casesByScenario[scn.ID] {
				entry.TestCaseIDs = append(entry.TestCaseIDs, tc.ID)
				if tc.Polarity == datatypes.PolarityPositive {
					entry.PositiveCases++
				} else {
					entry.NegativeCases++
				}
			}
			coverage[acID] = entry
		}
	}

	for acID, entry := range coverage {
		sort.Strings(entry.ScenarioIDs)
		sort.Strings(entry.TestCaseIDs)
		coverage[acID] = entry
	}
	return coverage
}

// Evaluate runs all five gates over the assembled plan. Every gate is
// evaluated and reported even when an earlier one has already failed,
// so a failure report names everything wrong at once. Evaluate is
// pure: it inspects the plan and mutates nothing.
func (c *CoverageCritic) Evaluate(plan *datatypes.TestPlan) datatypes.GateReport {
	gates := []datatypes.GateResult{
		c.gateACCoverage(plan),
		c.gateScenarioCoverage(plan),
		c.gatePolarityCoverage(plan),
		c.gateReferences(plan),
		c.gateSerialization(plan),
	}

	passed := true
	for _, g := range gates {
		if !g.Passed {
			passed = false
		}
	}
	return datatypes.GateReport{Gates: gates, Passed: passed}
}

// gateACCoverage: every AC is referenced by at least one scenario.
func (c *CoverageCritic) gateACCoverage(plan *datatypes.TestPlan) datatypes.GateResult {
	var uncovered []string
	for _, ac := range plan.AcceptanceCriteria {
		if len(plan.CoverageMap[ac.ID].ScenarioIDs) == 0 {
			uncovered = append(uncovered, ac.ID)
		}
	}
	if len(uncovered) > 0 {
		return datatypes.GateResult{
			GateID: datatypes.GateACCoverage,
			Detail: "acceptance criteria with no covering scenario: " + strings.Join(uncovered, ", "),
		}
	}
	return datatypes.GateResult{GateID: datatypes.GateACCoverage, Passed: true}
}

// gateScenarioCoverage: every scenario has at least one test case.
func (c *CoverageCritic) gateScenarioCoverage(plan *datatypes.TestPlan) datatypes.GateResult {
	covered := make(map[string]bool)
	for _, tc := range plan.TestCases {
		covered[tc.ScenarioID] = true
	}
	var orphaned []string
	for _, scn := range plan.Scenarios {
		if !covered[scn.ID] {
			orphaned = append(orphaned, scn.ID)
		}
	}
	if len(orphaned) > 0 {
		return datatypes.GateResult{
			GateID: datatypes.GateScenarioCoverage,
			Detail: "scenarios with no test cases: " + strings.Join(orphaned, ", "),
		}
	}
	return datatypes.GateResult{GateID: datatypes.GateScenarioCoverage, Passed: true}
}

// gatePolarityCoverage: every AC has at least one positive and one
// negative test case.
func (c *CoverageCritic) gatePolarityCoverage(plan *datatypes.TestPlan) datatypes.GateResult {
	var gaps []string
	for _, ac := range plan.AcceptanceCriteria {
		entry := plan.CoverageMap[ac.ID]
		switch {
		case entry.PositiveCases == 0 && entry.NegativeCases == 0:
			gaps = append(gaps, ac.ID+" (no cases)")
		case entry.PositiveCases == 0:
			gaps = append(gaps, ac.ID+" (no positive case)")
		case entry.NegativeCases == 0:
			gaps = append(gaps, ac.ID+" (no negative case)")
		}
	}
	if len(gaps) > 0 {
		return datatypes.GateResult{
			GateID: datatypes.GatePolarityCoverage,
			Detail: "acceptance criteria missing polarity coverage: " + strings.Join(gaps, ", "),
		}
	}
	return datatypes.GateResult{GateID: datatypes.GatePolarityCoverage, Passed: true}
}

// gateReferences: ids are unique within their kind and every
// scenario_id / related_requirements reference resolves.
func (c *CoverageCritic) gateReferences(plan *datatypes.TestPlan) datatypes.GateResult {
	var problems []string

	acIDs := make(map[string]bool)
	for _, ac := range plan.AcceptanceCriteria {
		if acIDs[ac.ID] {
			problems = append(problems, "duplicate AC id "+ac.ID)
		}
		acIDs[ac.ID] = true
	}
	scnIDs := make(map[string]bool)
	for _, scn := range plan.Scenarios {
		if scnIDs[scn.ID] {
			problems = append(problems, "duplicate scenario id "+scn.ID)
		}
		scnIDs[scn.ID] = true
	}
	tcIDs := make(map[string]bool)
	for _, tc := range plan.TestCases {
		if tcIDs[tc.ID] {
			problems = append(problems, "duplicate test case id "+tc.ID)
		}
		tcIDs[tc.ID] = true
	}

	for _, scn := range plan.Scenarios {
		for _, ref := range scn.RelatedRequirements {
			if !acIDs[ref] {
				problems = append(problems, fmt.Sprintf("scenario %s references unknown AC %s", scn.ID, ref))
			}
		}
	}
	for _, tc := range plan.TestCases {
		if !scnIDs[tc.ScenarioID] {
			problems = append(problems, fmt.Sprintf("test case %s references unknown scenario %s", tc.ID, tc.ScenarioID))
		}
	}

	if len(problems) > 0 {
		return datatypes.GateResult{
			GateID: datatypes.GateReferences,
			Detail: strings.Join(problems, "; "),
		}
	}
	return datatypes.GateResult{GateID: datatypes.GateReferences, Passed: true}
}

// gateSerialization: the plan survives a marshal / strict-unmarshal /
// struct-validation round trip. This is the same decode discipline the
// consumer of the artifact file will apply.
func (c *CoverageCritic) gateSerialization(plan *datatypes.TestPlan) datatypes.GateResult {
	data, err := json.Marshal(plan)
	if err != nil {
		return datatypes.GateResult{
			GateID: datatypes.GateSerialization,
			Detail: "marshal failed: " + err.Error(),
		}
	}

	var roundTrip datatypes.TestPlan
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&roundTrip); err != nil {
		return datatypes.GateResult{
			GateID: datatypes.GateSerialization,
			Detail: "strict unmarshal failed: " + err.Error(),
		}
	}
	if err := datatypes.Validate(&roundTrip); err != nil {
		return datatypes.GateResult{
			GateID: datatypes.GateSerialization,
			Detail: "schema validation failed: " + err.Error(),
		}
	}
	return datatypes.GateResult{GateID: datatypes.GateSerialization, Passed: true}
}

// OpenQuestions derives human follow-ups from coverage gaps and from
// requirement wording that tends to hide unstated behavior. Gap
// questions are blocking; wording questions are advisory.
func (c *CoverageCritic) OpenQuestions(reqs *datatypes.RequirementSet, coverage datatypes.CoverageMap) []datatypes.OpenQuestion {
	var questions []datatypes.OpenQuestion
	next := func() string { return datatypes.FormatQuestionID(len(questions) + 1) }

	for _, ac := range reqs.AcceptanceCriteria {
		entry := coverage[ac.ID]
		if len(entry.ScenarioIDs) == 0 {
			questions = append(questions, datatypes.OpenQuestion{
				ID:           next(),
				Text:         fmt.Sprintf("No scenario covers %s. Is this criterion testable as written, or does it need clarification?", describeAC(ac)),
				Blocking:     true,
				RelatedACIDs: []string{ac.ID},
			})
			continue
		}
		if entry.NegativeCases == 0 {
			questions = append(questions, datatypes.OpenQuestion{
				ID:           next(),
				Text:         fmt.Sprintf("%s has no negative test case. What should happen when this requirement is violated?", ac.ID),
				Blocking:     true,
				RelatedACIDs: []string{ac.ID},
			})
		}
	}

	for _, ac := range reqs.AcceptanceCriteria {
		if q := wordingQuestion(ac); q != "" {
			questions = append(questions, datatypes.OpenQuestion{
				ID:           next(),
				Text:         q,
				RelatedACIDs: []string{ac.ID},
			})
		}
	}
	return questions
}

// Requirement wording that historically signals an unstated decision.
var vagueTerms = []string{
	"appropriate", "properly", "correctly", "as expected",
	"user-friendly", "intuitive", "fast", "quickly", "reasonable",
	"should work", "etc",
}

// wordingQuestion flags vague phrasing, validation requirements that
// never name a format, and error requirements that never name the
// message or code. Returns "" when the wording looks concrete.
func wordingQuestion(ac datatypes.AcceptanceCriterion) string {
	lower := strings.ToLower(ac.Text)

	for _, term := range vagueTerms {
		if strings.Contains(lower, term) {
			return fmt.Sprintf("%s uses the vague term %q. What is the concrete, measurable expectation?", ac.ID, term)
		}
	}

	// "validat" catches validate/validated/validation without also
	// matching "invalid".
	mentionsValidation := strings.Contains(lower, "validat")
	mentionsFormat := strings.Contains(lower, "format") || strings.Contains(lower, "pattern") ||
		strings.Contains(lower, "digit") || strings.Contains(lower, "character") ||
		strings.Contains(lower, "regex") || strings.Contains(lower, "length")
	if mentionsValidation && !mentionsFormat {
		return fmt.Sprintf("%s requires validation but does not define the expected format. What exactly constitutes a valid value?", ac.ID)
	}

	mentionsError := strings.Contains(lower, "error") || strings.Contains(lower, "reject") ||
		strings.Contains(lower, "fail")
	mentionsMessage := strings.Contains(lower, "message") || strings.Contains(lower, "code") ||
		strings.Contains(lower, "status")
	if mentionsError && !mentionsMessage {
		return fmt.Sprintf("%s requires an error path but does not specify the error message or code the user should see.", ac.ID)
	}
	return ""
}

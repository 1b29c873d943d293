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
	"fmt"
	"strings"

	"github.com/AleutianAI/AleutianQA/services/qa/datatypes"
)

// Prompt builders for the two generation stages. Prompts spell out the
// exact JSON schema and enum domains so the structured validator has
// something to hold the model to.

func buildScenarioPrompt(reqs *datatypes.RequirementSet) string {
	var sb strings.Builder

	sb.WriteString("Design test scenarios for the following software feature.\n\n")
	fmt.Fprintf(&sb, "Project: %s\n\n", reqs.Project)
	sb.WriteString("Feature specification:\n")
	sb.WriteString(reqs.SpecText)
	sb.WriteString("\n\nAcceptance criteria:\n")
	for _, ac := range reqs.AcceptanceCriteria {
		fmt.Fprintf(&sb, "- %s: %s\n", ac.ID, ac.Text)
	}

	sb.WriteString(`
Produce a set of test scenarios that together cover every acceptance criterion above. Include scenarios for error and boundary conditions, not only the happy path.

Respond with a JSON object of this exact shape:
{
  "scenarios": [
    {
      "id": "SCN-001",
      "title": "short scenario name",
      "description": "what this scenario verifies",
      "type": "functional",
      "risk": "medium",
      "preconditions": ["precondition text"],
      "related_requirements": ["AC-001"],
      "tags": ["optional", "labels"]
    }
  ]
}

Rules:
- "type" must be one of: functional, integration, e2e.
- "risk" must be one of: low, medium, high.
- "related_requirements" must be non-empty and list only acceptance criterion IDs given above.
- "preconditions" must be non-empty.
- Every acceptance criterion ID above must appear in at least one scenario's "related_requirements".
`)
	return sb.String()
}

func buildTestCasePrompt(reqs *datatypes.RequirementSet, scenarios []datatypes.Scenario) string {
	var sb strings.Builder

	sb.WriteString("Write concrete test cases for the following test scenarios.\n\n")
	fmt.Fprintf(&sb, "Project: %s\n\n", reqs.Project)
	sb.WriteString("Feature specification:\n")
	sb.WriteString(reqs.SpecText)
	sb.WriteString("\n\nScenarios to cover:\n")
	for _, scn := range scenarios {
		fmt.Fprintf(&sb, "- %s [%s, risk=%s]: %s", scn.ID, scn.Type, scn.Risk, scn.Title)
		if scn.Description != "" {
			fmt.Fprintf(&sb, ": %s", scn.Description)
		}
		fmt.Fprintf(&sb, " (covers %s)\n", strings.Join(scn.RelatedRequirements, ", "))
	}

	if fw := reqs.Constraints.TestFramework; fw != "" {
		fmt.Fprintf(&sb, "\nTarget test framework: %s. Write steps that map naturally onto it.\n", fw)
	}
	if envs := reqs.Constraints.Environments; len(envs) > 0 {
		fmt.Fprintf(&sb, "\nTarget environments: %s. Set each test case's \"environment\" to one of these.\n",
			strings.Join(envs, ", "))
	}

	sb.WriteString(`
Respond with a JSON object of this exact shape:
{
  "test_cases": [
    {
      "id": "TC-001",
      "scenario_id": "SCN-001",
      "title": "short test case name",
      "steps": [
        {"action": "what the tester does", "expected": "what must happen"}
      ],
      "priority": "P1",
      "environment": "staging",
      "polarity": "positive"
    }
  ]
}

Rules:
- "scenario_id" must be one of the scenario IDs listed above.
- "priority" must be one of: P0, P1, P2, P3.
- "polarity" must be "positive" for happy-path cases and "negative" for error or boundary cases.
- "steps" must be non-empty; every step needs both "action" and "expected".
- Every scenario listed above needs at least one positive and at least one negative test case.
`)
	return sb.String()
}

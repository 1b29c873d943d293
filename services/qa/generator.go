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
	"fmt"
	"strings"

	"github.com/AleutianAI/AleutianQA/pkg/logging"
	"github.com/AleutianAI/AleutianQA/pkg/structured"
	"github.com/AleutianAI/AleutianQA/services/qa/datatypes"
)

// scenarioBatchSize is how many scenarios go into one gateway call.
// Small batches keep replies inside the token limit and localize a
// failed batch's blast radius.
const scenarioBatchSize = 5

// CaseGenerator expands scenarios into concrete test cases, batching
// gateway calls and then normalizing ids and priorities.
type CaseGenerator struct {
	gen *structured.Generator
	log *logging.Logger
}

func NewCaseGenerator(gen *structured.Generator, log *logging.Logger) *CaseGenerator {
	if log == nil {
		log = logging.Default()
	}
	return &CaseGenerator{gen: gen, log: log}
}

// Generate produces test cases for every scenario. Scenarios are
// processed in batches of scenarioBatchSize; each batch is one
// validated gateway call. Model-invented TC ids are discarded and
// reassigned globally, then priorities are refined per the configured
// policy.
func (c *CaseGenerator) Generate(ctx context.Context, reqs *datatypes.RequirementSet, scenarios []datatypes.Scenario) ([]datatypes.TestCase, error) {
	var all []datatypes.TestCase

	for start := 0; start < len(scenarios); start += scenarioBatchSize {
		end := start + scenarioBatchSize
		if end > len(scenarios) {
			end = len(scenarios)
		}
		batch := scenarios[start:end]

		prompt := buildTestCasePrompt(reqs, batch)
		var resp datatypes.TestCaseResponse
		err := c.gen.Generate(ctx, prompt, &resp, checkCaseScenarioRefs(batch))
		if err != nil {
			return nil, &GenerationError{ScenarioIDs: scenarioIDs(batch), Err: err}
		}

		c.log.Debug("generated test case batch",
			"scenarios", len(batch), "cases", len(resp.TestCases))
		all = append(all, resp.TestCases...)
	}

	for i := range all {
		all[i].ID = datatypes.FormatTestCaseID(i + 1)
	}
	refinePriorities(all, scenarios, reqs.Constraints.PriorityPolicy)

	c.log.Info("generated test cases", "count", len(all), "scenarios", len(scenarios))
	return all, nil
}

// checkCaseScenarioRefs rejects replies whose cases point at scenarios
// outside the batch being expanded.
func checkCaseScenarioRefs(batch []datatypes.Scenario) structured.Check {
	known := make(map[string]bool, len(batch))
	for _, scn := range batch {
		known[scn.ID] = true
	}
	return func(out any) error {
		resp, ok := out.(*datatypes.TestCaseResponse)
		if !ok {
			return fmt.Errorf("unexpected response type %T", out)
		}
		var unknown []string
		for _, tc := range resp.TestCases {
			if !known[tc.ScenarioID] {
				unknown = append(unknown, fmt.Sprintf("%s in test case %q", tc.ScenarioID, tc.Title))
			}
		}
		if len(unknown) > 0 {
			return fmt.Errorf("scenario_id references scenarios not in this batch: %s",
				strings.Join(unknown, "; "))
		}
		return nil
	}
}

// refinePriorities overwrites model-assigned priorities with the
// deterministic policy mapping. risk_weighted derives priority from
// the parent scenario's risk and the case's polarity; uniform ignores
// risk. An unknown policy name defaults to risk_weighted.
func refinePriorities(cases []datatypes.TestCase, scenarios []datatypes.Scenario, policy string) {
	riskByScenario := make(map[string]string, len(scenarios))
	for _, scn := range scenarios {
		riskByScenario[scn.ID] = scn.Risk
	}

	for i := range cases {
		negative := cases[i].Polarity == datatypes.PolarityNegative
		if policy == datatypes.PolicyUniform {
			if negative {
				cases[i].Priority = "P2"
			} else {
				cases[i].Priority = "P1"
			}
			continue
		}

		switch riskByScenario[cases[i].ScenarioID] {
		case datatypes.RiskHigh:
			if negative {
				cases[i].Priority = "P1"
			} else {
				cases[i].Priority = "P0"
			}
		case datatypes.RiskMedium:
			if negative {
				cases[i].Priority = "P2"
			} else {
				cases[i].Priority = "P1"
			}
		default:
			if negative {
				cases[i].Priority = "P3"
			} else {
				cases[i].Priority = "P2"
			}
		}
	}
}

func scenarioIDs(scenarios []datatypes.Scenario) []string {
	ids := make([]string, len(scenarios))
	for i, scn := range scenarios {
		ids[i] = scn.ID
	}
	return ids
}

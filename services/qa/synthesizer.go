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

// ScenarioSynthesizer turns a RequirementSet into risk-tagged test
// scenarios via one validated gateway call.
type ScenarioSynthesizer struct {
	gen *structured.Generator
	log *logging.Logger
}

func NewScenarioSynthesizer(gen *structured.Generator, log *logging.Logger) *ScenarioSynthesizer {
	if log == nil {
		log = logging.Default()
	}
	return &ScenarioSynthesizer{gen: gen, log: log}
}

// Synthesize generates the scenario set. Scenario ids from the model
// are discarded and reassigned sequentially so downstream ids are
// stable regardless of what the model invented.
//
// Synthesize fails only when the validator exhausts its retry budget
// or the gateway dies; an AC left without any scenario is NOT an error
// here. Completeness is judged once, by the coverage critic.
func (s *ScenarioSynthesizer) Synthesize(ctx context.Context, reqs *datatypes.RequirementSet) ([]datatypes.Scenario, error) {
	prompt := buildScenarioPrompt(reqs)

	var resp datatypes.ScenarioResponse
	err := s.gen.Generate(ctx, prompt, &resp, checkScenarioACRefs(reqs.ACIDs()))
	if err != nil {
		return nil, &SynthesisError{Err: err}
	}

	for i := range resp.Scenarios {
		resp.Scenarios[i].ID = datatypes.FormatScenarioID(i + 1)
	}

	s.log.Info("synthesized scenarios",
		"count", len(resp.Scenarios), "acs", len(reqs.AcceptanceCriteria))
	return resp.Scenarios, nil
}

// checkScenarioACRefs rejects replies that reference AC ids not in the
// requirement set. A dangling reference is a schema violation and goes
// back through the repair loop rather than surviving to the critic.
func checkScenarioACRefs(known map[string]bool) structured.Check {
	return func(out any) error {
		resp, ok := out.(*datatypes.ScenarioResponse)
		if !ok {
			return fmt.Errorf("unexpected response type %T", out)
		}
		var unknown []string
		for _, scn := range resp.Scenarios {
			for _, ref := range scn.RelatedRequirements {
				if !known[ref] {
					unknown = append(unknown, fmt.Sprintf("%s in scenario %q", ref, scn.Title))
				}
			}
		}
		if len(unknown) > 0 {
			return fmt.Errorf("related_requirements reference unknown acceptance criterion ids: %s",
				strings.Join(unknown, "; "))
		}
		return nil
	}
}

// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package qa implements the test-plan generation pipeline: requirement
// parsing, LLM-backed scenario synthesis and case generation, the
// deterministic coverage critic, and artifact emission.
package qa

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/AleutianAI/AleutianQA/services/qa/datatypes"
)

// ParseInput is the raw material handed to ParseRequirements by the
// CLI. Exactly one of SpecFile/SpecText and at most one of
// ACFile/ACJSON may be set.
type ParseInput struct {
	Project    string
	ArtifactID string

	SpecFile string
	SpecText string

	ACFile string
	ACJSON string

	Constraints datatypes.Constraints
}

// acInputObject is the object form of an AC input document:
// {"acceptance_criteria": ["...", ...]}. A bare JSON array of strings
// is also accepted.
type acInputObject struct {
	AcceptanceCriteria []string `json:"acceptance_criteria"`
}

// ParseRequirements is the deterministic front of the pipeline. It
// resolves the spec and AC sources, normalizes whitespace, drops
// exact-duplicate ACs keeping the first occurrence, and stamps
// sequential AC ids. It never touches the network.
func ParseRequirements(input ParseInput) (*datatypes.RequirementSet, error) {
	if input.Project == "" {
		return nil, &InputError{Field: "project", Msg: "project name is required"}
	}
	if input.ArtifactID == "" {
		return nil, &InputError{Field: "artifact-id", Msg: "artifact id is required"}
	}
	if err := datatypes.Validate(input.Constraints); err != nil {
		return nil, &InputError{Field: "constraints", Msg: err.Error()}
	}

	specText, err := resolveSpecSource(input)
	if err != nil {
		return nil, err
	}

	rawACs, err := resolveACSource(input)
	if err != nil {
		return nil, err
	}

	criteria, dropped, err := normalizeACs(rawACs)
	if err != nil {
		return nil, err
	}

	return &datatypes.RequirementSet{
		Project:            input.Project,
		ArtifactID:         input.ArtifactID,
		SpecText:           specText,
		AcceptanceCriteria: criteria,
		Constraints:        input.Constraints,
		DroppedDuplicates:  dropped,
	}, nil
}

func resolveSpecSource(input ParseInput) (string, error) {
	if input.SpecFile != "" && input.SpecText != "" {
		return "", &InputError{Field: "spec", Msg: "spec-file and spec-text are mutually exclusive"}
	}

	text := input.SpecText
	if input.SpecFile != "" {
		data, err := os.ReadFile(input.SpecFile)
		if err != nil {
			return "", &InputError{Field: "spec-file", Msg: err.Error()}
		}
		text = string(data)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", &InputError{Field: "spec", Msg: "feature specification text is required (use spec-file or spec-text)"}
	}
	return text, nil
}

func resolveACSource(input ParseInput) ([]string, error) {
	if input.ACFile != "" && input.ACJSON != "" {
		return nil, &InputError{Field: "ac", Msg: "ac-file and ac-json are mutually exclusive"}
	}

	raw := input.ACJSON
	if input.ACFile != "" {
		data, err := os.ReadFile(input.ACFile)
		if err != nil {
			return nil, &InputError{Field: "ac-file", Msg: err.Error()}
		}
		raw = string(data)
	}
	if strings.TrimSpace(raw) == "" {
		return nil, &InputError{Field: "ac", Msg: "acceptance criteria are required (use ac-file or ac-json)"}
	}

	return decodeACDocument(raw)
}

// decodeACDocument accepts either a JSON array of strings or an object
// with an "acceptance_criteria" key holding one.
func decodeACDocument(raw string) ([]string, error) {
	trimmed := strings.TrimSpace(raw)

	if strings.HasPrefix(trimmed, "[") {
		var list []string
		if err := json.Unmarshal([]byte(trimmed), &list); err != nil {
			return nil, &InputError{Field: "ac", Msg: "acceptance criteria array must contain only strings: " + err.Error()}
		}
		return list, nil
	}

	var obj acInputObject
	if err := json.Unmarshal([]byte(trimmed), &obj); err != nil {
		return nil, &InputError{Field: "ac", Msg: "acceptance criteria must be a JSON array of strings or an object with an \"acceptance_criteria\" key: " + err.Error()}
	}
	if obj.AcceptanceCriteria == nil {
		return nil, &InputError{Field: "ac", Msg: "object form must contain an \"acceptance_criteria\" array"}
	}
	return obj.AcceptanceCriteria, nil
}

// normalizeACs collapses internal whitespace, drops empty entries,
// dedupes exact matches keeping the first occurrence, and assigns ids.
func normalizeACs(raw []string) ([]datatypes.AcceptanceCriterion, []datatypes.DroppedDuplicate, error) {
	var criteria []datatypes.AcceptanceCriterion
	var dropped []datatypes.DroppedDuplicate
	seen := make(map[string]string)

	for _, entry := range raw {
		text := strings.Join(strings.Fields(entry), " ")
		if text == "" {
			continue
		}
		if keptID, ok := seen[text]; ok {
			dropped = append(dropped, datatypes.DroppedDuplicate{Text: text, KeptID: keptID})
			continue
		}
		id := datatypes.FormatACID(len(criteria) + 1)
		seen[text] = id
		criteria = append(criteria, datatypes.AcceptanceCriterion{ID: id, Text: text})
	}

	if len(criteria) == 0 {
		return nil, nil, &InputError{Field: "ac", Msg: "no non-empty acceptance criteria after normalization"}
	}
	return criteria, dropped, nil
}

// describeAC is used in gate details and open questions.
func describeAC(ac datatypes.AcceptanceCriterion) string {
	return fmt.Sprintf("%s (%q)", ac.ID, ac.Text)
}

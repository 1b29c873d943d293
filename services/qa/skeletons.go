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
	"text/template"

	"github.com/AleutianAI/AleutianQA/services/qa/datatypes"
)

// skeletonContext is the data handed to a skeleton template.
type skeletonContext struct {
	Plan     *datatypes.TestPlan
	Scenario datatypes.Scenario
	Case     datatypes.TestCase
	FuncName string
}

// skeletonFileName derives the per-case file name from the TC id:
// TC-001 becomes tc_001_test.py, tc-001.spec.ts, etc. depending on
// the framework's convention.
func skeletonFileName(framework, tcID string) string {
	slug := strings.ToLower(strings.ReplaceAll(tcID, "-", "_"))
	switch framework {
	case "playwright":
		return strings.ReplaceAll(slug, "_", "-") + ".spec.ts"
	case "cypress":
		return strings.ReplaceAll(slug, "_", "-") + ".cy.js"
	case "jest":
		return strings.ReplaceAll(slug, "_", "-") + ".test.js"
	case "selenium", "pytest":
		return "test_" + slug + ".py"
	default:
		return slug + ".txt"
	}
}

func renderSkeleton(tmpl *template.Template, plan *datatypes.TestPlan, scn datatypes.Scenario, tc datatypes.TestCase) (string, error) {
	var sb strings.Builder
	err := tmpl.Execute(&sb, skeletonContext{
		Plan:     plan,
		Scenario: scn,
		Case:     tc,
		FuncName: strings.ToLower(strings.ReplaceAll(tc.ID, "-", "_")),
	})
	if err != nil {
		return "", fmt.Errorf("failed to render skeleton for %s: %w", tc.ID, err)
	}
	return sb.String(), nil
}

var skeletonTemplates = map[string]*template.Template{
	"pytest":     mustSkeleton("pytest", pytestSkeleton),
	"selenium":   mustSkeleton("selenium", seleniumSkeleton),
	"playwright": mustSkeleton("playwright", playwrightSkeleton),
	"cypress":    mustSkeleton("cypress", cypressSkeleton),
	"jest":       mustSkeleton("jest", jestSkeleton),
}

func mustSkeleton(name, text string) *template.Template {
	// Step numbering is 1-based for the humans filling these in.
	funcs := template.FuncMap{
		"stepnum": func(i int) int { return i + 1 },
	}
	return template.Must(template.New(name).Funcs(funcs).Parse(text))
}

const pytestSkeleton = `"""{{.Case.ID}}: {{.Case.Title}}

Scenario: {{.Scenario.ID}} {{.Scenario.Title}}
Priority: {{.Case.Priority}} ({{.Case.Polarity}})
"""
import pytest


@pytest.mark.{{.Case.Polarity}}
def test_{{.FuncName}}():
{{- range $i, $step := .Case.Steps}}
    # Step {{stepnum $i}}: {{$step.Action}}
    # Expected: {{$step.Expected}}
{{- end}}
    pytest.fail("not implemented: {{.Case.ID}}")
`

const seleniumSkeleton = `"""{{.Case.ID}}: {{.Case.Title}}

Scenario: {{.Scenario.ID}} {{.Scenario.Title}}
Priority: {{.Case.Priority}} ({{.Case.Polarity}})
"""
import pytest
from selenium import webdriver


@pytest.fixture
def driver():
    d = webdriver.Chrome()
    yield d
    d.quit()


def test_{{.FuncName}}(driver):
{{- range $i, $step := .Case.Steps}}
    # Step {{stepnum $i}}: {{$step.Action}}
    # Expected: {{$step.Expected}}
{{- end}}
    pytest.fail("not implemented: {{.Case.ID}}")
`

const playwrightSkeleton = `import { test, expect } from '@playwright/test';

// {{.Case.ID}}: {{.Case.Title}}
// Scenario: {{.Scenario.ID}} {{.Scenario.Title}}
// Priority: {{.Case.Priority}} ({{.Case.Polarity}})
test('{{.Case.ID}} {{.Case.Title}}', async ({ page }) => {
{{- range $i, $step := .Case.Steps}}
  // Step {{stepnum $i}}: {{$step.Action}}
  // Expected: {{$step.Expected}}
{{- end}}
  test.fail(true, 'not implemented: {{.Case.ID}}');
});
`

const cypressSkeleton = `// {{.Case.ID}}: {{.Case.Title}}
// Scenario: {{.Scenario.ID}} {{.Scenario.Title}}
// Priority: {{.Case.Priority}} ({{.Case.Polarity}})
describe('{{.Scenario.Title}}', () => {
  it('{{.Case.ID}} {{.Case.Title}}', () => {
{{- range $i, $step := .Case.Steps}}
    // Step {{stepnum $i}}: {{$step.Action}}
    // Expected: {{$step.Expected}}
{{- end}}
    throw new Error('not implemented: {{.Case.ID}}');
  });
});
`

const jestSkeleton = `// {{.Case.ID}}: {{.Case.Title}}
// Scenario: {{.Scenario.ID}} {{.Scenario.Title}}
// Priority: {{.Case.Priority}} ({{.Case.Polarity}})
describe('{{.Scenario.Title}}', () => {
  test('{{.Case.ID}} {{.Case.Title}}', () => {
{{- range $i, $step := .Case.Steps}}
    // Step {{stepnum $i}}: {{$step.Action}}
    // Expected: {{$step.Expected}}
{{- end}}
    throw new Error('not implemented: {{.Case.ID}}');
  });
});
`

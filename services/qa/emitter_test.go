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
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/AleutianAI/AleutianQA/services/qa/datatypes"
)

func TestEmitPlan_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	emitter := NewArtifactEmitter(dir, testLogger())
	plan := fixturePlan()
	plan.Metadata.GateReport = NewCoverageCritic().Evaluate(plan)

	path, err := emitter.EmitPlan(plan)
	if err != nil {
		t.Fatalf("EmitPlan() error = %v", err)
	}
	if filepath.Base(path) != "chk-001_test_plan.json" {
		t.Errorf("artifact name = %q, want chk-001_test_plan.json", filepath.Base(path))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	// The persisted artifact must strict-decode back into the same
	// counts the plan was emitted with.
	var loaded datatypes.TestPlan
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&loaded); err != nil {
		t.Fatalf("strict decode of artifact failed: %v", err)
	}
	if len(loaded.AcceptanceCriteria) != len(plan.AcceptanceCriteria) ||
		len(loaded.Scenarios) != len(plan.Scenarios) ||
		len(loaded.TestCases) != len(plan.TestCases) {
		t.Errorf("round-trip counts differ: %d/%d/%d",
			len(loaded.AcceptanceCriteria), len(loaded.Scenarios), len(loaded.TestCases))
	}
	if loaded.Metadata.RunID != plan.Metadata.RunID {
		t.Errorf("run id = %q, want %q", loaded.Metadata.RunID, plan.Metadata.RunID)
	}
	if !loaded.Metadata.GateReport.Passed {
		t.Error("persisted gate report should carry the passing verdict")
	}
}

func TestEmitPlan_TopLevelKeys(t *testing.T) {
	dir := t.TempDir()
	emitter := NewArtifactEmitter(dir, testLogger())

	path, err := emitter.EmitPlan(fixturePlan())
	if err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{
		"project", "artifact_id", "acceptance_criteria", "scenarios",
		"test_cases", "coverage_map", "open_questions", "metadata",
	} {
		if _, ok := doc[key]; !ok {
			t.Errorf("artifact missing top-level key %q", key)
		}
	}
	if len(doc) != 8 {
		t.Errorf("artifact has %d top-level keys, want 8", len(doc))
	}
}

func TestEmitPlan_NoTempFileLeftBehind(t *testing.T) {
	dir := t.TempDir()
	emitter := NewArtifactEmitter(dir, testLogger())

	if _, err := emitter.EmitPlan(fixturePlan()); err != nil {
		t.Fatal(err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".tmp") {
			t.Errorf("temp file left behind: %s", entry.Name())
		}
	}
	if len(entries) != 1 {
		t.Errorf("output dir has %d entries, want exactly the artifact", len(entries))
	}
}

func TestEmitSkeletons_OneFilePerCase(t *testing.T) {
	dir := t.TempDir()
	emitter := NewArtifactEmitter(dir, testLogger())
	plan := fixturePlan()

	paths, err := emitter.EmitSkeletons(plan, "pytest")
	if err != nil {
		t.Fatalf("EmitSkeletons() error = %v", err)
	}
	if len(paths) != len(plan.TestCases) {
		t.Fatalf("got %d skeletons, want %d", len(paths), len(plan.TestCases))
	}

	first, err := os.ReadFile(paths[0])
	if err != nil {
		t.Fatal(err)
	}
	content := string(first)
	if filepath.Base(paths[0]) != "test_tc_001.py" {
		t.Errorf("skeleton name = %q, want test_tc_001.py", filepath.Base(paths[0]))
	}
	for _, want := range []string{"TC-001", "def test_tc_001", "# Step 1: enter 12345", "accepted"} {
		if !strings.Contains(content, want) {
			t.Errorf("pytest skeleton missing %q:\n%s", want, content)
		}
	}
	if strings.Contains(content, "Step 0") {
		t.Errorf("step numbering must start at 1:\n%s", content)
	}
}

func TestEmitSkeletons_FrameworkFileNames(t *testing.T) {
	tests := []struct {
		framework string
		want      string
	}{
		{"pytest", "test_tc_001.py"},
		{"selenium", "test_tc_001.py"},
		{"playwright", "tc-001.spec.ts"},
		{"cypress", "tc-001.cy.js"},
		{"jest", "tc-001.test.js"},
	}
	for _, tt := range tests {
		if got := skeletonFileName(tt.framework, "TC-001"); got != tt.want {
			t.Errorf("skeletonFileName(%s) = %q, want %q", tt.framework, got, tt.want)
		}
	}
}

func TestEmitSkeletons_NoFrameworkMeansNoFiles(t *testing.T) {
	dir := t.TempDir()
	emitter := NewArtifactEmitter(dir, testLogger())

	paths, err := emitter.EmitSkeletons(fixturePlan(), "")
	if err != nil {
		t.Fatal(err)
	}
	if paths != nil {
		t.Errorf("paths = %v, want none", paths)
	}
	if _, err := os.Stat(filepath.Join(dir, "skeletons")); !os.IsNotExist(err) {
		t.Error("skeletons directory should not be created without a framework")
	}
}

func TestEmitSkeletons_UnknownFramework(t *testing.T) {
	emitter := NewArtifactEmitter(t.TempDir(), testLogger())

	_, err := emitter.EmitSkeletons(fixturePlan(), "mocha")
	if err == nil {
		t.Fatal("EmitSkeletons() with an unknown framework should fail")
	}
	if !strings.Contains(err.Error(), "mocha") {
		t.Errorf("error = %v, want framework name", err)
	}
}

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
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/AleutianAI/AleutianQA/pkg/logging"
	"github.com/AleutianAI/AleutianQA/services/qa/datatypes"
)

// ArtifactEmitter persists a passing test plan. It only ever runs
// after the gate verdict is positive; a failed run leaves the output
// directory untouched.
type ArtifactEmitter struct {
	outputDir string
	log       *logging.Logger
}

func NewArtifactEmitter(outputDir string, log *logging.Logger) *ArtifactEmitter {
	if log == nil {
		log = logging.Default()
	}
	return &ArtifactEmitter{outputDir: outputDir, log: log}
}

// EmitPlan writes the artifact as <artifact_id>_test_plan.json in the
// output directory. The file is written to a temp name first and
// renamed into place, so readers never see a partial artifact and a
// failed write leaves nothing behind.
func (e *ArtifactEmitter) EmitPlan(plan *datatypes.TestPlan) (string, error) {
	if err := os.MkdirAll(e.outputDir, 0o755); err != nil {
		return "", &EmitError{Path: e.outputDir, Err: err}
	}

	finalPath := filepath.Join(e.outputDir, plan.ArtifactID+"_test_plan.json")

	data, err := json.MarshalIndent(plan, "", "  ")
	if err != nil {
		return "", &EmitError{Path: finalPath, Err: err}
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(e.outputDir, "."+plan.ArtifactID+"-*.tmp")
	if err != nil {
		return "", &EmitError{Path: finalPath, Err: err}
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return "", &EmitError{Path: finalPath, Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return "", &EmitError{Path: finalPath, Err: err}
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		return "", &EmitError{Path: finalPath, Err: err}
	}

	e.log.Info("wrote test plan artifact", "path", finalPath, "bytes", len(data))
	return finalPath, nil
}

// EmitSkeletons writes one test skeleton file per test case for the
// requested framework under <output-dir>/skeletons. Skeleton emission
// is best effort per plan: any failure removes files written so far
// and returns an EmitError.
func (e *ArtifactEmitter) EmitSkeletons(plan *datatypes.TestPlan, framework string) ([]string, error) {
	if framework == "" {
		return nil, nil
	}
	tmpl, ok := skeletonTemplates[framework]
	if !ok {
		return nil, &EmitError{
			Path: e.outputDir,
			Err:  fmt.Errorf("no skeleton template for framework %q", framework),
		}
	}

	dir := filepath.Join(e.outputDir, "skeletons")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &EmitError{Path: dir, Err: err}
	}

	scenarioByID := make(map[string]datatypes.Scenario, len(plan.Scenarios))
	for _, scn := range plan.Scenarios {
		scenarioByID[scn.ID] = scn
	}

	var written []string
	cleanup := func() {
		for _, p := range written {
			os.Remove(p)
		}
	}

	for _, tc := range plan.TestCases {
		path := filepath.Join(dir, skeletonFileName(framework, tc.ID))
		content, err := renderSkeleton(tmpl, plan, scenarioByID[tc.ScenarioID], tc)
		if err != nil {
			cleanup()
			return nil, &EmitError{Path: path, Err: err}
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			cleanup()
			return nil, &EmitError{Path: path, Err: err}
		}
		written = append(written, path)
	}

	e.log.Info("wrote test skeletons", "framework", framework, "count", len(written), "dir", dir)
	return written, nil
}

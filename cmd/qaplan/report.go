// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/AleutianAI/AleutianQA/pkg/structured"
	"github.com/AleutianAI/AleutianQA/services/qa"
	"github.com/AleutianAI/AleutianQA/services/qa/datatypes"
)

// Stdout carries exactly one JSON report per run, success or failure.
// Logs go to stderr and the log file; CI consumers only parse stdout.

type successReport struct {
	Status        string                   `json:"status"`
	PlanPath      string                   `json:"plan_path"`
	SkeletonPaths []string                 `json:"skeleton_paths,omitempty"`
	RunID         string                   `json:"run_id"`
	Stats         datatypes.CoverageStats  `json:"stats"`
	GateReport    datatypes.GateReport     `json:"gate_report"`
	OpenQuestions []datatypes.OpenQuestion `json:"open_questions,omitempty"`
}

type errorReport struct {
	Status        string                   `json:"status"`
	Reason        string                   `json:"reason"`
	Message       string                   `json:"message"`
	GateReport    *datatypes.GateReport    `json:"gate_report,omitempty"`
	OpenQuestions []datatypes.OpenQuestion `json:"open_questions,omitempty"`
	Validation    *validationFailureDetail `json:"validation,omitempty"`
}

type validationFailureDetail struct {
	Attempts  int    `json:"attempts"`
	Violation string `json:"violation"`
	RawOutput string `json:"raw_output"`
}

func printSuccessReport(result *qa.Result) {
	stats := result.Plan.Metadata.CoverageStats
	fmt.Fprintf(os.Stderr, "Test plan written to %s\n", result.PlanPath)
	fmt.Fprintf(os.Stderr, "  %d/%d acceptance criteria covered, %d scenarios, %d test cases (%d positive, %d negative)\n",
		stats.ACsCovered, stats.TotalACs, stats.TotalScenarios,
		stats.TotalTestCases, stats.PositiveCases, stats.NegativeCases)
	if n := len(result.Plan.OpenQuestions); n > 0 {
		fmt.Fprintf(os.Stderr, "  %d open questions need human review\n", n)
	}
	if n := len(result.SkeletonPaths); n > 0 {
		fmt.Fprintf(os.Stderr, "  %d test skeletons written\n", n)
	}

	writeReport(successReport{
		Status:        "ok",
		PlanPath:      result.PlanPath,
		SkeletonPaths: result.SkeletonPaths,
		RunID:         result.Plan.Metadata.RunID,
		Stats:         result.Plan.Metadata.CoverageStats,
		GateReport:    result.Report,
		OpenQuestions: result.Plan.OpenQuestions,
	})
}

func printGateFailureReport(failure *qa.GateFailure) {
	writeReport(errorReport{
		Status:        "failed",
		Reason:        "gates_failed",
		Message:       failure.Error(),
		GateReport:    &failure.Report,
		OpenQuestions: failure.Questions,
	})
}

func printErrorReport(reason string, err error, validation *validationFailureDetail) {
	writeReport(errorReport{
		Status:     "failed",
		Reason:     reason,
		Message:    err.Error(),
		Validation: validation,
	})
}

// validationDetail surfaces the raw model output when a stage died on
// exhausted validation retries, so the rejected text is inspectable
// without digging through logs.
func validationDetail(err error) *validationFailureDetail {
	var vErr *structured.ValidationError
	if !errors.As(err, &vErr) {
		return nil
	}
	return &validationFailureDetail{
		Attempts:  vErr.Attempts,
		Violation: vErr.Violation,
		RawOutput: vErr.RawOutput,
	}
}

func writeReport(report any) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding report: %v\n", err)
		return
	}
	fmt.Println(string(data))
}

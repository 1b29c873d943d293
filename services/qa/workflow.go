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
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/AleutianAI/AleutianQA/pkg/logging"
	"github.com/AleutianAI/AleutianQA/pkg/structured"
	"github.com/AleutianAI/AleutianQA/services/llm"
	"github.com/AleutianAI/AleutianQA/services/qa/datatypes"
)

// Config tunes one workflow run.
type Config struct {
	// OutputDir is where the artifact and skeletons are written.
	OutputDir string

	// Validator tunes the structured generation loop shared by both
	// LLM stages.
	Validator structured.Config

	// ScenarioMaxTokens and CaseMaxTokens cap completion length per
	// stage. Zero uses the validator config's MaxTokens.
	ScenarioMaxTokens int
	CaseMaxTokens     int
}

// Result is a successful run's output.
type Result struct {
	Plan          *datatypes.TestPlan
	Report        datatypes.GateReport
	PlanPath      string
	SkeletonPaths []string
}

// Workflow runs the five-stage pipeline end to end against one
// resolved inference backend.
type Workflow struct {
	client llm.Client
	config Config
	critic *CoverageCritic
	log    *logging.Logger
}

func NewWorkflow(client llm.Client, config Config, log *logging.Logger) *Workflow {
	if log == nil {
		log = logging.Default()
	}
	return &Workflow{
		client: client,
		config: config,
		critic: NewCoverageCritic(),
		log:    log,
	}
}

// Run executes parse, synthesize, generate, critique, emit. The plan
// is assembled in full and judged before anything touches disk; a
// failing gate verdict aborts with *GateFailure and writes no files.
func (w *Workflow) Run(ctx context.Context, input ParseInput) (*Result, error) {
	runID := uuid.NewString()
	log := w.log.With("run_id", runID)

	reqs, err := ParseRequirements(input)
	if err != nil {
		return nil, err
	}
	log.Info("parsed requirements",
		"project", reqs.Project, "acs", len(reqs.AcceptanceCriteria),
		"dropped_duplicates", len(reqs.DroppedDuplicates))

	scenarios, err := w.synthesize(ctx, reqs, log)
	if err != nil {
		return nil, err
	}

	cases, err := w.generateCases(ctx, reqs, scenarios, log)
	if err != nil {
		return nil, err
	}

	coverage := w.critic.BuildCoverage(reqs, scenarios, cases)
	questions := w.critic.OpenQuestions(reqs, coverage)

	plan := assemblePlan(reqs, scenarios, cases, coverage, questions, runID)
	report := w.critic.Evaluate(plan)
	plan.Metadata.GateReport = report

	if !report.Passed {
		log.Warn("coverage gates rejected plan", "failed_gates", len(report.Failed()))
		return nil, &GateFailure{Report: report, Questions: questions}
	}
	log.Info("coverage gates passed",
		"scenarios", len(scenarios), "cases", len(cases), "open_questions", len(questions))

	emitter := NewArtifactEmitter(w.config.OutputDir, log)
	planPath, err := emitter.EmitPlan(plan)
	if err != nil {
		return nil, err
	}
	skeletonPaths, err := emitter.EmitSkeletons(plan, reqs.Constraints.TestFramework)
	if err != nil {
		// A failed run leaves the output directory untouched; the
		// already-written plan goes too.
		os.Remove(planPath)
		return nil, err
	}

	return &Result{
		Plan:          plan,
		Report:        report,
		PlanPath:      planPath,
		SkeletonPaths: skeletonPaths,
	}, nil
}

func (w *Workflow) synthesize(ctx context.Context, reqs *datatypes.RequirementSet, log *logging.Logger) ([]datatypes.Scenario, error) {
	cfg := w.config.Validator
	if w.config.ScenarioMaxTokens > 0 {
		cfg.MaxTokens = w.config.ScenarioMaxTokens
	}
	synth := NewScenarioSynthesizer(structured.New(w.client, cfg, log), log)
	return synth.Synthesize(ctx, reqs)
}

func (w *Workflow) generateCases(ctx context.Context, reqs *datatypes.RequirementSet, scenarios []datatypes.Scenario, log *logging.Logger) ([]datatypes.TestCase, error) {
	cfg := w.config.Validator
	if w.config.CaseMaxTokens > 0 {
		cfg.MaxTokens = w.config.CaseMaxTokens
	}
	gen := NewCaseGenerator(structured.New(w.client, cfg, log), log)
	return gen.Generate(ctx, reqs, scenarios)
}

// assemblePlan builds the immutable artifact bundle. The gate report
// is filled in by the caller after evaluation.
func assemblePlan(reqs *datatypes.RequirementSet, scenarios []datatypes.Scenario, cases []datatypes.TestCase, coverage datatypes.CoverageMap, questions []datatypes.OpenQuestion, runID string) *datatypes.TestPlan {
	stats := datatypes.CoverageStats{
		TotalACs:       len(reqs.AcceptanceCriteria),
		TotalScenarios: len(scenarios),
		TotalTestCases: len(cases),
	}
	for _, entry := range coverage {
		if len(entry.ScenarioIDs) > 0 {
			stats.ACsCovered++
		}
	}
	for _, tc := range cases {
		if tc.Polarity == datatypes.PolarityPositive {
			stats.PositiveCases++
		} else {
			stats.NegativeCases++
		}
	}

	return &datatypes.TestPlan{
		Project:            reqs.Project,
		ArtifactID:         reqs.ArtifactID,
		AcceptanceCriteria: reqs.AcceptanceCriteria,
		Scenarios:          scenarios,
		TestCases:          cases,
		CoverageMap:        coverage,
		OpenQuestions:      questions,
		Metadata: datatypes.Metadata{
			GeneratedAt:       time.Now().UTC().Format(time.RFC3339),
			RunID:             runID,
			TotalScenarios:    len(scenarios),
			TotalTestCases:    len(cases),
			CoverageStats:     stats,
			DroppedDuplicates: reqs.DroppedDuplicates,
		},
	}
}

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
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianQA/cmd/qaplan/config"
	"github.com/AleutianAI/AleutianQA/pkg/structured"
	"github.com/AleutianAI/AleutianQA/services/llm"
	"github.com/AleutianAI/AleutianQA/services/qa"
	"github.com/AleutianAI/AleutianQA/services/qa/datatypes"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	genProject    string // Project name stamped into the artifact
	genArtifactID string // Artifact id, used for the output file name

	genSpecFile string // Path to the feature spec text file
	genSpecText string // Inline feature spec text

	genACFile string // Path to the acceptance criteria JSON document
	genACJSON string // Inline acceptance criteria JSON

	genBackend        string   // Pin a specific backend (no fallback)
	genLocalServer    string   // Local llama.cpp server URL override
	genTestFramework  string   // Emit skeletons for this framework
	genPriorityPolicy string   // risk_weighted or uniform
	genEnvironments   []string // Target environments for test cases
	genOutputDir      string   // Artifact output directory override
)

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a gated test plan from a feature spec and acceptance criteria",
	Long: `Runs the full pipeline: parse requirements, synthesize scenarios,
generate test cases, judge coverage, and emit the artifact.

The plan is only written if every coverage gate passes. On a gate
failure the command prints a machine-readable failure report to stdout
and exits non-zero without writing any files.

Examples:
  qaplan generate --project checkout --artifact-id chk-001 \
      --spec-file spec.txt --ac-file acs.json

  qaplan generate --project checkout --artifact-id chk-001 \
      --spec-text "Users can pay by card" \
      --ac-json '["Card number is validated with the Luhn algorithm"]' \
      --test-framework playwright --backend local`,
	RunE: runGenerateCommand,
}

// =============================================================================
// COMMAND INITIALIZATION
// =============================================================================

func init() {
	generateCmd.Flags().StringVar(&genProject, "project", "",
		"Project name (required)")
	generateCmd.Flags().StringVar(&genArtifactID, "artifact-id", "",
		"Artifact identifier, used in the output file name (required)")
	generateCmd.Flags().StringVar(&genSpecFile, "spec-file", "",
		"Path to the feature specification text file")
	generateCmd.Flags().StringVar(&genSpecText, "spec-text", "",
		"Inline feature specification text")
	generateCmd.Flags().StringVar(&genACFile, "ac-file", "",
		"Path to the acceptance criteria JSON (array of strings, or object with acceptance_criteria)")
	generateCmd.Flags().StringVar(&genACJSON, "ac-json", "",
		"Inline acceptance criteria JSON")
	generateCmd.Flags().StringVar(&genBackend, "backend", "",
		"Pin one inference backend: local, openai, or anthropic (default: first available)")
	generateCmd.Flags().StringVar(&genLocalServer, "local-server", "",
		"Local llama.cpp server base URL")
	generateCmd.Flags().StringVar(&genTestFramework, "test-framework", "",
		"Emit test skeletons for: playwright, selenium, pytest, cypress, jest")
	generateCmd.Flags().StringVar(&genPriorityPolicy, "priority-policy", "risk_weighted",
		"Priority refinement policy: risk_weighted or uniform")
	generateCmd.Flags().StringSliceVar(&genEnvironments, "environments", nil,
		"Target environments for test cases, e.g. staging,production")
	generateCmd.Flags().StringVar(&genOutputDir, "output-dir", "",
		"Artifact output directory (default from config)")

	generateCmd.MarkFlagRequired("project")
	generateCmd.MarkFlagRequired("artifact-id")
}

// =============================================================================
// COMMAND IMPLEMENTATION
// =============================================================================

func runGenerateCommand(cmd *cobra.Command, args []string) error {
	log := newLogger()
	defer log.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	client, err := llm.Resolve(ctx, backendSettings(genBackend, genLocalServer), log)
	if err != nil {
		printErrorReport("backend_unavailable", err, nil)
		return err
	}

	outputDir := firstNonEmpty(genOutputDir, config.Global.Output.Dir)
	workflow := qa.NewWorkflow(client, qa.Config{
		OutputDir: outputDir,
		Validator: structured.Config{
			MaxAttempts: config.Global.Generation.MaxAttempts,
			Temperature: config.Global.Generation.Temperature,
			Timeout:     time.Duration(config.Global.Generation.TimeoutSeconds) * time.Second,
		},
		ScenarioMaxTokens: config.Global.Generation.ScenarioMaxTokens,
		CaseMaxTokens:     config.Global.Generation.CaseMaxTokens,
	}, log)

	result, err := workflow.Run(ctx, qa.ParseInput{
		Project:    genProject,
		ArtifactID: genArtifactID,
		SpecFile:   genSpecFile,
		SpecText:   genSpecText,
		ACFile:     genACFile,
		ACJSON:     genACJSON,
		Constraints: datatypes.Constraints{
			TestFramework:  genTestFramework,
			Environments:   genEnvironments,
			PriorityPolicy: genPriorityPolicy,
		},
	})
	if err != nil {
		reportRunError(err)
		return err
	}

	printSuccessReport(result)
	return nil
}

// reportRunError maps pipeline errors onto the machine-readable
// stdout report so CI consumers never have to parse log lines.
func reportRunError(err error) {
	switch e := err.(type) {
	case *qa.InputError:
		printErrorReport("invalid_input", e, nil)
	case *qa.GateFailure:
		printGateFailureReport(e)
	case *qa.SynthesisError:
		printErrorReport("synthesis_failed", e, validationDetail(e))
	case *qa.GenerationError:
		printErrorReport("generation_failed", e, validationDetail(e))
	case *qa.EmitError:
		printErrorReport("emit_failed", e, nil)
	default:
		printErrorReport("internal_error", err, nil)
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
}

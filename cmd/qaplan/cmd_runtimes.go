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
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianQA/services/llm"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var runtimesJSONOutput bool // Output as JSON for scripting

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

var runtimesCmd = &cobra.Command{
	Use:   "runtimes",
	Short: "Probe the configured inference backends",
	Long: `Constructs and probes every backend in the configured order without
selecting one, and reports which would win a fallback resolution.

Examples:
  qaplan runtimes          # Human-readable table
  qaplan runtimes --json   # JSON output for automation`,
	Run: runRuntimesCommand,
}

// =============================================================================
// COMMAND INITIALIZATION
// =============================================================================

func init() {
	runtimesCmd.Flags().BoolVar(&runtimesJSONOutput, "json", false,
		"Output as JSON for scripting")
}

// =============================================================================
// COMMAND IMPLEMENTATION
// =============================================================================

func runRuntimesCommand(cmd *cobra.Command, args []string) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	statuses := llm.Statuses(ctx, backendSettings("", ""))

	if runtimesJSONOutput {
		data, err := json.MarshalIndent(statuses, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error encoding statuses: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(string(data))
		return
	}

	fmt.Println("Inference backends (in fallback order):")
	selected := false
	for _, status := range statuses {
		marker := " "
		state := "unavailable"
		switch {
		case status.InitError != "":
			state = "not configured: " + status.InitError
		case status.Available && !selected:
			marker = "*"
			state = "available (would be selected)"
			selected = true
		case status.Available:
			state = "available"
		}
		model := status.Info.Model
		if model == "" {
			model = "-"
		}
		fmt.Printf(" %s %-10s model=%-30s %s\n", marker, status.Info.Name, model, state)
	}
	if !selected {
		fmt.Println("\nNo backend is currently available.")
	}
}

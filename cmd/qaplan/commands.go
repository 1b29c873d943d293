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
	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianQA/cmd/qaplan/config"
	"github.com/AleutianAI/AleutianQA/pkg/logging"
	"github.com/AleutianAI/AleutianQA/services/llm"
)

var rootCmd = &cobra.Command{
	Use:   "qaplan",
	Short: "A CLI that generates reviewable QA test plans from feature specs",
	Long: `qaplan turns a feature specification and its acceptance criteria into a
complete test-plan artifact: risk-tagged scenarios, concrete test cases,
a per-criterion coverage map, and open questions for ambiguous
requirements. Generation is LLM-assisted but schema-validated, and a
deterministic set of coverage gates decides whether the plan is good
enough to emit.`,
	// Commands report errors themselves (JSON on stdout, detail on
	// stderr); cobra only contributes the exit code.
	SilenceErrors: true,
	SilenceUsage:  true,
}

var verbose bool

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"Enable debug logging")
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(runtimesCmd)
}

// newLogger builds the command logger from config plus the --verbose
// override.
func newLogger() *logging.Logger {
	level := logging.ParseLevel(config.Global.Logging.Level)
	if verbose {
		level = logging.LevelDebug
	}
	return logging.New(logging.Config{
		Level:   level,
		LogDir:  config.Global.Logging.Dir,
		Service: "qaplan",
		JSON:    config.Global.Logging.JSON,
	})
}

// backendSettings maps the YAML config plus the per-command flags onto
// the llm package's settings.
func backendSettings(preferred, localServer string) llm.BackendSettings {
	return llm.BackendSettings{
		Order:          config.Global.Backends.Order,
		Preferred:      preferred,
		LocalBaseURL:   firstNonEmpty(localServer, config.Global.Backends.LocalBaseURL),
		OpenAIBaseURL:  config.Global.Backends.OpenAIBaseURL,
		OpenAIModel:    config.Global.Backends.OpenAIModel,
		AnthropicModel: config.Global.Backends.AnthropicModel,
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

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

	"github.com/AleutianAI/AleutianQA/services/qa/datatypes"
)

// InputError reports malformed or contradictory user input: missing
// spec text, mutually exclusive flags, an unreadable AC file. These
// fail fast before any gateway call.
type InputError struct {
	Field string
	Msg   string
}

func (e *InputError) Error() string {
	if e.Field == "" {
		return "invalid input: " + e.Msg
	}
	return fmt.Sprintf("invalid input (%s): %s", e.Field, e.Msg)
}

// SynthesisError reports that the scenario stage could not obtain a
// valid scenario set within the retry budget.
type SynthesisError struct {
	Err error
}

func (e *SynthesisError) Error() string {
	return "scenario synthesis failed: " + e.Err.Error()
}

func (e *SynthesisError) Unwrap() error { return e.Err }

// GenerationError reports that the case-generation stage failed for a
// batch of scenarios.
type GenerationError struct {
	ScenarioIDs []string
	Err         error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("test case generation failed for scenarios %v: %v", e.ScenarioIDs, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// GateFailure aborts the run when the coverage gates reject the plan.
// The full gate report and any open questions are carried so the CLI
// can emit a complete machine-readable failure report. No artifact
// file is written when this error is returned.
type GateFailure struct {
	Report    datatypes.GateReport
	Questions []datatypes.OpenQuestion
}

func (e *GateFailure) Error() string {
	failed := e.Report.Failed()
	if len(failed) == 0 {
		return "coverage gates rejected the plan"
	}
	msg := "coverage gates rejected the plan:"
	for _, g := range failed {
		msg += fmt.Sprintf(" [%s] %s", g.GateID, g.Detail)
	}
	return msg
}

// EmitError reports a failure while persisting artifacts. Partial
// output is cleaned up before this is returned.
type EmitError struct {
	Path string
	Err  error
}

func (e *EmitError) Error() string {
	return fmt.Sprintf("failed to write artifact %s: %v", e.Path, e.Err)
}

func (e *EmitError) Unwrap() error { return e.Err }

// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package structured

import (
	"strings"
)

// ExtractJSON pulls the outermost JSON object out of a model reply
// that wraps it in prose or markdown fences. It returns the candidate
// substring and whether one was found.
//
// This is a purely syntactic rescue: the result still goes through the
// strict decode, so a bad extraction fails validation the normal way.
func ExtractJSON(raw string) (string, bool) {
	s := strings.TrimSpace(raw)

	// Strip a ```json ... ``` (or plain ```) fence if the reply is
	// wrapped in one.
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if end := strings.LastIndex(s, "```"); end >= 0 {
			s = s[:end]
		}
		s = strings.TrimSpace(s)
	}

	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	// Scan for the matching close brace of the first object, tracking
	// string literals so braces inside values don't count.
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

// truncateForPrompt bounds the raw output embedded in a repair prompt
// so a runaway completion doesn't balloon the retry request.
func truncateForPrompt(raw string, limit int) string {
	if len(raw) <= limit {
		return raw
	}
	return raw[:limit] + "\n... (truncated)"
}

// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrorKind classifies gateway failures so callers can distinguish
// transient conditions (worth retrying) from permanent ones.
type ErrorKind string

const (
	// KindTimeout means the call exceeded its deadline.
	KindTimeout ErrorKind = "timeout"

	// KindRateLimited means the backend rejected the call with a
	// rate-limit response (HTTP 429 or equivalent).
	KindRateLimited ErrorKind = "rate_limited"

	// KindUnavailable means the backend could not be reached or
	// returned a server-side error.
	KindUnavailable ErrorKind = "unavailable"

	// KindMalformed means the backend answered but the response was
	// unusable at the transport level (no choices, empty body).
	KindMalformed ErrorKind = "malformed"
)

// GatewayError wraps a backend failure with its classification.
type GatewayError struct {
	Kind    ErrorKind
	Backend string
	Err     error
}

func (e *GatewayError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s backend %s: %v", e.Backend, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s backend %s", e.Backend, e.Kind)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// Transient reports whether a retry against the same backend is sane.
// Timeout, rate-limit, and unavailability are transient; a malformed
// answer from a healthy backend is not.
func (e *GatewayError) Transient() bool {
	switch e.Kind {
	case KindTimeout, KindRateLimited, KindUnavailable:
		return true
	default:
		return false
	}
}

func newGatewayError(kind ErrorKind, backend string, err error) *GatewayError {
	return &GatewayError{Kind: kind, Backend: backend, Err: err}
}

// classifyTransport maps transport-level errors to a GatewayError.
// HTTP status mapping is done per-adapter where status codes are
// visible; this handles the shared context/net cases.
func classifyTransport(backend string, err error) *GatewayError {
	if errors.Is(err, context.DeadlineExceeded) {
		return newGatewayError(KindTimeout, backend, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return newGatewayError(KindTimeout, backend, err)
	}
	return newGatewayError(KindUnavailable, backend, err)
}

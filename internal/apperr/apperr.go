// Package apperr holds the two tagged error kinds that cross the tool-call
// boundary, plus the internal-only control-flow error the router uses to
// request a fallback.
package apperr

import (
	"errors"
	"fmt"
)

// Official error codes.
const (
	CodeOfficialToolError  = "official_tool_error"
	CodeOfficialUnavailable = "official_unavailable"
)

// OfficialToolError is raised by the upstream session manager. ToolError
// (code official_tool_error) is semantic — the upstream server answered
// successfully but reported isError=true — and must never be retried or
// masked by local fallback. Unavailable (code official_unavailable) is a
// transport failure surfaced after the session manager's one internal
// retry.
type OfficialToolError struct {
	Code    string
	Message string
}

func (e *OfficialToolError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewToolError(message string) *OfficialToolError {
	return &OfficialToolError{Code: CodeOfficialToolError, Message: message}
}

func NewUnavailable(message string) *OfficialToolError {
	return &OfficialToolError{Code: CodeOfficialUnavailable, Message: message}
}

// IsSemantic reports whether err is an OfficialToolError with the semantic
// (never-retried, never-masked) code.
func IsSemantic(err error) bool {
	var t *OfficialToolError
	if !errors.As(err, &t) {
		return false
	}
	return t.Code == CodeOfficialToolError
}

// LocalFallbackRequested is raised by the local dispatch path and is pure
// control flow inside the router; it must never escape to a caller. This is
// cleaner modeled as a result variant than an exception — Go's error
// return already gives us that, so
// this stays an unexported-boundary error type).
type LocalFallbackRequested struct {
	Cause string
}

const (
	CauseUnsupportedTool   = "unsupported_tool"
	CauseDegradedLocal     = "degraded_local"
	CauseUnsupportedFilter = "unsupported_filter"
)

func (e *LocalFallbackRequested) Error() string {
	return fmt.Sprintf("local fallback requested: %s", e.Cause)
}

func NewFallback(cause string) *LocalFallbackRequested {
	return &LocalFallbackRequested{Cause: cause}
}

// AsFallback extracts a *LocalFallbackRequested from err, if it is one.
func AsFallback(err error) (*LocalFallbackRequested, bool) {
	var f *LocalFallbackRequested
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}

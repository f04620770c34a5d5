package errors

import (
	"context"
	"errors"
)

// ErrorCode classifies an error for CLI and HTTP reporting.
type ErrorCode string

const (
	CodeNotFound      ErrorCode = "not_found"
	CodeValidation    ErrorCode = "validation"
	CodeInvalidState  ErrorCode = "invalid_state"
	CodeStorageParse  ErrorCode = "storage_parse"
	CodeTimeout       ErrorCode = "timeout"
	CodeStorageFailed ErrorCode = "storage_failed"
)

// ErrorCodeInfo contains metadata about an error code.
type ErrorCodeInfo struct {
	Code            ErrorCode
	Description     string
	SuggestedAction string
}

// ErrorCodeRegistry maps error codes to their metadata.
var ErrorCodeRegistry = map[ErrorCode]ErrorCodeInfo{
	CodeNotFound: {
		Code:            CodeNotFound,
		Description:     "Meeting not found",
		SuggestedAction: "List known meetings: breeze meeting list",
	},
	CodeValidation: {
		Code:            CodeValidation,
		Description:     "Input failed validation",
		SuggestedAction: "Check the command flags: breeze meeting create --help",
	},
	CodeInvalidState: {
		Code:            CodeInvalidState,
		Description:     "Operation not allowed for the meeting's current status",
		SuggestedAction: "Check the meeting status: breeze meeting show <meeting-id>",
	},
	CodeStorageParse: {
		Code:            CodeStorageParse,
		Description:     "Stored meetings could not be decoded",
		SuggestedAction: "Inspect the storage slot; the next write replaces malformed content",
	},
	CodeTimeout: {
		Code:            CodeTimeout,
		Description:     "Operation exceeded time limit",
		SuggestedAction: "Raise the timeout: breeze config set timeout 1m",
	},
	CodeStorageFailed: {
		Code:            CodeStorageFailed,
		Description:     "Storage backend error",
		SuggestedAction: "Check the backend: breeze health",
	},
}

// CodeFor classifies err. Unrecognized errors are reported as storage failures
// since every other failure path returns a sentinel.
func CodeFor(err error) ErrorCode {
	switch {
	case err == nil:
		return ""
	case IsNotFound(err):
		return CodeNotFound
	case IsValidation(err):
		return CodeValidation
	case IsInvalidState(err):
		return CodeInvalidState
	case IsStorageParse(err):
		return CodeStorageParse
	case errors.Is(err, context.DeadlineExceeded):
		return CodeTimeout
	default:
		return CodeStorageFailed
	}
}

// GetSuggestedAction returns the suggested action for the given error code.
func GetSuggestedAction(code ErrorCode) string {
	if info, ok := ErrorCodeRegistry[code]; ok {
		return info.SuggestedAction
	}
	return "Re-run with --debug for details"
}

// GetDescription returns the human-readable description for the given error code.
func GetDescription(code ErrorCode) string {
	if info, ok := ErrorCodeRegistry[code]; ok {
		return info.Description
	}
	return "Unknown error"
}

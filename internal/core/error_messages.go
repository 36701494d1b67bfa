// # Error Codes Reference
//
// This file defines user-friendly error messages with codes for support reference.
// When an operator or dashboard user sees an error, they can quote the code.
//
// Error codes are grouped by category:
//
// # Schema Errors (SCH001-SCH099)
//
// Errors raised while normalizing source tables. These abort startup:
//
//	SCH001 - Schema mismatch: A source table lacks an expected column
//	         Action: Compare the source file header with the manifest
//	         Patterns: "schema mismatch"
//
// # Source Errors (SRC001-SRC099)
//
// Errors raised while loading source tables:
//
//	SRC001 - Unknown source: A source is not configured or not loaded
//	         Action: Check the data manifest and data directory
//	         Patterns: "unknown source"
//
//	SRC002 - Source unreadable: A source file could not be opened or parsed
//	         Action: Verify the file exists and is a valid CSV
//	         Patterns: "no such file", "file does not exist", "parse error"
//
//	SRC003 - Database unavailable: The source database could not be reached
//	         Action: Check DATABASE_URL and database health
//	         Patterns: "connection refused"
//
// # Data Errors (DATA001-DATA099)
//
// Empty query results. These are normal with sparse reporting:
//
//	DATA001 - No data for country
//	          Patterns: "no data for country"
//
//	DATA002 - No data for year
//	          Patterns: "no data for year"
//
// # Filter Errors (FLT001-FLT099)
//
//	FLT001 - Invalid filter value: A selection is outside the known domain
//	         Action: The nearest valid value was used instead
//	         Patterns: "invalid filter value"
//
// # View Errors (VIEW001-VIEW099)
//
//	VIEW001 - Unknown view
//	          Patterns: "unknown view"
//
// # Request Errors (REQ001-REQ099)
//
//	REQ001 - Request cancelled
//	         Patterns: "context canceled"
//
//	REQ002 - Request timeout
//	         Patterns: "context deadline exceeded"
//
//	REQ003 - Malformed request: The request body could not be decoded
//	         Patterns: "invalid request body"
//
// # Rate Limiting (RATE001-RATE099)
//
//	RATE001 - Rate limited: Too many requests
//	          Patterns: "rate limit"
//
// # Default Error (ERR000)
//
// Fallback when no specific pattern matches. Check application logs for the
// original technical error.
//
// # Pattern Matching
//
// Error patterns are matched case-insensitively using strings.Contains.
// The first matching pattern wins, so more specific patterns should be
// defined before general ones.

package core

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error patterns (case-insensitive) to user messages.
// The first matching pattern wins.
var errorPatterns = []errorPattern{
	// =========================================================================
	// Schema and source errors (SCH, SRC)
	// =========================================================================
	{
		pattern: "schema mismatch",
		msg: UserMessage{
			Message: "A source table does not match its expected layout",
			Action:  "Compare the source file header with the manifest",
			Code:    "SCH001",
		},
	},
	{
		pattern: "unknown source",
		msg: UserMessage{
			Message: "A data source is not configured or not loaded",
			Action:  "Check the data manifest and data directory",
			Code:    "SRC001",
		},
	},
	{
		pattern: "no such file",
		msg: UserMessage{
			Message: "A source file could not be opened",
			Action:  "Verify the file exists in the data directory",
			Code:    "SRC002",
		},
	},
	{
		pattern: "file does not exist",
		msg: UserMessage{
			Message: "A source file could not be opened",
			Action:  "Verify the file exists in the data directory",
			Code:    "SRC002",
		},
	},
	{
		pattern: "parse error",
		msg: UserMessage{
			Message: "A source file is not a valid CSV",
			Action:  "Ensure the file is comma-separated with consistent columns",
			Code:    "SRC002",
		},
	},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to the source database",
			Action:  "Check DATABASE_URL and database health",
			Code:    "SRC003",
		},
	},

	// =========================================================================
	// Query results (DATA)
	// =========================================================================
	{
		pattern: "no data for country",
		msg: UserMessage{
			Message: "No data reported for this country",
			Action:  "Select another country",
			Code:    "DATA001",
		},
	},
	{
		pattern: "no data for year",
		msg: UserMessage{
			Message: "No data reported for this year",
			Action:  "Select another year",
			Code:    "DATA002",
		},
	},

	// =========================================================================
	// Filters and views (FLT, VIEW)
	// =========================================================================
	{
		pattern: "invalid filter value",
		msg: UserMessage{
			Message: "A selection was outside the available range",
			Action:  "The nearest valid value was used instead",
			Code:    "FLT001",
		},
	},
	{
		pattern: "unknown view",
		msg: UserMessage{
			Message: "Unknown view",
			Action:  "Verify the view name is correct",
			Code:    "VIEW001",
		},
	},

	// =========================================================================
	// Request lifecycle (REQ, RATE)
	// =========================================================================
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "REQ001",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Please try again",
			Code:    "REQ002",
		},
	},
	{
		pattern: "invalid request body",
		msg: UserMessage{
			Message: "The request could not be read",
			Action:  "Send filter updates as a JSON object",
			Code:    "REQ003",
		},
	},
	{
		pattern: "renderer busy",
		msg: UserMessage{
			Message: "The chart service is busy",
			Action:  "Reload the page in a few seconds",
			Code:    "RATE002",
		},
	},
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

// defaultMessage is returned when no pattern matches (ERR000).
// This is the fallback for unexpected errors. Support staff should check
// application logs for the original technical error when users report ERR000.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// It searches through known error patterns (case-insensitive) and returns
// the first match. If no pattern matches, a generic fallback message with
// code ERR000 is returned.
//
// Example:
//
//	_, err := views.SummaryFor(ds, "Atlantis")
//	msg := MapError(err)
//	// msg.Code == "DATA001"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())

	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
//
// Example output: "No data reported for this country (Code: DATA001). Select another country"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing checks if an error matches a known pattern and should be shown to users.
// Returns true if the error matches a specific pattern (not the generic ERR000 fallback).
// Use this to decide whether to show the raw error or the mapped user message.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	msg := MapError(err)
	return msg.Code != defaultMessage.Code
}

// UserError pairs a technical error with its user-facing message.
type UserError struct {
	Technical error       // Original technical error for logging
	User      UserMessage // User-friendly message for display
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError creates a UserError by mapping a technical error to a user-friendly message.
// The returned UserError preserves the original technical error for logging via Unwrap(),
// while providing a clean user message via Error().
//
// Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}

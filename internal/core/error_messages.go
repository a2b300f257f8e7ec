// Package core provides the CSV column cleaning pipeline.
//
// # Error Codes Reference
//
// This file maps errors to user-friendly messages with codes for support
// reference. Users can quote the code when reporting a problem.
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large: File exceeds the maximum upload size
//	          Action: Remove unneeded rows or split the file
//	          Patterns: "file too large", "request body too large"
//
//	FILE002 - Malformed CSV: A row does not have as many cells as the header
//	          Action: Check the reported line for missing or extra commas
//	          Matches: ErrMalformedRow; Patterns: "invalid csv"
//
//	FILE003 - Encoding error: File could not be decoded
//	          Action: Save the file as UTF-8 or pick its encoding
//	          Matches: ErrUnknownEncoding; Patterns: "encoding error"
//
//	FILE004 - No file: No file was selected
//	          Action: Please select a CSV file to upload
//	          Patterns: "no file provided"
//
//	FILE005 - Empty file: The file has no header row
//	          Action: Upload a CSV file whose first line lists column names
//	          Matches: ErrEmptyFile
//
// # Selection Errors (SEL001-SEL099)
//
//	SEL001 - No columns selected
//	         Action: Select at least one column to keep
//	         Matches: ErrNoColumnsSelected
//
//	SEL002 - Unknown column: A requested column is not in the file
//	         Action: Check the spelling and case of the column names
//	         Matches: ErrUnknownColumn
//
//	SEL003 - No default match: None of the default columns exist in the file
//	         Action: Use Select All or pick columns manually
//	         Matches: ErrNoDefaultMatch
//
//	SEL004 - Unknown profile: The requested column profile does not exist
//	         Action: Choose one of the listed profiles
//	         Patterns: "unknown profile"
//
// # Session Errors (SES001-SES099)
//
//	SES001 - Session expired: The uploaded file is no longer available
//	         Action: Upload the file again
//	         Patterns: "session not found"
//
// # Upload Errors (UPL001-UPL099)
//
//	UPL002 - System busy: Too many files are being processed
//	         Action: Please wait a moment and try again
//	         Patterns: "too many concurrent loads"
//
//	UPL004 - Request cancelled
//	         Matches: context.Canceled
//
//	UPL005 - Request timeout
//	         Matches: context.DeadlineExceeded
//
// # Rate Limiting (RATE001)
//
//	RATE001 - Too many requests
//	          Patterns: "rate limit"
//
// # Default Error (ERR000)
//
// Fallback when nothing matches. Check the application logs for the
// technical error.
//
// # Matching
//
// Sentinel errors are matched first with errors.Is, so wrapped errors keep
// their code. Remaining errors are matched case-insensitively by substring;
// the first matching pattern wins.
package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

var (
	msgFileTooLarge = UserMessage{
		Message: "File exceeds the maximum upload size",
		Action:  "Remove unneeded rows or split the file",
		Code:    "FILE001",
	}
	msgMalformed = UserMessage{
		Message: "A row does not have as many cells as the header",
		Action:  "Check the reported line for missing or extra commas",
		Code:    "FILE002",
	}
	msgEncoding = UserMessage{
		Message: "File could not be decoded",
		Action:  "Save the file as UTF-8 or pick its encoding",
		Code:    "FILE003",
	}
	msgNoFile = UserMessage{
		Message: "No file was selected",
		Action:  "Please select a CSV file to upload",
		Code:    "FILE004",
	}
	msgEmptyFile = UserMessage{
		Message: "The file has no header row",
		Action:  "Upload a CSV file whose first line lists column names",
		Code:    "FILE005",
	}
	msgNoColumns = UserMessage{
		Message: "Please select at least one column to keep",
		Action:  "Select at least one column to keep",
		Code:    "SEL001",
	}
	msgUnknownColumn = UserMessage{
		Message: "A requested column is not in the file",
		Action:  "Check the spelling and case of the column names",
		Code:    "SEL002",
	}
	msgNoDefaultMatch = UserMessage{
		Message: "No matching columns found in your CSV file",
		Action:  "Use Select All or pick columns manually",
		Code:    "SEL003",
	}
	msgUnknownProfile = UserMessage{
		Message: "The requested column profile does not exist",
		Action:  "Choose one of the listed profiles",
		Code:    "SEL004",
	}
	msgSessionExpired = UserMessage{
		Message: "The uploaded file is no longer available",
		Action:  "Upload the file again",
		Code:    "SES001",
	}
	msgBusy = UserMessage{
		Message: "System is busy processing other files",
		Action:  "Please wait a moment and try again",
		Code:    "UPL002",
	}
	msgCancelled = UserMessage{
		Message: "Request was cancelled",
		Action:  "Please try again",
		Code:    "UPL004",
	}
	msgTimeout = UserMessage{
		Message: "Request timed out",
		Action:  "Try a smaller file or check your connection",
		Code:    "UPL005",
	}
	msgRateLimited = UserMessage{
		Message: "Too many requests",
		Action:  "Please wait a moment before trying again",
		Code:    "RATE001",
	}
)

// sentinelMessages is checked in order with errors.Is before any pattern.
var sentinelMessages = []struct {
	target error
	msg    UserMessage
}{
	{ErrEmptyFile, msgEmptyFile},
	{ErrMalformedRow, msgMalformed},
	{ErrUnknownEncoding, msgEncoding},
	{ErrNoColumnsSelected, msgNoColumns},
	{ErrUnknownColumn, msgUnknownColumn},
	{ErrNoDefaultMatch, msgNoDefaultMatch},
	{context.Canceled, msgCancelled},
	{context.DeadlineExceeded, msgTimeout},
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error text (lowercase) to user messages.
// More specific patterns must come before general ones.
var errorPatterns = []errorPattern{
	{pattern: "file too large", msg: msgFileTooLarge},
	{pattern: "request body too large", msg: msgFileTooLarge},
	{pattern: "invalid csv", msg: msgMalformed},
	{pattern: "encoding error", msg: msgEncoding},
	{pattern: "no file provided", msg: msgNoFile},
	{pattern: "unknown profile", msg: msgUnknownProfile},
	{pattern: "session not found", msg: msgSessionExpired},
	{pattern: "too many concurrent loads", msg: msgBusy},
	{pattern: "rate limit", msg: msgRateLimited},
}

// defaultMessage is returned when no pattern matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// A nil error maps to the zero UserMessage.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	for _, s := range sentinelMessages {
		if errors.Is(err, s.target) {
			return s.msg
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display:
// "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific message rather than
// the ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error (for logs) with its user message.
type UserError struct {
	Technical error
	User      UserMessage
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err to a UserError. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}

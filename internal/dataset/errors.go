package dataset

// errors.go maps dataset errors to coded, user-facing messages.
//
// Codes are grouped by category so a code quoted by a user points support at
// the failing layer:
//
//	FLD001 - Unknown field          (schema.ErrFieldNotFound)
//	FLD002 - Duplicate field name   (schema.ErrDuplicateField)
//	FLD003 - Empty field name       (schema.ErrEmptyFieldName)
//	FLD004 - No fields              (schema.ErrNoFields)
//	FLD005 - Field is read only     (ErrReadOnlyField)
//
//	REC001 - Record not found       (ErrRecordNotFound)
//	REC002 - Record is read only    (ErrReadOnlyRecord)
//	REC003 - Row no longer exists   (source.ErrRowNotFound)
//
//	ORD001 - Too many sort columns  (ErrTooManySorts)
//	ORD002 - Invalid sort direction (ErrSortDirection)
//	ORD003 - Find needs a sort      (ErrNotSortedBy)
//	ORD004 - Window out of range    (ErrWindowOutOfRange)
//
//	SRC001 - No loader              (ErrNoLoader)
//	SRC002 - CSV has no header      (source.ErrNoHeader)
//	SRC003 - Database unreachable   ("connection refused")
//	SRC004 - Request cancelled      (context.Canceled)
//	SRC005 - Request timed out      (context.DeadlineExceeded)
//
//	ERR000 - Unexpected error
//
// Sentinels are matched with errors.Is first; plain message patterns cover
// errors from drivers that do not wrap a sentinel.

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/xilytix/revdatasource/internal/schema"
	"github.com/xilytix/revdatasource/internal/source"
)

var (
	ErrRecordNotFound   = errors.New("record not found")
	ErrReadOnlyRecord   = errors.New("record source is read only")
	ErrReadOnlyField    = errors.New("field is computed and read only")
	ErrTooManySorts     = errors.New("too many sort columns")
	ErrSortDirection    = errors.New("invalid sort direction")
	ErrNotSortedBy      = errors.New("dataset is not sorted by field")
	ErrWindowOutOfRange = errors.New("window out of range")
	ErrNoLoader         = errors.New("dataset has no loader")
	ErrSourceMismatch   = errors.New("source field count does not match schema")
)

// UserMessage is the user-facing rendition of an error.
type UserMessage struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Action  string `json:"action"`
}

type sentinelMessage struct {
	err error
	msg UserMessage
}

// sentinelMessages is checked in order; the first match wins.
var sentinelMessages = []sentinelMessage{
	{schema.ErrFieldNotFound, UserMessage{"FLD001", "Unknown field", "Check the field name against GET /api/fields"}},
	{schema.ErrFieldIndexOutOfRange, UserMessage{"FLD001", "Unknown field", "Check the field name against GET /api/fields"}},
	{schema.ErrDuplicateField, UserMessage{"FLD002", "Two fields share the same name", "Give every field a unique name"}},
	{schema.ErrEmptyFieldName, UserMessage{"FLD003", "A field has no name", "Give every field a name"}},
	{schema.ErrNoFields, UserMessage{"FLD004", "No fields were provided", "Provide at least one field"}},
	{ErrReadOnlyField, UserMessage{"FLD005", "This field is computed", "Edit a data field instead"}},

	{ErrRecordNotFound, UserMessage{"REC001", "Record not found", "Reload the page; the record may have been removed"}},
	{ErrReadOnlyRecord, UserMessage{"REC002", "This record cannot be edited", "Edit the row at its source"}},
	{source.ErrRowNotFound, UserMessage{"REC003", "The row no longer exists in the database", "Reload the dataset"}},

	{ErrTooManySorts, UserMessage{"ORD001", "Too many sort columns", "Sort by fewer columns"}},
	{ErrSortDirection, UserMessage{"ORD002", "Invalid sort direction", "Use asc or desc"}},
	{ErrNotSortedBy, UserMessage{"ORD003", "Search needs the field to be the primary sort", "Sort by the field first"}},
	{ErrWindowOutOfRange, UserMessage{"ORD004", "Requested rows are out of range", "Request rows within the record count"}},

	{ErrNoLoader, UserMessage{"SRC001", "The dataset cannot be reloaded", "Configure DATASET_SOURCE"}},
	{source.ErrNoHeader, UserMessage{"SRC002", "The CSV file has no header row", "Add a header row naming the columns"}},
	{context.Canceled, UserMessage{"SRC004", "Request was cancelled", "Please try again"}},
	{context.DeadlineExceeded, UserMessage{"SRC005", "Request timed out", "Please try again later"}},
}

type patternMessage struct {
	pattern string
	msg     UserMessage
}

// patternMessages are matched case-insensitively against the error text.
var patternMessages = []patternMessage{
	{"connection refused", UserMessage{"SRC003", "Unable to connect to database", "Please try again in a few moments"}},
	{"connection reset", UserMessage{"SRC003", "Database connection was interrupted", "Please try again"}},
	{"timeout", UserMessage{"SRC005", "Request timed out", "Please try again later"}},
}

var defaultMessage = UserMessage{
	Code:    "ERR000",
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
}

// MapError converts err to a user-facing message. A nil error maps to the
// zero UserMessage.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}
	for _, sm := range sentinelMessages {
		if errors.Is(err, sm.err) {
			return sm.msg
		}
	}

	text := strings.ToLower(err.Error())
	for _, pm := range patternMessages {
		if strings.Contains(text, pm.pattern) {
			return pm.msg
		}
	}
	return defaultMessage
}

// FormatUserError renders err as "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific message rather than the
// ERR000 fallback.
func IsUserFacing(err error) bool {
	return err != nil && MapError(err).Code != defaultMessage.Code
}

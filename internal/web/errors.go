package web

// errors.go turns handler errors into JSON responses.
//
// The technical error is logged with the request ID; the client receives the
// coded message from dataset.MapError so a reported code can be matched to
// the log entry.

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/xilytix/revdatasource/internal/dataset"
	"github.com/xilytix/revdatasource/internal/logging"
	"github.com/xilytix/revdatasource/internal/schema"
	"github.com/xilytix/revdatasource/internal/source"
)

// ErrorResponse is the JSON body of every error response.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	Action    string `json:"action,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// statusFor picks the HTTP status for a dataset error.
func statusFor(err error) int {
	switch {
	case errors.Is(err, dataset.ErrRecordNotFound),
		errors.Is(err, source.ErrRowNotFound):
		return http.StatusNotFound
	case errors.Is(err, schema.ErrFieldNotFound),
		errors.Is(err, schema.ErrDuplicateField),
		errors.Is(err, schema.ErrEmptyFieldName),
		errors.Is(err, schema.ErrNoFields),
		errors.Is(err, dataset.ErrTooManySorts),
		errors.Is(err, dataset.ErrSortDirection),
		errors.Is(err, dataset.ErrNotSortedBy),
		errors.Is(err, dataset.ErrWindowOutOfRange):
		return http.StatusBadRequest
	case errors.Is(err, dataset.ErrReadOnlyField),
		errors.Is(err, dataset.ErrReadOnlyRecord),
		errors.Is(err, dataset.ErrNoLoader):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs err and writes its user-facing message.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := dataset.MapError(err)

	log := logging.FromContext(r.Context())
	attrs := []any{
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", msg.Code,
	}
	if status >= http.StatusInternalServerError {
		log.Error("request error", attrs...)
	} else {
		log.Warn("request rejected", attrs...)
	}

	writeError(w, r, status, msg.Code, msg.Message, msg.Action)
}

// writeError writes a coded JSON error response.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message, action string) {
	writeJSON(w, r, status, ErrorResponse{
		Error:     message,
		Code:      code,
		Action:    action,
		RequestID: middleware.GetReqID(r.Context()),
	})
}

// badRequest reports malformed input that never reached the dataset.
func badRequest(w http.ResponseWriter, r *http.Request, message string) {
	logging.FromContext(r.Context()).Warn("bad request", "path", r.URL.Path, "reason", message)
	writeError(w, r, http.StatusBadRequest, "REQ001", message, "Check the request parameters")
}

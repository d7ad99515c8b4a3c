package web

// errors.go provides unified error response handling for the API.
//
// Every error is logged with full technical detail server-side and
// returned to the client as a stable machine-readable code plus a
// human-readable message. Parse-level failures map to 4xx codes the
// caller can act on; everything else is a 500 with the detail kept out
// of the response body.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/jivoecom/po-import/internal/logging"
	"github.com/jivoecom/po-import/internal/po"
)

// ErrorResponse is the JSON structure for API error responses.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// respondError logs the technical error and writes the mapped API error.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status, code, message := mapError(err)

	logging.FromContext(r.Context()).Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"code", code,
		"error", err.Error(),
		"request_id", chimw.GetReqID(r.Context()),
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: message, Code: code})
}

// mapError classifies an error into HTTP status, stable code, and a
// client-safe message.
func mapError(err error) (status int, code, message string) {
	var decodeErr *po.DecodeError
	var structErr *po.StructureError

	switch {
	case errors.Is(err, po.ErrUnknownPlatform):
		return http.StatusNotFound, "UNKNOWN_PLATFORM", err.Error()
	case errors.As(err, &decodeErr):
		return http.StatusBadRequest, "DECODE_FAILED", decodeErr.Error()
	case errors.As(err, &structErr):
		return http.StatusUnprocessableEntity, "STRUCTURE_UNRECOGNIZED", structErr.Error()
	default:
		return http.StatusInternalServerError, "INTERNAL", "internal server error"
	}
}

// writeJSON encodes v as JSON and writes it to w.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Headers are already sent; nothing to do but log
		slog.Error("json encode error", "error", err)
	}
}

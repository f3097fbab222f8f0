package controllers

import (
	"encoding/json"
	"net/http"
	"strconv"

	livesvc "github.com/corbtastik/incident-visualizer/internal/services/live"
)

// writeError writes an error response with the given status code, wire code
// and message.
func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	writeBody(w, errorResp{Error: message, Code: code})
}

// writeJSON writes a 200 JSON response with the given data.
func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	writeBody(w, data)
}

func writeBody(w http.ResponseWriter, data any) {
	_ = json.NewEncoder(w).Encode(data)
}

// statusFor maps a wire error code to an HTTP status: 400 for caller
// errors, 500 otherwise.
func statusFor(code string) int {
	switch code {
	case livesvc.CodeUnsupportedCategory, livesvc.CodeInvalidCursor, livesvc.CodeInvalidFilter:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// parseLimit parses a limit string. Returns 0 (service default) for empty
// or invalid values.
func parseLimit(limitStr string) int {
	if limitStr == "" {
		return 0
	}
	if limit, err := strconv.Atoi(limitStr); err == nil && limit > 0 {
		return limit
	}
	return 0
}

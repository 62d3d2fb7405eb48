package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Pedroca011/finflow-dashboard/internal/domain"
)

// timeLayout is the wire format of every timestamp.
const timeLayout = "2006-01-02T15:04:05Z"

// WriteJSON writes a JSON response with the given status code and data.
// Sets Content-Type to application/json before writing the status code.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data) // Write error intentionally ignored in response helper
}

// errorResponse is the standard error response format.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// WriteError writes a standard error response with the given status code,
// error code, and human-readable message.
func WriteError(w http.ResponseWriter, status int, errorCode, message string) {
	WriteJSON(w, status, errorResponse{
		Error:   errorCode,
		Message: message,
	})
}

// writeUnexpected handles errors no endpoint-specific mapping recognized.
func writeUnexpected(w http.ResponseWriter, err error) {
	var depErr *domain.DependencyError
	if errors.As(err, &depErr) {
		slog.Error("dependency unavailable",
			slog.String("dependency", depErr.Dependency),
			slog.String("error", depErr.Err.Error()),
		)
		WriteError(w, http.StatusServiceUnavailable, "dependency_unavailable",
			depErr.Dependency+" is unavailable, try again later")
		return
	}
	slog.Error("unexpected error", slog.String("error", err.Error()))
	WriteError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
}

// ParseJSON decodes the request body as JSON into v.
// It validates that the Content-Type header is application/json and
// returns an error for missing/incorrect content type or malformed JSON.
func ParseJSON(r *http.Request, v any) error {
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(ct, "application/json") {
		return fmt.Errorf("Request body must be valid JSON with Content-Type: application/json")
	}

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("Request body must be valid JSON with Content-Type: application/json")
	}

	return nil
}

// money renders an amount as a JSON number without float conversion.
func money(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}

func optionalMoney(d *decimal.Decimal) *json.Number {
	if d == nil {
		return nil
	}
	n := money(*d)
	return &n
}

func timestamp(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func optionalTimestamp(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := timestamp(*t)
	return &s
}

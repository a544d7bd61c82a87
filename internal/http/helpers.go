package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"scadenze/internal/core"
	"scadenze/internal/middleware/trace"
)

const maxBodyBytes = 64 * 1024

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func respondError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	respondJSON(w, status, errorResponse{
		Error:     msg,
		RequestID: trace.RequestID(r.Context()),
	})
}

// decodeJSON reads a bounded JSON body into dst, rejecting unknown fields.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	// A second value means trailing garbage.
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("unexpected data after JSON body")
	}
	return nil
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	w.WriteHeader(http.StatusMethodNotAllowed)
}

// ownerFrom resolves the acting owner from the X-Owner-ID header, falling
// back to the owner query parameter.
func ownerFrom(r *http.Request) string {
	if v := strings.TrimSpace(r.Header.Get("X-Owner-ID")); v != "" {
		return v
	}
	return strings.TrimSpace(r.URL.Query().Get("owner"))
}

// parseDateParam parses an optional YYYY-MM-DD query or body value. Empty
// input yields the zero date without error.
func parseDateParam(s string) (core.Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return core.Date{}, nil
	}
	return core.ParseDate(s)
}

// sanitizeText trims whitespace and strips control characters from
// free-form fields.
func sanitizeText(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

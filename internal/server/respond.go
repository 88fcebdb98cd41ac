package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/zombor/pantry-manager/internal/address"
	"github.com/zombor/pantry-manager/internal/fiscal"
	"github.com/zombor/pantry-manager/internal/pantry"
	"github.com/zombor/pantry-manager/internal/remote"
	"github.com/zombor/pantry-manager/internal/scanning"
)

// userHeader selects the account a request acts for
const userHeader = "X-User-ID"

const defaultUser = "default"

// maxBodySize bounds JSON request bodies
const maxBodySize = 1 << 20

var errNotConfigured = errors.New("feature not configured")

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+userHeader)
	w.Header().Set("Access-Control-Max-Age", "3600")
}

// corsError writes a JSON error with CORS headers
func corsError(w http.ResponseWriter, message string, code int) {
	setCORSHeaders(w)
	writeJSONError(w, message, code)
}

func writeJSONError(w http.ResponseWriter, message string, code int) {
	writeJSON(w, code, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// statusFor maps service errors to HTTP status codes
func statusFor(err error) int {
	var remoteErr *fiscal.RemoteError
	switch {
	case errors.Is(err, pantry.ErrValidation),
		errors.Is(err, address.ErrInvalidCEP):
		return http.StatusBadRequest
	case errors.Is(err, pantry.ErrNotFound),
		errors.Is(err, remote.ErrNotFound),
		errors.Is(err, address.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, fiscal.ErrInvalidQRCode),
		errors.Is(err, scanning.ErrNoQRCode):
		return http.StatusUnprocessableEntity
	case errors.As(err, &remoteErr):
		return http.StatusBadGateway
	case errors.Is(err, pantry.ErrNoGenerator),
		errors.Is(err, fiscal.ErrNoScanner),
		errors.Is(err, fiscal.ErrNoLookup),
		errors.Is(err, errNotConfigured):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError logs err and answers with its mapped status. Internal errors
// are not echoed to the client.
func writeError(w http.ResponseWriter, r *http.Request, action string, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		slog.Error("Error "+action, "method", r.Method, "path", r.URL.Path, "error", err)
		corsError(w, "Internal server error", code)
		return
	}
	slog.Warn("Rejected request", "action", action, "path", r.URL.Path, "status", code, "error", err)
	corsError(w, err.Error(), code)
}

// userID returns the account from the X-User-ID header
func userID(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get(userHeader)); id != "" {
		return id
	}
	return defaultUser
}

// decodeBody reads a JSON request body into v and answers 400 on failure
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		corsError(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return false
	}
	return true
}

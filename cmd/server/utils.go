package main

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	gemcert "github.com/powerbrainlabs/diamond-erp-back-end"
)

// APIResponse is the standard response format
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Code    string      `json:"code,omitempty"`
}

// writeJSON writes JSON response to http.ResponseWriter
func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}

// writeSuccess writes a success response
func writeSuccess(w http.ResponseWriter, statusCode int, data interface{}) error {
	return writeJSON(w, statusCode, data)
}

// writeError writes a plain error response
func writeError(w http.ResponseWriter, statusCode int, message string) error {
	return writeJSON(w, statusCode, APIResponse{
		Success: false,
		Error:   message,
	})
}

// writeEngineError maps a CertError to its HTTP status and response body
func writeEngineError(w http.ResponseWriter, err error) error {
	if ce, ok := gemcert.AsCertError(err); ok {
		return writeJSON(w, statusForError(ce), APIResponse{
			Success: false,
			Error:   ce.Message,
			Code:    ce.Code,
		})
	}
	return writeError(w, http.StatusInternalServerError, err.Error())
}

func statusForError(ce *gemcert.CertError) int {
	switch ce.Type {
	case gemcert.ErrorTypeValidation:
		return http.StatusUnprocessableEntity
	case gemcert.ErrorTypeNotFound:
		return http.StatusNotFound
	case gemcert.ErrorTypeConflict:
		return http.StatusConflict
	case gemcert.ErrorTypeAllocation:
		// Operators widen the sequence width; clients cannot fix this by
		// changing the request.
		return http.StatusServiceUnavailable
	case gemcert.ErrorTypeStorage:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// parsePath splits /api/v1/{resource}/{id}[/{action}] after the prefix
func parsePath(path, prefix string) []string {
	path = strings.TrimPrefix(path, prefix)
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

// parseUUID parses a UUID string
func parseUUID(s string) (uuid.UUID, error) {
	return uuid.Parse(s)
}

// readJSONBody reads and decodes JSON from request body
func readJSONBody(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// identityFromRequest builds the acting identity from request headers. The
// gateway in front of this service authenticates the user and forwards the
// identity headers.
func identityFromRequest(r *http.Request) gemcert.Identity {
	id := gemcert.Identity{
		UserID: r.Header.Get("X-User-Id"),
		Name:   r.Header.Get("X-User-Name"),
		Email:  r.Header.Get("X-User-Email"),
	}
	if id.UserID == "" {
		id.UserID = "anonymous"
	}
	return id
}

func queryInt(r *http.Request, key string, defaultValue int) int {
	if value := r.URL.Query().Get(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func queryBool(r *http.Request, key string) *bool {
	value := r.URL.Query().Get(key)
	if value == "" {
		return nil
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return nil
	}
	return &parsed
}

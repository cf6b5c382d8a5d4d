package handlers

import (
	"errors"
	"net/http"

	"github.com/goccy/go-json"

	"travelog/internal/logging"
	"travelog/internal/social"
	"travelog/internal/validation"
)

// Response is the envelope of every JSON response.
type Response struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *APIError `json:"error,omitempty"`
}

type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Details   any    `json:"details,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

const (
	ErrCodeBadRequest       = "BAD_REQUEST"
	ErrCodeValidationFailed = "VALIDATION_FAILED"
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeConflict         = "CONFLICT"
	ErrCodeTooManyRequests  = "TOO_MANY_REQUESTS"
	ErrCodeInternalError    = "INTERNAL_ERROR"
	ErrCodeUnavailable      = "SERVICE_UNAVAILABLE"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, r *http.Request, status int, body Response) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("encode response")
	}
}

func ok(w http.ResponseWriter, r *http.Request, data any) {
	writeJSON(w, r, http.StatusOK, Response{Success: true, Data: data})
}

func created(w http.ResponseWriter, r *http.Request, data any) {
	writeJSON(w, r, http.StatusCreated, Response{Success: true, Data: data})
}

func fail(w http.ResponseWriter, r *http.Request, status int, code, message string, details any) {
	writeJSON(w, r, status, Response{Error: &APIError{
		Code:      code,
		Message:   message,
		Details:   details,
		RequestID: logging.RequestIDFromContext(r.Context()),
	}})
}

// writeError maps store errors onto HTTP statuses. Anything unrecognized is
// logged and reported as a 500 without its text.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *validation.RequestValidationError
	switch {
	case errors.As(err, &verr):
		fail(w, r, http.StatusBadRequest, ErrCodeValidationFailed, "validation failed", verr.Fields)
	case errors.Is(err, social.ErrUnauthorized):
		fail(w, r, http.StatusUnauthorized, ErrCodeUnauthorized, "authentication required", nil)
	case errors.Is(err, social.ErrInvalidOperation), errors.Is(err, social.ErrInvalidArgument):
		fail(w, r, http.StatusBadRequest, ErrCodeBadRequest, err.Error(), nil)
	case errors.Is(err, social.ErrNotFound):
		fail(w, r, http.StatusNotFound, ErrCodeNotFound, "not found", nil)
	case errors.Is(err, social.ErrContention):
		fail(w, r, http.StatusConflict, ErrCodeConflict, "too many concurrent changes, try again", nil)
	case errors.Is(err, social.ErrAlreadyExists):
		fail(w, r, http.StatusConflict, ErrCodeConflict, "username or email already taken", nil)
	default:
		logging.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		fail(w, r, http.StatusInternalServerError, ErrCodeInternalError, "internal server error", nil)
	}
}

// decode reads a JSON body into dst.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		fail(w, r, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body", nil)
		return false
	}
	return true
}

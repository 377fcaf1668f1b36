package devserver

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/yndnr/calbook-go/internal/core/domain"
	"github.com/yndnr/calbook-go/internal/telemetry/logger"
)

const maxBody = 1 << 20

// errorBody is the backend error envelope.
type errorBody struct {
	Error             string `json:"error"`
	Code              string `json:"code,omitempty"`
	DeviceID          string `json:"device_id,omitempty"`
	GraceLoginAllowed bool   `json:"grace_login_allowed,omitempty"`
}

// writeJSON writes data as a JSON response.
func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

// writeError writes the backend error envelope.
func (s *Server) writeError(w http.ResponseWriter, status int, body errorBody) {
	s.writeJSON(w, status, body)
}

// handleError maps err to a status and envelope.
func (s *Server) handleError(w http.ResponseWriter, r *http.Request, err error) {
	var se *statusError
	if errors.As(err, &se) {
		s.writeError(w, se.status, bodyFor(se.err))
		return
	}

	var locked *lockedError
	if errors.As(err, &locked) {
		w.Header().Set("Retry-After", retryAfterSeconds(locked.wait))
		s.writeError(w, http.StatusTooManyRequests, errorBody{Error: locked.Error(), Code: "throttled"})
		return
	}

	var de *domain.DomainError
	if errors.As(err, &de) {
		s.writeError(w, errorCodeToHTTPStatus(de.Code), bodyFor(de))
		return
	}

	logger.L(r.Context()).Error("internal error", "error", err, "path", r.URL.Path)
	s.writeError(w, http.StatusInternalServerError, errorBody{Error: "internal server error"})
}

// statusError forces the response status for err.
type statusError struct {
	status int
	err    error
}

func (e *statusError) Error() string { return e.err.Error() }
func (e *statusError) Unwrap() error { return e.err }

// withStatus answers err with status instead of the derived one.
func withStatus(status int, err error) error {
	return &statusError{status: status, err: err}
}

func bodyFor(err error) errorBody {
	var de *domain.DomainError
	if !errors.As(err, &de) {
		return errorBody{Error: err.Error()}
	}
	msg := de.Message
	if de.Details != "" {
		msg = de.Details
	}
	return errorBody{Error: msg, Code: domain.BackendCode(de)}
}

// Login outcomes that the client models as states are answered with 400
// so they never look like an expired session.
var badRequestCodes = map[string]bool{
	domain.ErrMFARequired.Code:     true,
	domain.ErrMFAInvalidCode.Code:  true,
	domain.ErrMFANotPending.Code:   true,
	domain.ErrPasswordExpired.Code: true,
}

// errorCodeToHTTPStatus derives the status from the code suffix.
func errorCodeToHTTPStatus(code string) int {
	switch {
	case badRequestCodes[code]:
		return http.StatusBadRequest
	case strings.HasSuffix(code, "-4040"):
		return http.StatusNotFound
	case strings.HasSuffix(code, "-4090"):
		return http.StatusConflict
	case strings.HasSuffix(code, "-4290"):
		return http.StatusTooManyRequests
	case strings.HasSuffix(code, "-4010"), strings.HasSuffix(code, "-4011"), strings.HasSuffix(code, "-4012"):
		return http.StatusUnauthorized
	case strings.HasPrefix(code, "CB-AUTH-403"):
		return http.StatusForbidden
	case strings.HasPrefix(code, "CB-SYS-5"):
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

// decode reads a JSON request body into v.
func decode(r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBody))
	if err := dec.Decode(v); err != nil {
		return domain.ErrBadRequest.WithDetails("malformed JSON body")
	}
	return nil
}

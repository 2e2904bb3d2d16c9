package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"regexp"

	"protospace/internal/api"
)

const (
	maxJSONBody          = 1 << 20
	internalErrorMessage = "internal error"
)

var (
	errInvalidID        = errors.New("invalid id")
	errMalformedJSON    = errors.New("invalid JSON payload")
	errJSONBodyTooLarge = errors.New("request body too large")

	// Store ids are a lowercase prefix, a dash, then lowercase base36 or hex.
	idPattern = regexp.MustCompile(`^[a-z0-9]{2,}-[a-z0-9-]+$`)
)

// statusCodes names the error class for a status when the error does not
// carry one.
var statusCodes = map[int]string{
	http.StatusBadRequest:            "invalid_argument",
	http.StatusUnauthorized:          "unauthorized",
	http.StatusForbidden:             "forbidden",
	http.StatusNotFound:              "not_found",
	http.StatusRequestEntityTooLarge: "request_too_large",
	http.StatusUnprocessableEntity:   "validation_failed",
	http.StatusInternalServerError:   "internal",
}

// apiError carries the HTTP status and the codes reported to API clients.
type apiError struct {
	status  int
	code    string
	errCode int
	err     error
}

func (e apiError) Error() string {
	if e.err == nil {
		return ""
	}
	return e.err.Error()
}

func (e apiError) Unwrap() error { return e.err }

// makeAPIError wraps err unless it already is an apiError with a status.
func makeAPIError(status int, code string, errCode int, err error) error {
	if err == nil {
		err = errors.New(http.StatusText(status))
	}
	if existing, ok := asAPIError(err); ok && existing.status != 0 {
		return existing
	}
	return apiError{status: status, code: code, errCode: errCode, err: err}
}

func asAPIError(err error) (apiError, bool) {
	var apiErr apiError
	ok := errors.As(err, &apiErr)
	return apiErr, ok
}

func badRequestCode(err error, code int) error {
	return makeAPIError(http.StatusBadRequest, "invalid_argument", code, err)
}

func notFoundCode(err error, code int) error {
	return makeAPIError(http.StatusNotFound, "not_found", code, err)
}

func unauthorizedCode(err error, code int) error {
	return makeAPIError(http.StatusUnauthorized, "unauthorized", code, err)
}

func unprocessable(err error, code int) error {
	return makeAPIError(http.StatusUnprocessableEntity, "validation_failed", code, err)
}

func internalError(err error) error {
	return makeAPIError(http.StatusInternalServerError, "internal", ErrCodeInternal, err)
}

func storeFailure(err error) error {
	return makeAPIError(http.StatusInternalServerError, "internal", ErrCodeStoreFailure, err)
}

func httpStatusFromError(err error) int {
	if apiErr, ok := asAPIError(err); ok && apiErr.status != 0 {
		return apiErr.status
	}
	return http.StatusInternalServerError
}

// errorCodes resolves the string and numeric codes reported for err.
func errorCodes(status int, err error) (string, int) {
	apiErr, _ := asAPIError(err)
	code := apiErr.code
	if code == "" {
		code = statusCodes[status]
	}
	numeric := apiErr.errCode
	if numeric <= 0 {
		numeric = defaultErrorCodeByStatus(status)
	}
	return code, numeric
}

// errorLogLevel logs server faults loudly and auth rejections as warnings.
// Other client errors stay at debug.
func errorLogLevel(status int) slog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return slog.LevelError
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return slog.LevelWarn
	default:
		return slog.LevelDebug
	}
}

func (s *Server) writeErrorReq(w http.ResponseWriter, r *http.Request, status int, err error) {
	s.writeErrorResponse(w, r, status, err, api.ErrorResponse{})
}

// writeErrorResponse fills the error fields of resp, logs the failure and
// writes resp. Messages of 5xx errors are not sent to the client.
func (s *Server) writeErrorResponse(w http.ResponseWriter, r *http.Request, status int, err error, resp api.ErrorResponse) {
	if err == nil {
		err = errors.New(http.StatusText(status))
	}
	code, numeric := errorCodes(status, err)

	attrs := []any{"status", status, "code", code, "error_code", numeric, "error", err}
	msg := "request rejected"
	if status >= http.StatusInternalServerError {
		msg = "request error"
	}
	ctx := context.Background()
	if r != nil {
		ctx = r.Context()
		attrs = append(attrs, "method", r.Method, "path", r.URL.Path, "remote_addr", r.RemoteAddr, "request_id", requestIDFromContext(ctx))
	}
	s.log().Log(ctx, errorLogLevel(status), msg, attrs...)

	resp.Error = err.Error()
	if status >= http.StatusInternalServerError {
		resp.Error = internalErrorMessage
	}
	resp.Code = code
	resp.ErrorCode = numeric
	s.writeJSON(w, status, resp)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("write json response", "status", status, "error", err)
	}
}

// classifyDecodeJSONError maps a JSON body decode failure to a 400.
func classifyDecodeJSONError(err error) error {
	var tooLarge *http.MaxBytesError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &tooLarge):
		return badRequestCode(errJSONBodyTooLarge, ErrCodeRequestTooLarge)
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return badRequestCode(errMalformedJSON, ErrCodeInvalidJSON)
	default:
		return badRequestCode(err, ErrCodeInvalidJSON)
	}
}

// decodeJSONReq decodes a bounded JSON body into dst and writes the 400
// itself on failure.
func (s *Server) decodeJSONReq(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, classifyDecodeJSONError(err))
		return false
	}
	return true
}

func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	s.writeErrorReq(w, r, httpStatusFromError(err), err)
}

func (s *Server) writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	s.writeErrorReq(w, r, http.StatusInternalServerError, storeFailure(err))
}

func (s *Server) pathIDOrBadRequest(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, err := requirePathID(r)
	if err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, err)
		return "", false
	}
	return id, true
}

func requirePathID(r *http.Request) (string, error) {
	id := r.PathValue("id")
	if !validateID(id) {
		return "", badRequestCode(errInvalidID, ErrCodeInvalidID)
	}
	return id, nil
}

func validateID(id string) bool {
	return len(id) >= 4 && len(id) <= 64 && idPattern.MatchString(id)
}

package api

import (
	"fmt"
	"strings"
)

// APIError is a structured error returned by the HTTP API.
type APIError struct {
	Status     int
	Code       string
	ErrorCode  int
	Message    string
	Violations []string
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	message := e.Message
	if len(e.Violations) > 0 {
		message = fmt.Sprintf("%s (%s)", message, strings.Join(e.Violations, ", "))
	}
	if e.Code != "" && message != "" {
		return fmt.Sprintf("%s: %s", e.Code, message)
	}
	if message != "" {
		return message
	}
	if e.Status > 0 {
		return fmt.Sprintf("api error: %d", e.Status)
	}
	return "api error"
}

package main

import (
	"context"
	"errors"
	"net"
	"slices"
	"strings"

	"protospace/internal/api"
)

// codeHints maps API error codes to a follow-up line for the user.
var codeHints = map[string]string{
	"unauthorized":    "hint: run `protospace login` and export PROTOSPACE_API_TOKEN.",
	"not_implemented": "hint: the server has no token_secret configured.",
	"":                "hint: verify listen_url points to a protospace server.",
}

// formatCLIError renders err as stderr lines followed by any hints.
func formatCLIError(err error) []string {
	if err == nil {
		return nil
	}
	lines := []string{err.Error()}

	var (
		apiErr *api.APIError
		netErr net.Error
	)
	switch {
	case errors.As(err, &apiErr):
		if hint, ok := codeHints[apiErr.Code]; ok {
			lines = append(lines, hint)
		}
		if apiErr.Code == "validation_failed" && len(apiErr.Violations) > 0 {
			lines = append(lines, "blank fields: "+strings.Join(apiErr.Violations, ", "))
		}
		if apiErr.Status >= 500 {
			lines = append(lines, "hint: server returned an internal error; check server logs for details.")
		}
	case errors.Is(err, context.DeadlineExceeded):
		lines = append(lines, "hint: request timed out; check server health or increase PROTOSPACE_HTTP_TIMEOUT.")
	case errors.As(err, &netErr):
		lines = append(lines,
			"hint: ensure a protospace server is running at listen_url.",
			"hint: start a local server manually with: protospace srv",
		)
	}

	out := lines[:0]
	for _, line := range lines {
		if line != "" && !slices.Contains(out, line) {
			out = append(out, line)
		}
	}
	return out
}

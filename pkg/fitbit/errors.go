package fitbit

import (
	"encoding/json"
	"fmt"
	"strings"
)

// RateLimitError is an upstream 429. It is the only retryable failure;
// it surfaces to callers only after the retry budget is exhausted.
type RateLimitError struct {
	Detail string
}

func (e *RateLimitError) Error() string {
	msg := "upstream rate limit exceeded (429 Too Many Requests)"
	if e.Detail != "" {
		msg += " - " + e.Detail
	}
	return msg
}

func (e *RateLimitError) Retryable() bool { return true }

// UpstreamError is any other non-success upstream status. Not retried.
type UpstreamError struct {
	Status int
	Detail string
}

func (e *UpstreamError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("upstream error %d - %s", e.Status, e.Detail)
	}
	return fmt.Sprintf("upstream error %d", e.Status)
}

// ParseError means the upstream returned 2xx with a body that is not
// valid JSON. Distinct from a network failure; not retried.
type ParseError struct {
	URL string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("upstream response is not valid JSON (%s): %v", e.URL, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// errorDetail pulls the human-readable message out of the upstream's
// structured error body. The API uses both an errors array and a single
// error object depending on endpoint.
func errorDetail(body []byte) string {
	if len(body) == 0 {
		return ""
	}

	var multi struct {
		Errors []struct {
			ErrorType string `json:"errorType"`
			Message   string `json:"message"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(body, &multi); err == nil && len(multi.Errors) > 0 {
		parts := make([]string, 0, len(multi.Errors))
		for _, e := range multi.Errors {
			if e.Message != "" {
				parts = append(parts, e.Message)
			} else if e.ErrorType != "" {
				parts = append(parts, e.ErrorType)
			}
		}
		return strings.Join(parts, ", ")
	}

	var single struct {
		Error struct {
			Message string `json:"message"`
			Status  string `json:"status"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &single); err == nil {
		if single.Error.Message != "" {
			return single.Error.Message
		}
		return single.Error.Status
	}

	return ""
}

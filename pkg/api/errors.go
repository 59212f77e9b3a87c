package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/pulseboard/server/pkg/fitbit"
	"github.com/pulseboard/server/pkg/infrastructure/oauth"
)

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorResponse{
		Error:   http.StatusText(status),
		Message: message,
	})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// writeUpstreamError maps the fetch-path error taxonomy onto response
// statuses. Rate limits and credential problems surface as themselves;
// everything else is a 500 hiding upstream detail from the caller.
func writeUpstreamError(w http.ResponseWriter, err error) {
	var rateLimit *fitbit.RateLimitError
	if errors.As(err, &rateLimit) {
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded, try again later")
		return
	}

	if errors.Is(err, oauth.ErrNotLinked) {
		writeError(w, http.StatusForbidden, "fitbit account not linked")
		return
	}

	// 401 here stays an upstream-credential problem: the caller's own
	// session already passed auth middleware, so it maps to 403 like
	// every other Fitbit access failure.
	var upstream *fitbit.UpstreamError
	if errors.As(err, &upstream) {
		switch upstream.Status {
		case http.StatusUnauthorized:
			writeError(w, http.StatusForbidden, "fitbit authorization expired, reconnect your account")
		case http.StatusForbidden:
			writeError(w, http.StatusForbidden, "fitbit denied access to this resource")
		default:
			writeError(w, http.StatusInternalServerError, "failed to fetch data")
		}
		return
	}

	writeError(w, http.StatusInternalServerError, "failed to fetch data")
}

// Package fitbit is the upstream fetch client for the Fitbit Web API:
// bearer-authenticated GETs with bounded exponential-backoff retry on
// rate limiting, and a concurrent composite fetch for a full day.
package fitbit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/text/language"

	"github.com/pulseboard/server/pkg/obs"
	"github.com/pulseboard/server/pkg/retry"
)

const DefaultBaseURL = "https://api.fitbit.com/1"

// Resource identifies one upstream payload type.
type Resource string

const (
	ResourceProfile  Resource = "profile"
	ResourceActivity Resource = "activity"
	ResourceSleep    Resource = "sleep"
	ResourceHeart    Resource = "heart"
)

// Path returns the API path for a resource on a given day. The profile
// endpoint is not date-scoped.
func (r Resource) Path(date string) string {
	switch r {
	case ResourceProfile:
		return "/user/-/profile.json"
	case ResourceActivity:
		return fmt.Sprintf("/user/-/activities/date/%s.json", date)
	case ResourceSleep:
		return fmt.Sprintf("/user/-/sleep/date/%s.json", date)
	case ResourceHeart:
		return fmt.Sprintf("/user/-/activities/heart/date/%s/1d.json", date)
	}
	return ""
}

// DayResources are the sub-fetches of a composite day request.
var DayResources = []Resource{ResourceProfile, ResourceActivity, ResourceSleep, ResourceHeart}

type Client struct {
	BaseURL string
	HTTP    *http.Client
	Locale  language.Tag
	Retry   retry.Policy
	Logger  *slog.Logger
}

func NewClient(locale language.Tag, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		BaseURL: DefaultBaseURL,
		HTTP:    &http.Client{Timeout: 10 * time.Second},
		Locale:  locale,
		Retry: retry.Policy{
			MaxRetries: 3,
			Backoff:    retry.ExponentialBackoff(time.Second, 10*time.Second),
		},
		Logger: logger,
	}
}

// Get fetches one resource path with the supplied bearer credential and
// returns the raw JSON payload. Rate-limit responses are retried inside
// the policy; every other failure maps onto the error taxonomy.
func (c *Client) Get(ctx context.Context, path, accessToken string) (json.RawMessage, error) {
	var payload json.RawMessage

	err := c.Retry.Do(ctx, func() error {
		p, err := c.getOnce(ctx, path, accessToken)
		if err != nil {
			if retry.IsRetryable(err) {
				obs.UpstreamRetries.Inc()
				c.Logger.Warn("Upstream rate limited, backing off", "path", path)
			}
			return err
		}
		payload = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return payload, nil
}

func (c *Client) getOnce(ctx context.Context, path, accessToken string) (json.RawMessage, error) {
	url := c.BaseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Language", localeHeader(c.Locale))
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upstream request failed: %w", err)
	}
	defer resp.Body.Close()

	obs.UpstreamRequests.WithLabelValues(fmt.Sprintf("%dxx", resp.StatusCode/100)).Inc()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read upstream body: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &RateLimitError{Detail: errorDetail(body)}
	case resp.StatusCode >= 400:
		return nil, &UpstreamError{Status: resp.StatusCode, Detail: errorDetail(body)}
	}

	if len(body) == 0 {
		return json.RawMessage(`{}`), nil
	}
	if !json.Valid(body) {
		return nil, &ParseError{URL: url, Err: fmt.Errorf("invalid JSON body")}
	}
	return json.RawMessage(body), nil
}

// localeHeader renders a BCP 47 tag the way the upstream expects it,
// e.g. "ko-KR" -> "ko_KR".
func localeHeader(tag language.Tag) string {
	if tag == language.Und {
		return "en_US"
	}
	return strings.ReplaceAll(tag.String(), "-", "_")
}

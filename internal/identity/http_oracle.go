package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// HTTPOracle is the reference Oracle implementation: it asks an external
// identity network (VATSIM in production) over HTTP for a user's live
// status, retrying transient failures with a short bounded exponential
// backoff rather than the teacher's TTL-cached poll (internal/dashboard's
// VersionFetcher) — a stale cache here would hide a controller-to-pilot
// role change, which is exactly what heartbeat revalidation exists to
// catch, so we trade the cache for a couple of fast retries within the
// caller's context deadline instead.
type HTTPOracle struct {
	baseURL string
	client  *http.Client
}

// NewHTTPOracle builds an Oracle that queries baseURL + "/status/<userID>"
// and baseURL + "/banned/<userID>".
func NewHTTPOracle(baseURL string, timeout time.Duration) *HTTPOracle {
	return &HTTPOracle{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type statusResponse struct {
	Callsign string `json:"callsign"`
	Type     string `json:"type"`
	Present  bool   `json:"present"`
}

func (o *HTTPOracle) Status(ctx context.Context, userID string) (*LiveStatus, error) {
	var out *LiveStatus
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.endpoint("status", userID), nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		resp, err := o.client.Do(req)
		if err != nil {
			return err // transient: retry
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode == http.StatusNotFound {
			return backoff.Permanent(ErrNotPresent)
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("identity oracle: unexpected status %d", resp.StatusCode)
		}

		var sr statusResponse
		if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
			return backoff.Permanent(fmt.Errorf("identity oracle: decode: %w", err))
		}
		if !sr.Present {
			return backoff.Permanent(ErrNotPresent)
		}
		out = &LiveStatus{Callsign: sr.Callsign, Type: sr.Type}
		return nil
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 2), ctx)
	if err := backoff.Retry(op, bo); err != nil {
		return nil, err
	}
	return out, nil
}

type bannedResponse struct {
	Banned bool `json:"banned"`
}

func (o *HTTPOracle) Banned(ctx context.Context, userID string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.endpoint("banned", userID), nil)
	if err != nil {
		return false, err
	}
	resp, err := o.client.Do(req)
	if err != nil {
		return false, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("identity oracle: unexpected status %d", resp.StatusCode)
	}
	var br bannedResponse
	if err := json.NewDecoder(resp.Body).Decode(&br); err != nil {
		return false, fmt.Errorf("identity oracle: decode: %w", err)
	}
	return br.Banned, nil
}

func (o *HTTPOracle) endpoint(kind, userID string) string {
	return o.baseURL + "/" + kind + "/" + url.PathEscape(userID)
}

package dispatch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"outpost/internal/registry"
)

// Credentials attaches authentication to an outbound request. Session and
// token handling live outside this core; the queue only applies whatever the
// caller provides.
type Credentials interface {
	Apply(req *http.Request) error
}

// BearerToken is the common static-token case.
type BearerToken string

func (t BearerToken) Apply(req *http.Request) error {
	req.Header.Set("Authorization", "Bearer "+string(t))
	return nil
}

// Dispatcher performs one resolved outbound call. Transport failures and
// non-success statuses are reported identically as errors; response bodies
// are never interpreted.
type Dispatcher interface {
	Dispatch(ctx context.Context, r *registry.ResolvedRequest) error
}

type HTTPDispatcher struct {
	baseURL string
	client  *http.Client
	creds   Credentials
	timeout time.Duration
}

// NewHTTPDispatcher builds a dispatcher against baseURL. Every dispatch runs
// under its own deadline so a hung connection cannot stall a queue drain.
func NewHTTPDispatcher(baseURL string, creds Credentials, timeout time.Duration) *HTTPDispatcher {
	return &HTTPDispatcher{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{},
		creds:   creds,
		timeout: timeout,
	}
}

func (d *HTTPDispatcher) Dispatch(ctx context.Context, r *registry.ResolvedRequest) error {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	url := r.URL
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		url = d.baseURL + url
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, url, bytes.NewReader(r.Body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	if d.creds != nil {
		if err := d.creds.Apply(req); err != nil {
			return fmt.Errorf("apply credentials: %w", err)
		}
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("dispatch %s %s: %w", r.Method, url, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("dispatch %s %s: endpoint returned %s", r.Method, url, resp.Status)
	}
	return nil
}

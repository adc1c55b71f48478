// Package fetch retrieves release artifacts over HTTPS.
//
// Two modes exist. The plain fetch is a single GET used by the install
// path. The polling fetch is used by release validation: artifacts are
// published asynchronously after a release is cut, so the fetcher
// re-requests the same URL at a fixed interval until it appears or a
// wall-clock retry budget runs out.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

const (
	// DefaultPollInterval is the delay between publish-wait polls.
	DefaultPollInterval = 5 * time.Second
	// DefaultRetryBudget bounds how long a polling fetch waits for an
	// artifact to be published. Historically tuned between 10 and 20
	// minutes; it is an operational choice, so callers may override it.
	DefaultRetryBudget = 10 * time.Minute
	// DefaultUserAgent is the User-Agent header sent with requests.
	DefaultUserAgent = "hishtory-release/1.0"
	// requestTimeout bounds a single HTTP request.
	requestTimeout = 5 * time.Minute
)

var (
	// ErrDownloadFailed indicates a plain fetch got a non-2xx response.
	ErrDownloadFailed = errors.New("download failed")

	// ErrPublishTimeout indicates a polling fetch exhausted its retry
	// budget without ever seeing a 200.
	ErrPublishTimeout = errors.New("artifact not published before deadline")
)

// Fetcher downloads artifact files to local paths.
type Fetcher struct {
	client    *http.Client
	token     string
	userAgent string
	interval  time.Duration
	clock     Clock
}

// Config holds fetcher configuration. All fields are optional; the
// token is required only when polling private release assets.
type Config struct {
	// Token is sent as a bearer token on every request when set.
	Token string
	// PollInterval overrides DefaultPollInterval.
	PollInterval time.Duration
	// Clock overrides the real clock (for tests).
	Clock Clock
	// Client overrides the default HTTP client.
	Client *http.Client
}

// New creates a fetcher.
func New(cfg Config) *Fetcher {
	client := cfg.Client
	if client == nil {
		client = &http.Client{
			Timeout: requestTimeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		}
	}
	interval := cfg.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	clock := cfg.Clock
	if clock == nil {
		clock = RealClock{}
	}
	return &Fetcher{
		client:    client,
		token:     cfg.Token,
		userAgent: DefaultUserAgent,
		interval:  interval,
		clock:     clock,
	}
}

// Fetch performs a single GET and writes the response body verbatim to
// dest, replacing any existing file there. It does not create
// directories. Any non-2xx response is fatal.
func (f *Fetcher) Fetch(ctx context.Context, url, dest string) error {
	status, body, err := f.get(ctx, url)
	// A non-2xx status is a failed download even when reading the error
	// body also failed; the status is the more useful diagnosis.
	if status != 0 && (status < 200 || status > 299) {
		if err != nil {
			return fmt.Errorf("%w: GET %s returned status %d (%v)", ErrDownloadFailed, url, status, err)
		}
		return fmt.Errorf("%w: GET %s returned status %d, body: %s", ErrDownloadFailed, url, status, snippet(body))
	}
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	if err := os.WriteFile(dest, body, 0o644); err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}
	return nil
}

// Poll repeatedly fetches url until it returns 200 or the retry budget
// is exhausted. A 200 ends polling and persists the body to dest; any
// other status is retried after the poll interval. When the budget runs
// out, the error carries the last observed status and body for
// diagnosis. budget <= 0 selects DefaultRetryBudget.
func (f *Fetcher) Poll(ctx context.Context, url, dest string, budget time.Duration) error {
	if budget <= 0 {
		budget = DefaultRetryBudget
	}
	deadline := f.clock.Now().Add(budget)

	lastStatus := 0
	var lastBody []byte
	for {
		status, body, err := f.get(ctx, url)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return ctx.Err()
			}
			// Keep the status when the request got one before failing.
			lastStatus, lastBody = status, []byte(err.Error())
		case status == http.StatusOK:
			if err := os.WriteFile(dest, body, 0o644); err != nil {
				return fmt.Errorf("write artifact: %w", err)
			}
			return nil
		default:
			lastStatus, lastBody = status, body
		}

		if f.clock.Now().Add(f.interval).After(deadline) {
			return fmt.Errorf("%w: GET %s still failing after %s, last status %d, body: %s",
				ErrPublishTimeout, url, budget, lastStatus, snippet(lastBody))
		}
		if err := f.clock.Sleep(ctx, f.interval); err != nil {
			return err
		}
	}
}

// get performs one GET and returns the status code and full body.
func (f *Fetcher) get(ctx context.Context, url string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	if f.token != "" {
		req.Header.Set("Authorization", "Bearer "+f.token)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response body: %w", err)
	}
	return resp.StatusCode, body, nil
}

// snippet truncates a response body for inclusion in error messages.
func snippet(body []byte) string {
	const maxLen = 200
	s := string(body)
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	return s
}

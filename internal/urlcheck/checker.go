// Package urlcheck validates URLs syntactically and probes them for liveness.
package urlcheck

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/jonesrussell/linkclean/internal/logger"
)

// Status codes handled by the checker.
const (
	statusOK        = 200
	statusMovedPerm = 301
	statusFound     = 302
	statusNotFound  = 404
)

// maxDrainBytes bounds how much of a response body is read before closing.
// The checker only cares about status and headers; draining a little keeps
// connections reusable within the chunk.
const maxDrainBytes = 32 * 1024

// Default configuration values.
const (
	defaultTimeout     = 10 * time.Second
	defaultMaxRetries  = 3
	defaultBackoffBase = time.Second
	defaultUserAgent   = "linkclean/1.0"
)

// Outcome is the normalized result of one URL check. It is immutable once
// returned.
type Outcome struct {
	// Valid reports whether the URL is reachable (200, or 301/302).
	Valid bool

	// ResolvedURL is the URL itself for a 200, or the single-hop redirect
	// target for a 301/302 with a Location header. The target is taken
	// verbatim, even when relative or malformed; callers must re-validate
	// before following it further.
	ResolvedURL string

	// TimedOut reports that every attempt exceeded the per-attempt deadline.
	TimedOut bool

	// StatusCode is the HTTP status of the final attempt, 0 when no response
	// was received.
	StatusCode int
}

// Redirected reports whether the check resolved to a different URL.
func (o Outcome) Redirected(original string) bool {
	return o.Valid && o.ResolvedURL != "" && o.ResolvedURL != original
}

// Config holds checker configuration.
type Config struct {
	// Timeout is the wall-clock deadline per attempt.
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`

	// MaxRetries is the total number of attempts, including the first.
	MaxRetries int `mapstructure:"max_retries" yaml:"max_retries"`

	// BackoffBase scales the exponential backoff between attempts; the wait
	// after attempt n (1-based) is BackoffBase * 2^(n-1).
	BackoffBase time.Duration `mapstructure:"backoff_base" yaml:"backoff_base"`

	// UserAgent is sent with every probe.
	UserAgent string `mapstructure:"user_agent" yaml:"user_agent"`

	// RateLimit caps probes per second across the whole run. 0 disables.
	RateLimit float64 `mapstructure:"rate_limit" yaml:"rate_limit"`
}

// WithDefaults returns a copy of the config with default values applied for
// zero-value fields.
func (c Config) WithDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = defaultMaxRetries
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = defaultBackoffBase
	}
	if c.UserAgent == "" {
		c.UserAgent = defaultUserAgent
	}
	return c
}

// Checker probes URLs with redirects disabled and classifies the responses.
// Each checker owns its HTTP client and connection pool; the dispatcher
// creates one checker per chunk worker and discards it afterwards, so no
// connections are shared across chunks.
type Checker struct {
	client  *http.Client
	limiter *rate.Limiter
	log     logger.Interface
	cfg     Config
}

// New creates a checker with a fresh HTTP client. The limiter may be nil;
// when set it is shared across checkers to bound the request rate of the
// whole run.
func New(cfg Config, limiter *rate.Limiter, log logger.Interface) *Checker {
	cfg = cfg.WithDefaults()
	return &Checker{
		client: &http.Client{
			Timeout: cfg.Timeout,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				// Observe the 301/302 itself instead of following it.
				return http.ErrUseLastResponse
			},
		},
		limiter: limiter,
		log:     log,
		cfg:     cfg,
	}
}

// NewLimiter builds a shared rate limiter from the configured probes/second,
// or nil when rate limiting is disabled.
func NewLimiter(requestsPerSecond float64) *rate.Limiter {
	if requestsPerSecond <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(requestsPerSecond), 1)
}

// Check probes rawURL once per attempt, retrying timeouts and transport
// errors with exponential backoff. Exhausted timeouts yield a TimedOut
// outcome with a nil error; exhausted transport errors yield a *NetworkError
// so the caller can fail the enclosing chunk.
func (c *Checker) Check(ctx context.Context, rawURL string) (Outcome, error) {
	var (
		lastErr  error
		timedOut bool
	)

	for attempt := 1; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 1 {
			if waitErr := c.backoff(ctx, attempt-1); waitErr != nil {
				return Outcome{}, waitErr
			}
		}

		if c.limiter != nil {
			if limitErr := c.limiter.Wait(ctx); limitErr != nil {
				return Outcome{}, fmt.Errorf("rate limiter: %w", limitErr)
			}
		}

		c.log.Debug("checking URL", "url", rawURL, "attempt", attempt, "max_attempts", c.cfg.MaxRetries)

		outcome, err := c.attempt(ctx, rawURL)
		if err == nil {
			return outcome, nil
		}

		// A cancelled run is not a URL failure; surface it immediately.
		if errors.Is(err, context.Canceled) {
			return Outcome{}, err
		}

		lastErr = err
		timedOut = isTimeout(err)
		c.log.Debug("URL check attempt failed",
			"url", rawURL,
			"attempt", attempt,
			"timeout", timedOut,
			"error", err.Error(),
		)
	}

	if timedOut {
		return Outcome{TimedOut: true}, nil
	}

	return Outcome{}, &NetworkError{URL: rawURL, Attempts: c.cfg.MaxRetries, Err: lastErr}
}

// attempt issues a single non-redirect-following GET and classifies the
// response.
func (c *Checker) attempt(ctx context.Context, rawURL string) (Outcome, error) {
	req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if reqErr != nil {
		return Outcome{}, fmt.Errorf("create request: %w", reqErr)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	resp, doErr := c.client.Do(req)
	if doErr != nil {
		return Outcome{}, fmt.Errorf("http probe: %w", doErr)
	}
	defer resp.Body.Close()

	// Drain a bounded amount so the connection can be reused.
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainBytes))

	switch resp.StatusCode {
	case statusOK:
		return Outcome{Valid: true, ResolvedURL: rawURL, StatusCode: resp.StatusCode}, nil
	case statusMovedPerm, statusFound:
		if location := resp.Header.Get("Location"); location != "" {
			return Outcome{Valid: true, ResolvedURL: location, StatusCode: resp.StatusCode}, nil
		}
		// A redirect without a resolvable target degrades to valid, unchanged.
		return Outcome{Valid: true, ResolvedURL: rawURL, StatusCode: resp.StatusCode}, nil
	case statusNotFound:
		return Outcome{StatusCode: resp.StatusCode}, nil
	default:
		return Outcome{StatusCode: resp.StatusCode}, nil
	}
}

// backoff waits 2^(attempt-1) * BackoffBase or until the context is done.
func (c *Checker) backoff(ctx context.Context, attempt int) error {
	delay := c.cfg.BackoffBase << (attempt - 1)

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(delay):
		return nil
	}
}

// isTimeout reports whether err represents an exceeded per-attempt deadline.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

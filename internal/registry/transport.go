package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sethvargo/go-retry"

	"github.com/ajitpratap0/groupmapper/internal/metrics"
	"github.com/ajitpratap0/groupmapper/internal/ratelimit"
)

const (
	defaultHTTPTimeout = 30 * time.Second
	maxResponseBytes   = 8 << 20
)

// RetryPolicy bounds every wait the transport performs.
type RetryPolicy struct {
	TransientRetries int
	TransientDelay   time.Duration
	RateLimitWindow  time.Duration
	MaxRateLimitWait time.Duration
}

// DefaultRetryPolicy mirrors the configuration defaults.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		TransientRetries: 2,
		TransientDelay:   time.Second,
		RateLimitWindow:  30 * time.Second,
		MaxRateLimitWait: 5 * time.Minute,
	}
}

// Options configures a source adapter.
type Options struct {
	BaseURL    string
	Limiter    *ratelimit.Limiter
	Retry      RetryPolicy
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Transport performs paced, classified JSON GETs against one registry.
type Transport struct {
	source    string
	baseURL   string
	limiter   *ratelimit.Limiter
	clock     clockwork.Clock
	retry     RetryPolicy
	client    *http.Client
	authorize func(*http.Request)
	logger    *slog.Logger
}

// NewTransport creates a transport for source. authorize, when non-nil,
// attaches credentials to every outgoing request.
func NewTransport(source string, opts Options, authorize func(*http.Request)) *Transport {
	if opts.Limiter == nil {
		opts.Limiter = ratelimit.New(0, nil)
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Retry.TransientRetries < 0 {
		opts.Retry.TransientRetries = 0
	}
	// go-retry rejects non-positive constant intervals.
	if opts.Retry.TransientDelay <= 0 {
		opts.Retry.TransientDelay = time.Millisecond
	}
	return &Transport{
		source:    source,
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		limiter:   opts.Limiter,
		clock:     opts.Limiter.Clock(),
		retry:     opts.Retry,
		client:    opts.HTTPClient,
		authorize: authorize,
		logger:    opts.Logger,
	}
}

// GetJSON fetches path with query and decodes the body into out.
// Transient failures are retried with a constant delay. A 429 pauses the
// shared limiter for the reset window and is retried once.
func (t *Transport) GetJSON(ctx context.Context, op, path string, query url.Values, out any) error {
	backoff := retry.WithMaxRetries(uint64(t.retry.TransientRetries), retry.NewConstant(t.retry.TransientDelay))
	rateLimited := false

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		for {
			err := t.do(ctx, op, path, query, out)
			var rerr *Error
			if !errors.As(err, &rerr) {
				return err
			}
			switch {
			case errors.Is(rerr, ErrTransient):
				metrics.RegistryRetries.WithLabelValues(t.source, "transient").Inc()
				t.logger.Debug("registry transient failure, retrying", "source", t.source, "op", op, "error", err)
				return retry.RetryableError(err)
			case errors.Is(rerr, ErrRateLimited) && !rateLimited:
				rateLimited = true
				wait := t.resetWindow(rerr.RetryAfter)
				metrics.RegistryRetries.WithLabelValues(t.source, "rate_limited").Inc()
				t.logger.Warn("registry rate limit hit, pausing", "source", t.source, "op", op, "wait", wait)
				t.limiter.Pause(wait)
				continue
			}
			return err
		}
	})
}

func (t *Transport) resetWindow(advertised time.Duration) time.Duration {
	wait := advertised
	if wait <= 0 {
		wait = t.retry.RateLimitWindow
	}
	if t.retry.MaxRateLimitWait > 0 && wait > t.retry.MaxRateLimitWait {
		wait = t.retry.MaxRateLimitWait
	}
	return wait
}

func (t *Transport) do(ctx context.Context, op, path string, query url.Values, out any) error {
	start := t.clock.Now()
	if err := t.limiter.Wait(ctx); err != nil {
		return err
	}
	metrics.ObserveWait(t.source, t.clock.Since(start))

	u := t.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("%s %s: creating request: %w", t.source, op, err)
	}
	req.Header.Set("Accept", "application/json")
	if t.authorize != nil {
		t.authorize(req)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return t.fail(ErrTransient, op, 0, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return t.fail(ErrTransient, op, resp.StatusCode, fmt.Errorf("reading body: %w", err))
	}

	switch code := resp.StatusCode; {
	case code >= 200 && code < 300:
		metrics.RegistryRequests.WithLabelValues(t.source, metrics.OutcomeOK).Inc()
		if out == nil {
			return nil
		}
		if err := json.Unmarshal(body, out); err != nil {
			return &Error{Kind: ErrUnexpected, Source: t.source, Op: op, Status: code, Err: fmt.Errorf("decoding response: %w", err)}
		}
		return nil
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return t.fail(ErrAuth, op, code, nil)
	case code == http.StatusNotFound:
		return t.fail(ErrNotFound, op, code, nil)
	case code == http.StatusTooManyRequests:
		e := t.fail(ErrRateLimited, op, code, nil)
		e.RetryAfter = t.parseReset(resp.Header)
		return e
	case code >= 500:
		return t.fail(ErrTransient, op, code, errors.New(snippet(body)))
	default:
		return &Error{Kind: ErrUnexpected, Source: t.source, Op: op, Status: code, Err: errors.New(snippet(body))}
	}
}

func (t *Transport) fail(kind error, op string, status int, err error) *Error {
	outcome := metrics.OutcomeTransient
	switch kind {
	case ErrAuth:
		outcome = metrics.OutcomeAuth
	case ErrNotFound:
		outcome = metrics.OutcomeNotFound
	case ErrRateLimited:
		outcome = metrics.OutcomeRateLimited
	}
	metrics.RegistryRequests.WithLabelValues(t.source, outcome).Inc()
	return &Error{Kind: kind, Source: t.source, Op: op, Status: status, Err: err}
}

// parseReset reads Retry-After (seconds or HTTP date), then X-Ratelimit-Reset
// (unix seconds). Zero means the source did not say.
func (t *Transport) parseReset(h http.Header) time.Duration {
	now := t.clock.Now()
	if v := h.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil {
			return time.Duration(secs) * time.Second
		}
		if at, err := http.ParseTime(v); err == nil {
			return at.Sub(now)
		}
	}
	if v := h.Get("X-Ratelimit-Reset"); v != "" {
		if unix, err := strconv.ParseInt(v, 10, 64); err == nil {
			return time.Unix(unix, 0).Sub(now)
		}
	}
	return 0
}

func snippet(body []byte) string {
	const limit = 200
	s := strings.TrimSpace(string(body))
	if len(s) > limit {
		s = s[:limit] + "..."
	}
	return s
}

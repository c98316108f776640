package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domrepo "CoinDash/internal/domain/repository"
	xhttp "CoinDash/pkg/http"
)

var (
	// ErrUnavailable means the provider answered but without the requested figure.
	ErrUnavailable = errors.New("data unavailable")
	// ErrNotConfigured means the provider needs an API key that was not supplied.
	ErrNotConfigured = errors.New("provider not configured")
	// ErrEmpty means the provider returned an empty result set.
	ErrEmpty = errors.New("empty result")
)

// Config is the per-provider endpoint setup.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Base is shared by every provider client: one GET per call, JSON decoding, metrics.
// Calls are never retried.
type Base struct {
	name    string
	baseURL string
	client  *xhttp.Client
	headers map[string]string
	metrics domrepo.Metrics
	secret  string
}

type Option func(*Base)

// WithHeader adds a header sent on every request.
func WithHeader(key, value string) Option {
	return func(b *Base) {
		b.headers[key] = value
	}
}

// WithMetrics records per-call latency and outcome.
func WithMetrics(m domrepo.Metrics) Option {
	return func(b *Base) {
		if m != nil {
			b.metrics = m
		}
	}
}

// WithClient replaces the HTTP client.
func WithClient(c *xhttp.Client) Option {
	return func(b *Base) {
		if c != nil {
			b.client = c
		}
	}
}

func NewBase(name string, cfg Config, opts ...Option) *Base {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	b := &Base{
		name:    name,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  xhttp.NewClient(xhttp.WithTimeout(timeout)),
		headers: make(map[string]string),
		metrics: domrepo.NopMetrics{},
		secret:  cfg.APIKey,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Base) Name() string {
	return b.name
}

// GetJSON issues GET {baseURL}{path}?query and decodes the body into dest.
// Errors are wrapped as "<provider> <op>: ...".
func (b *Base) GetJSON(ctx context.Context, op, path string, query map[string][]string, dest interface{}) error {
	start := time.Now()
	err := b.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:      xhttp.MethodGet,
		URL:         b.baseURL + path,
		Headers:     b.headers,
		QueryParams: query,
	}, dest)
	b.metrics.RecordProviderCall(b.name, op, time.Since(start), err)
	if err != nil {
		return b.Errorf(op, err)
	}
	return nil
}

// Errorf wraps err with the provider and operation name. The API key never appears in
// the resulting message.
func (b *Base) Errorf(op string, err error) error {
	wrapped := fmt.Errorf("%s %s: %w", b.name, op, err)
	if b.secret != "" && strings.Contains(wrapped.Error(), b.secret) {
		return &redactedError{msg: strings.ReplaceAll(wrapped.Error(), b.secret, "REDACTED"), err: err}
	}
	return wrapped
}

// redactedError hides a secret from Error() while keeping errors.Is/As on the cause.
type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string { return e.msg }
func (e *redactedError) Unwrap() error { return e.err }

// Observe records a call that failed before reaching the network.
func (b *Base) Observe(op string, err error) error {
	b.metrics.RecordProviderCall(b.name, op, 0, err)
	return b.Errorf(op, err)
}

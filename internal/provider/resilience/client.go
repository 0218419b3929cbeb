package resilience

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

// ErrCircuitOpen is returned without contacting the upstream while its
// breaker is open.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// ClientConfig configures a resilient HTTP client for one provider.
type ClientConfig struct {
	// Name identifies the provider in the registry, logs and breaker state.
	Name string

	// Timeout bounds each individual attempt.
	Timeout time.Duration

	// MaxRetries is the number of retries after the first attempt.
	MaxRetries uint64

	InitialInterval time.Duration
	MaxInterval     time.Duration

	Breaker BreakerConfig

	// Registry, when set, tracks the client's health.
	Registry *Registry

	Logger zerolog.Logger
}

// DefaultClientConfig returns defaults suitable for public map and
// air-quality APIs.
func DefaultClientConfig(name string) ClientConfig {
	return ClientConfig{
		Name:            name,
		Timeout:         10 * time.Second,
		MaxRetries:      2,
		InitialInterval: 200 * time.Millisecond,
		MaxInterval:     2 * time.Second,
		Breaker:         DefaultBreakerConfig(),
		Logger:          zerolog.Nop(),
	}
}

// Client executes requests through a circuit breaker with exponential
// backoff. 5xx and 429 responses count as failures and are retried; other
// statuses are returned to the caller as-is.
type Client struct {
	name       string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[*http.Response]
	cfg        ClientConfig
	registry   *Registry
}

// NewClient creates a client and registers it when cfg.Registry is set.
func NewClient(cfg ClientConfig) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = 200 * time.Millisecond
	}
	if cfg.MaxInterval <= 0 {
		cfg.MaxInterval = 2 * time.Second
	}
	if cfg.Breaker.MinRequests == 0 {
		cfg.Breaker = DefaultBreakerConfig()
	}

	logger := cfg.Logger.With().Str("provider", cfg.Name).Logger()
	c := &Client{
		name:       cfg.Name,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cfg:        cfg,
		registry:   cfg.Registry,
	}
	c.breaker = newBreaker[*http.Response](cfg.Name, cfg.Breaker, func(_ string, from, to gobreaker.State) { //nolint:bodyclose // type param
		logger.Warn().
			Str("from", from.String()).
			Str("to", to.String()).
			Msg("circuit breaker state changed")
	})

	if c.registry != nil {
		c.registry.Register(cfg.Name, c)
	}
	return c
}

// Name returns the provider name.
func (c *Client) Name() string {
	return c.name
}

// State returns the current breaker state.
func (c *Client) State() gobreaker.State {
	return c.breaker.State()
}

// Counts returns the breaker's current counters.
func (c *Client) Counts() gobreaker.Counts {
	return c.breaker.Counts()
}

// Do sends req, retrying transient failures until the request context is
// done or retries are exhausted. Request bodies are replayed via GetBody.
// When the final attempt got a 5xx or 429 response, that response is
// returned with a nil error so callers can map the status themselves.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.cfg.InitialInterval
	bo.MaxInterval = c.cfg.MaxInterval
	bo.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, c.cfg.MaxRetries), ctx)

	var last *http.Response
	attempt := func() error {
		if last != nil {
			last.Body.Close()
			last = nil
		}

		attemptReq := req.Clone(ctx)
		if req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return backoff.Permanent(fmt.Errorf("rewind request body: %w", err))
			}
			attemptReq.Body = body
		}

		resp, err := c.breaker.Execute(func() (*http.Response, error) {
			r, err := c.httpClient.Do(attemptReq)
			if err != nil {
				return nil, err
			}
			if isTransientStatus(r.StatusCode) {
				return r, &StatusError{StatusCode: r.StatusCode}
			}
			return r, nil
		})
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return backoff.Permanent(ErrCircuitOpen)
		}
		if resp != nil {
			last = resp
		}
		if err != nil && ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		return err
	}

	err := backoff.Retry(attempt, policy)
	c.record(err)
	if err != nil {
		var statusErr *StatusError
		if last != nil && errors.As(err, &statusErr) {
			return last, nil
		}
		if last != nil {
			last.Body.Close()
		}
		return nil, err
	}
	return last, nil
}

func (c *Client) record(err error) {
	if c.registry == nil {
		return
	}
	if err != nil {
		c.registry.RecordFailure(c.name, err)
		return
	}
	c.registry.RecordSuccess(c.name)
}

func isTransientStatus(code int) bool {
	return code >= http.StatusInternalServerError || code == http.StatusTooManyRequests
}

// StatusError is a transient upstream status.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return "upstream status " + strconv.Itoa(e.StatusCode) + " " + http.StatusText(e.StatusCode)
}

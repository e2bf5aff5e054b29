package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/GriffinCanCode/codelab/internal/infrastructure/resilience"
)

const userAgent = "labctl/0.3"

// Options configures a Client
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	RetryMax   int
	RetryWait  time.Duration
	RateLimit  rate.Limit // Requests per second; rate.Inf disables limiting
	Breaker    resilience.Settings
	Logger     *zap.Logger
	HTTPClient *http.Client // Replaces the retrying transport when set
}

// DefaultOptions returns options for a server on localhost
func DefaultOptions() Options {
	return Options{
		BaseURL:   "http://localhost:8000",
		Timeout:   10 * time.Second,
		RetryMax:  3,
		RetryWait: 200 * time.Millisecond,
		RateLimit: rate.Inf,
		Breaker: resilience.Settings{
			Probes:   1,
			Cooldown: 10 * time.Second,
			ShouldTrip: func(c resilience.Counts) bool {
				return c.ConsecutiveFailures >= 3 ||
					(c.Calls >= 10 && c.FailureRate() > 0.5)
			},
		},
	}
}

// Client talks to a codelab server over its HTTP and stream APIs
type Client struct {
	base    string
	resty   *resty.Client
	limiter *rate.Limiter
	breaker *resilience.Breaker
	logger  *zap.Logger
}

// New creates a client
func New(opts Options) *Client {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.RateLimit == 0 {
		opts.RateLimit = rate.Inf
	}
	base := strings.TrimRight(opts.BaseURL, "/")

	httpClient := opts.HTTPClient
	if httpClient == nil {
		retryClient := retryablehttp.NewClient()
		retryClient.RetryMax = opts.RetryMax
		retryClient.RetryWaitMin = opts.RetryWait
		retryClient.RetryWaitMax = 4 * opts.RetryWait
		retryClient.Logger = nil
		retryClient.HTTPClient.Timeout = opts.Timeout
		httpClient = retryClient.StandardClient()
	}

	restyClient := resty.NewWithClient(httpClient).
		SetBaseURL(base).
		SetTimeout(opts.Timeout).
		SetHeader("User-Agent", userAgent).
		SetHeader("Accept", "application/json")
	restyClient.JSONMarshal = sonic.Marshal
	restyClient.JSONUnmarshal = sonic.Unmarshal

	settings := opts.Breaker
	if settings.IsFailure == nil {
		settings.IsFailure = isOutage
	}
	logger := opts.Logger
	if settings.OnStateChange == nil {
		settings.OnStateChange = func(name string, from, to resilience.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		}
	}

	burst := 1
	if opts.RateLimit != rate.Inf {
		burst = int(opts.RateLimit) + 1
	}

	return &Client{
		base:    base,
		resty:   restyClient,
		limiter: rate.NewLimiter(opts.RateLimit, burst),
		breaker: resilience.New("codelab-api", settings),
		logger:  logger,
	}
}

// BaseURL returns the server address
func (c *Client) BaseURL() string {
	return c.base
}

// Breaker exposes the circuit state
func (c *Client) Breaker() *resilience.Breaker {
	return c.breaker
}

// call is one API request: method and path, optional JSON body, and the
// value the response decodes into
type call struct {
	method string
	path   string
	body   interface{}
	out    interface{}
	want   int
}

func (c *Client) do(ctx context.Context, req call) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	return c.breaker.Do(func() error {
		var apiErr errorBody
		r := c.resty.R().SetContext(ctx).SetError(&apiErr)
		if req.body != nil {
			r.SetHeader("Content-Type", "application/json").SetBody(req.body)
		}
		if req.out != nil {
			r.SetResult(req.out)
		}

		resp, err := r.Execute(req.method, req.path)
		if err != nil {
			return fmt.Errorf("%s %s: %w", req.method, req.path, err)
		}

		c.logger.Debug("API call",
			zap.String("method", req.method),
			zap.String("path", req.path),
			zap.Int("status", resp.StatusCode()),
			zap.Duration("duration", resp.Time()),
		)

		if resp.IsError() {
			msg := apiErr.Error
			if msg == "" {
				msg = http.StatusText(resp.StatusCode())
			}
			return &APIError{Status: resp.StatusCode(), Message: msg}
		}
		if req.want != 0 && resp.StatusCode() != req.want {
			return &APIError{Status: resp.StatusCode(), Message: "unexpected status " + resp.Status()}
		}
		return nil
	})
}

// isOutage reports whether err means the server is unhealthy rather than
// that the request was refused
func isOutage(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status >= http.StatusInternalServerError
	}
	return !errors.Is(err, context.Canceled)
}

// Package client is a typed Go client for the Plural Health admin API, used
// by the dashboard tooling and the records subcommand.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"

	"github.com/excelthedev/Plural-health/internal/domain/patient"
	"github.com/excelthedev/Plural-health/internal/platform/httperr"
)

const (
	DefaultBaseURL = "http://localhost:3001/api"
	DefaultTimeout = 10 * time.Second
)

// APIError is a non-2xx answer from the API.
type APIError struct {
	Status     int                        `json:"-"`
	Message    string                     `json:"message"`
	Errors     []httperr.FieldError       `json:"errors,omitempty"`
	Duplicates []patient.DuplicateSummary `json:"duplicates,omitempty"`
}

func (e *APIError) Error() string {
	if len(e.Errors) > 0 {
		parts := make([]string, len(e.Errors))
		for i, fe := range e.Errors {
			parts[i] = fe.Field + ": " + fe.Message
		}
		return fmt.Sprintf("api %d: %s (%s)", e.Status, e.Message, strings.Join(parts, "; "))
	}
	return fmt.Sprintf("api %d: %s", e.Status, e.Message)
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// Config configures a Client.
type Config struct {
	BaseURL string
	Timeout time.Duration
	Token   string

	// Breaker trips after this many consecutive transport or 5xx failures.
	FailureThreshold uint32
	// OpenTimeout is how long the breaker stays open before probing.
	OpenTimeout time.Duration
}

// Client talks to the API through a circuit breaker. Client errors (4xx)
// do not count against the breaker.
type Client struct {
	http    *resty.Client
	breaker *gobreaker.CircuitBreaker[*resty.Response]
	logger  zerolog.Logger
}

func New(cfg Config, logger zerolog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}

	hc := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json")
	if cfg.Token != "" {
		hc.SetAuthToken(cfg.Token)
	}

	logger = logger.With().Str("component", "api_client").Logger()
	threshold := cfg.FailureThreshold
	breaker := gobreaker.NewCircuitBreaker[*resty.Response](gobreaker.Settings{
		Name:        "plural-api",
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				return apiErr.Status < http.StatusInternalServerError
			}
			return err == nil
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
		},
	})

	return &Client{http: hc, breaker: breaker, logger: logger}
}

// envelope is the {success, message, data} body every JSON endpoint returns.
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// do sends req through the breaker and decodes the data field into out.
// It returns the envelope message.
func (c *Client) do(ctx context.Context, method, path string, req *resty.Request, out interface{}) (string, error) {
	resp, err := c.breaker.Execute(func() (*resty.Response, error) {
		resp, err := req.SetContext(ctx).Execute(method, path)
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", method, path, err)
		}
		if resp.IsError() {
			return resp, decodeError(resp)
		}
		return resp, nil
	})
	if err != nil {
		c.logger.Debug().Err(err).Str("method", method).Str("path", path).Msg("api call failed")
		return "", err
	}

	var env envelope
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		return "", fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	if out != nil && len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return env.Message, fmt.Errorf("decode %s %s data: %w", method, path, err)
		}
	}
	return env.Message, nil
}

func decodeError(resp *resty.Response) error {
	apiErr := &APIError{Status: resp.StatusCode()}
	if err := json.Unmarshal(resp.Body(), apiErr); err != nil || apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode())
	}
	return apiErr
}

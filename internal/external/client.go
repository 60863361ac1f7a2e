// Package external provides the anti-corruption layer between mailroom domain
// logic and third-party vendor APIs. All outbound HTTP calls are routed
// through the BaseClient, which enforces consistent resilience patterns:
// circuit breaking, trace propagation, and error mapping.
//
// Retry policy deliberately lives with the caller, not here. The delivery
// layer throttles before every attempt and retries only on rate limiting,
// so BaseClient returns every HTTP status as-is and lets the provider
// client classify it.
package external

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"

	"mailroom/internal/types"
)

// BaseClient wraps an *http.Client and a circuit breaker to enforce
// consistent resilience patterns on all outbound HTTP calls. Provider
// clients embed BaseClient to inherit this behavior.
type BaseClient struct {
	client    *http.Client
	breaker   *gobreaker.CircuitBreaker[*http.Response]
	userAgent string
}

// NewBaseClient creates a BaseClient with the given http client, circuit
// breaker settings name, and user agent string.
func NewBaseClient(httpClient *http.Client, breakerName, userAgent string) *BaseClient {
	cb := gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil
		},
	})

	return &BaseClient{
		client:    httpClient,
		breaker:   cb,
		userAgent: userAgent,
	}
}

// Do executes the HTTP request with:
//  1. Trace ID injection (X-Request-Id from context)
//  2. User-Agent header injection
//  3. Circuit breaker wrapping
//  4. Error mapping to types.AppError for transport failures
//
// Any HTTP status, including 429 and 5xx, is returned as a response for the
// caller to classify. The breaker still counts 429/5xx as failures so a
// persistently broken upstream trips it. The caller is responsible for
// closing the response body.
func (c *BaseClient) Do(req *http.Request) (*http.Response, error) {
	if reqID := types.GetRequestID(req.Context()); reqID != "" {
		req.Header.Set("X-Request-Id", reqID)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.breaker.Execute(func() (*http.Response, error) {
		r, doErr := c.client.Do(req)
		if doErr != nil {
			return nil, doErr
		}
		// Count throttling and outages against the breaker without
		// consuming the response.
		if r.StatusCode >= 500 || r.StatusCode == http.StatusTooManyRequests {
			return r, fmt.Errorf("upstream returned %d", r.StatusCode)
		}
		return r, nil
	})

	if err != nil {
		// The breaker surfaces the response alongside the error for
		// 429/5xx; hand it to the caller for classification.
		if resp != nil {
			return resp, nil
		}
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, types.NewAppError(
				types.ErrCodeUpstreamUnavailable,
				"circuit breaker is open; upstream service unavailable",
				err,
			)
		}
		return nil, types.NewAppError(
			types.ErrCodeUpstreamUnavailable,
			"upstream request failed",
			err,
		)
	}

	return resp, nil
}

package coingecko_common

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// IHttpStatusHandler is an interface for handling HTTP request statuses
type IHttpStatusHandler interface {
	// OnRequest handles a request with its status result
	OnRequest(status string)
	// OnRetry handles retry events
	OnRetry()
}

// RetryOptions configures retry behavior for HTTP requests
type RetryOptions struct {
	MaxRetries        int // Total number of attempts
	BaseBackoff       time.Duration
	LogPrefix         string
	ConnectionTimeout time.Duration // Timeout for establishing connection
	RequestTimeout    time.Duration // Budget of a single attempt including reading the response
}

// DefaultRetryOptions returns default retry options
func DefaultRetryOptions() RetryOptions {
	return RetryOptions{
		MaxRetries:        2,
		BaseBackoff:       500 * time.Millisecond,
		LogPrefix:         "HTTP",
		ConnectionTimeout: 5 * time.Second,
		RequestTimeout:    10 * time.Second,
	}
}

// HTTPClientWithRetries wraps an HTTP Client with retry capabilities
type HTTPClientWithRetries struct {
	Client         *http.Client
	Opts           RetryOptions
	StatusHandler  IHttpStatusHandler
	LimiterManager IRateLimiterManager
}

// NewHTTPClientWithRetries creates a new HTTP Client with retry capabilities
func NewHTTPClientWithRetries(opts RetryOptions, handler IHttpStatusHandler, limiterManager IRateLimiterManager) *HTTPClientWithRetries {
	client := &http.Client{
		Timeout: opts.RequestTimeout,
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout: opts.ConnectionTimeout,
			}).DialContext,
		},
	}

	return &HTTPClientWithRetries{
		Client:         client,
		Opts:           opts,
		StatusHandler:  handler,
		LimiterManager: limiterManager,
	}
}

// SetStatusHandler sets the status handler for this Client
func (c *HTTPClientWithRetries) SetStatusHandler(handler IHttpStatusHandler) {
	c.StatusHandler = handler
}

func (c *HTTPClientWithRetries) onRequest(status string) {
	if c.StatusHandler != nil {
		c.StatusHandler.OnRequest(status)
	}
}

// ExecuteRequest executes an HTTP request with retry logic and returns the body of a 200 response.
// Every attempt waits on the rate limiter first and then runs within RequestTimeout.
// Only retryable errors (timeouts, 5xx, transport failures) are retried; a rate limited
// response is returned immediately.
func (c *HTTPClientWithRetries) ExecuteRequest(ctx context.Context, req *http.Request) ([]byte, time.Duration, error) {
	var lastErr error
	attempts := c.Opts.MaxRetries
	if attempts <= 0 {
		attempts = 1
	}

	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			log.Printf("%s: Retry %d/%d after error: %v",
				c.Opts.LogPrefix, attempt, attempts-1, lastErr)

			if c.StatusHandler != nil {
				c.StatusHandler.OnRetry()
			}

			backoffDuration := calculateBackoffWithJitter(c.Opts.BaseBackoff, attempt)
			log.Printf("%s: Waiting %.2fs before retry", c.Opts.LogPrefix, backoffDuration.Seconds())
			select {
			case <-ctx.Done():
				return nil, 0, ClassifyTransportError(ctx.Err())
			case <-time.After(backoffDuration):
			}
		}

		// Spacing per API key, waited outside of the attempt budget
		if c.LimiterManager != nil {
			if limiter := c.LimiterManager.GetLimiterForRequest(req); limiter != nil {
				if err := waitForLimiter(ctx, limiter); err != nil {
					c.onRequest("timeout")
					return nil, 0, err
				}
			}
		}

		body, duration, err := c.executeAttempt(ctx, req)
		if err == nil {
			c.onRequest("success")
			return body, duration, nil
		}

		lastErr = err
		switch KindOf(err) {
		case ErrorKindRateLimited:
			c.onRequest("rate_limited")
		case ErrorKindTimeout:
			c.onRequest("timeout")
		default:
			c.onRequest("error")
		}

		if !IsRetryable(err) || ctx.Err() != nil {
			return nil, duration, err
		}
	}

	log.Printf("%s: All %d attempts failed, last error: %v", c.Opts.LogPrefix, attempts, lastErr)
	return nil, 0, lastErr
}

// executeAttempt runs one request within its own timeout
func (c *HTTPClientWithRetries) executeAttempt(ctx context.Context, req *http.Request) ([]byte, time.Duration, error) {
	attemptCtx := ctx
	if c.Opts.RequestTimeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, c.Opts.RequestTimeout)
		defer cancel()
	}

	requestStart := time.Now()
	resp, err := c.Client.Do(req.Clone(attemptCtx))
	if err != nil {
		requestDuration := time.Since(requestStart)
		log.Printf("%s: Request failed after %.2fs: %v", c.Opts.LogPrefix, requestDuration.Seconds(), err)
		return nil, requestDuration, ClassifyTransportError(err)
	}
	defer resp.Body.Close()

	body, err := processResponse(resp)
	requestDuration := time.Since(requestStart)
	if err != nil {
		return nil, requestDuration, err
	}
	return body, requestDuration, nil
}

// calculateBackoffWithJitter calculates backoff duration with jitter for retries
func calculateBackoffWithJitter(baseBackoff time.Duration, attempt int) time.Duration {
	if attempt <= 0 || baseBackoff <= 0 {
		return baseBackoff
	}

	multiplier := uint(1) << uint(attempt-1)
	backoff := time.Duration(float64(baseBackoff) * float64(multiplier))
	if backoff < 2 {
		return backoff
	}
	jitter := time.Duration(rand.Int63n(int64(backoff / 2)))
	return backoff + jitter
}

// processResponse reads the body and classifies non-200 responses
func processResponse(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, ClassifyTransportError(fmt.Errorf("error reading response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		priceErr := ClassifyStatus(resp.StatusCode, body)
		if priceErr.Kind == ErrorKindRateLimited {
			if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
				priceErr.Message = fmt.Sprintf("%s, retry after %s", priceErr.Message, retryAfter)
			}
		}
		return nil, priceErr
	}

	return body, nil
}

// waitForLimiter reserves the next limiter slot and sleeps until it is due.
// A slot due after the ctx deadline is handed back and reported as a timeout at once.
func waitForLimiter(ctx context.Context, limiter *rate.Limiter) error {
	reservation := limiter.Reserve()
	if !reservation.OK() {
		return NewTimeoutError(errors.New("rate limiter admits no requests"))
	}

	delay := reservation.Delay()
	if delay == 0 {
		return nil
	}
	if deadline, ok := ctx.Deadline(); ok && delay > time.Until(deadline) {
		reservation.Cancel()
		return NewTimeoutError(fmt.Errorf("rate limiter slot due in %v, after the fetch deadline", delay.Round(time.Millisecond)))
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		reservation.Cancel()
		return ClassifyTransportError(ctx.Err())
	}
}

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

type decision int

const (
	decisionSuccess decision = iota
	decisionRetry
	decisionFatal
)

// classify maps one attempt outcome to a retry decision. Transport errors and
// timeouts are retryable, as are 5xx and 429 responses. Any other non-2xx
// status is fatal and must not be retried.
func classify(resp *http.Response, err error) decision {
	if err != nil {
		return decisionRetry
	}
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return decisionSuccess
	case resp.StatusCode == http.StatusTooManyRequests:
		return decisionRetry
	case resp.StatusCode >= 500:
		return decisionRetry
	default:
		return decisionFatal
	}
}

// Fetcher performs HTTP requests with bounded retries and exponential
// backoff. The sleep function is injectable so the backoff schedule can be
// tested without real waiting.
type Fetcher struct {
	Client      *http.Client
	MaxAttempts int
	BaseDelay   time.Duration
	sleep       func(ctx context.Context, d time.Duration) error
}

func NewFetcher(client *http.Client) *Fetcher {
	return &Fetcher{
		Client:      client,
		MaxAttempts: 5,
		BaseDelay:   time.Second,
		sleep:       sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Fetch issues req until it succeeds, a fatal status arrives, or MaxAttempts
// is exhausted. The delay before retrying attempt n (0-based) is
// BaseDelay << n. The Authorization header is never logged.
func (f *Fetcher) Fetch(ctx context.Context, req *http.Request) ([]byte, error) {
	var lastStatus int
	var lastErr error

	for attempt := 0; attempt < f.MaxAttempts; attempt++ {
		attemptReq := req.Clone(ctx)
		started := time.Now()

		metricFetchAttempts.WithLabelValues(req.URL.Host).Inc()
		resp, err := f.Client.Do(attemptReq)
		elapsed := time.Since(started).Round(time.Millisecond)

		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, fmt.Errorf("fetch %s: %w", req.URL, err)
			}
			log.Printf("GET %s attempt %d/%d failed after %s: %v",
				req.URL, attempt+1, f.MaxAttempts, elapsed, err)
			lastErr, lastStatus = err, 0
		} else {
			log.Printf("GET %s attempt %d/%d: status %d in %s",
				req.URL, attempt+1, f.MaxAttempts, resp.StatusCode, elapsed)
			lastErr, lastStatus = nil, resp.StatusCode
		}

		switch classify(resp, err) {
		case decisionSuccess:
			body, readErr := io.ReadAll(resp.Body)
			resp.Body.Close()
			if readErr != nil {
				return nil, fmt.Errorf("reading response from %s: %w", req.URL, readErr)
			}
			return body, nil
		case decisionFatal:
			resp.Body.Close()
			return nil, &FatalHTTPError{URL: req.URL.String(), Status: resp.StatusCode}
		case decisionRetry:
			if resp != nil {
				resp.Body.Close()
			}
		}

		if attempt+1 < f.MaxAttempts {
			metricFetchRetries.WithLabelValues(req.URL.Host).Inc()
			delay := f.BaseDelay << attempt
			log.Printf("retrying %s in %s", req.URL, delay)
			if err := f.sleep(ctx, delay); err != nil {
				return nil, fmt.Errorf("fetch %s: %w", req.URL, err)
			}
		}
	}

	return nil, &TransientNetworkError{
		URL:      req.URL.String(),
		Attempts: f.MaxAttempts,
		Status:   lastStatus,
		Err:      lastErr,
	}
}

// FetchJSON is Fetch followed by a decode into out. Decode failures are
// reported as DataShapeError tagged with source.
func (f *Fetcher) FetchJSON(ctx context.Context, req *http.Request, source string, out any) error {
	body, err := f.Fetch(ctx, req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &DataShapeError{Source: source, Detail: err.Error()}
	}
	return nil
}

package api

import (
	"bytes"
	"chess-loader/internal/config"
	"chess-loader/internal/constants"
	"chess-loader/internal/retrier"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
)

// HTTPFetcher performs a single GET against the chess.com public API. It does
// not retry; failures come back as *retrier.Fault so a RetryingFetcher can
// decide what to do with them.
type HTTPFetcher struct {
	baseURL   string
	userAgent string
	timeout   time.Duration
	client    *fasthttp.Client
}

func NewHTTPFetcher(cfg *config.Config) *HTTPFetcher {
	return newHTTPFetcher(cfg.APIBaseURL, cfg.UserAgent, &fasthttp.Client{
		MaxConnsPerHost:     100,
		ReadTimeout:         constants.ExternalAPITimeout,
		WriteTimeout:        constants.ExternalAPITimeout,
		MaxIdleConnDuration: 1 * time.Minute,
	})
}

func newHTTPFetcher(baseURL, userAgent string, client *fasthttp.Client) *HTTPFetcher {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &HTTPFetcher{
		baseURL:   baseURL,
		userAgent: userAgent,
		timeout:   constants.ExternalAPITimeout,
		client:    client,
	}
}

type fetched struct {
	payload Payload
	err     error
}

// Fetch returns as soon as ctx is done. A request already on the wire keeps
// running in the background until its deadline and its result is dropped.
func (f *HTTPFetcher) Fetch(ctx context.Context, path string) (Payload, error) {
	if err := ctx.Err(); err != nil {
		return nil, retrier.NewFault(retrier.Cancelled, 0, err)
	}

	req := fasthttp.AcquireRequest()
	req.SetRequestURI(f.baseURL + strings.TrimPrefix(path, "/"))
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.SetUserAgent(f.userAgent)
	req.Header.Set("Accept", "application/json")

	deadline := time.Now().Add(f.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	done := make(chan fetched, 1)
	go func() {
		resp := fasthttp.AcquireResponse()
		defer fasthttp.ReleaseRequest(req)
		defer fasthttp.ReleaseResponse(resp)

		if err := f.client.DoDeadline(req, resp, deadline); err != nil {
			done <- fetched{err: transportFault(ctx, err)}
			return
		}
		if status := resp.StatusCode(); status != fasthttp.StatusOK {
			done <- fetched{err: statusFault(status)}
			return
		}
		payload, err := decodePayload(resp.Body())
		done <- fetched{payload: payload, err: err}
	}()

	select {
	case r := <-done:
		return r.payload, r.err
	case <-ctx.Done():
		return nil, retrier.NewFault(retrier.Cancelled, 0, ctx.Err())
	}
}

func transportFault(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return retrier.NewFault(retrier.Cancelled, 0, ctx.Err())
	}
	// Timeouts, resets and refused dials are all worth another attempt.
	if errors.Is(err, fasthttp.ErrTimeout) || errors.Is(err, fasthttp.ErrDialTimeout) {
		return retrier.NewFault(retrier.Retryable, 0, fmt.Errorf("timeout: %w", err))
	}
	return retrier.NewFault(retrier.Retryable, 0, fmt.Errorf("transport: %w", err))
}

func statusFault(status int) error {
	err := fmt.Errorf("API error: %d", status)
	switch {
	case status == fasthttp.StatusTooManyRequests,
		status == fasthttp.StatusRequestTimeout,
		status >= 500:
		return retrier.NewFault(retrier.Retryable, status, err)
	default:
		return retrier.NewFault(retrier.NonRetryable, status, err)
	}
}

func decodePayload(body []byte) (Payload, error) {
	body = bytes.TrimSpace(body)
	if len(body) > 0 && body[0] == '[' {
		var items []any
		if err := json.Unmarshal(body, &items); err != nil {
			return nil, retrier.NewFault(retrier.NonRetryable, 0, fmt.Errorf("decode body: %w", err))
		}
		return Payload{ItemsKey: items}, nil
	}

	var result Payload
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, retrier.NewFault(retrier.NonRetryable, 0, fmt.Errorf("decode body: %w", err))
	}
	if result == nil {
		result = Payload{}
	}
	return result, nil
}

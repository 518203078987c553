package api

import (
	"chess-loader/internal/retrier"
	"context"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"
)

// serve starts an in-memory fasthttp server and returns a fetcher dialing it.
func serve(t *testing.T, handler fasthttp.RequestHandler) *HTTPFetcher {
	t.Helper()

	ln := fasthttputil.NewInmemoryListener()
	srv := &fasthttp.Server{Handler: handler}
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() { _ = ln.Close() })

	client := &fasthttp.Client{
		Dial: func(string) (net.Conn, error) { return ln.Dial() },
	}
	return newHTTPFetcher("http://api.test/pub", "chess-loader-test", client)
}

func TestHTTPFetcherDecodesObject(t *testing.T) {
	var gotPath, gotUA string
	f := serve(t, func(ctx *fasthttp.RequestCtx) {
		gotPath = string(ctx.Path())
		gotUA = string(ctx.UserAgent())
		ctx.SetContentType("application/json")
		ctx.SetBodyString(`{"players":["a","b"]}`)
	})

	p, err := f.Fetch(context.Background(), "titled/GM")
	require.NoError(t, err)
	require.Equal(t, "/pub/titled/GM", gotPath)
	require.Equal(t, "chess-loader-test", gotUA)

	players, err := p.Strings("players")
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, players)
}

func TestHTTPFetcherWrapsArrayBodies(t *testing.T) {
	f := serve(t, func(ctx *fasthttp.RequestCtx) {
		ctx.SetBodyString(` [1, 2, 3]`)
	})

	p, err := f.Fetch(context.Background(), "anything")
	require.NoError(t, err)
	require.Len(t, p[ItemsKey], 3)
}

func TestHTTPFetcherClassifiesStatus(t *testing.T) {
	tests := []struct {
		status int
		kind   retrier.FaultKind
	}{
		{fasthttp.StatusTooManyRequests, retrier.Retryable},
		{fasthttp.StatusRequestTimeout, retrier.Retryable},
		{fasthttp.StatusBadGateway, retrier.Retryable},
		{fasthttp.StatusServiceUnavailable, retrier.Retryable},
		{fasthttp.StatusNotFound, retrier.NonRetryable},
		{fasthttp.StatusUnauthorized, retrier.NonRetryable},
		{fasthttp.StatusBadRequest, retrier.NonRetryable},
		{fasthttp.StatusGone, retrier.NonRetryable},
	}
	for _, tt := range tests {
		f := serve(t, func(ctx *fasthttp.RequestCtx) {
			ctx.SetStatusCode(tt.status)
		})

		_, err := f.Fetch(context.Background(), "player/x")
		var fault *retrier.Fault
		require.ErrorAs(t, err, &fault, "status %d", tt.status)
		require.Equal(t, tt.kind, fault.Kind, "status %d", tt.status)
		require.Equal(t, tt.status, fault.Status)
	}
}

func TestHTTPFetcherMalformedBodyIsNotRetryable(t *testing.T) {
	f := serve(t, func(ctx *fasthttp.RequestCtx) {
		ctx.SetBodyString(`{"players":`)
	})

	_, err := f.Fetch(context.Background(), "titled/GM")
	require.True(t, retrier.IsKind(err, retrier.NonRetryable))
}

func TestHTTPFetcherTransportErrorIsRetryable(t *testing.T) {
	client := &fasthttp.Client{
		Dial: func(string) (net.Conn, error) { return nil, errors.New("connection reset by peer") },
	}
	f := newHTTPFetcher("http://api.test/pub/", "ua", client)

	_, err := f.Fetch(context.Background(), "titled/GM")
	require.True(t, retrier.IsKind(err, retrier.Retryable))
}

func TestHTTPFetcherCancelledContext(t *testing.T) {
	f := newHTTPFetcher("http://api.test/pub/", "ua", &fasthttp.Client{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.Fetch(ctx, "titled/GM")
	require.True(t, retrier.IsKind(err, retrier.Cancelled))
}

func TestHTTPFetcherCancelledMidRequest(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	f := serve(t, func(ctx *fasthttp.RequestCtx) {
		select {
		case <-release:
		case <-time.After(2 * time.Second):
		}
		ctx.SetBodyString(`{"players":[]}`)
	})

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	start := time.Now()
	p, err := f.Fetch(ctx, "titled/GM")
	require.Nil(t, p)
	require.True(t, retrier.IsKind(err, retrier.Cancelled))
	require.ErrorIs(t, err, context.Canceled)
	require.Less(t, time.Since(start), time.Second)
}

func TestRetryingFetcherOverHTTP(t *testing.T) {
	var calls atomic.Int32
	f := serve(t, func(ctx *fasthttp.RequestCtx) {
		if calls.Add(1) < 3 {
			ctx.SetStatusCode(fasthttp.StatusTooManyRequests)
			return
		}
		ctx.SetBodyString(`{"username":"hikaru"}`)
	})

	rf := NewRetryingFetcher(f, retrier.Policy{MaxAttempts: 3, Backoff: retrier.NoDelay})
	p, err := rf.Fetch(context.Background(), "player/hikaru")
	require.NoError(t, err)
	require.Equal(t, "hikaru", p["username"])
	require.EqualValues(t, 3, calls.Load())
}

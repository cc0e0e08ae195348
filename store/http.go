package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
)

// StatusError is returned for non-200 responses
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API request failed with status %d: %s", e.Code, e.Body)
}

// Retryable reports whether the response is worth another attempt
func (e *StatusError) Retryable() bool {
	return e.Code >= 500 || e.Code == http.StatusTooManyRequests
}

// Fetcher performs authenticated GET requests with exponential backoff on
// transport errors, 5xx and 429 responses
type Fetcher struct {
	Client  *http.Client
	Retries int
	Log     zerolog.Logger

	// Authorize decorates each request, typically with credentials
	Authorize func(*http.Request)

	newBackOff func() backoff.BackOff
}

// NewFetcher creates a fetcher with the given timeout and retry budget
func NewFetcher(timeout time.Duration, retries int, log zerolog.Logger) *Fetcher {
	return &Fetcher{
		Client:  &http.Client{Timeout: timeout},
		Retries: retries,
		Log:     log,
	}
}

func (f *Fetcher) backOff(ctx context.Context) backoff.BackOff {
	var bo backoff.BackOff
	if f.newBackOff != nil {
		bo = f.newBackOff()
	} else {
		exp := backoff.NewExponentialBackOff()
		exp.InitialInterval = 250 * time.Millisecond
		exp.MaxElapsedTime = 30 * time.Second
		bo = exp
	}
	retries := f.Retries
	if retries < 0 {
		retries = 0
	}
	return backoff.WithContext(backoff.WithMaxRetries(bo, uint64(retries)), ctx)
}

// Get fetches url and returns the response body
func (f *Fetcher) Get(ctx context.Context, url string) ([]byte, error) {
	var body []byte
	attempt := 0
	op := func() error {
		attempt++
		b, err := f.do(ctx, url)
		if err == nil {
			body = b
			return nil
		}
		var se *StatusError
		if errors.As(err, &se) && !se.Retryable() {
			return backoff.Permanent(err)
		}
		if ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		f.Log.Debug().Err(err).Str("url", url).Int("attempt", attempt).Msg("fetch failed, retrying")
		return err
	}
	if err := backoff.Retry(op, f.backOff(ctx)); err != nil {
		return nil, err
	}
	return body, nil
}

func (f *Fetcher) do(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if f.Authorize != nil {
		f.Authorize(req)
	}

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{Code: resp.StatusCode, Body: string(body)}
	}

	return io.ReadAll(resp.Body)
}

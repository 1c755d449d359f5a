package media

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// Fetcher retrieves remote media payloads by URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// HTTPFetcher downloads payloads over HTTP with retries. Transient failures
// (network errors, 5xx) are retried with exponential backoff; 4xx responses
// are permanent.
type HTTPFetcher struct {
	client  *http.Client
	timeout time.Duration
	logger  *zap.Logger
}

// NewHTTPFetcher creates a fetcher with a per-request timeout
func NewHTTPFetcher(timeout time.Duration, logger *zap.Logger) *HTTPFetcher {
	return &HTTPFetcher{
		client:  &http.Client{Timeout: timeout},
		timeout: timeout,
		logger:  logger,
	}
}

// Fetch downloads the payload at url, rejecting empty bodies
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	var payload []byte

	fetchFn := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("build request: %w", err))
		}

		resp, err := f.client.Do(req)
		if err != nil {
			return fmt.Errorf("fetch %s: %w", url, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			return fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			return backoff.Permanent(fmt.Errorf("fetch %s: status %d", url, resp.StatusCode))
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read %s: %w", url, err)
		}
		if len(body) == 0 {
			return backoff.Permanent(fmt.Errorf("fetch %s: empty payload", url))
		}
		payload = body
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxInterval = 5 * time.Second
	bo.MaxElapsedTime = f.timeout

	if err := backoff.Retry(fetchFn, backoff.WithContext(bo, ctx)); err != nil {
		f.logger.Warn("media fetch failed",
			zap.String("url", url),
			zap.Error(err),
		)
		return nil, err
	}
	return payload, nil
}

// Package scrape implements the generic scraping adapter of SPEC_FULL.md §4:
// a goquery-based ScrapeAdapter, registered per-domain, that extracts
// episode rows from a series page via configurable CSS selectors. It is one
// concrete implementation of the manager.ScrapeAdapter collaborator
// interface spec.md §6 otherwise leaves abstract.
package scrape

import (
	"compress/flate"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/andybalholm/brotli"
)

const defaultMaxBodySize = 8 << 20 // 8 MiB, a generous ceiling for an episode-list page

// HTTPClient fetches series pages over HTTP, rotating User-Agents and
// transparently decompressing gzip/deflate/brotli bodies, adapted from the
// teacher's internal/fetcher/http.go.
type HTTPClient struct {
	client      *http.Client
	userAgents  []string
	uaIndex     atomic.Int64
	maxBodySize int64
	logger      *slog.Logger
}

// NewHTTPClient builds an HTTPClient. userAgents may be empty, in which case
// a single default identifies the process.
func NewHTTPClient(timeout time.Duration, userAgents []string, logger *slog.Logger) *HTTPClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPClient{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				DisableCompression: true, // decompression handled explicitly below
			},
		},
		userAgents:  userAgents,
		maxBodySize: defaultMaxBodySize,
		logger:      logger.With("component", "scrape_http_client"),
	}
}

// FetchError wraps a failed fetch with a Retryable classification, following
// the shape of tasks.HandlerError/DownloadError.
type FetchError struct {
	URL       string
	Err       error
	Retryable bool
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Fetch retrieves rawURL's body. cookies, when non-empty, is sent verbatim
// as the Cookie header (the caller — internal/cookie — is responsible for
// formatting it).
func (c *HTTPClient) Fetch(ctx context.Context, rawURL string, cookies []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: err, Retryable: false}
	}

	req.Header.Set("User-Agent", c.nextUserAgent())
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Accept-Encoding", "gzip, deflate, br")
	if len(cookies) > 0 {
		req.Header.Set("Cookie", string(cookies))
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: err, Retryable: isRetryableError(err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, &FetchError{URL: rawURL, Err: fmt.Errorf("HTTP %d", resp.StatusCode), Retryable: true}
	}
	if resp.StatusCode >= 400 {
		return nil, &FetchError{URL: rawURL, Err: fmt.Errorf("HTTP %d", resp.StatusCode), Retryable: false}
	}

	reader, err := decompressReader(resp, io.LimitReader(resp.Body, c.maxBodySize))
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: err, Retryable: false}
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: err, Retryable: true}
	}

	c.logger.Debug("fetch complete", "url", rawURL, "status", resp.StatusCode, "size", len(body))
	return body, nil
}

func (c *HTTPClient) nextUserAgent() string {
	if len(c.userAgents) == 0 {
		return "wetvlo/1.0"
	}
	idx := c.uaIndex.Add(1) % int64(len(c.userAgents))
	return c.userAgents[idx]
}

func decompressReader(resp *http.Response, reader io.Reader) (io.Reader, error) {
	switch resp.Header.Get("Content-Encoding") {
	case "gzip":
		return gzip.NewReader(reader)
	case "deflate":
		return flate.NewReader(reader), nil
	case "br":
		return brotli.NewReader(reader), nil
	default:
		return reader, nil
	}
}

func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if errors.Is(opErr.Err, syscall.ECONNRESET) || errors.Is(opErr.Err, syscall.ECONNREFUSED) {
			return true
		}
	}
	return false
}

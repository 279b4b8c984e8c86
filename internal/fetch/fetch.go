// Package fetch retrieves raw documents over HTTP.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrBodyTooLarge is wrapped by the TransportError for a body over the size cap
var ErrBodyTooLarge = errors.New("body exceeds size cap")

// TransportError reports an unreachable host, a timeout or a non-2xx response.
// StatusCode is zero when no response was received.
type TransportError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Options configures a Client
type Options struct {
	Timeout   time.Duration
	MaxBytes  int64
	UserAgent string
}

// Client fetches documents with a fixed User-Agent and a size cap
type Client struct {
	http      *http.Client
	maxBytes  int64
	userAgent string
}

// NewClient creates a Client
func NewClient(opts Options) *Client {
	return &Client{
		http:      &http.Client{Timeout: opts.Timeout},
		maxBytes:  opts.MaxBytes,
		userAgent: opts.UserAgent,
	}
}

// Fetch GETs url and returns the body. A body larger than the size cap is
// rejected with a TransportError wrapping ErrBodyTooLarge.
func (c *Client) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &TransportError{URL: url, Err: err}
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain a little so the connection can be reused
		_, _ = io.CopyN(io.Discard, resp.Body, 4<<10)
		return nil, &TransportError{URL: url, StatusCode: resp.StatusCode}
	}

	var body io.Reader = resp.Body
	if c.maxBytes > 0 {
		// One byte past the cap tells an exact fit from an oversized body
		body = io.LimitReader(resp.Body, c.maxBytes+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, &TransportError{URL: url, Err: err}
	}
	if c.maxBytes > 0 && int64(len(data)) > c.maxBytes {
		return nil, &TransportError{URL: url, Err: fmt.Errorf("%w (%d bytes)", ErrBodyTooLarge, c.maxBytes)}
	}
	return data, nil
}

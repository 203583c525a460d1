package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// PageFetcher is the abstract page-fetcher contract consumed by the
// normalizer and resolver: given a resource reference, return its raw
// content or a fetch error. Implementations must not retry; the scheduler
// owns retry policy.
type PageFetcher interface {
	Fetch(ctx context.Context, ref string) ([]byte, error)
}

// Client is the HTTP implementation of PageFetcher plus the streaming
// download primitives the scheduler uses.
type Client struct {
	httpClient *http.Client
	userAgent  string
	cookie     string
}

// Option configures a Client.
type Option func(*Client)

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// WithCookie sets a Cookie header sent on every request. Session
// acquisition itself is out of scope; the caller supplies the value.
func WithCookie(cookie string) Option {
	return func(c *Client) { c.cookie = cookie }
}

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// NewClient creates a Client with a 60 second timeout.
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		userAgent:  "mooc-mirror",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) newRequest(ctx context.Context, method, url string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)
	if c.cookie != "" {
		req.Header.Set("Cookie", c.cookie)
	}
	return req, nil
}

// Fetch performs a GET request and returns the body. Implements
// PageFetcher.
func (c *Client) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := c.newRequest(ctx, http.MethodGet, url)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{URL: url, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	return body, nil
}

// ContentLength returns the size of the resource at url via a HEAD
// request, or -1 when the server does not advertise one.
func (c *Client) ContentLength(ctx context.Context, url string) (int64, error) {
	req, err := c.newRequest(ctx, http.MethodHead, url)
	if err != nil {
		return 0, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, &FetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, &FetchError{URL: url, Status: resp.StatusCode}
	}
	return resp.ContentLength, nil
}

// ProgressWriter wraps a writer to track bytes written during a download.
type ProgressWriter struct {
	// Writer is the underlying writer.
	Writer io.Writer

	// Total is the expected total bytes, or -1 when unknown.
	Total int64

	// Written counts bytes written so far, including any resumed offset.
	Written int64

	// OnUpdate, when set, is called after each write with
	// (bytesWritten, totalExpected).
	OnUpdate func(written, total int64)
}

func (pw *ProgressWriter) Write(p []byte) (int, error) {
	n, err := pw.Writer.Write(p)
	pw.Written += int64(n)
	if pw.OnUpdate != nil {
		pw.OnUpdate(pw.Written, pw.Total)
	}
	return n, err
}

// Download streams url to destPath.
//
// When offset > 0 the request carries a Range header; if the server honors
// it (206) the existing file is appended from that offset, otherwise the
// partial file is truncated and the transfer restarts from zero. The
// returned size is the final on-disk size. resumed reports whether the
// ranged path was taken.
//
// The transfer aborts promptly on context cancellation because the body
// read is bound to ctx.
func (c *Client) Download(ctx context.Context, url, destPath string, offset int64, onProgress func(written, total int64)) (size int64, resumed bool, err error) {
	req, err := c.newRequest(ctx, http.MethodGet, url)
	if err != nil {
		return 0, false, err
	}
	if offset > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", offset))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, false, &FetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	var file *os.File
	switch resp.StatusCode {
	case http.StatusRequestedRangeNotSatisfiable:
		// The offset is at or past the end of the resource: everything is
		// already on disk. Not an error, and nothing to transfer.
		return offset, true, nil
	case http.StatusPartialContent:
		resumed = true
		file, err = os.OpenFile(destPath, os.O_WRONLY|os.O_APPEND, 0644)
	case http.StatusOK:
		// Server ignored (or never saw) the range request: restart from
		// zero and truncate whatever partial content existed.
		offset = 0
		if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
			return 0, false, err
		}
		file, err = os.Create(destPath)
	default:
		return 0, false, &FetchError{URL: url, Status: resp.StatusCode}
	}
	if err != nil {
		return 0, false, err
	}
	defer file.Close()

	total := resp.ContentLength
	if total >= 0 {
		total += offset
	}

	var writer io.Writer = file
	if onProgress != nil {
		writer = &ProgressWriter{Writer: file, Total: total, Written: offset, OnUpdate: onProgress}
	}

	written, err := io.Copy(writer, resp.Body)
	if err != nil {
		return offset + written, resumed, &FetchError{URL: url, Err: err}
	}
	return offset + written, resumed, nil
}

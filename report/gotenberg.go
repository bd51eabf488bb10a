package report

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// ErrNotConfigured is returned when no Gotenberg URL was provided.
var ErrNotConfigured = errors.New("report: gotenberg url not configured")

// PageOptions sets the paper size and margins in inches.
type PageOptions struct {
	Width, Height    float64
	MarginTop        float64
	MarginBottom     float64
	MarginHorizontal float64
}

// A4 is the page used for printed documents.
var A4 = PageOptions{Width: 8.27, Height: 11.7, MarginTop: 0.4, MarginBottom: 0.4, MarginHorizontal: 0.4}

// RenderError reports a non-2xx answer from Gotenberg.
type RenderError struct {
	Status int
	Body   string
}

func (e *RenderError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("render failed with status %d", e.Status)
	}
	return fmt.Sprintf("render failed with status %d: %s", e.Status, e.Body)
}

// Client wraps interactions with the Gotenberg API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	page       PageOptions
}

// NewClient constructs a new client. A non-positive timeout defaults to 30s.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		page: A4,
	}
}

// WithPage returns a copy of c rendering on page.
func (c *Client) WithPage(page PageOptions) *Client {
	clone := *c
	clone.page = page
	return &clone
}

func (p PageOptions) fields() [][2]string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	return [][2]string{
		{"paperWidth", f(p.Width)},
		{"paperHeight", f(p.Height)},
		{"marginTop", f(p.MarginTop)},
		{"marginBottom", f(p.MarginBottom)},
		{"marginLeft", f(p.MarginHorizontal)},
		{"marginRight", f(p.MarginHorizontal)},
	}
}

// Ping checks if the remote Gotenberg service is available.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.baseURL == "" {
		return ErrNotConfigured
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/health", c.baseURL), nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("gotenberg returned status %d", resp.StatusCode)
	}
	return nil
}

// RenderHTML converts raw HTML into a PDF document using Gotenberg.
func (c *Client) RenderHTML(ctx context.Context, html string) ([]byte, error) {
	if c == nil || c.baseURL == "" {
		return nil, ErrNotConfigured
	}
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("files", "index.html")
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, bytes.NewBufferString(html)); err != nil {
		return nil, err
	}
	for _, kv := range c.page.fields() {
		if err := writer.WriteField(kv[0], kv[1]); err != nil {
			return nil, err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s/forms/chromium/convert/html", c.baseURL), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 400 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &RenderError{Status: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}
	return io.ReadAll(resp.Body)
}

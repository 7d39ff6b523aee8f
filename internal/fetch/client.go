// Package fetch downloads provider resources over traced HTTP and decodes
// them from the provider's declared charset.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/encoding/htmlindex"
)

const DefaultUserAgent = "transit-sync/1.0"

// ErrStatus is returned for any response other than 200 OK.
var ErrStatus = errors.New("unexpected status")

type Options struct {
	// Timeout bounds a whole request; zero means no timeout.
	Timeout   time.Duration
	UserAgent string
}

type Client struct {
	httpClient *http.Client
	userAgent  string
	tracer     trace.Tracer
}

func NewClient(opts Options) *Client {
	ua := opts.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	return &Client{
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   opts.Timeout,
		},
		userAgent: ua,
		tracer:    otel.Tracer("transit-sync/fetch"),
	}
}

// Get returns the body of url.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	ctx, span := c.tracer.Start(ctx, "fetch.get",
		trace.WithAttributes(attribute.String("http.url", url)))
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "*/*")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		return nil, fmt.Errorf("GET %s: %w", url, err)
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		err := fmt.Errorf("GET %s: %w %d: %s", url, ErrStatus, resp.StatusCode, strings.TrimSpace(string(snippet)))
		span.RecordError(err)
		span.SetStatus(codes.Error, resp.Status)
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("read %s: %w", url, err)
	}
	span.SetAttributes(attribute.Int("response.size_bytes", len(body)))
	return body, nil
}

// GetText returns the body of url decoded from coding, any name the WHATWG
// encoding index knows ("utf-8", "windows-1251", "cp1251", "koi8-r").
func (c *Client) GetText(ctx context.Context, url, coding string) (string, error) {
	body, err := c.Get(ctx, url)
	if err != nil {
		return "", err
	}
	return Decode(body, coding)
}

func Decode(body []byte, coding string) (string, error) {
	if coding == "" {
		coding = "utf-8"
	}
	enc, err := htmlindex.Get(coding)
	if err != nil {
		return "", fmt.Errorf("coding %q: %w", coding, err)
	}
	out, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", coding, err)
	}
	return string(out), nil
}

package rest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/bnema/offline-session-cli/internal/ports"
	"github.com/bnema/offline-session-cli/internal/version"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
)

const (
	maxResponseBytes = 4 << 20

	headerRequestID = "X-Request-Id"
)

var ErrResponseTooLarge = errors.New("remote response exceeds size limit")

// Client talks JSON to the records API rooted at baseURL.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	logger  zerolog.Logger
}

func NewClient(baseURL string, httpClient *http.Client, logger zerolog.Logger) (*Client, error) {
	parsed, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse api base url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, errors.New("api base url must use http or https")
	}
	if parsed.Host == "" {
		return nil, errors.New("api base url host is required")
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Client{baseURL: parsed, http: httpClient, logger: logger}, nil
}

func (c *Client) Do(ctx context.Context, req ports.Request) (ports.Response, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.endpoint(req.Path), body)
	if err != nil {
		return ports.Response{}, fmt.Errorf("create request: %w", err)
	}

	requestID := ulid.Make().String()
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", "ofs/"+version.Version)
	httpReq.Header.Set(headerRequestID, requestID)
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if req.Authorization != "" {
		httpReq.Header.Set("Authorization", req.Authorization)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return ports.Response{}, fmt.Errorf("%s %s: %w", method, req.Path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return ports.Response{}, fmt.Errorf("read %s %s response: %w", method, req.Path, err)
	}
	if len(payload) > maxResponseBytes {
		return ports.Response{}, fmt.Errorf("%s %s: %w", method, req.Path, ErrResponseTooLarge)
	}

	c.logger.Debug().
		Str("request_id", requestID).
		Str("method", method).
		Str("path", req.Path).
		Int("status", resp.StatusCode).
		Msg("remote call")

	return ports.Response{StatusCode: resp.StatusCode, Body: payload}, nil
}

func (c *Client) endpoint(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.baseURL.String() + path
}

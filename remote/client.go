package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/framerhq/framer/types"
)

const defaultTimeout = 60 * time.Second

// Client is the shared HTTP transport for both collaborator clients.
// It owns the base URL, auth header, timeout, and error classification.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	debug   bool
	log     *slog.Logger
}

// NewClient creates a transport for the Framer backend at baseURL.
func NewClient(baseURL, apiKey string, timeout time.Duration, debug bool) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
		debug:   debug,
		log:     slog.Default(),
	}
}

// apiError is the backend's error envelope.
type apiError struct {
	Detail string `json:"detail"`
}

// doJSON issues one request and decodes a JSON response into out (out may
// be nil for empty responses). Failures are classified into the
// unavailable/rejected/not_found taxonomy; the caller never sees
// HTTP-level detail beyond that.
func (c *Client) doJSON(ctx context.Context, op, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		// Timeouts and transport failures all land here; no partial
		// response is ever applied.
		return types.NewServiceError(types.KindUnavailable, op, humanizeTransport(err), err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return types.NewServiceError(types.KindUnavailable, op, "reading response failed", err)
	}
	if c.debug {
		c.log.Debug("backend call", "op", op, "method", method, "path", path,
			"status", resp.StatusCode, "bytes", len(raw), "took", time.Since(start))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.classify(op, resp.StatusCode, raw)
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return types.NewServiceError(types.KindUnavailable, op, "malformed response", err)
	}
	return nil
}

func (c *Client) classify(op string, status int, raw []byte) error {
	var envelope apiError
	_ = json.Unmarshal(raw, &envelope)
	detail := envelope.Detail
	if detail == "" {
		detail = http.StatusText(status)
	}

	switch {
	case status == http.StatusNotFound:
		return types.NewServiceError(types.KindNotFound, op, detail, nil)
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return types.NewServiceError(types.KindRejected, op, detail, nil)
	default:
		return types.NewServiceError(types.KindUnavailable, op, detail, nil)
	}
}

func humanizeTransport(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "the backend did not respond in time"
	}
	if errors.Is(err, context.Canceled) {
		return "the request was cancelled"
	}
	return "the backend could not be reached"
}

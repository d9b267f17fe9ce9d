// Package convert talks to the conversion service that turns markdown into
// a collaborative document update.
package convert

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"docforest/internal/domain"
)

const serviceName = "conversion service"

// maxResponse bounds the converted document read from the service.
const maxResponse = 32 << 20

// Converter turns markdown into a base64 encoded Yjs update.
type Converter interface {
	Markdown(ctx context.Context, markdown string) (string, error)
}

// Client calls the conversion service over HTTP.
type Client struct {
	url        string
	apiKey     string
	timeout    time.Duration
	httpClient *http.Client
}

// NewClient creates a client for the conversion endpoint at url. Every call is
// bounded by timeout.
func NewClient(url, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		url:        url,
		apiKey:     apiKey,
		timeout:    timeout,
		httpClient: &http.Client{},
	}
}

// Markdown converts markdown and returns the update as base64. Transport
// failures, timeouts and non-2xx answers are reported as
// ServiceUnavailableError; nothing is retried.
func (c *Client) Markdown(ctx context.Context, markdown string) (string, error) {
	if c.url == "" {
		return "", unavailable(errors.New("CONVERSION_URL is not configured"))
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, strings.NewReader(markdown))
	if err != nil {
		return "", fmt.Errorf("failed to create conversion request: %w", err)
	}
	req.Header.Set("Content-Type", "text/markdown")
	req.Header.Set("Accept", "application/vnd.yjs.doc")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", unavailable(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponse))
	if err != nil {
		return "", unavailable(fmt.Errorf("read response: %w", err))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", unavailable(fmt.Errorf("conversion failed with status %d: %s", resp.StatusCode, truncate(body, 200)))
	}

	// the service answers with either the raw update or its base64 form
	content := string(bytes.TrimSpace(body))
	if _, err := base64.StdEncoding.DecodeString(content); err != nil {
		content = base64.StdEncoding.EncodeToString(body)
	}
	return content, nil
}

func unavailable(err error) error {
	return &domain.ServiceUnavailableError{Service: serviceName, Err: err}
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}

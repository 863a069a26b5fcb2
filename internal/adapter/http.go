package adapter

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

//go:generate mockgen -source=http.go -destination=../mocks/http.go -package=mocks -mock_names=HTTPClient=MockHTTPClient

// HTTPClient defines an interface for outbound HTTP operations to enable mocking
type HTTPClient interface {
	// PostWithHeaders performs a POST request with the given headers.
	// The request runs under the context's deadline; the caller is
	// responsible for closing the response body.
	PostWithHeaders(ctx context.Context, url string, headers map[string]string, body io.Reader) (*http.Response, error)
}

// RealHTTPClient implements HTTPClient using the standard http package
type RealHTTPClient struct {
	client *http.Client
}

// NewHTTPClient creates a new real HTTP client. The timeout acts as an
// upper bound; per-request deadlines come from the context.
func NewHTTPClient(timeout time.Duration) HTTPClient {
	return &RealHTTPClient{
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// PostWithHeaders performs a POST request with the given headers
func (c *RealHTTPClient) PostWithHeaders(ctx context.Context, url string, headers map[string]string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to perform request: %w", err)
	}

	return resp, nil
}

package transit

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Metro's API gateway authenticates every request with this header.
const apiKeyHeader = "Ocp-Apim-Subscription-Key"

// feedClient performs authenticated GETs against the Metro API.
type feedClient struct {
	apiKey string
	client *http.Client
}

func newFeedClient(apiKey string, timeout time.Duration) *feedClient {
	return &feedClient{
		apiKey: apiKey,
		client: &http.Client{Timeout: timeout},
	}
}

func (c *feedClient) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set(apiKeyHeader, c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, &UpstreamError{
			URL:        req.URL.Redacted(),
			Status:     resp.Status,
			StatusCode: resp.StatusCode,
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %w", ErrUpstreamUnavailable, err)
	}
	return body, nil
}

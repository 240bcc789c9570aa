package replay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPClient wraps http.Client with timeout.
type HTTPClient struct {
	client *http.Client
}

func newHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{client: &http.Client{Timeout: timeout}}
}

// Get performs a GET request.
func (c *HTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.client.Do(req)
}

// Post performs a POST request with a JSON body.
func (c *HTTPClient) Post(ctx context.Context, url string, body any) (*http.Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.client.Do(req)
}

// readJSON decodes a 200 response into v and closes the body.
func readJSON(resp *http.Response, v any) error {
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}
	return json.Unmarshal(body, v)
}

// postFrame submits one document and returns the pipeline outcomes.
func postFrame(ctx context.Context, client *HTTPClient, url string, f *Frame) ([]ingestEvent, error) {
	resp, err := client.Post(ctx, url, f.Doc)
	if err != nil {
		return nil, err
	}
	var res ingestResponse
	if err := readJSON(resp, &res); err != nil {
		return nil, err
	}
	return res.Events, nil
}

func fetchNotifications(ctx context.Context, client *HTTPClient, baseURL string) ([]notification, error) {
	resp, err := client.Get(ctx, baseURL+"/notifications?limit=200")
	if err != nil {
		return nil, err
	}
	var items []notification
	if err := readJSON(resp, &items); err != nil {
		return nil, err
	}
	return items, nil
}

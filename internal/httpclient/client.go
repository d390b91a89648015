package httpclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/go-querystring/query"
)

// APIError is returned for any non-2xx response.
type APIError struct {
	StatusCode    int    `json:"-"`
	StatusMessage string `json:"status_message"`
	Body          string `json:"-"`
}

func (e *APIError) Error() string {
	if e.StatusMessage != "" {
		return fmt.Sprintf("api request failed: status %d: %s", e.StatusCode, e.StatusMessage)
	}
	return fmt.Sprintf("api request failed: status %d, body: %s", e.StatusCode, e.Body)
}

// Client manages making HTTP requests to the API.
type Client struct {
	baseURL    string
	apiKey     string
	userAgent  string
	httpClient *http.Client
	mu         sync.RWMutex // Protects baseURL
}

// New creates a new internal HTTP client. apiKey may be a v3 API key, sent as
// the api_key query parameter, or a v4 read access token, sent as a bearer
// token.
func New(baseURL, apiKey, userAgent string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		userAgent:  userAgent,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// SetBaseURL updates the base URL used for requests.
func (c *Client) SetBaseURL(baseURL string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.baseURL = strings.TrimRight(baseURL, "/")
}

// Get makes a GET request. params is encoded with go-querystring `url` tags.
func (c *Client) Get(ctx context.Context, path string, params interface{}, target interface{}) error {
	c.mu.RLock()
	currentBaseURL := c.baseURL
	c.mu.RUnlock()

	fullURL, err := url.Parse(currentBaseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	fullURL.Path += path // Assumes baseURL doesn't end with / and path starts with /

	values := url.Values{}
	if params != nil {
		values, err = query.Values(params)
		if err != nil {
			return fmt.Errorf("failed to encode query parameters: %w", err)
		}
	}
	bearer := strings.Count(c.apiKey, ".") == 2 // JWT read access token
	if c.apiKey != "" && !bearer {
		values.Set("api_key", c.apiKey)
	}
	fullURL.RawQuery = values.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	if bearer {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	respBodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(respBodyBytes)}
		_ = json.Unmarshal(respBodyBytes, apiErr)
		return apiErr
	}

	if target != nil {
		if err := json.Unmarshal(respBodyBytes, target); err != nil {
			return fmt.Errorf("failed to unmarshal response body: %w", err)
		}
	}
	return nil
}

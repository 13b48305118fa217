package api

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
)

// Client represents a consultation backend API client
type Client struct {
	baseURL        string
	http           *resty.Client
	names          *nameCache
	mu             sync.RWMutex
	token          string
	onUnauthorized func()
}

// APIError carries the HTTP status and the backend-provided detail message.
// The backend wraps errors as {"detail": "..."}; Detail is the generic
// fallback text when the body cannot be parsed.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (HTTP %d): %s", e.StatusCode, e.Detail)
}

// NewClient creates a new backend API client
func NewClient(baseURL string) *Client {
	client := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		names:   newNameCache(512),
	}

	// Configure resty client
	client.http = resty.New().
		SetHeader("Content-Type", "application/json").
		SetTimeout(120 * time.Second). // report generation endpoints can be slow to acknowledge
		SetRetryCount(3).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			// Retry on 429 (Too Many Requests) and 5xx server errors
			return r.StatusCode() == 429 || (r.StatusCode() >= 500 && r.StatusCode() <= 504)
		}).
		OnAfterResponse(func(_ *resty.Client, r *resty.Response) error {
			if r.StatusCode() == 401 {
				client.handleUnauthorized()
			}
			return nil
		})

	return client
}

// SetToken sets the bearer token attached to subsequent requests
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Token returns the current bearer token (empty when logged out)
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// SetOnUnauthorized registers a hook invoked whenever the backend answers 401.
// The hook runs after the local token has been cleared.
func (c *Client) SetOnUnauthorized(fn func()) {
	c.mu.Lock()
	c.onUnauthorized = fn
	c.mu.Unlock()
}

func (c *Client) handleUnauthorized() {
	c.mu.Lock()
	c.token = ""
	fn := c.onUnauthorized
	c.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// Login authenticates against the backend and stores the returned token
func (c *Client) Login(username, password string) (string, error) {
	resp, err := c.http.R().
		SetBody(map[string]string{"username": username, "password": password}).
		Post(c.buildURL("api/admin/login"))
	if err != nil {
		return "", fmt.Errorf("login request failed: %w", err)
	}
	if !resp.IsSuccess() {
		return "", ParseAPIError(resp)
	}

	var result struct {
		Token    string `json:"token"`
		Username string `json:"username"`
	}
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return "", fmt.Errorf("failed to parse login response: %w", err)
	}

	c.SetToken(result.Token)
	return result.Token, nil
}

// Get performs a GET request against the backend API
func (c *Client) Get(endpoint string, params map[string]string) (*resty.Response, error) {
	req := c.newRequest()
	if params != nil {
		req.SetQueryParams(params)
	}
	return req.Get(c.buildURL(endpoint))
}

// Post performs a POST request against the backend API
func (c *Client) Post(endpoint string, payload interface{}) (*resty.Response, error) {
	return c.newRequest().SetBody(payload).Post(c.buildURL(endpoint))
}

// Put performs a PUT request against the backend API
func (c *Client) Put(endpoint string, payload interface{}) (*resty.Response, error) {
	req := c.newRequest()
	if payload != nil {
		req.SetBody(payload)
	}
	return req.Put(c.buildURL(endpoint))
}

// Delete performs a DELETE request against the backend API
func (c *Client) Delete(endpoint string, params map[string]string) (*resty.Response, error) {
	req := c.newRequest()
	if params != nil {
		req.SetQueryParams(params)
	}
	return req.Delete(c.buildURL(endpoint))
}

func (c *Client) newRequest() *resty.Request {
	req := c.http.R()
	if token := c.Token(); token != "" {
		req.SetAuthToken(token)
	}
	return req
}

// GetCustomerName resolves the customer name of a consultation (with caching).
// Falls back to the consultation ID when the lookup fails.
func (c *Client) GetCustomerName(consultationID string) string {
	if name, ok := c.names.Get(consultationID); ok {
		return name
	}

	resp, err := c.Get(fmt.Sprintf("api/consultations/%s", consultationID), nil)
	if err != nil || !resp.IsSuccess() {
		c.names.Put(consultationID, consultationID)
		return consultationID
	}

	var result struct {
		CustomerName string `json:"customer_name"`
	}
	if err := json.Unmarshal(resp.Body(), &result); err != nil || result.CustomerName == "" {
		c.names.Put(consultationID, consultationID)
		return consultationID
	}

	c.names.Put(consultationID, result.CustomerName)
	return result.CustomerName
}

// ForgetCustomer evicts a cached customer name, e.g. after a bulk delete
func (c *Client) ForgetCustomer(consultationID string) {
	c.names.Remove(consultationID)
}

// ParseAPIError converts a non-2xx response into an *APIError, preferring the
// backend's own detail message over a generic one
func ParseAPIError(resp *resty.Response) error {
	apiErr := &APIError{
		StatusCode: resp.StatusCode(),
		Detail:     fmt.Sprintf("HTTP %d: %s", resp.StatusCode(), resp.Status()),
	}

	var body struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(resp.Body(), &body); err == nil && body.Detail != "" {
		apiErr.Detail = body.Detail
	}

	return apiErr
}

// buildURL constructs the full URL for an endpoint
func (c *Client) buildURL(endpoint string) string {
	endpoint = strings.TrimPrefix(endpoint, "/")
	return fmt.Sprintf("%s/%s", c.baseURL, endpoint)
}

// SetTimeout allows customizing the timeout for specific operations
func (c *Client) SetTimeout(timeout time.Duration) {
	c.http.SetTimeout(timeout)
}

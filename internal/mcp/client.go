package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/devricklin/echo-relay/internal/biz/domain"
)

// Client is the HTTP client for the dashboard API
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new dashboard API client
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// APIError is a non-2xx response from the dashboard API
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// ============ State ============

// State gets the dashboard snapshot
func (c *Client) State(ctx context.Context) (*domain.Snapshot, error) {
	var snap domain.Snapshot
	if err := c.do(ctx, http.MethodGet, "/api/state", nil, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// ToggleConnection toggles the source or destination connection
func (c *Client) ToggleConnection(ctx context.Context, side string) (*domain.Connection, error) {
	var conn domain.Connection
	path := fmt.Sprintf("/api/connections/%s/toggle", url.PathEscape(side))
	if err := c.do(ctx, http.MethodPost, path, nil, &conn); err != nil {
		return nil, err
	}
	return &conn, nil
}

// SetTopic changes the filter topic
func (c *Client) SetTopic(ctx context.Context, topic string) error {
	return c.do(ctx, http.MethodPut, "/api/topic", map[string]string{"topic": topic}, nil)
}

// ============ Messages ============

// SendMessage sends an operator message
func (c *Client) SendMessage(ctx context.Context, text string) (*domain.Message, error) {
	var msg domain.Message
	if err := c.do(ctx, http.MethodPost, "/api/messages", map[string]string{"text": text}, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// Feed gets the messages of a feed, most recent first
func (c *Client) Feed(ctx context.Context, feed string, limit int) ([]domain.Message, error) {
	var result struct {
		Messages []domain.Message `json:"messages"`
	}
	path := fmt.Sprintf("/api/feeds/%s?limit=%d", url.PathEscape(feed), limit)
	if err := c.do(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return result.Messages, nil
}

// ActivityLog gets the activity log, most recent first
func (c *Client) ActivityLog(ctx context.Context, limit int) ([]domain.ActivityLogEntry, error) {
	var result struct {
		Entries []domain.ActivityLogEntry `json:"entries"`
	}
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/log?limit=%d", limit), nil, &result); err != nil {
		return nil, err
	}
	return result.Entries, nil
}

// Classify runs a one-off relevance classification
func (c *Client) Classify(ctx context.Context, message, topic string) (*domain.ClassificationResult, error) {
	var result domain.ClassificationResult
	body := domain.ClassificationRequest{Message: message, Topic: topic}
	if err := c.do(ctx, http.MethodPost, "/api/classify", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ============ HTTP Helpers ============

func (c *Client) do(ctx context.Context, method, path string, body, result interface{}) error {
	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal body: %w", err)
		}
		reader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP %s failed: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Message: errorMessage(respBody)}
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// errorMessage extracts {"error": "..."} bodies, falling back to raw text
func errorMessage(body []byte) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
		return payload.Error
	}
	return strings.TrimSpace(string(body))
}

// Package apiclient is the JSON-over-HTTP plumbing shared by the model API
// clients that do not have an SDK.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// maxErrorBody bounds how much of a failed response is kept in an APIError.
const maxErrorBody = 2048

// APIError is a non-200 response from a model API.
type APIError struct {
	Provider string
	Status   int
	// Code is the provider's status string, such as RESOURCE_EXHAUSTED.
	Code    string
	Message string
}

func (e *APIError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s API error (status %d", e.Provider, e.Status)
	if e.Code != "" {
		sb.WriteString(", " + e.Code)
	}
	sb.WriteString(")")
	if e.Message != "" {
		sb.WriteString(": " + e.Message)
	}
	return sb.String()
}

// Quota reports whether the call was rejected for quota or rate limits.
func (e *APIError) Quota() bool {
	return e.Status == http.StatusTooManyRequests || e.Code == "RESOURCE_EXHAUSTED"
}

// IsQuota reports whether err wraps an APIError with Quota set.
func IsQuota(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Quota()
}

// Client posts JSON requests for one provider.
type Client struct {
	provider string
	http     *http.Client
}

// New returns a Client whose errors name provider.
func New(provider string, timeout time.Duration) *Client {
	return &Client{provider: provider, http: &http.Client{Timeout: timeout}}
}

// PostJSON sends in as a JSON body to url and decodes a 200 response into
// out. Any other status becomes an *APIError. An error object in a 200
// body is reported the same way.
func (c *Client) PostJSON(ctx context.Context, url string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", c.provider, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create %s request: %w", c.provider, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", c.provider, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s response: %w", c.provider, err)
	}
	if apiErr := c.parseError(resp.StatusCode, data); apiErr != nil {
		return apiErr
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s response: %w", c.provider, err)
	}
	return nil
}

// errorBody covers both {"error": "text"} and {"error": {"code", "message", "status"}}.
type errorBody struct {
	Error json.RawMessage `json:"error"`
}

type errorObject struct {
	Message string `json:"message"`
	Status  string `json:"status"`
}

func (c *Client) parseError(status int, data []byte) *APIError {
	var eb errorBody
	_ = json.Unmarshal(bytes.TrimSpace(data), &eb)
	if string(eb.Error) == "null" {
		eb.Error = nil
	}
	if status == http.StatusOK && len(eb.Error) == 0 {
		return nil
	}

	apiErr := &APIError{Provider: c.provider, Status: status}
	var text string
	var obj errorObject
	switch {
	case json.Unmarshal(eb.Error, &text) == nil:
		apiErr.Message = text
	case json.Unmarshal(eb.Error, &obj) == nil:
		apiErr.Code, apiErr.Message = obj.Status, obj.Message
	default:
		apiErr.Message = strings.TrimSpace(string(data[:min(len(data), maxErrorBody)]))
	}
	return apiErr
}

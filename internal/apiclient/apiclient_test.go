package apiclient

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echo struct {
	Text string `json:"text"`
}

func serve(t *testing.T, status int, body string) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func TestPostJSON(t *testing.T) {
	url := serve(t, http.StatusOK, `{"text":"ok"}`)

	var out echo
	require.NoError(t, New("test", time.Second).PostJSON(context.Background(), url, echo{Text: "hi"}, &out))
	assert.Equal(t, "ok", out.Text)
}

func TestPostJSONErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		code    string
		message string
		quota   bool
	}{
		{"gemini object", http.StatusTooManyRequests, `{"error":{"code":429,"message":"Quota exceeded","status":"RESOURCE_EXHAUSTED"}}`, "RESOURCE_EXHAUSTED", "Quota exceeded", true},
		{"ollama string", http.StatusNotFound, `{"error":"model not found"}`, "", "model not found", false},
		{"plain text", http.StatusBadGateway, "upstream down\n", "", "upstream down", false},
		{"error in 200 body", http.StatusOK, `{"error":{"message":"bad key","status":"PERMISSION_DENIED"}}`, "PERMISSION_DENIED", "bad key", false},
		{"rate limited", http.StatusTooManyRequests, "", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			url := serve(t, tt.status, tt.body)

			var out echo
			err := New("test", time.Second).PostJSON(context.Background(), url, echo{}, &out)
			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, tt.code, apiErr.Code)
			assert.Equal(t, tt.message, apiErr.Message)
			assert.Equal(t, tt.quota, IsQuota(fmt.Errorf("wrapped: %w", err)))
			assert.Contains(t, err.Error(), fmt.Sprintf("status %d", tt.status))
		})
	}
}

func TestPostJSONBadResponse(t *testing.T) {
	url := serve(t, http.StatusOK, `not json`)
	var out echo
	err := New("test", time.Second).PostJSON(context.Background(), url, echo{}, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode test response")
	assert.False(t, IsQuota(err))
}

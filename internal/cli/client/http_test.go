package client

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIClient_Get_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "GET", r.Method)
		assert.Equal(t, "/health", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"status":"ok"}}`))
	}))
	defer server.Close()

	apiClient, err := NewAPIClientWithConfig("test-key", server.URL)
	require.NoError(t, err)

	resp, err := apiClient.Get("/health")
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"ok"}`, string(resp.Data))
}

func TestAPIClient_NoAuthHeaderWithoutKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		w.Write([]byte(`{"data":{}}`))
	}))
	defer server.Close()

	apiClient, err := NewAPIClientWithConfig("", server.URL)
	require.NoError(t, err)

	_, err = apiClient.Get("/health")
	assert.NoError(t, err)
}

func TestAPIClient_Post_SendsJSONBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		buf := make([]byte, r.ContentLength)
		r.Body.Read(buf)
		assert.JSONEq(t, `{"message":"hello","use_domain":true,"domain":"support"}`, string(buf))

		w.Write([]byte(`{"data":{"response":"hi","source":"llm"}}`))
	}))
	defer server.Close()

	apiClient, err := NewAPIClientWithConfig("test-key", server.URL)
	require.NoError(t, err)

	_, err = apiClient.Post("/conversations/c1/chat", ChatRequest{
		Message:   "hello",
		Domain:    "support",
		UseDomain: true,
	})
	assert.NoError(t, err)
}

func TestAPIClient_PostRaw_SetsContentType(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "text/csv", r.Header.Get("Content-Type"))
		w.Write([]byte(`{"data":{"inserted":1,"skipped":0}}`))
	}))
	defer server.Close()

	apiClient, err := NewAPIClientWithConfig("test-key", server.URL)
	require.NoError(t, err)

	_, err = apiClient.PostRaw("/domains/support/import", strings.NewReader("q,a\n"), "text/csv")
	assert.NoError(t, err)
}

func TestAPIClient_ErrorEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"conversation not found"}`))
	}))
	defer server.Close()

	apiClient, err := NewAPIClientWithConfig("test-key", server.URL)
	require.NoError(t, err)

	_, err = apiClient.Get("/conversations/nope/history")
	require.Error(t, err)

	apiErr, ok := err.(*APIError)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "conversation not found", apiErr.Message)
}

func TestAPIClient_NonJSONErrorBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream exploded"))
	}))
	defer server.Close()

	apiClient, err := NewAPIClientWithConfig("test-key", server.URL)
	require.NoError(t, err)

	_, err = apiClient.Get("/health")
	require.Error(t, err)

	apiErr, ok := err.(*APIError)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Equal(t, "upstream exploded", apiErr.Message)
}

package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewHTTPClient(srv.URL, "test-key")
}

func TestCompleteReturnsFirstChoice(t *testing.T) {
	var gotReq chatRequest
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": "hello there"}},
			},
		}
		json.NewEncoder(w).Encode(resp)
	})

	out, err := client.Complete(context.Background(), Request{
		System:      "be brief",
		Prompt:      "hi",
		Model:       "llama-3.1-8b-instant",
		Temperature: 0.7,
		JSONMode:    true,
	})
	require.NoError(t, err)
	assert.Equal(t, "hello there", out)

	require.Len(t, gotReq.Messages, 2)
	assert.Equal(t, "system", gotReq.Messages[0].Role)
	assert.Equal(t, "llama-3.1-8b-instant", gotReq.Model)
	require.NotNil(t, gotReq.ResponseFormat)
	assert.Equal(t, "json_object", gotReq.ResponseFormat.Type)
}

func TestCompleteModelNotFound(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{
				"message": "The model `llama3-8b-8192` has been decommissioned",
				"code":    "model_decommissioned",
			},
		})
	})

	_, err := client.Complete(context.Background(), Request{Prompt: "hi", Model: "llama3-8b-8192"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrModelNotFound))
	assert.False(t, errors.Is(err, ErrUnavailable))
}

func TestCompleteServerErrorIsUnavailable(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.Complete(context.Background(), Request{Prompt: "hi", Model: "m"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnavailable))
}

func TestCompleteUnreachableIsUnavailable(t *testing.T) {
	client := NewHTTPClient("http://127.0.0.1:1", "test-key")
	_, err := client.Complete(context.Background(), Request{Prompt: "hi", Model: "m"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnavailable))
}

func TestCompleteRequiresAPIKey(t *testing.T) {
	client := NewHTTPClient("http://localhost", "")
	_, err := client.Complete(context.Background(), Request{Prompt: "hi", Model: "m"})
	require.Error(t, err)
}

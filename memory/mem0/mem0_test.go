package mem0_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/tailored-agentic-units/therapy/memory"
	"github.com/tailored-agentic-units/therapy/memory/mem0"
)

func TestClient_Search(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/memories/search/", r.URL.Path)
		assert.Equal(t, "Token test-key", r.Header.Get("Authorization"))

		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, "trouble sleeping", gjson.GetBytes(body, "query").String())
		assert.Equal(t, "alice_1a2b3c4d", gjson.GetBytes(body, "user_id").String())
		assert.Equal(t, int64(5), gjson.GetBytes(body, "limit").Int())

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id":"m1","memory":"User has trouble sleeping","user_id":"alice_1a2b3c4d"}]`))
	}))
	defer server.Close()

	client := mem0.New(mem0.WithAPIKey("test-key"), mem0.WithBaseURL(server.URL+"/"))

	raw, err := client.Search(context.Background(), "trouble sleeping", "alice_1a2b3c4d", 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"User has trouble sleeping"}, memory.Normalize(raw))
}

func TestClient_Add(t *testing.T) {
	var received []byte

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/memories/", r.URL.Path)
		received, _ = io.ReadAll(r.Body)
		w.Write([]byte(`{"results":[]}`))
	}))
	defer server.Close()

	client := mem0.New(mem0.WithAPIKey("k"), mem0.WithBaseURL(server.URL), mem0.WithHTTPClient(server.Client()))

	err := client.Add(context.Background(), "User: hi\nTherapist: hello\n", "bob")
	require.NoError(t, err)

	assert.Equal(t, "user", gjson.GetBytes(received, "messages.0.role").String())
	assert.Equal(t, "User: hi\nTherapist: hello\n", gjson.GetBytes(received, "messages.0.content").String())
	assert.Equal(t, "bob", gjson.GetBytes(received, "user_id").String())
}

func TestClient_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail":"Invalid API key"}`))
	}))
	defer server.Close()

	client := mem0.New(mem0.WithBaseURL(server.URL))

	_, err := client.Search(context.Background(), "q", "u", 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid API key")
	assert.Contains(t, err.Error(), "401")
}

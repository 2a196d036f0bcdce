package wire

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

func TestClient_PostJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embed", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"n": 3}`))
	}))
	defer server.Close()

	c := New("test", server.URL+"/", time.Second, http.Header{"Authorization": {"Bearer k"}})
	defer c.Close()

	var out struct {
		N int `json:"n"`
	}
	require.NoError(t, c.PostJSON(context.Background(), "/embed", map[string]string{"a": "b"}, &out))
	assert.Equal(t, 3, out.N)
}

func TestClient_ErrorBodies(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"plain text", "model not found\n", "status 404: model not found"},
		{"string error", `{"error":"model not found"}`, "status 404: model not found"},
		{"nested error", `{"error":{"message":"invalid api key","type":"auth"}}`, "status 404: invalid api key"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusNotFound)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()
			c := New("test", server.URL, time.Second, nil)

			err := c.PostJSON(context.Background(), "/embed", struct{}{}, &struct{}{})

			assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
			assert.Contains(t, err.Error(), tt.want)
			assert.ErrorIs(t, c.Get(context.Background(), "/"), domain.ErrEmbeddingUnavailable)
		})
	}
}

func TestClient_BadJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer server.Close()
	c := New("test", server.URL, time.Second, nil)

	err := c.PostJSON(context.Background(), "/embed", struct{}{}, &struct{}{})

	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	assert.NoError(t, c.Get(context.Background(), "/"))
}

func TestFloat32s(t *testing.T) {
	vec, err := Float32s([]float64{1, 0.5}, 2)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0.5}, vec)

	_, err = Float32s([]float64{1}, 2)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)

	vec, err = Float32s([]float64{1, 2, 3}, 0)
	require.NoError(t, err)
	assert.Len(t, vec, 3)
}

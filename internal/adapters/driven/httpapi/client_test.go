package httpapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

func TestPostJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))
		w.Write([]byte(`{"value":"ok"}`))
	}))
	defer srv.Close()

	var out struct {
		Value string `json:"value"`
	}
	err := PostJSON(context.Background(), srv.Client(), "test", srv.URL,
		map[string]string{"Authorization": "Bearer k"}, map[string]string{"in": "x"}, &out)
	require.NoError(t, err)
	assert.Equal(t, "ok", out.Value)
}

func TestPostJSON_StatusErrors(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		retryAfter  string
		rateLimited bool
	}{
		{"rate limited", http.StatusTooManyRequests, "7", true},
		{"server error", http.StatusInternalServerError, "", false},
		{"unauthorized", http.StatusUnauthorized, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				if tt.retryAfter != "" {
					w.Header().Set("Retry-After", tt.retryAfter)
				}
				w.WriteHeader(tt.status)
				w.Write([]byte("nope"))
			}))
			defer srv.Close()

			var out map[string]any
			err := PostJSON(context.Background(), srv.Client(), "test", srv.URL, nil, struct{}{}, &out)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrProvider)
			assert.Equal(t, tt.rateLimited, errors.Is(err, domain.ErrRateLimited))
			assert.Contains(t, err.Error(), "nope")
			if tt.rateLimited {
				assert.Equal(t, 7*time.Second, RetryAfter(err))
			}
		})
	}
}

func TestPostJSON_BadBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer srv.Close()

	var out map[string]any
	err := PostJSON(context.Background(), srv.Client(), "test", srv.URL, nil, struct{}{}, &out)
	assert.ErrorIs(t, err, domain.ErrProvider)
}

func TestPostJSON_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	var out map[string]any
	err := PostJSON(context.Background(), http.DefaultClient, "test", url, nil, struct{}{}, &out)
	assert.ErrorIs(t, err, domain.ErrProvider)
}

func TestGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/ok" {
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	assert.NoError(t, Get(context.Background(), srv.Client(), "test", srv.URL+"/ok", nil))
	assert.ErrorIs(t, Get(context.Background(), srv.Client(), "test", srv.URL+"/missing", nil), domain.ErrProvider)
}

func TestToFloat32(t *testing.T) {
	assert.Equal(t, []float32{1, 0.5}, ToFloat32([]float64{1, 0.5}))
}

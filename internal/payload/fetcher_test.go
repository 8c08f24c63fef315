package payload

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetch(t *testing.T) {
	const script = `print("loaded")`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v3/files/scripts/esp-main.lua", r.URL.Path)
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte(script))
	}))
	defer server.Close()

	f := NewFetcher(server.URL, "/v3/files/scripts/esp-main.lua")
	body, err := f.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, script, string(body))
}

func TestFetchErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "not found",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
			},
		},
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
		},
		{
			name: "empty body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("   \n"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			f := NewFetcher(server.URL, "/v3/files/scripts/esp-main.lua")
			_, err := f.Fetch(context.Background())
			assert.Error(t, err)
		})
	}
}

func TestFetchTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	f := NewFetcher(server.URL, "/v3/files/scripts/esp-main.lua")
	_, err := f.Fetch(context.Background())
	assert.Error(t, err)
}

func TestURLIsFixed(t *testing.T) {
	f := NewFetcher("https://api.example.com/", "/v3/files/scripts/esp-main.lua")
	assert.Equal(t, "https://api.example.com/v3/files/scripts/esp-main.lua", f.URL())
}

package license

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyKeySuccess(t *testing.T) {
	var gotBody VerifyRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/verify-key", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		json.NewEncoder(w).Encode(VerifyResult{
			Valid:      true,
			ScriptName: "ESP Loader",
			Version:    "3.1",
		})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	result, err := client.VerifyKey(context.Background(), "ABC123", "hw-42")
	require.NoError(t, err)

	assert.Equal(t, "ABC123", gotBody.ScriptKey)
	assert.Equal(t, "hw-42", gotBody.HWID)
	assert.True(t, result.Valid)
	assert.Equal(t, "ESP Loader", result.ScriptName)
	assert.Equal(t, "3.1", result.Version)
}

func TestVerifyKeyBlacklisted(t *testing.T) {
	tests := []struct {
		name       string
		response   string
		wantReason string
	}{
		{
			name:       "with reason",
			response:   `{"valid": false, "blacklisted": true, "reason": "Chargeback"}`,
			wantReason: "Chargeback",
		},
		{
			name:       "reason absent uses default",
			response:   `{"valid": false, "blacklisted": true}`,
			wantReason: DefaultDenyReason,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				// The service reports denials on a 403 with a JSON body.
				w.WriteHeader(http.StatusForbidden)
				w.Write([]byte(tt.response))
			}))
			defer server.Close()

			client := NewClient(server.URL)
			_, err := client.VerifyKey(context.Background(), "ABC123", "hw-42")

			var denied *BlacklistedError
			require.ErrorAs(t, err, &denied)
			assert.Equal(t, tt.wantReason, denied.Reason)
		})
	}
}

func TestVerifyKeyInvalid(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"valid": false}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.VerifyKey(context.Background(), "WRONG", "hw-42")
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestVerifyKeyTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused

	client := NewClient(server.URL)
	_, err := client.VerifyKey(context.Background(), "ABC123", "hw-42")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidKey)
}

func TestVerifyKeyUndecodableBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>gateway error</html>"))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.VerifyKey(context.Background(), "ABC123", "hw-42")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode")
}

func TestVerifyKeyEmptyBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.VerifyKey(context.Background(), "ABC123", "hw-42")
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestVerifyKeyContextTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(`{"valid": true}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := client.VerifyKey(ctx, "ABC123", "hw-42")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestRegisterHWID(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		var gotBody RegisterRequest
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/register-hwid", r.URL.Path)
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
			w.Write([]byte(`{"success": true, "hwid_registered": true}`))
		}))
		defer server.Close()

		client := NewClient(server.URL)
		err := client.RegisterHWID(context.Background(), "hw-42", "ABC123")
		require.NoError(t, err)
		assert.Equal(t, "hw-42", gotBody.HWID)
		assert.Equal(t, "ABC123", gotBody.ScriptKey)
	})

	t.Run("transport failure surfaces as error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		server.Close()

		client := NewClient(server.URL)
		err := client.RegisterHWID(context.Background(), "hw-42", "ABC123")
		assert.Error(t, err)
	})
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr bool
	}{
		{"healthy", http.StatusOK, false},
		{"server error", http.StatusInternalServerError, true},
		{"not found", http.StatusNotFound, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/health", r.URL.Path)
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			client := NewClient(server.URL)
			err := client.Health(context.Background())
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewClientTrimsTrailingSlash(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(server.URL + "/")
	assert.NoError(t, client.Health(context.Background()))
}

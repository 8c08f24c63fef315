package license

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestNewMetrics(t *testing.T) {
	provider := sdkmetric.NewMeterProvider()
	defer provider.Shutdown(context.Background())

	m, err := NewMetrics(provider.Meter(TracerName))
	require.NoError(t, err)
	assert.NotNil(t, m.VerifyAttempts)
	assert.NotNil(t, m.VerifyDenied)
	assert.NotNil(t, m.VerifyFailures)
	assert.NotNil(t, m.VerifyDuration)
	assert.NotNil(t, m.RegisterAttempts)
	assert.NotNil(t, m.RegisterFailures)
}

func TestClientRecordsVerifyMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer provider.Shutdown(context.Background())

	m, err := NewMetrics(provider.Meter(TracerName))
	require.NoError(t, err)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"valid": false}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, WithMetrics(m))
	_, verifyErr := client.VerifyKey(context.Background(), "WRONG-KEY", "hw-42")
	require.ErrorIs(t, verifyErr, ErrInvalidKey)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	found := map[string]bool{}
	for _, scope := range rm.ScopeMetrics {
		for _, metric := range scope.Metrics {
			found[metric.Name] = true
		}
	}
	assert.True(t, found["license.verify.attempts"])
	assert.True(t, found["license.verify.denied"])
}

package security

import (
	"net"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateFingerprint(t *testing.T) {
	fm := NewFingerprintManager()

	fp, err := fm.GenerateFingerprint()
	require.NoError(t, err)
	require.NotNil(t, fp)

	// 32-byte SHA-256, hex encoded.
	assert.Len(t, fp.Fingerprint, 64)
	assert.Equal(t, runtime.GOOS, fp.OS)
	assert.Equal(t, runtime.GOARCH, fp.Platform)
	assert.False(t, fp.GeneratedAt.IsZero())
}

func TestGenerateFingerprintIsStable(t *testing.T) {
	fm := NewFingerprintManager()

	first, err := fm.GenerateFingerprint()
	require.NoError(t, err)

	second, err := fm.GenerateFingerprint()
	require.NoError(t, err)

	assert.Equal(t, first.Fingerprint, second.Fingerprint)
}

func TestGenerateFingerprintCacheReturnsCopy(t *testing.T) {
	fm := NewFingerprintManager()

	first, err := fm.GenerateFingerprint()
	require.NoError(t, err)

	// Mutating the returned value must not poison the cache.
	first.Fingerprint = "tampered"

	second, err := fm.GenerateFingerprint()
	require.NoError(t, err)
	assert.NotEqual(t, "tampered", second.Fingerprint)
}

func TestClearCacheForcesRegeneration(t *testing.T) {
	fm := NewFingerprintManager()

	first, err := fm.GenerateFingerprint()
	require.NoError(t, err)

	fm.ClearCache()

	second, err := fm.GenerateFingerprint()
	require.NoError(t, err)

	// Same machine, so the value is identical, but GeneratedAt moves.
	assert.Equal(t, first.Fingerprint, second.Fingerprint)
	assert.True(t, second.GeneratedAt.After(first.GeneratedAt) || second.GeneratedAt.Equal(first.GeneratedAt))
}

func TestGetHostname(t *testing.T) {
	fm := NewFingerprintManager()

	hostname, err := fm.GetHostname()
	require.NoError(t, err)
	assert.NotEmpty(t, hostname)
	assert.Equal(t, strings.ToLower(strings.TrimSpace(hostname)), hostname)
}

func TestGetCPUID(t *testing.T) {
	fm := NewFingerprintManager()

	cpuID, err := fm.GetCPUID()
	require.NoError(t, err)
	assert.NotEmpty(t, cpuID)

	// Hashed components are 8 bytes hex encoded.
	assert.Len(t, cpuID, 16)
}

func TestPickMAC(t *testing.T) {
	hw := net.HardwareAddr{0xde, 0xad, 0xbe, 0xef, 0x00, 0x01}

	tests := []struct {
		name       string
		interfaces []net.Interface
		strict     bool
		want       string
	}{
		{
			name:   "empty list",
			strict: true,
			want:   "",
		},
		{
			name: "loopback skipped in strict mode",
			interfaces: []net.Interface{
				{Flags: net.FlagLoopback | net.FlagUp, HardwareAddr: hw},
			},
			strict: true,
			want:   "",
		},
		{
			name: "loopback accepted in fallback mode",
			interfaces: []net.Interface{
				{Flags: net.FlagLoopback | net.FlagUp, HardwareAddr: hw},
			},
			strict: false,
			want:   hw.String(),
		},
		{
			name: "up interface wins",
			interfaces: []net.Interface{
				{Flags: net.FlagUp, HardwareAddr: hw},
			},
			strict: true,
			want:   hw.String(),
		},
		{
			name: "zero MAC rejected",
			interfaces: []net.Interface{
				{Flags: net.FlagUp, HardwareAddr: net.HardwareAddr{0, 0, 0, 0, 0, 0}},
			},
			strict: false,
			want:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, pickMAC(tt.interfaces, tt.strict))
		})
	}
}

func TestHashComponentDeterministic(t *testing.T) {
	a := hashComponent("model name : some cpu")
	b := hashComponent("model name : some cpu")
	c := hashComponent("model name : other cpu")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 16)
}

func TestGetFingerprintComponents(t *testing.T) {
	fm := NewFingerprintManager()

	components := fm.GetFingerprintComponents()
	assert.Contains(t, components, "mac_address")
	assert.Contains(t, components, "hostname")
	assert.Contains(t, components, "cpu_id")
	assert.Equal(t, runtime.GOOS, components["os"])
	assert.Equal(t, runtime.GOARCH, components["platform"])
}

func TestCacheExpiry(t *testing.T) {
	fm := NewFingerprintManager()
	fm.cacheDuration = 10 * time.Millisecond

	_, err := fm.GenerateFingerprint()
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)

	fp, err := fm.GenerateFingerprint()
	require.NoError(t, err)
	assert.NotNil(t, fp)
}

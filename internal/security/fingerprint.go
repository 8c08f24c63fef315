// Package security provides hardware fingerprinting for the loader.
//
// The fingerprint is the loader's hardware identifier: a SHA-256 over
// stable per-machine factors (primary MAC, hostname, CPU identity, OS and
// architecture). It binds a license key to one installation and is never
// persisted beyond the process lifetime.
package security

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"
)

// Fallback component values used when a hardware factor is unreadable.
const (
	fallbackMAC  = "unknown-mac"
	fallbackHost = "unknown-host"
	fallbackCPU  = "unknown-cpu"
)

// DeviceFingerprint represents device identification information.
// Fingerprint is the value sent to the licensing service as the hwid.
type DeviceFingerprint struct {
	Fingerprint string    `json:"fingerprint"`
	Hostname    string    `json:"hostname"`
	MACAddress  string    `json:"mac_address"`
	CPUID       string    `json:"cpu_id"`
	OS          string    `json:"os"`
	Platform    string    `json:"platform"`
	GeneratedAt time.Time `json:"generated_at"`
}

// FingerprintManager handles device fingerprinting operations.
type FingerprintManager struct {
	cache         *DeviceFingerprint
	cacheMutex    sync.RWMutex
	cacheExpiry   time.Time
	cacheDuration time.Duration
}

// NewFingerprintManager creates a new fingerprint manager. The result is
// cached in memory for an hour; the loader run is far shorter, so a run
// always sees a single stable identifier.
func NewFingerprintManager() *FingerprintManager {
	return &FingerprintManager{
		cacheDuration: 1 * time.Hour,
	}
}

// GetMACAddress retrieves the primary network interface MAC address.
// Prefers an up, non-loopback interface; falls back to any interface
// carrying a hardware address.
func (fm *FingerprintManager) GetMACAddress() (string, error) {
	interfaces, err := net.Interfaces()
	if err != nil {
		return "", fmt.Errorf("failed to get network interfaces: %w", err)
	}

	if mac := pickMAC(interfaces, true); mac != "" {
		return mac, nil
	}
	if mac := pickMAC(interfaces, false); mac != "" {
		slog.Warn("using fallback network interface for MAC address")
		return mac, nil
	}

	return "", fmt.Errorf("no valid MAC address found")
}

// pickMAC scans interfaces for a usable hardware address. When strict is
// set, only up, non-loopback interfaces qualify.
func pickMAC(interfaces []net.Interface, strict bool) string {
	for _, iface := range interfaces {
		if strict && (iface.Flags&net.FlagLoopback != 0 || iface.Flags&net.FlagUp == 0) {
			continue
		}
		mac := iface.HardwareAddr.String()
		if mac != "" && mac != "00:00:00:00:00:00" {
			return mac
		}
	}
	return ""
}

// GetHostname retrieves the normalized machine hostname.
func (fm *FingerprintManager) GetHostname() (string, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return "", fmt.Errorf("failed to get hostname: %w", err)
	}

	hostname = strings.ToLower(strings.TrimSpace(hostname))
	if hostname == "" {
		return "", fmt.Errorf("hostname is empty")
	}
	return hostname, nil
}

// GetCPUID retrieves CPU identification information (OS-specific).
func (fm *FingerprintManager) GetCPUID() (string, error) {
	switch runtime.GOOS {
	case "windows":
		return fm.getCPUIDWindows(), nil
	case "linux":
		return fm.getCPUIDLinux(), nil
	case "darwin":
		return fm.getCPUIDDarwin(), nil
	default:
		return hashComponent(fmt.Sprintf("%s-%s", runtime.GOOS, runtime.GOARCH)), nil
	}
}

func (fm *FingerprintManager) getCPUIDWindows() string {
	if procID := os.Getenv("PROCESSOR_IDENTIFIER"); procID != "" {
		return hashComponent(procID)
	}
	return hashComponent(fmt.Sprintf("windows-%s-%s", runtime.GOARCH, os.Getenv("PROCESSOR_ARCHITECTURE")))
}

func (fm *FingerprintManager) getCPUIDLinux() string {
	if data, err := os.ReadFile("/proc/cpuinfo"); err == nil {
		for _, line := range strings.Split(string(data), "\n") {
			if strings.HasPrefix(line, "model name") || strings.HasPrefix(line, "cpu family") {
				return hashComponent(line)
			}
		}
	}
	return hashComponent(fmt.Sprintf("linux-%s", runtime.GOARCH))
}

func (fm *FingerprintManager) getCPUIDDarwin() string {
	info := fmt.Sprintf("darwin-%s", runtime.GOARCH)
	if hostType := os.Getenv("HOSTTYPE"); hostType != "" {
		info = fmt.Sprintf("%s-%s", info, hostType)
	}
	return hashComponent(info)
}

// hashComponent normalizes a raw component string to a short hex ID.
func hashComponent(raw string) string {
	hash := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(hash[:8])
}

// GenerateFingerprint creates a device fingerprint by combining hardware
// factors. Individual factors fall back to placeholders, but when no real
// hardware factor is available at all the binding would be meaningless, so
// an error is returned instead.
func (fm *FingerprintManager) GenerateFingerprint() (*DeviceFingerprint, error) {
	fm.cacheMutex.RLock()
	if fm.cache != nil && time.Now().Before(fm.cacheExpiry) {
		cached := *fm.cache
		fm.cacheMutex.RUnlock()
		return &cached, nil
	}
	fm.cacheMutex.RUnlock()

	start := time.Now()

	macAddr, err := fm.GetMACAddress()
	if err != nil {
		macAddr = fallbackMAC
		slog.Warn("failed to get MAC address, using fallback", slog.String("error", err.Error()))
	}

	hostname, err := fm.GetHostname()
	if err != nil {
		hostname = fallbackHost
		slog.Warn("failed to get hostname, using fallback", slog.String("error", err.Error()))
	}

	cpuID, err := fm.GetCPUID()
	if err != nil {
		cpuID = fallbackCPU
		slog.Warn("failed to get CPU ID, using fallback", slog.String("error", err.Error()))
	}

	if macAddr == fallbackMAC && hostname == fallbackHost && cpuID == fallbackCPU {
		return nil, fmt.Errorf("no hardware factor available for fingerprinting")
	}

	combined := strings.Join([]string{
		macAddr,
		hostname,
		cpuID,
		runtime.GOOS,
		runtime.GOARCH,
	}, "|")
	hash := sha256.Sum256([]byte(combined))

	fingerprint := &DeviceFingerprint{
		Fingerprint: hex.EncodeToString(hash[:]),
		Hostname:    hostname,
		MACAddress:  macAddr,
		CPUID:       cpuID,
		OS:          runtime.GOOS,
		Platform:    runtime.GOARCH,
		GeneratedAt: time.Now(),
	}

	fm.cacheMutex.Lock()
	fm.cache = fingerprint
	fm.cacheExpiry = time.Now().Add(fm.cacheDuration)
	fm.cacheMutex.Unlock()

	slog.Debug("device fingerprint generated",
		slog.String("hostname", hostname),
		slog.String("os", runtime.GOOS),
		slog.String("platform", runtime.GOARCH),
		slog.Duration("generation_time", time.Since(start)),
	)

	return fingerprint, nil
}

// GetFingerprintComponents returns individual components for debugging.
func (fm *FingerprintManager) GetFingerprintComponents() map[string]string {
	macAddr, _ := fm.GetMACAddress()
	hostname, _ := fm.GetHostname()
	cpuID, _ := fm.GetCPUID()

	return map[string]string{
		"mac_address": macAddr,
		"hostname":    hostname,
		"cpu_id":      cpuID,
		"os":          runtime.GOOS,
		"platform":    runtime.GOARCH,
	}
}

// ClearCache clears the cached fingerprint.
func (fm *FingerprintManager) ClearCache() {
	fm.cacheMutex.Lock()
	defer fm.cacheMutex.Unlock()

	fm.cache = nil
	fm.cacheExpiry = time.Time{}
}

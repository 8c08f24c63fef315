package license

// MaskKey masks a script key for logging, keeping the first 8 characters.
// Keys too short to mask meaningfully are fully redacted.
func MaskKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:8] + "****"
}

// MaskHWID shortens a hardware id for logging, keeping the first 16
// characters. The full value only ever travels in request bodies.
func MaskHWID(hwid string) string {
	if len(hwid) <= 16 {
		return hwid
	}
	return hwid[:16] + "..."
}

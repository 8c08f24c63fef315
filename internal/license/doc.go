// Package license implements the HTTP client for the licensing service.
//
// The service exposes three endpoints the loader cares about:
//
//	POST /verify-key     validate a script key against a hardware id
//	POST /register-hwid  record the hardware id for a verified key (best effort)
//	GET  /health         service liveness, used as an optional startup probe
//
// Verification outcomes map to typed errors: a *BlacklistedError is the
// permanent-deny state for the hardware id, ErrInvalidKey means the key
// itself was rejected, and anything else is a transport or protocol
// failure. The service reports denials with a JSON body on a 403, so the
// client decodes response bodies regardless of HTTP status.
package license

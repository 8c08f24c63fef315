// Package app wires the loader's dependencies and drives the gated load
// sequence: configuration, hardware fingerprint, remote key verification,
// best-effort hardware registration, then payload fetch and execution.
//
// The sequence is strictly linear. The payload is unreachable unless the
// verification service answered valid and not blacklisted in this run;
// there is no cached or persisted verification state between runs.
package app

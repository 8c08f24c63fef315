package license

import (
	"errors"
	"fmt"
)

// DefaultDenyReason is reported when the service blacklists a hardware id
// without giving a reason.
const DefaultDenyReason = "Banned"

// ErrInvalidKey means the verification service rejected the script key.
var ErrInvalidKey = errors.New("invalid script key")

// ErrEmptyResponse means the verification service returned no usable body.
var ErrEmptyResponse = errors.New("empty response from verification service")

// BlacklistedError is the permanent-deny outcome for a hardware id. It is
// independent of key validity; Reason is the server-supplied explanation.
type BlacklistedError struct {
	Reason string
}

// Error implements the error interface.
func (e *BlacklistedError) Error() string {
	return fmt.Sprintf("hardware id blacklisted: %s", e.Reason)
}

package domain

import "errors"

// Error taxonomy shared by every layer. Wrap with fmt.Errorf("...: %w", Err...)
// and test with errors.Is.
var (
	// ErrFormat marks a malformed or truncated message. Answered with FORMERR.
	ErrFormat = errors.New("malformed dns message")
	// ErrNotFound marks a name with no matching zone, record or upstream answer.
	ErrNotFound = errors.New("not found")
	// ErrResolution marks an upstream transport failure or timeout.
	ErrResolution = errors.New("upstream resolution failed")
	// ErrConfig marks an unreadable or invalid zone source. Fatal at startup.
	ErrConfig = errors.New("invalid configuration")
	// ErrValue marks an address that is not exactly four dot-separated octets.
	ErrValue = errors.New("invalid address value")
)

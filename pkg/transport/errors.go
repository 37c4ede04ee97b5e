package transport

import "errors"

// Error taxonomy for the protocol core. Fatal errors are returned up to the
// caller (cmd/ binaries turn them into a non-zero exit); the rest are
// logged and absorbed by the event loop, per spec.md §7.
var (
	// ErrFileNotFound is returned by ReceiverState.Serve when the sender
	// answers the file request with the raw segment.NotFoundMarker payload
	// instead of data segments. The sender itself never returns it: it only
	// sends the marker.
	ErrFileNotFound = errors.New("saferudp/transport: file not found")

	// ErrMalformedSegment marks a segment discarded by the codec or by a
	// consistency check the codec itself can't express (e.g. a non-ACK
	// control segment where one is required). No ACK is emitted in response.
	ErrMalformedSegment = errors.New("saferudp/transport: malformed segment")

	// ErrAllocationFailed signals a fatal resource-allocation failure (e.g.
	// the receive buffer pool could not be sized). Always fatal.
	ErrAllocationFailed = errors.New("saferudp/transport: allocation failed")
)

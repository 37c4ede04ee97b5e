package transport

import (
	"errors"
	"time"
)

// Addr identifies a datagram peer. net.Addr satisfies this trivially; tests
// use lightweight fakes instead of binding real sockets.
type Addr interface {
	String() string
}

// ErrChannelTimeout is returned by Channel.Receive when no datagram arrived
// within the requested budget. It is the Go-idiomatic stand-in for the
// source's "select() returned zero" readiness case: callers distinguish it
// from a real error with errors.Is, and from a successful receive by the
// returned error being non-nil.
var ErrChannelTimeout = errors.New("saferudp/transport: channel receive timed out")

// Channel is the unreliable bidirectional datagram transport the protocol
// core is built on top of. In production it is implemented by
// internal/udpchan as a thin, identity adapter over net.UDPConn. The core
// never depends on the concrete type, only on this interface, so it can run
// against internal/udpchan.Simulated or an in-memory fake under test.
type Channel interface {
	// Send transmits buf to addr. Send is fire-and-forget: a returned error
	// means the local stack rejected the write, not that the peer failed to
	// receive it.
	Send(addr Addr, buf []byte) error

	// Receive blocks for up to timeout waiting for one datagram. It returns
	// the payload and sender address on success. On timeout it returns
	// ErrChannelTimeout. Any other error is a local I/O failure; the source's
	// "negative=error" case is folded into this same return so callers have
	// one error check instead of a three-way readiness code.
	Receive(timeout time.Duration) (buf []byte, from Addr, err error)
}

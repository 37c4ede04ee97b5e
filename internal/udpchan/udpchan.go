// Package udpchan implements pkg/transport.Channel over a real net.UDPConn,
// plus a Simulated decorator that applies the receiver-side drop/delay
// policy of spec.md §4.8. The background reader goroutine feeding datagrams
// to Receive is the one sanctioned concession to the otherwise
// single-threaded sender/receiver loops, the same shape as the teacher's
// virtual.Bus.handleReception goroutine in pkg/can/virtual/virtual.go.
package udpchan

import (
	"math/rand"
	"net"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/anvilio/saferudp/pkg/segment"
	"github.com/anvilio/saferudp/pkg/transport"
)

const readBufferDepth = 256

type datagram struct {
	buf  []byte
	from *net.UDPAddr
}

// Conn is the production transport.Channel, a thin identity adapter over
// net.UDPConn: see spec.md §9 ("in production the adapter is identity").
type Conn struct {
	conn     *net.UDPConn
	incoming chan datagram
}

// New wraps an already-bound *net.UDPConn and starts the background reader.
func New(conn *net.UDPConn) *Conn {
	tuneSocketBuffers(conn)
	c := &Conn{
		conn:     conn,
		incoming: make(chan datagram, readBufferDepth),
	}
	go c.readLoop()
	return c
}

// tuneSocketBuffers sizes the kernel socket buffers generously before the
// reliable transport core starts pumping segments, the UDP analogue of the
// teacher's raw CAN socket-option tuning in bus_manager.go.
func tuneSocketBuffers(conn *net.UDPConn) {
	raw, err := conn.SyscallConn()
	if err != nil {
		return
	}
	const bufSize = 1 << 20
	_ = raw.Control(func(fd uintptr) {
		_ = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_RCVBUF, bufSize)
		_ = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_SNDBUF, bufSize)
	})
}

func (c *Conn) readLoop() {
	buf := make([]byte, segment.MaxPacket)
	for {
		n, from, err := c.conn.ReadFromUDP(buf)
		if err != nil {
			log.Debugf("[CHANNEL] read loop exiting : %v", err)
			return
		}
		cp := make([]byte, n)
		copy(cp, buf[:n])
		c.incoming <- datagram{buf: cp, from: from}
	}
}

// Send implements transport.Channel.
func (c *Conn) Send(addr transport.Addr, buf []byte) error {
	udpAddr, ok := addr.(*net.UDPAddr)
	if !ok {
		var err error
		udpAddr, err = net.ResolveUDPAddr("udp", addr.String())
		if err != nil {
			return err
		}
	}
	_, err := c.conn.WriteToUDP(buf, udpAddr)
	return err
}

// Receive implements transport.Channel.
func (c *Conn) Receive(timeout time.Duration) ([]byte, transport.Addr, error) {
	select {
	case dg := <-c.incoming:
		return dg.buf, dg.from, nil
	case <-time.After(timeout):
		return nil, nil, transport.ErrChannelTimeout
	}
}

// Close releases the underlying socket.
func (c *Conn) Close() error {
	return c.conn.Close()
}

// Mode selects which simulated fault(s) Simulated applies, per spec.md §4.8.
type Mode uint8

const (
	ModeNone Mode = iota
	ModeDrop
	ModeDelay
	ModeDropAndDelay
)

func (m Mode) dropsEnabled() bool  { return m == ModeDrop || m == ModeDropAndDelay }
func (m Mode) delaysEnabled() bool { return m == ModeDelay || m == ModeDropAndDelay }

// Simulated wraps a transport.Channel and applies the receiver-side fault
// injection policy of spec.md §4.8: independently-sampled drop and delay,
// each at ProbPercent. Grounded on the teacher's pkg/can/virtual.Bus, which
// likewise decorates an underlying transport (there, a TCP broker
// connection instead of a real datagram socket).
type Simulated struct {
	inner       transport.Channel
	mode        Mode
	probPercent int
}

// NewSimulated wraps inner with the given fault-injection policy.
func NewSimulated(inner transport.Channel, mode Mode, probPercent int) *Simulated {
	return &Simulated{inner: inner, mode: mode, probPercent: probPercent}
}

// Send passes through unmodified: spec.md §4.8 applies the policy only on
// the receive path.
func (s *Simulated) Send(addr transport.Addr, buf []byte) error {
	return s.inner.Send(addr, buf)
}

// Receive applies drop/delay to each datagram before returning it.
func (s *Simulated) Receive(timeout time.Duration) ([]byte, transport.Addr, error) {
	for {
		buf, from, err := s.inner.Receive(timeout)
		if err != nil {
			return buf, from, err
		}
		if s.mode.dropsEnabled() && rand.Intn(100) < s.probPercent {
			log.Debugf("[CHANNEL][SIM] simulated drop")
			continue
		}
		if s.mode.delaysEnabled() && rand.Intn(100) < s.probPercent {
			sleep := time.Duration(rand.Intn(10)*1000) * time.Microsecond
			log.Debugf("[CHANNEL][SIM] simulated delay sleep_us=%d", sleep.Microseconds())
			time.Sleep(sleep)
		}
		return buf, from, nil
	}
}

package transport

import (
	"sync"
	"time"
)

// fakeAddr is a trivial Addr for tests that never bind real sockets.
type fakeAddr string

func (a fakeAddr) String() string { return string(a) }

// memFile is an in-memory FileSource.
type memFile struct {
	data []byte
}

func (f *memFile) Length() int64 { return int64(len(f.data)) }

func (f *memFile) ReadRange(offset int64, length int) ([]byte, error) {
	end := offset + int64(length)
	if end > int64(len(f.data)) {
		end = int64(len(f.data))
	}
	if offset > end {
		offset = end
	}
	out := make([]byte, end-offset)
	copy(out, f.data[offset:end])
	return out, nil
}

// memAppender is an in-memory Appender collecting drained bytes in order.
type memAppender struct {
	buf []byte
}

func (a *memAppender) Append(data []byte) error {
	a.buf = append(a.buf, data...)
	return nil
}

// fakeChannel is one end of an in-memory duplex pair: Send delivers to the
// peer end's inbound queue, Receive drains this end's own. See
// newFakeChannelPair.
type fakeChannel struct {
	mu      sync.Mutex
	inbound chan []byte
	peer    *fakeChannel
	sent    [][]byte
	drop    func([]byte) bool
}

// newFakeChannelPair returns two linked endpoints simulating a lossless
// loopback link between a sender and a receiver.
func newFakeChannelPair() (a, b *fakeChannel) {
	a = &fakeChannel{inbound: make(chan []byte, 1024)}
	b = &fakeChannel{inbound: make(chan []byte, 1024)}
	a.peer, b.peer = b, a
	return a, b
}

// newFakeChannel returns a single endpoint linked to itself for tests that
// only exercise one side directly: Send records each datagram and loops it
// back into the endpoint's own inbound queue.
func newFakeChannel() *fakeChannel {
	c := &fakeChannel{inbound: make(chan []byte, 1024)}
	c.peer = c
	return c
}

func (c *fakeChannel) Send(addr Addr, buf []byte) error {
	cp := make([]byte, len(buf))
	copy(cp, buf)
	c.mu.Lock()
	c.sent = append(c.sent, cp)
	drop := c.drop
	c.mu.Unlock()
	if drop != nil && drop(cp) {
		return nil
	}
	c.peer.inbound <- cp
	return nil
}

func (c *fakeChannel) Receive(timeout time.Duration) ([]byte, Addr, error) {
	select {
	case buf := <-c.inbound:
		return buf, fakeAddr("peer"), nil
	case <-time.After(timeout):
		return nil, nil, ErrChannelTimeout
	}
}

func (c *fakeChannel) Sent() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]byte, len(c.sent))
	copy(out, c.sent)
	return out
}

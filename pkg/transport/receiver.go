package transport

import (
	"bytes"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/anvilio/saferudp/pkg/segment"
)

// DefaultReceiveWindow is used when a non-positive rwnd is supplied to
// NewReceiverState.
const DefaultReceiveWindow = 100

// receiveWait is how long the receiver blocks waiting for the next
// datagram. Unlike the sender, the receiver has no RTO-driven retransmit
// logic of its own: it relies entirely on the sender's timeout/retransmit
// to recover from loss, so it simply waits, re-checking Done() on each
// wakeup.
const receiveWait = 30 * time.Second

// Appender is the receiver-side file collaborator: each call appends the
// next in-order chunk to the output file. Production code is backed by
// internal/fileio.
type Appender interface {
	Append(data []byte) error
}

// receiveSlot is one position in the receiver's sparse reassembly window.
// A zero-value receiveSlot is "empty" (Occupied == false), the Go analogue
// of the source's seq_number_ == -1 sentinel.
type receiveSlot struct {
	Occupied bool
	Seq      uint32
	Length   int
	Data     []byte
}

// ReceiverState is the receiver-side reassembly state machine of spec.md §3
// and §4.6.
type ReceiverState struct {
	InitialSeq        uint32
	initialSeqSet     bool
	LastInOrderIndex  int
	LastReceivedIndex int
	Rwnd              int
	FinReceived       bool

	slots []receiveSlot
}

// NewReceiverState creates receiver state advertising the given window.
func NewReceiverState(rwnd int) *ReceiverState {
	if rwnd <= 0 {
		rwnd = DefaultReceiveWindow
	}
	return &ReceiverState{
		LastInOrderIndex:  -1,
		LastReceivedIndex: -1,
		Rwnd:              rwnd,
	}
}

// Done reports whether reassembly is complete: FIN has been observed and
// every slot up to the highest received index has been drained in order.
func (r *ReceiverState) Done() bool {
	return r.FinReceived && r.LastInOrderIndex == r.LastReceivedIndex
}

func (r *ReceiverState) ensureSlot(index int) {
	for len(r.slots) <= index {
		r.slots = append(r.slots, receiveSlot{})
	}
}

func (r *ReceiverState) nextExpected() uint32 {
	if r.LastInOrderIndex == -1 {
		return r.InitialSeq
	}
	last := r.slots[r.LastInOrderIndex]
	return last.Seq + uint32(last.Length)
}

// ackResult is what ProcessSegment decides should happen on the wire after
// one inbound segment: send an ACK for Ack (if Send), or nothing.
type ackResult struct {
	Send bool
	Ack  uint32
}

// ProcessSegment implements spec.md §4.6 steps 3-12 for one already-decoded,
// already-policy-filtered (see Simulated in §4.8) data segment. The caller
// is responsible for step 1 (the "FILE NOT FOUND" marker) and step 2 (the
// simulated drop/delay policy, applied by the Channel itself).
func (r *ReceiverState) ProcessSegment(seg segment.Segment, out Appender) (ackResult, error) {
	if !r.initialSeqSet {
		r.InitialSeq = seg.Seq
		r.initialSeqSet = true
	}

	next := r.nextExpected()

	if seg.Seq < next && !seg.FinFlag {
		return ackResult{Send: true, Ack: next}, nil
	}

	gap := int64(seg.Seq-next) / int64(segment.MaxData)
	target := r.LastInOrderIndex + int(gap) + 1

	if target-r.LastInOrderIndex > r.Rwnd {
		log.Debugf("[RECEIVER][RX] segment dropped, target=%d exceeds receive window", target)
		return ackResult{}, nil
	}

	if seg.FinFlag {
		r.FinReceived = true
	}

	r.ensureSlot(target)
	r.slots[target] = receiveSlot{Occupied: true, Seq: seg.Seq, Length: len(seg.Data), Data: seg.Data}
	if target > r.LastReceivedIndex {
		r.LastReceivedIndex = target
	}

	for i := r.LastInOrderIndex + 1; i < len(r.slots) && r.slots[i].Occupied; i++ {
		if err := out.Append(r.slots[i].Data); err != nil {
			return ackResult{}, err
		}
		r.LastInOrderIndex = i
	}

	// The cumulative ack for whatever is now in order is sent unconditionally,
	// even on the call that also completes reassembly: the sender's
	// termination (§4.2) requires seeing an ACK that covers its last sent,
	// FIN-flagged slot, so the final segment's ack cannot be skipped the way
	// SendFileRequest's "break" in udp_client.cpp skips it. Serve's own
	// Done() check (not this return value) is what stops the receive loop.
	last := r.slots[r.LastInOrderIndex]
	return ackResult{Send: true, Ack: last.Seq + uint32(last.Length)}, nil
}

// BuildAck constructs the cumulative-ACK segment of spec.md §4.7.
func BuildAck(ack uint32) segment.Segment {
	return segment.Segment{Seq: 0, Ack: ack, AckFlag: true, FinFlag: false}
}

// Serve runs the receiver event loop: request the named file, then process
// inbound segments until reassembly is complete (spec.md §4.6).
func (r *ReceiverState) Serve(ch Channel, peer Addr, fileName string, out Appender) error {
	if err := ch.Send(peer, []byte(fileName)); err != nil {
		return err
	}

	for !r.Done() {
		buf, _, err := ch.Receive(receiveWait)
		if err != nil {
			if err == ErrChannelTimeout {
				continue
			}
			return err
		}
		if bytes.HasPrefix(buf, []byte(segment.NotFoundMarker)) {
			log.Errorf("[RECEIVER][RX] file not found : %s", fileName)
			return ErrFileNotFound
		}

		seg, decErr := segment.Decode(buf, len(buf))
		if decErr != nil {
			log.Debugf("[RECEIVER][RX] malformed segment discarded : %v", decErr)
			continue
		}

		result, err := r.ProcessSegment(seg, out)
		if err != nil {
			return err
		}
		if result.Send {
			if err := ch.Send(peer, segment.Encode(BuildAck(result.Ack))); err != nil {
				log.Warnf("[RECEIVER][TX] ack send failed : %v", err)
			}
		}
	}
	return nil
}

package transport

import (
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/anvilio/saferudp/pkg/segment"
)

// DefaultWindow is the sender-side window bound used in the
// min(rwnd, cwnd) fill-window computation of spec.md §4.2. Per spec.md §6,
// the receive-window hint on the sender's CLI is parsed and logged for
// symmetry with the receiver's CLI but does not feed this value — the
// sender's own state has no rwnd field (spec.md §3 SenderState omits it).
const DefaultWindow = 64

// FileSource is the byte-addressable random-access file collaborator the
// sender reads from. It is an external interface per spec.md §1; production
// code is backed by internal/fileio.
type FileSource interface {
	Length() int64
	ReadRange(offset int64, length int) ([]byte, error)
}

// SendSlot is one transmitted-but-not-yet-fully-acknowledged segment,
// appended in send order. See spec.md §3.
type SendSlot struct {
	FirstByte  int64
	DataLength int
	SeqNum     uint32
	TimeSent   time.Time
}

// End returns the slot's cumulative end offset in sequence-number space
// (seq_num + data_length), the quantity ACK advancement compares against.
func (s SendSlot) End() uint32 {
	return s.SeqNum + uint32(s.DataLength)
}

// SenderState is the sender-side congestion/flow-control state machine of
// spec.md §3-§4.
type SenderState struct {
	InitialSeq uint32
	StartByte  int64
	FileLength int64

	Cwnd     int
	Ssthresh int
	Phase    Phase

	SendBase       uint32
	LastSentIndex  int
	LastAckedIndex int
	DupAckCount    int

	RTT   RTTEstimator
	Stats Stats

	Window int // the fill-window bound; see DefaultWindow.

	slots    []SendSlot
	finFlags []bool // finFlags[i] reports whether slots[i] carried FIN.
}

// NewSenderState creates sender state for a session starting at a random
// initial sequence number, matching spec.md §3 ("random at session start;
// fixed thereafter").
func NewSenderState(initialSeq uint32, fileLength int64, window int) *SenderState {
	if window <= 0 {
		window = DefaultWindow
	}
	return &SenderState{
		InitialSeq:     initialSeq,
		StartByte:      0,
		FileLength:     fileLength,
		Cwnd:           1,
		Ssthresh:       128,
		Phase:          SlowStart,
		SendBase:       initialSeq,
		LastSentIndex:  -1,
		LastAckedIndex: -1,
		RTT:            NewRTTEstimator(),
		Window:         window,
	}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// outstanding returns last_sent_index - last_acked_index, the number of
// in-flight segments.
func (s *SenderState) outstanding() int {
	return s.LastSentIndex - s.LastAckedIndex
}

// Done reports whether the transfer is complete: every byte has been sent
// and the slot carrying FIN has been acknowledged (spec.md §4.2
// "Termination").
func (s *SenderState) Done() bool {
	if s.LastAckedIndex != s.LastSentIndex {
		return false
	}
	if s.StartByte <= s.FileLength {
		return false
	}
	return s.LastAckedIndex >= 0 && s.finFlags[s.LastAckedIndex]
}

// buildSegment reads the next payload range from file and returns the wire
// segment plus whether it reaches EOF (spec.md §4.2 step 1).
func (s *SenderState) buildSegment(file FileSource, startByte int64) (segment.Segment, int64, bool, error) {
	remaining := s.FileLength - startByte
	length := int64(segment.MaxData)
	if remaining < length {
		length = remaining
	}
	if length < 0 {
		length = 0
	}
	data, err := file.ReadRange(startByte, int(length))
	if err != nil {
		return segment.Segment{}, 0, false, err
	}
	fin := startByte+length >= s.FileLength
	seg := segment.Segment{
		Seq:     s.InitialSeq + uint32(startByte),
		Ack:     0,
		AckFlag: false,
		FinFlag: fin,
		Data:    data,
	}
	return seg, length, fin, nil
}

// fillWindow implements spec.md §4.2 step 1.
func (s *SenderState) fillWindow(file FileSource, ch Channel, peer Addr) error {
	limit := minInt(s.Window, s.Cwnd)
	sent := 0
	for s.outstanding() < limit && sent < limit && s.StartByte <= s.FileLength {
		seg, length, fin, err := s.buildSegment(file, s.StartByte)
		if err != nil {
			return err
		}
		slot := SendSlot{
			FirstByte:  s.StartByte,
			DataLength: int(length),
			SeqNum:     seg.Seq,
			TimeSent:   time.Now(),
		}
		s.appendSlot(slot, fin)
		if err := ch.Send(peer, segment.Encode(seg)); err != nil {
			log.Warnf("[SENDER][TX] send failed, relying on retransmission : %v", err)
		}
		switch s.Phase {
		case SlowStart:
			s.Stats.SlowStartCount++
		default:
			s.Stats.CongAvoidCount++
		}
		log.Debugf("[SENDER][TX] seq=%d len=%d fin=%t phase=%v", seg.Seq, length, fin, s.Phase)
		// start_byte always advances by MAX_DATA, not by the (possibly
		// shorter) payload actually read. This mirrors the source's
		// send loop and is what makes the termination check in Done
		// ("start_byte > file_length") eventually fire even when
		// file_length is an exact multiple of MAX_DATA: the boundary
		// case sends one extra empty FIN segment past the last data
		// segment, matching SPEC_FULL.md §8 scenario 2.
		s.StartByte += int64(segment.MaxData)
		sent++
	}
	return nil
}

// appendSlot records a newly sent slot together with its FIN flag. finFlags
// is kept as a parallel slice indexed identically to slots so SendSlot stays
// exactly the shape spec.md §3 describes.
func (s *SenderState) appendSlot(slot SendSlot, fin bool) {
	s.slots = append(s.slots, slot)
	s.finFlags = append(s.finFlags, fin)
	s.LastSentIndex = len(s.slots) - 1
}

// Slot returns the SendSlot at index i.
func (s *SenderState) Slot(i int) SendSlot {
	return s.slots[i]
}

// Serve runs the sender event loop until the file has been fully
// transmitted and acknowledged (spec.md §4.2).
func (s *SenderState) Serve(file FileSource, ch Channel, peer Addr) error {
	for !s.Done() {
		if err := s.fillWindow(file, ch, peer); err != nil {
			return err
		}
		timeout := time.Duration(s.RTT.RTO) * time.Microsecond
		buf, _, err := ch.Receive(timeout)
		switch {
		case err == nil:
			seg, decErr := segment.Decode(buf, len(buf))
			if decErr != nil {
				log.Debugf("[SENDER][RX] malformed segment discarded : %v", decErr)
				continue
			}
			if ackErr := s.processAck(seg, file, ch, peer); ackErr != nil {
				return ackErr
			}
		case err == ErrChannelTimeout:
			if toErr := s.handleTimeout(file, ch, peer); toErr != nil {
				return toErr
			}
		default:
			log.Warnf("[SENDER][RX] channel receive error, retrying : %v", err)
		}
	}
	return nil
}

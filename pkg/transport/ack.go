package transport

import (
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/anvilio/saferudp/pkg/segment"
)

// processAck implements spec.md §4.3. It is invoked from Serve whenever a
// datagram decodes cleanly; non-ACK segments arriving on the sender side
// (a receiver should never send one) are discarded here rather than in
// Serve, keeping the "what counts as an ACK event" decision in one place.
func (s *SenderState) processAck(seg segment.Segment, file FileSource, ch Channel, peer Addr) error {
	if !seg.AckFlag {
		return nil
	}

	switch {
	case s.LastAckedIndex < 0 && seg.Ack == s.SendBase && len(s.slots) > 0 && s.slots[0].End() <= seg.Ack:
		// The very first ack of the session, numerically equal to send_base:
		// happens whenever slot 0 is zero-length (an empty file's lone FIN
		// segment has seq == end == initial_seq == send_base). There is
		// nothing yet to be a duplicate of, so this bootstraps last_acked_index
		// exactly like a new ack rather than feeding the dup-ack counter.
		s.acceptNewAck(seg.Ack)

	case seg.Ack == s.SendBase:
		s.DupAckCount++
		if s.DupAckCount == 3 {
			if idx, ok := s.findSlotByFirstByte(int64(seg.Ack - s.InitialSeq)); ok {
				if err := s.retransmitSlot(file, ch, peer, idx); err != nil {
					return err
				}
			}
			s.DupAckCount = 0
			s.Cwnd = maxInt(1, s.Cwnd/2)
			s.Ssthresh = s.Cwnd
			s.Phase = FastRecovery
		}

	case seg.Ack > s.SendBase:
		if s.Phase == FastRecovery {
			s.Cwnd++
			s.Phase = CongAvoid
		}
		s.acceptNewAck(seg.Ack)

	default:
		// Stale ACK (ack < send_base): ignore.
		return nil
	}

	if s.Phase == SlowStart && s.Cwnd >= s.Ssthresh {
		// Preserved from the source: resets cwnd/ssthresh to fixed values
		// rather than simply switching phase. See SPEC_FULL.md §9 / DESIGN.md
		// open question #1.
		s.Phase = CongAvoid
		s.Cwnd = 1
		s.Ssthresh = 64
	}

	if s.LastAckedIndex == s.LastSentIndex {
		if s.Phase == SlowStart {
			s.Cwnd *= 2
		} else {
			s.Cwnd++
		}
	}

	log.Debugf("[SENDER][ACK] ack=%d send_base=%d cwnd=%d ssthresh=%d phase=%v",
		seg.Ack, s.SendBase, s.Cwnd, s.Ssthresh, s.Phase)
	return nil
}

// acceptNewAck advances send_base and last_acked_index for a freshly-acked
// cumulative value, then samples exactly one RTT observation for the event,
// using the slot at the final last_acked_index the advance settles on.
// wait_for_ack() in udp_server.cpp calls calculate_rtt_and_time() once per
// received ack, keyed on the final last_packet_acked_buffer reached after
// its while-loop completes — not once per intermediate slot stepped over.
func (s *SenderState) acceptNewAck(ack uint32) {
	s.DupAckCount = 0
	s.SendBase = ack

	for s.LastAckedIndex < s.LastSentIndex && s.slots[s.LastAckedIndex+1].End() <= ack {
		s.LastAckedIndex++
	}
	if s.LastAckedIndex < 0 {
		return
	}

	sampleUs := float64(0)
	if sentAt := s.slots[s.LastAckedIndex].TimeSent; !sentAt.IsZero() {
		sampleUs = float64(time.Since(sentAt).Microseconds())
	}
	s.RTT.Sample(sampleUs)
}

// findSlotByFirstByte locates the slot whose FirstByte matches firstByte,
// used by fast retransmit to resolve the duplicate-ACK'd segment.
func (s *SenderState) findSlotByFirstByte(firstByte int64) (int, bool) {
	for i, slot := range s.slots {
		if slot.FirstByte == firstByte {
			return i, true
		}
	}
	return -1, false
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

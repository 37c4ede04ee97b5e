package transport

import (
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/anvilio/saferudp/pkg/segment"
)

// handleTimeout implements spec.md §4.4. It is invoked from Serve whenever
// Channel.Receive returns ErrChannelTimeout.
func (s *SenderState) handleTimeout(file FileSource, ch Channel, peer Addr) error {
	s.Ssthresh = maxInt(1, s.Cwnd/2)
	s.Cwnd = 1
	s.Phase = SlowStart

	log.Debugf("[SENDER][TIMEOUT] ssthresh=%d retransmitting slots %d..%d",
		s.Ssthresh, s.LastAckedIndex+1, s.LastSentIndex)

	for i := s.LastAckedIndex + 1; i <= s.LastSentIndex; i++ {
		if err := s.retransmitSlot(file, ch, peer, i); err != nil {
			return err
		}
	}
	return nil
}

// retransmitSlot is the "retransmit primitive" shared by fast retransmit
// (§4.3) and timeout-driven retransmission (§4.4): it recomputes the file
// byte range from the slot's first_byte, refreshes time_sent, resends, and
// counts the retransmit.
func (s *SenderState) retransmitSlot(file FileSource, ch Channel, peer Addr, index int) error {
	slot := s.slots[index]
	seg, length, fin, err := s.buildSegment(file, slot.FirstByte)
	if err != nil {
		return err
	}
	slot.DataLength = int(length)
	slot.TimeSent = time.Now()
	s.slots[index] = slot
	s.finFlags[index] = fin

	if err := ch.Send(peer, segment.Encode(seg)); err != nil {
		log.Warnf("[SENDER][TIMEOUT] retransmit send failed : %v", err)
	}
	s.Stats.RetransmitCount++
	return nil
}

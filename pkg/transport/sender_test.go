package transport

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anvilio/saferudp/pkg/segment"
)

func TestFillWindowRespectsCwnd(t *testing.T) {
	file := &memFile{data: make([]byte, segment.MaxData*10)}
	ch := newFakeChannel()
	s := NewSenderState(100, file.Length(), DefaultWindow)
	s.Cwnd = 2

	require.NoError(t, s.fillWindow(file, ch, fakeAddr("peer")))

	assert.Equal(t, 1, s.LastSentIndex)
	assert.Equal(t, 2, s.Stats.SlowStartCount)
	assert.Equal(t, uint32(100), s.Slot(0).SeqNum)
	assert.Equal(t, uint32(100+segment.MaxData), s.Slot(1).SeqNum)
}

func TestFillWindowZeroLengthFileSendsOneFinSegment(t *testing.T) {
	file := &memFile{data: nil}
	ch := newFakeChannel()
	s := NewSenderState(5, 0, DefaultWindow)

	require.NoError(t, s.fillWindow(file, ch, fakeAddr("peer")))

	assert.Equal(t, 0, s.LastSentIndex)
	assert.Equal(t, 0, s.Slot(0).DataLength)
	assert.True(t, s.finFlags[0])
	assert.Greater(t, s.StartByte, s.FileLength)
}

func TestFillWindowExactMultipleSendsExtraEmptyFin(t *testing.T) {
	// file_length an exact multiple of MAX_DATA: the source's fixed
	// start_byte advance sends one trailing empty FIN segment past the
	// final full-size data segment. See SPEC_FULL.md §8 scenario 2.
	file := &memFile{data: make([]byte, segment.MaxData*3)}
	ch := newFakeChannel()
	s := NewSenderState(0, file.Length(), 100)
	s.Cwnd = 100

	require.NoError(t, s.fillWindow(file, ch, fakeAddr("peer")))

	assert.Equal(t, 3, s.LastSentIndex) // 4 segments: indices 0..3
	assert.Equal(t, segment.MaxData, s.Slot(0).DataLength)
	assert.Equal(t, segment.MaxData, s.Slot(1).DataLength)
	assert.Equal(t, segment.MaxData, s.Slot(2).DataLength)
	assert.Equal(t, 0, s.Slot(3).DataLength)
	assert.True(t, s.finFlags[2])
	assert.True(t, s.finFlags[3])
}

func TestDoneRequiresFinSlotAcked(t *testing.T) {
	s := NewSenderState(0, 10, DefaultWindow)
	assert.False(t, s.Done())

	s.StartByte = 20
	s.LastSentIndex = 0
	s.LastAckedIndex = 0
	s.finFlags = []bool{false}
	assert.False(t, s.Done())

	s.finFlags = []bool{true}
	assert.True(t, s.Done())
}

func TestServeDrivesSmallTransferToCompletion(t *testing.T) {
	data := []byte("the quick brown fox jumps over the lazy dog")
	file := &memFile{data: data}
	senderCh, receiverCh := newFakeChannelPair()
	peer := fakeAddr("peer")

	s := NewSenderState(42, file.Length(), DefaultWindow)

	done := make(chan error, 1)
	go func() { done <- s.Serve(file, senderCh, peer) }()

	// Minimal receiver loop: decode each segment and ack its cumulative end.
	var reassembled []byte
	for {
		buf, _, err := receiverCh.Receive(5 * time.Second)
		require.NoError(t, err)
		seg, err := segment.Decode(buf, len(buf))
		require.NoError(t, err)
		reassembled = append(reassembled, seg.Data...)
		ack := segment.Segment{AckFlag: true, Ack: seg.Seq + uint32(len(seg.Data))}
		require.NoError(t, receiverCh.Send(peer, segment.Encode(ack)))
		if seg.FinFlag {
			break
		}
	}

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("sender did not complete")
	}
	assert.Equal(t, data, reassembled)
}

func TestServeDrivesZeroByteFileToCompletion(t *testing.T) {
	// spec.md §8 scenario 1: file_length=0, lossless channel -> single FIN
	// segment, single ACK, both sides terminate. The ack for that lone,
	// zero-length slot is numerically equal to send_base (seq == end ==
	// initial_seq), so this exercises the bootstrap path in processAck that
	// distinguishes the session's very first ack from a duplicate.
	file := &memFile{data: nil}
	senderCh, receiverCh := newFakeChannelPair()
	peer := fakeAddr("peer")

	s := NewSenderState(7, file.Length(), DefaultWindow)

	done := make(chan error, 1)
	go func() { done <- s.Serve(file, senderCh, peer) }()

	buf, _, err := receiverCh.Receive(5 * time.Second)
	require.NoError(t, err)
	seg, err := segment.Decode(buf, len(buf))
	require.NoError(t, err)
	assert.True(t, seg.FinFlag)
	assert.Empty(t, seg.Data)

	ack := segment.Segment{AckFlag: true, Ack: seg.Seq + uint32(len(seg.Data))}
	require.NoError(t, receiverCh.Send(peer, segment.Encode(ack)))

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("sender did not complete a zero-byte transfer")
	}
}

package segment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := []Segment{
		{Seq: 67, Ack: 0, AckFlag: false, FinFlag: false, Data: []byte("hello world")},
		{Seq: 1, Ack: 2, AckFlag: true, FinFlag: false, Data: nil},
		{Seq: 0xFFFFFFFF, Ack: 0, AckFlag: false, FinFlag: true, Data: make([]byte, MaxData)},
	}
	for _, want := range cases {
		buf := Encode(want)
		assert.Len(t, buf, MaxPacket)
		got, err := Decode(buf, MaxPacket)
		require.NoError(t, err)
		assert.Equal(t, want.Seq, got.Seq)
		assert.Equal(t, want.Ack, got.Ack)
		assert.Equal(t, want.AckFlag, got.AckFlag)
		assert.Equal(t, want.FinFlag, got.FinFlag)
		assert.Equal(t, want.Data, got.Data)
	}
}

func TestEncodeTrailingBytesTransmittedButUnspecified(t *testing.T) {
	s := Segment{Seq: 1, Data: []byte("ab")}
	buf := Encode(s)
	assert.Equal(t, MaxPacket, len(buf))
}

func TestDecodeMalformedShortHeader(t *testing.T) {
	_, err := Decode(make([]byte, HeaderLength-1), HeaderLength-1)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestDecodeMalformedTruncatedPayload(t *testing.T) {
	s := Segment{Seq: 1, Data: []byte("hello")}
	buf := Encode(s)
	_, err := Decode(buf, HeaderLength+2)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestAckSegmentHasNoPayload(t *testing.T) {
	ack := Segment{AckFlag: true, Ack: 1234}
	buf := Encode(ack)
	got, err := Decode(buf, MaxPacket)
	require.NoError(t, err)
	assert.True(t, got.AckFlag)
	assert.False(t, got.FinFlag)
	assert.Equal(t, uint32(1234), got.Ack)
	assert.Empty(t, got.Data)
}

func TestEncodeIntoReusesBuffer(t *testing.T) {
	buf := make([]byte, MaxPacket)
	EncodeInto(Segment{Seq: 5, Data: []byte("x")}, buf)
	EncodeInto(Segment{Seq: 6, Data: []byte("yz")}, buf)
	got, err := Decode(buf, MaxPacket)
	require.NoError(t, err)
	assert.Equal(t, uint32(6), got.Seq)
	assert.Equal(t, []byte("yz"), got.Data)
}

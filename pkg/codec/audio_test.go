package codec

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAudioRoundTripFramed(t *testing.T) {
	payload := make([]byte, audioFramedPayloadLen)
	for i := range payload {
		payload[i] = byte(i)
	}
	b := BuildAudio(1, 1, 2, 42, payload)
	require.Equal(t, byte(audioIdentLoFramed), b[0x10])
	require.Equal(t, byte(audioIdentHiFramed), b[0x11])
	got, err := ParseAudio(b)
	require.NoError(t, err)
	require.Equal(t, uint16(42), got.SendSeq)
	require.Equal(t, payload, got.Payload)
}

func TestAudioRoundTripUnframed(t *testing.T) {
	payload := []byte{1, 2, 3, 4}
	b := BuildAudio(1, 1, 2, 1, payload)
	require.Equal(t, byte(audioIdentLoUnframed), b[0x10])
	require.Equal(t, byte(audioIdentHiUnframed), b[0x11])
	got, err := ParseAudio(b)
	require.NoError(t, err)
	require.Equal(t, payload, got.Payload)
}

func TestAudioRejectsBadIdent(t *testing.T) {
	b := BuildAudio(1, 1, 2, 1, []byte{1, 2, 3, 4})
	b[0x10] = 0x55
	_, err := ParseAudio(b)
	require.Error(t, err)
}

func TestAudioRejectsZeroDataLen(t *testing.T) {
	b := BuildAudio(1, 1, 2, 1, []byte{1})
	putU16be(b[0x16:], 0)
	_, err := ParseAudio(b)
	require.Error(t, err)
}

func TestAudioRejectsOversizeDataLen(t *testing.T) {
	b := BuildAudio(1, 1, 2, 1, []byte{1})
	putU16be(b[0x16:], maxAudioPayloadLen+1)
	_, err := ParseAudio(b)
	require.Error(t, err)
}

func TestAudioRejectsLengthMismatch(t *testing.T) {
	b := BuildAudio(1, 1, 2, 1, []byte{1, 2, 3, 4})
	putU16be(b[0x16:], 999)
	_, err := ParseAudio(b)
	require.Error(t, err)
}

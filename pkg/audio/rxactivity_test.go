package audio

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRxActivitySilenceIsLow(t *testing.T) {
	silence := make([]int16, rxActivityWindowSize)
	require.Zero(t, RxActivity(silence, SampleRate))
}

func TestRxActivityToneInBandIsHigherThanSilence(t *testing.T) {
	tone := make([]int16, rxActivityWindowSize)
	for i := range tone {
		tone[i] = int16(16000 * math.Sin(2*math.Pi*1000*float64(i)/float64(SampleRate)))
	}
	silence := make([]int16, rxActivityWindowSize)

	require.Greater(t, RxActivity(tone, SampleRate), RxActivity(silence, SampleRate))
}

func TestRxActivityShortWindowReturnsZero(t *testing.T) {
	require.Zero(t, RxActivity(make([]int16, rxActivityWindowSize-1), SampleRate))
}

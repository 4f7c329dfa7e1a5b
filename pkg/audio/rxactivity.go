package audio

import (
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

const (
	rxActivityWindowSize = 1024
	voiceBandLowHz       = 300
	voiceBandHighHz      = 3000
	rxActivityPowerFloor = 0.1
)

// RxActivity estimates receive-band energy over a window of inbound PCM16
// audio, as a diagnostic for "is the radio actually sending us live audio"
// rather than any attempt at demodulation or decoding. It reuses the
// FFT-plus-Hann-window-plus-band-scan technique the reference JS8 signal
// detector uses to spot candidate tones, repointed from JS8's narrow tone
// search at transmit-detection to a broad voice-band energy estimate on
// receive.
func RxActivity(samples []int16, sampleRate int) float32 {
	if len(samples) < rxActivityWindowSize {
		return 0
	}

	fftInput := make([]complex128, rxActivityWindowSize)
	for i := 0; i < rxActivityWindowSize; i++ {
		fftInput[i] = complex(float64(samples[i])/32768.0, 0)
	}
	for i := range fftInput {
		window := 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(len(fftInput)-1)))
		fftInput[i] *= complex(window, 0)
	}

	spectrum := fft.FFT(fftInput)

	var energy float64
	var bins int
	for i := 0; i < len(spectrum)/2; i++ {
		freq := i * sampleRate / len(spectrum)
		if freq < voiceBandLowHz || freq > voiceBandHighHz {
			continue
		}
		power := cmplx.Abs(spectrum[i])
		if power > rxActivityPowerFloor {
			energy += power
		}
		bins++
	}
	if bins == 0 {
		return 0
	}
	return float32(energy / float64(bins))
}

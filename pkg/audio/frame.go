// Package audio implements the Audio sub-session: a drift-compensated
// 50 Hz transmit scheduler with leading/trailing silence, inbound frame
// handling, a frame buffer pool, and an FFT-based receive-activity
// diagnostic.
package audio

import "time"

const (
	// FrameSamples is one audio frame: 240 16-bit PCM samples, 20ms at 12kHz.
	FrameSamples = 240
	// FrameBytes is FrameSamples encoded as 16-bit little-endian.
	FrameBytes = FrameSamples * 2
	// SampleRate is the protocol's fixed audio sample rate, in Hz.
	SampleRate = 12000
	// FrameDuration is the wall-clock period of one frame.
	FrameDuration = 20 * time.Millisecond

	// LeadingSilenceFrames are pushed before supplied samples when the
	// caller requests leading silence (typically right after PTT-on).
	LeadingSilenceFrames = 3
	// TrailingSilenceFrames are pushed when PTT turns off, so the tail of
	// real audio is delivered before the radio unkeys.
	TrailingSilenceFrames = 5
)

// pcm16ToBytes encodes a 240-sample frame as 480 little-endian bytes.
func pcm16ToBytes(samples [FrameSamples]int16) []byte {
	b := make([]byte, FrameBytes)
	for i, s := range samples {
		b[2*i] = byte(uint16(s))
		b[2*i+1] = byte(uint16(s) >> 8)
	}
	return b
}

// float32ToPCM16Frame clips each sample to [-1, 1], scales by volume*32767,
// and truncates toward zero to int16.
func float32ToPCM16Frame(samples []float32, volume float32) [FrameSamples]int16 {
	var out [FrameSamples]int16
	for i := 0; i < FrameSamples && i < len(samples); i++ {
		v := samples[i]
		if v > 1 {
			v = 1
		} else if v < -1 {
			v = -1
		}
		out[i] = int16(v * volume * 32767)
	}
	return out
}

// framePCM16 slices a flat PCM16 sample slice into FrameSamples-sized
// frames, zero-padding a final short frame.
func framePCM16(samples []int16) [][FrameSamples]int16 {
	var frames [][FrameSamples]int16
	for off := 0; off < len(samples); off += FrameSamples {
		var f [FrameSamples]int16
		n := copy(f[:], samples[off:])
		_ = n
		frames = append(frames, f)
	}
	return frames
}

// frameFloat32 slices a flat float32 sample slice into FrameSamples-sized
// frames (via float32ToPCM16Frame), zero-padding a final short frame.
func frameFloat32(samples []float32, volume float32) [][FrameSamples]int16 {
	var frames [][FrameSamples]int16
	for off := 0; off < len(samples); off += FrameSamples {
		end := off + FrameSamples
		if end > len(samples) {
			end = len(samples)
		}
		frames = append(frames, float32ToPCM16Frame(samples[off:end], volume))
	}
	return frames
}

var silenceFrame [FrameSamples]int16

// Package civ implements the CI-V sub-session: its Open/Close keep-alive
// watchdog, outbound frame numbering, and the byte-stream reassembler that
// recovers FE FE ... FD frame boundaries from a UDP payload stream.
package civ

const noiseWatermark = 1024

// Reassembler recovers complete CI-V frames (FE FE ... FD, inclusive) from
// an arbitrarily chunked byte stream. A single UDP payload may contain
// zero, one, or several frames, and a frame may split across packets; the
// Reassembler buffers across Feed calls to handle both.
type Reassembler struct {
	buf []byte
}

// Feed appends data to the internal buffer and returns every frame that
// became complete as a result, in the order they appear on the wire.
func (r *Reassembler) Feed(data []byte) [][]byte {
	r.buf = append(r.buf, data...)

	var frames [][]byte
	for {
		start := indexOfMarker(r.buf)
		if start < 0 {
			if len(r.buf) > noiseWatermark {
				r.buf = r.buf[len(r.buf)-1:]
			}
			return frames
		}
		if start > 0 {
			r.buf = r.buf[start:]
		}

		end := indexOfByte(r.buf[2:], 0xFD)
		if end < 0 {
			return frames
		}
		end += 2

		frame := make([]byte, end+1)
		copy(frame, r.buf[:end+1])
		frames = append(frames, frame)

		r.buf = r.buf[end+1:]
	}
}

// indexOfMarker returns the index of the first FE FE pair in b, or -1.
func indexOfMarker(b []byte) int {
	for i := 0; i+1 < len(b); i++ {
		if b[i] == 0xFE && b[i+1] == 0xFE {
			return i
		}
	}
	return -1
}

func indexOfByte(b []byte, target byte) int {
	for i, c := range b {
		if c == target {
			return i
		}
	}
	return -1
}

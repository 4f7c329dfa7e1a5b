package audio

import (
	"runtime"
	"time"

	"github.com/icomwland/icomwland/pkg/codec"
	"github.com/icomwland/icomwland/pkg/session"
)

// Subsession is the drift-compensated 50Hz transmit scheduler plus inbound
// frame handling for the Audio session.
type Subsession struct {
	sess    *session.Session
	enqueue func(func())

	volume  float32
	queue   [][FrameSamples]int16
	sendSeq uint16

	stopCh chan struct{}
}

// New wraps sess as an audio subsession with default volume 1.0.
func New(sess *session.Session, enqueue func(func())) *Subsession {
	return &Subsession{sess: sess, enqueue: enqueue, volume: 1.0}
}

// SetVolume scales subsequent Float32 enqueues. Default 1.0.
func (s *Subsession) SetVolume(v float32) { s.volume = v }

// EnqueuePCM16 appends samples, already 16-bit signed, to the outgoing
// queue, framed into FrameSamples-sized chunks (final short frame
// zero-padded). If leadingSilence, LeadingSilenceFrames silence frames are
// pushed first.
func (s *Subsession) EnqueuePCM16(samples []int16, leadingSilence bool) {
	if leadingSilence {
		s.pushSilence(LeadingSilenceFrames)
	}
	s.queue = append(s.queue, framePCM16(samples)...)
}

// EnqueueFloat32 appends samples in [-1.0, 1.0], clipped and scaled by the
// current volume to 16-bit signed, framed the same way as EnqueuePCM16.
func (s *Subsession) EnqueueFloat32(samples []float32, leadingSilence bool) {
	if leadingSilence {
		s.pushSilence(LeadingSilenceFrames)
	}
	s.queue = append(s.queue, frameFloat32(samples, s.volume)...)
}

// PTTOff pushes TrailingSilenceFrames of silence, ensuring the tail of real
// audio is delivered to the radio before it unkeys. It does not stop the
// scheduler — only Stop does that.
func (s *Subsession) PTTOff() {
	s.pushSilence(TrailingSilenceFrames)
}

func (s *Subsession) pushSilence(n int) {
	for i := 0; i < n; i++ {
		s.queue = append(s.queue, silenceFrame)
	}
}

// QueueDepth reports the number of frames currently queued, for metrics.
func (s *Subsession) QueueDepth() int { return len(s.queue) }

// Start begins the 50Hz send loop. Every tick is computed from the
// recorded start instant t0, never from cumulative per-tick increments —
// that is what keeps scheduler jitter from compounding into drift over a
// long session.
func (s *Subsession) Start() {
	if s.stopCh != nil {
		return
	}
	stop := make(chan struct{})
	s.stopCh = stop
	go s.run(stop)
}

func (s *Subsession) run(stop chan struct{}) {
	t0 := time.Now()
	var nextFrameIndex int64
	for {
		ideal := t0.Add(time.Duration(nextFrameIndex+1) * FrameDuration)
		if !sleepUntil(ideal, stop) {
			return
		}
		done := make(chan struct{})
		s.enqueue(func() {
			s.sendNextFrame()
			close(done)
		})
		<-done
		nextFrameIndex++
	}
}

// sleepUntil blocks until ideal, coarse time.Sleep far out and a tight
// runtime.Gosched loop within the last couple of milliseconds, returning
// false if stop fires first.
func sleepUntil(ideal time.Time, stop chan struct{}) bool {
	const fineWindow = 2 * time.Millisecond
	for {
		remaining := time.Until(ideal)
		if remaining <= 0 {
			return true
		}
		select {
		case <-stop:
			return false
		default:
		}
		if remaining > fineWindow {
			timer := time.NewTimer(remaining - time.Millisecond)
			select {
			case <-timer.C:
			case <-stop:
				timer.Stop()
				return false
			}
		} else {
			runtime.Gosched()
		}
	}
}

// sendNextFrame sends the head of the queue, or a silence frame if empty —
// the scheduler never blocks waiting for data, since the radio requires
// continuous 50Hz packets during an active connection.
func (s *Subsession) sendNextFrame() {
	var frame [FrameSamples]int16
	if len(s.queue) > 0 {
		frame = s.queue[0]
		s.queue = s.queue[1:]
	}

	buf := GlobalFramePool().Get()
	for i, v := range frame {
		buf[2*i] = byte(uint16(v))
		buf[2*i+1] = byte(uint16(v) >> 8)
	}
	pkt := codec.BuildAudio(0, s.sess.LocalID(), s.sess.RemoteID(), s.sendSeq, buf)
	s.sendSeq++
	_ = s.sess.SendUntracked(pkt)
	GlobalFramePool().Put(buf)
}

// Stop halts the scheduler and discards any queued frames. Only called on
// full disconnect — unkeying PTT uses PTTOff instead.
func (s *Subsession) Stop() {
	if s.stopCh != nil {
		close(s.stopCh)
		s.stopCh = nil
	}
	s.queue = nil
}

// HandleInbound parses a raw inbound audio packet and returns its PCM
// payload for the Controller to publish as an audio event.
func HandleInbound(b []byte) ([]byte, error) {
	pkt, err := codec.ParseAudio(b)
	if err != nil {
		return nil, err
	}
	return pkt.Payload, nil
}

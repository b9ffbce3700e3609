package ui

import (
	"encoding/binary"
	"time"

	"github.com/nilhelm/gogbcore/internal/emu"
)

// applyPlayerBufferSize picks a small buffer for low latency, or a larger
// one for steadier playback during normal speed.
func (a *App) applyPlayerBufferSize() {
	if a.audioPlayer == nil {
		return
	}
	bufMs := 40
	if a.cfg.AudioLowLatency || a.fast {
		bufMs = 20
	}
	a.audioPlayer.SetBufferSize(time.Duration(bufMs) * time.Millisecond)
}

// apuStream implements io.Reader by pulling PCM frames from the emulator's
// APU ring and converting them to 16-bit little-endian stereo frames for
// ebiten's audio player.
type apuStream struct {
	m          *emu.Machine
	lowLatency bool
	underruns  int
}

func (s *apuStream) Read(p []byte) (int, error) {
	if len(p) < 4 || s.m == nil {
		for i := range p {
			p[i] = 0
		}
		return len(p), nil
	}

	apu := s.m.Bus().APU()
	maxReq := len(p) / 4
	capFrames := 2048
	if s.lowLatency {
		capFrames = 1024
	}
	if maxReq > capFrames {
		maxReq = capFrames
	}

	waitDur := 15 * time.Millisecond
	if s.lowLatency {
		waitDur = 8 * time.Millisecond
	}
	want := maxReq
	if avail := apu.StereoAvailable(); avail > 0 {
		if avail < want {
			want = avail
		}
	} else {
		deadline := time.Now().Add(waitDur)
		for time.Now().Before(deadline) {
			if avail := apu.StereoAvailable(); avail > 0 {
				want = avail
				if want > maxReq {
					want = maxReq
				}
				break
			}
			time.Sleep(time.Millisecond)
		}
	}

	frames := apu.PullStereo(want)
	i := 0
	for j := 0; j+1 < len(frames) && i+3 < len(p); j += 2 {
		binary.LittleEndian.PutUint16(p[i:], uint16(frames[j]))
		binary.LittleEndian.PutUint16(p[i+2:], uint16(frames[j+1]))
		i += 4
	}
	if i == 0 {
		s.underruns++
	}
	for ; i+3 < len(p); i += 4 {
		binary.LittleEndian.PutUint16(p[i:], 0)
		binary.LittleEndian.PutUint16(p[i+2:], 0)
	}
	return len(p), nil
}

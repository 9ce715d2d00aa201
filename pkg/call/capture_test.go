package call

import (
	"context"
	"testing"
	"time"

	"github.com/voicebridge/callkit-go/pkg/rtc"
	"github.com/voicebridge/callkit-go/pkg/voice"
)

func newTestFrame(t *testing.T) *rtc.AudioFrame {
	t.Helper()
	frame, err := rtc.NewAudioFrame(make([]byte, 960), 48000, 1, 0)
	if err != nil {
		t.Fatalf("NewAudioFrame() error = %v", err)
	}
	return frame
}

func TestCapturePump_GateDecidesPerFrame(t *testing.T) {
	gate := voice.NewAudioGate()

	var delivered []*rtc.AudioFrame
	pump := NewCapturePump(gate, func(f *rtc.AudioFrame) {
		delivered = append(delivered, f)
	}, nil)

	frame := newTestFrame(t)

	if !pump.Push(frame) {
		t.Error("an open gate should forward the frame")
	}

	gate.SetMuted(true)
	if pump.Push(frame) {
		t.Error("a closed gate should drop the frame")
	}

	gate.SetMuted(false)
	if !pump.Push(frame) {
		t.Error("re-opening the gate should forward frames again")
	}

	if len(delivered) != 2 {
		t.Errorf("sink received %d frames, want 2", len(delivered))
	}
	if pump.Forwarded() != 2 || pump.Dropped() != 1 {
		t.Errorf("counters = %d forwarded, %d dropped; want 2, 1",
			pump.Forwarded(), pump.Dropped())
	}
}

func TestCapturePump_DropsWhileAgentSpeaks(t *testing.T) {
	s, _ := newTestSession(t)
	defer s.Close()

	pump := s.CapturePump(nil)
	frame := newTestFrame(t)

	if !pump.Push(frame) {
		t.Error("frames should pass before the agent speaks")
	}

	s.HandleEvent(voice.EventAgentAudioStarted)
	if pump.Push(frame) {
		t.Error("frames captured during agent speech must be dropped")
	}

	s.HandleEvent(voice.EventUserSpeechStarted)
	if !pump.Push(frame) {
		t.Error("frames should pass again once the user speaks")
	}
}

func TestCapturePump_RunDrainsChannel(t *testing.T) {
	gate := voice.NewAudioGate()
	pump := NewCapturePump(gate, nil, nil)

	frames := make(chan *rtc.AudioFrame, 4)
	frame := newTestFrame(t)

	frames <- frame
	frames <- frame
	frames <- frame.Clone()
	close(frames)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	pump.Run(ctx, frames)

	if pump.Forwarded() != 3 {
		t.Errorf("Forwarded() = %d, want 3", pump.Forwarded())
	}
}

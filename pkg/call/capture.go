package call

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/voicebridge/callkit-go/pkg/rtc"
	"github.com/voicebridge/callkit-go/pkg/voice"
)

// CapturePump carries captured microphone frames from the local device to
// the transport sink. Track disabling happens at the transport and can
// land a few frames late, so the pump consults the session's gate per
// frame; nothing captured inside that window reaches the backend.
type CapturePump struct {
	gate   *voice.AudioGate
	sink   func(*rtc.AudioFrame)
	logger *slog.Logger

	forwarded atomic.Uint64
	dropped   atomic.Uint64
}

// NewCapturePump creates a pump gated by gate. Forwarded frames go to
// sink; a nil sink counts frames without delivering them.
func NewCapturePump(gate *voice.AudioGate, sink func(*rtc.AudioFrame), logger *slog.Logger) *CapturePump {
	if logger == nil {
		logger = slog.Default()
	}
	return &CapturePump{
		gate:   gate,
		sink:   sink,
		logger: logger,
	}
}

// Push offers one captured frame and reports whether it was forwarded.
func (p *CapturePump) Push(frame *rtc.AudioFrame) bool {
	if p.gate.ShouldDiscard() {
		p.dropped.Add(1)
		return false
	}

	p.forwarded.Add(1)
	if p.sink != nil {
		p.sink(frame)
	}
	return true
}

// Run drains frames until the channel closes or the context ends.
func (p *CapturePump) Run(ctx context.Context, frames <-chan *rtc.AudioFrame) {
	for {
		select {
		case <-ctx.Done():
			p.logStats()
			return
		case frame, ok := <-frames:
			if !ok {
				p.logStats()
				return
			}
			p.Push(frame)
		}
	}
}

// Forwarded returns the number of frames delivered to the sink.
func (p *CapturePump) Forwarded() uint64 {
	return p.forwarded.Load()
}

// Dropped returns the number of frames discarded at a closed gate.
func (p *CapturePump) Dropped() uint64 {
	return p.dropped.Load()
}

func (p *CapturePump) logStats() {
	p.logger.Debug("Capture pump stopped",
		slog.Uint64("frames_forwarded", p.forwarded.Load()),
		slog.Uint64("frames_dropped", p.dropped.Load()))
}

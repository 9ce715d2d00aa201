package voice

import "sync/atomic"

// AudioGate is a lock-free flag the local capture pump consults per frame.
// Track disabling happens at the transport and may land a few frames late;
// the gate closes in the same synchronous step as the mute decision, so
// frames captured inside that window are dropped instead of transmitted.
type AudioGate struct {
	muted atomic.Bool
}

// NewAudioGate creates an open gate (audio passes).
func NewAudioGate() *AudioGate {
	return &AudioGate{}
}

// SetMuted closes or opens the gate. The mute controller calls this on
// every electrical state change.
func (g *AudioGate) SetMuted(muted bool) {
	g.muted.Store(muted)
}

// ShouldDiscard reports whether captured microphone frames should be
// dropped before they reach the transport.
func (g *AudioGate) ShouldDiscard() bool {
	return g.muted.Load()
}

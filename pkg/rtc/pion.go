package rtc

import (
	"sync"

	"github.com/pion/webrtc/v3"
)

// rtpSender is the slice of *webrtc.RTPSender the adapter drives; tests
// substitute a fake.
type rtpSender interface {
	Transport() *webrtc.DTLSTransport
	ReplaceTrack(track webrtc.TrackLocal) error
}

// PionTrack adapts a pion RTP sender to the AudioTrack interface.
//
// Pion has no per-track enabled flag, so disabling is implemented by
// swapping the sender's outgoing track for nil (the sender keeps its
// negotiated slot and sends nothing) and enabling restores the original
// track. This matches how browsers stop transmission when
// MediaStreamTrack.enabled is cleared.
type PionTrack struct {
	mu      sync.Mutex
	sender  rtpSender
	local   webrtc.TrackLocal
	enabled bool
}

// NewPionTrack wraps a sender and the local track it was created with.
// The track starts enabled.
func NewPionTrack(sender *webrtc.RTPSender, local webrtc.TrackLocal) *PionTrack {
	return &PionTrack{
		sender:  sender,
		local:   local,
		enabled: true,
	}
}

// ID returns the local track's identifier.
func (t *PionTrack) ID() string {
	return t.local.ID()
}

// State maps the sender's DTLS transport state onto TrackState. Anything
// other than an established transport is treated as ended so mute
// operations skip it.
func (t *PionTrack) State() TrackState {
	transport := t.sender.Transport()
	if transport == nil {
		return TrackStateEnded
	}
	return dtlsTrackState(transport.State())
}

func dtlsTrackState(s webrtc.DTLSTransportState) TrackState {
	switch s {
	case webrtc.DTLSTransportStateConnecting, webrtc.DTLSTransportStateConnected:
		return TrackStateLive
	default:
		return TrackStateEnded
	}
}

// Enabled reports whether the sender currently carries the track.
func (t *PionTrack) Enabled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.enabled
}

// SetEnabled attaches or detaches the local track from the sender.
// ReplaceTrack failures leave the previous state in place; the caller's
// intent is tracked by the mute controller, not here.
func (t *PionTrack) SetEnabled(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if enabled == t.enabled {
		return
	}

	var next webrtc.TrackLocal
	if enabled {
		next = t.local
	}
	if err := t.sender.ReplaceTrack(next); err != nil {
		return
	}
	t.enabled = enabled
}

package rtc

import (
	"errors"
	"testing"

	"github.com/pion/webrtc/v3"
)

type fakeRTPSender struct {
	track      webrtc.TrackLocal
	replaceErr error
	replaced   []webrtc.TrackLocal
}

func (s *fakeRTPSender) Transport() *webrtc.DTLSTransport {
	// No negotiated transport; the track reads as ended.
	return nil
}

func (s *fakeRTPSender) ReplaceTrack(track webrtc.TrackLocal) error {
	if s.replaceErr != nil {
		return s.replaceErr
	}
	s.track = track
	s.replaced = append(s.replaced, track)
	return nil
}

func newLocalOpusTrack(t *testing.T) webrtc.TrackLocal {
	t.Helper()
	track, err := webrtc.NewTrackLocalStaticSample(webrtc.RTPCodecCapability{
		MimeType:  webrtc.MimeTypeOpus,
		ClockRate: 48000,
		Channels:  1,
	}, "audio", "microphone")
	if err != nil {
		t.Fatalf("NewTrackLocalStaticSample() error = %v", err)
	}
	return track
}

func TestPionTrack_SetEnabledRoundTrip(t *testing.T) {
	local := newLocalOpusTrack(t)
	sender := &fakeRTPSender{track: local}
	track := &PionTrack{sender: sender, local: local, enabled: true}

	track.SetEnabled(false)
	if track.Enabled() {
		t.Error("track should report disabled")
	}
	if sender.track != nil {
		t.Error("disabling should detach the sender's track")
	}

	track.SetEnabled(true)
	if !track.Enabled() {
		t.Error("track should report enabled")
	}
	if sender.track != local {
		t.Error("enabling should restore the original track")
	}
}

func TestPionTrack_SetEnabledIsIdempotent(t *testing.T) {
	local := newLocalOpusTrack(t)
	sender := &fakeRTPSender{track: local}
	track := &PionTrack{sender: sender, local: local, enabled: true}

	track.SetEnabled(true)
	track.SetEnabled(true)

	if len(sender.replaced) != 0 {
		t.Errorf("redundant enables reached the sender %d times", len(sender.replaced))
	}
}

func TestPionTrack_ReplaceTrackFailureKeepsState(t *testing.T) {
	local := newLocalOpusTrack(t)
	sender := &fakeRTPSender{track: local, replaceErr: errors.New("sender stopped")}
	track := &PionTrack{sender: sender, local: local, enabled: true}

	track.SetEnabled(false)

	if !track.Enabled() {
		t.Error("a failed replace must leave the enabled flag unchanged")
	}
	if sender.track != local {
		t.Error("a failed replace must leave the sender's track attached")
	}
}

func TestPionTrack_StateWithoutTransport(t *testing.T) {
	local := newLocalOpusTrack(t)
	track := &PionTrack{sender: &fakeRTPSender{track: local}, local: local, enabled: true}

	if track.State() != TrackStateEnded {
		t.Error("a sender with no transport should read as ended")
	}
}

func TestDTLSTrackState(t *testing.T) {
	tests := []struct {
		dtls     webrtc.DTLSTransportState
		expected TrackState
	}{
		{webrtc.DTLSTransportStateNew, TrackStateEnded},
		{webrtc.DTLSTransportStateConnecting, TrackStateLive},
		{webrtc.DTLSTransportStateConnected, TrackStateLive},
		{webrtc.DTLSTransportStateClosed, TrackStateEnded},
		{webrtc.DTLSTransportStateFailed, TrackStateEnded},
	}

	for _, tt := range tests {
		t.Run(tt.dtls.String(), func(t *testing.T) {
			if got := dtlsTrackState(tt.dtls); got != tt.expected {
				t.Errorf("dtlsTrackState(%v) = %v, want %v", tt.dtls, got, tt.expected)
			}
		})
	}
}

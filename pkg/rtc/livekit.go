package rtc

import (
	lksdk "github.com/livekit/server-sdk-go"
)

// localPublication is the slice of a local track publication the adapter
// drives. *lksdk.LocalTrackPublication satisfies it through
// lksdkPublication; tests substitute a fake.
type localPublication interface {
	SID() string
	IsMuted() bool
	SetMuted(muted bool)

	// Attached reports whether the publication still carries a track.
	Attached() bool
}

type lksdkPublication struct {
	*lksdk.LocalTrackPublication
}

// Attached reports live while the publication holds a track. The SDK drops
// the track reference when the publication is unpublished or the
// connection tears down.
func (p lksdkPublication) Attached() bool {
	return p.Track() != nil
}

// LiveKitTrack adapts a local LiveKit track publication to the AudioTrack
// interface. LiveKit models the enabled flag as publication mute, which the
// server fans out to subscribers, so SetEnabled maps directly onto SetMuted.
type LiveKitTrack struct {
	pub localPublication
}

// NewLiveKitTrack wraps a local track publication.
func NewLiveKitTrack(pub *lksdk.LocalTrackPublication) *LiveKitTrack {
	return &LiveKitTrack{pub: lksdkPublication{pub}}
}

// ID returns the publication SID.
func (t *LiveKitTrack) ID() string {
	return t.pub.SID()
}

// State reports live while the publication still carries a track.
func (t *LiveKitTrack) State() TrackState {
	if !t.pub.Attached() {
		return TrackStateEnded
	}
	return TrackStateLive
}

// Enabled reports the inverse of the publication's mute flag.
func (t *LiveKitTrack) Enabled() bool {
	return !t.pub.IsMuted()
}

// SetEnabled mutes or unmutes the publication.
func (t *LiveKitTrack) SetEnabled(enabled bool) {
	t.pub.SetMuted(!enabled)
}

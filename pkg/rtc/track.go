package rtc

// TrackState reports whether a track's underlying transport is still usable.
type TrackState int

const (
	TrackStateLive TrackState = iota
	TrackStateEnded
)

func (s TrackState) String() string {
	switch s {
	case TrackStateLive:
		return "live"
	case TrackStateEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// AudioTrack is the minimal surface the mute controller needs from a
// transport-owned microphone track. Implementations wrap a real transport
// (pion RTP sender, LiveKit publication) or a fake in tests.
//
// SetEnabled on a non-live track is allowed and must not fail; the transport
// may have torn the track down independently.
type AudioTrack interface {
	// ID identifies the track for logging.
	ID() string

	// State reports the underlying transport state of the track.
	State() TrackState

	// Enabled reports whether the track is currently transmitting.
	Enabled() bool

	// SetEnabled flips the track's electrical state. Disabled tracks send
	// silence (or nothing) to the remote peer.
	SetEnabled(enabled bool)
}

// MediaStream groups the audio tracks of one capture source. The stream's
// lifetime belongs to the session transport; consumers only control the
// enabled flag on its tracks.
type MediaStream interface {
	AudioTracks() []AudioTrack
}

// StaticStream is a MediaStream over a fixed track list. Transports that
// publish a single microphone track wrap it in one of these.
type StaticStream struct {
	tracks []AudioTrack
}

// NewStaticStream creates a stream over the given tracks.
func NewStaticStream(tracks ...AudioTrack) *StaticStream {
	return &StaticStream{tracks: tracks}
}

// AudioTracks returns the stream's track list.
func (s *StaticStream) AudioTracks() []AudioTrack {
	return s.tracks
}

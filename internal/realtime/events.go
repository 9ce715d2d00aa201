package realtime

import "github.com/voicebridge/callkit-go/pkg/voice"

// Wire event type constants. Speech-activity events map onto the mute
// controller's closed enum; everything else is session plumbing.
const (
	EventTypeAgentAudioStarted = "response.audio.started"
	EventTypeAgentAudioDelta   = "response.audio.delta"
	EventTypeAgentAudioDone    = "response.audio.done"
	EventTypeResponseDone      = "response.done"
	EventTypeUserSpeechStarted = "input_audio_buffer.speech_started"

	EventTypePing = "ping"
	EventTypePong = "pong"
)

// MuteEventKind translates a wire event type into a mute-controller event
// kind. The second return is false for event types the controller does not
// consume; callers drop those without error, so the backend can add new
// event types freely.
func MuteEventKind(eventType string) (voice.EventKind, bool) {
	switch eventType {
	case EventTypeAgentAudioStarted:
		return voice.EventAgentAudioStarted, true
	case EventTypeAgentAudioDelta:
		return voice.EventAgentAudioDelta, true
	case EventTypeAgentAudioDone:
		return voice.EventAgentAudioDone, true
	case EventTypeResponseDone:
		return voice.EventResponseDone, true
	case EventTypeUserSpeechStarted:
		return voice.EventUserSpeechStarted, true
	default:
		return 0, false
	}
}

package voice

import "fmt"

// EventKind identifies a speech-activity signal from the realtime session
// layer. The set is closed: the mute controller defines transitions for
// exactly these kinds and ignores everything else, so the upstream protocol
// can grow new event types without touching the controller.
type EventKind int

const (
	// EventAgentAudioStarted fires when the agent's synthesized voice
	// begins playing on the device speaker.
	EventAgentAudioStarted EventKind = iota

	// EventAgentAudioDelta fires for each audio chunk while the agent
	// speaks. Treated as an independent re-mute trigger so a delta that
	// outruns its start event still closes the mic.
	EventAgentAudioDelta

	// EventAgentAudioDone fires when the agent's audio output ends.
	EventAgentAudioDone

	// EventResponseDone fires when the agent's whole response completes.
	// Some backends emit it instead of, or after, EventAgentAudioDone.
	EventResponseDone

	// EventUserSpeechStarted fires when server-side VAD detects the user
	// beginning to speak.
	EventUserSpeechStarted
)

func (k EventKind) String() string {
	switch k {
	case EventAgentAudioStarted:
		return "agent_audio_started"
	case EventAgentAudioDelta:
		return "agent_audio_delta"
	case EventAgentAudioDone:
		return "agent_audio_done"
	case EventResponseDone:
		return "response_done"
	case EventUserSpeechStarted:
		return "user_speech_started"
	default:
		return fmt.Sprintf("unknown(%d)", k)
	}
}

// Package voice implements the semantic mute controller for duplex AI voice
// calls. While the agent's synthesized voice plays through the device
// speaker, an open microphone re-captures it and the backend hears the
// agent talking to itself. The controller closes the mic for the duration
// of agent speech and re-opens it after a short tail-protection window,
// without ever overriding a mute the user set by hand.
package voice

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/voicebridge/callkit-go/pkg/rtc"
)

const (
	// processingDelay covers the backend VAD settling after agent audio
	// stops reporting.
	processingDelay = 100 * time.Millisecond

	// tailProtection covers the reverberant tail of the agent's voice
	// still audible after playback ends.
	tailProtection = 100 * time.Millisecond

	// UnmuteDelay is the full window the mic stays closed after the agent
	// finishes speaking. Shorter under-protects against echo; longer clips
	// the start of the user's next utterance.
	UnmuteDelay = processingDelay + tailProtection
)

// ErrNoAudioTracks is returned by Initialize when the supplied stream
// carries no audio tracks. The caller can continue in a degraded mode
// (no automatic muting) or retry after the transport renegotiates.
var ErrNoAudioTracks = errors.New("media stream has no audio tracks")

// MuteController owns the electrical state of a session's microphone
// tracks. One controller per conversation session; it is not reusable
// across sessions without a fresh Initialize.
//
// All decisions run synchronously inside HandleEvent or the unmute timer
// callback. Events arrive from the realtime transport and the timer fires
// on its own goroutine, so state is guarded by a mutex.
type MuteController struct {
	log   *slog.Logger
	sched Scheduler
	gate  *AudioGate

	mu            sync.Mutex
	tracks        []rtc.AudioTrack
	manualMuted   func() bool
	muted         bool
	agentSpeaking bool
	pending       Timer
	pendingSeq    uint64
	lastReason    string
}

// MuteControllerConfig configures a MuteController. All fields are
// optional.
type MuteControllerConfig struct {
	// Logger receives debug-level transition traces. Defaults to
	// slog.Default().
	Logger *slog.Logger

	// Scheduler provides the delayed-unmute timer. Defaults to wall-clock
	// time.AfterFunc; tests inject a virtual scheduler.
	Scheduler Scheduler

	// Gate, when set, is closed and opened in the same synchronous step
	// as every track enable/disable.
	Gate *AudioGate
}

// NewMuteController creates a controller in the idle, unmuted state.
func NewMuteController(cfg MuteControllerConfig) *MuteController {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	sched := cfg.Scheduler
	if sched == nil {
		sched = wallScheduler{}
	}
	return &MuteController{
		log:   log,
		sched: sched,
		gate:  cfg.Gate,
	}
}

// Initialize captures the stream's audio tracks. It does not mute or
// unmute anything by itself. Fails without mutation when the stream has
// no audio tracks.
func (c *MuteController) Initialize(stream rtc.MediaStream) error {
	if stream == nil {
		return ErrNoAudioTracks
	}
	tracks := stream.AudioTracks()
	if len(tracks) == 0 {
		return ErrNoAudioTracks
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.tracks = tracks

	c.log.Debug("mute controller initialized", slog.Int("audio_tracks", len(tracks)))
	return nil
}

// SetManualMuteCheck stores the predicate consulted at the moment any
// automatic unmute would take effect. The value is never cached: the user
// toggling mute mid-grace-period is honored at timer fire time. The
// predicate must not call back into the controller.
func (c *MuteController) SetManualMuteCheck(fn func() bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.manualMuted = fn
}

// HandleEvent is the single entry point for speech-activity signals.
// Unrecognized kinds are ignored; this path must never interrupt a live
// call.
func (c *MuteController) HandleEvent(kind EventKind) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch kind {
	case EventAgentAudioStarted, EventAgentAudioDelta:
		// New agent speech always wins over an in-flight unmute.
		c.cancelPendingLocked()
		c.agentSpeaking = true
		if !c.muted {
			c.applyMuteLocked(true, kind.String())
		} else {
			c.lastReason = kind.String()
		}

	case EventAgentAudioDone, EventResponseDone:
		c.agentSpeaking = false
		c.cancelPendingLocked()
		c.scheduleUnmuteLocked(kind)

	case EventUserSpeechStarted:
		// The user starting to talk outranks the tail-protection window.
		c.cancelPendingLocked()
		c.agentSpeaking = false
		if c.checkManualMuteLocked() {
			c.lastReason = "user speech started; manual mute held"
			return
		}
		c.applyMuteLocked(false, kind.String())

	default:
		c.log.Debug("ignoring unknown event kind", slog.String("kind", kind.String()))
	}
}

// ForceMute closes the mic immediately. The session layer calls this when
// the user toggles manual mute on. A pending delayed unmute is left in
// place: when it fires it consults the manual-mute predicate and abandons
// itself, which keeps the tail-protection window intact if the user
// un-mutes again right away.
func (c *MuteController) ForceMute(reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.applyMuteLocked(true, reason)
}

// ResumeListening re-opens the mic if nothing stands in the way: a
// speaking agent, a pending grace timer, or a manual mute that is still
// set all make it a no-op. The session layer calls this when the user
// toggles manual mute off.
func (c *MuteController) ResumeListening(reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.agentSpeaking || c.pending != nil || c.checkManualMuteLocked() {
		return
	}
	c.applyMuteLocked(false, reason)
}

// IsMuted reports the enforced electrical state of the owned tracks. It
// reflects intent even when no track was live to apply it to.
func (c *MuteController) IsMuted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.muted
}

// IsAgentSpeaking reports whether the agent's voice is considered audible.
func (c *MuteController) IsAgentSpeaking() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.agentSpeaking
}

// LastReason returns the trigger of the most recent transition. Diagnostic
// only; never consulted by decision logic.
func (c *MuteController) LastReason() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastReason
}

// Dispose cancels any pending timer and drops the track references.
// Idempotent; safe with no timer pending.
func (c *MuteController) Dispose() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelPendingLocked()
	c.tracks = nil
}

// scheduleUnmuteLocked arms the single delayed-unmute timer. Callers must
// cancel any existing timer first; the sequence number makes a superseded
// callback a no-op even if it was already in flight when Stop missed it.
func (c *MuteController) scheduleUnmuteLocked(kind EventKind) {
	c.pendingSeq++
	seq := c.pendingSeq
	c.pending = c.sched.AfterFunc(UnmuteDelay, func() {
		c.unmuteTimerFired(seq)
	})
	c.lastReason = kind.String() + "; unmute scheduled"

	c.log.Debug("delayed unmute scheduled",
		slog.String("trigger", kind.String()),
		slog.Duration("delay", UnmuteDelay))
}

func (c *MuteController) unmuteTimerFired(seq uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pending == nil || seq != c.pendingSeq {
		// Superseded or cancelled after firing; stale decision, drop it.
		return
	}
	c.pending = nil

	if c.checkManualMuteLocked() {
		c.lastReason = "delayed unmute abandoned; manual mute held"
		c.log.Debug("delayed unmute abandoned", slog.String("reason", c.lastReason))
		return
	}
	c.applyMuteLocked(false, "grace period elapsed")
}

func (c *MuteController) cancelPendingLocked() {
	if c.pending == nil {
		return
	}
	c.pending.Stop()
	c.pending = nil
	c.pendingSeq++
}

func (c *MuteController) checkManualMuteLocked() bool {
	if c.manualMuted == nil {
		return false
	}
	return c.manualMuted()
}

// applyMuteLocked flips every live track and records intent. Tracks whose
// transport already ended are skipped without error; other tracks or a
// reconnect may still be viable.
func (c *MuteController) applyMuteLocked(shouldMute bool, reason string) {
	applied := 0
	for _, t := range c.tracks {
		if t.State() != rtc.TrackStateLive {
			continue
		}
		t.SetEnabled(!shouldMute)
		applied++
	}

	c.muted = shouldMute
	c.lastReason = reason
	if c.gate != nil {
		c.gate.SetMuted(shouldMute)
	}

	c.log.Debug("mic state applied",
		slog.Bool("muted", shouldMute),
		slog.String("reason", reason),
		slog.Int("tracks_applied", applied))
}

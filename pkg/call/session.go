// Package call orchestrates one duplex voice conversation: it owns the
// mute controller, the user's manual-mute toggle, and the transport that
// delivers the agent's speech-activity events.
package call

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/voicebridge/callkit-go/internal/realtime"
	"github.com/voicebridge/callkit-go/pkg/rtc"
	"github.com/voicebridge/callkit-go/pkg/voice"
)

// Session is one conversation with the agent. Construct with NewSession,
// bind a microphone stream, start a transport, Close when the call ends.
// Sessions are not reusable.
type Session struct {
	// ID identifies the session in logs and backend requests.
	ID string

	logger     *slog.Logger
	controller *voice.MuteController
	gate       *voice.AudioGate

	// manualMuted is the user's explicit mute toggle. The controller reads
	// it through the predicate and never writes it.
	manualMuted atomic.Bool

	loop    *realtime.Loop
	room    *Room
	roomCfg RoomConfig
}

// SessionConfig configures a Session. Exactly one transport is chosen:
// RealtimeURL selects the websocket event transport, LiveKitURL the room
// transport. Both empty is valid for embedding the session behind a
// custom transport that calls HandleEvent directly.
type SessionConfig struct {
	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// RealtimeURL is the websocket endpoint of the agent backend.
	RealtimeURL string

	// LiveKitURL is the LiveKit server URL.
	LiveKitURL string

	// RoomName to join when using the LiveKit transport.
	RoomName string

	// Token authenticates either transport.
	Token string
}

// NewSession creates a session and wires its mute controller. The returned
// session is idle until Start.
func NewSession(cfg SessionConfig) (*Session, error) {
	if cfg.RealtimeURL != "" && cfg.LiveKitURL != "" {
		return nil, fmt.Errorf("at most one transport may be configured")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Session{
		ID:     uuid.NewString(),
		logger: logger,
		gate:   voice.NewAudioGate(),
	}
	s.controller = voice.NewMuteController(voice.MuteControllerConfig{
		Logger: logger,
		Gate:   s.gate,
	})
	s.controller.SetManualMuteCheck(s.manualMuted.Load)

	if cfg.RealtimeURL != "" {
		s.loop = realtime.NewLoop(realtime.Config{
			URL:      cfg.RealtimeURL,
			Token:    cfg.Token,
			Dispatch: s.HandleEvent,
		}, logger)
	}

	if cfg.LiveKitURL != "" {
		s.roomCfg = RoomConfig{
			URL:              cfg.LiveKitURL,
			Token:            cfg.Token,
			RoomName:         cfg.RoomName,
			OnSpeechActivity: s.HandleEvent,
		}
		room, err := NewRoom(context.Background(), s.roomCfg, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create room: %w", err)
		}
		s.room = room
	}

	logger.Info("Session created", slog.String("session_id", s.ID))
	return s, nil
}

// BindMicrophone hands the session's microphone stream to the mute
// controller. Required before Start for the websocket transport; the
// LiveKit transport binds its own published track during Start.
func (s *Session) BindMicrophone(stream rtc.MediaStream) error {
	return s.controller.Initialize(stream)
}

// Start runs the configured transport until the context is cancelled.
// With no transport configured it returns immediately.
func (s *Session) Start(ctx context.Context) error {
	switch {
	case s.loop != nil:
		return s.loop.Run(ctx)

	case s.room != nil:
		if err := s.room.Connect(s.roomCfg); err != nil {
			return err
		}
		if err := s.controller.Initialize(s.room.MicrophoneStream()); err != nil {
			return fmt.Errorf("failed to bind published microphone: %w", err)
		}
		<-ctx.Done()
		return ctx.Err()

	default:
		return nil
	}
}

// HandleEvent feeds one speech-activity event to the mute controller.
// Transports call this; embedders with their own signaling can too.
func (s *Session) HandleEvent(kind voice.EventKind) {
	s.controller.HandleEvent(kind)
}

// SetMicMuted applies the user's manual mute toggle. Muting is immediate;
// unmuting defers to the controller, which refuses while the agent is
// speaking or a grace period is pending.
func (s *Session) SetMicMuted(muted bool) {
	s.manualMuted.Store(muted)
	if muted {
		s.controller.ForceMute("manual mute toggled on")
	} else {
		s.controller.ResumeListening("manual mute toggled off")
	}

	s.logger.Debug("Manual mute toggled",
		slog.String("session_id", s.ID),
		slog.Bool("muted", muted))
}

// MicMuted reports the user's manual toggle state.
func (s *Session) MicMuted() bool {
	return s.manualMuted.Load()
}

// IsMuted reports the enforced electrical state for UI mute indicators.
func (s *Session) IsMuted() bool {
	return s.controller.IsMuted()
}

// AgentSpeaking reports whether the agent's voice is currently audible.
func (s *Session) AgentSpeaking() bool {
	return s.controller.IsAgentSpeaking()
}

// Gate returns the frame gate for the local capture pump.
func (s *Session) Gate() *voice.AudioGate {
	return s.gate
}

// CapturePump creates a pump wired to this session's gate. The capture
// layer pushes device frames into it; forwarded frames reach sink.
func (s *Session) CapturePump(sink func(*rtc.AudioFrame)) *CapturePump {
	return NewCapturePump(s.gate, sink, s.logger)
}

// Close releases the session's resources. Idempotent.
func (s *Session) Close() error {
	s.controller.Dispose()
	if s.room != nil {
		return s.room.Disconnect()
	}
	return nil
}

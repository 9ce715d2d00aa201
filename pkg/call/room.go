package call

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/livekit/protocol/livekit"
	lksdk "github.com/livekit/server-sdk-go"
	"github.com/pion/webrtc/v3"

	"github.com/voicebridge/callkit-go/internal/realtime"
	"github.com/voicebridge/callkit-go/pkg/rtc"
	"github.com/voicebridge/callkit-go/pkg/voice"
)

// RoomEventType represents the type of room event.
type RoomEventType string

const (
	// RoomEventParticipantConnected is fired when a participant joins the room
	RoomEventParticipantConnected RoomEventType = "participant_connected"

	// RoomEventParticipantDisconnected is fired when a participant leaves the room
	RoomEventParticipantDisconnected RoomEventType = "participant_disconnected"

	// RoomEventTrackSubscribed is fired when a remote track is subscribed
	RoomEventTrackSubscribed RoomEventType = "track_subscribed"

	// RoomEventTrackUnsubscribed is fired when a remote track is unsubscribed
	RoomEventTrackUnsubscribed RoomEventType = "track_unsubscribed"

	// RoomEventDataReceived is fired when data is received from a participant
	RoomEventDataReceived RoomEventType = "data_received"
)

// RoomEvent represents a room event with associated data.
type RoomEvent struct {
	Type        RoomEventType
	Timestamp   time.Time
	Participant *livekit.ParticipantInfo
	Track       *livekit.TrackInfo
	Data        []byte
}

// Room wraps the LiveKit room connection for the client side of a call.
// It publishes the local microphone, exposes the publication as an
// rtc.MediaStream the mute controller can own, and translates agent data
// messages into speech-activity events.
type Room struct {
	// Events carries room-level events for the UI layer.
	Events chan *RoomEvent

	room   *lksdk.Room
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	// onSpeechActivity receives decoded agent speech-activity events.
	onSpeechActivity func(voice.EventKind)

	mu           sync.RWMutex
	connected    bool
	eventsClosed bool
	micTrack     *rtc.LiveKitTrack
}

// RoomConfig contains configuration for connecting to a room.
type RoomConfig struct {
	// URL of the LiveKit server
	URL string

	// Token for authentication
	Token string

	// RoomName to join
	RoomName string

	// EventBufferSize for the Events channel
	EventBufferSize int

	// OnSpeechActivity receives agent speech-activity events decoded from
	// data messages.
	OnSpeechActivity func(voice.EventKind)
}

// NewRoom creates a new Room wrapper with the given configuration.
func NewRoom(ctx context.Context, config RoomConfig, logger *slog.Logger) (*Room, error) {
	if config.URL == "" {
		return nil, fmt.Errorf("URL is required")
	}
	if config.Token == "" {
		return nil, fmt.Errorf("token is required")
	}
	if config.RoomName == "" {
		return nil, fmt.Errorf("room name is required")
	}

	bufferSize := config.EventBufferSize
	if bufferSize == 0 {
		bufferSize = 100
	}

	roomCtx, cancel := context.WithCancel(ctx)

	r := &Room{
		Events:           make(chan *RoomEvent, bufferSize),
		logger:           logger,
		ctx:              roomCtx,
		cancel:           cancel,
		onSpeechActivity: config.OnSpeechActivity,
	}

	return r, nil
}

// Connect establishes the connection and publishes the local microphone
// track.
func (r *Room) Connect(config RoomConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.connected {
		return fmt.Errorf("room is already connected")
	}

	callback := &lksdk.RoomCallback{
		OnParticipantConnected:    r.onParticipantConnected,
		OnParticipantDisconnected: r.onParticipantDisconnected,
		ParticipantCallback: lksdk.ParticipantCallback{
			OnTrackSubscribed:   r.onTrackSubscribed,
			OnTrackUnsubscribed: r.onTrackUnsubscribed,
			OnDataReceived:      r.onDataReceived,
		},
	}

	room, err := lksdk.ConnectToRoomWithToken(config.URL, config.Token, callback)
	if err != nil {
		return fmt.Errorf("failed to connect to room: %w", err)
	}
	r.room = room

	if err := r.publishMicrophoneLocked(); err != nil {
		room.Disconnect()
		r.room = nil
		return err
	}

	r.connected = true

	r.logger.Info("Connected to LiveKit room",
		slog.String("room_name", config.RoomName),
		slog.String("url", config.URL))

	return nil
}

// publishMicrophoneLocked publishes an Opus microphone track and wraps the
// publication for the mute controller.
func (r *Room) publishMicrophoneLocked() error {
	track, err := lksdk.NewLocalSampleTrack(webrtc.RTPCodecCapability{
		MimeType:  webrtc.MimeTypeOpus,
		ClockRate: 48000,
		Channels:  1,
	})
	if err != nil {
		return fmt.Errorf("failed to create microphone track: %w", err)
	}

	pub, err := r.room.LocalParticipant.PublishTrack(track, &lksdk.TrackPublicationOptions{
		Name:   "microphone",
		Source: livekit.TrackSource_MICROPHONE,
	})
	if err != nil {
		return fmt.Errorf("failed to publish microphone track: %w", err)
	}

	r.micTrack = rtc.NewLiveKitTrack(pub)

	r.logger.Info("Microphone track published", slog.String("track_sid", pub.SID()))
	return nil
}

// MicrophoneStream returns the published microphone as a media stream for
// MuteController.Initialize. Nil before Connect succeeds.
func (r *Room) MicrophoneStream() rtc.MediaStream {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.micTrack == nil {
		return nil
	}
	return rtc.NewStaticStream(r.micTrack)
}

// Disconnect closes the room connection and cleans up resources.
func (r *Room) Disconnect() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.cancel()

	if r.connected {
		r.connected = false

		if r.room != nil {
			r.room.Disconnect()
		}

		r.logger.Info("Disconnected from LiveKit room")
	}

	if !r.eventsClosed {
		close(r.Events)
		r.eventsClosed = true
	}

	return nil
}

// IsConnected returns true if the room is currently connected.
func (r *Room) IsConnected() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.connected
}

// Event handlers

func (r *Room) onParticipantConnected(participant *lksdk.RemoteParticipant) {
	info := &livekit.ParticipantInfo{
		Sid:      participant.SID(),
		Identity: participant.Identity(),
		State:    livekit.ParticipantInfo_ACTIVE,
	}

	r.sendEvent(&RoomEvent{
		Type:        RoomEventParticipantConnected,
		Timestamp:   time.Now(),
		Participant: info,
	})

	r.logger.Info("Participant connected",
		slog.String("identity", participant.Identity()),
		slog.String("sid", participant.SID()))
}

func (r *Room) onParticipantDisconnected(participant *lksdk.RemoteParticipant) {
	info := &livekit.ParticipantInfo{
		Sid:      participant.SID(),
		Identity: participant.Identity(),
		State:    livekit.ParticipantInfo_DISCONNECTED,
	}

	r.sendEvent(&RoomEvent{
		Type:        RoomEventParticipantDisconnected,
		Timestamp:   time.Now(),
		Participant: info,
	})

	r.logger.Info("Participant disconnected",
		slog.String("identity", participant.Identity()),
		slog.String("sid", participant.SID()))
}

func (r *Room) onTrackSubscribed(track *webrtc.TrackRemote, publication *lksdk.RemoteTrackPublication, participant *lksdk.RemoteParticipant) {
	trackInfo := &livekit.TrackInfo{
		Sid:  publication.SID(),
		Name: publication.Name(),
		Type: publication.Kind().ProtoType(),
	}

	r.sendEvent(&RoomEvent{
		Type:      RoomEventTrackSubscribed,
		Timestamp: time.Now(),
		Track:     trackInfo,
	})

	r.logger.Info("Track subscribed",
		slog.String("participant", participant.Identity()),
		slog.String("track_sid", publication.SID()),
		slog.String("track_type", publication.Kind().String()))
}

func (r *Room) onTrackUnsubscribed(track *webrtc.TrackRemote, publication *lksdk.RemoteTrackPublication, participant *lksdk.RemoteParticipant) {
	trackInfo := &livekit.TrackInfo{
		Sid:  publication.SID(),
		Name: publication.Name(),
		Type: publication.Kind().ProtoType(),
	}

	r.sendEvent(&RoomEvent{
		Type:      RoomEventTrackUnsubscribed,
		Timestamp: time.Now(),
		Track:     trackInfo,
	})
}

// onDataReceived decodes agent speech-activity events from data messages.
// The agent publishes the same JSON envelope the websocket transport uses.
func (r *Room) onDataReceived(data []byte, participant *lksdk.RemoteParticipant) {
	r.sendEvent(&RoomEvent{
		Type:      RoomEventDataReceived,
		Timestamp: time.Now(),
		Data:      data,
	})

	var event realtime.ServerEvent
	if err := json.Unmarshal(data, &event); err != nil {
		r.logger.Debug("Ignoring non-JSON data message",
			slog.String("participant", participant.Identity()))
		return
	}

	kind, ok := realtime.MuteEventKind(event.Type)
	if !ok {
		r.logger.Debug("Ignoring data message", slog.String("type", event.Type))
		return
	}

	if r.onSpeechActivity != nil {
		r.onSpeechActivity(kind)
	}
}

// sendEvent sends an event to the Events channel if the room is still open.
func (r *Room) sendEvent(event *RoomEvent) {
	r.mu.RLock()
	closed := r.eventsClosed
	r.mu.RUnlock()

	if closed {
		return
	}

	select {
	case r.Events <- event:
	case <-r.ctx.Done():
		return
	default:
		// Channel is full, drop the event rather than block a callback.
		r.logger.Warn("Events channel is full, dropping event",
			slog.String("event_type", string(event.Type)))
	}
}

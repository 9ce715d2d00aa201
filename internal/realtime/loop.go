// Package realtime maintains the websocket connection to the agent
// backend and forwards its speech-activity events into the mute
// controller. It is the in-process stand-in for whatever media-signaling
// layer the application embeds the session in.
package realtime

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/voicebridge/callkit-go/pkg/voice"
)

// Loop owns one realtime connection for the lifetime of a session,
// reconnecting with exponential backoff when the connection drops.
type Loop struct {
	url            string
	token          string
	wsClient       *WebSocketClient
	logger         *slog.Logger
	dispatch       func(voice.EventKind)
	in             chan *ServerEvent
	out            chan *ClientCommand
	mu             sync.RWMutex
	connected      bool
	closed         bool
	backoffAttempt int
}

// Config configures a realtime Loop.
type Config struct {
	URL   string
	Token string

	// Dispatch receives every speech-activity event in arrival order.
	Dispatch func(voice.EventKind)
}

func NewLoop(config Config, logger *slog.Logger) *Loop {
	return &Loop{
		url:      config.URL,
		token:    config.Token,
		logger:   logger,
		dispatch: config.Dispatch,
		in:       make(chan *ServerEvent, 100),
		out:      make(chan *ClientCommand, 100),
		wsClient: NewWebSocketClient(config.URL, config.Token, logger),
	}
}

// Send queues a command for the backend. Drops the command if the loop has
// shut down or the queue is full rather than blocking the caller.
func (l *Loop) Send(cmd *ClientCommand) {
	l.mu.RLock()
	closed := l.closed
	l.mu.RUnlock()
	if closed {
		l.logger.Warn("Loop is shut down, dropping command", slog.String("type", cmd.Type))
		return
	}

	select {
	case l.out <- cmd:
	default:
		l.logger.Warn("Command queue full, dropping command", slog.String("type", cmd.Type))
	}
}

// Run connects and processes events until the context is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	l.logger.Info("Starting realtime loop", slog.String("url", l.url))

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("Realtime loop shutting down")
			return l.shutdown()
		default:
			if err := l.connectAndRun(ctx); err != nil {
				l.logger.Error("Realtime connection failed", slog.String("error", err.Error()))

				if err := l.backoffDelay(ctx); err != nil {
					return err
				}
				continue
			}
		}
	}
}

func (l *Loop) connectAndRun(ctx context.Context) error {
	if err := l.wsClient.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer func() {
		if err := l.wsClient.Close(); err != nil {
			l.logger.Error("Error closing websocket during cleanup", slog.String("error", err.Error()))
		}
	}()

	l.setConnected(true)
	defer l.setConnected(false)

	readCtx, readCancel := context.WithCancel(ctx)
	defer readCancel()

	// A reader parked on an idle socket does not observe context
	// cancellation; closing the connection is what unblocks it.
	go func() {
		<-readCtx.Done()
		if err := l.wsClient.Close(); err != nil {
			l.logger.Debug("Error closing websocket on cancel", slog.String("error", err.Error()))
		}
	}()

	var wg sync.WaitGroup
	errCh := make(chan error, 2)

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := l.readEvents(readCtx); err != nil {
			errCh <- fmt.Errorf("read events: %w", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := l.writeCommands(readCtx); err != nil {
			errCh <- fmt.Errorf("write commands: %w", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		l.processEvents(readCtx)
	}()

	select {
	case err := <-errCh:
		readCancel()
		wg.Wait()
		if ctx.Err() != nil {
			// Cancellation closed the socket; the read error is fallout,
			// not a connection failure to back off from.
			return nil
		}
		return err
	case <-ctx.Done():
		readCancel()
		wg.Wait()
		return nil
	}
}

func (l *Loop) readEvents(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
			event, err := l.wsClient.ReadEvent(ctx)
			if err != nil {
				return err
			}

			select {
			case l.in <- event:
			case <-ctx.Done():
				return nil
			}
		}
	}
}

func (l *Loop) writeCommands(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case cmd := <-l.out:
			if err := l.wsClient.WriteCommand(ctx, cmd); err != nil {
				return err
			}
		}
	}
}

func (l *Loop) processEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-l.in:
			l.handleEvent(ctx, event)
		}
	}
}

func (l *Loop) handleEvent(ctx context.Context, event *ServerEvent) {
	l.logger.Debug("Processing event", slog.String("type", event.Type))

	if kind, ok := MuteEventKind(event.Type); ok {
		if l.dispatch != nil {
			l.dispatch(kind)
		}
		return
	}

	switch event.Type {
	case EventTypePing:
		pong := &ClientCommand{
			Type: EventTypePong,
			Data: event.Data,
		}
		select {
		case l.out <- pong:
		case <-ctx.Done():
		default:
			// Queue full, skip the keepalive; the next ping will retry.
		}

	default:
		l.logger.Debug("Ignoring unknown event type", slog.String("type", event.Type))
	}
}

func (l *Loop) backoffDelay(ctx context.Context) error {
	l.mu.Lock()
	l.backoffAttempt++
	attempt := l.backoffAttempt
	l.mu.Unlock()

	// Exponential backoff: 1s, 2s, 4s, 8s, up to 10s max
	delay := time.Duration(math.Min(math.Pow(2, float64(attempt-1)), 10)) * time.Second

	l.logger.Info("Reconnecting with backoff",
		slog.Int("attempt", attempt),
		slog.Duration("delay", delay))

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Loop) setConnected(connected bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if connected && !l.connected {
		// Reset backoff on successful connection
		l.backoffAttempt = 0
		l.logger.Info("Realtime loop connected")
	}

	l.connected = connected
}

func (l *Loop) IsConnected() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.connected
}

func (l *Loop) shutdown() error {
	l.logger.Info("Shutting down realtime loop")

	// The out channel is left open so a late Send never panics; queued
	// commands are simply never written.
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()

	if err := l.wsClient.Close(); err != nil {
		l.logger.Error("Error closing websocket", slog.String("error", err.Error()))
		return err
	}

	return nil
}

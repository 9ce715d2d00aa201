package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/voicebridge/callkit-go/pkg/call"
	"github.com/voicebridge/callkit-go/pkg/rtc"
	"github.com/voicebridge/callkit-go/pkg/version"
	"github.com/voicebridge/callkit-go/pkg/voice"
)

var rootCmd = &cobra.Command{
	Use:   "callkit",
	Short: "CallKit - client-side call control for realtime voice agents",
	Long: `callkit runs the client side of a duplex voice conversation with an AI
agent: it keeps the microphone muted while the agent speaks and re-opens
it once the agent's audio has finished playing out.`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.GetVersionInfo())
	},
}

var callCmd = &cobra.Command{
	Use:   "call",
	Short: "Call session commands",
}

var callConnectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Run a session against a realtime websocket backend",
	RunE: func(cmd *cobra.Command, args []string) error {
		url, _ := cmd.Flags().GetString("url")
		token, _ := cmd.Flags().GetString("token")

		logger := setupLogger()
		logger.Info("Starting realtime session",
			slog.String("service", "callkit"),
			slog.String("version", version.Version),
			slog.String("commit", version.GitCommit),
			slog.String("url", url))

		if url == "" {
			return fmt.Errorf("--url is required")
		}
		if token == "" {
			return fmt.Errorf("--token is required")
		}

		// Create context that cancels on interrupt
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		session, err := call.NewSession(call.SessionConfig{
			Logger:      logger,
			RealtimeURL: url,
			Token:       token,
		})
		if err != nil {
			return fmt.Errorf("failed to create session: %w", err)
		}
		defer session.Close()

		// The CLI has no real capture device; a memory track stands in so
		// the controller has something to gate.
		mic := rtc.NewMemoryTrack("cli-microphone")
		if err := session.BindMicrophone(rtc.NewStaticStream(mic)); err != nil {
			return err
		}

		if err := session.Start(ctx); err != nil {
			logger.Error("Session failed", slog.String("error", err.Error()))
			return err
		}
		return nil
	},
}

var callJoinCmd = &cobra.Command{
	Use:   "join",
	Short: "Join a LiveKit room as the calling participant",
	RunE: func(cmd *cobra.Command, args []string) error {
		url, _ := cmd.Flags().GetString("url")
		token, _ := cmd.Flags().GetString("token")
		roomName, _ := cmd.Flags().GetString("room")

		logger := setupLogger()
		logger.Info("Joining room",
			slog.String("service", "callkit"),
			slog.String("version", version.Version),
			slog.String("room", roomName),
			slog.String("url", url))

		if url == "" {
			return fmt.Errorf("--url is required")
		}
		if token == "" {
			return fmt.Errorf("--token is required")
		}
		if roomName == "" {
			return fmt.Errorf("--room is required")
		}

		// Create context that cancels on interrupt
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		session, err := call.NewSession(call.SessionConfig{
			Logger:     logger,
			LiveKitURL: url,
			RoomName:   roomName,
			Token:      token,
		})
		if err != nil {
			return fmt.Errorf("failed to create session: %w", err)
		}
		defer session.Close()

		if err := session.Start(ctx); err != nil && ctx.Err() == nil {
			logger.Error("Session failed", slog.String("error", err.Error()))
			return err
		}
		return nil
	},
}

var callSimulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Drive a session with a scripted event sequence",
	Long: `Reads one event name per line from --script (or stdin) and feeds it to
an in-memory session, printing the mute state after each step. Event
names: agent_audio_started, agent_audio_delta, agent_audio_done,
response_done, user_speech_started, mic_on, mic_off, wait, audio_frame
(pushes a captured frame through the gate and reports whether it was
forwarded).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		scriptPath, _ := cmd.Flags().GetString("script")

		logger := setupLogger()
		logger.Info("Starting simulation",
			slog.String("service", "callkit"),
			slog.String("script", scriptPath))

		in := os.Stdin
		if scriptPath != "" {
			f, err := os.Open(scriptPath)
			if err != nil {
				return fmt.Errorf("failed to open script: %w", err)
			}
			defer f.Close()
			in = f
		}

		return runSimulation(in, logger)
	},
}

func setupLogger() *slog.Logger {
	logFormat := os.Getenv("CK_LOG_FORMAT")
	logLevel := os.Getenv("CK_LOG_LEVEL")

	var handler slog.Handler
	opts := &slog.HandlerOptions{}

	// Set log level
	switch logLevel {
	case "debug":
		opts.Level = slog.LevelDebug
	case "info":
		opts.Level = slog.LevelInfo
	case "warn":
		opts.Level = slog.LevelWarn
	case "error":
		opts.Level = slog.LevelError
	default:
		opts.Level = slog.LevelInfo
	}

	// Choose handler based on format
	if logFormat == "console" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		// Default to JSON
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// runSimulation feeds scripted events through a transportless session so
// the timing behavior can be observed without a backend.
func runSimulation(in *os.File, logger *slog.Logger) error {
	session, err := call.NewSession(call.SessionConfig{Logger: logger})
	if err != nil {
		return err
	}
	defer session.Close()

	mic := rtc.NewMemoryTrack("sim-microphone")
	if err := session.BindMicrophone(rtc.NewStaticStream(mic)); err != nil {
		return err
	}

	pump := session.CapturePump(nil)
	var captured time.Duration

	events := map[string]voice.EventKind{
		"agent_audio_started": voice.EventAgentAudioStarted,
		"agent_audio_delta":   voice.EventAgentAudioDelta,
		"agent_audio_done":    voice.EventAgentAudioDone,
		"response_done":       voice.EventResponseDone,
		"user_speech_started": voice.EventUserSpeechStarted,
	}

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		switch line {
		case "mic_on":
			session.SetMicMuted(false)
		case "mic_off":
			session.SetMicMuted(true)
		case "wait":
			// Let a pending grace period run out.
			time.Sleep(voice.UnmuteDelay + 20*time.Millisecond)
		case "audio_frame":
			// 10ms of silence at 48kHz mono, like one device capture tick.
			frame, err := rtc.NewAudioFrame(make([]byte, 960), 48000, 1, captured)
			if err != nil {
				return err
			}
			captured += frame.Duration()
			if pump.Push(frame) {
				fmt.Println("audio_frame forwarded")
			} else {
				fmt.Println("audio_frame dropped (gate closed)")
			}
		default:
			kind, ok := events[line]
			if !ok {
				logger.Warn("Unknown event in script", slog.String("event", line))
				continue
			}
			session.HandleEvent(kind)
		}

		fmt.Printf("%-22s muted=%-5v agent_speaking=%-5v mic_enabled=%v\n",
			line, session.IsMuted(), session.AgentSpeaking(), mic.Enabled())
	}
	return scanner.Err()
}

func init() {
	callConnectCmd.Flags().String("url", "", "Realtime backend WebSocket URL")
	callConnectCmd.Flags().String("token", "", "Backend auth token")

	callJoinCmd.Flags().String("url", "", "LiveKit server WebSocket URL")
	callJoinCmd.Flags().String("token", "", "LiveKit room token")
	callJoinCmd.Flags().String("room", "", "Room name to join")

	callSimulateCmd.Flags().String("script", "", "Path to event script (default: stdin)")

	callCmd.AddCommand(callConnectCmd, callJoinCmd, callSimulateCmd)
	rootCmd.AddCommand(versionCmd, callCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

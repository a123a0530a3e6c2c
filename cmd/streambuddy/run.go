package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	orchestration "github.com/kingbootoshi/Stream-Buddy/core"
	"github.com/kingbootoshi/Stream-Buddy/core/audio/miniaudio"
	"github.com/kingbootoshi/Stream-Buddy/core/audio/portaudio"
	"github.com/kingbootoshi/Stream-Buddy/core/broadcast"
	"github.com/kingbootoshi/Stream-Buddy/core/integrations/twitch"
	"github.com/kingbootoshi/Stream-Buddy/core/speechtotext/deepgram"
	"github.com/kingbootoshi/Stream-Buddy/core/texttospeech/elevenlabs"
	"github.com/kingbootoshi/Stream-Buddy/internal/config"
	"github.com/kingbootoshi/Stream-Buddy/internal/metrics"
	"github.com/kingbootoshi/Stream-Buddy/internal/server"
	"github.com/kingbootoshi/Stream-Buddy/internal/tui"
)

var (
	configPath string
	withTUI    bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the co-host: voice and chat in, arbitrated spoken replies out",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return run(cmd.Context())
	},
}

func init() {
	runCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to the config file")
	runCmd.Flags().BoolVar(&withTUI, "tui", false, "show the terminal dashboard")
	rootCmd.AddCommand(runCmd)
}

func run(parent context.Context) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	m := metrics.New()
	bus := broadcast.NewBus()
	defer bus.Close()

	var chatClient *twitch.Client
	if cfg.Twitch.Enabled {
		client, err := twitch.NewClient(cfg.Twitch.Channel, cfg.Twitch.BotUser, cfg.Twitch.Token(),
			twitch.WithKeywords(cfg.Twitch.Keywords...))
		if err != nil {
			return err
		}
		chatClient = client
	}

	// One device handle covers both microphone capture and reply playback.
	var audioClient audioDevice
	if cfg.STT.Enabled || cfg.TTS.Enabled {
		client, err := openAudioDevice(cfg.Audio)
		if err != nil {
			return fmt.Errorf("failed to open audio device: %w", err)
		}
		audioClient = client
	}

	responder, err := buildResponder(ctx, cfg, chatClient, audioClient)
	if err != nil {
		return err
	}

	orchestratorOptions := []orchestration.OrchestratorOption{
		orchestration.WithResponder(responder),
		orchestration.WithBroadcastBus(bus),
		orchestration.WithStreamerName(cfg.Speaker),
		orchestration.WithMetrics(m),
		orchestration.WithSessionTools(),
		orchestration.WithArbiterOptions(
			orchestration.WithFairnessThreshold(cfg.Arbiter.FairnessAfterVoice),
			orchestration.WithTurnTimeout(cfg.Arbiter.TurnTimeout()),
		),
		orchestration.WithChatAdapterOptions(
			orchestration.WithCooldown(cfg.Twitch.Cooldown()),
		),
	}
	if cfg.STT.Enabled {
		orchestratorOptions = append(orchestratorOptions,
			orchestration.WithSpeechToTextClient(deepgram.NewTranscriptionClient()),
			orchestration.WithAudioInput(audioClient),
		)
	}

	orchestrator := orchestration.NewOrchestrator(orchestratorOptions...)
	if err := orchestrator.Orchestrate(ctx); err != nil {
		return fmt.Errorf("failed to start orchestrator: %w", err)
	}
	defer orchestrator.Close()

	controlPlane := server.New(cfg.Server.Addr, cfg.Server.OverlayKey(),
		orchestrator.State(), bus, server.WithMetrics(m))
	controlPlane.Start()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := controlPlane.Stop(shutdownCtx); err != nil {
			slog.Warn("failed to stop control-plane server", "error", err)
		}
	}()

	if chatClient != nil {
		chatClient.SetMessageCallback(orchestrator.IngestChat)
		if err := chatClient.Connect(ctx); err != nil {
			return err
		}
		defer chatClient.Close()
		go func() {
			if err := chatClient.Listen(ctx); err != nil {
				slog.Error("twitch chat connection lost", "error", err)
			}
		}()
	}

	if withTUI {
		return tui.Run(ctx, orchestrator.State(), bus,
			tui.WithQueueDepths(orchestrator.QueueDepths))
	}

	slog.Info("stream buddy is live", "addr", cfg.Server.Addr)
	<-ctx.Done()
	return nil
}

// audioDevice is what both backends provide: microphone capture for the
// voice path and playback for synthesized replies.
type audioDevice interface {
	orchestration.AudioInput
	orchestration.AudioOutput
}

func openAudioDevice(cfg config.AudioConfig) (audioDevice, error) {
	if cfg.Backend == "portaudio" {
		return portaudio.NewClient(cfg.BufferSize)
	}
	return miniaudio.NewClient()
}

// buildResponder wires the reply pipeline: OpenRouter for generation,
// ElevenLabs for speech, playback on the shared audio device.
func buildResponder(ctx context.Context, cfg *config.Config, chatClient *twitch.Client, audioClient audioDevice) (*orchestration.PipelineResponder, error) {
	systemPrompt, err := cfg.LLM.SystemPrompt()
	if err != nil {
		return nil, err
	}

	responderOptions := []orchestration.ResponderOption{}

	if cfg.TTS.Enabled {
		voiceID := cfg.TTS.VoiceID
		if voiceID == "" {
			voiceID = elevenlabs.DefaultVoiceID
		}
		synthesizer, err := elevenlabs.NewTextToSpeechClient(ctx, voiceID)
		if err != nil {
			return nil, fmt.Errorf("failed to set up speech synthesis: %w", err)
		}
		responderOptions = append(responderOptions,
			orchestration.WithSpeechSynthesizer(synthesizer),
			orchestration.WithAudioOutput(audioClient),
		)
	}

	if chatClient != nil {
		responderOptions = append(responderOptions, orchestration.WithChatReplyCallback(func(user, reply string) {
			if err := chatClient.Echo(user, reply); err != nil {
				slog.Warn("failed to echo reply to chat", "error", err)
			}
		}))
	}

	return orchestration.NewPipelineResponder(cfg.LLM.APIKey(), cfg.LLM.Model, systemPrompt, responderOptions...), nil
}

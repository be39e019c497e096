// Command companion runs a spoken wellness conversation in the terminal.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	dialogue "github.com/koscakluka/ema-companion/core"
	"github.com/koscakluka/ema-companion/core/audio"
	"github.com/koscakluka/ema-companion/core/audio/miniaudio"
	"github.com/koscakluka/ema-companion/core/audio/portaudio"
	"github.com/koscakluka/ema-companion/core/events"
	"github.com/koscakluka/ema-companion/core/responders"
	"github.com/koscakluka/ema-companion/core/responders/groq"
	"github.com/koscakluka/ema-companion/core/responders/openai"
	"github.com/koscakluka/ema-companion/core/responders/scripted"
	sttdeepgram "github.com/koscakluka/ema-companion/core/speechtotext/deepgram"
	"github.com/koscakluka/ema-companion/core/texttospeech"
	ttsdeepgram "github.com/koscakluka/ema-companion/core/texttospeech/deepgram"
	"github.com/koscakluka/ema-companion/internal/config"
)

type device interface {
	audio.Capture
	audio.Playback
	Close() error
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// The terminal belongs to the UI, so logs go to a file.
	logFile, err := os.OpenFile("companion.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer logFile.Close()
	slog.SetDefault(slog.New(slog.NewTextHandler(logFile, nil)))

	dev, err := openDevice(cfg.Audio)
	if err != nil {
		return err
	}
	defer dev.Close()

	stt := sttdeepgram.NewTranscriptionClient(cfg.DeepgramAPIKey)
	defer stt.Close()

	ttsOpts := []ttsdeepgram.ClientOption{}
	if cfg.Voice != "" {
		ttsOpts = append(ttsOpts, ttsdeepgram.WithDefaultVoice(ttsdeepgram.Voice(cfg.Voice)))
	}
	tts, err := ttsdeepgram.NewTextToSpeechClient(cfg.DeepgramAPIKey, dev, ttsOpts...)
	if err != nil {
		return fmt.Errorf("failed to create text to speech client: %w", err)
	}

	generator, err := newGenerator(cfg)
	if err != nil {
		return err
	}

	var program *tea.Program
	opts := []dialogue.ControllerOption{
		dialogue.WithSpeechToText(stt),
		dialogue.WithTextToSpeech(tts),
		dialogue.WithResponseGenerator(generator),
		dialogue.WithSilenceInterval(cfg.SilenceInterval),
		dialogue.WithResponseTimeout(cfg.ResponseTimeout),
		dialogue.WithLanguage(cfg.Language),
		dialogue.WithVoice(texttospeech.Voice{Name: cfg.Voice, Language: cfg.Language, Rate: 1, Pitch: 1}),
		dialogue.WithEventCallback(func(event events.Event) {
			slog.Debug("dialogue event", "namespace", event.Kind().Namespace(), "kind", event.Kind())
			if program != nil {
				program.Send(eventMsg{event: event})
			}
		}),
	}
	switch {
	case cfg.NoGreeting:
		opts = append(opts, dialogue.WithoutGreeting())
	default:
		opts = append(opts, dialogue.WithGreeting(cfg.Greeting))
	}
	controller := dialogue.NewController(opts...)
	defer controller.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := dev.StartCapture(ctx, func(chunk []byte) {
		if err := stt.SendAudio(chunk); err != nil {
			slog.Warn("failed to forward captured audio", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("failed to start capture: %w", err)
	}
	defer dev.StopCapture()

	program = tea.NewProgram(newModel(ctx, controller), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run terminal UI: %w", err)
	}
	return nil
}

func openDevice(backend string) (device, error) {
	switch backend {
	case config.AudioPortaudio:
		dev, err := portaudio.NewClient(portaudio.DefaultFramesPerBuffer)
		if err != nil {
			return nil, fmt.Errorf("failed to open portaudio device: %w", err)
		}
		return dev, nil
	default:
		dev, err := miniaudio.NewClient()
		if err != nil {
			return nil, fmt.Errorf("failed to open miniaudio device: %w", err)
		}
		return dev, nil
	}
}

func newGenerator(cfg config.Config) (responders.Generator, error) {
	switch cfg.Responder {
	case config.ResponderOpenAI:
		opts := []openai.ResponderOption{}
		if cfg.OpenAIModel != "" {
			opts = append(opts, openai.WithModel(cfg.OpenAIModel))
		}
		if cfg.OpenAIBaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.OpenAIBaseURL))
		}
		responder, err := openai.NewResponder(cfg.OpenAIAPIKey, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create openai responder: %w", err)
		}
		return responder, nil

	case config.ResponderGroq:
		opts := []groq.ResponderOption{}
		if cfg.GroqModel != "" {
			opts = append(opts, groq.WithModel(cfg.GroqModel))
		}
		responder, err := groq.NewResponder(cfg.GroqAPIKey, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create groq responder: %w", err)
		}
		return responder, nil

	default:
		return scripted.NewResponder(), nil
	}
}

// Package config loads the companion binary's settings from a .env file, the
// environment and command line flags, in increasing order of precedence.
package config

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	ResponderOpenAI   = "openai"
	ResponderScripted = "scripted"
	ResponderGroq     = "groq"

	AudioMiniaudio = "miniaudio"
	AudioPortaudio = "portaudio"
)

type Config struct {
	DeepgramAPIKey string
	OpenAIAPIKey   string
	OpenAIModel    string
	OpenAIBaseURL  string
	GroqAPIKey     string
	GroqModel      string

	Responder string
	Audio     string

	SilenceInterval time.Duration
	ResponseTimeout time.Duration
	Voice           string
	Language        string
	// Greeting is spoken instead of a generated greeting when set.
	Greeting        string
	NoGreeting      bool
}

var ErrMissingDeepgramKey = errors.New("DEEPGRAM_API_KEY is required")

// Load reads the .env file in the working directory when present, then the
// environment, then args.
func Load(args []string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to load .env file", "error", err)
	}
	return parse(args)
}

func parse(args []string) (Config, error) {
	silence, err := durationMs("COMPANION_SILENCE_MS", 1500*time.Millisecond)
	if err != nil {
		return Config{}, err
	}
	timeout, err := durationMs("COMPANION_RESPONSE_TIMEOUT_MS", 20*time.Second)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		DeepgramAPIKey: os.Getenv("DEEPGRAM_API_KEY"),
		OpenAIAPIKey:   os.Getenv("OPENAI_API_KEY"),
		GroqAPIKey:     os.Getenv("GROQ_API_KEY"),
	}

	flags := flag.NewFlagSet("companion", flag.ContinueOnError)
	flags.StringVar(&cfg.OpenAIModel, "model", getEnv("OPENAI_MODEL", ""), "OpenAI model used for replies")
	flags.StringVar(&cfg.OpenAIBaseURL, "openai-url", getEnv("OPENAI_BASE_URL", ""), "OpenAI compatible API base URL")
	flags.StringVar(&cfg.GroqModel, "groq-model", getEnv("GROQ_MODEL", ""), "Groq model used for replies")
	flags.StringVar(&cfg.Responder, "responder", getEnv("COMPANION_RESPONDER", ""), "reply generator: openai, groq or scripted")
	flags.StringVar(&cfg.Audio, "audio", getEnv("COMPANION_AUDIO", AudioMiniaudio), "audio backend: miniaudio or portaudio")
	flags.DurationVar(&cfg.SilenceInterval, "silence", silence, "silence that ends an utterance")
	flags.DurationVar(&cfg.ResponseTimeout, "response-timeout", timeout, "maximum time to wait for a reply")
	flags.StringVar(&cfg.Voice, "voice", getEnv("COMPANION_VOICE", ""), "synthesis voice name")
	flags.StringVar(&cfg.Language, "language", getEnv("COMPANION_LANGUAGE", "en-US"), "conversation language")
	flags.StringVar(&cfg.Greeting, "greeting", getEnv("COMPANION_GREETING", ""), "static greeting, generated when empty")
	flags.BoolVar(&cfg.NoGreeting, "no-greeting", getEnv("COMPANION_NO_GREETING", "") == "true", "start listening without a greeting")
	if err := flags.Parse(args); err != nil {
		return Config{}, err
	}

	if cfg.Responder == "" {
		switch {
		case cfg.OpenAIAPIKey != "":
			cfg.Responder = ResponderOpenAI
		case cfg.GroqAPIKey != "":
			cfg.Responder = ResponderGroq
		default:
			cfg.Responder = ResponderScripted
		}
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	var errs []error
	if c.DeepgramAPIKey == "" {
		errs = append(errs, ErrMissingDeepgramKey)
	}
	switch c.Responder {
	case ResponderScripted:
	case ResponderOpenAI:
		if c.OpenAIAPIKey == "" {
			errs = append(errs, fmt.Errorf("OPENAI_API_KEY is required for the %s responder", c.Responder))
		}
	case ResponderGroq:
		if c.GroqAPIKey == "" {
			errs = append(errs, fmt.Errorf("GROQ_API_KEY is required for the %s responder", c.Responder))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown responder %q", c.Responder))
	}
	switch c.Audio {
	case AudioMiniaudio, AudioPortaudio:
	default:
		errs = append(errs, fmt.Errorf("unknown audio backend %q", c.Audio))
	}
	if c.SilenceInterval <= 0 {
		errs = append(errs, fmt.Errorf("silence interval must be positive, got %s", c.SilenceInterval))
	}
	return errors.Join(errs...)
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func durationMs(key string, defaultValue time.Duration) (time.Duration, error) {
	value := getEnv(key, "")
	if value == "" {
		return defaultValue, nil
	}
	ms, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return time.Duration(ms) * time.Millisecond, nil
}

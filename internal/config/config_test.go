package config

import (
	"errors"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"DEEPGRAM_API_KEY", "OPENAI_API_KEY", "OPENAI_MODEL", "OPENAI_BASE_URL",
		"GROQ_API_KEY", "GROQ_MODEL",
		"COMPANION_RESPONDER", "COMPANION_AUDIO", "COMPANION_SILENCE_MS",
		"COMPANION_RESPONSE_TIMEOUT_MS", "COMPANION_VOICE", "COMPANION_LANGUAGE",
		"COMPANION_GREETING", "COMPANION_NO_GREETING",
	} {
		t.Setenv(key, "")
	}
}

func TestParseDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("DEEPGRAM_API_KEY", "dg")

	cfg, err := parse(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Responder != ResponderScripted {
		t.Fatalf("expected scripted responder without an OpenAI key, got %q", cfg.Responder)
	}
	if cfg.Audio != AudioMiniaudio {
		t.Fatalf("expected miniaudio backend, got %q", cfg.Audio)
	}
	if cfg.SilenceInterval != 1500*time.Millisecond {
		t.Fatalf("expected default silence interval, got %s", cfg.SilenceInterval)
	}
	if cfg.Language != "en-US" {
		t.Fatalf("expected default language, got %q", cfg.Language)
	}
}

func TestParseEnvironmentAndFlags(t *testing.T) {
	clearEnv(t)
	t.Setenv("DEEPGRAM_API_KEY", "dg")
	t.Setenv("OPENAI_API_KEY", "oa")
	t.Setenv("COMPANION_SILENCE_MS", "900")
	t.Setenv("COMPANION_VOICE", "aura-2-thalia-en")

	cfg, err := parse([]string{"-voice", "aura-2-arcas-en", "-audio", "portaudio", "-no-greeting"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Responder != ResponderOpenAI {
		t.Fatalf("expected openai responder with a key, got %q", cfg.Responder)
	}
	if cfg.SilenceInterval != 900*time.Millisecond {
		t.Fatalf("expected silence from environment, got %s", cfg.SilenceInterval)
	}
	if cfg.Voice != "aura-2-arcas-en" {
		t.Fatalf("expected flag to override environment, got %q", cfg.Voice)
	}
	if cfg.Audio != AudioPortaudio || !cfg.NoGreeting {
		t.Fatalf("expected flags applied, got %+v", cfg)
	}
}

func TestParsePicksGroqWithOnlyGroqKey(t *testing.T) {
	clearEnv(t)
	t.Setenv("DEEPGRAM_API_KEY", "dg")
	t.Setenv("GROQ_API_KEY", "gq")

	cfg, err := parse(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Responder != ResponderGroq {
		t.Fatalf("expected groq responder, got %q", cfg.Responder)
	}
}

func TestParseRejectsInvalidValues(t *testing.T) {
	clearEnv(t)

	if _, err := parse(nil); !errors.Is(err, ErrMissingDeepgramKey) {
		t.Fatalf("expected ErrMissingDeepgramKey, got %v", err)
	}

	t.Setenv("DEEPGRAM_API_KEY", "dg")
	t.Setenv("COMPANION_SILENCE_MS", "soon")
	if _, err := parse(nil); err == nil {
		t.Fatalf("expected an error for an invalid silence interval")
	}

	t.Setenv("COMPANION_SILENCE_MS", "")
	if _, err := parse([]string{"-responder", "openai"}); err == nil {
		t.Fatalf("expected an error for openai without a key")
	}
	if _, err := parse([]string{"-responder", "groq"}); err == nil {
		t.Fatalf("expected an error for groq without a key")
	}
	if _, err := parse([]string{"-responder", "oracle"}); err == nil {
		t.Fatalf("expected an error for an unknown responder")
	}
}

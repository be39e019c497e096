package dialogue

import (
	"testing"
	"time"

	"github.com/koscakluka/ema-companion/core/texttospeech"
)

func TestControllerOptionDefaults(t *testing.T) {
	c := NewController()
	defer c.Close()

	if c.config.silenceInterval != 1500*time.Millisecond {
		t.Fatalf("expected default silence interval of 1.5s, got %s", c.config.silenceInterval)
	}
	if c.config.restartBackoff != 100*time.Millisecond {
		t.Fatalf("expected default restart backoff of 100ms, got %s", c.config.restartBackoff)
	}
	if c.config.queueDepth != 1 {
		t.Fatalf("expected default queue depth of 1, got %d", c.config.queueDepth)
	}
	if !c.config.greetingEnabled || c.config.greeting != "" {
		t.Fatalf("expected generated greeting by default")
	}
	if c.config.fallbackReply != DefaultFallbackReply {
		t.Fatalf("expected default fallback reply, got %q", c.config.fallbackReply)
	}
}

func TestControllerOptionsIgnoreInvalidValues(t *testing.T) {
	c := NewController(
		WithSilenceInterval(0),
		WithRestartBackoff(-time.Second),
		WithResponseTimeout(-time.Second),
		WithQueueDepth(-1),
		WithFallbackReply(""),
		WithLanguage(""),
		WithEventCallback(nil),
	)
	defer c.Close()

	defaults := defaultControllerConfig()
	if c.config.silenceInterval != defaults.silenceInterval ||
		c.config.restartBackoff != defaults.restartBackoff ||
		c.config.responseTimeout != defaults.responseTimeout ||
		c.config.queueDepth != defaults.queueDepth ||
		c.config.fallbackReply != defaults.fallbackReply ||
		c.config.language != defaults.language {
		t.Fatalf("expected invalid option values to keep defaults, got %+v", c.config)
	}
	if c.emitEvent == nil {
		t.Fatalf("expected event emitter to stay set")
	}
}

func TestControllerOptionsApply(t *testing.T) {
	voice := texttospeech.Voice{Name: "aura-2-thalia-en", Language: "en-US", Rate: 1.1, Pitch: 1}
	c := NewController(
		WithSilenceInterval(2*time.Second),
		WithQueueDepth(3),
		WithVoice(voice),
		WithLanguage("en-GB"),
		WithGreeting("Hi there."),
		WithoutGreeting(),
	)
	defer c.Close()

	if c.config.silenceInterval != 2*time.Second || c.config.queueDepth != 3 {
		t.Fatalf("unexpected timing config %+v", c.config)
	}
	if c.config.voice != voice || c.config.language != "en-GB" {
		t.Fatalf("unexpected voice config %+v", c.config)
	}
	if c.config.greetingEnabled {
		t.Fatalf("expected the last greeting option to win")
	}
}

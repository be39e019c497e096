package dialogue

import (
	"context"
	"time"

	"github.com/koscakluka/ema-companion/core/events"
	"github.com/koscakluka/ema-companion/core/responders"
	"github.com/koscakluka/ema-companion/core/speechtotext"
	"github.com/koscakluka/ema-companion/core/texttospeech"
)

const (
	DefaultSilenceInterval = 1500 * time.Millisecond
	DefaultRestartBackoff  = 100 * time.Millisecond
	DefaultResponseTimeout = 20 * time.Second
	DefaultQueueDepth      = 1

	DefaultFallbackReply = "I'm sorry, I'm having trouble finding the right words right now. Could you say that again?"
	DefaultGreeting      = "Hi, it's good to hear from you. How are you feeling today?"
)

type ControllerOption func(*Controller)

type SpeechToText interface {
	// Transcribe opens a continuous recognition stream and returns once it
	// is active.
	Transcribe(ctx context.Context, opts ...speechtotext.TranscriptionOption) error
	// StopStream ends the current stream. Calling it without an active
	// stream is a no-op.
	StopStream() error
}

func WithSpeechToText(client SpeechToText) ControllerOption {
	return func(c *Controller) { c.speechToText = client }
}

type TextToSpeech interface {
	// Speak plays text and returns once playback has ended. Cancelling ctx
	// stops playback.
	Speak(ctx context.Context, text string, opts ...texttospeech.SpeechOption) error
}

// WithTextToSpeech sets the synthesis engine. Without one, replies are only
// logged and count as spoken immediately.
func WithTextToSpeech(client TextToSpeech) ControllerOption {
	return func(c *Controller) { c.textToSpeech = client }
}

type ResponseGenerator = responders.Generator

func WithResponseGenerator(generator ResponseGenerator) ControllerOption {
	return func(c *Controller) { c.generator = generator }
}

func WithSilenceInterval(interval time.Duration) ControllerOption {
	return func(c *Controller) {
		if interval > 0 {
			c.config.silenceInterval = interval
		}
	}
}

func WithRestartBackoff(backoff time.Duration) ControllerOption {
	return func(c *Controller) {
		if backoff >= 0 {
			c.config.restartBackoff = backoff
		}
	}
}

func WithResponseTimeout(timeout time.Duration) ControllerOption {
	return func(c *Controller) {
		if timeout > 0 {
			c.config.responseTimeout = timeout
		}
	}
}

// WithQueueDepth sets how many utterances may wait behind the in-flight
// response request before the gate starts rejecting them.
func WithQueueDepth(depth int) ControllerOption {
	return func(c *Controller) {
		if depth >= 0 {
			c.config.queueDepth = depth
		}
	}
}

func WithVoice(voice texttospeech.Voice) ControllerOption {
	return func(c *Controller) { c.config.voice = voice }
}

// WithLanguage sets the recognition language, e.g. "en-US".
func WithLanguage(language string) ControllerOption {
	return func(c *Controller) {
		if language != "" {
			c.config.language = language
		}
	}
}

// WithGreeting speaks text when a session starts instead of asking the
// response generator for an opening line.
func WithGreeting(text string) ControllerOption {
	return func(c *Controller) {
		c.config.greetingEnabled = true
		c.config.greeting = text
	}
}

// WithoutGreeting starts listening as soon as recognition is active.
func WithoutGreeting() ControllerOption {
	return func(c *Controller) { c.config.greetingEnabled = false }
}

func WithFallbackReply(text string) ControllerOption {
	return func(c *Controller) {
		if text != "" {
			c.config.fallbackReply = text
		}
	}
}

// WithEventCallback registers an observer for controller events. Events are
// delivered in order on a dedicated goroutine, so the callback may call back
// into the controller.
func WithEventCallback(callback func(events.Event)) ControllerOption {
	return func(c *Controller) {
		if callback != nil {
			c.emitEvent = callback
		}
	}
}

type controllerConfig struct {
	silenceInterval time.Duration
	restartBackoff  time.Duration
	responseTimeout time.Duration
	queueDepth      int

	voice    texttospeech.Voice
	language string

	greetingEnabled bool
	greeting        string
	fallbackReply   string
}

func defaultControllerConfig() controllerConfig {
	return controllerConfig{
		silenceInterval: DefaultSilenceInterval,
		restartBackoff:  DefaultRestartBackoff,
		responseTimeout: DefaultResponseTimeout,
		queueDepth:      DefaultQueueDepth,
		voice:           texttospeech.DefaultVoice(),
		language:        "en-US",
		greetingEnabled: true,
		fallbackReply:   DefaultFallbackReply,
	}
}

package deepgram

import (
	"fmt"
	"slices"

	"github.com/gorilla/websocket"
	"github.com/koscakluka/ema-companion/core/audio"
)

const DefaultEndpoint = "wss://api.deepgram.com/v1/speak"

// TextToSpeechClient speaks text through Deepgram's streaming speech API and
// plays the audio on a playback device.
type TextToSpeechClient struct {
	apiKey   string
	endpoint string
	dialer   *websocket.Dialer
	voice    Voice

	playback audio.Playback
}

type ClientOption func(*TextToSpeechClient)

// WithEndpoint overrides the speak endpoint, mostly useful for tests.
func WithEndpoint(endpoint string) ClientOption {
	return func(c *TextToSpeechClient) {
		if endpoint != "" {
			c.endpoint = endpoint
		}
	}
}

func WithDialer(dialer *websocket.Dialer) ClientOption {
	return func(c *TextToSpeechClient) {
		if dialer != nil {
			c.dialer = dialer
		}
	}
}

// WithDefaultVoice sets the voice used when a request does not name one.
func WithDefaultVoice(voice Voice) ClientOption {
	return func(c *TextToSpeechClient) { c.voice = voice }
}

func NewTextToSpeechClient(apiKey string, playback audio.Playback, opts ...ClientOption) (*TextToSpeechClient, error) {
	client := &TextToSpeechClient{
		apiKey:   apiKey,
		endpoint: DefaultEndpoint,
		dialer:   websocket.DefaultDialer,
		voice:    DefaultVoice,
		playback: playback,
	}
	for _, opt := range opts {
		opt(client)
	}

	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	if playback == nil {
		return nil, fmt.Errorf("playback device is required")
	}
	if !slices.Contains(AvailableVoices(), client.voice) {
		return nil, fmt.Errorf("invalid voice %q", client.voice)
	}
	return client, nil
}

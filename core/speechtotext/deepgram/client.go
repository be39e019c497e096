package deepgram

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	DefaultEndpoint = "wss://api.deepgram.com/v1/listen"
	DefaultModel    = "nova-3"
)

var ErrMissingAPIKey = errors.New("deepgram api key not set")

// TranscriptionClient streams audio to Deepgram's live transcription API.
// Only one stream is open at a time; audio sent while no stream is open is
// dropped.
type TranscriptionClient struct {
	apiKey        string
	endpoint      string
	model         string
	endpointingMs int
	dialer        *websocket.Dialer

	connMu    sync.Mutex
	stream    *stream
	lastAudio time.Time
}

type ClientOption func(*TranscriptionClient)

// WithEndpoint overrides the listen endpoint, mostly useful for tests.
func WithEndpoint(endpoint string) ClientOption {
	return func(c *TranscriptionClient) {
		if endpoint != "" {
			c.endpoint = endpoint
		}
	}
}

func WithModel(model string) ClientOption {
	return func(c *TranscriptionClient) {
		if model != "" {
			c.model = model
		}
	}
}

// WithEndpointing sets how many milliseconds of silence end a spoken
// segment.
func WithEndpointing(ms int) ClientOption {
	return func(c *TranscriptionClient) {
		if ms > 0 {
			c.endpointingMs = ms
		}
	}
}

func WithDialer(dialer *websocket.Dialer) ClientOption {
	return func(c *TranscriptionClient) {
		if dialer != nil {
			c.dialer = dialer
		}
	}
}

func NewTranscriptionClient(apiKey string, opts ...ClientOption) *TranscriptionClient {
	client := &TranscriptionClient{
		apiKey:        apiKey,
		endpoint:      DefaultEndpoint,
		model:         DefaultModel,
		endpointingMs: 300,
		dialer:        websocket.DefaultDialer,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

package deepgram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	api "github.com/deepgram/deepgram-go-sdk/pkg/api/listen/v1/websocket/interfaces"
	"github.com/gorilla/websocket"
	"github.com/koscakluka/ema-companion/core/audio"
	"github.com/koscakluka/ema-companion/core/speechtotext"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type stream struct {
	conn     *websocket.Conn
	options  speechtotext.TranscriptionOptions
	cancel   context.CancelFunc
	stopping atomic.Bool

	// Only touched by the reading goroutine.
	accumulated string
}

// Transcribe opens a live transcription stream and returns once Deepgram
// accepted it. A stream that was still open is closed first.
func (c *TranscriptionClient) Transcribe(ctx context.Context, opts ...speechtotext.TranscriptionOption) error {
	options := speechtotext.Apply(opts...)

	ctx, span := tracer.Start(ctx, "open transcription stream", trace.WithAttributes(
		attribute.String("deepgram.model", c.model),
		attribute.String("deepgram.language", options.Language),
	))
	defer span.End()

	if c.apiKey == "" {
		return speechtotext.NewFault(speechtotext.FaultServiceNotAllowed, ErrMissingAPIKey)
	}

	params, err := c.listenParams(options)
	if err != nil {
		return speechtotext.NewFault(speechtotext.FaultBadGrammar, err)
	}
	endpoint, err := url.Parse(c.endpoint)
	if err != nil {
		return speechtotext.NewFault(speechtotext.FaultBadGrammar, fmt.Errorf("invalid endpoint: %w", err))
	}
	endpoint.RawQuery = params.Encode()

	conn, resp, err := c.dialer.DialContext(ctx, endpoint.String(),
		http.Header{"Authorization": {"Token " + c.apiKey}})
	if err != nil {
		fault := dialFault(resp, fmt.Errorf("failed to open socket connection to deepgram: %w", err))
		span.RecordError(fault)
		span.SetStatus(codes.Error, "dial failed")
		return fault
	}

	streamCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s := &stream{conn: conn, options: options, cancel: cancel}

	c.connMu.Lock()
	previous := c.stream
	c.stream = s
	c.lastAudio = time.Now()
	c.connMu.Unlock()
	if previous != nil {
		previous.stopping.Store(true)
		previous.conn.Close()
	}

	go c.closeOnDone(ctx, streamCtx, s)
	go c.readMessages(s)
	go c.keepAlive(streamCtx, s)
	return nil
}

func (c *TranscriptionClient) listenParams(options speechtotext.TranscriptionOptions) (url.Values, error) {
	encoding := options.EncodingInfo
	if err := encoding.Validate(); err != nil {
		return nil, err
	}
	switch encoding.SampleRate {
	case 8000, 16000, 24000, 32000, 48000:
	default:
		return nil, fmt.Errorf("unsupported sample rate %d", encoding.SampleRate)
	}
	if encoding.Format != audio.FormatLinear16 && encoding.SampleRate != 8000 {
		return nil, fmt.Errorf("unsupported sample rate %d for %s", encoding.SampleRate, encoding.Format)
	}

	params := url.Values{}
	params.Set("encoding", string(encoding.Format))
	params.Set("sample_rate", strconv.Itoa(encoding.SampleRate))
	params.Set("channels", "1")
	params.Set("model", c.model)
	params.Set("language", options.Language)
	params.Set("smart_format", "true")
	params.Set("interim_results", "true")
	params.Set("utterance_end_ms", "1000")
	params.Set("vad_events", "true")
	params.Set("endpointing", strconv.Itoa(c.endpointingMs))
	return params, nil
}

// SendAudio forwards captured audio to the open stream.
func (c *TranscriptionClient) SendAudio(audio []byte) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.stream == nil {
		return nil
	}
	c.lastAudio = time.Now()
	if err := c.stream.conn.WriteMessage(websocket.BinaryMessage, audio); err != nil {
		return fmt.Errorf("failed to write to deepgram client: %w", err)
	}
	return nil
}

// StopStream asks Deepgram to close the stream and drops the connection.
// No callbacks are invoked for a stopped stream.
func (c *TranscriptionClient) StopStream() error {
	c.connMu.Lock()
	s := c.stream
	c.stream = nil
	var err error
	if s != nil {
		s.stopping.Store(true)
		err = s.conn.WriteJSON(struct {
			Type string `json:"type"`
		}{Type: string(api.TypeCloseStreamResponse)})
	}
	c.connMu.Unlock()

	if s == nil {
		return nil
	}
	s.cancel()
	s.conn.Close()
	if err != nil {
		return fmt.Errorf("failed to close deepgram stream: %w", err)
	}
	return nil
}

func (c *TranscriptionClient) Close() error {
	return c.StopStream()
}

func (c *TranscriptionClient) closeOnDone(parent, streamCtx context.Context, s *stream) {
	select {
	case <-parent.Done():
		s.stopping.Store(true)
		c.detach(s)
		s.conn.Close()
	case <-streamCtx.Done():
	}
}

func (c *TranscriptionClient) readMessages(s *stream) {
	defer s.cancel()

	for {
		msgType, msg, err := s.conn.ReadMessage()
		if err != nil {
			s.conn.Close()
			c.detach(s)
			if s.stopping.Load() {
				return
			}

			if fault := closeFault(err); fault != nil {
				logger.Warn("deepgram stream failed", "error", fault)
				s.options.ErrorCallback(fault)
			} else {
				s.options.StreamEndedCallback()
			}
			return
		}
		if msgType == websocket.TextMessage {
			s.process(msg)
		}
	}
}

func (c *TranscriptionClient) detach(s *stream) {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	if c.stream == s {
		c.stream = nil
	}
}

func (s *stream) process(msg []byte) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(msg, &envelope); err != nil {
		logger.Warn("failed to unmarshal deepgram message", "error", err)
		return
	}

	switch api.TypeResponse(envelope.Type) {
	case api.TypeMessageResponse:
		var result api.MessageResponse
		if err := json.Unmarshal(msg, &result); err != nil {
			logger.Warn("failed to unmarshal deepgram results", "error", err)
			return
		}
		transcript := ""
		if len(result.Channel.Alternatives) > 0 {
			transcript = strings.TrimSpace(result.Channel.Alternatives[0].Transcript)
		}

		if !result.IsFinal {
			if transcript != "" {
				s.options.PartialTranscriptionCallback(joinTranscript(s.accumulated, transcript))
			}
			return
		}
		if transcript != "" {
			s.accumulated = joinTranscript(s.accumulated, transcript)
			s.options.PartialTranscriptionCallback(s.accumulated)
		}
		if result.SpeechFinal {
			s.flush()
		}

	case api.TypeUtteranceEndResponse:
		s.flush()

	case api.TypeSpeechStartedResponse:
		logger.Debug("deepgram detected speech")
	}
}

func (s *stream) flush() {
	transcript := strings.TrimSpace(s.accumulated)
	s.accumulated = ""
	if transcript != "" {
		s.options.TranscriptionCallback(transcript)
	}
}

func joinTranscript(accumulated, segment string) string {
	if accumulated == "" {
		return segment
	}
	return accumulated + " " + segment
}

// keepAlive pads short pauses with silence so endpointing keeps working and
// sends KeepAlive messages during long ones so Deepgram does not close the
// stream.
func (c *TranscriptionClient) keepAlive(ctx context.Context, s *stream) {
	const (
		tick           = 50 * time.Millisecond
		silencePadding = time.Second
		keepAliveEvery = 5 * time.Second
		waiting        = "waiting"
		padding        = "padding"
		keepingAlive   = "keepAlive"
	)

	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	chunk := s.options.EncodingInfo.Silence(tick)

	state := waiting
	var since time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			idle := now.Sub(c.lastAudioAt()) >= tick
			if !idle {
				state = waiting
				continue
			}

			switch state {
			case waiting:
				state = padding
				since = now
			case padding:
				if now.Sub(since) >= silencePadding {
					state = keepingAlive
					since = now
					continue
				}
				c.write(s, func(conn *websocket.Conn) error {
					return conn.WriteMessage(websocket.BinaryMessage, chunk)
				})
			case keepingAlive:
				if now.Sub(since) >= keepAliveEvery {
					since = now
					c.write(s, func(conn *websocket.Conn) error {
						return conn.WriteJSON(struct {
							Type string `json:"type"`
						}{Type: "KeepAlive"})
					})
				}
			}
		}
	}
}

func (c *TranscriptionClient) lastAudioAt() time.Time {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	return c.lastAudio
}

func (c *TranscriptionClient) write(s *stream, write func(*websocket.Conn) error) {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	if c.stream != s {
		return
	}
	if err := write(s.conn); err != nil {
		logger.Warn("failed to write to deepgram stream", "error", err)
	}
}

func dialFault(resp *http.Response, err error) *speechtotext.Fault {
	if resp != nil {
		switch resp.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden, http.StatusPaymentRequired:
			return speechtotext.NewFault(speechtotext.FaultServiceNotAllowed, err)
		case http.StatusBadRequest:
			return speechtotext.NewFault(speechtotext.FaultBadGrammar, err)
		}
	}
	return speechtotext.NewFault(speechtotext.FaultNetwork, err)
}

// closeFault classifies the error that ended a stream, nil means the stream
// ended normally.
func closeFault(err error) error {
	var closeErr *websocket.CloseError
	if !errors.As(err, &closeErr) {
		return speechtotext.NewFault(speechtotext.FaultNetwork, err)
	}

	switch closeErr.Code {
	case websocket.CloseNormalClosure:
		return nil
	case websocket.CloseInternalServerErr:
		// Deepgram closes idle streams that received no audio this way.
		return speechtotext.NewFault(speechtotext.FaultNoSpeech, err)
	case websocket.ClosePolicyViolation, websocket.CloseUnsupportedData:
		return speechtotext.NewFault(speechtotext.FaultAudioCapture, err)
	default:
		return speechtotext.NewFault(speechtotext.FaultAborted, err)
	}
}

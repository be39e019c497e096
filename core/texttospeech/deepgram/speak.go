package deepgram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/koscakluka/ema-companion/core/texttospeech"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var ErrMissingAPIKey = errors.New("deepgram api key not set")

type websocketMessage struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

var (
	flushMsg = websocketMessage{Type: "Flush"}
	clearMsg = websocketMessage{Type: "Clear"}
	closeMsg = websocketMessage{Type: "Close"}
)

func speakMsg(text string) websocketMessage {
	return websocketMessage{Type: "Speak", Text: text}
}

// Speak synthesizes text and returns once the playback device has played
// all of it. Cancelling ctx clears both Deepgram's and the device's buffers.
func (c *TextToSpeechClient) Speak(ctx context.Context, text string, opts ...texttospeech.SpeechOption) error {
	options := texttospeech.Apply(opts...)
	voice := resolveVoice(options.Voice.Name, options.Voice.Language, c.voice)
	encoding := c.playback.EncodingInfo()

	ctx, span := tracer.Start(ctx, "speak text", trace.WithAttributes(
		attribute.String("deepgram.voice", string(voice)),
		attribute.Int("deepgram.text.length", len(text)),
	))
	defer span.End()

	params := url.Values{}
	params.Set("encoding", string(encoding.Format))
	params.Set("sample_rate", strconv.Itoa(encoding.SampleRate))
	params.Set("model", string(voice))
	params.Set("container", "none")

	endpoint, err := url.Parse(c.endpoint)
	if err != nil {
		return fmt.Errorf("invalid endpoint: %w", err)
	}
	endpoint.RawQuery = params.Encode()

	conn, _, err := c.dialer.DialContext(ctx, endpoint.String(),
		http.Header{"Authorization": {"token " + c.apiKey}})
	if err != nil {
		err = fmt.Errorf("failed to open socket connection to deepgram: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "dial failed")
		return err
	}
	defer conn.Close()

	var writeMu sync.Mutex
	send := func(msg websocketMessage) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		return conn.WriteJSON(msg)
	}

	if err := send(speakMsg(text)); err != nil {
		return fmt.Errorf("failed to send text to deepgram: %w", err)
	}
	if err := send(flushMsg); err != nil {
		return fmt.Errorf("failed to flush deepgram buffer: %w", err)
	}

	flushed := make(chan error, 1)
	go func() {
		flushed <- c.receiveAudio(conn, options.StartedCallback)
	}()

	select {
	case err := <-flushed:
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "speech stream failed")
			return err
		}
	case <-ctx.Done():
		_ = send(clearMsg)
		c.playback.ClearBuffer()
		return ctx.Err()
	}

	if err := send(closeMsg); err != nil {
		logger.Debug("failed to send close message to deepgram", "error", err)
	}

	if err := c.playback.AwaitDrained(ctx); err != nil {
		c.playback.ClearBuffer()
		return fmt.Errorf("failed waiting for playback: %w", err)
	}
	return nil
}

// receiveAudio forwards audio to the playback device until Deepgram confirms
// the flush.
func (c *TextToSpeechClient) receiveAudio(conn *websocket.Conn, onStarted func()) error {
	started := false
	for {
		msgType, msg, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("deepgram speech stream closed before flush: %w", err)
		}

		switch msgType {
		case websocket.BinaryMessage:
			if len(msg) == 0 {
				continue
			}
			if err := c.playback.SendAudio(msg); err != nil {
				return fmt.Errorf("failed to play audio: %w", err)
			}
			if !started {
				started = true
				onStarted()
			}

		case websocket.TextMessage:
			var parsed websocketMessage
			if err := json.Unmarshal(msg, &parsed); err != nil {
				logger.Warn("failed to unmarshal deepgram message", "error", err)
				continue
			}
			switch parsed.Type {
			case "Flushed":
				if !started {
					onStarted()
				}
				return nil
			case "Warning", "Error":
				logger.Warn("deepgram speech message", "type", parsed.Type, "message", string(msg))
			}
		}
	}
}

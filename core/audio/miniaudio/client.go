// Package miniaudio provides microphone capture and speaker playback through
// miniaudio.
package miniaudio

import (
	"context"
	"errors"
	"fmt"

	"github.com/gen2brain/malgo"
	"github.com/koscakluka/ema-companion/core/audio"
	"go.opentelemetry.io/contrib/bridges/otelslog"
)

var logger = otelslog.NewLogger("github.com/koscakluka/ema-companion/core/audio/miniaudio")

// Client owns one capture and one playback device sharing the same mono
// linear16 encoding.
type Client struct {
	audioContext *malgo.AllocatedContext
	encoding     audio.EncodingInfo

	playback *playbackDevice
	capture  *captureDevice
}

type ClientOption func(*Client)

func WithSampleRate(sampleRate int) ClientOption {
	return func(c *Client) {
		if sampleRate > 0 {
			c.encoding.SampleRate = sampleRate
		}
	}
}

func NewClient(opts ...ClientOption) (*Client, error) {
	client := &Client{encoding: audio.DefaultEncodingInfo()}
	for _, opt := range opts {
		opt(client)
	}

	audioContext, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		logger.Debug("miniaudio", "message", message)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize audio context: %w", err)
	}
	client.audioContext = audioContext

	if client.playback, err = newPlaybackDevice(audioContext, client.encoding); err != nil {
		client.Close()
		return nil, err
	}
	if client.capture, err = newCaptureDevice(audioContext, client.encoding); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

func (c *Client) StartCapture(ctx context.Context, onAudio func(audio []byte)) error {
	return c.capture.start(ctx, onAudio)
}

func (c *Client) StopCapture() error {
	return c.capture.stop()
}

func (c *Client) SendAudio(audio []byte) error {
	return c.playback.SendAudio(audio)
}

func (c *Client) ClearBuffer() {
	c.playback.ClearBuffer()
}

func (c *Client) AwaitDrained(ctx context.Context) error {
	return c.playback.AwaitDrained(ctx)
}

func (c *Client) EncodingInfo() audio.EncodingInfo {
	return c.encoding
}

func (c *Client) Close() error {
	var errs []error
	if c.capture != nil {
		if err := c.capture.stop(); err != nil {
			errs = append(errs, err)
		}
		c.capture.close()
	}
	if c.playback != nil {
		c.playback.close()
	}
	if c.audioContext != nil {
		if err := c.audioContext.Uninit(); err != nil {
			errs = append(errs, fmt.Errorf("failed to uninitialize audio context: %w", err))
		}
		c.audioContext.Free()
		c.audioContext = nil
	}
	return errors.Join(errs...)
}

var (
	_ audio.Capture  = (*Client)(nil)
	_ audio.Playback = (*Client)(nil)
)

// Package portaudio provides microphone capture and speaker playback through
// PortAudio blocking streams.
package portaudio

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
	"github.com/koscakluka/ema-companion/core/audio"
	"go.opentelemetry.io/contrib/bridges/otelslog"
)

var logger = otelslog.NewLogger("github.com/koscakluka/ema-companion/core/audio/portaudio")

const DefaultFramesPerBuffer = 480

type Client struct {
	framesPerBuffer int
	encoding        audio.EncodingInfo

	input  *portaudio.Stream
	output *portaudio.Stream
	in     []int16
	out    []int16

	captureMu     sync.Mutex
	captureCancel context.CancelFunc
	captureDone   chan struct{}

	queue  *frameQueue
	closed chan struct{}
	done   chan struct{}
}

func NewClient(framesPerBuffer int) (*Client, error) {
	if framesPerBuffer <= 0 {
		framesPerBuffer = DefaultFramesPerBuffer
	}
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize portaudio: %w", err)
	}

	c := &Client{
		framesPerBuffer: framesPerBuffer,
		encoding:        audio.DefaultEncodingInfo(),
		in:              make([]int16, framesPerBuffer),
		out:             make([]int16, framesPerBuffer),
		queue:           newFrameQueue(),
		closed:          make(chan struct{}),
		done:            make(chan struct{}),
	}

	var err error
	sampleRate := float64(c.encoding.SampleRate)
	if c.input, err = portaudio.OpenDefaultStream(1, 0, sampleRate, framesPerBuffer, c.in); err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("failed to open input stream: %w", err)
	}
	if c.output, err = portaudio.OpenDefaultStream(0, 1, sampleRate, framesPerBuffer, c.out); err != nil {
		c.input.Close()
		portaudio.Terminate()
		return nil, fmt.Errorf("failed to open output stream: %w", err)
	}
	if err := c.output.Start(); err != nil {
		c.input.Close()
		c.output.Close()
		portaudio.Terminate()
		return nil, fmt.Errorf("failed to start output stream: %w", err)
	}

	go c.play()
	return c, nil
}

func (c *Client) StartCapture(ctx context.Context, onAudio func(audio []byte)) error {
	c.captureMu.Lock()
	defer c.captureMu.Unlock()
	if c.captureCancel != nil {
		return nil
	}
	if err := c.input.Start(); err != nil {
		return fmt.Errorf("failed to start input stream: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	c.captureCancel = cancel
	c.captureDone = done

	go func() {
		defer close(done)
		for ctx.Err() == nil {
			if err := c.input.Read(); err != nil {
				logger.Warn("failed to read from input stream", "error", err)
				continue
			}
			var buf bytes.Buffer
			if err := binary.Write(&buf, binary.LittleEndian, c.in); err != nil {
				logger.Warn("failed to encode captured audio", "error", err)
				continue
			}
			onAudio(buf.Bytes())
		}
	}()
	return nil
}

func (c *Client) StopCapture() error {
	c.captureMu.Lock()
	defer c.captureMu.Unlock()
	if c.captureCancel == nil {
		return nil
	}
	c.captureCancel()
	<-c.captureDone
	c.captureCancel = nil
	c.captureDone = nil

	if err := c.input.Stop(); err != nil {
		return fmt.Errorf("failed to stop input stream: %w", err)
	}
	return nil
}

func (c *Client) SendAudio(audio []byte) error {
	select {
	case <-c.closed:
		return fmt.Errorf("portaudio client closed")
	default:
	}
	c.queue.push(audio)
	return nil
}

func (c *Client) ClearBuffer() {
	c.queue.clear()
}

func (c *Client) AwaitDrained(ctx context.Context) error {
	select {
	case <-c.queue.drained():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) EncodingInfo() audio.EncodingInfo {
	return c.encoding
}

func (c *Client) play() {
	defer close(c.done)
	frame := make([]byte, c.framesPerBuffer*c.encoding.Format.SampleSize())

	for {
		n, ok := c.queue.pop(frame, c.closed)
		if !ok {
			return
		}
		if err := binary.Read(bytes.NewReader(frame), binary.LittleEndian, c.out); err != nil {
			logger.Warn("failed to decode playback audio", "error", err)
		} else if err := c.output.Write(); err != nil {
			logger.Warn("failed to write to output stream", "error", err)
		}
		c.queue.played(n)
	}
}

func (c *Client) Close() error {
	stopErr := c.StopCapture()
	close(c.closed)
	c.queue.clear()
	<-c.done

	return errors.Join(
		stopErr,
		c.input.Close(),
		c.output.Close(),
		portaudio.Terminate(),
	)
}

var (
	_ audio.Capture  = (*Client)(nil)
	_ audio.Playback = (*Client)(nil)
)

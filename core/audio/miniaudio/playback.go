package miniaudio

import (
	"context"
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"
	"github.com/koscakluka/ema-companion/core/audio"
)

type playbackDevice struct {
	device   *malgo.Device
	encoding audio.EncodingInfo
	buffer   playbackBuffer

	mu sync.Mutex
}

func newPlaybackDevice(audioContext *malgo.AllocatedContext, encoding audio.EncodingInfo) (*playbackDevice, error) {
	p := &playbackDevice{encoding: encoding}

	config := malgo.DefaultDeviceConfig(malgo.Playback)
	config.SampleRate = uint32(encoding.SampleRate)
	config.Playback.Format = malgo.FormatS16
	config.Playback.Channels = 1
	config.Alsa.NoMMap = 1
	config.PeriodSizeInFrames = uint32(encoding.SampleRate / 10)
	config.Periods = 4

	bytesPerFrame := malgo.SampleSizeInBytes(config.Playback.Format)

	device, err := malgo.InitDevice(audioContext.Context, config, malgo.DeviceCallbacks{
		Data: func(pOutput, _ []byte, frameCount uint32) {
			need := int(frameCount) * bytesPerFrame
			if need > len(pOutput) {
				need = len(pOutput)
			}
			p.buffer.read(pOutput[:need], 0)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize playback device: %w", err)
	}
	p.device = device

	if err := device.Start(); err != nil {
		device.Uninit()
		return nil, fmt.Errorf("failed to start playback device: %w", err)
	}
	return p, nil
}

func (p *playbackDevice) SendAudio(audio []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.device == nil || !p.device.IsStarted() {
		return fmt.Errorf("playback device not started")
	}
	p.buffer.write(audio)
	return nil
}

func (p *playbackDevice) ClearBuffer() {
	p.buffer.clear()
}

func (p *playbackDevice) AwaitDrained(ctx context.Context) error {
	select {
	case <-p.buffer.drained():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *playbackDevice) close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.device != nil {
		p.device.Uninit()
		p.device = nil
	}
	p.buffer.clear()
}

package audio

import "context"

// Capture streams microphone audio to onAudio until StopCapture is called.
type Capture interface {
	StartCapture(ctx context.Context, onAudio func(audio []byte)) error
	StopCapture() error
	EncodingInfo() EncodingInfo
}

// Playback queues audio for the output device.
type Playback interface {
	SendAudio(audio []byte) error
	// ClearBuffer drops everything that has been queued but not played.
	ClearBuffer()
	// AwaitDrained blocks until the queued audio has been played or ctx is
	// done.
	AwaitDrained(ctx context.Context) error
	EncodingInfo() EncodingInfo
}

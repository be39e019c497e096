package audio

import (
	"fmt"
	"time"
)

const DefaultSampleRate = 16000

// Format is the sample encoding of a mono audio stream.
type Format string

const (
	FormatLinear16 Format = "linear16"
	FormatMulaw    Format = "mulaw"
	FormatALaw     Format = "alaw"
)

// SampleSize is the number of bytes per sample, zero for unknown formats.
func (f Format) SampleSize() int {
	switch f {
	case FormatMulaw, FormatALaw:
		return 1
	case FormatLinear16:
		return 2
	default:
		return 0
	}
}

// EncodingInfo describes mono audio exchanged with devices and speech
// engines.
type EncodingInfo struct {
	SampleRate int
	Format     Format
}

func DefaultEncodingInfo() EncodingInfo {
	return EncodingInfo{SampleRate: DefaultSampleRate, Format: FormatLinear16}
}

func (e EncodingInfo) IsZero() bool {
	return e.SampleRate == 0 || e.Format == ""
}

func (e EncodingInfo) Validate() error {
	if e.SampleRate <= 0 {
		return fmt.Errorf("invalid sample rate %d", e.SampleRate)
	}
	if e.Format.SampleSize() == 0 {
		return fmt.Errorf("unknown audio format %q", e.Format)
	}
	return nil
}

func (e EncodingInfo) bytesPerSecond() int {
	return e.SampleRate * e.Format.SampleSize()
}

// Duration returns how long n bytes of audio play for.
func (e EncodingInfo) Duration(n int) time.Duration {
	rate := e.bytesPerSecond()
	if rate <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second / time.Duration(rate)
}

// ChunkSize returns the number of bytes holding d of audio, rounded down to
// whole samples.
func (e EncodingInfo) ChunkSize(d time.Duration) int {
	size := e.Format.SampleSize()
	if size == 0 {
		return 0
	}
	samples := int(int64(e.SampleRate) * int64(d) / int64(time.Second))
	return samples * size
}

// Silence returns d of silent audio.
func (e EncodingInfo) Silence(d time.Duration) []byte {
	chunk := make([]byte, e.ChunkSize(d))
	if value := e.silenceValue(); value != 0 {
		for i := range chunk {
			chunk[i] = value
		}
	}
	return chunk
}

func (e EncodingInfo) silenceValue() byte {
	switch e.Format {
	case FormatALaw:
		return 0x55
	case FormatMulaw:
		return 0xFF
	default:
		return 0
	}
}

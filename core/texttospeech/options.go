package texttospeech

import "github.com/koscakluka/ema-companion/core/audio"

// Voice describes how text should be spoken. Engines ignore parameters they
// cannot honour.
type Voice struct {
	// Name selects an engine specific voice, empty uses the engine default.
	Name     string
	Language string
	// Rate is a speaking rate multiplier, 1 is normal speed.
	Rate float64
	// Pitch is a pitch multiplier, 1 is the natural pitch.
	Pitch float64
}

func DefaultVoice() Voice {
	return Voice{Language: "en-US", Rate: 1, Pitch: 1}
}

type SpeechOptions struct {
	Voice Voice
	// StartedCallback is called once when audio for the text starts playing.
	StartedCallback func()

	EncodingInfo audio.EncodingInfo
}

type SpeechOption func(*SpeechOptions)

func WithVoice(voice Voice) SpeechOption {
	return func(o *SpeechOptions) {
		if voice.Rate <= 0 {
			voice.Rate = 1
		}
		if voice.Pitch <= 0 {
			voice.Pitch = 1
		}
		o.Voice = voice
	}
}

func WithStartedCallback(callback func()) SpeechOption {
	return func(o *SpeechOptions) { o.StartedCallback = callback }
}

func WithEncodingInfo(encodingInfo audio.EncodingInfo) SpeechOption {
	return func(o *SpeechOptions) {
		if encodingInfo.IsZero() {
			return
		}
		o.EncodingInfo = encodingInfo
	}
}

// Apply builds the options from the defaults with all opts applied.
func Apply(opts ...SpeechOption) SpeechOptions {
	options := SpeechOptions{
		Voice:           DefaultVoice(),
		StartedCallback: func() {},
		EncodingInfo:    audio.DefaultEncodingInfo(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.StartedCallback == nil {
		options.StartedCallback = func() {}
	}
	return options
}

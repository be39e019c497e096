package speechtotext

import "github.com/koscakluka/ema-companion/core/audio"

type TranscriptionOptions struct {
	// PartialTranscriptionCallback receives mutable interim hypotheses for
	// the utterance in progress.
	PartialTranscriptionCallback func(transcript string)
	// TranscriptionCallback receives finalized transcript text.
	TranscriptionCallback func(transcript string)
	// StreamEndedCallback is called once when the stream terminates on its
	// own, e.g. on a platform timeout. It is not called after StopStream.
	StreamEndedCallback func()
	// ErrorCallback is called when the stream faults; the stream is over
	// once it returns. Errors should be wrapped in a [Fault] so callers can
	// tell whether to retry.
	ErrorCallback func(error)

	Language     string
	EncodingInfo audio.EncodingInfo
}

type TranscriptionOption func(*TranscriptionOptions)

func WithPartialTranscriptionCallback(callback func(transcript string)) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.PartialTranscriptionCallback = callback
	}
}

func WithTranscriptionCallback(callback func(transcript string)) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.TranscriptionCallback = callback
	}
}

func WithStreamEndedCallback(callback func()) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.StreamEndedCallback = callback
	}
}

func WithErrorCallback(callback func(error)) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.ErrorCallback = callback
	}
}

func WithLanguage(language string) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		if language != "" {
			o.Language = language
		}
	}
}

func WithEncodingInfo(encodingInfo audio.EncodingInfo) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		if encodingInfo.IsZero() {
			return
		}
		o.EncodingInfo = encodingInfo
	}
}

// Apply builds the options from the defaults with all opts applied, missing
// callbacks are replaced with no-ops.
func Apply(opts ...TranscriptionOption) TranscriptionOptions {
	options := TranscriptionOptions{
		PartialTranscriptionCallback: func(string) {},
		TranscriptionCallback:        func(string) {},
		StreamEndedCallback:          func() {},
		ErrorCallback:                func(error) {},
		Language:                     "en-US",
		EncodingInfo:                 audio.DefaultEncodingInfo(),
	}
	for _, opt := range opts {
		opt(&options)
	}

	if options.PartialTranscriptionCallback == nil {
		options.PartialTranscriptionCallback = func(string) {}
	}
	if options.TranscriptionCallback == nil {
		options.TranscriptionCallback = func(string) {}
	}
	if options.StreamEndedCallback == nil {
		options.StreamEndedCallback = func() {}
	}
	if options.ErrorCallback == nil {
		options.ErrorCallback = func(error) {}
	}
	return options
}

package speechtotext

import (
	"errors"
	"fmt"
)

// FaultKind names the reason a recognition stream failed.
type FaultKind string

const (
	FaultNoSpeech             FaultKind = "no-speech"
	FaultAborted              FaultKind = "aborted"
	FaultNetwork              FaultKind = "network"
	FaultNotAllowed           FaultKind = "not-allowed"
	FaultServiceNotAllowed    FaultKind = "service-not-allowed"
	FaultAudioCapture         FaultKind = "audio-capture"
	FaultLanguageNotSupported FaultKind = "language-not-supported"
	FaultBadGrammar           FaultKind = "bad-grammar"
	FaultUnknown              FaultKind = "unknown"
)

// Recoverable reports whether a stream that failed with this kind can simply
// be restarted.
func (k FaultKind) Recoverable() bool {
	switch k {
	case FaultNotAllowed, FaultServiceNotAllowed, FaultAudioCapture,
		FaultLanguageNotSupported, FaultBadGrammar:
		return false
	default:
		return true
	}
}

// Message is a short user-facing description of the fault.
func (k FaultKind) Message() string {
	switch k {
	case FaultNoSpeech:
		return "No speech was detected."
	case FaultAborted:
		return "Listening was interrupted."
	case FaultNetwork:
		return "Lost connection to the speech service, reconnecting."
	case FaultNotAllowed:
		return "Microphone access was denied. Allow it and start again."
	case FaultServiceNotAllowed:
		return "The speech service refused the request. Check your credentials."
	case FaultAudioCapture:
		return "No microphone is available."
	case FaultLanguageNotSupported:
		return "The selected language is not supported."
	case FaultBadGrammar:
		return "The speech service rejected the recognition settings."
	default:
		return "Speech recognition ran into a problem."
	}
}

// Fault is an error reported by a speech-to-text engine.
type Fault struct {
	Kind FaultKind
	Err  error
}

func NewFault(kind FaultKind, err error) *Fault {
	return &Fault{Kind: kind, Err: err}
}

func (f *Fault) Error() string {
	if f.Err == nil {
		return fmt.Sprintf("speech recognition fault: %s", f.Kind)
	}
	return fmt.Sprintf("speech recognition fault: %s: %v", f.Kind, f.Err)
}

func (f *Fault) Unwrap() error { return f.Err }

// KindOf extracts the fault kind from err, errors that are not a [Fault] are
// reported as [FaultUnknown].
func KindOf(err error) FaultKind {
	var fault *Fault
	if errors.As(err, &fault) {
		return fault.Kind
	}
	return FaultUnknown
}

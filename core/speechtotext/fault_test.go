package speechtotext

import (
	"errors"
	"fmt"
	"testing"
)

func TestFaultKindRecoverable(t *testing.T) {
	testCases := []struct {
		kind        FaultKind
		recoverable bool
	}{
		{FaultNoSpeech, true},
		{FaultAborted, true},
		{FaultNetwork, true},
		{FaultUnknown, true},
		{FaultNotAllowed, false},
		{FaultServiceNotAllowed, false},
		{FaultAudioCapture, false},
		{FaultLanguageNotSupported, false},
		{FaultBadGrammar, false},
	}

	for _, testCase := range testCases {
		t.Run(string(testCase.kind), func(t *testing.T) {
			if got := testCase.kind.Recoverable(); got != testCase.recoverable {
				t.Fatalf("expected recoverable %t, got %t", testCase.recoverable, got)
			}
		})
	}
}

func TestKindOfUnwrapsFault(t *testing.T) {
	cause := errors.New("socket closed")
	err := fmt.Errorf("stream failed: %w", NewFault(FaultNetwork, cause))

	if got := KindOf(err); got != FaultNetwork {
		t.Fatalf("expected %q, got %q", FaultNetwork, got)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected fault to unwrap to its cause")
	}
	if got := KindOf(errors.New("plain")); got != FaultUnknown {
		t.Fatalf("expected plain errors to be unknown, got %q", got)
	}
}

func TestApplyFillsNoopCallbacks(t *testing.T) {
	options := Apply(WithTranscriptionCallback(nil))

	options.PartialTranscriptionCallback("partial")
	options.TranscriptionCallback("final")
	options.StreamEndedCallback()
	options.ErrorCallback(errors.New("ignored"))

	if options.Language != "en-US" {
		t.Fatalf("expected default language, got %q", options.Language)
	}
	if options.EncodingInfo.IsZero() {
		t.Fatalf("expected default encoding info")
	}
}

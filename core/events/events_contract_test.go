package events

import (
	"errors"
	"testing"
	"time"

	"github.com/koscakluka/ema-companion/core/conversations"
)

func TestConstructorsEmitExpectedKinds(t *testing.T) {
	turn := conversations.Turn{Sequence: 1, Speaker: conversations.SpeakerUser, Text: "hello"}

	testCases := []struct {
		name     string
		event    Event
		expected Kind
	}{
		{name: "session state changed", event: NewSessionStateChanged("id", "Idle", "Connecting", ""), expected: KindSessionStateChanged},
		{name: "user transcript partial", event: NewUserTranscriptPartial("hel"), expected: KindUserTranscriptPartial},
		{name: "user transcript final", event: NewUserTranscriptFinal("hello"), expected: KindUserTranscriptFinal},
		{name: "assistant greeting", event: NewAssistantGreeting("hi"), expected: KindAssistantGreeting},
		{name: "assistant speech started", event: NewAssistantSpeechStarted("hi"), expected: KindAssistantSpeechStarted},
		{name: "assistant speech ended", event: NewAssistantSpeechEnded("hi", false), expected: KindAssistantSpeechEnded},
		{name: "turn appended", event: NewTurnAppended(turn), expected: KindTurnAppended},
		{name: "turn ended", event: NewTurnEnded(turn), expected: KindTurnEnded},
		{name: "recognition fault", event: NewRecognitionFault("no-speech", true, errors.New("quiet")), expected: KindRecognitionFault},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			if got := testCase.event.Kind(); got != testCase.expected {
				t.Fatalf("expected kind %q, got %q", testCase.expected, got)
			}
		})
	}
}

func TestBaseTimestampIsSetOnCreation(t *testing.T) {
	before := time.Now()
	event := NewUserTranscriptPartial("hel")
	after := time.Now()

	if event.Timestamp().Before(before) || event.Timestamp().After(after) {
		t.Fatalf("expected timestamp between %v and %v, got %v", before, after, event.Timestamp())
	}
}

func TestKindNamespace(t *testing.T) {
	namespaces := map[Kind]string{
		KindSessionStateChanged:   "session",
		KindUserTranscriptPartial: "user_input",
		KindAssistantGreeting:     "assistant",
		KindTurnEnded:             "conversation",
		KindRecognitionFault:      "recognition",
		Kind("bare"):              "bare",
	}
	for kind, expected := range namespaces {
		if got := kind.Namespace(); got != expected {
			t.Fatalf("expected namespace %q for %q, got %q", expected, kind, got)
		}
	}
}

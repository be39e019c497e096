package dialogue

import (
	"sync"
	"testing"

	"github.com/koscakluka/ema-companion/core/events"
)

func TestEventNotifierPreservesOrder(t *testing.T) {
	var (
		mu       sync.Mutex
		received []string
	)
	notifier := newEventNotifier(func(event events.Event) {
		mu.Lock()
		received = append(received, event.(events.UserTranscriptPartial).Transcript)
		mu.Unlock()
	})

	want := []string{"a", "ab", "abc", "abcd"}
	for _, transcript := range want {
		notifier.publish(events.NewUserTranscriptPartial(transcript))
	}
	notifier.close()

	mu.Lock()
	defer mu.Unlock()
	if len(received) != len(want) {
		t.Fatalf("expected %d events, got %d", len(want), len(received))
	}
	for i := range want {
		if received[i] != want[i] {
			t.Fatalf("expected event %d to be %q, got %q", i, want[i], received[i])
		}
	}
}

func TestEventNotifierDropsAfterClose(t *testing.T) {
	calls := 0
	notifier := newEventNotifier(func(events.Event) { calls++ })
	notifier.close()
	notifier.close()

	notifier.publish(events.NewUserTranscriptFinal("late"))
	if calls != 0 {
		t.Fatalf("expected no events after close, got %d", calls)
	}
}

package scripted

import (
	"context"
	"errors"
	"testing"

	"github.com/koscakluka/ema-companion/core/responders"
)

func TestRespondMatchesKeywords(t *testing.T) {
	r := NewResponder()

	tests := []struct {
		utterance string
		want      string
	}{
		{utterance: "I feel so ANXIOUS today", want: DefaultRules[0].Replies[0]},
		{utterance: "couldn't sleep at all", want: DefaultRules[2].Replies[0]},
		{utterance: "the weather is nice", want: DefaultReplies[0]},
	}
	for _, tt := range tests {
		t.Run(tt.utterance, func(t *testing.T) {
			got, err := r.Respond(context.Background(), responders.Request{Utterance: tt.utterance})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestRespondRotatesReplies(t *testing.T) {
	r := NewResponder(WithRules(Rule{Keywords: []string{"hello"}, Replies: []string{"a", "b"}}))

	var got []string
	for range 3 {
		reply, err := r.Respond(context.Background(), responders.Request{Utterance: "hello"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got = append(got, reply)
	}
	if got[0] != "a" || got[1] != "b" || got[2] != "a" {
		t.Fatalf("expected rotation a, b, a, got %v", got)
	}
}

func TestRespondOpening(t *testing.T) {
	r := NewResponder(WithGreeting("welcome"))
	got, err := r.Respond(context.Background(), responders.Request{Opening: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "welcome" {
		t.Fatalf("expected greeting, got %q", got)
	}
}

func TestRespondEmptyFallbackIsEmpty(t *testing.T) {
	r := NewResponder(WithRules(), WithFallbackReplies())
	got, err := r.Respond(context.Background(), responders.Request{Utterance: "anything"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "" {
		t.Fatalf("expected empty reply, got %q", got)
	}
}

func TestRespondHonorsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewResponder().Respond(ctx, responders.Request{Utterance: "hi"}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

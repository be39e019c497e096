package main

import (
	"testing"

	"github.com/koscakluka/ema-companion/core/responders/groq"
	"github.com/koscakluka/ema-companion/core/responders/openai"
	"github.com/koscakluka/ema-companion/core/responders/scripted"
	"github.com/koscakluka/ema-companion/internal/config"
)

func TestNewGeneratorSelectsResponder(t *testing.T) {
	tests := []struct {
		name  string
		cfg   config.Config
		check func(any) bool
	}{
		{
			name:  "openai",
			cfg:   config.Config{Responder: config.ResponderOpenAI, OpenAIAPIKey: "oa", OpenAIModel: "gpt-4o"},
			check: func(g any) bool { _, ok := g.(*openai.Responder); return ok },
		},
		{
			name:  "groq",
			cfg:   config.Config{Responder: config.ResponderGroq, GroqAPIKey: "gq"},
			check: func(g any) bool { _, ok := g.(*groq.Responder); return ok },
		},
		{
			name:  "scripted",
			cfg:   config.Config{Responder: config.ResponderScripted},
			check: func(g any) bool { _, ok := g.(*scripted.Responder); return ok },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			generator, err := newGenerator(tt.cfg)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tt.check(generator) {
				t.Fatalf("unexpected generator type %T", generator)
			}
		})
	}
}

func TestNewGeneratorReportsMissingKey(t *testing.T) {
	for _, responder := range []string{config.ResponderOpenAI, config.ResponderGroq} {
		if _, err := newGenerator(config.Config{Responder: responder}); err == nil {
			t.Fatalf("expected an error for %s without an API key", responder)
		}
	}
}

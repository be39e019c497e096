package dialogue

import (
	"context"
	"fmt"
	"sync"

	"github.com/koscakluka/ema-companion/core/texttospeech"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type synthesisEventKind int

const (
	synthesisStarted synthesisEventKind = iota
	synthesisEnded
	synthesisFault
)

type synthesisEvent struct {
	utterance uint64
	kind      synthesisEventKind
	text      string
	err       error
}

// synthesis plays one utterance at a time. Starting a new utterance cancels
// the previous one and waits for the engine to let go of it. Cancelled
// utterances never report back.
type synthesis struct {
	engine  TextToSpeech
	deliver func(synthesisEvent)
	voice   texttospeech.Voice

	mu      sync.Mutex
	current uint64
	cancel  context.CancelFunc
	done    chan struct{}
}

func newSynthesis(engine TextToSpeech, voice texttospeech.Voice, deliver func(synthesisEvent)) *synthesis {
	return &synthesis{
		engine:  engine,
		deliver: deliver,
		voice:   voice,
	}
}

// speak starts text in the background and returns its utterance id.
func (s *synthesis) speak(ctx context.Context, text string) uint64 {
	s.cancelAndWait()

	s.mu.Lock()
	s.current++
	utterance := s.current
	speakCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done
	s.mu.Unlock()

	go s.run(speakCtx, utterance, text, done)
	return utterance
}

// cancelCurrent stops the current utterance without waiting for the
// engine. The returned channel closes once the engine has let go of it.
func (s *synthesis) cancelCurrent() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current++
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	done := s.done
	s.done = nil
	return done
}

// cancelAndWait stops the current utterance and returns once the engine's
// Speak call has returned.
func (s *synthesis) cancelAndWait() {
	if done := s.cancelCurrent(); done != nil {
		<-done
	}
}

func (s *synthesis) isCurrent(utterance uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current == utterance
}

// isSpeaking reports whether an utterance is still held by the engine.
func (s *synthesis) isSpeaking() bool {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done == nil {
		return false
	}
	select {
	case <-done:
		return false
	default:
		return true
	}
}

func (s *synthesis) run(ctx context.Context, utterance uint64, text string, done chan struct{}) {
	defer close(done)

	ctx, span := tracer.Start(ctx, "speak utterance", trace.WithAttributes(
		attribute.Int64("dialogue.utterance", int64(utterance)),
		attribute.Int("dialogue.utterance.length", len(text)),
	))
	defer span.End()

	var started sync.Once
	onStarted := func() {
		started.Do(func() {
			s.emit(synthesisEvent{utterance: utterance, kind: synthesisStarted, text: text})
		})
	}

	if s.engine == nil {
		onStarted()
		s.emit(synthesisEvent{utterance: utterance, kind: synthesisEnded, text: text})
		return
	}

	err := s.engine.Speak(ctx, text,
		texttospeech.WithVoice(s.voice),
		texttospeech.WithStartedCallback(onStarted),
	)
	if ctx.Err() != nil {
		span.SetAttributes(attribute.Bool("dialogue.utterance.cancelled", true))
		return
	}
	if err != nil {
		err = fmt.Errorf("failed to speak utterance %d: %w", utterance, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "speech synthesis failed")
		s.emit(synthesisEvent{utterance: utterance, kind: synthesisFault, text: text, err: err})
		return
	}

	onStarted()
	s.emit(synthesisEvent{utterance: utterance, kind: synthesisEnded, text: text})
}

func (s *synthesis) emit(event synthesisEvent) {
	s.mu.Lock()
	current := s.current == event.utterance
	s.mu.Unlock()
	if current {
		s.deliver(event)
	}
}

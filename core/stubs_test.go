package dialogue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/koscakluka/ema-companion/core/responders"
	"github.com/koscakluka/ema-companion/core/speechtotext"
	"github.com/koscakluka/ema-companion/core/texttospeech"
)

// exclusionMonitor records whether recognition and synthesis were ever
// active at the same time.
type exclusionMonitor struct {
	mu         sync.Mutex
	listening  bool
	speaking   bool
	violations int
}

func (m *exclusionMonitor) setListening(active bool) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listening = active
	if m.listening && m.speaking {
		m.violations++
	}
}

func (m *exclusionMonitor) setSpeaking(active bool) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.speaking = active
	if m.listening && m.speaking {
		m.violations++
	}
}

func (m *exclusionMonitor) violationCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.violations
}

type speechToTextStub struct {
	monitor *exclusionMonitor

	mu        sync.Mutex
	options   speechtotext.TranscriptionOptions
	streaming bool
	opened    int
	stopped   int
	// openErrors are returned by consecutive Transcribe calls, nil entries
	// open the stream normally.
	openErrors []error
}

func (s *speechToTextStub) Transcribe(_ context.Context, opts ...speechtotext.TranscriptionOption) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.opened++
	if len(s.openErrors) > 0 {
		err := s.openErrors[0]
		s.openErrors = s.openErrors[1:]
		if err != nil {
			return err
		}
	}
	s.options = speechtotext.Apply(opts...)
	s.streaming = true
	s.monitor.setListening(true)
	return nil
}

func (s *speechToTextStub) StopStream() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.streaming {
		s.stopped++
	}
	s.streaming = false
	s.monitor.setListening(false)
	return nil
}

func (s *speechToTextStub) partial(text string) {
	if options, ok := s.live(); ok {
		options.PartialTranscriptionCallback(text)
	}
}

func (s *speechToTextStub) final(text string) {
	if options, ok := s.live(); ok {
		options.TranscriptionCallback(text)
	}
}

// end terminates the stream as if the engine timed out.
func (s *speechToTextStub) end() {
	if options, ok := s.close(); ok {
		options.StreamEndedCallback()
	}
}

func (s *speechToTextStub) fail(err error) {
	if options, ok := s.close(); ok {
		options.ErrorCallback(err)
	}
}

func (s *speechToTextStub) live() (speechtotext.TranscriptionOptions, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.options, s.streaming
}

func (s *speechToTextStub) close() (speechtotext.TranscriptionOptions, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	wasStreaming := s.streaming
	s.streaming = false
	s.monitor.setListening(false)
	return s.options, wasStreaming
}

func (s *speechToTextStub) isStreaming() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streaming
}

func (s *speechToTextStub) openCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opened
}

type textToSpeechStub struct {
	monitor *exclusionMonitor
	// duration is how long each utterance plays unless release is set.
	duration time.Duration
	release  chan struct{}
	err      error

	mu     sync.Mutex
	spoken []string
	voices []texttospeech.Voice
}

func (s *textToSpeechStub) Speak(ctx context.Context, text string, opts ...texttospeech.SpeechOption) error {
	options := texttospeech.Apply(opts...)

	s.mu.Lock()
	s.spoken = append(s.spoken, text)
	s.voices = append(s.voices, options.Voice)
	s.mu.Unlock()

	s.monitor.setSpeaking(true)
	defer s.monitor.setSpeaking(false)
	options.StartedCallback()

	if s.release != nil {
		select {
		case <-s.release:
		case <-ctx.Done():
			return ctx.Err()
		}
	} else {
		select {
		case <-time.After(s.duration):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return s.err
}

func (s *textToSpeechStub) spokenTexts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.spoken...)
}

type generatorStub struct {
	reply func(request responders.Request) (string, error)
	// release blocks each call until a value is received, ignoring ctx.
	release chan struct{}

	mu            sync.Mutex
	requests      []responders.Request
	inFlight      int
	maxConcurrent int
}

func (g *generatorStub) Respond(ctx context.Context, request responders.Request) (string, error) {
	g.mu.Lock()
	g.requests = append(g.requests, request)
	g.inFlight++
	if g.inFlight > g.maxConcurrent {
		g.maxConcurrent = g.inFlight
	}
	g.mu.Unlock()

	defer func() {
		g.mu.Lock()
		g.inFlight--
		g.mu.Unlock()
	}()

	if g.release != nil {
		<-g.release
	}
	if g.reply == nil {
		return "reply to " + request.Utterance, nil
	}
	return g.reply(request)
}

func (g *generatorStub) calls() []responders.Request {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]responders.Request(nil), g.requests...)
}

func (g *generatorStub) concurrency() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.maxConcurrent
}

var errGeneratorStub = errors.New("generator unavailable")

func waitFor(t *testing.T, description string, condition func() bool) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", description)
}

func waitForState(t *testing.T, c *Controller, state State) {
	t.Helper()
	waitFor(t, "state "+state.String(), func() bool { return c.State() == state })
}

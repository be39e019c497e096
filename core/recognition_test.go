package dialogue

import (
	"context"
	"testing"
	"time"

	"github.com/koscakluka/ema-companion/core/speechtotext"
)

func newTestRecognition(engine SpeechToText) (*recognition, chan recognitionEvent) {
	events := make(chan recognitionEvent, 32)
	r := newRecognition(engine, 5*time.Millisecond, "en-US", func(event recognitionEvent) {
		events <- event
	})
	return r, events
}

func nextRecognitionEvent(t *testing.T, events <-chan recognitionEvent, kind recognitionEventKind) recognitionEvent {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case event := <-events:
			if event.kind == kind {
				return event
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %s event", kind)
			return recognitionEvent{}
		}
	}
}

func TestRecognitionRestartsEndedStream(t *testing.T) {
	engine := &speechToTextStub{}
	r, events := newTestRecognition(engine)
	r.start(context.Background())
	defer r.stop()

	first := nextRecognitionEvent(t, events, recognitionStarted)
	engine.end()
	nextRecognitionEvent(t, events, recognitionEnded)

	second := nextRecognitionEvent(t, events, recognitionStarted)
	if second.stream == first.stream {
		t.Fatalf("expected restarted stream to get a new generation")
	}
	if engine.openCount() != 2 {
		t.Fatalf("expected two streams to be opened, got %d", engine.openCount())
	}
}

func TestRecognitionRestartsAfterRecoverableFault(t *testing.T) {
	engine := &speechToTextStub{}
	r, events := newTestRecognition(engine)
	r.start(context.Background())
	defer r.stop()

	nextRecognitionEvent(t, events, recognitionStarted)
	engine.fail(speechtotext.NewFault(speechtotext.FaultNoSpeech, nil))

	fault := nextRecognitionEvent(t, events, recognitionFault)
	if fault.fault != speechtotext.FaultNoSpeech || fault.restarting {
		t.Fatalf("unexpected fault event: %+v", fault)
	}
	nextRecognitionEvent(t, events, recognitionStarted)
}

func TestRecognitionRetriesFailedOpen(t *testing.T) {
	engine := &speechToTextStub{openErrors: []error{
		speechtotext.NewFault(speechtotext.FaultNetwork, nil),
		speechtotext.NewFault(speechtotext.FaultNetwork, nil),
	}}
	r, events := newTestRecognition(engine)
	r.start(context.Background())
	defer r.stop()

	fault := nextRecognitionEvent(t, events, recognitionFault)
	if !fault.restarting {
		t.Fatalf("expected failed open to be reported as restarting")
	}
	nextRecognitionEvent(t, events, recognitionStarted)
	if engine.openCount() != 3 {
		t.Fatalf("expected three open attempts, got %d", engine.openCount())
	}
}

func TestRecognitionHaltsOnFatalFault(t *testing.T) {
	engine := &speechToTextStub{}
	r, events := newTestRecognition(engine)
	r.start(context.Background())
	defer r.stop()

	nextRecognitionEvent(t, events, recognitionStarted)
	engine.fail(speechtotext.NewFault(speechtotext.FaultNotAllowed, nil))

	fault := nextRecognitionEvent(t, events, recognitionFault)
	if fault.fault.Recoverable() {
		t.Fatalf("expected fatal fault, got %s", fault.fault)
	}

	time.Sleep(30 * time.Millisecond)
	if engine.openCount() != 1 {
		t.Fatalf("expected no restart after a fatal fault, got %d opens", engine.openCount())
	}
}

func TestRecognitionPauseClosesStreamUntilResumed(t *testing.T) {
	engine := &speechToTextStub{}
	r, events := newTestRecognition(engine)
	r.start(context.Background())
	defer r.stop()

	nextRecognitionEvent(t, events, recognitionStarted)
	if !r.isStreaming() {
		t.Fatalf("expected an open stream once started")
	}
	r.pause()
	if engine.isStreaming() || r.isStreaming() {
		t.Fatalf("expected pause to close the stream before returning")
	}

	time.Sleep(30 * time.Millisecond)
	if engine.openCount() != 1 {
		t.Fatalf("expected no restart while paused, got %d opens", engine.openCount())
	}

	r.resume()
	nextRecognitionEvent(t, events, recognitionStarted)
	if engine.openCount() != 2 {
		t.Fatalf("expected resume to reopen the stream, got %d opens", engine.openCount())
	}
}

func TestRecognitionDropsEventsFromStoppedStream(t *testing.T) {
	engine := &speechToTextStub{}
	r, events := newTestRecognition(engine)
	r.start(context.Background())

	started := nextRecognitionEvent(t, events, recognitionStarted)
	options, _ := engine.live()
	r.stop()

	options.PartialTranscriptionCallback("too late")
	options.TranscriptionCallback("too late")

	select {
	case event := <-events:
		t.Fatalf("expected no events after stop, got %s", event.kind)
	case <-time.After(30 * time.Millisecond):
	}
	if r.isCurrent(started.stream) {
		t.Fatalf("expected stopped stream to be stale")
	}
}

func TestRecognitionTagsTranscripts(t *testing.T) {
	engine := &speechToTextStub{}
	r, events := newTestRecognition(engine)
	r.start(context.Background())
	defer r.stop()

	started := nextRecognitionEvent(t, events, recognitionStarted)
	engine.partial("hel")
	engine.final("hello")

	partial := nextRecognitionEvent(t, events, recognitionPartial)
	final := nextRecognitionEvent(t, events, recognitionFinal)
	if partial.text != "hel" || final.text != "hello" {
		t.Fatalf("unexpected transcripts %q and %q", partial.text, final.text)
	}
	if partial.stream != started.stream || final.stream != started.stream {
		t.Fatalf("expected transcripts to carry the stream generation")
	}
	if final.at.IsZero() {
		t.Fatalf("expected transcripts to be timestamped")
	}
}

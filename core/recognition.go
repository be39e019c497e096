package dialogue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/koscakluka/ema-companion/core/speechtotext"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type recognitionEventKind int

const (
	recognitionStarted recognitionEventKind = iota
	recognitionPartial
	recognitionFinal
	recognitionEnded
	recognitionFault
)

func (k recognitionEventKind) String() string {
	switch k {
	case recognitionStarted:
		return "started"
	case recognitionPartial:
		return "partial"
	case recognitionFinal:
		return "final"
	case recognitionEnded:
		return "ended"
	case recognitionFault:
		return "fault"
	default:
		return "unknown"
	}
}

type recognitionEvent struct {
	stream uint64
	kind   recognitionEventKind
	text   string
	at     time.Time

	err   error
	fault speechtotext.FaultKind
	// restarting is set on faults raised while a stream was being
	// established, another attempt is already scheduled.
	restarting bool
}

// recognition keeps a continuous speech-to-text stream alive for the
// duration of a session. Every stream it opens gets a new generation number;
// events are tagged with it and anything from a stream that was paused,
// stopped or replaced is dropped.
type recognition struct {
	engine  SpeechToText
	deliver func(recognitionEvent)

	backoff  time.Duration
	language string

	stream atomic.Uint64

	// engineMu serializes calls into the engine. It is never held while
	// delivering.
	engineMu sync.Mutex

	mu           sync.Mutex
	ctx          context.Context
	active       bool
	paused       bool
	streaming    bool
	streamingID  uint64
	restartTimer *time.Timer
}

func newRecognition(engine SpeechToText, backoff time.Duration, language string, deliver func(recognitionEvent)) *recognition {
	return &recognition{
		engine:   engine,
		deliver:  deliver,
		backoff:  backoff,
		language: language,
	}
}

// start begins recognizing for a session. The stream is opened in the
// background; a Started event confirms it.
func (r *recognition) start(ctx context.Context) {
	r.mu.Lock()
	r.ctx = ctx
	r.active = true
	r.paused = false
	r.mu.Unlock()

	r.launch(false)
}

// pause closes the current stream and returns once the engine has stopped.
// Nothing restarts until resume.
func (r *recognition) pause() {
	r.mu.Lock()
	if !r.active || r.paused {
		r.mu.Unlock()
		return
	}
	r.paused = true
	r.mu.Unlock()

	r.halt()
}

func (r *recognition) resume() {
	r.mu.Lock()
	if !r.active || !r.paused {
		r.mu.Unlock()
		return
	}
	r.paused = false
	r.mu.Unlock()

	r.launch(false)
}

func (r *recognition) stop() {
	r.mu.Lock()
	r.active = false
	r.paused = false
	r.mu.Unlock()

	r.halt()
}

// isCurrent reports whether events of stream should still be acted upon.
func (r *recognition) isCurrent(stream uint64) bool {
	return r.stream.Load() == stream
}

// isStreaming reports whether the engine currently holds an open stream.
func (r *recognition) isStreaming() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.streaming
}

func (r *recognition) halt() {
	r.mu.Lock()
	r.stream.Add(1)
	if r.restartTimer != nil {
		r.restartTimer.Stop()
		r.restartTimer = nil
	}
	wasStreaming := r.streaming
	r.streaming = false
	r.mu.Unlock()

	if !wasStreaming {
		return
	}

	r.engineMu.Lock()
	defer r.engineMu.Unlock()
	if err := r.engine.StopStream(); err != nil {
		logger.Warn("failed to stop recognition stream", "error", err)
	}
}

func (r *recognition) launch(restart bool) {
	r.mu.Lock()
	if !r.active || r.paused || r.engine == nil {
		r.mu.Unlock()
		return
	}
	stream := r.stream.Add(1)
	ctx := r.ctx
	r.mu.Unlock()

	if restart {
		recognitionRestarts.Add(ctx, 1, metric.WithAttributes(attribute.String("language", r.language)))
	}
	go r.open(ctx, stream)
}

func (r *recognition) open(ctx context.Context, stream uint64) {
	r.engineMu.Lock()

	r.mu.Lock()
	if !r.isLiveLocked(stream) {
		r.mu.Unlock()
		r.engineMu.Unlock()
		return
	}
	r.streaming = true
	r.streamingID = stream
	r.mu.Unlock()

	err := r.engine.Transcribe(ctx,
		speechtotext.WithLanguage(r.language),
		speechtotext.WithPartialTranscriptionCallback(func(transcript string) {
			r.emit(recognitionEvent{stream: stream, kind: recognitionPartial, text: transcript})
		}),
		speechtotext.WithTranscriptionCallback(func(transcript string) {
			r.emit(recognitionEvent{stream: stream, kind: recognitionFinal, text: transcript})
		}),
		speechtotext.WithStreamEndedCallback(func() { r.closed(stream, nil) }),
		speechtotext.WithErrorCallback(func(err error) { r.closed(stream, err) }),
	)
	r.engineMu.Unlock()

	if err != nil {
		r.failed(stream, err)
		return
	}

	r.mu.Lock()
	open := r.streaming && r.streamingID == stream
	r.mu.Unlock()
	if open {
		r.emit(recognitionEvent{stream: stream, kind: recognitionStarted})
	}
}

// failed handles a stream that could not be established.
func (r *recognition) failed(stream uint64, err error) {
	if !r.markClosed(stream) {
		return
	}
	if errors.Is(err, context.Canceled) {
		return
	}

	kind := speechtotext.KindOf(err)
	if !kind.Recoverable() {
		r.fatal(stream, kind, err)
		return
	}

	logger.Warn("failed to open recognition stream, retrying", "error", err, "fault", string(kind))
	r.emit(recognitionEvent{stream: stream, kind: recognitionFault, fault: kind, err: err, restarting: true})
	r.scheduleRestart()
}

// closed handles the end of an established stream, err is nil when the
// stream ended on its own.
func (r *recognition) closed(stream uint64, err error) {
	if !r.markClosed(stream) {
		return
	}

	if err == nil {
		r.emit(recognitionEvent{stream: stream, kind: recognitionEnded})
		r.scheduleRestart()
		return
	}

	kind := speechtotext.KindOf(err)
	if !kind.Recoverable() {
		r.fatal(stream, kind, err)
		return
	}
	r.emit(recognitionEvent{stream: stream, kind: recognitionFault, fault: kind, err: err})
	r.scheduleRestart()
}

func (r *recognition) fatal(stream uint64, kind speechtotext.FaultKind, err error) {
	r.mu.Lock()
	r.active = false
	r.mu.Unlock()

	logger.Error("recognition stopped after fatal fault", "error", err, "fault", string(kind))
	r.emit(recognitionEvent{stream: stream, kind: recognitionFault, fault: kind, err: err})
}

// markClosed records that stream is no longer open and reports whether it
// was the live stream.
func (r *recognition) markClosed(stream uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.streaming && r.streamingID == stream {
		r.streaming = false
	}
	return r.isLiveLocked(stream)
}

func (r *recognition) scheduleRestart() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.active || r.paused {
		return
	}
	if r.restartTimer != nil {
		r.restartTimer.Stop()
	}

	var timer *time.Timer
	timer = time.AfterFunc(r.backoff, func() {
		r.mu.Lock()
		if r.restartTimer != timer {
			r.mu.Unlock()
			return
		}
		r.restartTimer = nil
		r.mu.Unlock()
		r.launch(true)
	})
	r.restartTimer = timer
}

func (r *recognition) emit(event recognitionEvent) {
	r.mu.Lock()
	live := r.stream.Load() == event.stream && (r.active || event.kind == recognitionFault)
	r.mu.Unlock()
	if !live {
		return
	}

	if event.at.IsZero() {
		event.at = time.Now()
	}
	r.deliver(event)
}

func (r *recognition) isLiveLocked(stream uint64) bool {
	return r.active && !r.paused && r.stream.Load() == stream
}

package dialogue

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/koscakluka/ema-companion/core/conversations"
	"github.com/koscakluka/ema-companion/core/events"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const controllerInboxCapacity = 64

// Controller coordinates one spoken conversation at a time. All decisions
// are made on a single goroutine reading the controller inbox; adapters only
// ever deliver into it.
type Controller struct {
	speechToText SpeechToText
	textToSpeech TextToSpeech
	generator    ResponseGenerator
	emitEvent    eventEmitter
	config       controllerConfig

	inbox     chan any
	closed    chan struct{}
	done      chan struct{}
	closeOnce sync.Once

	notifier    *eventNotifier
	recognition *recognition
	synthesis   *synthesis
	watchdog    *watchdog
	sequencer   *conversations.Sequencer

	// Owned by the loop goroutine.
	state   State
	session *session

	viewMu sync.RWMutex
	view   sessionView
}

// SessionInfo is a snapshot of the controller's session.
type SessionInfo struct {
	// ID is empty while no session is active.
	ID    string
	State State
	// Message explains the error state to the user.
	Message string
}

type sessionView struct {
	id      string
	state   State
	message string
	partial string
	log     *conversations.Log
}

type session struct {
	id     string
	ctx    context.Context
	cancel context.CancelFunc
	log    *conversations.Log
	gate   *responseGate

	greetingDone    bool
	greetingRequest uint64

	// outstanding holds reply request ids in the order they were submitted,
	// ready holds replies that resolved while another one was being spoken.
	outstanding []uint64
	ready       []gateResult

	replyTurn uint64
	utterance uint64

	pending pendingUtterance

	fatal bool
}

type pendingUtterance struct {
	Partial   string
	Final     string
	StartedAt time.Time
	FinalAt   time.Time
}

type startCommand struct {
	ctx   context.Context
	reply chan error
}

type stopCommand struct {
	// session limits the stop to a particular session, empty stops any.
	session string
	reply   chan struct{}
}

type watchdogFired struct {
	generation uint64
}

type gateCompletion struct {
	session string
	result  gateResult
}

func NewController(opts ...ControllerOption) *Controller {
	c := &Controller{
		emitEvent: noopEventEmitter,
		config:    defaultControllerConfig(),
		inbox:     make(chan any, controllerInboxCapacity),
		closed:    make(chan struct{}),
		done:      make(chan struct{}),
		sequencer: &conversations.Sequencer{},
	}
	for _, opt := range opts {
		opt(c)
	}

	c.notifier = newEventNotifier(c.emitEvent)
	c.watchdog = newWatchdog(func(generation uint64) {
		c.deliver(watchdogFired{generation: generation})
	})
	c.recognition = newRecognition(c.speechToText, c.config.restartBackoff, c.config.language, func(event recognitionEvent) {
		c.deliver(event)
	})
	c.synthesis = newSynthesis(c.textToSpeech, c.config.voice, func(event synthesisEvent) {
		c.deliver(event)
	})

	go c.run()
	return c
}

// Start begins a new session. It returns ErrSessionActive unless the
// controller is idle; a controller in the error state has to be stopped
// first.
func (c *Controller) Start(ctx context.Context) error {
	if c.speechToText == nil || c.generator == nil {
		return ErrNotConfigured
	}

	reply := make(chan error, 1)
	if !c.deliver(startCommand{ctx: ctx, reply: reply}) {
		return ErrControllerClosed
	}
	select {
	case err := <-reply:
		return err
	case <-c.done:
		return ErrControllerClosed
	}
}

// Stop ends the active session and returns once the controller is idle.
// Stopping an idle controller does nothing.
func (c *Controller) Stop() {
	reply := make(chan struct{})
	if !c.deliver(stopCommand{reply: reply}) {
		return
	}
	select {
	case <-reply:
	case <-c.done:
	}
}

// Close stops the session and shuts the controller down. It must not be
// called from the event callback.
func (c *Controller) Close() error {
	c.closeOnce.Do(func() {
		c.Stop()
		close(c.closed)
		<-c.done
		c.synthesis.cancelAndWait()
		c.notifier.close()
	})
	return nil
}

func (c *Controller) State() State {
	c.viewMu.RLock()
	defer c.viewMu.RUnlock()
	return c.view.state
}

func (c *Controller) Session() SessionInfo {
	c.viewMu.RLock()
	defer c.viewMu.RUnlock()
	return SessionInfo{ID: c.view.id, State: c.view.state, Message: c.view.message}
}

// PendingPartial returns the interim transcript of what the user is saying.
func (c *Controller) PendingPartial() string {
	c.viewMu.RLock()
	defer c.viewMu.RUnlock()
	return c.view.partial
}

// Transcript returns a copy of the latest session's turns, including after
// the session stopped.
func (c *Controller) Transcript() []conversations.Turn {
	c.viewMu.RLock()
	log := c.view.log
	c.viewMu.RUnlock()
	if log == nil {
		return nil
	}
	return log.History()
}

func (c *Controller) deliver(msg any) bool {
	select {
	case <-c.closed:
		return false
	default:
	}

	select {
	case c.inbox <- msg:
		return true
	case <-c.closed:
		return false
	}
}

func (c *Controller) run() {
	defer close(c.done)

	for {
		select {
		case <-c.closed:
			return
		case msg := <-c.inbox:
			c.handle(msg)
		}
	}
}

func (c *Controller) handle(msg any) {
	switch m := msg.(type) {
	case startCommand:
		m.reply <- c.handleStart(m.ctx)
	case stopCommand:
		if m.session == "" || (c.session != nil && c.session.id == m.session) {
			c.handleStop()
		}
		if m.reply != nil {
			close(m.reply)
		}
	case recognitionEvent:
		c.handleRecognition(m)
	case synthesisEvent:
		c.handleSynthesis(m)
	case watchdogFired:
		c.handleSilence(m.generation)
	case gateCompletion:
		c.handleReply(m)
	default:
		logger.Warn("dropping unknown controller message")
	}
}

func (c *Controller) handleStart(ctx context.Context) error {
	if c.state != StateIdle {
		return ErrSessionActive
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	c.synthesis.cancelAndWait()

	sessionCtx, cancel := context.WithCancel(ctx)
	s := &session{
		id:     uuid.NewString(),
		ctx:    sessionCtx,
		cancel: cancel,
		log:    conversations.NewLog(c.sequencer),
	}
	id := s.id
	s.gate = newResponseGate(sessionCtx, c.generator, c.config, func(result gateResult) {
		c.deliver(gateCompletion{session: id, result: result})
	})
	c.session = s

	c.viewMu.Lock()
	c.view.id = s.id
	c.view.log = s.log
	c.view.partial = ""
	c.viewMu.Unlock()

	go func() {
		select {
		case <-sessionCtx.Done():
			if ctx.Err() != nil {
				c.deliver(stopCommand{session: id})
			}
		case <-c.closed:
		}
	}()

	logger.Info("dialogue session started", "session", s.id)
	c.enter(StateConnecting, "")

	switch {
	case !c.config.greetingEnabled:
		s.greetingDone = true
		c.recognition.start(s.ctx)
	case c.config.greeting != "":
		c.speakGreeting(c.config.greeting)
	default:
		request, err := s.gate.request(true, "", nil)
		if err != nil {
			// A fresh gate has nothing in flight.
			logger.Error("failed to request greeting", "error", err)
			s.greetingDone = true
			c.recognition.start(s.ctx)
			break
		}
		s.greetingRequest = request
	}
	return nil
}

func (c *Controller) handleStop() {
	s := c.session
	if s == nil {
		return
	}

	c.watchdog.disarm()
	c.recognition.stop()
	c.synthesis.cancelCurrent()
	s.gate.close()

	if s.replyTurn != 0 {
		c.endReplyTurn(s, func(turn *conversations.Turn) { turn.Interrupted = true })
	}
	s.cancel()
	s.pending = pendingUtterance{}
	s.outstanding = nil
	s.ready = nil

	c.enter(StateIdle, "")
	c.session = nil

	c.viewMu.Lock()
	c.view.id = ""
	c.view.partial = ""
	c.viewMu.Unlock()
	logger.Info("dialogue session stopped", "session", s.id, "turns", s.log.Len())
}

// enter moves the state machine to next. The watchdog only runs while
// listening, and recognition is only streaming while listening or awaiting a
// response.
func (c *Controller) enter(next State, message string) {
	previous := c.state
	c.state = next

	if next == StateListening {
		c.watchdog.arm(c.config.silenceInterval)
	} else {
		c.watchdog.disarm()
	}

	switch next {
	case StateSpeaking:
		c.recognition.pause()
	case StateListening, StateAwaitingResponse:
		c.recognition.resume()
	case StateIdle:
		c.recognition.stop()
	case StateError:
		if c.session != nil && c.session.fatal {
			c.recognition.stop()
		}
	}

	sessionID := ""
	if c.session != nil {
		sessionID = c.session.id
	}

	c.viewMu.Lock()
	changed := c.view.state != next || c.view.message != message
	c.view.state = next
	c.view.message = message
	c.viewMu.Unlock()

	if changed {
		logger.Debug("dialogue state changed", "session", sessionID, "from", previous.String(), "to", next.String())
		c.notifier.publish(events.NewSessionStateChanged(sessionID, previous.String(), next.String(), message))
	}
}

func (c *Controller) handleRecognition(event recognitionEvent) {
	s := c.session
	if s == nil || !c.recognition.isCurrent(event.stream) {
		return
	}

	switch event.kind {
	case recognitionStarted:
		switch {
		case c.state == StateConnecting && s.greetingDone:
			c.enter(StateListening, "")
		case c.state == StateError && !s.fatal:
			c.enter(StateListening, "")
		}

	case recognitionPartial:
		if !c.acceptsSpeech() {
			return
		}
		text := strings.TrimSpace(event.text)
		if text == "" {
			return
		}
		if s.pending.StartedAt.IsZero() {
			s.pending.StartedAt = event.at
		}
		s.pending.Partial = text
		c.setPartial(text)
		c.notifier.publish(events.NewUserTranscriptPartial(text))
		if c.state == StateListening {
			c.watchdog.arm(c.config.silenceInterval)
		}

	case recognitionFinal:
		if !c.acceptsSpeech() {
			return
		}
		text := strings.TrimSpace(event.text)
		if text == "" {
			return
		}
		if s.pending.StartedAt.IsZero() {
			s.pending.StartedAt = event.at
		}
		// The engine combines segments of one utterance, a later final
		// replaces the buffered one.
		s.pending.Final = text
		s.pending.FinalAt = event.at
		s.pending.Partial = ""
		c.setPartial("")
		c.notifier.publish(events.NewUserTranscriptFinal(text))

		switch c.state {
		case StateListening:
			c.watchdog.arm(c.config.silenceInterval)
		case StateAwaitingResponse:
			// The watchdog does not run while awaiting, queue the utterance
			// behind the one in flight.
			c.submitPending(s)
		}

	case recognitionEnded:
		logger.Debug("recognition stream ended", "session", s.id)

	case recognitionFault:
		recoverable := event.fault.Recoverable()
		c.notifier.publish(events.NewRecognitionFault(string(event.fault), recoverable, event.err))

		switch {
		case !recoverable:
			s.fatal = true
			c.enter(StateError, event.fault.Message())
		case event.restarting && (c.state == StateListening || (c.state == StateConnecting && s.greetingDone)):
			c.enter(StateError, event.fault.Message())
		default:
			logger.Debug("recoverable recognition fault", "session", s.id, "fault", string(event.fault))
		}
	}
}

func (c *Controller) acceptsSpeech() bool {
	switch c.state {
	case StateConnecting, StateListening, StateAwaitingResponse:
		return c.session.greetingDone
	default:
		return false
	}
}

func (c *Controller) handleSilence(generation uint64) {
	s := c.session
	if s == nil || c.state != StateListening || !c.watchdog.isCurrent(generation) {
		return
	}
	if strings.TrimSpace(s.pending.Final) == "" {
		return
	}

	if c.submitPending(s) {
		c.enter(StateAwaitingResponse, "")
		return
	}
	// Try again after another silence window.
	c.watchdog.arm(c.config.silenceInterval)
}

// submitPending logs the buffered final transcript as a user turn and hands
// it to the response gate.
func (c *Controller) submitPending(s *session) bool {
	text := strings.TrimSpace(s.pending.Final)
	if text == "" {
		return false
	}
	if s.gate.pending() > c.config.queueDepth {
		logger.Warn("response gate busy, keeping utterance buffered", "session", s.id)
		return false
	}

	_, span := tracer.Start(s.ctx, "handle utterance", trace.WithAttributes(
		attribute.String("dialogue.session", s.id),
		attribute.Int("dialogue.utterance.length", len(text)),
	))
	defer span.End()

	finalAt := s.pending.FinalAt
	turn := s.log.Append(conversations.SpeakerUser, text, s.pending.StartedAt, &finalAt)
	c.turnAppended(s, turn)

	log, sequence := s.log, turn.Sequence
	request, err := s.gate.request(false, text, func() []conversations.Turn {
		return historyFor(log, sequence)
	})
	if err != nil {
		span.RecordError(err)
		logger.Error("failed to request reply", "session", s.id, "error", err)
		return false
	}
	s.outstanding = append(s.outstanding, request)

	partial := s.pending.Partial
	s.pending = pendingUtterance{Partial: partial}
	if partial != "" {
		s.pending.StartedAt = time.Now()
	}
	return true
}

func (c *Controller) handleReply(completion gateCompletion) {
	s := c.session
	if s == nil || s.id != completion.session {
		return
	}
	result := completion.result

	if result.opening {
		s.gate.advance(result.request)
		if c.state != StateConnecting || result.request != s.greetingRequest {
			return
		}
		s.greetingRequest = 0
		c.speakGreeting(result.reply)
		return
	}

	index := slices.Index(s.outstanding, result.request)
	if index < 0 {
		s.gate.advance(result.request)
		return
	}
	s.outstanding = slices.Delete(s.outstanding, index, index+1)

	switch c.state {
	case StateAwaitingResponse:
		c.speakReply(s, result)
	case StateSpeaking:
		s.ready = append(s.ready, result)
	default:
		logger.Warn("dropping reply outside of a turn", "session", s.id, "state", c.state.String())
		s.gate.advance(result.request)
	}
}

func (c *Controller) speakGreeting(text string) {
	s := c.session
	c.notifier.publish(events.NewAssistantGreeting(text))
	s.utterance = c.synthesis.speak(s.ctx, text)
}

func (c *Controller) speakReply(s *session, result gateResult) {
	turn := s.log.Append(conversations.SpeakerAssistant, result.reply, time.Now(), nil)
	s.replyTurn = turn.Sequence
	c.turnAppended(s, turn)
	// The next queued request may only run once this reply is in the log.
	s.gate.advance(result.request)

	c.enter(StateSpeaking, "")
	s.utterance = c.synthesis.speak(s.ctx, result.reply)
}

func (c *Controller) handleSynthesis(event synthesisEvent) {
	s := c.session
	if s == nil || event.utterance != s.utterance || !c.synthesis.isCurrent(event.utterance) {
		return
	}

	if event.kind == synthesisStarted {
		c.notifier.publish(events.NewAssistantSpeechStarted(event.text))
		return
	}

	failed := event.kind == synthesisFault
	if failed {
		logger.Warn("speech synthesis failed", "session", s.id, "error", event.err)
	}
	s.utterance = 0
	c.notifier.publish(events.NewAssistantSpeechEnded(event.text, failed))

	switch c.state {
	case StateConnecting:
		s.greetingDone = true
		c.recognition.start(s.ctx)

	case StateSpeaking:
		c.endReplyTurn(s, func(turn *conversations.Turn) { turn.SpeechFailed = failed })

		switch {
		case len(s.ready) > 0:
			next := s.ready[0]
			s.ready = s.ready[1:]
			c.speakReply(s, next)
		case len(s.outstanding) > 0:
			c.enter(StateAwaitingResponse, "")
		default:
			c.enter(StateListening, "")
		}
	}
}

func (c *Controller) endReplyTurn(s *session, update func(*conversations.Turn)) {
	sequence := s.replyTurn
	s.replyTurn = 0

	turn, err := s.log.End(sequence, time.Now(), update)
	if err != nil {
		if !errors.Is(err, conversations.ErrTurnEnded) {
			logger.Error("failed to end assistant turn", "session", s.id, "error", err)
		}
		return
	}
	c.notifier.publish(events.NewTurnEnded(turn))
}

func (c *Controller) turnAppended(s *session, turn conversations.Turn) {
	loggedTurns.Add(s.ctx, 1, metric.WithAttributes(attribute.String("speaker", string(turn.Speaker))))
	c.notifier.publish(events.NewTurnAppended(turn))
}

func (c *Controller) setPartial(text string) {
	c.viewMu.Lock()
	c.view.partial = text
	c.viewMu.Unlock()
}

// historyFor returns the turns a reply to the user turn with sequence should
// see: everything logged so far except that turn and user turns queued
// behind it.
func historyFor(log *conversations.Log, sequence uint64) []conversations.Turn {
	history := log.History()
	filtered := history[:0]
	for _, turn := range history {
		if turn.Speaker == conversations.SpeakerUser && turn.Sequence >= sequence {
			continue
		}
		filtered = append(filtered, turn)
	}
	return filtered
}

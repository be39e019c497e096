package dialogue

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/koscakluka/ema-companion/core/conversations"
	"github.com/koscakluka/ema-companion/core/responders"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

type gateRequest struct {
	id        uint64
	opening   bool
	utterance string
	// history is evaluated when the request is dispatched. Dispatch waits
	// for the previous result to be acknowledged, so a queued request sees
	// the reply logged for the one before it.
	history func() []conversations.Turn
}

type gateResult struct {
	request   uint64
	opening   bool
	utterance string
	reply     string
	// fallback is set when reply replaces a failed or empty generation.
	fallback bool
	err      error
}

// responseGate keeps at most one generator call in flight. Further requests
// wait in a FIFO queue of bounded depth and are dispatched once the previous
// result has been delivered and acknowledged with advance.
type responseGate struct {
	generator responders.Generator
	deliver   func(gateResult)

	timeout  time.Duration
	depth    int
	fallback string
	greeting string

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	closed   bool
	inFlight bool
	queue    []gateRequest
	lastID   uint64
	acked    uint64
	wake     chan struct{}
}

func newResponseGate(ctx context.Context, generator responders.Generator, config controllerConfig, deliver func(gateResult)) *responseGate {
	ctx, cancel := context.WithCancel(ctx)
	greeting := config.greeting
	if greeting == "" {
		greeting = DefaultGreeting
	}
	return &responseGate{
		generator: generator,
		deliver:   deliver,
		timeout:   config.responseTimeout,
		depth:     config.queueDepth,
		fallback:  config.fallbackReply,
		greeting:  greeting,
		ctx:       ctx,
		cancel:    cancel,
		wake:      make(chan struct{}, 1),
	}
}

// request submits a reply request and returns its id. It fails with
// ErrGateBusy when the queue is full and ErrGateClosed after close.
func (g *responseGate) request(opening bool, utterance string, history func() []conversations.Turn) (uint64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return 0, ErrGateClosed
	}
	if g.inFlight && len(g.queue) >= g.depth {
		return 0, ErrGateBusy
	}

	g.lastID++
	req := gateRequest{id: g.lastID, opening: opening, utterance: utterance, history: history}
	if g.inFlight {
		g.queue = append(g.queue, req)
		return req.id, nil
	}
	g.inFlight = true
	go g.run(req)
	return req.id, nil
}

// advance acknowledges the result of request so the next queued request can
// be dispatched. Acknowledging an older request does nothing.
func (g *responseGate) advance(request uint64) {
	g.mu.Lock()
	if request > g.acked {
		g.acked = request
	}
	g.mu.Unlock()

	select {
	case g.wake <- struct{}{}:
	default:
	}
}

// pending reports how many requests are in flight or queued.
func (g *responseGate) pending() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.inFlight {
		return 0
	}
	return 1 + len(g.queue)
}

// close abandons the in-flight and queued requests, their results are never
// delivered.
func (g *responseGate) close() {
	g.mu.Lock()
	g.closed = true
	g.queue = nil
	g.mu.Unlock()
	g.cancel()
}

func (g *responseGate) run(req gateRequest) {
	for {
		result := g.call(req)

		g.mu.Lock()
		closed := g.closed
		g.mu.Unlock()
		if closed {
			return
		}
		g.deliver(result)
		if !g.awaitAdvance(result.request) {
			return
		}

		g.mu.Lock()
		if g.closed || len(g.queue) == 0 {
			g.inFlight = false
			g.mu.Unlock()
			return
		}
		req = g.queue[0]
		g.queue = g.queue[1:]
		g.mu.Unlock()
	}
}

// awaitAdvance blocks until request has been acknowledged. It returns false
// once the gate is closed.
func (g *responseGate) awaitAdvance(request uint64) bool {
	for {
		g.mu.Lock()
		switch {
		case g.closed:
			g.inFlight = false
			g.mu.Unlock()
			return false
		case g.acked >= request:
			g.mu.Unlock()
			return true
		}
		g.mu.Unlock()

		select {
		case <-g.wake:
		case <-g.ctx.Done():
			g.mu.Lock()
			g.inFlight = false
			g.mu.Unlock()
			return false
		}
	}
}

func (g *responseGate) call(req gateRequest) gateResult {
	ctx, span := tracer.Start(g.ctx, "generate response", trace.WithAttributes(
		attribute.Int64("dialogue.request", int64(req.id)),
		attribute.Bool("dialogue.request.opening", req.opening),
	))
	defer span.End()

	result := gateResult{request: req.id, opening: req.opening, utterance: req.utterance}

	var history []conversations.Turn
	if req.history != nil {
		history = req.history()
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	reply, err := g.generator.Respond(ctx, responders.Request{
		Opening:   req.opening,
		Utterance: req.utterance,
		History:   history,
	})
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	reply = strings.TrimSpace(reply)

	switch {
	case err != nil:
		result.err = fmt.Errorf("failed to generate response: %w", err)
		span.RecordError(result.err)
		span.SetStatus(codes.Error, "response generation failed")
	case reply == "":
		result.err = fmt.Errorf("failed to generate response: empty reply")
		span.SetStatus(codes.Error, "empty reply")
	default:
		result.reply = reply
		return result
	}

	if g.ctx.Err() == nil {
		logger.Warn("replacing reply with fallback", "error", result.err, "opening", req.opening)
		fallbackReplies.Add(g.ctx, 1, metric.WithAttributes(attribute.Bool("opening", req.opening)))
	}
	result.fallback = true
	if req.opening {
		result.reply = g.greeting
	} else {
		result.reply = g.fallback
	}
	return result
}

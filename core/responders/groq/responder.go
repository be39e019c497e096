// Package groq streams companion replies from Groq's OpenAI compatible chat
// completions endpoint.
package groq

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/koscakluka/ema-companion/core/responders"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
)

const (
	DefaultURL   = "https://api.groq.com/openai/v1/chat/completions"
	DefaultModel = "llama-3.3-70b-versatile"

	DefaultInstructions = "You are a calm, supportive wellness companion talking out loud. " +
		"Reply in one to three short spoken sentences, no markdown or lists."

	openingPrompt = "The user just joined. Greet them warmly in one sentence and ask how they feel."

	endMessage  = "[DONE]"
	chunkPrefix = "data:"
)

var ErrMissingAPIKey = errors.New("groq: API key is required")

type Responder struct {
	apiKey       string
	url          string
	model        string
	instructions string
	maxHistory   int
	client       *http.Client

	firstToken metric.Float64Histogram
}

type ResponderOption func(*Responder)

func WithModel(model string) ResponderOption {
	return func(r *Responder) { r.model = model }
}

func WithInstructions(instructions string) ResponderOption {
	return func(r *Responder) { r.instructions = instructions }
}

func WithURL(url string) ResponderOption {
	return func(r *Responder) { r.url = url }
}

func WithMaxHistory(turns int) ResponderOption {
	return func(r *Responder) { r.maxHistory = turns }
}

func WithHTTPClient(client *http.Client) ResponderOption {
	return func(r *Responder) { r.client = client }
}

func NewResponder(apiKey string, opts ...ResponderOption) (*Responder, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	r := &Responder{
		apiKey:       apiKey,
		url:          DefaultURL,
		model:        DefaultModel,
		instructions: DefaultInstructions,
		maxHistory:   20,
		client: &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport,
			otelhttp.WithSpanNameFormatter(func(operationName string, request *http.Request) string {
				return operationName + " " + request.URL.Path
			}),
		)},
	}
	for _, opt := range opts {
		opt(r)
	}

	var err error
	r.firstToken, err = meter.Float64Histogram("companion.responder.first_token",
		metric.WithDescription("Time from request to the first streamed reply token"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create first token histogram: %w", err)
	}
	return r, nil
}

type requestBody struct {
	Model    string    `json:"model"`
	Messages []message `json:"messages"`
	Stream   bool      `json:"stream"`
}

type streamingResponseBody struct {
	Choices []struct {
		Delta struct {
			Content      string  `json:"content,omitempty"`
			FinishReason *string `json:"finish_reason,omitempty"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason,omitempty"`
	} `json:"choices"`
	XGroq *struct {
		Usage *usage `json:"usage,omitempty"`
	} `json:"x_groq,omitempty"`
	Usage *usage `json:"usage,omitempty"`
}

type usage struct {
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	TotalTokens      int     `json:"total_tokens"`
	QueueTime        float64 `json:"queue_time"`
	TotalTime        float64 `json:"total_time"`
}

// Respond streams the completion and returns the concatenated reply.
func (r *Responder) Respond(ctx context.Context, request responders.Request) (string, error) {
	ctx, span := tracer.Start(ctx, "prompt companion reply stream")
	defer span.End()
	span.SetAttributes(
		attribute.String("request.model", r.model),
		attribute.Bool("request.opening", request.Opening),
	)

	fail := func(err error, description string) (string, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, description)
		return "", err
	}

	body, err := json.Marshal(requestBody{
		Model:    r.model,
		Messages: toMessages(r.instructions, request, r.maxHistory),
		Stream:   true,
	})
	if err != nil {
		return fail(fmt.Errorf("error marshalling JSON: %w", err), "failed to encode request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
	if err != nil {
		return fail(fmt.Errorf("error creating HTTP request: %w", err), "failed to create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+r.apiKey)

	requestedAt := time.Now()
	resp, err := r.client.Do(req)
	if err != nil {
		return fail(fmt.Errorf("error sending request: %w", err), "request failed")
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("response.status_code", resp.StatusCode))
	if resp.StatusCode != http.StatusOK {
		if errorBody, err := io.ReadAll(resp.Body); err == nil {
			span.SetAttributes(attribute.String("response.error", string(errorBody)))
		}
		return fail(fmt.Errorf("non-OK HTTP status: %s", resp.Status), "unexpected status")
	}

	var reply strings.Builder
	firstToken := true
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		chunk := strings.TrimSpace(strings.TrimPrefix(scanner.Text(), chunkPrefix))
		if len(chunk) == 0 {
			continue
		}
		if chunk == endMessage {
			break
		}

		var responseBody streamingResponseBody
		if err := json.Unmarshal([]byte(chunk), &responseBody); err != nil {
			logger.Warn("failed to decode stream chunk", "error", err)
			continue
		}
		for _, choice := range responseBody.Choices {
			if choice.Delta.Content == "" {
				continue
			}
			if firstToken {
				firstToken = false
				r.firstToken.Record(ctx, time.Since(requestedAt).Seconds())
				span.AddEvent("received first chunk")
			}
			reply.WriteString(choice.Delta.Content)
		}

		u := responseBody.Usage
		if u == nil && responseBody.XGroq != nil {
			u = responseBody.XGroq.Usage
		}
		if u != nil {
			span.SetAttributes(
				attribute.Int("usage.prompt", u.PromptTokens),
				attribute.Int("usage.completion", u.CompletionTokens),
				attribute.Int("usage.total", u.TotalTokens),
				attribute.Float64("usage.queue_time", u.QueueTime),
				attribute.Float64("usage.total_time", u.TotalTime),
			)
		}
	}
	if err := scanner.Err(); err != nil {
		return fail(fmt.Errorf("error reading streamed response: %w", err), "stream interrupted")
	}

	return strings.TrimSpace(reply.String()), nil
}

var _ responders.Generator = (*Responder)(nil)

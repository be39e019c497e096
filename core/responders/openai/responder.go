// Package openai produces companion replies with the OpenAI chat completions
// API.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/jinzhu/copier"
	"github.com/koscakluka/ema-companion/core/conversations"
	"github.com/koscakluka/ema-companion/core/responders"
	goopenai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	DefaultModel = goopenai.GPT4oMini

	DefaultInstructions = "You are a calm, supportive wellness companion having a spoken " +
		"conversation. Answer in one to three short sentences of plain speech " +
		"without lists, markdown or emoji. Ask at most one gentle follow-up question."

	openingPrompt = "The user just started a session. Greet them warmly in one sentence " +
		"and ask how they are feeling today."
)

var ErrMissingAPIKey = errors.New("openai: API key is required")

// Responder implements [responders.Generator].
type Responder struct {
	client       *goopenai.Client
	model        string
	instructions string
	maxHistory   int
}

type ResponderOption func(*responderConfig)

type responderConfig struct {
	model        string
	instructions string
	baseURL      string
	maxHistory   int
	httpClient   *http.Client
}

func WithModel(model string) ResponderOption {
	return func(c *responderConfig) { c.model = model }
}

func WithInstructions(instructions string) ResponderOption {
	return func(c *responderConfig) { c.instructions = instructions }
}

// WithBaseURL points the client at an OpenAI compatible endpoint.
func WithBaseURL(baseURL string) ResponderOption {
	return func(c *responderConfig) { c.baseURL = baseURL }
}

// WithMaxHistory limits how many of the most recent turns are sent with each
// request. Zero or less sends the whole history.
func WithMaxHistory(turns int) ResponderOption {
	return func(c *responderConfig) { c.maxHistory = turns }
}

func WithHTTPClient(client *http.Client) ResponderOption {
	return func(c *responderConfig) { c.httpClient = client }
}

func NewResponder(apiKey string, opts ...ResponderOption) (*Responder, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	cfg := responderConfig{
		model:        DefaultModel,
		instructions: DefaultInstructions,
		maxHistory:   20,
		httpClient:   &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	clientConfig := goopenai.DefaultConfig(apiKey)
	clientConfig.HTTPClient = cfg.httpClient
	if cfg.baseURL != "" {
		clientConfig.BaseURL = cfg.baseURL
	}

	return &Responder{
		client:       goopenai.NewClientWithConfig(clientConfig),
		model:        cfg.model,
		instructions: cfg.instructions,
		maxHistory:   cfg.maxHistory,
	}, nil
}

// companionReply is the structured output requested from the model.
type companionReply struct {
	Reply string `json:"reply" jsonschema:"title=Reply,description=What the companion says out loud next"`
}

func (r *Responder) Respond(ctx context.Context, request responders.Request) (string, error) {
	ctx, span := tracer.Start(ctx, "prompt companion reply")
	defer span.End()
	span.SetAttributes(
		attribute.String("request.model", r.model),
		attribute.Bool("request.opening", request.Opening),
		attribute.Int("request.history_length", len(request.History)),
	)

	messages, err := r.messages(request)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to build prompt")
		return "", err
	}

	reflector := jsonschema.Reflector{DoNotReference: true}
	schema := reflector.Reflect(&companionReply{})

	response, err := r.client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model:    r.model,
		Messages: messages,
		ResponseFormat: &goopenai.ChatCompletionResponseFormat{
			Type: goopenai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &goopenai.ChatCompletionResponseFormatJSONSchema{
				Name:   "companion_reply",
				Schema: schema,
				Strict: true,
			},
		},
	})
	if err != nil {
		err = fmt.Errorf("failed to create chat completion: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "chat completion failed")
		return "", err
	}
	if len(response.Choices) == 0 {
		err := fmt.Errorf("chat completion returned no choices")
		span.RecordError(err)
		span.SetStatus(codes.Error, "empty completion")
		return "", err
	}

	reply := parseReply(response.Choices[0].Message.Content)
	span.SetAttributes(attribute.Int("response.length", len(reply)))
	return reply, nil
}

// promptTurn is the part of a logged turn that is sent to the model.
type promptTurn struct {
	Speaker conversations.Speaker
	Text    string
}

func (r *Responder) messages(request responders.Request) ([]goopenai.ChatCompletionMessage, error) {
	history := request.History
	if r.maxHistory > 0 && len(history) > r.maxHistory {
		history = history[len(history)-r.maxHistory:]
	}

	var turns []promptTurn
	if err := copier.Copy(&turns, history); err != nil {
		return nil, fmt.Errorf("failed to copy history: %w", err)
	}

	messages := make([]goopenai.ChatCompletionMessage, 0, len(turns)+2)
	messages = append(messages, goopenai.ChatCompletionMessage{
		Role:    goopenai.ChatMessageRoleSystem,
		Content: r.instructions,
	})
	for _, turn := range turns {
		if strings.TrimSpace(turn.Text) == "" {
			continue
		}
		role := goopenai.ChatMessageRoleUser
		if turn.Speaker == conversations.SpeakerAssistant {
			role = goopenai.ChatMessageRoleAssistant
		}
		messages = append(messages, goopenai.ChatCompletionMessage{Role: role, Content: turn.Text})
	}

	prompt := request.Utterance
	if request.Opening {
		prompt = openingPrompt
	}
	messages = append(messages, goopenai.ChatCompletionMessage{
		Role:    goopenai.ChatMessageRoleUser,
		Content: prompt,
	})
	return messages, nil
}

// parseReply extracts the reply field, falling back to the raw content when
// the model ignored the response format.
func parseReply(content string) string {
	content = strings.TrimSpace(content)
	if split := strings.Split(content, "```"); len(split) > 1 {
		content = strings.TrimPrefix(strings.TrimSpace(split[1]), "json")
	}

	var reply companionReply
	if err := json.Unmarshal([]byte(content), &reply); err != nil {
		logger.Debug("reply was not structured", "error", err)
		return strings.TrimSpace(content)
	}
	return strings.TrimSpace(reply.Reply)
}

var _ responders.Generator = (*Responder)(nil)

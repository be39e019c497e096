// Package scripted answers with canned wellness replies chosen by keyword. It
// lets the companion run without a language model.
package scripted

import (
	"context"
	"strings"
	"sync"
	"unicode"

	"github.com/koscakluka/ema-companion/core/responders"
)

const Greeting = "Hi, I'm here with you. How are you feeling today?"

// Rule answers utterances that contain any of its keywords. Replies are used
// in rotation.
type Rule struct {
	Keywords []string
	Replies  []string
}

var DefaultRules = []Rule{
	{
		Keywords: []string{"anxious", "anxiety", "nervous", "worried", "panic", "stress", "stressed"},
		Replies: []string{
			"That sounds really stressful. Let's take a slow breath together, in for four and out for six.",
			"It makes sense to feel that way. What is weighing on you the most right now?",
		},
	},
	{
		Keywords: []string{"sad", "down", "lonely", "depressed", "cry", "crying"},
		Replies: []string{
			"I'm sorry you're feeling low. I'm here, and you don't have to go through it alone.",
			"Thank you for telling me. Would it help to talk about what brought this on?",
		},
	},
	{
		Keywords: []string{"sleep", "tired", "exhausted", "insomnia"},
		Replies: []string{
			"Rest matters so much. Have you been able to wind down before bed lately?",
			"Being tired makes everything heavier. Maybe a short break away from screens could help.",
		},
	},
	{
		Keywords: []string{"good", "great", "happy", "better", "fine"},
		Replies: []string{
			"I'm glad to hear that. What has been going well for you?",
			"That's lovely. Is there something you'd like to celebrate today?",
		},
	},
	{
		Keywords: []string{"thanks", "thank"},
		Replies:  []string{"You're very welcome. I'm always happy to listen."},
	},
	{
		Keywords: []string{"bye", "goodbye"},
		Replies:  []string{"Take care of yourself. I'm here whenever you want to talk again."},
	},
}

var DefaultReplies = []string{
	"I hear you. Tell me a little more about that.",
	"How does that make you feel?",
	"That's understandable. What would help you most right now?",
}

type Responder struct {
	greeting string
	rules    []Rule
	fallback []string

	mu   sync.Mutex
	next map[int]int
}

type ResponderOption func(*Responder)

func WithGreeting(text string) ResponderOption {
	return func(r *Responder) { r.greeting = text }
}

// WithRules replaces the default rules. Earlier rules win.
func WithRules(rules ...Rule) ResponderOption {
	return func(r *Responder) { r.rules = rules }
}

// WithFallbackReplies sets the replies used when no rule matches.
func WithFallbackReplies(replies ...string) ResponderOption {
	return func(r *Responder) { r.fallback = replies }
}

func NewResponder(opts ...ResponderOption) *Responder {
	r := &Responder{
		greeting: Greeting,
		rules:    DefaultRules,
		fallback: DefaultReplies,
		next:     map[int]int{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Responder) Respond(ctx context.Context, request responders.Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if request.Opening {
		return r.greeting, nil
	}

	words := tokenize(request.Utterance)
	for i, rule := range r.rules {
		if matches(rule.Keywords, words) {
			return r.rotate(i, rule.Replies), nil
		}
	}
	return r.rotate(-1, r.fallback), nil
}

func (r *Responder) rotate(key int, replies []string) string {
	if len(replies) == 0 {
		return ""
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.next[key]
	r.next[key] = (i + 1) % len(replies)
	return replies[i]
}

func tokenize(text string) map[string]struct{} {
	words := map[string]struct{}{}
	for _, word := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\''
	}) {
		words[word] = struct{}{}
	}
	return words
}

func matches(keywords []string, words map[string]struct{}) bool {
	for _, keyword := range keywords {
		if _, ok := words[strings.ToLower(keyword)]; ok {
			return true
		}
	}
	return false
}

var _ responders.Generator = (*Responder)(nil)

package groq

import (
	"strings"

	"github.com/koscakluka/ema-companion/core/conversations"
	"github.com/koscakluka/ema-companion/core/responders"
)

type message struct {
	Role    messageRole `json:"role"`
	Content string      `json:"content"`
}

type messageRole string

const (
	messageRoleSystem    messageRole = "system"
	messageRoleUser      messageRole = "user"
	messageRoleAssistant messageRole = "assistant"
)

func toMessages(instructions string, request responders.Request, maxHistory int) []message {
	messages := []message{}
	if instructions != "" {
		messages = append(messages, message{Role: messageRoleSystem, Content: instructions})
	}

	history := request.History
	if maxHistory > 0 && len(history) > maxHistory {
		history = history[len(history)-maxHistory:]
	}
	for _, turn := range history {
		// Replies that never played were not heard by the user.
		if strings.TrimSpace(turn.Text) == "" || turn.SpeechFailed {
			continue
		}
		role := messageRoleUser
		if turn.Speaker == conversations.SpeakerAssistant {
			role = messageRoleAssistant
		}
		messages = append(messages, message{Role: role, Content: turn.Text})
	}

	prompt := request.Utterance
	if request.Opening {
		prompt = openingPrompt
	}
	return append(messages, message{Role: messageRoleUser, Content: prompt})
}

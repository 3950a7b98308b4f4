// Package langchain bridges rendered chat messages into LangChain-Go's
// message types, so a messages template can feed a llms model call
// directly. The engine itself stays on the abstract {role, text} pair.
package langchain

import (
	"fmt"

	"github.com/tmc/langchaingo/llms"

	"github.com/killallgit/llt/pkg/chat"
)

// ToChatMessages converts rendered entries into langchaingo chat messages.
func ToChatMessages(msgs []chat.Message) ([]llms.ChatMessage, error) {
	out := make([]llms.ChatMessage, 0, len(msgs))
	for _, m := range msgs {
		cm, err := toChatMessage(m)
		if err != nil {
			return nil, err
		}
		out = append(out, cm)
	}
	return out, nil
}

func toChatMessage(m chat.Message) (llms.ChatMessage, error) {
	switch m.Role {
	case chat.RoleSystem:
		return llms.SystemChatMessage{Content: m.Content}, nil
	case chat.RoleUser:
		return llms.HumanChatMessage{Content: m.Content}, nil
	case chat.RoleAssistant:
		return llms.AIChatMessage{Content: m.Content}, nil
	default:
		return nil, fmt.Errorf("role %q has no langchain mapping", m.Role)
	}
}

// ToMessageContent converts rendered entries into the content form the
// llms.Model GenerateContent API takes.
func ToMessageContent(msgs []chat.Message) ([]llms.MessageContent, error) {
	out := make([]llms.MessageContent, 0, len(msgs))
	for _, m := range msgs {
		role, err := messageType(m.Role)
		if err != nil {
			return nil, err
		}
		out = append(out, llms.TextParts(role, m.Content))
	}
	return out, nil
}

func messageType(role string) (llms.ChatMessageType, error) {
	switch role {
	case chat.RoleSystem:
		return llms.ChatMessageTypeSystem, nil
	case chat.RoleUser:
		return llms.ChatMessageTypeHuman, nil
	case chat.RoleAssistant:
		return llms.ChatMessageTypeAI, nil
	default:
		return "", fmt.Errorf("role %q has no langchain mapping", role)
	}
}

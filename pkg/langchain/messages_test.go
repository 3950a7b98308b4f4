package langchain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/killallgit/llt/pkg/chat"
)

func TestToChatMessages(t *testing.T) {
	msgs := []chat.Message{
		chat.NewSystemMessage("be helpful"),
		chat.NewUserMessage("hi"),
		chat.NewAssistantMessage("hello"),
	}

	out, err := ToChatMessages(msgs)
	require.NoError(t, err)
	require.Len(t, out, 3)

	assert.Equal(t, llms.ChatMessageTypeSystem, out[0].GetType())
	assert.Equal(t, "be helpful", out[0].GetContent())
	assert.Equal(t, llms.ChatMessageTypeHuman, out[1].GetType())
	assert.Equal(t, llms.ChatMessageTypeAI, out[2].GetType())
}

func TestToChatMessagesRejectsUnknownRoles(t *testing.T) {
	_, err := ToChatMessages([]chat.Message{{Role: "narrator", Content: "x"}})
	assert.Error(t, err)
}

func TestToMessageContent(t *testing.T) {
	out, err := ToMessageContent([]chat.Message{
		chat.NewSystemMessage("sys"),
		chat.NewUserMessage("query"),
	})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, llms.ChatMessageTypeSystem, out[0].Role)
	assert.Equal(t, llms.ChatMessageTypeHuman, out[1].Role)
}

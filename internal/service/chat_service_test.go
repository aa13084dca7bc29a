package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/parley-ai/parley/internal/model"
)

func TestBuildSummaryPrompt(t *testing.T) {
	msgs := []model.Message{
		{Role: model.RoleUser, Content: "what is Go?"},
		{Role: model.RoleAssistant, Content: "a programming language"},
	}

	prompt := buildSummaryPrompt(nil, msgs)
	require.Contains(t, prompt, "user: what is Go?")
	require.Contains(t, prompt, "assistant: a programming language")
	require.NotContains(t, prompt, "PREVIOUS SUMMARY")

	existing := "earlier we talked about Rust"
	prompt = buildSummaryPrompt(&existing, msgs)
	require.Contains(t, prompt, "PREVIOUS SUMMARY")
	require.Contains(t, prompt, existing)
	// previous summary comes before the conversation
	require.Less(t, strings.Index(prompt, existing), strings.Index(prompt, "CONVERSATION:"))
}

func TestToIncoming(t *testing.T) {
	msgs := []model.Message{
		{ID: 1, Role: model.RoleUser, Content: "hi"},
		{ID: 2, Role: model.RoleAssistant, Content: "hello"},
	}
	incoming := toIncoming(msgs)
	require.Len(t, incoming, 2)
	require.Equal(t, int64(1), *incoming[0].ID)
	require.Equal(t, model.RoleUser, incoming[0].Role)
	require.Equal(t, "hi", ExtractText(incoming[0].Parts))
	require.Equal(t, int64(2), *incoming[1].ID)
}

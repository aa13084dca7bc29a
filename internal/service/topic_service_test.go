package service

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDetectTopics(t *testing.T) {
	matches := DetectTopics("my typescript function crashes with an undefined error, please debug it")
	require.NotEmpty(t, matches)
	topics := make(map[string]int)
	for _, m := range matches {
		topics[m.Topic] = m.Confidence
	}
	require.Contains(t, topics, "coding")
	require.Contains(t, topics, "debugging")
	// sorted by confidence, capped at 95
	for i := 1; i < len(matches); i++ {
		require.LessOrEqual(t, matches[i].Confidence, matches[i-1].Confidence)
	}
	for _, m := range matches {
		require.LessOrEqual(t, m.Confidence, 95)
	}
}

func TestDetectTopics_NoMatch(t *testing.T) {
	require.Empty(t, DetectTopics("zzz qqq"))
}

func TestParseTopics(t *testing.T) {
	out := "```json\n[{\"topic\": \"Coding\", \"confidence\": 85}, {\"topic\": \"coding\", \"confidence\": 70}, {\"topic\": \"learning\", \"confidence\": 120}]\n```"
	topics, err := parseTopics(out, 5)
	require.NoError(t, err)
	require.Len(t, topics, 2)
	require.Equal(t, "coding", topics[0].Topic)
	require.Equal(t, 85, topics[0].Confidence)
	require.Equal(t, "learning", topics[1].Topic)
	require.Equal(t, 100, topics[1].Confidence)
	require.Equal(t, int64(5), topics[0].ChatID)
}

func TestParseTopics_SurroundingProse(t *testing.T) {
	out := "Sure! Here are the topics:\n[{\"topic\": \"creative\", \"confidence\": 60}]\nHope that helps."
	topics, err := parseTopics(out, 1)
	require.NoError(t, err)
	require.Len(t, topics, 1)
	require.Equal(t, "creative", topics[0].Topic)
}

func TestParseTopics_Garbage(t *testing.T) {
	_, err := parseTopics("no json here", 1)
	require.Error(t, err)
	_, err = parseTopics("[]", 1)
	require.Error(t, err)
}

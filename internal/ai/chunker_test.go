package ai

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
)

func TestChunkText_Empty(t *testing.T) {
	require.Nil(t, ChunkText("", 2000, 400))
	require.Nil(t, ChunkText("   \n\t  ", 2000, 400))
}

func TestChunkText_ShortTextSingleChunk(t *testing.T) {
	text := "a short document that fits in one window"
	chunks := ChunkText(text, 2000, 400)
	require.Len(t, chunks, 1)
	require.Equal(t, 0, chunks[0].Index)
	require.Equal(t, text, chunks[0].Content)
}

func TestChunkText_LongTextOverlappingWindows(t *testing.T) {
	text := strings.Repeat("a", 5000)
	chunks := ChunkText(text, 2000, 400)
	require.Len(t, chunks, 3)
	for i, chunk := range chunks {
		require.Equal(t, i, chunk.Index)
		require.LessOrEqual(t, len(chunk.Content), 2000)
	}
	// consecutive chunks share the overlap region
	require.Equal(t, chunks[0].Content[1600:], chunks[1].Content[:400])
	require.Equal(t, chunks[1].Content[1600:], chunks[2].Content[:400])
}

func TestChunkText_Reconstruction(t *testing.T) {
	text := strings.Repeat("x", 7300)
	overlap := 400
	chunks := ChunkText(text, 2000, overlap)
	var sb strings.Builder
	sb.WriteString(chunks[0].Content)
	for _, chunk := range chunks[1:] {
		sb.WriteString(chunk.Content[overlap:])
	}
	require.Equal(t, text, sb.String())
}

func TestChunkText_PrefersSentenceBoundary(t *testing.T) {
	// a sentence ends inside the trailing 20% of the first window
	text := strings.Repeat("a", 1700) + ". " + strings.Repeat("b", 1000)
	chunks := ChunkText(text, 2000, 400)
	require.Greater(t, len(chunks), 1)
	require.True(t, strings.HasSuffix(chunks[0].Content, ". "))
	require.Equal(t, 1702, len(chunks[0].Content))
}

func TestChunkText_IgnoresBoundaryOutsideSearchWindow(t *testing.T) {
	// the only sentence end sits in the first 80% of the window and must not
	// shorten the chunk
	text := strings.Repeat("a", 100) + ". " + strings.Repeat("b", 3000)
	chunks := ChunkText(text, 2000, 400)
	require.Equal(t, 2000, len(chunks[0].Content))
}

func TestChunkText_TerminatesWhenOverlapExceedsSize(t *testing.T) {
	text := strings.Repeat("z", 500)
	chunks := ChunkText(text, 100, 100)
	require.NotEmpty(t, chunks)
	last := chunks[len(chunks)-1]
	require.True(t, strings.HasSuffix(text, last.Content))
	for i, chunk := range chunks {
		require.Equal(t, i, chunk.Index)
		require.NotEmpty(t, chunk.Content)
	}
}

func TestChunkText_NeverSplitsRunes(t *testing.T) {
	text := strings.Repeat("é", 3000) // 6000 bytes
	chunks := ChunkText(text, 2000, 400)
	require.Greater(t, len(chunks), 1)
	for _, chunk := range chunks {
		require.True(t, utf8.ValidString(chunk.Content))
	}
}

func TestChunkText_DefaultsOnBadParams(t *testing.T) {
	text := strings.Repeat("a", 3000)
	chunks := ChunkText(text, 0, -5)
	require.NotEmpty(t, chunks)
	require.LessOrEqual(t, len(chunks[0].Content), DefaultChunkSize)
}

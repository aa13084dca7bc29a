package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	appErr "github.com/parley-ai/parley/internal/pkg/errors"
)

func TestIsSupported(t *testing.T) {
	require.True(t, IsSupported("readme.md", ""))
	require.True(t, IsSupported("main.go", "application/octet-stream"))
	require.True(t, IsSupported("notes.TXT", ""))
	require.True(t, IsSupported("unknown.bin", "text/plain"))
	require.True(t, IsSupported("data", "application/json"))
	require.False(t, IsSupported("photo.png", "image/png"))
	require.False(t, IsSupported("archive.zip", "application/zip"))
}

func TestText_PlainFile(t *testing.T) {
	out, err := Text("notes.txt", []byte("hello world"), 0)
	require.NoError(t, err)
	require.Equal(t, "hello world", out)
}

func TestText_MarkdownStripsFormatting(t *testing.T) {
	src := "# Title\n\nSome **bold** text with a [link](https://example.com).\n"
	out, err := Text("doc.md", []byte(src), 0)
	require.NoError(t, err)
	require.Contains(t, out, "Title")
	require.Contains(t, out, "bold")
	require.Contains(t, out, "link")
	require.NotContains(t, out, "**")
	require.NotContains(t, out, "https://example.com")
}

func TestText_MarkdownKeepsCodeBlocks(t *testing.T) {
	src := "Intro\n\n```go\nfunc main() {}\n```\n"
	out, err := Text("doc.md", []byte(src), 0)
	require.NoError(t, err)
	require.Contains(t, out, "func main() {}")
}

func TestText_CapsLength(t *testing.T) {
	out, err := Text("big.txt", []byte(strings.Repeat("a", 100)), 10)
	require.NoError(t, err)
	require.Len(t, out, 10)
}

func TestText_Empty(t *testing.T) {
	_, err := Text("empty.txt", []byte("  \n\t "), 0)
	require.ErrorIs(t, err, appErr.ErrEmptyDocument)
}

package extract

import (
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	appErr "github.com/parley-ai/parley/internal/pkg/errors"
)

var supportedExtensions = map[string]struct{}{
	"txt": {}, "md": {}, "csv": {},
	"py": {}, "js": {}, "ts": {}, "tsx": {}, "jsx": {},
	"json": {}, "html": {}, "css": {},
	"java": {}, "c": {}, "cpp": {}, "go": {}, "rs": {}, "rb": {}, "php": {},
	"sh": {}, "yaml": {}, "yml": {}, "xml": {}, "sql": {},
}

var textMimePrefixes = []string{"text/", "application/json", "application/xml"}

func Extension(filename string) string {
	ext := strings.TrimPrefix(filepath.Ext(filename), ".")
	return strings.ToLower(ext)
}

func IsSupported(filename, mimeType string) bool {
	if _, ok := supportedExtensions[Extension(filename)]; ok {
		return true
	}
	for _, prefix := range textMimePrefixes {
		if strings.HasPrefix(mimeType, prefix) {
			return true
		}
	}
	return false
}

// Text returns the plain text content of an uploaded file. Markdown is walked
// via its AST so formatting noise (emphasis markers, link targets) does not
// pollute the embedding space; everything else is treated as UTF-8 text.
func Text(filename string, data []byte, maxChars int) (string, error) {
	var content string
	switch Extension(filename) {
	case "md":
		content = markdownToText(data)
	default:
		content = string(data)
	}
	if maxChars > 0 && len(content) > maxChars {
		content = content[:maxChars]
	}
	if strings.TrimSpace(content) == "" {
		return "", appErr.ErrEmptyDocument
	}
	return content, nil
}

func markdownToText(source []byte) string {
	md := goldmark.New()
	reader := text.NewReader(source)
	doc := md.Parser().Parse(reader)

	var sb strings.Builder
	for node := doc.FirstChild(); node != nil; node = node.NextSibling() {
		if txt := nodeText(node, source); txt != "" {
			sb.WriteString(txt)
			sb.WriteString("\n\n")
		}
	}
	out := strings.TrimSpace(sb.String())
	if out == "" {
		// fenced-code-only files and similar degenerate cases fall back to raw
		return string(source)
	}
	return out
}

func nodeText(n ast.Node, source []byte) string {
	if fenced, ok := n.(*ast.FencedCodeBlock); ok {
		var sb strings.Builder
		for i := 0; i < fenced.Lines().Len(); i++ {
			line := fenced.Lines().At(i)
			sb.Write(line.Value(source))
		}
		return strings.TrimSpace(sb.String())
	}
	var sb strings.Builder
	_ = ast.Walk(n, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if node.Kind() == ast.KindText {
			sb.Write(node.(*ast.Text).Segment.Value(source))
			sb.WriteByte(' ')
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(sb.String())
}

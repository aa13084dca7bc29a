package ai

import (
	"strings"
	"unicode/utf8"
)

const (
	DefaultChunkSize    = 2000
	DefaultChunkOverlap = 400
)

// sentence boundary markers, checked from the end of the window backwards
var sentenceBoundaries = []string{". ", ".\n", "! ", "? ", "\n\n"}

type Chunk struct {
	Index   int    `json:"index"`
	Content string `json:"content"`
}

// ChunkText splits text into overlapping windows of at most maxSize bytes,
// preferring to cut at a sentence boundary found in the trailing 20% of the
// window. Consecutive chunks share overlap bytes of context. The cursor is
// forced to advance at least one rune per iteration so the loop terminates
// even when overlap >= maxSize.
func ChunkText(text string, maxSize, overlap int) []Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if maxSize <= 0 {
		maxSize = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if len(text) <= maxSize {
		return []Chunk{{Index: 0, Content: text}}
	}

	minAdvance := maxSize - overlap
	if minAdvance < 1 {
		minAdvance = 1
	}

	var chunks []Chunk
	start := 0
	index := 0
	for start < len(text) {
		end := start + maxSize
		if end >= len(text) {
			// last chunk takes everything remaining, regardless of size
			chunks = append(chunks, Chunk{Index: index, Content: text[start:]})
			break
		}
		end = alignToRune(text, end)

		searchStart := start + maxSize*8/10
		bestBreak := -1
		for _, boundary := range sentenceBoundaries {
			idx := strings.LastIndex(text[:end], boundary)
			if idx >= searchStart && idx+len(boundary) > bestBreak {
				bestBreak = idx + len(boundary)
			}
		}
		if bestBreak > 0 {
			end = bestBreak
		}

		chunks = append(chunks, Chunk{Index: index, Content: text[start:end]})
		index++

		next := end - overlap
		if next <= start {
			next = start + minAdvance
		}
		next = alignToRune(text, next)
		if next <= start {
			_, size := utf8.DecodeRuneInString(text[start:])
			next = start + size
		}
		start = next
	}
	return chunks
}

// alignToRune moves pos backward to the nearest rune start so a window never
// splits a multi-byte character.
func alignToRune(text string, pos int) int {
	if pos >= len(text) {
		return len(text)
	}
	for pos > 0 && !utf8.RuneStart(text[pos]) {
		pos--
	}
	return pos
}

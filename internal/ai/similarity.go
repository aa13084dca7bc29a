package ai

import (
	"math"
	"sort"
)

// SourceRef points back at the entity a candidate vector came from. Zero
// fields mean "not that kind of source".
type SourceRef struct {
	MessageID  int64
	ChatID     int64
	DocumentID int64
	ChunkID    int64
}

type Candidate struct {
	Ref       SourceRef
	Content   string
	Embedding []float32
}

type Match struct {
	Ref        SourceRef
	Content    string
	Similarity float32
}

// CosineSimilarity returns a value in [-1, 1]. Mismatched dimensions or a
// zero-norm vector yield 0 rather than an error, so a single bad record can
// never abort a retrieval pass.
func CosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}

// FindSimilar scores every candidate against the query vector, keeps those at
// or above threshold, sorts descending by similarity (stable, so candidate
// order breaks ties) and truncates to topK.
func FindSimilar(query []float32, candidates []Candidate, topK int, threshold float32) []Match {
	matches := make([]Match, 0, len(candidates))
	for _, c := range candidates {
		score := CosineSimilarity(query, c.Embedding)
		if score >= threshold {
			matches = append(matches, Match{Ref: c.Ref, Content: c.Content, Similarity: score})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})
	if topK >= 0 && len(matches) > topK {
		matches = matches[:topK]
	}
	return matches
}

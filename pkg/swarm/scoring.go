package swarm

import (
	"math"
	"sort"
	"strings"
	"time"
)

// Composite score weights. Relevance dominates, importance and recency break
// near-ties between equally relevant fragments.
const (
	relevanceWeight  = 0.5
	importanceWeight = 0.3
	recencyWeight    = 0.2
)

// scoredFragment pairs a stored fragment with its composite score.
type scoredFragment struct {
	fragment *Fragment
	score    float64
}

// rankFragments scores every fragment against the query and returns them
// sorted by descending composite score. Fragments with zero relevance to a
// non-empty query are dropped.
func rankFragments(fragments []*Fragment, query string, queryEmbedding []float64, now time.Time, cfg *Config) []scoredFragment {
	queryTokens := tokenize(query)

	scored := make([]scoredFragment, 0, len(fragments))
	for _, f := range fragments {
		rel := relevance(f, queryTokens, queryEmbedding)
		if query != "" && rel <= 0 {
			continue
		}
		score := relevanceWeight*rel +
			importanceWeight*f.ImportanceScore +
			recencyWeight*recencyDecay(f.LastAccessed, f.CreatedAt, now, cfg.RecencyDecayRate)
		scored = append(scored, scoredFragment{fragment: f, score: score})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})
	return scored
}

// relevance measures how well a fragment matches the query: embedding cosine
// similarity when both sides carry a vector, keyword overlap otherwise.
func relevance(f *Fragment, queryTokens []string, queryEmbedding []float64) float64 {
	if len(queryEmbedding) > 0 && len(f.Embedding) == len(queryEmbedding) {
		// Cosine similarity can be negative; clamp so the composite
		// score stays comparable with the keyword fallback.
		sim := CosineSimilarity(queryEmbedding, f.Embedding)
		if sim < 0 {
			return 0
		}
		return sim
	}
	return keywordOverlap(queryTokens, f.Content)
}

// keywordOverlap returns the ratio of query tokens present in the content.
func keywordOverlap(queryTokens []string, content string) float64 {
	if len(queryTokens) == 0 {
		return 0
	}
	contentTokens := tokenize(content)
	if len(contentTokens) == 0 {
		return 0
	}

	present := make(map[string]bool, len(contentTokens))
	for _, tok := range contentTokens {
		present[tok] = true
	}

	matched := 0
	for _, tok := range queryTokens {
		if present[tok] {
			matched++
		}
	}
	return float64(matched) / float64(len(queryTokens))
}

// recencyDecay maps time since last activity onto (0, 1], newest first.
// Uses exponential decay over days: e^(-rate * hours / 24).
func recencyDecay(lastAccessed, createdAt, now time.Time, rate float64) float64 {
	last := lastAccessed
	if createdAt.After(last) {
		last = createdAt
	}
	if last.IsZero() {
		return 0
	}
	hours := now.Sub(last).Hours()
	if hours < 0 {
		hours = 0
	}
	return math.Exp(-rate * hours / 24)
}

// tokenize lower-cases and splits text on non-alphanumeric runes.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9')
	})
}

// CosineSimilarity computes the cosine of the angle between two vectors,
// ranging from -1 (opposite) to 1 (identical). Mismatched dimensions or a
// zero-norm vector yield 0.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// contentSimilarity measures how near-duplicate two fragments are, for
// consolidation merging: embedding cosine when both carry vectors, symmetric
// keyword overlap otherwise.
func contentSimilarity(a, b *Fragment) float64 {
	if len(a.Embedding) > 0 && len(a.Embedding) == len(b.Embedding) {
		return CosineSimilarity(a.Embedding, b.Embedding)
	}

	tokensA := tokenize(a.Content)
	tokensB := tokenize(b.Content)
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0
	}
	// Symmetric overlap: both directions must agree for a high score.
	ab := keywordOverlap(tokensA, b.Content)
	ba := keywordOverlap(tokensB, a.Content)
	return (ab + ba) / 2
}

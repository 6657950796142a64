package swarm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float64{1, 2, 3}, []float64{1, 2, 3}), 1e-9)
	assert.InDelta(t, 0.0, CosineSimilarity([]float64{1, 0}, []float64{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, CosineSimilarity([]float64{1, 0}, []float64{-1, 0}), 1e-9)

	// Mismatched dimensions and zero-norm vectors are not comparable.
	assert.Equal(t, 0.0, CosineSimilarity([]float64{1, 2}, []float64{1, 2, 3}))
	assert.Equal(t, 0.0, CosineSimilarity([]float64{0, 0}, []float64{1, 2}))
}

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"email", "campaigns", "convert", "best"},
		tokenize("Email campaigns: convert BEST!"))
	assert.Empty(t, tokenize("!!! ---"))
	assert.Empty(t, tokenize(""))
}

func TestKeywordOverlap(t *testing.T) {
	content := "email campaigns convert best on tuesday mornings"

	assert.InDelta(t, 1.0, keywordOverlap(tokenize("tuesday mornings"), content), 1e-9)
	assert.InDelta(t, 0.5, keywordOverlap(tokenize("tuesday afternoons"), content), 1e-9)
	assert.Equal(t, 0.0, keywordOverlap(tokenize("unrelated query"), content))
	assert.Equal(t, 0.0, keywordOverlap(nil, content))
	assert.Equal(t, 0.0, keywordOverlap(tokenize("tuesday"), ""))
}

func TestRecencyDecay(t *testing.T) {
	now := time.Now()

	assert.InDelta(t, 1.0, recencyDecay(now, now, now, 0.1), 1e-9)

	dayOld := recencyDecay(now.Add(-24*time.Hour), now.Add(-48*time.Hour), now, 0.1)
	weekOld := recencyDecay(now.Add(-7*24*time.Hour), time.Time{}, now, 0.1)
	assert.Greater(t, dayOld, weekOld)
	assert.Less(t, dayOld, 1.0)

	// The newer of created/accessed wins.
	assert.InDelta(t, 1.0, recencyDecay(now.Add(-24*time.Hour), now, now, 0.1), 1e-9)

	assert.Equal(t, 0.0, recencyDecay(time.Time{}, time.Time{}, now, 0.1))
}

func TestRelevancePrefersEmbeddings(t *testing.T) {
	f := &Fragment{
		Content:   "completely different words",
		Embedding: []float64{1, 0},
	}

	// Matching dimensions: cosine wins even when keywords disagree.
	assert.InDelta(t, 1.0, relevance(f, tokenize("anything"), []float64{2, 0}), 1e-9)

	// Negative similarity clamps to zero.
	assert.Equal(t, 0.0, relevance(f, tokenize("anything"), []float64{-1, 0}))

	// Dimension mismatch falls back to keyword overlap.
	assert.InDelta(t, 1.0, relevance(f, tokenize("different words"), []float64{1, 0, 0}), 1e-9)
}

func TestRankFragmentsOrdering(t *testing.T) {
	now := time.Now()
	cfg := (&Config{}).withDefaults()

	strong := &Fragment{Content: "tuesday mornings convert best", ImportanceScore: 0.9, CreatedAt: now, LastAccessed: now}
	weak := &Fragment{Content: "tuesday meetings run long", ImportanceScore: 0.1, CreatedAt: now, LastAccessed: now}
	unrelated := &Fragment{Content: "sqlite writes are slow", ImportanceScore: 1.0, CreatedAt: now, LastAccessed: now}

	scored := rankFragments([]*Fragment{weak, unrelated, strong}, "tuesday mornings", nil, now, cfg)

	// Zero-relevance fragments are dropped for a non-empty query.
	require.Len(t, scored, 2)
	assert.Same(t, strong, scored[0].fragment)
	assert.Same(t, weak, scored[1].fragment)
	assert.Greater(t, scored[0].score, scored[1].score)
}

func TestRankFragmentsEmptyQueryKeepsAll(t *testing.T) {
	now := time.Now()
	cfg := (&Config{}).withDefaults()

	important := &Fragment{Content: "a", ImportanceScore: 0.9, CreatedAt: now, LastAccessed: now}
	trivial := &Fragment{Content: "b", ImportanceScore: 0.1, CreatedAt: now, LastAccessed: now}

	scored := rankFragments([]*Fragment{trivial, important}, "", nil, now, cfg)

	require.Len(t, scored, 2)
	assert.Same(t, important, scored[0].fragment)
}

func TestContentSimilaritySymmetricOverlap(t *testing.T) {
	a := &Fragment{Content: "email campaigns convert best on tuesday mornings"}
	b := &Fragment{Content: "email campaigns convert best on tuesday"}
	c := &Fragment{Content: "sqlite writes are slow on network filesystems"}

	sim := contentSimilarity(a, b)
	assert.GreaterOrEqual(t, sim, 0.85)
	assert.Equal(t, sim, contentSimilarity(b, a))

	assert.Less(t, contentSimilarity(a, c), 0.5)
}

func TestContentSimilarityUsesEmbeddings(t *testing.T) {
	a := &Fragment{Content: "x", Embedding: []float64{1, 0}}
	b := &Fragment{Content: "y", Embedding: []float64{1, 0}}

	assert.InDelta(t, 1.0, contentSimilarity(a, b), 1e-9)
}

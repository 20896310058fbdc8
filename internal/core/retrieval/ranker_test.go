package retrieval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractKeywords(t *testing.T) {
	assert.Equal(t, []string{"deploy", "production"}, extractKeywords("How do I deploy to production?"))
	assert.Empty(t, extractKeywords("a an to of"))
	assert.Equal(t, []string{"python"}, extractKeywords("Why Python?"))
}

func TestRerank_BoostsKeywordMatches(t *testing.T) {
	results := []Result{
		{ChunkID: "a", Content: "JavaScript is also nice", Confidence: 0.80},
		{ChunkID: "b", Content: "Python is a great language", Confidence: 0.78},
	}

	reranked := Rerank("tell me about python", results)

	// The python chunk gains 0.05 and overtakes the raw vector order.
	require.Len(t, reranked, 2)
	assert.Equal(t, "b", reranked[0].ChunkID)
	assert.InDelta(t, 0.83, reranked[0].Confidence, 1e-9)
	assert.Equal(t, "a", reranked[1].ChunkID)
	assert.InDelta(t, 0.80, reranked[1].Confidence, 1e-9)
}

func TestRerank_BoostIsCapped(t *testing.T) {
	results := []Result{
		{ChunkID: "a", Content: "alpha bravo charlie delta echo foxtrot", Confidence: 0.5},
	}

	reranked := Rerank("alpha bravo charlie delta echo foxtrot", results)

	// Six matching keywords would give 0.30 without the 0.2 cap.
	assert.InDelta(t, 0.7, reranked[0].Confidence, 1e-9)
}

func TestRerank_ConfidenceNeverExceedsCeiling(t *testing.T) {
	results := []Result{
		{ChunkID: "a", Content: "deployment checklist", Confidence: 0.97},
	}

	reranked := Rerank("deployment checklist", results)

	assert.InDelta(t, 0.99, reranked[0].Confidence, 1e-9)
}

func TestRerank_NoKeywordsKeepsOrder(t *testing.T) {
	results := []Result{
		{ChunkID: "a", Confidence: 0.5},
		{ChunkID: "b", Confidence: 0.9},
	}

	reranked := Rerank("a b c", results)

	assert.Equal(t, "a", reranked[0].ChunkID)
	assert.Equal(t, "b", reranked[1].ChunkID)
}

func TestRerank_StableForEqualConfidence(t *testing.T) {
	results := []Result{
		{ChunkID: "first", Content: "nothing relevant", Confidence: 0.6},
		{ChunkID: "second", Content: "nothing relevant", Confidence: 0.6},
	}

	reranked := Rerank("unrelated query terms", results)

	assert.Equal(t, "first", reranked[0].ChunkID)
	assert.Equal(t, "second", reranked[1].ChunkID)
}

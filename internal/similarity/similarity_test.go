package similarity

import (
	"context"
	"fmt"
	"math"
	"testing"
)

type mockEmbedder struct {
	vectors map[string][]float32
	fail    bool
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := m.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (m *mockEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	if m.fail {
		return nil, fmt.Errorf("embedding backend unavailable")
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if v, ok := m.vectors[t]; ok {
			out[i] = v
		} else {
			out[i] = []float32{0, 0, 1}
		}
	}
	return out, nil
}

func (m *mockEmbedder) Dimensions() int { return 3 }

func TestCompareEmptyCorpusIsFullyNovel(t *testing.T) {
	a := NewAnalyzer()
	result := a.Compare(context.Background(), "anything at all", nil)

	if result.NoveltyScore != 1.0 {
		t.Errorf("novelty = %f, want 1.0", result.NoveltyScore)
	}
	if len(result.SimilarDocuments) != 0 {
		t.Errorf("expected no similar documents, got %d", len(result.SimilarDocuments))
	}
	if result.ComparisonMethod != MethodBasicTextMatching {
		t.Errorf("method = %q", result.ComparisonMethod)
	}
}

func TestCompareLexical(t *testing.T) {
	a := NewAnalyzer()
	entries := []Entry{
		{Filename: "same.md", Content: "governance policy frameworks for artificial intelligence education"},
		{Filename: "other.md", Content: "migratory patterns of arctic seabirds during winter months"},
	}

	result := a.Compare(context.Background(),
		"governance policy frameworks for artificial intelligence education", entries)

	if result.ComparisonMethod != MethodBasicTextMatching {
		t.Fatalf("method = %q", result.ComparisonMethod)
	}
	if len(result.SimilarDocuments) != 1 {
		t.Fatalf("expected 1 similar document, got %d", len(result.SimilarDocuments))
	}
	if result.SimilarDocuments[0].Filename != "same.md" {
		t.Errorf("top match = %q", result.SimilarDocuments[0].Filename)
	}
	if result.SimilarDocuments[0].Similarity != 1.0 {
		t.Errorf("identical content similarity = %f, want 1.0", result.SimilarDocuments[0].Similarity)
	}
	if result.NoveltyScore != 0 {
		t.Errorf("novelty = %f, want 0 for identical content", result.NoveltyScore)
	}
}

func TestCompareSemanticRanking(t *testing.T) {
	mock := &mockEmbedder{vectors: map[string][]float32{
		"new document":   {1, 0, 0},
		"close content":  {0.95, 0.3, 0},
		"medium content": {0.6, 0.8, 0},
		"far content":    {0, 1, 0},
	}}

	a := NewAnalyzer(WithEmbedder(mock))
	entries := []Entry{
		{Filename: "far.md", Content: "far content"},
		{Filename: "close.md", Content: "close content"},
		{Filename: "medium.md", Content: "medium content"},
	}

	result := a.Compare(context.Background(), "new document", entries)

	if result.ComparisonMethod != MethodSemanticEmbedding {
		t.Fatalf("method = %q", result.ComparisonMethod)
	}
	if len(result.SimilarDocuments) != 1 {
		t.Fatalf("expected 1 match above 0.7, got %d: %v", len(result.SimilarDocuments), result.SimilarDocuments)
	}
	if result.SimilarDocuments[0].Filename != "close.md" {
		t.Errorf("top match = %q, want close.md", result.SimilarDocuments[0].Filename)
	}

	wantNovelty := 1 - result.MaxSimilarity
	if math.Abs(result.NoveltyScore-wantNovelty) > 1e-9 {
		t.Errorf("novelty = %f, want %f", result.NoveltyScore, wantNovelty)
	}
}

func TestCompareSemanticFallsBackOnFailure(t *testing.T) {
	a := NewAnalyzer(WithEmbedder(&mockEmbedder{fail: true}))
	entries := []Entry{{Filename: "x.md", Content: "some stored entry content"}}

	result := a.Compare(context.Background(), "some stored entry content", entries)
	if result.ComparisonMethod != MethodBasicTextMatching {
		t.Errorf("method = %q, want lexical fallback", result.ComparisonMethod)
	}
	if len(result.SimilarDocuments) != 1 {
		t.Errorf("fallback should still find the identical entry")
	}
}

func TestJaccard(t *testing.T) {
	a := wordSet("the quick brown fox jumps")
	b := wordSet("the quick brown cat sleeps")
	// Sets: {the quick brown fox jumps} and {the quick brown cat sleeps};
	// intersection 3, union 7.
	got := jaccard(a, b)
	want := 3.0 / 7.0
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("jaccard = %f, want %f", got, want)
	}

	if jaccard(wordSet(""), wordSet("")) != 0 {
		t.Error("empty sets should score 0")
	}
}

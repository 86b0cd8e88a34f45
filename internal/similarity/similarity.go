// Package similarity compares a new document against every existing
// knowledge-base entry and reports how novel it is.
//
// With an embedder the comparison is cosine similarity over document
// embeddings; without one (or when embedding fails) it degrades to word-set
// Jaccard overlap. The two methods use different reporting thresholds since
// lexical overlap scores run much lower than embedding cosine for related
// texts.
package similarity

import (
	"context"
	"sort"
	"strings"

	"github.com/policyatlas/litbase/internal/embed"
)

// Comparison methods.
const (
	MethodSemanticEmbedding = "semantic_embedding"
	MethodBasicTextMatching = "basic_text_matching"
)

// Default reporting thresholds per method.
const (
	DefaultEmbeddingThreshold = 0.7
	DefaultLexicalThreshold   = 0.3
)

// Entry is one existing knowledge-base document to compare against.
type Entry struct {
	Filename string
	Content  string
}

// Match is one existing entry scored against the new document.
type Match struct {
	Filename   string  `json:"filename"`
	Similarity float64 `json:"similarity_score"`
}

// Result holds the outcome of comparing a new document to the corpus.
type Result struct {
	NoveltyScore     float64 `json:"novelty_score"` // 1 = fully novel
	SimilarDocuments []Match `json:"similar_documents"`
	ComparisonMethod string  `json:"comparison_method"`
	MaxSimilarity    float64 `json:"max_similarity"`
}

// Analyzer compares documents. A nil embedder selects the lexical path.
type Analyzer struct {
	embedder           embed.Embedder
	embeddingThreshold float64
	lexicalThreshold   float64
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithEmbedder enables semantic comparison.
func WithEmbedder(e embed.Embedder) Option {
	return func(a *Analyzer) { a.embedder = e }
}

// WithThresholds overrides the per-method reporting thresholds.
func WithThresholds(embedding, lexical float64) Option {
	return func(a *Analyzer) {
		if embedding > 0 {
			a.embeddingThreshold = embedding
		}
		if lexical > 0 {
			a.lexicalThreshold = lexical
		}
	}
}

// NewAnalyzer creates an analyzer with default thresholds.
func NewAnalyzer(opts ...Option) *Analyzer {
	a := &Analyzer{
		embeddingThreshold: DefaultEmbeddingThreshold,
		lexicalThreshold:   DefaultLexicalThreshold,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Threshold returns the reporting threshold for the given comparison method.
func (a *Analyzer) Threshold(method string) float64 {
	if method == MethodSemanticEmbedding {
		return a.embeddingThreshold
	}
	return a.lexicalThreshold
}

// Compare scores text against every entry. An empty corpus yields full
// novelty. Embedding failures silently fall back to lexical matching.
func (a *Analyzer) Compare(ctx context.Context, text string, entries []Entry) Result {
	if len(entries) == 0 {
		return Result{
			NoveltyScore:     1.0,
			ComparisonMethod: a.methodName(),
		}
	}

	if a.embedder != nil {
		if result, ok := a.compareSemantic(ctx, text, entries); ok {
			return result
		}
	}
	return a.compareLexical(text, entries)
}

func (a *Analyzer) methodName() string {
	if a.embedder != nil {
		return MethodSemanticEmbedding
	}
	return MethodBasicTextMatching
}

func (a *Analyzer) compareSemantic(ctx context.Context, text string, entries []Entry) (Result, bool) {
	docVector, err := a.embedder.Embed(ctx, text)
	if err != nil || len(docVector) == 0 {
		return Result{}, false
	}

	contents := make([]string, len(entries))
	for i, e := range entries {
		contents[i] = e.Content
	}
	entryVectors, err := a.embedder.EmbedBatch(ctx, contents)
	if err != nil {
		return Result{}, false
	}

	scores := make([]float64, len(entries))
	for i, vec := range entryVectors {
		scores[i] = embed.Cosine(docVector, vec)
	}
	return a.buildResult(entries, scores, MethodSemanticEmbedding, a.embeddingThreshold), true
}

func (a *Analyzer) compareLexical(text string, entries []Entry) Result {
	docWords := wordSet(text)
	scores := make([]float64, len(entries))
	for i, e := range entries {
		scores[i] = jaccard(docWords, wordSet(e.Content))
	}
	return a.buildResult(entries, scores, MethodBasicTextMatching, a.lexicalThreshold)
}

func (a *Analyzer) buildResult(entries []Entry, scores []float64, method string, threshold float64) Result {
	result := Result{ComparisonMethod: method}

	for i, score := range scores {
		if score > result.MaxSimilarity {
			result.MaxSimilarity = score
		}
		if score >= threshold {
			result.SimilarDocuments = append(result.SimilarDocuments, Match{
				Filename:   entries[i].Filename,
				Similarity: score,
			})
		}
	}

	// Strongest matches first; filename breaks ties deterministically.
	sort.SliceStable(result.SimilarDocuments, func(i, j int) bool {
		if result.SimilarDocuments[i].Similarity != result.SimilarDocuments[j].Similarity {
			return result.SimilarDocuments[i].Similarity > result.SimilarDocuments[j].Similarity
		}
		return result.SimilarDocuments[i].Filename < result.SimilarDocuments[j].Filename
	})

	result.NoveltyScore = 1 - result.MaxSimilarity
	if result.NoveltyScore < 0 {
		result.NoveltyScore = 0
	}
	return result
}

// wordSet tokenizes text into a normalized word set.
func wordSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, field := range strings.Fields(strings.ToLower(text)) {
		word := strings.Trim(field, ".,;:!?()[]{}\"'")
		if len(word) > 2 {
			set[word] = struct{}{}
		}
	}
	return set
}

// jaccard returns |a ∩ b| / |a ∪ b|.
func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	for w := range a {
		if _, ok := b[w]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

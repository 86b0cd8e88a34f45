// Package insight selects short, policy-relevant statements from document
// text and tags them against a fixed topic taxonomy.
//
// Selection runs in two tiers. The rule tier picks candidate sentences by
// length and policy-keyword presence. When an embedder is available, a
// semantic tier filters candidates by relevance to a fixed set of reference
// policy concepts and then diversity-samples them so near-duplicate
// statements don't crowd the cap. Without an embedder the rule tier's
// selection stands on its own, under the same cap. Either way extraction
// degrades to partial or empty results and never returns an error upward.
package insight

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/policyatlas/litbase/internal/embed"
)

const (
	// DefaultMaxInsights caps how many insights a document contributes.
	DefaultMaxInsights = 15

	// minSentenceLen / maxSentenceLen bound candidate sentences.
	minSentenceLen = 10
	maxSentenceLen = 300

	// relevanceThreshold is the minimum cosine similarity a candidate must
	// reach against any reference concept to survive the semantic filter.
	relevanceThreshold = 0.3

	// diversityMinDistance is the minimum embedding distance a candidate
	// must keep from every already-selected insight.
	diversityMinDistance = 0.2
)

// referenceConcepts anchor the semantic relevance filter. Each sentence
// names one facet of AI-education policy; a candidate is relevant if it is
// close to any of them.
var referenceConcepts = []string{
	"Artificial intelligence policy in education requires governance frameworks and institutional oversight.",
	"Ethical considerations shape how AI systems are deployed in teaching and learning.",
	"Transparency and explainability of algorithmic decisions build trust in educational technology.",
	"Accountability mechanisms assign responsibility for automated decisions affecting students.",
	"Fairness and bias mitigation protect students from discriminatory outcomes.",
	"Privacy and data protection govern the collection of student information.",
	"Safety requirements and risk assessment apply to AI systems used by learners.",
	"Human agency and teacher oversight must be preserved when automating education.",
}

// policyKeywords gate the rule tier: a candidate sentence must contain at
// least one.
var policyKeywords = []string{
	"policy", "policies", "governance", "regulation", "regulatory", "framework",
	"guideline", "oversight", "compliance", "standard", "ethics", "ethical",
	"accountability", "transparency", "fairness", "bias", "privacy", "safety",
	"consent", "rights", "education", "learning", "teaching", "student",
	"institution", "artificial intelligence", " ai ", "algorithm", "automated",
	"recommendation", "risk", "audit",
}

// Topic taxonomy: fixed buckets with their trigger keywords.
var topicKeywords = map[string][]string{
	"governance":     {"governance", "policy", "regulation", "framework", "oversight", "compliance", "standard"},
	"ethics":         {"ethics", "ethical", "moral", "values", "integrity"},
	"transparency":   {"transparency", "transparent", "explainability", "explainable", "interpretab", "disclosure"},
	"accountability": {"accountability", "accountable", "responsibility", "liable", "liability", "audit"},
	"fairness":       {"fairness", "fair", "bias", "discrimination", "equity", "equitable", "inclusion"},
	"privacy":        {"privacy", "data protection", "confidential", "surveillance", "consent", "gdpr"},
	"safety":         {"safety", "safe", "risk", "harm", "security", "robustness"},
	"human-agency":   {"human agency", "human oversight", "human-in-the-loop", "autonomy", "teacher control", "human control"},
}

// topicOrder fixes the reporting order of taxonomy buckets.
var topicOrder = []string{
	"governance", "ethics", "transparency", "accountability",
	"fairness", "privacy", "safety", "human-agency",
}

var sentenceSplitRE = regexp.MustCompile(`[.!?]\s+|[.!?]$|\n{2,}`)

// Extractor selects insights, optionally using an embedder for semantic
// relevance and diversity. A nil embedder is valid and selects the
// deterministic keyword-only path.
type Extractor struct {
	embedder    embed.Embedder
	maxInsights int
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithEmbedder enables the semantic tier.
func WithEmbedder(e embed.Embedder) Option {
	return func(x *Extractor) { x.embedder = e }
}

// WithMaxInsights overrides the insight cap.
func WithMaxInsights(n int) Option {
	return func(x *Extractor) {
		if n > 0 {
			x.maxInsights = n
		}
	}
}

// NewExtractor creates an insight extractor.
func NewExtractor(opts ...Option) *Extractor {
	x := &Extractor{maxInsights: DefaultMaxInsights}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

// Extract returns up to the configured cap of policy-relevant statements.
// Embedding failures silently fall back to the keyword-only selection.
func (x *Extractor) Extract(ctx context.Context, text string) []string {
	candidates := x.candidates(text)
	if len(candidates) == 0 {
		return nil
	}

	if x.embedder != nil {
		if selected, ok := x.semanticSelect(ctx, candidates); ok {
			return selected
		}
	}

	if len(candidates) > x.maxInsights {
		candidates = candidates[:x.maxInsights]
	}
	return candidates
}

// candidates runs the rule tier: bounded-length sentences containing at
// least one policy keyword, in document order, deduplicated.
func (x *Extractor) candidates(text string) []string {
	seen := make(map[string]bool)
	var out []string

	for _, raw := range sentenceSplitRE.Split(text, -1) {
		sentence := strings.Join(strings.Fields(raw), " ")
		if len(sentence) < minSentenceLen || len(sentence) > maxSentenceLen {
			continue
		}
		if !containsPolicyKeyword(sentence) {
			continue
		}
		key := strings.ToLower(sentence)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, sentence)
	}
	return out
}

// semanticSelect applies the relevance filter then greedy diversity
// sampling. Returns ok=false when embedding fails, signalling the caller to
// fall back.
func (x *Extractor) semanticSelect(ctx context.Context, candidates []string) ([]string, bool) {
	refVectors, err := x.embedder.EmbedBatch(ctx, referenceConcepts)
	if err != nil {
		return nil, false
	}
	candVectors, err := x.embedder.EmbedBatch(ctx, candidates)
	if err != nil {
		return nil, false
	}

	type scored struct {
		text      string
		vector    []float32
		relevance float64
		order     int
	}

	var relevant []scored
	for i, vec := range candVectors {
		if len(vec) == 0 {
			continue
		}
		best := 0.0
		for _, ref := range refVectors {
			if sim := embed.Cosine(vec, ref); sim > best {
				best = sim
			}
		}
		if best >= relevanceThreshold {
			relevant = append(relevant, scored{candidates[i], vec, best, i})
		}
	}

	// Most relevant first; document order breaks ties deterministically.
	sort.SliceStable(relevant, func(i, j int) bool {
		if relevant[i].relevance != relevant[j].relevance {
			return relevant[i].relevance > relevant[j].relevance
		}
		return relevant[i].order < relevant[j].order
	})

	// Greedy diversity: keep a candidate only if it stays far enough from
	// everything already kept.
	var selected []scored
	for _, cand := range relevant {
		if len(selected) >= x.maxInsights {
			break
		}
		diverse := true
		for _, kept := range selected {
			if embed.Distance(cand.vector, kept.vector) <= diversityMinDistance {
				diverse = false
				break
			}
		}
		if diverse {
			selected = append(selected, cand)
		}
	}

	out := make([]string, len(selected))
	for i, s := range selected {
		out[i] = s.text
	}
	return out, true
}

func containsPolicyKeyword(sentence string) bool {
	lower := " " + strings.ToLower(sentence) + " "
	for _, kw := range policyKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// Topics buckets insights into the fixed taxonomy by keyword overlap.
// A topic is reported only when at least two insights map to it.
func Topics(insights []string) []string {
	counts := make(map[string]int)
	for _, insight := range insights {
		lower := strings.ToLower(insight)
		for topic, keywords := range topicKeywords {
			for _, kw := range keywords {
				if strings.Contains(lower, kw) {
					counts[topic]++
					break
				}
			}
		}
	}

	var topics []string
	for _, topic := range topicOrder {
		if counts[topic] >= 2 {
			topics = append(topics, topic)
		}
	}
	return topics
}

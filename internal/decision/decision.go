// Package decision turns a quality assessment and a similarity result into
// a single integration decision.
//
// The rules favor correctness over recall: a merge is only allowed when the
// normalised author of the new document exactly equals the author of the
// strongest match. Topically similar work from different authors is routed
// to review, never silently conflated.
package decision

import (
	"fmt"

	"github.com/policyatlas/litbase/internal/metadata"
	"github.com/policyatlas/litbase/internal/quality"
	"github.com/policyatlas/litbase/internal/similarity"
)

// Actions.
const (
	ActionApproveNew = "approve_new_document"
	ActionMerge      = "merge_with_existing"
	ActionReview     = "review_required"
)

// Confidence levels attached to decisions.
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

// Thresholds holds the tunable decision cutoffs.
type Thresholds struct {
	// NewQuality is the minimum total score for a new entry when the
	// assessment did not auto-approve.
	NewQuality float64
	// NewNovelty is the minimum novelty score for a new entry.
	NewNovelty float64
	// MergeSimilarityEmbedding / MergeSimilarityLexical are the minimum
	// top-match similarities for a merge, per comparison method.
	MergeSimilarityEmbedding float64
	MergeSimilarityLexical   float64
	// MergeQuality is the minimum total score for a merge when the
	// assessment did not auto-approve.
	MergeQuality float64
}

// DefaultThresholds returns the standard cutoffs.
func DefaultThresholds() Thresholds {
	return Thresholds{
		NewQuality:               0.60,
		NewNovelty:               0.60,
		MergeSimilarityEmbedding: 0.75,
		MergeSimilarityLexical:   0.30,
		MergeQuality:             0.80,
	}
}

// Decision is the integration verdict for one document.
type Decision struct {
	Action      string   `json:"action"`
	Confidence  string   `json:"confidence"`
	Reasoning   []string `json:"reasoning"`
	MergeTarget string   `json:"merge_target,omitempty"`
}

// Engine applies the decision rules.
type Engine struct {
	thresholds Thresholds
}

// NewEngine creates an engine; zero-valued threshold fields fall back to
// defaults so partial overrides stay safe.
func NewEngine(t Thresholds) *Engine {
	d := DefaultThresholds()
	if t.NewQuality <= 0 {
		t.NewQuality = d.NewQuality
	}
	if t.NewNovelty <= 0 {
		t.NewNovelty = d.NewNovelty
	}
	if t.MergeSimilarityEmbedding <= 0 {
		t.MergeSimilarityEmbedding = d.MergeSimilarityEmbedding
	}
	if t.MergeSimilarityLexical <= 0 {
		t.MergeSimilarityLexical = d.MergeSimilarityLexical
	}
	if t.MergeQuality <= 0 {
		t.MergeQuality = d.MergeQuality
	}
	return &Engine{thresholds: t}
}

// Decide combines quality, novelty, similarity and author equality into one
// action. topMatchAuthor is the author string of the strongest similar
// entry ("" when there is none or it is unknown).
func (e *Engine) Decide(assessment quality.Assessment, sim similarity.Result, meta metadata.Metadata, topMatchAuthor string) Decision {
	t := e.thresholds

	qualityOK := assessment.AutoApprove || assessment.TotalScore >= t.NewQuality

	if qualityOK && sim.NoveltyScore >= t.NewNovelty {
		return Decision{
			Action:     ActionApproveNew,
			Confidence: assessment.ConfidenceLevel,
			Reasoning:  buildReasoning(assessment, sim),
		}
	}

	mergeSim := t.MergeSimilarityLexical
	if sim.ComparisonMethod == similarity.MethodSemanticEmbedding {
		mergeSim = t.MergeSimilarityEmbedding
	}

	if len(sim.SimilarDocuments) > 0 &&
		sim.MaxSimilarity >= mergeSim &&
		(assessment.AutoApprove || assessment.TotalScore >= t.MergeQuality) &&
		metadata.AuthorsEqual(meta.Author, topMatchAuthor) {
		reasons := buildReasoning(assessment, sim)
		reasons = append(reasons, fmt.Sprintf(
			"Same author as %s (similarity %.2f); new insights will extend the existing entry.",
			sim.SimilarDocuments[0].Filename, sim.MaxSimilarity))
		return Decision{
			Action:      ActionMerge,
			Confidence:  ConfidenceMedium,
			Reasoning:   reasons,
			MergeTarget: sim.SimilarDocuments[0].Filename,
		}
	}

	reasons := buildReasoning(assessment, sim)
	reasons = append(reasons, reviewReason(assessment, sim, t, topMatchAuthor, meta))
	return Decision{
		Action:     ActionReview,
		Confidence: ConfidenceLow,
		Reasoning:  reasons,
	}
}

// buildReasoning produces the explanatory strings. They describe the
// decision inputs but are never themselves inputs to the rules.
func buildReasoning(assessment quality.Assessment, sim similarity.Result) []string {
	reasons := []string{
		fmt.Sprintf("Quality score %.2f (%s confidence).", assessment.TotalScore, assessment.ConfidenceLevel),
		fmt.Sprintf("Novelty %.2f against %d similar existing entries (%s).",
			sim.NoveltyScore, len(sim.SimilarDocuments), sim.ComparisonMethod),
	}
	if assessment.SourceCredibility >= 0.7 {
		reasons = append(reasons, "Source carries recognized academic or standards-body credentials.")
	}
	return reasons
}

func reviewReason(assessment quality.Assessment, sim similarity.Result, t Thresholds, topMatchAuthor string, meta metadata.Metadata) string {
	switch {
	case assessment.ConfidenceLevel == quality.ConfidenceError:
		return "Quality assessment failed; manual review required."
	case !assessment.AutoApprove && assessment.TotalScore < t.NewQuality:
		return "Quality below the new-entry threshold; manual review required."
	case len(sim.SimilarDocuments) > 0 && !metadata.AuthorsEqual(meta.Author, topMatchAuthor):
		return "Strong overlap with an existing entry by a different author; merge blocked, manual review required."
	case sim.NoveltyScore < t.NewNovelty:
		return "Low novelty against the existing knowledge base; manual review required."
	default:
		return "No decision rule matched cleanly; manual review required."
	}
}

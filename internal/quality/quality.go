// Package quality scores ingested literature across four dimensions and
// produces the assessment that drives integration decisions.
//
// Scores are deterministic functions of content: identical input always
// yields bit-identical dimension scores. Internal failures never escape;
// they collapse into a zero-scored, error-tagged assessment so the pipeline
// can keep moving and route the document to review.
package quality

import (
	"fmt"
	"math"
	"strings"

	"github.com/policyatlas/litbase/internal/metadata"
)

// Confidence tiers. The two-tier scheme is deliberate; the cutoff lives in
// Config so intermediate tiers can be reinstated without touching call sites.
const (
	ConfidenceHigh  = "high"
	ConfidenceLow   = "low"
	ConfidenceError = "error"
)

// Dimension weights for the total score.
const (
	weightSourceCredibility  = 0.30
	weightContentQuality     = 0.25
	weightMethodologyQuality = 0.25
	weightPolicyRelevance    = 0.20
)

// Config holds the tunable parts of the scoring model.
type Config struct {
	// AutoApproveThreshold is the total score at or above which an
	// assessment is high-confidence and auto-approved.
	AutoApproveThreshold float64
}

// DefaultConfig returns the standard scoring configuration.
func DefaultConfig() Config {
	return Config{AutoApproveThreshold: 0.60}
}

// Assessment is the multi-dimensional quality result for one document.
type Assessment struct {
	SourceCredibility  float64 `json:"source_credibility"`
	ContentQuality     float64 `json:"content_quality"`
	MethodologyQuality float64 `json:"methodology_quality"`
	PolicyRelevance    float64 `json:"policy_relevance"`

	TotalScore      float64 `json:"total_score"`
	ConfidenceLevel string  `json:"confidence_level"`
	AutoApprove     bool    `json:"auto_approve"`
	Recommendation  string  `json:"recommendation"`
}

// Credibility keyword tiers, highest first. The matched tier's score wins.
var credibilityTiers = []struct {
	score    float64
	keywords []string
}{
	{1.0, []string{
		"unesco", "oecd", "ieee", "iso ", "european commission", "nist",
		"national academies", ".edu", ".ac.", ".org", "university press",
		"peer-reviewed", "peer reviewed",
	}},
	{0.7, []string{
		"university", "institute", "journal", "proceedings", "conference",
		"doi", "research center", "research centre", "faculty", "laboratory",
	}},
	{0.4, []string{
		"report", "white paper", "policy brief", "working paper", "think tank",
		"foundation", "ministry", "department of",
	}},
}

var methodologyTerms = []string{
	"methodology", "method", "survey", "interview", "experiment", "case study",
	"systematic review", "meta-analysis", "qualitative", "quantitative",
	"sample", "participants", "data collection", "empirical",
}

var evidenceTerms = []string{
	"data", "evidence", "results", "findings", "analysis", "statistics",
	"significant", "correlation", "measured", "observed",
}

var validationTerms = []string{
	"validity", "reliability", "validation", "replication", "triangulation",
	"robustness", "limitations", "peer review",
}

var academicTerms = []string{
	"research", "study", "literature", "theoretical", "hypothesis",
	"framework", "analysis", "findings", "furthermore", "however",
	"moreover", "implications", "contribution",
}

var aiTechTerms = []string{
	"artificial intelligence", " ai ", "machine learning", "algorithm",
	"automated", "model", "neural", "chatbot", "generative", "llm",
	"technology", "digital", "system",
}

var eduPolicyTerms = []string{
	"education", "learning", "teaching", "student", "school", "university",
	"curriculum", "policy", "governance", "regulation", "institution",
	"classroom", "assessment", "pedagog",
}

var policyTermsForInsights = []string{
	"policy", "governance", "regulation", "oversight", "accountability",
	"transparency", "ethics", "ethical", "compliance", "framework",
	"guideline", "standard",
}

// Validator scores documents.
type Validator struct {
	cfg Config
}

// NewValidator creates a validator with the given config; zero-value config
// fields fall back to defaults.
func NewValidator(cfg Config) *Validator {
	if cfg.AutoApproveThreshold <= 0 {
		cfg.AutoApproveThreshold = DefaultConfig().AutoApproveThreshold
	}
	return &Validator{cfg: cfg}
}

// Assess computes the four dimension scores and the weighted total.
// Never panics outward: any internal failure yields the error assessment.
func (v *Validator) Assess(meta metadata.Metadata, text string, insights []string) (assessment Assessment) {
	defer func() {
		if r := recover(); r != nil {
			assessment = errorAssessment(fmt.Sprintf("internal scoring failure: %v", r))
		}
	}()

	lower := strings.ToLower(text)

	assessment = Assessment{
		SourceCredibility:  scoreSourceCredibility(meta, lower),
		ContentQuality:     scoreContentQuality(lower, insights),
		MethodologyQuality: scoreMethodologyQuality(lower),
		PolicyRelevance:    scorePolicyRelevance(lower, insights),
	}

	assessment.TotalScore = weightSourceCredibility*assessment.SourceCredibility +
		weightContentQuality*assessment.ContentQuality +
		weightMethodologyQuality*assessment.MethodologyQuality +
		weightPolicyRelevance*assessment.PolicyRelevance

	if assessment.TotalScore >= v.cfg.AutoApproveThreshold {
		assessment.ConfidenceLevel = ConfidenceHigh
		assessment.AutoApprove = true
		assessment.Recommendation = "Quality threshold met; document is eligible for automatic integration."
	} else {
		assessment.ConfidenceLevel = ConfidenceLow
		assessment.AutoApprove = false
		assessment.Recommendation = "Quality below the automatic-approval threshold; manual review recommended."
	}

	return assessment
}

// scoreSourceCredibility returns the score of the best matched tier, or 0.
func scoreSourceCredibility(meta metadata.Metadata, lowerText string) float64 {
	haystack := lowerText
	for _, field := range []string{meta.Journal, meta.DOI, meta.Author} {
		if field != "" {
			haystack += " " + strings.ToLower(field)
		}
	}
	if meta.DOI != "" {
		// A resolvable DOI is itself a mid-tier credential.
		haystack += " doi"
	}

	for _, tier := range credibilityTiers {
		for _, kw := range tier.keywords {
			if strings.Contains(haystack, kw) {
				return tier.score
			}
		}
	}
	return 0
}

// scoreContentQuality is additive: methodology terms (cap 0.4), insight
// count adequacy (cap 0.3 at >= 10 insights), academic language density
// (cap 0.3). Clipped to [0, 1].
func scoreContentQuality(lowerText string, insights []string) float64 {
	score := 0.0

	methodHits := countHits(lowerText, methodologyTerms)
	score += math.Min(0.4, float64(methodHits)*0.1)

	score += math.Min(0.3, float64(len(insights))*0.03)

	academicHits := countHits(lowerText, academicTerms)
	score += math.Min(0.3, termDensity(lowerText, academicHits)*30)

	return clip01(score)
}

// scoreMethodologyQuality is additive: methodology terms (0.4), evidence
// term density (cap 0.3), validation terms (0.3). Clipped to [0, 1].
func scoreMethodologyQuality(lowerText string) float64 {
	score := 0.0

	if countHits(lowerText, methodologyTerms) > 0 {
		score += 0.4
	}

	evidenceHits := countHits(lowerText, evidenceTerms)
	score += math.Min(0.3, termDensity(lowerText, evidenceHits)*40)

	if countHits(lowerText, validationTerms) > 0 {
		score += 0.3
	}

	return clip01(score)
}

// scorePolicyRelevance is additive: AI/technology density (cap 0.4),
// education/policy density (cap 0.4), fraction of insights containing policy
// terms (cap 0.2). Clipped to [0, 1].
func scorePolicyRelevance(lowerText string, insights []string) float64 {
	score := 0.0

	aiHits := countHits(lowerText, aiTechTerms)
	score += math.Min(0.4, termDensity(lowerText, aiHits)*50)

	eduHits := countHits(lowerText, eduPolicyTerms)
	score += math.Min(0.4, termDensity(lowerText, eduHits)*50)

	if len(insights) > 0 {
		withPolicy := 0
		for _, insight := range insights {
			insightLower := strings.ToLower(insight)
			for _, term := range policyTermsForInsights {
				if strings.Contains(insightLower, term) {
					withPolicy++
					break
				}
			}
		}
		score += math.Min(0.2, float64(withPolicy)/float64(len(insights))*0.2)
	}

	return clip01(score)
}

func errorAssessment(detail string) Assessment {
	return Assessment{
		ConfidenceLevel: ConfidenceError,
		AutoApprove:     false,
		Recommendation:  "Assessment failed; manual review required. " + detail,
	}
}

// countHits counts occurrences of each term in text (each term counted once).
func countHits(lowerText string, terms []string) int {
	hits := 0
	padded := " " + lowerText + " "
	for _, term := range terms {
		if strings.Contains(padded, term) {
			hits++
		}
	}
	return hits
}

// termDensity scales hit counts by document length so long documents don't
// win on raw volume.
func termDensity(lowerText string, hits int) float64 {
	words := len(strings.Fields(lowerText))
	if words == 0 {
		return 0
	}
	return float64(hits) / float64(words)
}

func clip01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// NormalizeScore converts any stored quality score to the canonical 0–100
// scale. Legacy scores on the old 0–2.0 scale are rescaled by 100 and
// capped; anything above 100 is capped; modern scores are rounded to one
// decimal. This is the only place score normalization happens.
func NormalizeScore(s float64) float64 {
	if s < 0 {
		return 0
	}
	if s <= 2.0 {
		return math.Min(100, math.Round(s*1000)/10)
	}
	if s > 100 {
		return 100
	}
	return math.Round(s*10) / 10
}

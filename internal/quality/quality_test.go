package quality

import (
	"math"
	"strings"
	"testing"

	"github.com/policyatlas/litbase/internal/metadata"
)

const strongPaper = `This peer-reviewed study examines AI governance policy in
higher education. The methodology combines a survey of 142 institutions with
qualitative interviews. Data collection followed established protocols and
the analysis reports statistically significant findings. Validity and
reliability checks included triangulation across sources. The research
contributes a governance framework for artificial intelligence regulation in
education, with implications for institutional policy and student assessment.`

func manyInsights(n int) []string {
	insights := make([]string, n)
	for i := range insights {
		insights[i] = "Governance policy insight about accountability and oversight in education."
	}
	return insights
}

func TestAssessStrongDocument(t *testing.T) {
	v := NewValidator(DefaultConfig())
	meta := metadata.Metadata{
		Author:  "Smith, Jones",
		Journal: "Journal of Educational Technology Policy",
		DOI:     "10.1234/jetp.2023.0042",
	}

	a := v.Assess(meta, strongPaper, manyInsights(12))

	if a.SourceCredibility != 1.0 {
		t.Errorf("source credibility = %f, want 1.0 (peer-reviewed top tier)", a.SourceCredibility)
	}
	if a.TotalScore < 0.60 {
		t.Errorf("total score = %f, want >= 0.60 for a strong document", a.TotalScore)
	}
	if a.ConfidenceLevel != ConfidenceHigh {
		t.Errorf("confidence = %q, want high", a.ConfidenceLevel)
	}
	if !a.AutoApprove {
		t.Error("strong document should auto-approve")
	}
}

func TestAssessWeakDocument(t *testing.T) {
	v := NewValidator(DefaultConfig())
	a := v.Assess(metadata.Metadata{}, "a short note with nothing of substance", nil)

	if a.TotalScore >= 0.60 {
		t.Errorf("total score = %f, want < 0.60", a.TotalScore)
	}
	if a.ConfidenceLevel != ConfidenceLow {
		t.Errorf("confidence = %q, want low", a.ConfidenceLevel)
	}
	if a.AutoApprove {
		t.Error("weak document must not auto-approve")
	}
}

func TestAssessIdempotent(t *testing.T) {
	v := NewValidator(DefaultConfig())
	meta := metadata.Metadata{Journal: "Proceedings of AIED"}
	insights := manyInsights(8)

	first := v.Assess(meta, strongPaper, insights)
	second := v.Assess(meta, strongPaper, insights)

	if first != second {
		t.Errorf("repeated assessment differs:\n%+v\n%+v", first, second)
	}
}

func TestDimensionScoresBounded(t *testing.T) {
	v := NewValidator(DefaultConfig())
	// Pathologically dense text should still clip at 1.0 per dimension.
	dense := strings.Repeat(strongPaper+" ", 3)
	a := v.Assess(metadata.Metadata{DOI: "10.1/x"}, dense, manyInsights(50))

	for name, score := range map[string]float64{
		"source":      a.SourceCredibility,
		"content":     a.ContentQuality,
		"methodology": a.MethodologyQuality,
		"relevance":   a.PolicyRelevance,
		"total":       a.TotalScore,
	} {
		if score < 0 || score > 1 {
			t.Errorf("%s score out of [0,1]: %f", name, score)
		}
	}
}

func TestCredibilityTiers(t *testing.T) {
	tests := []struct {
		name string
		meta metadata.Metadata
		text string
		want float64
	}{
		{"top tier edu domain", metadata.Metadata{}, "hosted at stanford.edu repository", 1.0},
		{"mid tier university", metadata.Metadata{}, "a university research center publication", 0.7},
		{"mid tier via doi", metadata.Metadata{DOI: "10.1234/x"}, "plain text", 0.7},
		{"low tier white paper", metadata.Metadata{}, "an industry white paper", 0.4},
		{"no signal", metadata.Metadata{}, "random blog musings", 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := scoreSourceCredibility(tt.meta, strings.ToLower(tt.text))
			if got != tt.want {
				t.Errorf("credibility = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestInsightAdequacyCap(t *testing.T) {
	// 10 insights reach the 0.3 adequacy cap; more insights add nothing.
	at10 := scoreContentQuality("plain text", manyInsights(10))
	at30 := scoreContentQuality("plain text", manyInsights(30))
	if math.Abs(at10-at30) > 1e-9 {
		t.Errorf("insight adequacy should cap at 10 insights: %f vs %f", at10, at30)
	}
}

func TestNormalizeScore(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{0, 0},
		{0.5, 50},
		{1.0, 100},
		{1.6, 100},   // legacy 0–2.0 scale, capped
		{2.0, 100},   // legacy boundary
		{85.67, 85.7},
		{100, 100},
		{160, 100},   // over-scale, capped
		{73.44, 73.4},
		{-5, 0},
	}

	for _, tt := range tests {
		if got := NormalizeScore(tt.in); got != tt.want {
			t.Errorf("NormalizeScore(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeScoreLegacyRescale(t *testing.T) {
	// Legacy s in [0, 1.0] maps linearly onto [0, 100].
	for _, s := range []float64{0.1, 0.25, 0.9} {
		want := math.Round(s*1000) / 10
		if got := NormalizeScore(s); got != want {
			t.Errorf("NormalizeScore(%v) = %v, want %v", s, got, want)
		}
	}
}

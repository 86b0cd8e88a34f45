package insight

import (
	"context"
	"fmt"
	"strings"
	"testing"
)

const sampleText = `Artificial intelligence is transforming classrooms worldwide.
Universities need clear governance frameworks before deploying AI tutors.
Institutional oversight of algorithmic grading remains weak in most regions.
Transparency about how recommendation algorithms rank students builds trust.
The weather yesterday was unusually warm for this time of year.
Privacy protections for student data must satisfy consent requirements.
Privacy protections for student data must satisfy consent requirements.
Accountability for automated decisions should rest with named officials.
Ok.`

// mockEmbedder returns deterministic vectors keyed by text, mirroring the
// mock-provider style used across the extraction tests.
type mockEmbedder struct {
	vectors map[string][]float32
	fail    bool
	calls   int
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := m.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (m *mockEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.calls++
	if m.fail {
		return nil, fmt.Errorf("embedding backend unavailable")
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if v, ok := m.vectors[t]; ok {
			out[i] = v
		} else {
			out[i] = []float32{1, 0, 0}
		}
	}
	return out, nil
}

func (m *mockEmbedder) Dimensions() int { return 3 }

func TestExtractKeywordOnly(t *testing.T) {
	x := NewExtractor()
	insights := x.Extract(context.Background(), sampleText)

	if len(insights) == 0 {
		t.Fatal("expected insights from policy-heavy text")
	}
	for _, ins := range insights {
		if strings.Contains(ins, "weather") {
			t.Errorf("off-topic sentence selected: %q", ins)
		}
		if len(ins) < 10 || len(ins) > 300 {
			t.Errorf("insight length out of bounds: %q", ins)
		}
	}

	// Duplicate privacy sentence must be selected once.
	count := 0
	for _, ins := range insights {
		if strings.Contains(ins, "Privacy protections") {
			count++
		}
	}
	if count != 1 {
		t.Errorf("duplicate sentence selected %d times", count)
	}
}

func TestExtractRespectsCap(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 40; i++ {
		fmt.Fprintf(&b, "Policy statement number %d concerns governance of AI in education. ", i)
	}

	x := NewExtractor(WithMaxInsights(5))
	insights := x.Extract(context.Background(), b.String())
	if len(insights) != 5 {
		t.Errorf("expected 5 insights, got %d", len(insights))
	}
}

func TestExtractEmptyText(t *testing.T) {
	x := NewExtractor()
	if got := x.Extract(context.Background(), ""); got != nil {
		t.Errorf("expected nil for empty text, got %v", got)
	}
}

func TestSemanticFilterDropsIrrelevant(t *testing.T) {
	// One candidate aligned with references, one orthogonal.
	// Candidate sentences lose their trailing period during splitting.
	mock := &mockEmbedder{vectors: map[string][]float32{
		"Universities need clear governance frameworks for AI policy": {1, 0, 0},
		"The cafeteria menu policy changed to include more options":    {0, 1, 0},
	}}
	// References all embed to the default {1,0,0}.

	text := "Universities need clear governance frameworks for AI policy. The cafeteria menu policy changed to include more options."
	x := NewExtractor(WithEmbedder(mock))
	insights := x.Extract(context.Background(), text)

	if len(insights) != 1 {
		t.Fatalf("expected 1 insight, got %d: %v", len(insights), insights)
	}
	if !strings.Contains(insights[0], "governance frameworks") {
		t.Errorf("wrong insight kept: %q", insights[0])
	}
}

func TestSemanticDiversityCollapsesNearDuplicates(t *testing.T) {
	// Two near-identical vectors and one distinct; greedy sampling should
	// keep one of the pair plus the distinct one.
	mock := &mockEmbedder{vectors: map[string][]float32{
		"Governance of AI policy in schools is essential":     {1, 0, 0},
		"Governance of AI policy in colleges is essential":    {0.999, 0.001, 0},
		"Privacy of student data requires consent safeguards": {0.5, 0.86, 0},
	}}

	text := "Governance of AI policy in schools is essential. Governance of AI policy in colleges is essential. Privacy of student data requires consent safeguards."
	x := NewExtractor(WithEmbedder(mock))
	insights := x.Extract(context.Background(), text)

	if len(insights) != 2 {
		t.Fatalf("expected 2 diverse insights, got %d: %v", len(insights), insights)
	}
}

func TestEmbedderFailureFallsBack(t *testing.T) {
	mock := &mockEmbedder{fail: true}
	x := NewExtractor(WithEmbedder(mock))
	insights := x.Extract(context.Background(), sampleText)
	if len(insights) == 0 {
		t.Fatal("embedding failure must fall back to keyword selection, not return nothing")
	}
}

func TestTopicsRequireTwoInsights(t *testing.T) {
	insights := []string{
		"Governance frameworks for AI need regular review.",
		"Policy oversight bodies should publish governance reports.",
		"One lone mention of privacy here.",
	}
	topics := Topics(insights)

	found := map[string]bool{}
	for _, topic := range topics {
		found[topic] = true
	}
	if !found["governance"] {
		t.Errorf("governance should be reported (2 insights), got %v", topics)
	}
	if found["privacy"] {
		t.Errorf("privacy should not be reported with a single insight, got %v", topics)
	}
}

func TestTopicsEmptyInput(t *testing.T) {
	if topics := Topics(nil); topics != nil {
		t.Errorf("expected nil topics, got %v", topics)
	}
}

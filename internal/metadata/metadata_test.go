package metadata

import (
	"reflect"
	"strings"
	"testing"
)

const samplePaper = `# Governance Frameworks for AI in Higher Education

Authors: Jane Smith, Robert Jones
Published in: Journal of Educational Technology Policy
DOI: 10.1234/jetp.2023.0042

Abstract: This study examines how universities govern the adoption of
artificial intelligence tools in teaching and assessment. Drawing on a survey
of 142 institutions, we identify recurring gaps in accountability and propose
a tiered oversight framework for institutional policy.

Keywords: AI governance, higher education, accountability, policy

1. Introduction

The rapid adoption of generative AI...`

func TestExtractFullPaper(t *testing.T) {
	m := Extract(samplePaper, "Smith_Jones_2023.pdf")

	if m.Title != "Governance Frameworks for AI in Higher Education" {
		t.Errorf("title = %q", m.Title)
	}
	if m.Author != "Jane Smith, Robert Jones" {
		t.Errorf("author = %q", m.Author)
	}
	if m.Journal != "Journal of Educational Technology Policy" {
		t.Errorf("journal = %q", m.Journal)
	}
	if m.DOI != "10.1234/jetp.2023.0042" {
		t.Errorf("doi = %q", m.DOI)
	}
	if !strings.HasPrefix(m.Abstract, "This study examines") {
		t.Errorf("abstract = %q", m.Abstract)
	}
	want := []string{"AI governance", "higher education", "accountability", "policy"}
	if !reflect.DeepEqual(m.Keywords, want) {
		t.Errorf("keywords = %v, want %v", m.Keywords, want)
	}
	if m.Year != 2023 {
		t.Errorf("year = %d, want 2023", m.Year)
	}
	if m.DocType != "journal_article" {
		t.Errorf("doc type = %q", m.DocType)
	}
}

func TestExtractMissingFieldsStayEmpty(t *testing.T) {
	m := Extract("short note about nothing in particular, no structure here at all", "notes.txt")
	if m.Author != "" {
		t.Errorf("author should be empty, got %q", m.Author)
	}
	if m.Abstract != "" {
		t.Errorf("abstract should be empty, got %q", m.Abstract)
	}
	if m.DOI != "" {
		t.Errorf("doi should be empty, got %q", m.DOI)
	}
	if m.Keywords != nil {
		t.Errorf("keywords should be nil, got %v", m.Keywords)
	}
}

func TestAuthorFromFilename(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"Smith_et_al_2023.pdf", "Smith et al."},
		{"smith_et_al.pdf", "Smith et al."},
		{"Smith_Jones_2024.pdf", "Smith, Jones"},
		{"Garcia_2022.md", "Garcia"},
		{"final_draft_2023.pdf", ""},
		{"notes.txt", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			if got := authorFromFilename(tt.filename); got != tt.want {
				t.Errorf("authorFromFilename(%q) = %q, want %q", tt.filename, got, tt.want)
			}
		})
	}
}

func TestExtractAuthorFallsBackToFilename(t *testing.T) {
	m := Extract("An untitled manuscript with no front matter to speak of.", "Nguyen_et_al_2024.pdf")
	if m.Author != "Nguyen et al." {
		t.Errorf("author = %q, want filename fallback", m.Author)
	}
	if m.Year != 2024 {
		t.Errorf("year = %d, want 2024 from filename", m.Year)
	}
}

func TestYearFromFilenameSeparators(t *testing.T) {
	tests := []struct {
		filename string
		want     int
	}{
		{"Smith_Jones_2024.pdf", 2024},
		{"smith-2022.txt", 2022},
		{"Nguyen_et_al_2024.pdf", 2024},
		{"ai_policy_review.md", 0},
	}
	for _, tt := range tests {
		m := Extract("No dates anywhere in this body text.", tt.filename)
		if m.Year != tt.want {
			t.Errorf("Extract(%q).Year = %d, want %d", tt.filename, m.Year, tt.want)
		}
	}
}

func TestNormalizeAuthor(t *testing.T) {
	tests := []struct {
		a, b  string
		equal bool
	}{
		{"Jane Smith", "jane smith", true},
		{"Smith, Jones", "Jones and Smith", true},
		{"J. Smith and R. Jones", "r jones; j smith", true},
		{"Jane Smith", "John Smith", false},
		{"", "", false},
		{"Smith", "", false},
	}

	for _, tt := range tests {
		if got := AuthorsEqual(tt.a, tt.b); got != tt.equal {
			t.Errorf("AuthorsEqual(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.equal)
		}
	}
}

func TestDetectDOIVariants(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"doi: 10.1234/abc.def", "10.1234/abc.def"},
		{"https://doi.org/10.5555/xyz-123", "10.5555/xyz-123"},
		{"see (10.1000/j.2020.01.001).", "10.1000/j.2020.01.001"},
		{"no identifier here", ""},
	}
	for _, tt := range tests {
		if got := detectDOI(tt.text); got != tt.want {
			t.Errorf("detectDOI(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}

func TestExtractIsIdempotent(t *testing.T) {
	first := Extract(samplePaper, "Smith_Jones_2023.pdf")
	second := Extract(samplePaper, "Smith_Jones_2023.pdf")
	if !reflect.DeepEqual(first, second) {
		t.Errorf("repeated extraction differs: %+v vs %+v", first, second)
	}
}

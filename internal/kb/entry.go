package kb

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/policyatlas/litbase/internal/quality"
)

// EntryFrontmatter is the YAML header of a knowledge-base entry file.
// The stored quality score is a snapshot for human readers only; listings
// always recompute it from current content.
type EntryFrontmatter struct {
	DocumentID   string   `yaml:"document_id"`
	Title        string   `yaml:"title"`
	Author       string   `yaml:"author,omitempty"`
	Year         int      `yaml:"year,omitempty"`
	Journal      string   `yaml:"journal,omitempty"`
	DOI          string   `yaml:"doi,omitempty"`
	DocType      string   `yaml:"doc_type,omitempty"`
	Topics       []string `yaml:"topics,omitempty"`
	SourceFile   string   `yaml:"source_file,omitempty"`
	IntegratedAt string   `yaml:"integrated_at"`
	UpdatedAt    string   `yaml:"updated_at,omitempty"`
	QualityScore float64  `yaml:"quality_score_snapshot,omitempty"`
}

// ParsedEntry is an entry file split back into its parts.
type ParsedEntry struct {
	Frontmatter EntryFrontmatter
	Body        string   // everything after the frontmatter
	Insights    []string // bullets from all insight sections
}

var insightSectionRE = regexp.MustCompile(`(?m)^##\s+(?:Key Insights|Additional Insights.*)$`)

// formatEntry renders a new entry file for an approved document.
func formatEntry(doc ProcessedDocument, documentID string, now time.Time) (string, error) {
	fm := EntryFrontmatter{
		DocumentID:   documentID,
		Title:        doc.Meta.Title,
		Author:       doc.Meta.Author,
		Year:         doc.Meta.Year,
		Journal:      doc.Meta.Journal,
		DOI:          doc.Meta.DOI,
		DocType:      doc.Meta.DocType,
		Topics:       doc.Topics,
		SourceFile:   doc.Filename,
		IntegratedAt: now.UTC().Format(time.RFC3339),
		QualityScore: quality.NormalizeScore(doc.Assessment.TotalScore),
	}

	header, err := yaml.Marshal(&fm)
	if err != nil {
		return "", fmt.Errorf("marshaling entry frontmatter: %w", err)
	}

	var b strings.Builder
	b.WriteString("---\n")
	b.Write(header)
	b.WriteString("---\n\n")

	title := doc.Meta.Title
	if title == "" {
		title = documentID
	}
	fmt.Fprintf(&b, "# %s\n\n", title)

	if doc.Meta.Abstract != "" {
		b.WriteString("## Abstract\n\n")
		b.WriteString(doc.Meta.Abstract)
		b.WriteString("\n\n")
	}

	b.WriteString("## Key Insights\n\n")
	if len(doc.Insights) == 0 {
		b.WriteString("_No insights extracted._\n")
	}
	for _, insight := range doc.Insights {
		fmt.Fprintf(&b, "- %s\n", insight)
	}
	b.WriteString("\n")

	b.WriteString("## Quality Assessment\n\n")
	fmt.Fprintf(&b, "- Total score: %.1f/100 (%s confidence)\n",
		quality.NormalizeScore(doc.Assessment.TotalScore), doc.Assessment.ConfidenceLevel)
	fmt.Fprintf(&b, "- Source credibility: %.2f\n", doc.Assessment.SourceCredibility)
	fmt.Fprintf(&b, "- Content quality: %.2f\n", doc.Assessment.ContentQuality)
	fmt.Fprintf(&b, "- Methodology quality: %.2f\n", doc.Assessment.MethodologyQuality)
	fmt.Fprintf(&b, "- Policy relevance: %.2f\n", doc.Assessment.PolicyRelevance)

	return b.String(), nil
}

// appendMergeSection appends a dated insights section and refreshes the
// metadata footer on an existing entry's content.
func appendMergeSection(existing string, doc ProcessedDocument, now time.Time) string {
	var b strings.Builder
	b.WriteString(strings.TrimRight(existing, "\n"))
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "## Additional Insights (%s)\n\n", now.UTC().Format("2006-01-02"))
	if len(doc.Insights) == 0 {
		b.WriteString("_No new insights extracted._\n")
	}
	for _, insight := range doc.Insights {
		fmt.Fprintf(&b, "- %s\n", insight)
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "<!-- merged %s from %s; quality %.1f/100 -->\n",
		now.UTC().Format(time.RFC3339), doc.Filename,
		quality.NormalizeScore(doc.Assessment.TotalScore))

	return refreshUpdatedAt(b.String(), now)
}

// refreshUpdatedAt sets updated_at in the frontmatter, preserving identity
// and every other field.
func refreshUpdatedAt(content string, now time.Time) string {
	parsed, err := parseEntryContent(content)
	if err != nil {
		return content
	}
	parsed.Frontmatter.UpdatedAt = now.UTC().Format(time.RFC3339)

	header, err := yaml.Marshal(&parsed.Frontmatter)
	if err != nil {
		return content
	}
	return "---\n" + string(header) + "---\n" + parsed.Body
}

// parseEntryContent splits an entry file into frontmatter, body and insights.
func parseEntryContent(content string) (*ParsedEntry, error) {
	rest, ok := strings.CutPrefix(content, "---\n")
	if !ok {
		return nil, fmt.Errorf("entry has no frontmatter")
	}
	headerEnd := strings.Index(rest, "\n---\n")
	if headerEnd < 0 {
		return nil, fmt.Errorf("entry frontmatter is unterminated")
	}

	var fm EntryFrontmatter
	if err := yaml.Unmarshal([]byte(rest[:headerEnd]), &fm); err != nil {
		return nil, fmt.Errorf("parsing entry frontmatter: %w", err)
	}

	body := rest[headerEnd+len("\n---\n"):]
	return &ParsedEntry{
		Frontmatter: fm,
		Body:        body,
		Insights:    parseInsightBullets(body),
	}, nil
}

// parseInsightBullets collects bullet lines from every insight section.
func parseInsightBullets(body string) []string {
	var insights []string
	inSection := false
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case insightSectionRE.MatchString(line):
			inSection = true
		case strings.HasPrefix(trimmed, "## "):
			inSection = false
		case inSection && strings.HasPrefix(trimmed, "- "):
			insights = append(insights, strings.TrimSpace(trimmed[2:]))
		}
	}
	return insights
}

var filenameCleanRE = regexp.MustCompile(`[^a-z0-9]+`)

// entryFilename builds a stable, collision-resistant filename:
// doc type + cleaned title + year + short id.
func entryFilename(doc ProcessedDocument) string {
	docType := doc.Meta.DocType
	if docType == "" {
		docType = "document"
	}

	title := strings.ToLower(doc.Meta.Title)
	title = filenameCleanRE.ReplaceAllString(title, "_")
	title = strings.Trim(title, "_")
	if len(title) > 40 {
		title = title[:40]
		if idx := strings.LastIndex(title, "_"); idx > 20 {
			title = title[:idx]
		}
	}
	if title == "" {
		title = "untitled"
	}

	parts := []string{docType, title}
	if doc.Meta.Year > 0 {
		parts = append(parts, fmt.Sprintf("%d", doc.Meta.Year))
	}
	parts = append(parts, uuid.NewString()[:8])

	return strings.Join(parts, "_") + ".md"
}

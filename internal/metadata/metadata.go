// Package metadata provides heuristic bibliographic extraction for litbase.
//
// Extraction is pattern-based and best-effort by design: each field is probed
// by a chain of independent detectors over the head of the document, the first
// match wins, and fields without a confident match are left empty rather than
// guessed. Author detection falls back to filename conventions
// ("Smith_et_al_2023.pdf", "Smith_Jones_2024.pdf") when the text yields nothing.
package metadata

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// headWindow is how much of the document the probes inspect. Bibliographic
// front matter lives in the first few thousand characters; scanning further
// mostly picks up citations.
const headWindow = 3000

// maxAbstractLen caps extracted abstracts.
const maxAbstractLen = 1500

// Metadata holds the extracted bibliographic fields. Empty fields mean
// "no confident match", never "unknown but guessed".
type Metadata struct {
	Title    string   `json:"title,omitempty"`
	Author   string   `json:"author,omitempty"`
	Abstract string   `json:"abstract,omitempty"`
	Keywords []string `json:"keywords,omitempty"`
	Year     int      `json:"year,omitempty"`
	Journal  string   `json:"journal,omitempty"`
	DOI      string   `json:"doi,omitempty"`
	DocType  string   `json:"doc_type,omitempty"`
}

// detector probes text for a single field and returns "" when unsure.
type detector func(text string) string

var (
	authorLabelRE = regexp.MustCompile(`(?im)^\s*(?:authors?|by)\s*[:\-]\s*(.{3,120}?)\s*$`)
	authorByRE    = regexp.MustCompile(`(?i)\bby\s+([A-Z][a-zA-Z\-']+(?:\s+[A-Z][a-zA-Z\-'.]+){0,3}(?:\s*(?:,|and|&)\s*[A-Z][a-zA-Z\-']+(?:\s+[A-Z][a-zA-Z\-'.]+){0,3})*)`)

	// Filename conventions: "Smith_et_al_2023", "Smith_Jones_2024", "smith-2022".
	fileEtAlRE    = regexp.MustCompile(`(?i)^([A-Za-z\-']{2,})[_\- ]et[_\- ]al`)
	fileMultiRE   = regexp.MustCompile(`^([A-Za-z\-']{2,})[_\-]([A-Za-z\-']{2,})[_\-](?:19|20)\d{2}`)
	fileSingleRE  = regexp.MustCompile(`^([A-Za-z\-']{3,})[_\-](?:19|20)\d{2}`)
	fileNoiseWord = map[string]bool{
		"final": true, "draft": true, "paper": true, "report": true,
		"version": true, "copy": true, "the": true, "study": true,
	}

	abstractRE = regexp.MustCompile(`(?is)\babstract\b\s*[:\-—]?\s*(.+?)(?:\n\s*\n|\n\s*(?:keywords?|introduction|1[.\s])\b)`)
	keywordsRE = regexp.MustCompile(`(?im)^\s*key\s?words?\s*[:\-—]\s*(.+)$`)
	yearRE     = regexp.MustCompile(`\b(19[5-9]\d|20[0-4]\d)\b`)
	doiRE      = regexp.MustCompile(`(?i)\b(?:doi\s*[:\s]\s*|https?://(?:dx\.)?doi\.org/)?(10\.\d{4,9}/[^\s"'<>]+)`)
	journalRE  = regexp.MustCompile(`(?im)^\s*(?:published\s+in|journal)\s*[:\-]?\s*(.{5,120}?)\s*$`)
	journalOfRE = regexp.MustCompile(`(?im)\b((?:international\s+)?journal\s+of\s+[A-Z][\w\s,&\-]{3,80}|proceedings\s+of\s+(?:the\s+)?[A-Z][\w\s,&\-]{3,80})`)

	headingRE = regexp.MustCompile(`(?m)^#{1,3}\s+(.+)$`)
)

// Extract probes text (and the source filename) for bibliographic fields.
// It never fails: unmatched fields come back empty.
func Extract(text, filename string) Metadata {
	head := text
	if len(head) > headWindow {
		head = head[:headWindow]
	}

	m := Metadata{
		Title:    detectTitle(head, filename),
		Abstract: detectAbstract(head),
		Keywords: detectKeywords(head),
		Journal:  firstMatch(head, detectJournalLabel, detectJournalName),
		DOI:      detectDOI(head),
	}

	m.Author = firstMatch(head, detectAuthorLabel, detectAuthorByline)
	if m.Author == "" {
		m.Author = authorFromFilename(filename)
	}

	m.Year = detectYear(head)
	if m.Year == 0 {
		m.Year = yearFromFilename(filename)
	}

	m.DocType = classifyDocType(head, m)
	return m
}

// firstMatch runs detectors in order and returns the first non-empty result.
func firstMatch(text string, detectors ...detector) string {
	for _, d := range detectors {
		if v := d(text); v != "" {
			return v
		}
	}
	return ""
}

func detectTitle(head, filename string) string {
	if match := headingRE.FindStringSubmatch(head); match != nil {
		if t := cleanTitle(match[1]); t != "" {
			return t
		}
	}

	for _, line := range strings.Split(head, "\n") {
		line = strings.TrimSpace(line)
		if len(line) < 10 || len(line) > 200 {
			continue
		}
		lower := strings.ToLower(line)
		if strings.HasPrefix(lower, "abstract") || strings.HasPrefix(lower, "author") ||
			strings.HasPrefix(lower, "keyword") || strings.HasPrefix(lower, "doi") {
			continue
		}
		return cleanTitle(line)
	}

	return titleFromFilename(filename)
}

func cleanTitle(s string) string {
	s = strings.Trim(strings.TrimSpace(s), `"'*_`)
	return strings.Join(strings.Fields(s), " ")
}

func titleFromFilename(filename string) string {
	stem := fileStem(filename)
	if stem == "" {
		return ""
	}
	stem = strings.NewReplacer("_", " ", "-", " ").Replace(stem)
	return strings.Join(strings.Fields(stem), " ")
}

func detectAuthorLabel(text string) string {
	if match := authorLabelRE.FindStringSubmatch(text); match != nil {
		return normalizeAuthorLine(match[1])
	}
	return ""
}

func detectAuthorByline(text string) string {
	if match := authorByRE.FindStringSubmatch(text); match != nil {
		return normalizeAuthorLine(match[1])
	}
	return ""
}

// normalizeAuthorLine trims affiliations and trailing punctuation from a
// matched author span.
func normalizeAuthorLine(s string) string {
	s = strings.TrimSpace(s)
	// Cut at the first affiliation-ish marker.
	for _, sep := range []string{" (", " [", ";", " - ", " — "} {
		if idx := strings.Index(s, sep); idx > 0 {
			s = s[:idx]
		}
	}
	s = strings.Trim(s, " .,")
	if len(s) < 3 || len(s) > 120 {
		return ""
	}
	return s
}

// authorFromFilename recovers an author string from common filename
// conventions. Returns "" when the stem does not look like a citation key.
func authorFromFilename(filename string) string {
	stem := fileStem(filename)
	if stem == "" {
		return ""
	}

	if match := fileEtAlRE.FindStringSubmatch(stem); match != nil {
		return capitalize(match[1]) + " et al."
	}
	if match := fileMultiRE.FindStringSubmatch(stem); match != nil {
		first, second := strings.ToLower(match[1]), strings.ToLower(match[2])
		if fileNoiseWord[first] || fileNoiseWord[second] {
			return ""
		}
		return capitalize(match[1]) + ", " + capitalize(match[2])
	}
	if match := fileSingleRE.FindStringSubmatch(stem); match != nil {
		if fileNoiseWord[strings.ToLower(match[1])] {
			return ""
		}
		return capitalize(match[1])
	}
	return ""
}

func detectAbstract(text string) string {
	match := abstractRE.FindStringSubmatch(text)
	if match == nil {
		return ""
	}
	abstract := strings.Join(strings.Fields(match[1]), " ")
	if len(abstract) < 40 {
		return ""
	}
	if len(abstract) > maxAbstractLen {
		abstract = truncateAtWordBoundary(abstract, maxAbstractLen)
	}
	return abstract
}

func detectKeywords(text string) []string {
	match := keywordsRE.FindStringSubmatch(text)
	if match == nil {
		return nil
	}
	var keywords []string
	for _, part := range strings.FieldsFunc(match[1], func(r rune) bool {
		return r == ',' || r == ';' || r == '·' || r == '|'
	}) {
		kw := strings.Trim(strings.TrimSpace(part), ".")
		if kw != "" && len(kw) <= 60 {
			keywords = append(keywords, kw)
		}
	}
	if len(keywords) > 12 {
		keywords = keywords[:12]
	}
	return keywords
}

func detectYear(text string) int {
	match := yearRE.FindString(text)
	if match == "" {
		return 0
	}
	year, err := strconv.Atoi(match)
	if err != nil || year > time.Now().Year()+1 {
		return 0
	}
	return year
}

func yearFromFilename(filename string) int {
	// Stems keep their separators for the author probes, but a year like
	// "Smith_2024" never matches on a \b boundary because _ is a word
	// character. Probe a space-separated copy instead.
	stem := strings.NewReplacer("_", " ", "-", " ").Replace(fileStem(filename))
	return detectYear(stem)
}

func detectJournalLabel(text string) string {
	if match := journalRE.FindStringSubmatch(text); match != nil {
		return strings.Trim(strings.TrimSpace(match[1]), ".,")
	}
	return ""
}

func detectJournalName(text string) string {
	if match := journalOfRE.FindStringSubmatch(text); match != nil {
		name := strings.Join(strings.Fields(match[1]), " ")
		return strings.Trim(name, ".,")
	}
	return ""
}

func detectDOI(text string) string {
	if match := doiRE.FindStringSubmatch(text); match != nil {
		return strings.TrimRight(match[1], ".,;)")
	}
	return ""
}

// classifyDocType buckets the document into a coarse type used for entry
// filenames and summaries.
func classifyDocType(head string, m Metadata) string {
	lower := strings.ToLower(head)
	switch {
	case strings.Contains(lower, "proceedings") || strings.Contains(lower, "conference"):
		return "conference_paper"
	case m.Journal != "" || m.DOI != "":
		return "journal_article"
	case strings.Contains(lower, "working paper") || strings.Contains(lower, "preprint") || strings.Contains(lower, "arxiv"):
		return "working_paper"
	case strings.Contains(lower, "policy brief") || strings.Contains(lower, "white paper"):
		return "policy_brief"
	case strings.Contains(lower, "technical report") || strings.Contains(lower, "report"):
		return "report"
	default:
		return "document"
	}
}

// NormalizeAuthor canonicalizes an author string for equality comparison:
// lowercase, punctuation-insensitive, and author-order-independent.
// "Jones, A. and Smith, B." and "smith b; jones a" normalize identically.
func NormalizeAuthor(author string) string {
	s := strings.ToLower(strings.TrimSpace(author))
	if s == "" {
		return ""
	}
	for _, sep := range []string{" and ", "&", ";", ","} {
		s = strings.ReplaceAll(s, sep, " ")
	}
	s = strings.ReplaceAll(s, ".", " ")
	tokens := strings.Fields(s)
	// Sort tokens so author order does not affect equality.
	for i := 0; i < len(tokens); i++ {
		for j := i + 1; j < len(tokens); j++ {
			if tokens[j] < tokens[i] {
				tokens[i], tokens[j] = tokens[j], tokens[i]
			}
		}
	}
	return strings.Join(tokens, " ")
}

// AuthorsEqual reports whether two author strings denote the same authors
// under normalization. Empty strings never match anything.
func AuthorsEqual(a, b string) bool {
	na, nb := NormalizeAuthor(a), NormalizeAuthor(b)
	return na != "" && na == nb
}

func fileStem(filename string) string {
	base := filename
	if idx := strings.LastIndexAny(base, "/\\"); idx >= 0 {
		base = base[idx+1:]
	}
	if idx := strings.LastIndex(base, "."); idx > 0 {
		base = base[:idx]
	}
	return base
}

func capitalize(s string) string {
	if s == "" {
		return ""
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}

func truncateAtWordBoundary(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	truncated := s[:maxLen]
	if idx := strings.LastIndex(truncated, " "); idx > 0 {
		truncated = truncated[:idx]
	}
	return truncated + "…"
}

// Package pipeline orchestrates document ingestion end to end: upload
// validation, text extraction, metadata and insight extraction, quality
// assessment, similarity analysis, the integration decision and its
// execution against the knowledge base.
//
// Process never returns a Go error for a document-level failure; every
// outcome, including rejection, is reported as a Result so callers can
// surface it uniformly. Only the admin-facing summary and next steps
// distinguish the failure classes.
package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ledongthuc/pdf"
	"github.com/rs/zerolog"

	"github.com/policyatlas/litbase/internal/decision"
	"github.com/policyatlas/litbase/internal/embed"
	"github.com/policyatlas/litbase/internal/insight"
	"github.com/policyatlas/litbase/internal/kb"
	"github.com/policyatlas/litbase/internal/metadata"
	"github.com/policyatlas/litbase/internal/quality"
	"github.com/policyatlas/litbase/internal/similarity"
)

// Result statuses.
const (
	StatusIntegrated        = "integrated_successfully"
	StatusReview            = "requires_review"
	StatusIntegrationFailed = "integration_failed"
	StatusValidationFailed  = "validation_failed"
	StatusError             = "error"
)

// maxUploadBytes caps accepted uploads at 50MB.
const maxUploadBytes = 50 << 20

// ErrValidation marks upload-validation failures.
var ErrValidation = errors.New("upload validation failed")

var allowedExtensions = map[string]bool{
	".pdf":      true,
	".txt":      true,
	".md":       true,
	".markdown": true,
}

// Upload is a document handed to the pipeline.
type Upload struct {
	Filename string
	Content  []byte
}

// Result is the full outcome report for one processed document.
type Result struct {
	Status            string   `json:"status"`
	SourceFile        string   `json:"source_file"`
	EntryFilename     string   `json:"entry_filename,omitempty"`
	QualityScore      float64  `json:"quality_score"` // 0–100
	ConfidenceLevel   string   `json:"confidence_level,omitempty"`
	InsightsExtracted int      `json:"insights_extracted"`
	Topics            []string `json:"topics,omitempty"`
	NoveltyScore      float64  `json:"novelty_score"`
	ComparisonMethod  string   `json:"comparison_method,omitempty"`
	IntegrationAction string   `json:"integration_action,omitempty"`
	BackupID          string   `json:"backup_id,omitempty"`
	AdminSummary      string   `json:"admin_summary"`
	NextSteps         []string `json:"next_steps"`
}

// Config assembles a Processor.
type Config struct {
	// KB is the knowledge base to integrate into. Required.
	KB *kb.Manager
	// Embedder enables semantic insight selection and similarity. Optional;
	// without it both degrade to keyword and lexical modes.
	Embedder embed.Embedder
	// Quality tunes the assessment model; zero value uses defaults.
	Quality quality.Config
	// Thresholds tunes the decision engine; zero-valued fields use defaults.
	Thresholds decision.Thresholds
	// MaxInsights caps extracted insights per document (default 15).
	MaxInsights int
	// Logger receives one activity event per processed document.
	// Defaults to disabled.
	Logger *zerolog.Logger
}

// Processor runs the ingestion pipeline.
type Processor struct {
	kb        *kb.Manager
	validator *quality.Validator
	insights  *insight.Extractor
	analyzer  *similarity.Analyzer
	engine    *decision.Engine
	log       zerolog.Logger

	// mu serializes the similarity-compare/decide/integrate tail so each
	// document's novelty is computed against the corpus it will join.
	mu sync.Mutex
}

// New creates a Processor.
func New(cfg Config) (*Processor, error) {
	if cfg.KB == nil {
		return nil, fmt.Errorf("knowledge base manager is required")
	}

	insightOpts := []insight.Option{}
	analyzerOpts := []similarity.Option{}
	if cfg.Embedder != nil {
		insightOpts = append(insightOpts, insight.WithEmbedder(cfg.Embedder))
		analyzerOpts = append(analyzerOpts, similarity.WithEmbedder(cfg.Embedder))
	}
	if cfg.MaxInsights > 0 {
		insightOpts = append(insightOpts, insight.WithMaxInsights(cfg.MaxInsights))
	}

	log := zerolog.Nop()
	if cfg.Logger != nil {
		log = *cfg.Logger
	}

	return &Processor{
		kb:        cfg.KB,
		validator: quality.NewValidator(cfg.Quality),
		insights:  insight.NewExtractor(insightOpts...),
		analyzer:  similarity.NewAnalyzer(analyzerOpts...),
		engine:    decision.NewEngine(cfg.Thresholds),
		log:       log,
	}, nil
}

// ProcessFile reads a document from disk and processes it.
func (p *Processor) ProcessFile(ctx context.Context, path string) Result {
	content, err := os.ReadFile(path)
	if err != nil {
		return errorResult(filepath.Base(path), fmt.Sprintf("reading %s: %v", path, err))
	}
	return p.Process(ctx, Upload{Filename: filepath.Base(path), Content: content})
}

// Process runs the full pipeline for one upload.
func (p *Processor) Process(ctx context.Context, upload Upload) Result {
	if err := p.validate(upload); err != nil {
		result := Result{
			Status:       StatusValidationFailed,
			SourceFile:   upload.Filename,
			AdminSummary: fmt.Sprintf("Rejected %s: %v.", upload.Filename, err),
			NextSteps: []string{
				"Re-upload the document as .pdf, .txt, .md or .markdown.",
				"Ensure the file is non-empty and no larger than 50MB.",
			},
		}
		p.logResult(result)
		return result
	}

	text, err := extractText(upload)
	if err != nil {
		result := errorResult(upload.Filename, fmt.Sprintf("text extraction failed: %v", err))
		p.logResult(result)
		return result
	}

	meta := metadata.Extract(text, upload.Filename)
	insights := p.insights.Extract(ctx, text)
	topics := insight.Topics(insights)
	assessment := p.validator.Assess(meta, text, insights)

	// From comparison onward the corpus must not move under us.
	p.mu.Lock()
	result := p.integrate(ctx, upload, text, meta, insights, topics, assessment)
	p.mu.Unlock()

	p.logResult(result)
	return result
}

func (p *Processor) integrate(ctx context.Context, upload Upload, text string,
	meta metadata.Metadata, insights []string, topics []string, assessment quality.Assessment) Result {

	corpus, err := p.kb.SimilarityCorpus()
	if err != nil {
		return errorResult(upload.Filename, fmt.Sprintf("reading knowledge base: %v", err))
	}
	sim := p.analyzer.Compare(ctx, text, corpus)

	topAuthor := ""
	if len(sim.SimilarDocuments) > 0 {
		topAuthor = p.kb.AuthorOf(sim.SimilarDocuments[0].Filename)
	}
	dec := p.engine.Decide(assessment, sim, meta, topAuthor)

	outcome := p.kb.Integrate(ctx, dec, kb.ProcessedDocument{
		Filename:   upload.Filename,
		Text:       text,
		Meta:       meta,
		Insights:   insights,
		Topics:     topics,
		Assessment: assessment,
	})

	result := Result{
		SourceFile:        upload.Filename,
		EntryFilename:     outcome.Filename,
		QualityScore:      quality.NormalizeScore(assessment.TotalScore),
		ConfidenceLevel:   assessment.ConfidenceLevel,
		InsightsExtracted: len(insights),
		Topics:            topics,
		NoveltyScore:      sim.NoveltyScore,
		ComparisonMethod:  sim.ComparisonMethod,
		IntegrationAction: dec.Action,
		BackupID:          outcome.BackupID,
	}

	switch outcome.Status {
	case kb.StatusIntegrated:
		result.Status = StatusIntegrated
	case kb.StatusReview:
		result.Status = StatusReview
	default:
		result.Status = StatusIntegrationFailed
	}

	result.AdminSummary = adminSummary(result, dec, outcome)
	result.NextSteps = nextSteps(result, dec)
	return result
}

// validate enforces upload constraints: known extension, non-empty content,
// size cap.
func (p *Processor) validate(upload Upload) error {
	ext := strings.ToLower(filepath.Ext(upload.Filename))
	if !allowedExtensions[ext] {
		return fmt.Errorf("%w: unsupported file type %q", ErrValidation, ext)
	}
	if len(upload.Content) == 0 {
		return fmt.Errorf("%w: file is empty", ErrValidation)
	}
	if len(upload.Content) > maxUploadBytes {
		return fmt.Errorf("%w: file exceeds the 50MB limit (%d bytes)", ErrValidation, len(upload.Content))
	}
	return nil
}

// extractText returns plain text for the upload, extracting from PDF when
// needed.
func extractText(upload Upload) (string, error) {
	if strings.ToLower(filepath.Ext(upload.Filename)) != ".pdf" {
		return string(upload.Content), nil
	}

	reader, err := pdf.NewReader(bytes.NewReader(upload.Content), int64(len(upload.Content)))
	if err != nil {
		return "", fmt.Errorf("opening PDF: %w", err)
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extracting PDF text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", fmt.Errorf("reading PDF text: %w", err)
	}
	if strings.TrimSpace(buf.String()) == "" {
		return "", fmt.Errorf("PDF contains no extractable text")
	}
	return buf.String(), nil
}

func adminSummary(r Result, dec decision.Decision, outcome kb.IntegrationOutcome) string {
	switch r.Status {
	case StatusIntegrated:
		if dec.Action == decision.ActionMerge {
			return fmt.Sprintf("Merged %s into existing entry %s: %d new insights, quality %.1f/100 (%s confidence).",
				r.SourceFile, r.EntryFilename, r.InsightsExtracted, r.QualityScore, r.ConfidenceLevel)
		}
		return fmt.Sprintf("Integrated %s as new entry %s: quality %.1f/100 (%s confidence), %d insights, novelty %.2f.",
			r.SourceFile, r.EntryFilename, r.QualityScore, r.ConfidenceLevel, r.InsightsExtracted, r.NoveltyScore)
	case StatusReview:
		return fmt.Sprintf("%s requires manual review: quality %.1f/100, novelty %.2f. %s",
			r.SourceFile, r.QualityScore, r.NoveltyScore, lastReason(dec))
	default:
		return fmt.Sprintf("Integration of %s failed: %s", r.SourceFile, outcome.Message)
	}
}

func nextSteps(r Result, dec decision.Decision) []string {
	switch r.Status {
	case StatusIntegrated:
		steps := []string{fmt.Sprintf("Entry %s is live; no action required.", r.EntryFilename)}
		if dec.Action == decision.ActionMerge {
			steps = append(steps, "Review the appended insights section for accuracy.")
		}
		return steps
	case StatusReview:
		return []string{
			"Review the document and decide manually.",
			"If approved, re-submit after addressing: " + lastReason(dec),
		}
	default:
		return []string{"Inspect the error above and retry the upload."}
	}
}

func lastReason(dec decision.Decision) string {
	if len(dec.Reasoning) == 0 {
		return "no reasoning recorded"
	}
	return dec.Reasoning[len(dec.Reasoning)-1]
}

func errorResult(filename, summary string) Result {
	return Result{
		Status:       StatusError,
		SourceFile:   filename,
		AdminSummary: summary,
		NextSteps:    []string{"Inspect the error above and retry the upload."},
	}
}

func (p *Processor) logResult(r Result) {
	p.log.Info().
		Str("source", r.SourceFile).
		Str("status", r.Status).
		Str("action", r.IntegrationAction).
		Float64("quality", r.QualityScore).
		Float64("novelty", r.NoveltyScore).
		Int("insights", r.InsightsExtracted).
		Msg("document processed")
}

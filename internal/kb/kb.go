// Package kb manages the literature knowledge base: one formatted markdown
// file per entry in a repository directory, an append-only SQLite version
// history alongside it, and timestamped backup snapshots for rollback.
//
// All mutation goes through Integrate, which takes a backup first (unless a
// recent one exists), writes whole files via temp-file + rename, and appends
// one version-history row per decision. Listings never trust stored quality
// scores: they re-run the validator over current content.
package kb

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/policyatlas/litbase/internal/decision"
	"github.com/policyatlas/litbase/internal/metadata"
	"github.com/policyatlas/litbase/internal/quality"
	"github.com/policyatlas/litbase/internal/similarity"
)

// Integration statuses returned by Integrate.
const (
	StatusIntegrated = "integrated"
	StatusReview     = "requires_review"
	StatusError      = "error"
)

// ErrEntryNotFound is returned when a merge target or restore source is missing.
var ErrEntryNotFound = errors.New("entry not found")

// timeNow is swapped out in tests.
var timeNow = time.Now

// Config holds knowledge-base location and backup policy.
type Config struct {
	// RootDir contains entries/, backups/ and history.db.
	RootDir string
	// BackupRetention is how many backups to keep (default 5).
	BackupRetention int
	// BackupRecency is the window within which a fresh backup is reused
	// instead of created (default 1h).
	BackupRecency time.Duration
	// Logger receives integration/backup activity. Defaults to disabled.
	Logger *zerolog.Logger
}

// ProcessedDocument is a fully analyzed document ready for integration.
type ProcessedDocument struct {
	Filename   string
	Text       string
	Meta       metadata.Metadata
	Insights   []string
	Topics     []string
	Assessment quality.Assessment
}

// IntegrationOutcome reports what Integrate did.
type IntegrationOutcome struct {
	Status   string `json:"status"`
	Message  string `json:"message"`
	Filename string `json:"filename,omitempty"`
	BackupID string `json:"backup_id,omitempty"`
}

// Entry is a knowledge-base listing row. QualityScore and InsightsCount are
// recomputed live from current file content.
type Entry struct {
	ID            string  `json:"id"`
	Filename      string  `json:"filename"`
	Title         string  `json:"title"`
	Author        string  `json:"author,omitempty"`
	Year          int     `json:"year,omitempty"`
	DocType       string  `json:"doc_type,omitempty"`
	WordCount     int     `json:"word_count"`
	InsightsCount int     `json:"insights_count"`
	QualityScore  float64 `json:"quality_score"` // 0–100
	Confidence    string  `json:"confidence_level"`
	Content       string  `json:"-"`
}

// Status summarizes the knowledge base.
type Status struct {
	EntryCount    int     `json:"entry_count"`
	TotalInsights int     `json:"total_insights"`
	AverageScore  float64 `json:"average_quality_score"`
	BackupCount   int     `json:"backup_count"`
	LastBackup    string  `json:"last_backup,omitempty"`
}

// Manager owns the repository directory and serializes all mutation.
type Manager struct {
	entriesDir string
	backupsDir string
	retention  int
	recency    time.Duration
	log        zerolog.Logger

	validator *quality.Validator
	history   *historyStore

	// mu serializes Integrate, CreateBackup and Restore. Reads are safe
	// against the whole-file-rename write discipline without locking.
	mu sync.Mutex
}

// NewManager opens (creating if needed) a knowledge base rooted at
// cfg.RootDir.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.RootDir == "" {
		return nil, fmt.Errorf("root directory is required")
	}
	if cfg.BackupRetention <= 0 {
		cfg.BackupRetention = 5
	}
	if cfg.BackupRecency <= 0 {
		cfg.BackupRecency = time.Hour
	}

	entriesDir := filepath.Join(cfg.RootDir, "entries")
	backupsDir := filepath.Join(cfg.RootDir, "backups")
	for _, dir := range []string{entriesDir, backupsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating %s: %w", dir, err)
		}
	}

	history, err := openHistoryStore(filepath.Join(cfg.RootDir, "history.db"))
	if err != nil {
		return nil, fmt.Errorf("opening version history: %w", err)
	}

	log := zerolog.Nop()
	if cfg.Logger != nil {
		log = *cfg.Logger
	}

	return &Manager{
		entriesDir: entriesDir,
		backupsDir: backupsDir,
		retention:  cfg.BackupRetention,
		recency:    cfg.BackupRecency,
		log:        log,
		validator:  quality.NewValidator(quality.DefaultConfig()),
		history:    history,
	}, nil
}

// Close releases the version-history store.
func (m *Manager) Close() error {
	return m.history.Close()
}

// Integrate executes an integration decision. Mutating actions are
// preceded by a backup; a failed write leaves no partial entry behind.
func (m *Manager) Integrate(ctx context.Context, dec decision.Decision, doc ProcessedDocument) IntegrationOutcome {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch dec.Action {
	case decision.ActionApproveNew:
		return m.integrateNew(ctx, dec, doc)
	case decision.ActionMerge:
		return m.integrateMerge(ctx, dec, doc)
	case decision.ActionReview:
		return m.recordReview(ctx, dec, doc)
	default:
		return IntegrationOutcome{
			Status:  StatusError,
			Message: fmt.Sprintf("unknown integration action %q", dec.Action),
		}
	}
}

func (m *Manager) integrateNew(ctx context.Context, dec decision.Decision, doc ProcessedDocument) IntegrationOutcome {
	backupID, err := m.createBackupLocked(false)
	if err != nil {
		return IntegrationOutcome{Status: StatusError, Message: fmt.Sprintf("backup failed: %v", err)}
	}

	filename := entryFilename(doc)
	documentID := strings.TrimSuffix(filename, ".md")
	now := timeNow()

	content, err := formatEntry(doc, documentID, now)
	if err != nil {
		return IntegrationOutcome{Status: StatusError, Message: err.Error()}
	}
	if err := m.writeEntryFile(filename, content); err != nil {
		return IntegrationOutcome{Status: StatusError, Message: fmt.Sprintf("writing entry: %v", err)}
	}

	if err := m.history.Append(ctx, HistoryEntry{
		Timestamp:     now,
		DocumentID:    documentID,
		Action:        dec.Action,
		Filename:      filename,
		BackupID:      backupID,
		QualityScore:  quality.NormalizeScore(doc.Assessment.TotalScore),
		InsightsCount: len(doc.Insights),
		Meta:          doc.Meta,
	}); err != nil {
		return IntegrationOutcome{Status: StatusError, Message: fmt.Sprintf("recording history: %v", err)}
	}

	m.log.Info().Str("action", dec.Action).Str("filename", filename).
		Float64("quality", quality.NormalizeScore(doc.Assessment.TotalScore)).
		Msg("new entry integrated")

	return IntegrationOutcome{
		Status:   StatusIntegrated,
		Message:  fmt.Sprintf("Integrated as new entry %s.", filename),
		Filename: filename,
		BackupID: backupID,
	}
}

func (m *Manager) integrateMerge(ctx context.Context, dec decision.Decision, doc ProcessedDocument) IntegrationOutcome {
	target := dec.MergeTarget
	if target == "" {
		return IntegrationOutcome{Status: StatusError, Message: "merge decision carries no target"}
	}

	existing, err := os.ReadFile(filepath.Join(m.entriesDir, target))
	if err != nil {
		if os.IsNotExist(err) {
			return IntegrationOutcome{Status: StatusError, Message: fmt.Sprintf("merge target %s: %v", target, ErrEntryNotFound)}
		}
		return IntegrationOutcome{Status: StatusError, Message: fmt.Sprintf("reading merge target: %v", err)}
	}

	backupID, err := m.createBackupLocked(false)
	if err != nil {
		return IntegrationOutcome{Status: StatusError, Message: fmt.Sprintf("backup failed: %v", err)}
	}

	now := timeNow()
	merged := appendMergeSection(string(existing), doc, now)
	if err := m.writeEntryFile(target, merged); err != nil {
		return IntegrationOutcome{Status: StatusError, Message: fmt.Sprintf("rewriting entry: %v", err)}
	}

	if err := m.history.Append(ctx, HistoryEntry{
		Timestamp:     now,
		DocumentID:    strings.TrimSuffix(target, ".md"),
		Action:        dec.Action,
		Filename:      target,
		BackupID:      backupID,
		QualityScore:  quality.NormalizeScore(doc.Assessment.TotalScore),
		InsightsCount: len(doc.Insights),
		Meta:          doc.Meta,
	}); err != nil {
		return IntegrationOutcome{Status: StatusError, Message: fmt.Sprintf("recording history: %v", err)}
	}

	m.log.Info().Str("action", dec.Action).Str("filename", target).
		Int("insights", len(doc.Insights)).Msg("entry merged")

	return IntegrationOutcome{
		Status:   StatusIntegrated,
		Message:  fmt.Sprintf("Merged %d insights into %s.", len(doc.Insights), target),
		Filename: target,
		BackupID: backupID,
	}
}

func (m *Manager) recordReview(ctx context.Context, dec decision.Decision, doc ProcessedDocument) IntegrationOutcome {
	now := timeNow()
	reason := "manual review required"
	if len(dec.Reasoning) > 0 {
		reason = dec.Reasoning[len(dec.Reasoning)-1]
	}

	// No file mutation and no backup; the decision itself is still logged.
	if err := m.history.Append(ctx, HistoryEntry{
		Timestamp:     now,
		DocumentID:    strings.TrimSuffix(doc.Filename, filepath.Ext(doc.Filename)),
		Action:        dec.Action,
		Filename:      doc.Filename,
		QualityScore:  quality.NormalizeScore(doc.Assessment.TotalScore),
		InsightsCount: len(doc.Insights),
		Meta:          doc.Meta,
	}); err != nil {
		return IntegrationOutcome{Status: StatusError, Message: fmt.Sprintf("recording history: %v", err)}
	}

	m.log.Info().Str("action", dec.Action).Str("source", doc.Filename).Msg("document flagged for review")

	return IntegrationOutcome{
		Status:  StatusReview,
		Message: fmt.Sprintf("Flagged for review (quality %.1f/100): %s",
			quality.NormalizeScore(doc.Assessment.TotalScore), reason),
	}
}

// writeEntryFile writes content atomically: temp file in the same
// directory, then rename. Readers never observe a half-written entry.
func (m *Manager) writeEntryFile(filename, content string) error {
	tmp, err := os.CreateTemp(m.entriesDir, ".tmp-entry-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, filepath.Join(m.entriesDir, filename)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming entry into place: %w", err)
	}
	return nil
}

// Entries lists all knowledge-base entries, recomputing quality score and
// insight count from current content. Stored score snapshots are ignored.
func (m *Manager) Entries() ([]Entry, error) {
	files, err := m.entryFiles()
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(files))
	for _, name := range files {
		content, err := os.ReadFile(filepath.Join(m.entriesDir, name))
		if err != nil {
			return nil, fmt.Errorf("reading entry %s: %w", name, err)
		}

		entry := Entry{
			ID:       strings.TrimSuffix(name, ".md"),
			Filename: name,
			Content:  string(content),
		}

		parsed, err := parseEntryContent(string(content))
		if err != nil {
			// Unparseable entries still appear in listings with zero scores.
			entry.Title = entry.ID
			entries = append(entries, entry)
			continue
		}

		meta := metadata.Metadata{
			Title:   parsed.Frontmatter.Title,
			Author:  parsed.Frontmatter.Author,
			Year:    parsed.Frontmatter.Year,
			Journal: parsed.Frontmatter.Journal,
			DOI:     parsed.Frontmatter.DOI,
			DocType: parsed.Frontmatter.DocType,
		}
		assessment := m.validator.Assess(meta, parsed.Body, parsed.Insights)

		entry.Title = parsed.Frontmatter.Title
		entry.Author = parsed.Frontmatter.Author
		entry.Year = parsed.Frontmatter.Year
		entry.DocType = parsed.Frontmatter.DocType
		entry.WordCount = len(strings.Fields(parsed.Body))
		entry.InsightsCount = len(parsed.Insights)
		entry.QualityScore = quality.NormalizeScore(assessment.TotalScore)
		entry.Confidence = assessment.ConfidenceLevel
		entries = append(entries, entry)
	}

	return entries, nil
}

// SimilarityCorpus returns the existing entries in the shape the
// similarity analyzer compares against.
func (m *Manager) SimilarityCorpus() ([]similarity.Entry, error) {
	files, err := m.entryFiles()
	if err != nil {
		return nil, err
	}
	corpus := make([]similarity.Entry, 0, len(files))
	for _, name := range files {
		content, err := os.ReadFile(filepath.Join(m.entriesDir, name))
		if err != nil {
			return nil, fmt.Errorf("reading entry %s: %w", name, err)
		}
		body := string(content)
		if parsed, err := parseEntryContent(body); err == nil {
			body = parsed.Body
		}
		corpus = append(corpus, similarity.Entry{Filename: name, Content: body})
	}
	return corpus, nil
}

// AuthorOf returns the stored author of an entry, or "" when unknown.
func (m *Manager) AuthorOf(filename string) string {
	content, err := os.ReadFile(filepath.Join(m.entriesDir, filename))
	if err != nil {
		return ""
	}
	parsed, err := parseEntryContent(string(content))
	if err != nil {
		return ""
	}
	return parsed.Frontmatter.Author
}

// GetStatus summarizes the knowledge base from live content.
func (m *Manager) GetStatus() (Status, error) {
	entries, err := m.Entries()
	if err != nil {
		return Status{}, err
	}

	status := Status{EntryCount: len(entries)}
	total := 0.0
	for _, e := range entries {
		status.TotalInsights += e.InsightsCount
		total += e.QualityScore
	}
	if len(entries) > 0 {
		// The per-entry scores are already on the 0-100 scale; normalizing
		// again would misread a very low average as a legacy 0-2 score.
		status.AverageScore = math.Round(total/float64(len(entries))*10) / 10
	}

	backups, err := m.listBackups()
	if err != nil {
		return Status{}, err
	}
	status.BackupCount = len(backups)
	if len(backups) > 0 {
		status.LastBackup = backups[len(backups)-1].ID
	}
	return status, nil
}

// History lists version-history rows, newest first.
func (m *Manager) History(ctx context.Context, filter HistoryFilter) ([]HistoryEntry, error) {
	return m.history.List(ctx, filter)
}

func (m *Manager) entryFiles() ([]string, error) {
	dirEntries, err := os.ReadDir(m.entriesDir)
	if err != nil {
		return nil, fmt.Errorf("reading entries directory: %w", err)
	}
	var files []string
	for _, de := range dirEntries {
		if de.IsDir() || !strings.HasSuffix(de.Name(), ".md") {
			continue
		}
		files = append(files, de.Name())
	}
	sort.Strings(files)
	return files, nil
}

package kb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/policyatlas/litbase/internal/metadata"
	"github.com/policyatlas/litbase/internal/quality"
)

// HistoryEntry is one immutable row of the version history. Quality scores
// are exposed on the 0–100 scale; legacy 0–1-scale rows found in old
// databases are rescaled transparently on load.
type HistoryEntry struct {
	ID            int64             `json:"id"`
	Timestamp     time.Time         `json:"timestamp"`
	DocumentID    string            `json:"document_id"`
	Action        string            `json:"action"`
	Filename      string            `json:"filename"`
	BackupID      string            `json:"backup_id,omitempty"`
	QualityScore  float64           `json:"quality_score"` // 0–100
	InsightsCount int               `json:"insights_count"`
	Meta          metadata.Metadata `json:"metadata"`
}

// HistoryFilter narrows History listings.
type HistoryFilter struct {
	DocumentID string
	Action     string
	Limit      int
}

// historyStore is the append-only SQLite log. Rows are only ever inserted;
// there is no update or delete path.
type historyStore struct {
	db *sql.DB
}

func openHistoryStore(path string) (*historyStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging history database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", p, err)
		}
	}

	ddl := `CREATE TABLE IF NOT EXISTS version_history (
		id             INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp      TEXT NOT NULL,
		document_id    TEXT NOT NULL,
		action         TEXT NOT NULL,
		filename       TEXT NOT NULL,
		backup_id      TEXT NOT NULL DEFAULT '',
		quality_score  REAL NOT NULL DEFAULT 0,
		insights_count INTEGER NOT NULL DEFAULT 0,
		metadata       TEXT NOT NULL DEFAULT '{}'
	)`
	if _, err := db.Exec(ddl); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating version_history table: %w", err)
	}
	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_history_document ON version_history(document_id)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating history index: %w", err)
	}

	return &historyStore{db: db}, nil
}

func (h *historyStore) Close() error {
	return h.db.Close()
}

// Append inserts one history row.
func (h *historyStore) Append(ctx context.Context, e HistoryEntry) error {
	metaJSON, err := json.Marshal(e.Meta)
	if err != nil {
		return fmt.Errorf("marshaling history metadata: %w", err)
	}

	_, err = h.db.ExecContext(ctx, `
		INSERT INTO version_history
			(timestamp, document_id, action, filename, backup_id, quality_score, insights_count, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Timestamp.UTC().Format(time.RFC3339), e.DocumentID, e.Action, e.Filename,
		e.BackupID, e.QualityScore, e.InsightsCount, string(metaJSON),
	)
	if err != nil {
		return fmt.Errorf("appending history row: %w", err)
	}
	return nil
}

// List returns history rows, newest first.
func (h *historyStore) List(ctx context.Context, filter HistoryFilter) ([]HistoryEntry, error) {
	query := `
		SELECT id, timestamp, document_id, action, filename, backup_id, quality_score, insights_count, metadata
		FROM version_history
		WHERE 1=1`
	args := []any{}

	if filter.DocumentID != "" {
		query += ` AND document_id = ?`
		args = append(args, filter.DocumentID)
	}
	if filter.Action != "" {
		query += ` AND action = ?`
		args = append(args, filter.Action)
	}
	query += ` ORDER BY id DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying version history: %w", err)
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		var ts, metaJSON string
		if err := rows.Scan(&e.ID, &ts, &e.DocumentID, &e.Action, &e.Filename,
			&e.BackupID, &e.QualityScore, &e.InsightsCount, &metaJSON); err != nil {
			return nil, fmt.Errorf("scanning history row: %w", err)
		}
		if parsed, err := time.Parse(time.RFC3339, ts); err == nil {
			e.Timestamp = parsed
		}
		if err := json.Unmarshal([]byte(metaJSON), &e.Meta); err != nil {
			e.Meta = metadata.Metadata{}
		}
		// Canonical scale on every read boundary.
		e.QualityScore = quality.NormalizeScore(e.QualityScore)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating history rows: %w", err)
	}
	return entries, nil
}

package kb

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// backupPrefix and backupTimeLayout define backup directory names:
// backup_20060102T150405_ab12cd34. Recency is measured from the encoded
// timestamp, not directory mtime, so restored trees behave correctly.
const (
	backupPrefix     = "backup_"
	backupTimeLayout = "20060102T150405"
)

// Backup identifies one snapshot directory.
type Backup struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Entries   int       `json:"entries"`
}

// CreateBackup snapshots all current entries. Without force, a backup newer
// than the recency window is reused and its id returned.
func (m *Manager) CreateBackup(force bool) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createBackupLocked(force)
}

func (m *Manager) createBackupLocked(force bool) (string, error) {
	backups, err := m.listBackups()
	if err != nil {
		return "", err
	}

	if !force && len(backups) > 0 {
		newest := backups[len(backups)-1]
		if timeNow().Sub(newest.Timestamp) < m.recency {
			return newest.ID, nil
		}
	}

	id := backupPrefix + timeNow().UTC().Format(backupTimeLayout) + "_" + uuid.NewString()[:8]
	dir := filepath.Join(m.backupsDir, id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating backup directory: %w", err)
	}

	files, err := m.entryFiles()
	if err != nil {
		return "", err
	}
	for _, name := range files {
		content, err := os.ReadFile(filepath.Join(m.entriesDir, name))
		if err != nil {
			return "", fmt.Errorf("reading entry %s for backup: %w", name, err)
		}
		if err := os.WriteFile(filepath.Join(dir, name), content, 0o644); err != nil {
			return "", fmt.Errorf("writing backup copy of %s: %w", name, err)
		}
	}

	if err := m.pruneBackups(); err != nil {
		return "", err
	}

	m.log.Info().Str("backup_id", id).Int("entries", len(files)).Msg("backup created")
	return id, nil
}

// pruneBackups removes the oldest backups beyond the retention count.
func (m *Manager) pruneBackups() error {
	backups, err := m.listBackups()
	if err != nil {
		return err
	}
	for len(backups) > m.retention {
		oldest := backups[0]
		if err := os.RemoveAll(filepath.Join(m.backupsDir, oldest.ID)); err != nil {
			return fmt.Errorf("pruning backup %s: %w", oldest.ID, err)
		}
		backups = backups[1:]
	}
	return nil
}

// Backups lists snapshots, oldest first.
func (m *Manager) Backups() ([]Backup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listBackups()
}

func (m *Manager) listBackups() ([]Backup, error) {
	dirEntries, err := os.ReadDir(m.backupsDir)
	if err != nil {
		return nil, fmt.Errorf("reading backups directory: %w", err)
	}

	var backups []Backup
	for _, de := range dirEntries {
		if !de.IsDir() || !strings.HasPrefix(de.Name(), backupPrefix) {
			continue
		}
		ts, ok := parseBackupTimestamp(de.Name())
		if !ok {
			continue
		}
		count := 0
		if files, err := os.ReadDir(filepath.Join(m.backupsDir, de.Name())); err == nil {
			count = len(files)
		}
		backups = append(backups, Backup{ID: de.Name(), Timestamp: ts, Entries: count})
	}

	sort.Slice(backups, func(i, j int) bool {
		if !backups[i].Timestamp.Equal(backups[j].Timestamp) {
			return backups[i].Timestamp.Before(backups[j].Timestamp)
		}
		return backups[i].ID < backups[j].ID
	})
	return backups, nil
}

func parseBackupTimestamp(name string) (time.Time, bool) {
	rest := strings.TrimPrefix(name, backupPrefix)
	if len(rest) < len(backupTimeLayout) {
		return time.Time{}, false
	}
	ts, err := time.Parse(backupTimeLayout, rest[:len(backupTimeLayout)])
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

// Restore replaces all current entries with the named backup's snapshot.
// A forced safety backup is taken first so the rollback itself can be
// rolled back.
func (m *Manager) Restore(backupID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	source := filepath.Join(m.backupsDir, backupID)
	info, err := os.Stat(source)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("backup %s: %w", backupID, ErrEntryNotFound)
	}

	if _, err := m.createBackupLocked(true); err != nil {
		return fmt.Errorf("safety backup before restore: %w", err)
	}

	current, err := m.entryFiles()
	if err != nil {
		return err
	}
	for _, name := range current {
		if err := os.Remove(filepath.Join(m.entriesDir, name)); err != nil {
			return fmt.Errorf("clearing entry %s: %w", name, err)
		}
	}

	snapshot, err := os.ReadDir(source)
	if err != nil {
		return fmt.Errorf("reading backup %s: %w", backupID, err)
	}
	for _, de := range snapshot {
		if de.IsDir() {
			continue
		}
		content, err := os.ReadFile(filepath.Join(source, de.Name()))
		if err != nil {
			return fmt.Errorf("reading backup file %s: %w", de.Name(), err)
		}
		if err := os.WriteFile(filepath.Join(m.entriesDir, de.Name()), content, 0o644); err != nil {
			return fmt.Errorf("restoring %s: %w", de.Name(), err)
		}
	}

	m.log.Info().Str("backup_id", backupID).Int("entries", len(snapshot)).Msg("knowledge base restored from backup")
	return nil
}

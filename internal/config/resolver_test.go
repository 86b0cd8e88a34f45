package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestResolveConfig_Precedence_ConfigEnvCLI(t *testing.T) {
	tmp := t.TempDir()
	cfgPath := filepath.Join(tmp, "config.yaml")
	yaml := `repository: ~/litbase-from-config
embed:
  provider: ollama/nomic-embed-text
thresholds:
  new_quality: "0.65"
backup:
  retention: "7"
`
	if err := os.WriteFile(cfgPath, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("LITBASE_REPO", "~/litbase-from-env")
	t.Setenv("LITBASE_NEW_QUALITY", "0.70")

	resolved, err := ResolveConfig(ResolveOptions{
		ConfigPath: cfgPath,
		CLIRepo:    "~/litbase-from-cli",
	})
	if err != nil {
		t.Fatalf("ResolveConfig: %v", err)
	}

	if resolved.RepoPath.Source != SourceCLI {
		t.Fatalf("expected repo path source cli, got %s", resolved.RepoPath.Source)
	}
	if resolved.NewQuality.Source != SourceEnv {
		t.Fatalf("expected quality threshold from env, got %s", resolved.NewQuality.Source)
	}
	if got := resolved.NewQuality.FloatOr(0); got != 0.70 {
		t.Fatalf("expected env threshold 0.70, got %v", got)
	}
	if resolved.EmbedProvider.Source != SourceConfig {
		t.Fatalf("expected embed provider from config, got %s", resolved.EmbedProvider.Source)
	}
	if got := resolved.BackupRetention.IntOr(5); got != 7 {
		t.Fatalf("expected retention 7 from config, got %d", got)
	}
}

func TestResolveConfig_MissingFileUsesDefaults(t *testing.T) {
	resolved, err := ResolveConfig(ResolveOptions{
		ConfigPath: filepath.Join(t.TempDir(), "absent.yaml"),
	})
	if err != nil {
		t.Fatalf("ResolveConfig: %v", err)
	}
	if resolved.RepoPath.Source != SourceDefault {
		t.Fatalf("expected default repo path, got %s", resolved.RepoPath.Source)
	}
	if resolved.RepoPath.Value == "" {
		t.Fatal("expected non-empty default repo path")
	}
}

func TestResolveConfig_ExpandsUserPath(t *testing.T) {
	resolved, err := ResolveConfig(ResolveOptions{
		ConfigPath: filepath.Join(t.TempDir(), "absent.yaml"),
		CLIRepo:    "~/kb",
	})
	if err != nil {
		t.Fatalf("ResolveConfig: %v", err)
	}
	home, _ := os.UserHomeDir()
	if want := filepath.Join(home, "kb"); resolved.RepoPath.Value != want {
		t.Fatalf("expected expanded path %q, got %q", want, resolved.RepoPath.Value)
	}
}

func TestResolvedValueParsers(t *testing.T) {
	if got := (ResolvedValue{Value: "12"}).IntOr(5); got != 12 {
		t.Fatalf("IntOr: got %d", got)
	}
	if got := (ResolvedValue{Value: "garbage"}).IntOr(5); got != 5 {
		t.Fatalf("IntOr fallback: got %d", got)
	}
	if got := (ResolvedValue{Value: "0.75"}).FloatOr(0); got != 0.75 {
		t.Fatalf("FloatOr: got %v", got)
	}
	if got := (ResolvedValue{}).FloatOr(0.6); got != 0.6 {
		t.Fatalf("FloatOr fallback: got %v", got)
	}
	if got := (ResolvedValue{Value: "90m"}).DurationOr(time.Hour); got != 90*time.Minute {
		t.Fatalf("DurationOr: got %v", got)
	}
	if got := (ResolvedValue{Value: "soon"}).DurationOr(time.Hour); got != time.Hour {
		t.Fatalf("DurationOr fallback: got %v", got)
	}
}

// Package config resolves litbase settings from, in increasing precedence,
// the YAML config file, LITBASE_* environment variables and CLI flags.
// Every resolved value carries its provenance so `litbase status` can show
// where a setting came from.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type ValueSource string

const (
	SourceUnknown ValueSource = "unknown"
	SourceConfig  ValueSource = "config"
	SourceEnv     ValueSource = "env"
	SourceCLI     ValueSource = "cli"
	SourceDefault ValueSource = "default"
)

type ResolvedValue struct {
	Value  string      `json:"value"`
	Source ValueSource `json:"source"`
	From   string      `json:"from,omitempty"`
}

// IntOr parses the value as an integer, falling back when unset or invalid.
func (v ResolvedValue) IntOr(fallback int) int {
	if n, err := strconv.Atoi(strings.TrimSpace(v.Value)); err == nil {
		return n
	}
	return fallback
}

// FloatOr parses the value as a float, falling back when unset or invalid.
func (v ResolvedValue) FloatOr(fallback float64) float64 {
	if f, err := strconv.ParseFloat(strings.TrimSpace(v.Value), 64); err == nil {
		return f
	}
	return fallback
}

// DurationOr parses the value as a Go duration, falling back when unset or
// invalid.
func (v ResolvedValue) DurationOr(fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(strings.TrimSpace(v.Value)); err == nil {
		return d
	}
	return fallback
}

// ResolveOptions carries the CLI-level overrides.
type ResolveOptions struct {
	ConfigPath string
	CLIRepo    string
	CLIEmbed   string
}

// ResolvedConfig is the full resolved settings set.
type ResolvedConfig struct {
	ConfigPath string `json:"config_path"`

	RepoPath ResolvedValue `json:"repo_path"`

	EmbedProvider ResolvedValue `json:"embed_provider"`
	EmbedEndpoint ResolvedValue `json:"embed_endpoint"`
	EmbedAPIKey   ResolvedValue `json:"embed_api_key"`

	NewQuality               ResolvedValue `json:"new_quality_threshold"`
	NewNovelty               ResolvedValue `json:"new_novelty_threshold"`
	MergeSimilarityEmbedding ResolvedValue `json:"merge_similarity_embedding"`
	MergeSimilarityLexical   ResolvedValue `json:"merge_similarity_lexical"`
	MergeQuality             ResolvedValue `json:"merge_quality_threshold"`

	BackupRetention ResolvedValue `json:"backup_retention"`
	BackupRecency   ResolvedValue `json:"backup_recency"`
	MaxInsights     ResolvedValue `json:"max_insights"`
}

type fileConfig struct {
	Repository string `yaml:"repository"`
	Embed      struct {
		Provider string `yaml:"provider"`
		Endpoint string `yaml:"endpoint"`
		APIKey   string `yaml:"api_key"`
	} `yaml:"embed"`
	Thresholds struct {
		NewQuality               string `yaml:"new_quality"`
		NewNovelty               string `yaml:"new_novelty"`
		MergeSimilarityEmbedding string `yaml:"merge_similarity_embedding"`
		MergeSimilarityLexical   string `yaml:"merge_similarity_lexical"`
		MergeQuality             string `yaml:"merge_quality"`
	} `yaml:"thresholds"`
	Backup struct {
		Retention string `yaml:"retention"`
		Recency   string `yaml:"recency"`
	} `yaml:"backup"`
	Insights struct {
		Max string `yaml:"max"`
	} `yaml:"insights"`
}

func DefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".litbase", "config.yaml")
}

func DefaultRepoPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".litbase", "repository")
}

// ResolveConfig applies file, then environment, then CLI values.
func ResolveConfig(opts ResolveOptions) (ResolvedConfig, error) {
	path := strings.TrimSpace(opts.ConfigPath)
	if path == "" {
		path = DefaultConfigPath()
	}

	out := ResolvedConfig{
		ConfigPath: path,
		RepoPath:   ResolvedValue{Value: DefaultRepoPath(), Source: SourceDefault, From: "built-in default"},
	}

	cfg, err := loadConfig(path)
	if err != nil {
		return out, err
	}

	if cfg != nil {
		apply(&out.RepoPath, cfg.Repository, SourceConfig, path)
		apply(&out.EmbedProvider, cfg.Embed.Provider, SourceConfig, path)
		apply(&out.EmbedEndpoint, cfg.Embed.Endpoint, SourceConfig, path)
		apply(&out.EmbedAPIKey, cfg.Embed.APIKey, SourceConfig, path)

		apply(&out.NewQuality, cfg.Thresholds.NewQuality, SourceConfig, path)
		apply(&out.NewNovelty, cfg.Thresholds.NewNovelty, SourceConfig, path)
		apply(&out.MergeSimilarityEmbedding, cfg.Thresholds.MergeSimilarityEmbedding, SourceConfig, path)
		apply(&out.MergeSimilarityLexical, cfg.Thresholds.MergeSimilarityLexical, SourceConfig, path)
		apply(&out.MergeQuality, cfg.Thresholds.MergeQuality, SourceConfig, path)

		apply(&out.BackupRetention, cfg.Backup.Retention, SourceConfig, path)
		apply(&out.BackupRecency, cfg.Backup.Recency, SourceConfig, path)
		apply(&out.MaxInsights, cfg.Insights.Max, SourceConfig, path)
	}

	applyEnv(&out.RepoPath, "LITBASE_REPO")
	applyEnv(&out.EmbedProvider, "LITBASE_EMBED")
	applyEnv(&out.EmbedEndpoint, "LITBASE_EMBED_ENDPOINT")
	applyEnv(&out.EmbedAPIKey, "LITBASE_EMBED_API_KEY")
	applyEnv(&out.NewQuality, "LITBASE_NEW_QUALITY")
	applyEnv(&out.NewNovelty, "LITBASE_NEW_NOVELTY")
	applyEnv(&out.BackupRetention, "LITBASE_BACKUP_RETENTION")
	applyEnv(&out.BackupRecency, "LITBASE_BACKUP_RECENCY")
	applyEnv(&out.MaxInsights, "LITBASE_MAX_INSIGHTS")

	apply(&out.RepoPath, opts.CLIRepo, SourceCLI, "--repo")
	apply(&out.EmbedProvider, opts.CLIEmbed, SourceCLI, "--embed")

	if out.RepoPath.Value != "" {
		out.RepoPath.Value = expandUserPath(out.RepoPath.Value)
	}

	return out, nil
}

func apply(dst *ResolvedValue, raw string, source ValueSource, from string) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return
	}
	*dst = ResolvedValue{Value: v, Source: source, From: from}
}

func applyEnv(dst *ResolvedValue, envKey string) {
	if v := strings.TrimSpace(os.Getenv(envKey)); v != "" {
		*dst = ResolvedValue{Value: v, Source: SourceEnv, From: envKey}
	}
}

func loadConfig(path string) (*fileConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var cfg fileConfig
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &cfg, nil
}

func expandUserPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}

// Package cmd implements the litbase command tree.
package cmd

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/policyatlas/litbase/internal/config"
	"github.com/policyatlas/litbase/internal/decision"
	"github.com/policyatlas/litbase/internal/embed"
	"github.com/policyatlas/litbase/internal/kb"
	"github.com/policyatlas/litbase/internal/pipeline"
)

var (
	configPath string
	repoFlag   string
	embedFlag  string
	jsonOut    bool
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "litbase",
	Short: "Literature ingestion pipeline for a policy knowledge base",
	Long: `litbase ingests academic and policy literature on AI in education,
scores it across four quality dimensions, checks it for novelty against the
existing knowledge base, and integrates, merges or flags each document.

The knowledge base is a directory of markdown entry files with an
append-only SQLite version history and rolling backup snapshots.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path (default: ~/.litbase/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&repoFlag, "repo", "", "knowledge base directory (default: ~/.litbase/repository)")
	rootCmd.PersistentFlags().StringVar(&embedFlag, "embed", "", "embedding provider/model (e.g. ollama/nomic-embed-text); empty = lexical mode")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "JSON output")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")
}

func buildLogger() zerolog.Logger {
	level := zerolog.WarnLevel
	if verbose {
		level = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()
}

func resolveSettings() (config.ResolvedConfig, error) {
	return config.ResolveConfig(config.ResolveOptions{
		ConfigPath: configPath,
		CLIRepo:    repoFlag,
		CLIEmbed:   embedFlag,
	})
}

// openManager resolves settings and opens the knowledge base.
// The caller must Close the manager.
func openManager() (*kb.Manager, config.ResolvedConfig, error) {
	resolved, err := resolveSettings()
	if err != nil {
		return nil, resolved, err
	}

	log := buildLogger()
	manager, err := kb.NewManager(kb.Config{
		RootDir:         resolved.RepoPath.Value,
		BackupRetention: resolved.BackupRetention.IntOr(0),
		BackupRecency:   resolved.BackupRecency.DurationOr(time.Duration(0)),
		Logger:          &log,
	})
	return manager, resolved, err
}

// newProcessor builds the ingestion pipeline from resolved settings.
func newProcessor(manager *kb.Manager, resolved config.ResolvedConfig) (*pipeline.Processor, error) {
	var embedder embed.Embedder
	if resolved.EmbedProvider.Value != "" {
		cfg, err := embed.ParseFlag(resolved.EmbedProvider.Value)
		if err != nil {
			return nil, err
		}
		if resolved.EmbedEndpoint.Value != "" {
			cfg.Endpoint = resolved.EmbedEndpoint.Value
		}
		if resolved.EmbedAPIKey.Value != "" {
			cfg.APIKey = resolved.EmbedAPIKey.Value
		}
		client, err := embed.NewClient(cfg)
		if err != nil {
			return nil, err
		}
		embedder = client
	}

	log := buildLogger()
	return pipeline.New(pipeline.Config{
		KB:       manager,
		Embedder: embedder,
		Thresholds: decision.Thresholds{
			NewQuality:               resolved.NewQuality.FloatOr(0),
			NewNovelty:               resolved.NewNovelty.FloatOr(0),
			MergeSimilarityEmbedding: resolved.MergeSimilarityEmbedding.FloatOr(0),
			MergeSimilarityLexical:   resolved.MergeSimilarityLexical.FloatOr(0),
			MergeQuality:             resolved.MergeQuality.FloatOr(0),
		},
		MaxInsights: resolved.MaxInsights.IntOr(0),
		Logger:      &log,
	})
}

package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show knowledge-base status and resolved configuration",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	manager, resolved, err := openManager()
	if err != nil {
		return err
	}
	defer manager.Close()

	status, err := manager.GetStatus()
	if err != nil {
		return err
	}

	if jsonOut {
		payload := map[string]interface{}{
			"status": status,
			"config": resolved,
		}
		data, err := json.MarshalIndent(payload, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	fmt.Printf("Repository:     %s (%s)\n", resolved.RepoPath.Value, resolved.RepoPath.Source)
	fmt.Printf("Entries:        %d\n", status.EntryCount)
	fmt.Printf("Total insights: %d\n", status.TotalInsights)
	fmt.Printf("Average score:  %.1f/100\n", status.AverageScore)
	fmt.Printf("Backups:        %d", status.BackupCount)
	if status.LastBackup != "" {
		fmt.Printf(" (latest %s)", status.LastBackup)
	}
	fmt.Println()
	if resolved.EmbedProvider.Value != "" {
		fmt.Printf("Embeddings:     %s (%s)\n", resolved.EmbedProvider.Value, resolved.EmbedProvider.Source)
	} else {
		fmt.Println("Embeddings:     disabled (lexical similarity)")
	}
	return nil
}

package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var listLimit int

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List knowledge-base entries with live quality scores",
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().IntVar(&listLimit, "limit", 0, "maximum entries to show (0 = all)")
}

func runList(cmd *cobra.Command, args []string) error {
	manager, _, err := openManager()
	if err != nil {
		return err
	}
	defer manager.Close()

	entries, err := manager.Entries()
	if err != nil {
		return err
	}
	if listLimit > 0 && listLimit < len(entries) {
		entries = entries[:listLimit]
	}

	if jsonOut {
		data, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	if len(entries) == 0 {
		fmt.Println("No entries yet. Run `litbase ingest <file>` to add one.")
		return nil
	}
	for _, e := range entries {
		author := e.Author
		if author == "" {
			author = "unknown"
		}
		fmt.Printf("%-50s  %5.1f/100 %-5s  %2d insights  %s\n",
			truncate(e.Title, 50), e.QualityScore, e.Confidence, e.InsightsCount, author)
	}
	return nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

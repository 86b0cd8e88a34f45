package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/policyatlas/litbase/internal/pipeline"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <file>...",
	Short: "Ingest one or more documents into the knowledge base",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	manager, resolved, err := openManager()
	if err != nil {
		return err
	}
	defer manager.Close()

	proc, err := newProcessor(manager, resolved)
	if err != nil {
		return err
	}

	var results []pipeline.Result
	failed := 0
	for _, path := range args {
		result := proc.ProcessFile(cmd.Context(), path)
		results = append(results, result)
		if result.Status == pipeline.StatusError || result.Status == pipeline.StatusIntegrationFailed {
			failed++
		}
	}

	if jsonOut {
		data, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
	} else {
		for _, r := range results {
			printResult(r)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d documents failed", failed, len(args))
	}
	return nil
}

func printResult(r pipeline.Result) {
	fmt.Printf("%s  %s\n", statusGlyph(r.Status), r.AdminSummary)
	if len(r.Topics) > 0 {
		fmt.Printf("   topics: %s\n", strings.Join(r.Topics, ", "))
	}
	for _, step := range r.NextSteps {
		fmt.Printf("   next: %s\n", step)
	}
}

func statusGlyph(status string) string {
	switch status {
	case pipeline.StatusIntegrated:
		return "ok "
	case pipeline.StatusReview:
		return "rev"
	default:
		return "err"
	}
}

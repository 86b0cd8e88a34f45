package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/policyatlas/litbase/internal/kb"
)

var (
	historyDocument string
	historyAction   string
	historyLimit    int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the version history of integration decisions, newest first",
	RunE:  runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().StringVar(&historyDocument, "document", "", "filter by document id")
	historyCmd.Flags().StringVar(&historyAction, "action", "", "filter by action (approve_new_document|merge_with_existing|review_required)")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum rows")
}

func runHistory(cmd *cobra.Command, args []string) error {
	manager, _, err := openManager()
	if err != nil {
		return err
	}
	defer manager.Close()

	history, err := manager.History(cmd.Context(), kb.HistoryFilter{
		DocumentID: historyDocument,
		Action:     historyAction,
		Limit:      historyLimit,
	})
	if err != nil {
		return err
	}

	if jsonOut {
		data, err := json.MarshalIndent(history, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	if len(history) == 0 {
		fmt.Println("No history yet.")
		return nil
	}
	for _, h := range history {
		fmt.Printf("%s  %-22s  %5.1f/100  %s\n",
			h.Timestamp.Format("2006-01-02 15:04"), h.Action, h.QualityScore, h.Filename)
	}
	return nil
}

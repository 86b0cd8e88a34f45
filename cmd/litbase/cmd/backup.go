package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var backupForce bool

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Manage backup snapshots",
}

var backupCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a backup snapshot of all entries",
	RunE:  runBackupCreate,
}

var backupListCmd = &cobra.Command{
	Use:   "list",
	Short: "List backup snapshots, oldest first",
	RunE:  runBackupList,
}

var restoreCmd = &cobra.Command{
	Use:   "restore <backup-id>",
	Short: "Restore all entries from a backup snapshot",
	Long: `Restore replaces the current entries with the named backup's snapshot.
A forced safety backup is taken first, so the restore itself can be undone.`,
	Args: cobra.ExactArgs(1),
	RunE: runRestore,
}

func init() {
	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(restoreCmd)
	backupCmd.AddCommand(backupCreateCmd)
	backupCmd.AddCommand(backupListCmd)

	backupCreateCmd.Flags().BoolVar(&backupForce, "force", false, "create a fresh backup even if a recent one exists")
}

func runBackupCreate(cmd *cobra.Command, args []string) error {
	manager, _, err := openManager()
	if err != nil {
		return err
	}
	defer manager.Close()

	id, err := manager.CreateBackup(backupForce)
	if err != nil {
		return err
	}
	fmt.Printf("Backup %s ready\n", id)
	return nil
}

func runBackupList(cmd *cobra.Command, args []string) error {
	manager, _, err := openManager()
	if err != nil {
		return err
	}
	defer manager.Close()

	backups, err := manager.Backups()
	if err != nil {
		return err
	}

	if jsonOut {
		data, err := json.MarshalIndent(backups, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	if len(backups) == 0 {
		fmt.Println("No backups yet.")
		return nil
	}
	for _, b := range backups {
		fmt.Printf("%s  %s  %d entries\n", b.ID, b.Timestamp.Format("2006-01-02 15:04:05"), b.Entries)
	}
	return nil
}

func runRestore(cmd *cobra.Command, args []string) error {
	manager, _, err := openManager()
	if err != nil {
		return err
	}
	defer manager.Close()

	if err := manager.Restore(args[0]); err != nil {
		return err
	}
	fmt.Printf("Restored knowledge base from %s\n", args[0])
	return nil
}

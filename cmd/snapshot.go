package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/recovery-atlas/directory-cli/internal/store"
)

var snapshotLimit int

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Inspect stored directory snapshots",
}

var snapshotListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored snapshots, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := store.New(cmd.Context(), cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.Migrate(cmd.Context()); err != nil {
			return err
		}

		infos, err := st.ListSnapshots(cmd.Context(), snapshotLimit)
		if err != nil {
			return err
		}
		for _, info := range infos {
			fmt.Printf("%s  %s  %d records\n",
				info.RunID, info.BuiltAt.Format("2006-01-02 15:04:05"), info.RecordCount)
		}
		return nil
	},
}

var snapshotShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Print one snapshot as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := store.New(cmd.Context(), cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close()

		dir, err := st.GetSnapshot(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(dir)
	},
}

func init() {
	snapshotListCmd.Flags().IntVar(&snapshotLimit, "limit", 20, "max snapshots to list")
	snapshotCmd.AddCommand(snapshotListCmd)
	snapshotCmd.AddCommand(snapshotShowCmd)
	rootCmd.AddCommand(snapshotCmd)
}

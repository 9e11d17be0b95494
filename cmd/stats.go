package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/recovery-atlas/directory-cli/internal/export"
)

var statsInput string

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize a canonical directory by type and state",
	RunE: func(cmd *cobra.Command, args []string) error {
		records, err := export.ReadRecords(statsInput)
		if err != nil {
			return err
		}
		s := export.Summarize(records)

		fmt.Printf("Total organizations: %d\n", s.Total)
		fmt.Printf("Corroborated by multiple sources: %d\n", s.MultiSource)
		fmt.Printf("Merge suppressed: %d\n", s.Suppressed)
		fmt.Printf("Disputed certifications: %d\n\n", s.Disputed)

		fmt.Println("By type:")
		for _, t := range []string{"narr_residence", "recovery_center", "recovery_org", "treatment_center", "oxford_house"} {
			if n := s.ByType[t]; n > 0 {
				fmt.Printf("  %-18s %d\n", t, n)
			}
		}

		fmt.Println("\nBy state:")
		for _, state := range s.States() {
			fmt.Printf("  %-4s %d\n", state, s.ByState[state])
		}
		return nil
	},
}

func init() {
	statsCmd.Flags().StringVar(&statsInput, "input", "directory.json", "canonical directory path")
	rootCmd.AddCommand(statsCmd)
}

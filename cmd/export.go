package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/recovery-atlas/directory-cli/internal/export"
	"github.com/recovery-atlas/directory-cli/internal/model"
)

var (
	exportInput  string
	exportRep    string
	exportOutput string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a built directory to other formats",
}

var exportXLSXCmd = &cobra.Command{
	Use:   "xlsx",
	Short: "Write the directory and review report as an XLSX workbook",
	RunE: func(cmd *cobra.Command, args []string) error {
		records, err := export.ReadRecords(exportInput)
		if err != nil {
			return err
		}

		var report model.RunReport
		if exportRep != "" {
			report, err = export.ReadReport(exportRep)
			if err != nil {
				return err
			}
		}

		if err := export.WriteWorkbook(exportOutput, records, report); err != nil {
			return err
		}
		zap.L().Info("export: workbook written",
			zap.String("path", exportOutput),
			zap.Int("records", len(records)),
		)
		return nil
	},
}

func init() {
	exportXLSXCmd.Flags().StringVar(&exportInput, "input", "directory.json", "canonical directory path")
	exportXLSXCmd.Flags().StringVar(&exportRep, "report", "", "review report path (optional)")
	exportXLSXCmd.Flags().StringVar(&exportOutput, "output", "directory.xlsx", "workbook output path")
	exportCmd.AddCommand(exportXLSXCmd)
	rootCmd.AddCommand(exportCmd)
}

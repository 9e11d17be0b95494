package main

import (
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/recovery-atlas/directory-cli/internal/dedupe"
	"github.com/recovery-atlas/directory-cli/internal/export"
	"github.com/recovery-atlas/directory-cli/internal/ingest"
	"github.com/recovery-atlas/directory-cli/internal/model"
	"github.com/recovery-atlas/directory-cli/internal/store"
)

var (
	buildInputs   []string
	buildOutput   string
	buildReport   string
	buildPrevious string
	buildNoStore  bool
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the canonical directory from per-source extraction files",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		rules, err := dedupe.LoadRules(cfg.Dedupe.RulesPath)
		if err != nil {
			return err
		}
		builder, err := dedupe.NewBuilder(cfg.Dedupe, rules)
		if err != nil {
			return err
		}

		raws, err := ingest.LoadSources(ctx, buildInputs)
		if err != nil {
			return err
		}
		if len(raws) == 0 {
			return eris.New("build: no records found in inputs")
		}

		var previous *model.Directory
		if buildPrevious != "" {
			previous, err = readSnapshotFile(buildPrevious)
			if err != nil {
				return err
			}
		}

		var st store.Store
		if !buildNoStore {
			st, err = store.New(ctx, cfg.Store)
			if err != nil {
				return err
			}
			defer st.Close()
			if err := st.Migrate(ctx); err != nil {
				return err
			}
			if previous == nil {
				previous, err = st.LatestSnapshot(ctx)
				if err != nil {
					return err
				}
			}
		}

		if previous != nil {
			zap.L().Info("build: using previous snapshot",
				zap.String("run_id", previous.RunID),
				zap.Int("records", len(previous.Records)),
			)
		}

		dir, err := builder.Build(ctx, raws, previous)
		if err != nil {
			return err
		}

		zap.L().Info("build: complete",
			zap.String("run_id", dir.RunID),
			zap.Int("input_records", len(raws)),
			zap.Int("canonical_records", len(dir.Records)),
			zap.Int("dropped", len(dir.Report.Dropped)),
			zap.Int("suppressed_clusters", len(dir.Report.Suppressed)),
			zap.Int("disputed_fields", len(dir.Report.Disputed)),
		)

		if err := export.WriteRecords(buildOutput, dir.Records); err != nil {
			return err
		}
		if buildReport != "" {
			if err := export.WriteReport(buildReport, dir.Report); err != nil {
				return err
			}
		}

		if st != nil {
			if err := st.SaveSnapshot(ctx, dir); err != nil {
				return err
			}
		}
		return nil
	},
}

// readSnapshotFile loads a previous directory from a JSON file, as written by
// "dirctl snapshot show".
func readSnapshotFile(path string) (*model.Directory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "build: read snapshot %s", path)
	}
	var dir model.Directory
	if err := json.Unmarshal(data, &dir); err != nil {
		return nil, eris.Wrapf(err, "build: parse snapshot %s", path)
	}
	return &dir, nil
}

func init() {
	buildCmd.Flags().StringSliceVar(&buildInputs, "input", nil, "source files or directories (json, csv, xlsx)")
	buildCmd.Flags().StringVar(&buildPrevious, "previous", "", "previous snapshot file (overrides the store lookup)")
	buildCmd.Flags().StringVar(&buildOutput, "output", "directory.json", "canonical directory output path")
	buildCmd.Flags().StringVar(&buildReport, "report", "review_report.json", "review report output path (empty to skip)")
	buildCmd.Flags().BoolVar(&buildNoStore, "no-store", false, "skip the snapshot store (no previous run, nothing persisted)")
	_ = buildCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(buildCmd)
}

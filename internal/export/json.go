// Package export writes build output for downstream consumers: the canonical
// JSON array the database loader ingests, the review report, and an XLSX
// workbook for manual review.
package export

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"

	"github.com/recovery-atlas/directory-cli/internal/model"
)

// WriteRecords writes the canonical directory as a single JSON array. This
// is the contract surface for the downstream loader; records are already in
// canonical ID order when they leave the builder.
func WriteRecords(path string, records []model.CanonicalRecord) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return eris.Wrap(err, "export: marshal records")
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return eris.Wrapf(err, "export: write %s", path)
	}
	return nil
}

// WriteReport writes the side-channel review report.
func WriteReport(path string, report model.RunReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return eris.Wrap(err, "export: marshal report")
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return eris.Wrapf(err, "export: write %s", path)
	}
	return nil
}

// ReadRecords loads a previously written canonical JSON array.
func ReadRecords(path string) ([]model.CanonicalRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "export: read %s", path)
	}
	var records []model.CanonicalRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, eris.Wrapf(err, "export: unmarshal %s", path)
	}
	return records, nil
}

// ReadReport loads a previously written review report.
func ReadReport(path string) (model.RunReport, error) {
	var report model.RunReport
	data, err := os.ReadFile(path)
	if err != nil {
		return report, eris.Wrapf(err, "export: read %s", path)
	}
	if err := json.Unmarshal(data, &report); err != nil {
		return report, eris.Wrapf(err, "export: unmarshal %s", path)
	}
	return report, nil
}

package export

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/recovery-atlas/directory-cli/internal/model"
)

// WriteWorkbook writes the directory and review report as an XLSX workbook,
// one sheet for records and one per review category.
func WriteWorkbook(path string, records []model.CanonicalRecord, report model.RunReport) error {
	f := xlsx.NewFile()

	if err := addRecordsSheet(f, records); err != nil {
		return err
	}
	if err := addReviewSheet(f, report); err != nil {
		return err
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "export: save workbook %s", path)
	}
	return nil
}

func addRecordsSheet(f *xlsx.File, records []model.CanonicalRecord) error {
	sheet, err := f.AddSheet("Directory")
	if err != nil {
		return eris.Wrap(err, "export: add directory sheet")
	}

	writeRow(sheet,
		"Canonical ID", "Type", "Name", "Street", "City", "State", "Zip",
		"Phone", "Email", "Website", "Services", "Sources", "Quality", "Flags",
	)
	for _, rec := range records {
		flags := ""
		if rec.MergeSuppressed {
			flags = "merge_suppressed"
		}
		if rec.CertDisputed {
			if flags != "" {
				flags += ";"
			}
			flags += "cert_disputed"
		}
		row := sheet.AddRow()
		row.AddCell().SetString(rec.CanonicalID)
		row.AddCell().SetString(string(rec.OrgType))
		row.AddCell().SetString(rec.Name)
		row.AddCell().SetString(rec.Address.Street)
		row.AddCell().SetString(rec.Address.City)
		row.AddCell().SetString(rec.Address.State)
		row.AddCell().SetString(rec.Address.Zip)
		row.AddCell().SetString(rec.Phone)
		row.AddCell().SetString(rec.Email)
		row.AddCell().SetString(rec.Website)
		row.AddCell().SetString(strings.Join(rec.Services, "; "))
		row.AddCell().SetString(strings.Join(rec.SourceLineage, "; "))
		row.AddCell().SetFloat(rec.QualityScore)
		row.AddCell().SetString(flags)
	}
	return nil
}

func addReviewSheet(f *xlsx.File, report model.RunReport) error {
	sheet, err := f.AddSheet("Review")
	if err != nil {
		return eris.Wrap(err, "export: add review sheet")
	}

	writeRow(sheet, "Category", "Detail", "Values")
	for _, d := range report.Dropped {
		row := sheet.AddRow()
		row.AddCell().SetString("dropped")
		row.AddCell().SetString(string(d.Reason))
		row.AddCell().SetString(d.Record.SourceID + ": " + d.Record.Name)
	}
	for _, s := range report.Suppressed {
		row := sheet.AddRow()
		row.AddCell().SetString("suppressed_cluster")
		row.AddCell().SetString(strings.Join(s.CanonicalIDs, "; "))
		row.AddCell().SetInt(s.Size)
	}
	for _, d := range report.Disputed {
		row := sheet.AddRow()
		row.AddCell().SetString("disputed_field")
		row.AddCell().SetString(d.CanonicalID + "." + d.Field)
		row.AddCell().SetString(strings.Join(d.Values, " | "))
	}
	return nil
}

func writeRow(sheet *xlsx.Sheet, cells ...string) {
	row := sheet.AddRow()
	for _, c := range cells {
		row.AddCell().SetString(c)
	}
}

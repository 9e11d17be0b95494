package ingest

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/recovery-atlas/directory-cli/internal/model"
)

// columnMap resolves header names to record fields. Keys are lowercased,
// space/underscore-insensitive header names as they appear across the SAMHSA
// CSV exports and state agency spreadsheets.
var columnAliases = map[string]string{
	"name":            "name",
	"organization":    "name",
	"facility name":   "name",
	"street":          "street",
	"address":         "street",
	"street1":         "street",
	"city":            "city",
	"state":           "state",
	"zip":             "zip",
	"zipcode":         "zip",
	"zip code":        "zip",
	"phone":           "phone",
	"telephone":       "phone",
	"email":           "email",
	"website":         "website",
	"url":             "website",
	"services":        "services",
	"latitude":        "latitude",
	"longitude":       "longitude",
	"level of care":   "level_of_care",
	"extraction date": "extraction_date",
	"quality":         "quality",
}

// ReadCSV parses a tabular source export. The header row is required; column
// order is free. Services cells split on semicolons.
func ReadCSV(ctx context.Context, r io.Reader, src Source) ([]model.RawRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // allow variable fields

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: read csv header %s", src.Path)
	}
	cols := resolveColumns(header)

	var records []model.RawRecord
	for {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "ingest: context cancelled")
		}
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrapf(err, "ingest: read csv row %s", src.Path)
		}
		records = append(records, rowToRecord(row, cols, src))
	}
	return records, nil
}

// ReadXLSX parses the first sheet of a spreadsheet source export using the
// same header conventions as CSV.
func ReadXLSX(ctx context.Context, src Source) ([]model.RawRecord, error) {
	f, err := xlsx.OpenFile(src.Path)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: open xlsx %s", src.Path)
	}
	if len(f.Sheets) == 0 {
		return nil, eris.Errorf("ingest: xlsx %s has no sheets", src.Path)
	}
	sheet := f.Sheets[0]

	var cols map[int]string
	var records []model.RawRecord
	for i, row := range sheet.Rows {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "ingest: context cancelled")
		}
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cell.String()
		}
		if i == 0 {
			cols = resolveColumns(cells)
			continue
		}
		records = append(records, rowToRecord(cells, cols, src))
	}
	return records, nil
}

func resolveColumns(header []string) map[int]string {
	cols := make(map[int]string, len(header))
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(h))
		h = strings.ReplaceAll(h, "_", " ")
		if field, ok := columnAliases[h]; ok {
			cols[i] = field
		}
	}
	return cols
}

func rowToRecord(row []string, cols map[int]string, src Source) model.RawRecord {
	rec := model.RawRecord{
		SourceID: src.ID,
		OrgType:  src.OrgType,
	}

	var lat, lon string
	for i, raw := range row {
		field, ok := cols[i]
		if !ok {
			continue
		}
		value := strings.TrimSpace(raw)
		if value == "" {
			continue
		}
		switch field {
		case "name":
			rec.Name = value
		case "street":
			rec.Address.Street = value
		case "city":
			rec.Address.City = value
		case "state":
			rec.Address.State = value
		case "zip":
			rec.Address.Zip = value
		case "phone":
			rec.Phone = value
		case "email":
			rec.Email = value
		case "website":
			rec.Website = value
		case "services":
			for _, svc := range strings.Split(value, ";") {
				if svc = strings.TrimSpace(svc); svc != "" {
					rec.Services = append(rec.Services, svc)
				}
			}
		case "latitude":
			lat = value
		case "longitude":
			lon = value
		case "level_of_care":
			rec.Treatment = &model.TreatmentInfo{LevelOfCare: strings.ToLower(value)}
		case "extraction_date":
			if t, err := time.Parse("2006-01-02", value); err == nil {
				rec.ExtractionDate = t
			}
		case "quality":
			if q, err := strconv.ParseFloat(value, 64); err == nil {
				rec.QualityHint = q
			}
		}
	}

	if lat != "" && lon != "" {
		la, errA := strconv.ParseFloat(lat, 64)
		lo, errB := strconv.ParseFloat(lon, 64)
		if errA == nil && errB == nil {
			rec.Coordinates = &model.Coordinates{Lat: la, Lon: lo}
		}
	}
	return rec
}

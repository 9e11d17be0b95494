package ingest

import (
	"context"
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"

	"github.com/recovery-atlas/directory-cli/internal/model"
)

// ReadJSON decodes a JSON array of raw records, streaming element by element
// so large source files never load as one blob. Records without a source_id
// inherit the fallback derived from the file name.
func ReadJSON(ctx context.Context, r io.Reader, fallbackSource string) ([]model.RawRecord, error) {
	decoder := json.NewDecoder(r)

	// Expect opening bracket
	tok, err := decoder.Token()
	if err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, eris.Wrap(err, "ingest: read opening token")
	}
	delim, ok := tok.(json.Delim)
	if !ok || delim != '[' {
		return nil, eris.Errorf("ingest: expected '[', got %v", tok)
	}

	var records []model.RawRecord
	for decoder.More() {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "ingest: context cancelled")
		}
		var rec model.RawRecord
		if err := decoder.Decode(&rec); err != nil {
			return nil, eris.Wrap(err, "ingest: decode record")
		}
		if rec.SourceID == "" {
			rec.SourceID = fallbackSource
		}
		records = append(records, rec)
	}

	// Consume closing bracket
	if _, err := decoder.Token(); err != nil && err != io.EOF {
		return nil, eris.Wrap(err, "ingest: read closing token")
	}
	return records, nil
}

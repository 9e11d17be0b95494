// Package ingest reads per-source extraction files into raw records. Sources
// are opaque, untrusted, partially populated inputs; shape validation happens
// downstream at the dedupe boundary.
package ingest

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/recovery-atlas/directory-cli/internal/model"
)

// Source describes one extraction file on disk.
type Source struct {
	ID      string
	OrgType model.OrgType // only meaningful for tabular formats
	Path    string
}

// ParseSourcePath derives source metadata from a file name. Tabular files
// follow "<source_id>__<org_type>.<ext>" (e.g. "samhsa__treatment_center.csv");
// JSON files carry both fields per record, so the name only supplies a
// fallback source ID.
func ParseSourcePath(path string) Source {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	src := Source{ID: base, Path: path}
	if idx := strings.Index(base, "__"); idx > 0 {
		src.ID = base[:idx]
		src.OrgType = model.OrgType(base[idx+2:])
	}
	return src
}

// LoadSources reads every given path (files or directories) and returns the
// combined raw records. Directories are walked non-recursively for files
// with a supported extension.
func LoadSources(ctx context.Context, paths []string) ([]model.RawRecord, error) {
	files, err := expandPaths(paths)
	if err != nil {
		return nil, err
	}

	var all []model.RawRecord
	for _, path := range files {
		records, err := loadFile(ctx, path)
		if err != nil {
			return nil, err
		}
		zap.L().Info("ingest: loaded source",
			zap.String("path", path),
			zap.Int("records", len(records)),
		)
		all = append(all, records...)
	}
	return all, nil
}

func loadFile(ctx context.Context, path string) ([]model.RawRecord, error) {
	src := ParseSourcePath(path)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrapf(err, "ingest: open %s", path)
		}
		defer f.Close()
		return ReadJSON(ctx, f, src.ID)
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrapf(err, "ingest: open %s", path)
		}
		defer f.Close()
		return ReadCSV(ctx, f, src)
	case ".xlsx":
		return ReadXLSX(ctx, src)
	default:
		return nil, eris.Errorf("ingest: unsupported file type %s", path)
	}
}

func expandPaths(paths []string) ([]string, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, eris.Wrapf(err, "ingest: stat %s", p)
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		entries, err := os.ReadDir(p)
		if err != nil {
			return nil, eris.Wrapf(err, "ingest: read dir %s", p)
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			switch strings.ToLower(filepath.Ext(e.Name())) {
			case ".json", ".csv", ".xlsx":
				files = append(files, filepath.Join(p, e.Name()))
			}
		}
	}
	sort.Strings(files)
	return files, nil
}

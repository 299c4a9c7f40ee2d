package exporter

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"esgpulse/pkg/contracts/domain"
)

// Artifact is one written output file.
type Artifact struct {
	Format Format `json:"format"`
	Path   string `json:"path"`
	Size   int64  `json:"size"`
}

// FeatureExporter writes feature tables into a directory.
type FeatureExporter struct {
	dir    string
	marker string
	csv    *CSVWriter
	logger *slog.Logger

	// ParquetCompression is snappy, gzip or none.
	ParquetCompression string
}

// NewFeatureExporter creates an exporter writing into dir. marker is the CSV
// absent-value marker.
func NewFeatureExporter(dir, marker string, logger *slog.Logger) *FeatureExporter {
	if logger == nil {
		logger = slog.Default()
	}
	if marker == "" {
		marker = DefaultMissingMarker
	}
	logger = logger.With(slog.String("component", "exporter"))
	return &FeatureExporter{
		dir:                dir,
		marker:             marker,
		csv:                NewCSVWriter(dir, logger),
		logger:             logger,
		ParquetCompression: "snappy",
	}
}

// Export writes rows as <name>.<ext> for every format. An empty table still
// produces files holding only the header.
func (e *FeatureExporter) Export(ctx context.Context, name string, rows []domain.FeatureRow, formats []Format) ([]Artifact, error) {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	artifacts := make([]Artifact, 0, len(formats))
	for _, f := range formats {
		if err := ctx.Err(); err != nil {
			return artifacts, err
		}
		path, err := e.write(name+f.Ext(), f, rows)
		if err != nil {
			return artifacts, fmt.Errorf("export %s: %w", f, err)
		}
		info, err := os.Stat(path)
		if err != nil {
			return artifacts, fmt.Errorf("stat %s: %w", path, err)
		}
		artifacts = append(artifacts, Artifact{Format: f, Path: path, Size: info.Size()})
		e.logger.InfoContext(ctx, "feature table written",
			slog.String("format", string(f)),
			slog.String("path", path),
			slog.Int("rows", len(rows)),
			slog.Int64("bytes", info.Size()),
		)
	}
	return artifacts, nil
}

func (e *FeatureExporter) write(file string, f Format, rows []domain.FeatureRow) (string, error) {
	if f == FormatCSV {
		sw, err := e.csv.CreateStreamWriter(file, domain.FeatureColumns, false)
		if err != nil {
			return "", err
		}
		for _, r := range rows {
			if err := sw.WriteRecord(r.Record(e.marker)); err != nil {
				sw.Close()
				return "", err
			}
		}
		return sw.Path(), sw.Close()
	}

	var buf bytes.Buffer
	var err error
	switch f {
	case FormatXLSX:
		err = WriteFeaturesXLSX(&buf, rows)
	case FormatParquet:
		err = WriteFeaturesParquet(&buf, rows, e.ParquetCompression)
	case FormatJSON:
		err = WriteFeaturesJSON(&buf, rows)
	default:
		err = fmt.Errorf("unsupported format %q", f)
	}
	if err != nil {
		return "", err
	}

	path := filepath.Join(e.dir, file)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	return path, nil
}

// WriteFeaturesCSV writes the feature table with marker for absent values.
func WriteFeaturesCSV(w io.Writer, rows []domain.FeatureRow, marker string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(domain.FeatureColumns); err != nil {
		return err
	}
	for i, r := range rows {
		if err := cw.Write(r.Record(marker)); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFeaturesJSON writes the rows as a JSON array; absent values are null.
func WriteFeaturesJSON(w io.Writer, rows []domain.FeatureRow) error {
	if rows == nil {
		rows = []domain.FeatureRow{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}

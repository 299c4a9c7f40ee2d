package marketdata

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"esgpulse/internal/eventstudy"
	"esgpulse/pkg/contracts/domain"
)

// CSVProvider reads <dir>/<SYMBOL>.csv (or .xlsx) files. Both a plain single-header
// layout and the multi-row (Price/Ticker/Date) header of multi-ticker
// downloads are understood.
type CSVProvider struct {
	dir    string
	logger *slog.Logger
}

// NewCSVProvider creates a provider reading from dir.
func NewCSVProvider(dir string, logger *slog.Logger) *CSVProvider {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVProvider{dir: dir, logger: logger.With(slog.String("provider", "csv"))}
}

// Name implements Provider.
func (p *CSVProvider) Name() string { return "csv" }

// FileName maps a symbol to its file name, e.g. ^GSPC to GSPC.csv.
func FileName(symbol string) string {
	return domain.SanitizeFileName(symbol) + ".csv"
}

// Frame implements Provider. <SYMBOL>.csv is preferred; <SYMBOL>.xlsx is
// read from its first sheet when no CSV exists.
func (p *CSVProvider) Frame(ctx context.Context, symbol string, start, end time.Time) (*Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	base := strings.TrimSuffix(FileName(symbol), ".csv")
	csvPath := filepath.Join(p.dir, base+".csv")
	xlsxPath := filepath.Join(p.dir, base+".xlsx")

	var (
		frame *Frame
		path  string
		err   error
	)
	switch {
	case fileExists(csvPath):
		path = csvPath
		frame, err = readCSVFile(csvPath, start, end)
	case fileExists(xlsxPath):
		path = xlsxPath
		frame, err = ReadWorkbook(xlsxPath, start, end)
	default:
		return nil, fmt.Errorf("%w: no price file for %s in %s", eventstudy.ErrEmptySeries, symbol, p.dir)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	p.logger.DebugContext(ctx, "price file loaded",
		slog.String("symbol", symbol),
		slog.String("path", path),
		slog.Int("rows", frame.Len()),
		slog.Int("dropped", frame.Dropped),
	)
	return frame, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func readCSVFile(path string, start, end time.Time) (*Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open price file: %w", err)
	}
	defer f.Close()
	return ReadFrame(f, start, end)
}

// ReadWorkbook parses the first sheet of a price workbook with the same
// header rules as ReadFrame.
func ReadWorkbook(path string, start, end time.Time) (*Frame, error) {
	wb, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer wb.Close()

	sheets := wb.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", eventstudy.ErrEmptySeries)
	}
	rows, err := wb.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	records := make([][]string, 0, len(rows))
	for _, r := range rows {
		if len(r) > 0 {
			records = append(records, r)
		}
	}
	return frameFromRecords(records, start, end)
}

// ReadFrame parses a price CSV, keeping rows inside [start, end]. Zero bounds
// disable filtering. Rows whose date does not parse are skipped and counted in
// Frame.Dropped.
func ReadFrame(r io.Reader, start, end time.Time) (*Frame, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: parse csv: %w", eventstudy.ErrDataUnavailable, err)
	}
	return frameFromRecords(records, start, end)
}

func frameFromRecords(records [][]string, start, end time.Time) (*Frame, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: empty file", eventstudy.ErrEmptySeries)
	}

	keys, body, err := parseHeader(records)
	if err != nil {
		return nil, err
	}

	rng := eventstudy.DateRange{Start: start, End: end}
	filter := !start.IsZero() && !end.IsZero()

	var (
		dates   []time.Time
		dropped int
	)
	cells := make([][]any, len(keys))
	for _, rec := range body {
		if len(rec) == 0 || strings.TrimSpace(rec[0]) == "" {
			continue
		}
		d, err := parseDate(rec[0])
		if err != nil {
			dropped++
			continue
		}
		if filter && !rng.Contains(d) {
			continue
		}
		dates = append(dates, d)
		for c := range keys {
			var v any
			if c+1 < len(rec) {
				v = rec[c+1]
			}
			cells[c] = append(cells[c], v)
		}
	}

	frame := NewFrame(dates)
	frame.Dropped = dropped
	for c, key := range keys {
		if key.Field == "" {
			continue
		}
		vals := cells[c]
		if vals == nil {
			vals = []any{}
		}
		if err := frame.Set(key, vals); err != nil {
			return nil, err
		}
	}
	return frame, nil
}

// parseHeader returns one key per data column (after the date column) and the
// remaining data records.
func parseHeader(records [][]string) ([]ColumnKey, [][]string, error) {
	head := records[0]
	if len(head) < 2 {
		return nil, nil, fmt.Errorf("%w: header has %d columns", eventstudy.ErrDataUnavailable, len(head))
	}

	multi := strings.EqualFold(strings.TrimSpace(head[0]), "Price") &&
		len(records) > 1 && strings.EqualFold(strings.TrimSpace(records[1][0]), "Ticker")
	if !multi {
		keys := make([]ColumnKey, 0, len(head)-1)
		for _, name := range head[1:] {
			keys = append(keys, ColumnKey{Field: strings.TrimSpace(name)})
		}
		return keys, records[1:], nil
	}

	tickers := records[1]
	keys := make([]ColumnKey, 0, len(head)-1)
	for i, name := range head[1:] {
		key := ColumnKey{Field: strings.TrimSpace(name)}
		if i+1 < len(tickers) {
			key.Symbol = strings.TrimSpace(tickers[i+1])
		}
		keys = append(keys, key)
	}

	body := records[2:]
	if len(body) > 0 && strings.EqualFold(strings.TrimSpace(body[0][0]), "Date") {
		body = body[1:]
	}
	return keys, body, nil
}

package exporter

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"esgpulse/pkg/contracts/domain"
)

// FeatureSheet is the worksheet holding the feature table.
const FeatureSheet = "features"

// WriteFeaturesXLSX writes the feature table as a workbook. Absent values are
// empty cells.
func WriteFeaturesXLSX(w io.Writer, rows []domain.FeatureRow) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", FeatureSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	sw, err := f.NewStreamWriter(FeatureSheet)
	if err != nil {
		return fmt.Errorf("create stream writer: %w", err)
	}

	header := make([]interface{}, len(domain.FeatureColumns))
	for i, c := range domain.FeatureColumns {
		header[i] = c
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, xlsxValues(r)); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("flush sheet: %w", err)
	}
	return f.Write(w)
}

func xlsxValues(r domain.FeatureRow) []interface{} {
	cell := func(v domain.Float) interface{} {
		if !v.Valid {
			return nil
		}
		return v.Value
	}
	return []interface{}{
		r.Ticker,
		r.EventDate.Format(domain.EventDateLayout),
		r.WindowDay,
		cell(r.ActualReturn),
		cell(r.ExpectedReturn),
		cell(r.AbnormalReturn),
		cell(r.Momentum),
		cell(r.VIX),
		r.SentimentLabel,
		cell(r.SentimentScore),
		r.Title,
	}
}

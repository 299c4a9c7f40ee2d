package marketdata

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"esgpulse/internal/eventstudy"
)

const plainCSV = `Date,Open,High,Low,Close,Adj Close,Volume
2024-01-02,10,11,9,10.5,10.4,1000
2024-01-03,10.5,11,10,10.8,10.7,1200
2024-01-04,10.8,12,10.5,11.9,11.8,900
`

const multiCSV = `Price,Close,High,Low,Open,Volume
Ticker,^GSPC,^GSPC,^GSPC,^GSPC,^GSPC
Date,,,,,
2024-01-02,4742.83,4754.33,4722.67,4745.2,3743050000
2024-01-03,4704.81,4729.29,4699.71,4725.07,3950760000
2024-01-04,4688.68,4726.78,4687.53,4697.42,3715480000
`

func TestFileName(t *testing.T) {
	assert.Equal(t, "GSPC.csv", FileName("^GSPC"))
	assert.Equal(t, "BRK.B.csv", FileName("BRK.B"))
	assert.Equal(t, "A_B.csv", FileName("A/B"))
}

func TestReadFramePlain(t *testing.T) {
	f, err := ReadFrame(strings.NewReader(plainCSV), day("2024-01-03"), day("2024-01-04"))
	require.NoError(t, err)
	assert.Equal(t, 2, f.Len())

	key, err := f.ResolveClose("XYZ")
	require.NoError(t, err)
	assert.Equal(t, ColumnKey{Field: "Close"}, key)

	s, err := CloseSeries(f, "XYZ")
	require.NoError(t, err)
	v, ok := s.At(day("2024-01-04"))
	require.True(t, ok)
	assert.Equal(t, 11.9, v)
}

func TestReadFrameMultiHeader(t *testing.T) {
	f, err := ReadFrame(strings.NewReader(multiCSV), day("2024-01-01"), day("2024-01-31"))
	require.NoError(t, err)
	assert.Equal(t, 3, f.Len())

	key, err := f.ResolveClose("^GSPC")
	require.NoError(t, err)
	assert.Equal(t, ColumnKey{Field: "Close", Symbol: "^GSPC"}, key)

	s, err := CloseSeries(f, "^GSPC")
	require.NoError(t, err)
	v, ok := s.At(day("2024-01-02"))
	require.True(t, ok)
	assert.Equal(t, 4742.83, v)
}

func TestReadFrameBadDate(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		wantRows    int
		wantDropped int
	}{
		{name: "bad row among good rows", input: "Date,Close\n2024-01-02,10\nnot-a-date,11\n", wantRows: 1, wantDropped: 1},
		{name: "only bad rows", input: "Date,Close\nnot-a-date,1\n", wantRows: 0, wantDropped: 1},
		{name: "blank date cells are not counted", input: "Date,Close\n2024-01-02,10\n,11\n", wantRows: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := ReadFrame(strings.NewReader(tt.input), day("2024-01-01"), day("2024-01-31"))
			require.NoError(t, err)
			assert.Equal(t, tt.wantRows, f.Len())
			assert.Equal(t, tt.wantDropped, f.Dropped)
		})
	}

	t.Run("series from a frame of bad rows is empty", func(t *testing.T) {
		f, err := ReadFrame(strings.NewReader("Date,Close\nnot-a-date,1\n"), time.Time{}, time.Time{})
		require.NoError(t, err)
		_, err = CloseSeries(f, "XYZ")
		assert.ErrorIs(t, err, eventstudy.ErrEmptySeries)
	})
}

func TestReadFrameMalformedIsFinal(t *testing.T) {
	_, err := ReadFrame(strings.NewReader("Date,Close\n\"2024-01-02,10\n"), time.Time{}, time.Time{})
	require.Error(t, err)
	assert.ErrorIs(t, err, eventstudy.ErrDataUnavailable)
	assert.False(t, retryable(err))
}

func TestCSVProviderFrame(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "GSPC.csv"), []byte(multiCSV), 0o644))
	p := NewCSVProvider(dir, nil)

	f, err := p.Frame(context.Background(), "^GSPC", day("2024-01-01"), day("2024-01-03"))
	require.NoError(t, err)
	assert.Equal(t, 2, f.Len())

	_, err = p.Frame(context.Background(), "NOPE", day("2024-01-01"), day("2024-01-03"))
	assert.ErrorIs(t, err, eventstudy.ErrEmptySeries)
}

func TestCSVProviderWorkbookFallback(t *testing.T) {
	dir := t.TempDir()
	wb := excelize.NewFile()
	defer wb.Close()

	rows := [][]any{
		{"Price", "Close", "Volume"},
		{"Ticker", "^VIX", "^VIX"},
		{"Date"},
		{"2024-01-02", 13.2, 0},
		{"2024-01-03", 14.1, 0},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, wb.SetSheetRow("Sheet1", cell, &row))
	}
	require.NoError(t, wb.SaveAs(filepath.Join(dir, "VIX.xlsx")))

	p := NewCSVProvider(dir, nil)
	f, err := p.Frame(context.Background(), "^VIX", day("2024-01-01"), day("2024-01-31"))
	require.NoError(t, err)

	s, err := CloseSeries(f, "^VIX")
	require.NoError(t, err)
	v, ok := s.At(day("2024-01-03"))
	require.True(t, ok)
	assert.Equal(t, 14.1, v)
}

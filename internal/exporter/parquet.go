package exporter

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/source"
	"github.com/xitongsys/parquet-go/writer"

	"esgpulse/pkg/contracts/domain"
)

// featureRecord is the Parquet schema of a feature row. Optional numerics are
// OPTIONAL columns so absence survives as null.
type featureRecord struct {
	Ticker         string   `parquet:"name=ticker, type=BYTE_ARRAY, convertedtype=UTF8"`
	EventDate      string   `parquet:"name=event_date, type=BYTE_ARRAY, convertedtype=UTF8"`
	WindowDay      int32    `parquet:"name=window_day, type=INT32"`
	ActualReturn   *float64 `parquet:"name=actual_return, type=DOUBLE, repetitiontype=OPTIONAL"`
	ExpectedReturn *float64 `parquet:"name=expected_return, type=DOUBLE, repetitiontype=OPTIONAL"`
	AbnormalReturn *float64 `parquet:"name=abnormal_return, type=DOUBLE, repetitiontype=OPTIONAL"`
	Momentum       *float64 `parquet:"name=momentum, type=DOUBLE, repetitiontype=OPTIONAL"`
	VIX            *float64 `parquet:"name=vix, type=DOUBLE, repetitiontype=OPTIONAL"`
	SentimentLabel string   `parquet:"name=sentiment_label, type=BYTE_ARRAY, convertedtype=UTF8"`
	SentimentScore *float64 `parquet:"name=sentiment_score, type=DOUBLE, repetitiontype=OPTIONAL"`
	Title          string   `parquet:"name=title, type=BYTE_ARRAY, convertedtype=UTF8"`
}

func toParquet(r domain.FeatureRow) featureRecord {
	return featureRecord{
		Ticker:         r.Ticker,
		EventDate:      r.EventDate.Format(domain.EventDateLayout),
		WindowDay:      int32(r.WindowDay),
		ActualReturn:   r.ActualReturn.Ptr(),
		ExpectedReturn: r.ExpectedReturn.Ptr(),
		AbnormalReturn: r.AbnormalReturn.Ptr(),
		Momentum:       r.Momentum.Ptr(),
		VIX:            r.VIX.Ptr(),
		SentimentLabel: r.SentimentLabel,
		SentimentScore: r.SentimentScore.Ptr(),
		Title:          r.Title,
	}
}

// memFile is a write-only in-memory parquet sink.
type memFile struct {
	buffer *bytes.Buffer
}

func newMemFile() *memFile {
	return &memFile{buffer: &bytes.Buffer{}}
}

func (m *memFile) Create(string) (source.ParquetFile, error) { return m, nil }
func (m *memFile) Open(string) (source.ParquetFile, error)   { return m, nil }
func (m *memFile) Seek(int64, int) (int64, error)            { return int64(m.buffer.Len()), nil }
func (m *memFile) Read([]byte) (int, error)                  { return 0, fmt.Errorf("read not supported") }
func (m *memFile) Write(b []byte) (int, error)               { return m.buffer.Write(b) }
func (m *memFile) Close() error                              { return nil }

// WriteFeaturesParquet writes the feature table as a Parquet file.
func WriteFeaturesParquet(w io.Writer, rows []domain.FeatureRow, compression string) error {
	mem := newMemFile()
	pw, err := writer.NewParquetWriter(mem, new(featureRecord), 1)
	if err != nil {
		return fmt.Errorf("new parquet writer: %w", err)
	}

	switch strings.ToLower(compression) {
	case "gzip":
		pw.CompressionType = parquet.CompressionCodec_GZIP
	case "none", "uncompressed":
		pw.CompressionType = parquet.CompressionCodec_UNCOMPRESSED
	default:
		pw.CompressionType = parquet.CompressionCodec_SNAPPY
	}

	for i, r := range rows {
		if err := pw.Write(toParquet(r)); err != nil {
			pw.WriteStop()
			return fmt.Errorf("write feature record %d: %w", i, err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		return fmt.Errorf("finalize parquet: %w", err)
	}

	_, err = w.Write(mem.buffer.Bytes())
	return err
}

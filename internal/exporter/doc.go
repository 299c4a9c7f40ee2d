// Package exporter writes the event-study feature table.
//
// CSVWriter is the low-level writer with headers, streaming and an optional
// UTF-8 BOM for Excel. FeatureExporter renders feature rows into CSV, XLSX,
// Parquet and JSON with one consistent absent-value convention per format:
//
//   - CSV: the reserved marker (NA by default)
//   - XLSX: an empty cell
//   - Parquet: a null in an OPTIONAL column
//   - JSON: null
//
// TickerExporter splits a table into per-ticker files and writes a per-ticker
// summary with cumulative abnormal returns.
//
// S3Publisher uploads the written artifacts to object storage.
//
// Example usage:
//
//	fx := exporter.NewFeatureExporter("data/output", exporter.DefaultMissingMarker, logger)
//	artifacts, err := fx.Export(ctx, "features_20240115", rows, []exporter.Format{exporter.FormatCSV, exporter.FormatParquet})
package exporter

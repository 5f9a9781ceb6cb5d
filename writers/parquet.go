//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// Copyright (C) 2025 Aaron Mathis aaron.mathis@gmail.com
//
// This file is part of cupofmud.
//
// cupofmud is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// cupofmud is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with cupofmud. If not, see https://www.gnu.org/licenses/.

package writers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/apache/arrow/go/v12/arrow"
	"github.com/apache/arrow/go/v12/arrow/memory"
	"github.com/apache/arrow/go/v12/parquet"
	"github.com/apache/arrow/go/v12/parquet/compress"
	"github.com/apache/arrow/go/v12/parquet/pqarrow"

	"github.com/aaronlmathis/cupofmud/core"
)

// ParquetWriterError wraps Parquet-specific write errors with context about the operation.
type ParquetWriterError struct {
	Op  string // Operation that failed (e.g., "open_file", "create_writer", "write_batch")
	Err error  // Underlying error
}

// Error returns the error string for ParquetWriterError.
func (e *ParquetWriterError) Error() string {
	return fmt.Sprintf("parquet writer %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for ParquetWriterError.
func (e *ParquetWriterError) Unwrap() error {
	return e.Err
}

// ParquetWriter implements core.DataSink for Parquet files written against a
// fixed Arrow schema. Records are buffered and written one batch at a time.
type ParquetWriter struct {
	file    *os.File
	writer  *pqarrow.FileWriter
	schema  *arrow.Schema
	batch   *batchBuilder
	opts    *ParquetWriterOptions
	stats   WriterStats
	closed  bool
	errored bool
}

// ParquetWriterOptions configures the Parquet writer.
type ParquetWriterOptions struct {
	BatchSize         int64                // Number of records to buffer before writing
	Schema            *arrow.Schema        // Output schema (required)
	Compression       compress.Compression // Compression algorithm
	RowGroupSize      int64                // Maximum rows per row group
	DictionaryColumns []string             // Columns to dictionary encode; nil keeps the library default
	Metadata          map[string]string    // File key/value metadata
}

// WriterStats holds statistics about a writer's performance.
type WriterStats struct {
	RecordsWritten  int64
	BatchesWritten  int64
	FlushDuration   time.Duration
	LastFlushTime   time.Time
	ErrorCount      int64
	NullValueCounts map[string]int64
}

// WriterOption represents a configuration function for ParquetWriterOptions.
type WriterOption func(*ParquetWriterOptions)

// WithBatchSize sets the number of records to buffer before writing a batch.
func WithBatchSize(size int64) WriterOption {
	return func(opts *ParquetWriterOptions) {
		opts.BatchSize = size
	}
}

// WithSchema sets the Arrow schema the file is written with. Field order in
// the file follows the schema.
func WithSchema(schema *arrow.Schema) WriterOption {
	return func(opts *ParquetWriterOptions) {
		opts.Schema = schema
	}
}

// WithCompression sets the Parquet compression algorithm.
func WithCompression(compression compress.Compression) WriterOption {
	return func(opts *ParquetWriterOptions) {
		opts.Compression = compression
	}
}

// WithRowGroupSize sets the row group size for the Parquet file.
func WithRowGroupSize(size int64) WriterOption {
	return func(opts *ParquetWriterOptions) {
		opts.RowGroupSize = size
	}
}

// WithDictionary restricts dictionary encoding to the named columns.
func WithDictionary(columns ...string) WriterOption {
	return func(opts *ParquetWriterOptions) {
		opts.DictionaryColumns = append([]string{}, columns...)
	}
}

// WithMetadata sets user metadata for the Parquet file.
func WithMetadata(metadata map[string]string) WriterOption {
	return func(opts *ParquetWriterOptions) {
		if opts.Metadata == nil {
			opts.Metadata = make(map[string]string)
		}
		for k, v := range metadata {
			opts.Metadata[k] = v
		}
	}
}

// ParseCompression maps a codec name to its Parquet compression.
func ParseCompression(name string) (compress.Compression, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "snappy":
		return compress.Codecs.Snappy, nil
	case "none", "uncompressed":
		return compress.Codecs.Uncompressed, nil
	case "gzip":
		return compress.Codecs.Gzip, nil
	case "zstd":
		return compress.Codecs.Zstd, nil
	case "brotli":
		return compress.Codecs.Brotli, nil
	default:
		return compress.Codecs.Uncompressed, fmt.Errorf("unknown compression %q", name)
	}
}

func defaultParquetOptions() *ParquetWriterOptions {
	return &ParquetWriterOptions{
		BatchSize:    1000,
		Compression:  compress.Codecs.Snappy,
		RowGroupSize: 10000,
		Metadata:     make(map[string]string),
	}
}

// NewParquetWriter creates a Parquet file at filename. The schema option is required.
func NewParquetWriter(filename string, options ...WriterOption) (*ParquetWriter, error) {
	opts := defaultParquetOptions()
	for _, option := range options {
		option(opts)
	}
	if opts.Schema == nil {
		return nil, &ParquetWriterError{Op: "schema", Err: errors.New("an output schema is required")}
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 1000
	}

	dir := filepath.Dir(filename)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, &ParquetWriterError{
				Op:  "create_directory",
				Err: fmt.Errorf("failed to create directory %s: %w", dir, err),
			}
		}
	}
	file, err := os.Create(filename)
	if err != nil {
		return nil, &ParquetWriterError{
			Op:  "open_file",
			Err: fmt.Errorf("failed to create parquet file %s: %w", filename, err),
		}
	}

	p, err := newParquetFileWriter(file, opts)
	if err != nil {
		file.Close()
		return nil, err
	}
	p.file = file
	return p, nil
}

func newParquetFileWriter(w io.Writer, opts *ParquetWriterOptions) (*ParquetWriter, error) {
	schema := withSchemaMetadata(opts.Schema, opts.Metadata)

	props := []parquet.WriterProperty{parquet.WithCompression(opts.Compression)}
	if opts.RowGroupSize > 0 {
		props = append(props, parquet.WithMaxRowGroupLength(opts.RowGroupSize))
	}
	if opts.DictionaryColumns != nil {
		props = append(props, parquet.WithDictionaryDefault(false))
		for _, col := range opts.DictionaryColumns {
			props = append(props, parquet.WithDictionaryFor(col, true))
		}
	}

	writer, err := pqarrow.NewFileWriter(
		schema, w,
		parquet.NewWriterProperties(props...),
		pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema()),
	)
	if err != nil {
		return nil, &ParquetWriterError{
			Op:  "create_writer",
			Err: fmt.Errorf("failed to create parquet file writer: %w", err),
		}
	}

	return &ParquetWriter{
		writer: writer,
		schema: schema,
		batch:  newBatchBuilder(memory.NewGoAllocator(), schema),
		opts:   opts,
		stats:  WriterStats{NullValueCounts: make(map[string]int64)},
	}, nil
}

// withSchemaMetadata returns schema with extra merged into its metadata.
func withSchemaMetadata(schema *arrow.Schema, extra map[string]string) *arrow.Schema {
	if len(extra) == 0 {
		return schema
	}
	merged := make(map[string]string, len(extra))
	md := schema.Metadata()
	for i, k := range md.Keys() {
		merged[k] = md.Values()[i]
	}
	for k, v := range extra {
		merged[k] = v
	}
	meta := arrow.MetadataFrom(merged)
	return arrow.NewSchema(schema.Fields(), &meta)
}

// Schema returns the schema the file is written with.
func (p *ParquetWriter) Schema() *arrow.Schema {
	return p.schema
}

// Stats returns the current statistics of the Parquet writer.
func (p *ParquetWriter) Stats() WriterStats {
	stats := p.stats
	stats.NullValueCounts = p.batch.Nulls()
	return stats
}

// Write implements the core.DataSink interface. A record that does not fit
// the schema is rejected and puts the writer into an error state.
func (p *ParquetWriter) Write(ctx context.Context, record core.Record) error {
	if p.closed {
		return &ParquetWriterError{Op: "write", Err: errors.New("parquet writer is closed")}
	}
	if p.errored {
		return &ParquetWriterError{Op: "write", Err: errors.New("writer is in error state")}
	}
	if err := ctx.Err(); err != nil {
		return &ParquetWriterError{Op: "write", Err: err}
	}

	if err := p.batch.Append(record); err != nil {
		p.errored = true
		p.stats.ErrorCount++
		return &ParquetWriterError{Op: "validate", Err: fmt.Errorf("record validation failed: %w", err)}
	}
	p.stats.RecordsWritten++

	if p.batch.Len() >= p.opts.BatchSize {
		if err := p.flushBatch(); err != nil {
			return err
		}
	}
	return nil
}

// Flush implements the core.DataSink interface.
// Forces any buffered records to be written to the Parquet file.
func (p *ParquetWriter) Flush() error {
	if p.closed {
		return nil
	}
	return p.flushBatch()
}

// Close implements the core.DataSink interface. It flushes buffered records,
// writes the footer, and closes the file.
func (p *ParquetWriter) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	defer p.batch.Release()

	var flushErr error
	if !p.errored {
		flushErr = p.flushBatch()
	}

	if err := p.writer.Close(); err != nil && flushErr == nil {
		flushErr = &ParquetWriterError{
			Op:  "close_writer",
			Err: fmt.Errorf("failed to close parquet writer: %w", err),
		}
	}

	if p.file != nil {
		// The parquet writer normally closes the sink already.
		if err := p.file.Close(); err != nil && !errors.Is(err, os.ErrClosed) && flushErr == nil {
			flushErr = &ParquetWriterError{Op: "close_file", Err: err}
		}
		p.file = nil
	}
	return flushErr
}

// flushBatch writes the buffered rows as one record batch.
func (p *ParquetWriter) flushBatch() error {
	if p.batch.Len() == 0 {
		return nil
	}
	start := time.Now()

	rec := p.batch.NewRecord()
	defer rec.Release()

	if err := p.writer.Write(rec); err != nil {
		p.errored = true
		p.stats.ErrorCount++
		return &ParquetWriterError{
			Op:  "write_batch",
			Err: fmt.Errorf("failed to write record batch: %w", err),
		}
	}

	p.stats.BatchesWritten++
	p.stats.FlushDuration += time.Since(start)
	p.stats.LastFlushTime = time.Now()
	return nil
}

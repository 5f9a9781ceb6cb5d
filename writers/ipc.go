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
	"os"
	"path/filepath"
	"time"

	"github.com/apache/arrow/go/v12/arrow"
	"github.com/apache/arrow/go/v12/arrow/ipc"
	"github.com/apache/arrow/go/v12/arrow/memory"

	"github.com/aaronlmathis/cupofmud/core"
)

// IPCWriterError wraps Arrow IPC write errors with the failing operation.
type IPCWriterError struct {
	Op  string
	Err error
}

func (e *IPCWriterError) Error() string {
	return fmt.Sprintf("ipc writer %s: %v", e.Op, e.Err)
}

func (e *IPCWriterError) Unwrap() error {
	return e.Err
}

// IPCWriter implements core.DataSink for Arrow IPC (Feather v2) files.
type IPCWriter struct {
	file      *os.File
	writer    *ipc.FileWriter
	batch     *batchBuilder
	batchSize int64
	stats     WriterStats
	closed    bool
	errored   bool
}

// NewIPCWriter creates an Arrow IPC file at filename. Only the batch size,
// schema and metadata options apply to this format.
func NewIPCWriter(filename string, options ...WriterOption) (*IPCWriter, error) {
	opts := defaultParquetOptions()
	for _, option := range options {
		option(opts)
	}
	if opts.Schema == nil {
		return nil, &IPCWriterError{Op: "schema", Err: errors.New("an output schema is required")}
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 1000
	}
	schema := withSchemaMetadata(opts.Schema, opts.Metadata)

	if dir := filepath.Dir(filename); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, &IPCWriterError{Op: "create_directory", Err: err}
		}
	}
	file, err := os.Create(filename)
	if err != nil {
		return nil, &IPCWriterError{Op: "open_file", Err: err}
	}

	mem := memory.NewGoAllocator()
	w, err := ipc.NewFileWriter(file, ipc.WithSchema(schema), ipc.WithAllocator(mem))
	if err != nil {
		file.Close()
		return nil, &IPCWriterError{Op: "create_writer", Err: err}
	}

	return &IPCWriter{
		file:      file,
		writer:    w,
		batch:     newBatchBuilder(mem, schema),
		batchSize: opts.BatchSize,
		stats:     WriterStats{NullValueCounts: make(map[string]int64)},
	}, nil
}

// Schema returns the schema the file is written with.
func (w *IPCWriter) Schema() *arrow.Schema {
	return w.batch.schema
}

// Stats returns the current statistics of the writer.
func (w *IPCWriter) Stats() WriterStats {
	stats := w.stats
	stats.NullValueCounts = w.batch.Nulls()
	return stats
}

// Write buffers one record, writing a batch when the buffer is full.
func (w *IPCWriter) Write(ctx context.Context, record core.Record) error {
	if w.closed {
		return &IPCWriterError{Op: "write", Err: errors.New("ipc writer is closed")}
	}
	if w.errored {
		return &IPCWriterError{Op: "write", Err: errors.New("writer is in error state")}
	}
	if err := ctx.Err(); err != nil {
		return &IPCWriterError{Op: "write", Err: err}
	}

	if err := w.batch.Append(record); err != nil {
		w.errored = true
		w.stats.ErrorCount++
		return &IPCWriterError{Op: "validate", Err: err}
	}
	w.stats.RecordsWritten++

	if w.batch.Len() >= w.batchSize {
		return w.flushBatch()
	}
	return nil
}

// Flush writes any buffered records.
func (w *IPCWriter) Flush() error {
	if w.closed {
		return nil
	}
	return w.flushBatch()
}

// Close flushes, writes the file footer and closes the file.
func (w *IPCWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	defer w.batch.Release()

	var firstErr error
	if !w.errored {
		firstErr = w.flushBatch()
	}
	if err := w.writer.Close(); err != nil && firstErr == nil {
		firstErr = &IPCWriterError{Op: "close_writer", Err: err}
	}
	if err := w.file.Close(); err != nil && !errors.Is(err, os.ErrClosed) && firstErr == nil {
		firstErr = &IPCWriterError{Op: "close_file", Err: err}
	}
	return firstErr
}

func (w *IPCWriter) flushBatch() error {
	if w.batch.Len() == 0 {
		return nil
	}
	start := time.Now()

	rec := w.batch.NewRecord()
	defer rec.Release()

	if err := w.writer.Write(rec); err != nil {
		w.errored = true
		w.stats.ErrorCount++
		return &IPCWriterError{Op: "write_batch", Err: err}
	}

	w.stats.BatchesWritten++
	w.stats.FlushDuration += time.Since(start)
	w.stats.LastFlushTime = time.Now()
	return nil
}

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

package readers

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/apache/arrow/go/v12/arrow"
	"github.com/apache/arrow/go/v12/arrow/ipc"
	"github.com/apache/arrow/go/v12/arrow/memory"

	"github.com/aaronlmathis/cupofmud/core"
)

// IPCReaderError wraps Arrow IPC read errors with the failing operation.
type IPCReaderError struct {
	Op  string
	Err error
}

func (e *IPCReaderError) Error() string {
	return fmt.Sprintf("ipc reader %s: %v", e.Op, e.Err)
}

func (e *IPCReaderError) Unwrap() error {
	return e.Err
}

// IPCReader implements DataSource for Arrow IPC (Feather v2) files.
type IPCReader struct {
	fileHandle *os.File
	reader     *ipc.FileReader
	batchIdx   int
	current    arrow.Record
	rowIdx     int
	stats      ReaderStats
}

// NewIPCReader opens an Arrow IPC file.
func NewIPCReader(filename string) (*IPCReader, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, &IPCReaderError{Op: "open_file", Err: err}
	}

	r, err := ipc.NewFileReader(f, ipc.WithAllocator(memory.NewGoAllocator()))
	if err != nil {
		f.Close()
		return nil, &IPCReaderError{Op: "create_reader", Err: err}
	}

	return &IPCReader{
		fileHandle: f,
		reader:     r,
		stats:      ReaderStats{NullValueCounts: make(map[string]int64)},
	}, nil
}

// Read returns the next row or io.EOF.
func (r *IPCReader) Read(ctx context.Context) (core.Record, error) {
	start := time.Now()
	defer func() {
		r.stats.ReadDuration += time.Since(start)
		r.stats.LastReadTime = time.Now()
	}()

	select {
	case <-ctx.Done():
		return nil, &IPCReaderError{Op: "read", Err: ctx.Err()}
	default:
	}

	for r.current == nil || r.rowIdx >= int(r.current.NumRows()) {
		if r.current != nil {
			r.current.Release()
			r.current = nil
		}
		if r.batchIdx >= r.reader.NumRecords() {
			return nil, io.EOF
		}
		rec, err := r.reader.Record(r.batchIdx)
		if err != nil {
			return nil, &IPCReaderError{Op: "load_batch", Err: err}
		}
		rec.Retain()
		r.current = rec
		r.batchIdx++
		r.rowIdx = 0
		r.stats.BatchesRead++
	}

	res := recordFromBatch(r.current, r.rowIdx, r.stats.NullValueCounts)
	r.rowIdx++
	r.stats.RecordsRead++
	return res, nil
}

// Schema returns the Arrow schema stored in the file.
func (r *IPCReader) Schema() *arrow.Schema {
	return r.reader.Schema()
}

// Columns returns the names of the columns each record carries, in order.
func (r *IPCReader) Columns() []string {
	return fieldNames(r.reader.Schema())
}

// Stats returns read statistics.
func (r *IPCReader) Stats() ReaderStats {
	return r.stats
}

// Close releases the current batch and closes the file.
func (r *IPCReader) Close() error {
	if r.current != nil {
		r.current.Release()
		r.current = nil
	}
	if r.reader != nil {
		r.reader.Close()
		r.reader = nil
	}
	if r.fileHandle != nil {
		err := r.fileHandle.Close()
		r.fileHandle = nil
		return err
	}
	return nil
}

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
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/aaronlmathis/cupofmud/core"
	"github.com/aaronlmathis/cupofmud/schema"
)

// byteOrderMark may prefix the first header of files saved by spreadsheet tools.
const byteOrderMark = "\ufeff"

// CSVReaderError wraps structured error information for the CSV reader.
type CSVReaderError struct {
	Op  string
	Err error
}

func (e *CSVReaderError) Error() string {
	return fmt.Sprintf("csv reader %s: %v", e.Op, e.Err)
}

func (e *CSVReaderError) Unwrap() error {
	return e.Err
}

// CSVReaderStats holds statistics about the CSV reader's performance.
type CSVReaderStats struct {
	RecordsRead     int64
	ReadDuration    time.Duration
	LastReadTime    time.Time
	NullValueCounts map[string]int64
	IgnoredColumns  []string // Header columns not declared in the schema
}

// CSVReaderOptions configures the CSV reader.
type CSVReaderOptions struct {
	Comma            rune
	Comment          rune
	LazyQuotes       bool
	TrimLeadingSpace bool
	HasHeaders       bool
	Schema           *schema.Schema // Declared column types; nil reads every cell as text
}

// ReaderOptionCSV allows functional customization of CSVReader.
type ReaderOptionCSV func(*CSVReaderOptions)

func WithCSVComma(r rune) ReaderOptionCSV {
	return func(o *CSVReaderOptions) { o.Comma = r }
}

func WithCSVHasHeaders(hasHeaders bool) ReaderOptionCSV {
	return func(o *CSVReaderOptions) { o.HasHeaders = hasHeaders }
}

func WithCSVTrimSpace(trim bool) ReaderOptionCSV {
	return func(o *CSVReaderOptions) { o.TrimLeadingSpace = trim }
}

// WithCSVSchema applies an explicit column schema. Every declared column must
// appear in the header and every cell is coerced to its declared kind; columns
// the schema does not declare are skipped.
func WithCSVSchema(s *schema.Schema) ReaderOptionCSV {
	return func(o *CSVReaderOptions) { o.Schema = s }
}

// CSVReader implements DataSource for CSV files.
type CSVReader struct {
	reader  *csv.Reader
	headers []string
	// positions maps each output column to its index in the file row.
	positions []int
	columns   []schema.Column
	closer    io.Closer
	row       int
	stats     CSVReaderStats
	opts      CSVReaderOptions
}

// NewCSVReader creates a CSVReader with default or overridden options.
// With a schema, header problems are reported as *core.SchemaMismatchError.
func NewCSVReader(r io.ReadCloser, options ...ReaderOptionCSV) (*CSVReader, error) {
	opts := CSVReaderOptions{
		Comma:      ',',
		HasHeaders: true,
	}

	for _, opt := range options {
		opt(&opts)
	}

	csvReader := csv.NewReader(r)
	csvReader.Comma = opts.Comma
	csvReader.Comment = opts.Comment
	csvReader.LazyQuotes = opts.LazyQuotes
	csvReader.TrimLeadingSpace = opts.TrimLeadingSpace
	csvReader.ReuseRecord = true

	reader := &CSVReader{
		reader: csvReader,
		closer: r,
		opts:   opts,
		stats:  CSVReaderStats{NullValueCounts: make(map[string]int64)},
	}

	if !opts.HasHeaders {
		if opts.Schema != nil {
			return nil, &CSVReaderError{Op: "options", Err: errors.New("a schema requires a header row")}
		}
		return reader, nil
	}

	headers, err := csvReader.Read()
	if err != nil {
		if opts.Schema != nil {
			return nil, &core.SchemaMismatchError{Err: fmt.Errorf("read header: %w", err)}
		}
		return nil, &CSVReaderError{Op: "read_headers", Err: err}
	}
	reader.headers = append([]string(nil), headers...)
	reader.headers[0] = strings.TrimPrefix(reader.headers[0], byteOrderMark)

	if err := reader.bindHeaders(); err != nil {
		return nil, err
	}

	return reader, nil
}

// bindHeaders resolves the position of each output column in the header row.
func (c *CSVReader) bindHeaders() error {
	seen := make(map[string]int, len(c.headers))
	for i, h := range c.headers {
		if _, dup := seen[h]; dup {
			return &core.SchemaMismatchError{Column: h, Err: errors.New("duplicate header")}
		}
		seen[h] = i
	}

	if c.opts.Schema == nil {
		c.columns = make([]schema.Column, len(c.headers))
		c.positions = make([]int, len(c.headers))
		for i, h := range c.headers {
			c.columns[i] = schema.Column{Name: h, Kind: schema.Utf8}
			c.positions[i] = i
		}
		return nil
	}

	c.columns = c.opts.Schema.Columns()
	c.positions = make([]int, len(c.columns))
	for i, col := range c.columns {
		pos, ok := seen[col.Name]
		if !ok {
			return &core.SchemaMismatchError{Column: col.Name, Err: errors.New("missing from header")}
		}
		c.positions[i] = pos
	}
	for _, h := range c.headers {
		if _, declared := c.opts.Schema.Lookup(h); !declared {
			c.stats.IgnoredColumns = append(c.stats.IgnoredColumns, h)
		}
	}
	return nil
}

// Columns returns the names of the columns each record carries, in order.
func (c *CSVReader) Columns() []string {
	names := make([]string, len(c.columns))
	for i, col := range c.columns {
		names[i] = col.Name
	}
	return names
}

// Read implements the DataSource interface.
func (c *CSVReader) Read(ctx context.Context) (core.Record, error) {
	start := time.Now()

	select {
	case <-ctx.Done():
		return nil, &CSVReaderError{Op: "read", Err: ctx.Err()}
	default:
	}

	record, err := c.reader.Read()
	if err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		if c.opts.Schema != nil {
			return nil, &core.SchemaMismatchError{Row: c.row + 1, Err: err}
		}
		return nil, &CSVReaderError{Op: "read_record", Err: err}
	}
	c.row++

	if c.columns == nil {
		// Headerless input: name columns by position.
		res := make(core.Record, len(record))
		for i, val := range record {
			key := "col_" + strconv.Itoa(i)
			res[key] = c.cell(key, schema.Utf8, val)
		}
		c.finishRead(start)
		return res, nil
	}

	res := make(core.Record, len(c.columns))
	for i, col := range c.columns {
		raw := record[c.positions[i]]
		value, err := schema.Coerce(col.Kind, raw)
		if err != nil {
			return nil, &core.SchemaMismatchError{Column: col.Name, Row: c.row, Value: raw, Err: err}
		}
		if value == nil {
			c.stats.NullValueCounts[col.Name]++
		}
		res[col.Name] = value
	}

	c.finishRead(start)
	return res, nil
}

func (c *CSVReader) cell(key string, kind schema.Kind, raw string) interface{} {
	value, _ := schema.Coerce(kind, raw)
	if value == nil {
		c.stats.NullValueCounts[key]++
	}
	return value
}

func (c *CSVReader) finishRead(start time.Time) {
	c.stats.RecordsRead++
	c.stats.LastReadTime = time.Now()
	c.stats.ReadDuration += time.Since(start)
}

// Close implements the DataSource interface.
func (c *CSVReader) Close() error {
	if c.closer != nil {
		return c.closer.Close()
	}
	return nil
}

// Stats returns CSV reader performance stats.
func (c *CSVReader) Stats() CSVReaderStats {
	return c.stats
}

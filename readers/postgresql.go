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
	"database/sql"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"
	"time"

	"github.com/lib/pq" // PostgreSQL driver

	"github.com/aaronlmathis/cupofmud/core"
)

// PostgresReaderError provides structured error information for Postgres reader operations
type PostgresReaderError struct {
	Op  string // Operation that failed (e.g., "connect", "query", "scan", "read")
	Err error  // Underlying error
}

func (e *PostgresReaderError) Error() string {
	return fmt.Sprintf("postgres reader %s: %v", e.Op, e.Err)
}

func (e *PostgresReaderError) Unwrap() error {
	return e.Err
}

// PostgresReader streams the rows of one query. It is used to read back the
// relational mirror written by writers.PostgresWriter.
type PostgresReader struct {
	db          *sql.DB
	rows        *sql.Rows
	columnNames []string
	dbTypes     []string
	values      []interface{}
	scanBuffer  []interface{}
	stats       PostgresReaderStats
	finished    bool
}

// PostgresReaderStats holds statistics about the Postgres reader's performance
type PostgresReaderStats struct {
	RecordsRead     int64
	QueryDuration   time.Duration
	ReadDuration    time.Duration
	NullValueCounts map[string]int64
}

// PostgresReaderOptions configures the Postgres reader
type PostgresReaderOptions struct {
	DSN          string        // Database connection string
	Query        string        // SQL query to execute
	Params       []interface{} // Optional query parameters
	QueryTimeout time.Duration // Connect and query timeout
}

// PostgresReaderOption represents a configuration function for PostgresReaderOptions
type PostgresReaderOption func(*PostgresReaderOptions)

// WithPostgresDSN sets the PostgreSQL connection string.
func WithPostgresDSN(dsn string) PostgresReaderOption {
	return func(opts *PostgresReaderOptions) {
		opts.DSN = dsn
	}
}

// WithPostgresQuery sets the SQL query and optional parameters.
func WithPostgresQuery(query string, params ...interface{}) PostgresReaderOption {
	return func(opts *PostgresReaderOptions) {
		opts.Query = query
		opts.Params = params
	}
}

// WithPostgresTable reads the given columns of table, or every column when
// none are named.
func WithPostgresTable(table string, columns ...string) PostgresReaderOption {
	return func(opts *PostgresReaderOptions) {
		opts.Query = selectTableQuery(table, columns)
		opts.Params = nil
	}
}

// WithPostgresQueryTimeout bounds connecting and running the query.
func WithPostgresQueryTimeout(timeout time.Duration) PostgresReaderOption {
	return func(opts *PostgresReaderOptions) {
		opts.QueryTimeout = timeout
	}
}

// NewPostgresReader connects and runs the query.
func NewPostgresReader(ctx context.Context, options ...PostgresReaderOption) (*PostgresReader, error) {
	opts := &PostgresReaderOptions{QueryTimeout: 30 * time.Second}
	for _, option := range options {
		option(opts)
	}
	if opts.DSN == "" {
		return nil, &PostgresReaderError{Op: "validate", Err: errors.New("dsn is required")}
	}
	if opts.Query == "" {
		return nil, &PostgresReaderError{Op: "validate", Err: errors.New("query is required")}
	}

	db, err := sql.Open("postgres", opts.DSN)
	if err != nil {
		return nil, &PostgresReaderError{Op: "connect", Err: err}
	}

	if opts.QueryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.QueryTimeout)
		defer cancel()
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, &PostgresReaderError{Op: "ping", Err: err}
	}

	reader := &PostgresReader{
		db:    db,
		stats: PostgresReaderStats{NullValueCounts: make(map[string]int64)},
	}

	start := time.Now()
	// The rows must outlive the timeout context, so the query runs unbounded.
	reader.rows, err = db.QueryContext(context.WithoutCancel(ctx), opts.Query, opts.Params...)
	if err != nil {
		reader.Close()
		return nil, &PostgresReaderError{Op: "query", Err: err}
	}
	reader.stats.QueryDuration = time.Since(start)

	if reader.columnNames, err = reader.rows.Columns(); err != nil {
		reader.Close()
		return nil, &PostgresReaderError{Op: "columns", Err: err}
	}
	types, err := reader.rows.ColumnTypes()
	if err != nil {
		reader.Close()
		return nil, &PostgresReaderError{Op: "column_types", Err: err}
	}
	reader.dbTypes = make([]string, len(types))
	for i, ct := range types {
		reader.dbTypes[i] = ct.DatabaseTypeName()
	}

	reader.values = make([]interface{}, len(reader.columnNames))
	reader.scanBuffer = make([]interface{}, len(reader.columnNames))
	for i := range reader.scanBuffer {
		reader.scanBuffer[i] = &reader.values[i]
	}
	return reader, nil
}

// Read implements the core.DataSource interface.
func (p *PostgresReader) Read(ctx context.Context) (core.Record, error) {
	start := time.Now()
	defer func() { p.stats.ReadDuration += time.Since(start) }()

	select {
	case <-ctx.Done():
		return nil, &PostgresReaderError{Op: "read", Err: ctx.Err()}
	default:
	}

	if p.finished || p.rows == nil {
		return nil, io.EOF
	}
	if !p.rows.Next() {
		if err := p.rows.Err(); err != nil {
			return nil, &PostgresReaderError{Op: "read", Err: err}
		}
		p.finished = true
		return nil, io.EOF
	}
	if err := p.rows.Scan(p.scanBuffer...); err != nil {
		return nil, &PostgresReaderError{Op: "scan", Err: err}
	}

	record := make(core.Record, len(p.columnNames))
	for i, name := range p.columnNames {
		if p.values[i] == nil {
			p.stats.NullValueCounts[name]++
			record[name] = nil
			continue
		}
		record[name] = convertSQLValue(p.values[i], p.dbTypes[i])
	}
	p.stats.RecordsRead++
	return record, nil
}

// Columns returns the result column names in order.
func (p *PostgresReader) Columns() []string {
	return p.columnNames
}

// Stats returns read statistics.
func (p *PostgresReader) Stats() PostgresReaderStats {
	return p.stats
}

// Close releases the result set and the connection pool.
func (p *PostgresReader) Close() error {
	var errs []error
	if p.rows != nil {
		if err := p.rows.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing rows: %w", err))
		}
		p.rows = nil
	}
	if p.db != nil {
		if err := p.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing database: %w", err))
		}
		p.db = nil
	}
	if len(errs) > 0 {
		return &PostgresReaderError{Op: "close", Err: errors.Join(errs...)}
	}
	return nil
}

func selectTableQuery(table string, columns []string) string {
	parts := strings.Split(table, ".")
	for i, part := range parts {
		parts[i] = pq.QuoteIdentifier(part)
	}
	list := "*"
	if len(columns) > 0 {
		quoted := make([]string, len(columns))
		for i, c := range columns {
			quoted[i] = pq.QuoteIdentifier(c)
		}
		list = strings.Join(quoted, ", ")
	}
	return fmt.Sprintf("SELECT %s FROM %s", list, strings.Join(parts, "."))
}

// convertSQLValue converts SQL driver values to the Go types records carry.
func convertSQLValue(value interface{}, dbType string) interface{} {
	if b, ok := value.([]byte); ok {
		switch dbType {
		case "TEXT", "VARCHAR", "CHAR", "BPCHAR", "NUMERIC":
			return string(b)
		default:
			return b
		}
	}

	switch v := value.(type) {
	case time.Time, bool, int64, float64, string:
		return v
	default:
		rv := reflect.ValueOf(v)
		switch rv.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32:
			return rv.Int()
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			return int64(rv.Uint())
		case reflect.Float32:
			return rv.Float()
		default:
			return fmt.Sprintf("%v", v)
		}
	}
}

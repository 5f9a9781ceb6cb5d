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
	"fmt"

	"github.com/apache/arrow/go/v12/arrow"
	"github.com/apache/arrow/go/v12/arrow/array"
	"github.com/apache/arrow/go/v12/arrow/memory"

	"github.com/aaronlmathis/cupofmud/core"
)

// Package writers provides implementations of core.DataSink for the columnar
// output formats and the PostgreSQL mirror.
//
// This file holds the record-to-Arrow batch builder shared by the Parquet and
// Arrow IPC writers.

// batchBuilder accumulates records into Arrow column builders for a fixed schema.
type batchBuilder struct {
	schema  *arrow.Schema
	builder *array.RecordBuilder
	rows    int64
	scratch []interface{}
	nulls   map[string]int64
}

func newBatchBuilder(mem memory.Allocator, schema *arrow.Schema) *batchBuilder {
	return &batchBuilder{
		schema:  schema,
		builder: array.NewRecordBuilder(mem, schema),
		scratch: make([]interface{}, len(schema.Fields())),
		nulls:   make(map[string]int64),
	}
}

// Append adds one record. Values are checked against the schema before any
// column is touched, so a rejected record leaves the batch unchanged.
func (b *batchBuilder) Append(record core.Record) error {
	fields := b.schema.Fields()
	for i, field := range fields {
		v, err := normalizeValue(field, record[field.Name])
		if err != nil {
			return err
		}
		b.scratch[i] = v
	}

	for i, field := range fields {
		fb := b.builder.Field(i)
		if b.scratch[i] == nil {
			fb.AppendNull()
			b.nulls[field.Name]++
			continue
		}
		switch builder := fb.(type) {
		case *array.Int64Builder:
			builder.Append(b.scratch[i].(int64))
		case *array.Float64Builder:
			builder.Append(b.scratch[i].(float64))
		case *array.StringBuilder:
			builder.Append(b.scratch[i].(string))
		case *array.BooleanBuilder:
			builder.Append(b.scratch[i].(bool))
		}
	}
	b.rows++
	return nil
}

// Len returns the number of buffered rows.
func (b *batchBuilder) Len() int64 {
	return b.rows
}

// NewRecord returns the buffered rows as an Arrow record and resets the builder.
// The caller must release the record.
func (b *batchBuilder) NewRecord() arrow.Record {
	b.rows = 0
	return b.builder.NewRecord()
}

// Nulls returns the null count per column over all appended records.
func (b *batchBuilder) Nulls() map[string]int64 {
	out := make(map[string]int64, len(b.nulls))
	for k, v := range b.nulls {
		out[k] = v
	}
	return out
}

func (b *batchBuilder) Release() {
	if b.builder != nil {
		b.builder.Release()
		b.builder = nil
	}
}

// normalizeValue converts a Go value to the canonical type for the field.
func normalizeValue(field arrow.Field, value interface{}) (interface{}, error) {
	if value == nil {
		if !field.Nullable {
			return nil, fmt.Errorf("field %s: null in non-nullable column", field.Name)
		}
		return nil, nil
	}

	switch field.Type.ID() {
	case arrow.INT64:
		switch v := value.(type) {
		case int64:
			return v, nil
		case int:
			return int64(v), nil
		case int32:
			return int64(v), nil
		}
	case arrow.FLOAT64:
		switch v := value.(type) {
		case float64:
			return v, nil
		case float32:
			return float64(v), nil
		case int64:
			return float64(v), nil
		case int:
			return float64(v), nil
		}
	case arrow.STRING:
		if v, ok := value.(string); ok {
			return v, nil
		}
	case arrow.BOOL:
		if v, ok := value.(bool); ok {
			return v, nil
		}
	default:
		return nil, fmt.Errorf("field %s: unsupported arrow type %s", field.Name, field.Type)
	}
	return nil, fmt.Errorf("field %s: expected %s, got %T", field.Name, field.Type, value)
}

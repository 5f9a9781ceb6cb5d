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

package schema

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/apache/arrow/go/v12/arrow"
)

// Package schema declares explicit column types for tabular input and output.
//
// A Schema is applied at read time instead of inferring types from values, and
// maps onto an Arrow schema for the columnar writers.

// Kind is the declared type of a column.
type Kind int

const (
	// Utf8 is free text.
	Utf8 Kind = iota
	// Categorical is text drawn from a small repeated set of values. It is a
	// plain string in memory; writers may dictionary-encode it.
	Categorical
	// Int64 is a signed 64-bit integer.
	Int64
	// Float64 is a double-precision float.
	Float64
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case Utf8:
		return "utf8"
	case Categorical:
		return "categorical"
	case Int64:
		return "int64"
	case Float64:
		return "float64"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ArrowType returns the Arrow data type used to store the kind.
func (k Kind) ArrowType() arrow.DataType {
	switch k {
	case Int64:
		return arrow.PrimitiveTypes.Int64
	case Float64:
		return arrow.PrimitiveTypes.Float64
	default:
		return arrow.BinaryTypes.String
	}
}

// Column is one declared column.
type Column struct {
	Name string
	Kind Kind
}

// Schema is an ordered list of declared columns.
type Schema struct {
	columns []Column
	index   map[string]int
}

// New creates a schema from columns. Column names must be unique.
func New(columns ...Column) (*Schema, error) {
	s := &Schema{
		columns: make([]Column, len(columns)),
		index:   make(map[string]int, len(columns)),
	}
	for i, c := range columns {
		if _, dup := s.index[c.Name]; dup {
			return nil, fmt.Errorf("duplicate column %q", c.Name)
		}
		s.columns[i] = c
		s.index[c.Name] = i
	}
	return s, nil
}

// MustNew is like New but panics on error. It is meant for package-level
// schema declarations.
func MustNew(columns ...Column) *Schema {
	s, err := New(columns...)
	if err != nil {
		panic(err)
	}
	return s
}

// Columns returns a copy of the declared columns in order.
func (s *Schema) Columns() []Column {
	out := make([]Column, len(s.columns))
	copy(out, s.columns)
	return out
}

// Names returns the column names in order.
func (s *Schema) Names() []string {
	names := make([]string, len(s.columns))
	for i, c := range s.columns {
		names[i] = c.Name
	}
	return names
}

// Len returns the number of columns.
func (s *Schema) Len() int {
	return len(s.columns)
}

// Lookup returns the column declared under name.
func (s *Schema) Lookup(name string) (Column, bool) {
	i, ok := s.index[name]
	if !ok {
		return Column{}, false
	}
	return s.columns[i], true
}

// Project returns a new schema holding only the named columns, in the given order.
func (s *Schema) Project(names ...string) (*Schema, error) {
	cols := make([]Column, 0, len(names))
	for _, name := range names {
		c, ok := s.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("column %q not in schema", name)
		}
		cols = append(cols, c)
	}
	return New(cols...)
}

// Arrow returns the Arrow schema for the declared columns. Every field is
// nullable. metadata may be nil.
func (s *Schema) Arrow(metadata map[string]string) *arrow.Schema {
	fields := make([]arrow.Field, len(s.columns))
	for i, c := range s.columns {
		fields[i] = arrow.Field{Name: c.Name, Type: c.Kind.ArrowType(), Nullable: true}
	}
	if len(metadata) == 0 {
		return arrow.NewSchema(fields, nil)
	}
	md := arrow.MetadataFrom(metadata)
	return arrow.NewSchema(fields, &md)
}

// Coerce converts a raw text cell to the Go value of kind. An empty cell is
// null for every kind. Numeric kinds ignore surrounding whitespace; text kinds
// keep the value verbatim.
func Coerce(kind Kind, raw string) (interface{}, error) {
	switch kind {
	case Utf8, Categorical:
		if raw == "" {
			return nil, nil
		}
		return raw, nil
	case Int64:
		v := strings.TrimSpace(raw)
		if v == "" {
			return nil, nil
		}
		return strconv.ParseInt(v, 10, 64)
	case Float64:
		v := strings.TrimSpace(raw)
		if v == "" {
			return nil, nil
		}
		return strconv.ParseFloat(v, 64)
	default:
		return nil, fmt.Errorf("unsupported kind %s", kind)
	}
}

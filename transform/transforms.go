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

package transform

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/aaronlmathis/cupofmud/core"
)

// Package transform provides reusable, composable data transformation functions.
//
// Record-level functions return core.Transformer implementations; ApplyTable
// and SortTable work on whole tables.

// Select creates a transformer that projects each record onto the specified
// fields in order. A field absent from the record is null in the result.
func Select(fields ...string) core.Transformer {
	return core.TransformFunc(func(ctx context.Context, record core.Record) (core.Record, error) {
		result := make(core.Record, len(fields))
		for _, field := range fields {
			result[field] = record[field]
		}
		return result, nil
	})
}

// AddField creates a transformer that adds a new field with a computed value to each record.
// The value is computed by the provided function, which receives the current record.
func AddField(field string, fn func(core.Record) (interface{}, error)) core.Transformer {
	return core.TransformFunc(func(ctx context.Context, record core.Record) (core.Record, error) {
		value, err := fn(record)
		if err != nil {
			return nil, err
		}
		result := record.Clone()
		result[field] = value
		return result, nil
	})
}

// ParseUnit creates a transformer that strips suffix (e.g. " kg") from the
// string in field and stores the remaining number as a float64 in out.
// Surrounding whitespace is ignored. A null input gives a null output.
func ParseUnit(field, suffix, out string) core.Transformer {
	return AddField(out, func(record core.Record) (interface{}, error) {
		value := record[field]
		if value == nil {
			return nil, nil
		}
		str, ok := value.(string)
		if !ok {
			return nil, &core.ValueCoercionError{Column: field, Value: value, Err: fmt.Errorf("expected string, got %T", value)}
		}

		trimmed := strings.TrimSpace(str)
		if !strings.HasSuffix(trimmed, suffix) {
			return nil, &core.ValueCoercionError{Column: field, Value: value, Err: fmt.Errorf("missing %q suffix", suffix)}
		}
		number := strings.TrimSpace(strings.TrimSuffix(trimmed, suffix))
		parsed, err := strconv.ParseFloat(number, 64)
		if err != nil {
			return nil, &core.ValueCoercionError{Column: field, Value: value, Err: err}
		}
		return parsed, nil
	})
}

// Multiply creates a transformer that stores a*b as a float64 in out. If either
// operand is null the product is null.
func Multiply(a, b, out string) core.Transformer {
	return AddField(out, func(record core.Record) (interface{}, error) {
		av, bv := record[a], record[b]
		if av == nil || bv == nil {
			return nil, nil
		}
		x, err := toFloat(a, av)
		if err != nil {
			return nil, err
		}
		y, err := toFloat(b, bv)
		if err != nil {
			return nil, err
		}
		return x * y, nil
	})
}

// Chain composes transformers left to right.
func Chain(transformers ...core.Transformer) core.Transformer {
	return core.TransformFunc(func(ctx context.Context, record core.Record) (core.Record, error) {
		var err error
		for _, t := range transformers {
			record, err = t.Transform(ctx, record)
			if err != nil {
				return nil, err
			}
		}
		return record, nil
	})
}

// ApplyTable runs the transformers over every row of table and returns a new
// table with the given columns. Row numbers are filled in on any
// ValueCoercionError.
func ApplyTable(ctx context.Context, table *core.Table, columns []string, transformers ...core.Transformer) (*core.Table, error) {
	chain := Chain(transformers...)
	out := core.NewTable(columns)
	out.Rows = make([]core.Record, 0, table.Len())

	for i, row := range table.Rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		result, err := chain.Transform(ctx, row)
		if err != nil {
			var coerceErr *core.ValueCoercionError
			if errors.As(err, &coerceErr) && coerceErr.Row == 0 {
				coerceErr.Row = i + 1
			}
			return nil, err
		}
		out.Append(result)
	}
	return out, nil
}

func toFloat(column string, value interface{}) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case int:
		return float64(v), nil
	default:
		return 0, &core.ValueCoercionError{Column: column, Value: value, Err: fmt.Errorf("cannot convert %T to float64", value)}
	}
}

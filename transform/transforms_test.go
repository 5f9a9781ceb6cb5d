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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aaronlmathis/cupofmud/core"
)

func TestSelect(t *testing.T) {
	rec := core.Record{"a": 1, "b": "x", "c": nil}
	out, err := Select("b", "missing").Transform(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, core.Record{"b": "x", "missing": nil}, out)
}

func TestAddField_DoesNotMutateInput(t *testing.T) {
	rec := core.Record{"a": int64(2)}
	out, err := AddField("b", func(r core.Record) (interface{}, error) {
		return r["a"].(int64) * 2, nil
	}).Transform(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, core.Record{"a": int64(2), "b": int64(4)}, out)
	assert.NotContains(t, rec, "b")
}

func TestParseUnit(t *testing.T) {
	tr := ParseUnit("Bag Weight", " kg", "Bag Weight Normalized")
	ctx := context.Background()

	tests := []struct {
		in   interface{}
		want interface{}
	}{
		{"60 kg", 60.0},
		{"1 kg", 1.0},
		{"69.5 kg", 69.5},
		{" 30 kg ", 30.0},
		{nil, nil},
	}
	for _, tt := range tests {
		out, err := tr.Transform(ctx, core.Record{"Bag Weight": tt.in})
		require.NoError(t, err, "%v", tt.in)
		assert.Equal(t, tt.want, out["Bag Weight Normalized"], "%v", tt.in)
	}

	for _, bad := range []interface{}{"60", "60 lbs", "kg", "sixty kg", int64(60)} {
		_, err := tr.Transform(ctx, core.Record{"Bag Weight": bad})
		var coerceErr *core.ValueCoercionError
		require.True(t, errors.As(err, &coerceErr), "%v", bad)
		assert.Equal(t, "Bag Weight", coerceErr.Column)
		assert.Equal(t, bad, coerceErr.Value)
	}
}

func TestMultiply(t *testing.T) {
	tr := Multiply("Number of Bags", "Bag Weight Normalized", "Total Production Weight")
	ctx := context.Background()

	out, err := tr.Transform(ctx, core.Record{"Number of Bags": int64(10), "Bag Weight Normalized": 60.0})
	require.NoError(t, err)
	assert.Equal(t, 600.0, out["Total Production Weight"])

	out, err = tr.Transform(ctx, core.Record{"Number of Bags": nil, "Bag Weight Normalized": 60.0})
	require.NoError(t, err)
	assert.Nil(t, out["Total Production Weight"])
	assert.Contains(t, out, "Total Production Weight")

	out, err = tr.Transform(ctx, core.Record{"Number of Bags": int64(0), "Bag Weight Normalized": 60.0})
	require.NoError(t, err)
	assert.Equal(t, 0.0, out["Total Production Weight"])

	_, err = tr.Transform(ctx, core.Record{"Number of Bags": "ten", "Bag Weight Normalized": 60.0})
	var coerceErr *core.ValueCoercionError
	assert.True(t, errors.As(err, &coerceErr))
}

func TestApplyTable_SetsRowOnError(t *testing.T) {
	table := core.NewTable([]string{"Bag Weight"})
	table.Append(core.Record{"Bag Weight": "1 kg"})
	table.Append(core.Record{"Bag Weight": "2 kg"})
	table.Append(core.Record{"Bag Weight": "three"})

	_, err := ApplyTable(context.Background(), table, []string{"w"}, ParseUnit("Bag Weight", " kg", "w"))
	var coerceErr *core.ValueCoercionError
	require.True(t, errors.As(err, &coerceErr))
	assert.Equal(t, 3, coerceErr.Row)
}

func TestApplyTable(t *testing.T) {
	table := core.NewTable([]string{"n", "w"})
	table.Append(core.Record{"n": int64(2), "w": "5 kg"})

	out, err := ApplyTable(context.Background(), table, []string{"n", "total"},
		ParseUnit("w", " kg", "wn"),
		Multiply("n", "wn", "total"),
		Select("n", "total"),
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"n", "total"}, out.Columns)
	assert.Equal(t, []core.Record{{"n": int64(2), "total": 10.0}}, out.Rows)
	assert.Equal(t, core.Record{"n": int64(2), "w": "5 kg"}, table.Rows[0], "input untouched")
}

func TestApplyTable_Cancelled(t *testing.T) {
	table := core.NewTable([]string{"n"})
	table.Append(core.Record{"n": int64(1)})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := ApplyTable(ctx, table, []string{"n"}, Select("n"))
	assert.ErrorIs(t, err, context.Canceled)
}

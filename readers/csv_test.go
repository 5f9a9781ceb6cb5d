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
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aaronlmathis/cupofmud/core"
	"github.com/aaronlmathis/cupofmud/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var lotSchema = schema.MustNew(
	schema.Column{Name: "ID", Kind: schema.Int64},
	schema.Column{Name: "Country of Origin", Kind: schema.Categorical},
	schema.Column{Name: "Bag Weight", Kind: schema.Utf8},
	schema.Column{Name: "Aroma", Kind: schema.Float64},
)

func readAll(t *testing.T, r *CSVReader) ([]core.Record, error) {
	t.Helper()
	var out []core.Record
	for {
		rec, err := r.Read(context.Background())
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, rec)
	}
}

func TestCSVReader_SchemaCoercion(t *testing.T) {
	data := `,ID,Country of Origin,Bag Weight,Aroma
0,1,Brazil,60 kg,8.5
1,2,Colombia,,
2,3,,1 kg,7.25
`
	r, err := NewCSVReader(io.NopCloser(strings.NewReader(data)), WithCSVSchema(lotSchema))
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, []string{"ID", "Country of Origin", "Bag Weight", "Aroma"}, r.Columns())

	records, err := readAll(t, r)
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, core.Record{
		"ID":                int64(1),
		"Country of Origin": "Brazil",
		"Bag Weight":        "60 kg",
		"Aroma":             8.5,
	}, records[0])
	assert.Nil(t, records[1]["Bag Weight"])
	assert.Nil(t, records[1]["Aroma"])
	assert.Nil(t, records[2]["Country of Origin"])
	assert.NotContains(t, records[0], "", "undeclared columns are dropped")

	stats := r.Stats()
	assert.Equal(t, int64(3), stats.RecordsRead)
	assert.Equal(t, []string{""}, stats.IgnoredColumns)
	assert.Equal(t, int64(1), stats.NullValueCounts["Aroma"])
}

func TestCSVReader_SchemaMismatch(t *testing.T) {
	tests := []struct {
		name       string
		data       string
		atOpen     bool
		wantColumn string
		wantRow    int
	}{
		{
			name:       "missing column",
			data:       "ID,Country of Origin,Aroma\n1,Brazil,8\n",
			atOpen:     true,
			wantColumn: "Bag Weight",
		},
		{
			name:       "header is case sensitive",
			data:       "id,Country of Origin,Bag Weight,Aroma\n1,Brazil,60 kg,8\n",
			atOpen:     true,
			wantColumn: "ID",
		},
		{
			name:       "duplicate header",
			data:       "ID,ID,Country of Origin,Bag Weight,Aroma\n",
			atOpen:     true,
			wantColumn: "ID",
		},
		{
			name:       "non integer id",
			data:       "ID,Country of Origin,Bag Weight,Aroma\n1,Brazil,60 kg,8\nx,Peru,1 kg,7\n",
			wantColumn: "ID",
			wantRow:    2,
		},
		{
			name:       "non float score",
			data:       "ID,Country of Origin,Bag Weight,Aroma\n1,Brazil,60 kg,high\n",
			wantColumn: "Aroma",
			wantRow:    1,
		},
		{
			name:    "short row",
			data:    "ID,Country of Origin,Bag Weight,Aroma\n1,Brazil\n",
			wantRow: 1,
		},
		{
			name:   "empty file",
			data:   "",
			atOpen: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewCSVReader(io.NopCloser(strings.NewReader(tt.data)), WithCSVSchema(lotSchema))
			if !tt.atOpen {
				require.NoError(t, err)
				_, err = readAll(t, r)
			}
			require.Error(t, err)

			var mismatch *core.SchemaMismatchError
			require.True(t, errors.As(err, &mismatch), "got %T: %v", err, err)
			assert.Equal(t, tt.wantColumn, mismatch.Column)
			assert.Equal(t, tt.wantRow, mismatch.Row)
		})
	}
}

func TestCSVReader_WithoutSchema(t *testing.T) {
	data := "a;b\n1;\n"
	r, err := NewCSVReader(io.NopCloser(strings.NewReader(data)), WithCSVComma(';'))
	require.NoError(t, err)

	records, err := readAll(t, r)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "1", records[0]["a"], "values stay text without a schema")
	assert.Nil(t, records[0]["b"])
}

func TestCSVReader_ByteOrderMark(t *testing.T) {
	data := "\ufeffID,Country of Origin,Bag Weight,Aroma\n1,Brazil,60 kg,8.5\n"
	r, err := NewCSVReader(io.NopCloser(strings.NewReader(data)), WithCSVSchema(lotSchema))
	require.NoError(t, err)
	defer r.Close()

	records, err := readAll(t, r)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, int64(1), records[0]["ID"])
	assert.Equal(t, "Brazil", records[0]["Country of Origin"])

	r, err = NewCSVReader(io.NopCloser(strings.NewReader("\ufeffa,b\nx,y\n")))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, r.Columns())
}

func TestCSVReader_Headerless(t *testing.T) {
	r, err := NewCSVReader(io.NopCloser(strings.NewReader("x,y\n")), WithCSVHasHeaders(false))
	require.NoError(t, err)

	records, err := readAll(t, r)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "y", records[0]["col_1"])

	_, err = NewCSVReader(io.NopCloser(strings.NewReader("x\n")), WithCSVHasHeaders(false), WithCSVSchema(lotSchema))
	var readerErr *CSVReaderError
	assert.True(t, errors.As(err, &readerErr))
}

func TestCSVReader_ContextCancelled(t *testing.T) {
	r, err := NewCSVReader(io.NopCloser(strings.NewReader("a\n1\n")))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.Read(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

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
	"testing"

	"github.com/apache/arrow/go/v12/arrow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateTableStatement(t *testing.T) {
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "Country of Origin", Type: arrow.BinaryTypes.String, Nullable: true},
		{Name: "Number of Bags", Type: arrow.PrimitiveTypes.Int64, Nullable: true},
		{Name: "Total Production Weight", Type: arrow.PrimitiveTypes.Float64, Nullable: false},
	}, nil)

	query, err := createTableStatement("curated.arabica", schema)
	require.NoError(t, err)
	assert.Equal(t,
		`CREATE TABLE IF NOT EXISTS "curated"."arabica" ("Country of Origin" TEXT, "Number of Bags" BIGINT, "Total Production Weight" DOUBLE PRECISION NOT NULL)`,
		query)

	_, err = createTableStatement("t", arrow.NewSchema([]arrow.Field{
		{Name: "when", Type: arrow.FixedWidthTypes.Date32},
	}, nil))
	assert.Error(t, err)
}

func TestInsertStatement(t *testing.T) {
	query := insertStatement("arabica", []string{"ID", "Bag Weight"})
	assert.Equal(t, `INSERT INTO "arabica" ("ID", "Bag Weight") VALUES ($1, $2)`, query)
}

func TestQuoteTableName(t *testing.T) {
	assert.Equal(t, `"public"."my""table"`, quoteTableName(`public.my"table`))
}

func TestValidatePostgresOptions(t *testing.T) {
	schema := arrow.NewSchema([]arrow.Field{{Name: "ID", Type: arrow.PrimitiveTypes.Int64}}, nil)

	tests := []struct {
		name string
		opts []PostgresWriterOption
		ok   bool
	}{
		{"complete", []PostgresWriterOption{WithPostgresDSN("postgres://localhost/db"), WithTableName("t"), WithPostgresSchema(schema)}, true},
		{"no dsn", []PostgresWriterOption{WithTableName("t"), WithPostgresSchema(schema)}, false},
		{"no table", []PostgresWriterOption{WithPostgresDSN("x"), WithPostgresSchema(schema)}, false},
		{"no schema", []PostgresWriterOption{WithPostgresDSN("x"), WithTableName("t")}, false},
		{"bad batch", []PostgresWriterOption{WithPostgresDSN("x"), WithTableName("t"), WithPostgresSchema(schema), WithPostgresBatchSize(0)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := defaultPostgresOptions()
			for _, o := range tt.opts {
				o(opts)
			}
			err := validatePostgresOptions(opts)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

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
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aaronlmathis/cupofmud/core"
	"github.com/aaronlmathis/cupofmud/readers"
)

func TestIPCWriter_RoundTrip(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "round_trip.arrow")

	writer, err := NewIPCWriter(filename, WithSchema(testSchema()), WithBatchSize(2))
	require.NoError(t, err)

	table := core.NewTable([]string{"Country of Origin", "Number of Bags", "Bag Weight Normalized", "Graded"})
	for _, rec := range testRecords() {
		table.Append(rec)
	}

	ctx := context.Background()
	require.NoError(t, WriteTable(ctx, writer, table))
	assert.Equal(t, int64(2), writer.Stats().BatchesWritten)
	require.NoError(t, writer.Close())

	reader, err := readers.NewIPCReader(filename)
	require.NoError(t, err)
	defer reader.Close()

	got, err := readers.ReadTable(ctx, reader)
	require.NoError(t, err)
	assert.True(t, table.Equal(got), "want %v, got %v", table.Rows, got.Rows)
}

func TestIPCWriter_RejectsMismatch(t *testing.T) {
	writer, err := NewIPCWriter(filepath.Join(t.TempDir(), "bad.arrow"), WithSchema(testSchema()))
	require.NoError(t, err)
	defer writer.Close()

	err = writer.Write(context.Background(), core.Record{"Graded": "yes"})
	var ipcErr *IPCWriterError
	require.True(t, errors.As(err, &ipcErr))
	assert.Equal(t, "validate", ipcErr.Op)
}

func TestIPCWriter_RequiresSchema(t *testing.T) {
	_, err := NewIPCWriter(filepath.Join(t.TempDir(), "x.arrow"))
	assert.Error(t, err)
}

func TestWriteTable_ReportsRow(t *testing.T) {
	writer, err := NewIPCWriter(filepath.Join(t.TempDir(), "rows.arrow"), WithSchema(testSchema()))
	require.NoError(t, err)
	defer writer.Close()

	table := core.NewTable([]string{"Number of Bags"})
	table.Append(core.Record{"Number of Bags": int64(1)})
	table.Append(core.Record{"Number of Bags": 2.5})

	err = WriteTable(context.Background(), writer, table)
	assert.ErrorContains(t, err, "row 2")
}

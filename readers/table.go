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

	"github.com/aaronlmathis/cupofmud/core"
)

// ColumnSource is a DataSource that knows its column list up front.
type ColumnSource interface {
	core.DataSource
	Columns() []string
}

// ReadTable drains src into a table. The source is not closed.
func ReadTable(ctx context.Context, src ColumnSource) (*core.Table, error) {
	table := core.NewTable(src.Columns())
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		record, err := src.Read(ctx)
		if err == io.EOF {
			return table, nil
		}
		if err != nil {
			return nil, fmt.Errorf("source read failed: %w", err)
		}
		table.Append(record)
	}
}

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
	"fmt"

	"github.com/aaronlmathis/cupofmud/core"
)

// WriteTable writes every row of table to sink in order and flushes it.
// The sink is not closed.
func WriteTable(ctx context.Context, sink core.DataSink, table *core.Table) error {
	for i, row := range table.Rows {
		if err := sink.Write(ctx, row); err != nil {
			return fmt.Errorf("row %d: %w", i+1, err)
		}
	}
	return sink.Flush()
}

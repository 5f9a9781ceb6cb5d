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
	"fmt"
	"sort"

	"github.com/aaronlmathis/cupofmud/core"
)

// Order is a sort direction.
type Order int

const (
	Ascending Order = iota
	Descending
)

func (o Order) String() string {
	if o == Descending {
		return "descending"
	}
	return "ascending"
}

// SortTable returns a copy of table stably sorted by column. Nulls come first
// in either direction. Strings compare byte-wise, numbers numerically; rows
// that compare equal keep their input order.
func SortTable(table *core.Table, column string, order Order) (*core.Table, error) {
	if !table.HasColumn(column) {
		return nil, fmt.Errorf("sort column %q not in table", column)
	}

	rows := make([]core.Record, len(table.Rows))
	copy(rows, table.Rows)

	var cmpErr error
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i][column], rows[j][column]
		if a == nil || b == nil {
			return a == nil && b != nil
		}
		c, err := compareValues(a, b)
		if err != nil && cmpErr == nil {
			cmpErr = fmt.Errorf("sort column %q: %w", column, err)
		}
		if order == Descending {
			return c > 0
		}
		return c < 0
	})
	if cmpErr != nil {
		return nil, cmpErr
	}

	out := core.NewTable(table.Columns)
	out.Rows = rows
	return out, nil
}

// compareValues orders two non-null values of the same kind.
func compareValues(a, b interface{}) (int, error) {
	switch x := a.(type) {
	case string:
		y, ok := b.(string)
		if !ok {
			return 0, fmt.Errorf("cannot compare %T with %T", a, b)
		}
		switch {
		case x < y:
			return -1, nil
		case x > y:
			return 1, nil
		}
		return 0, nil
	default:
		fx, err := toFloat("", a)
		if err != nil {
			return 0, err
		}
		fy, err := toFloat("", b)
		if err != nil {
			return 0, err
		}
		switch {
		case fx < fy:
			return -1, nil
		case fx > fy:
			return 1, nil
		}
		return 0, nil
	}
}

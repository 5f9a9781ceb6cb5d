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

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/apache/arrow/go/v12/parquet/file"

	"github.com/aaronlmathis/cupofmud/core"
	"github.com/aaronlmathis/cupofmud/readers"
)

// inspect prints the layout and first rows of an output written by cupofmud.
//
//	inspect [-table name] <file.parquet|file.arrow|postgres://dsn> [rows]
func main() {
	table := flag.String("table", "arabica_curated", "Table to read for postgres:// sources")
	flag.Parse()
	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: inspect [-table name] <file.parquet|file.arrow|postgres://dsn> [rows]")
		os.Exit(2)
	}
	path := flag.Arg(0)
	rows := 5
	if flag.NArg() > 1 {
		n, err := strconv.Atoi(flag.Arg(1))
		if err != nil || n < 0 {
			log.Fatalf("Invalid row count %q", flag.Arg(1))
		}
		rows = n
	}

	var src readers.ColumnSource
	switch {
	case strings.HasPrefix(path, "postgres://") || strings.HasPrefix(path, "postgresql://"):
		r, err := readers.NewPostgresReader(context.Background(),
			readers.WithPostgresDSN(path),
			readers.WithPostgresTable(*table))
		if err != nil {
			log.Fatalf("Failed to query table: %v", err)
		}
		defer r.Close()
		fmt.Printf("Table %s\n", *table)
		src = r
	case strings.HasSuffix(path, ".arrow"):
		r, err := readers.NewIPCReader(path)
		if err != nil {
			log.Fatalf("Failed to open file: %v", err)
		}
		defer r.Close()
		fmt.Printf("Arrow schema has %d fields:\n", len(r.Schema().Fields()))
		for i, field := range r.Schema().Fields() {
			fmt.Printf("  Field %d: %s (%s)\n", i, field.Name, field.Type)
		}
		src = r
	default:
		if err := printParquetLayout(path); err != nil {
			log.Fatalf("Failed to read parquet layout: %v", err)
		}
		r, err := readers.NewParquetReader(path)
		if err != nil {
			log.Fatalf("Failed to open file: %v", err)
		}
		defer r.Close()
		printMetadata(r.Metadata())
		src = r
	}

	if err := printRows(src, rows); err != nil {
		log.Fatalf("Failed to read rows: %v", err)
	}
}

func printParquetLayout(path string) error {
	reader, err := file.OpenParquetFile(path, false)
	if err != nil {
		return err
	}
	defer reader.Close()

	fmt.Printf("File has %d rows\n", reader.NumRows())
	fmt.Printf("File has %d row groups\n", reader.NumRowGroups())

	schema := reader.MetaData().Schema
	fmt.Printf("Schema has %d columns:\n", schema.NumColumns())
	for i := 0; i < schema.NumColumns(); i++ {
		col := schema.Column(i)
		fmt.Printf("  Column %d: %s (%s)\n", i, col.Name(), col.PhysicalType())
	}

	for i := 0; i < reader.NumRowGroups(); i++ {
		rg := reader.MetaData().RowGroup(i)
		fmt.Printf("Row group %d has %d rows, %d bytes\n", i, rg.NumRows(), rg.TotalByteSize())
	}
	return nil
}

func printMetadata(md map[string]string) {
	if len(md) == 0 {
		return
	}
	keys := make([]string, 0, len(md))
	for k := range md {
		if k == "ARROW:schema" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fmt.Println("Metadata:")
	for _, k := range keys {
		fmt.Printf("  %s = %s\n", k, md[k])
	}
}

func printRows(src readers.ColumnSource, n int) error {
	columns := src.Columns()
	fmt.Println(strings.Join(columns, " | "))
	for i := 0; i < n; i++ {
		record, err := src.Read(context.Background())
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Println(formatRow(columns, record))
	}
	return nil
}

func formatRow(columns []string, record core.Record) string {
	cells := make([]string, len(columns))
	for i, col := range columns {
		if v := record[col]; v != nil {
			cells[i] = fmt.Sprint(v)
		} else {
			cells[i] = "null"
		}
	}
	return strings.Join(cells, " | ")
}
